package handlers

import (
	"context"

	"github.com/Freeeeeet/attendance_bot/internal/controller/state"
	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/Freeeeeet/attendance_bot/internal/service"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Services сервисы, которые используют обработчики команд
type Services struct {
	Users      *service.UserService
	Courses    *service.CourseService
	Sessions   *service.SessionService
	Attendance *service.AttendanceService
	Excuses    *service.ExcuseService
	Appeals    *service.AppealService
	Policies   *service.PolicyService
	Reports    *service.ReportService
}

// FileDownloader скачивает файл, присланный пользователем
type FileDownloader interface {
	Download(ctx context.Context, fileID string, maxBytes int64) ([]byte, error)
}

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	userService       *service.UserService
	courseService     *service.CourseService
	sessionService    *service.SessionService
	attendanceService *service.AttendanceService
	excuseService     *service.ExcuseService
	appealService     *service.AppealService
	policyService     *service.PolicyService
	reportService     *service.ReportService
	stateManager      *state.Manager
	downloader        FileDownloader
	maxUploadBytes    int64
	commands          map[string]commandFunc
	logger            *zap.Logger
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	svc Services,
	stateManager *state.Manager,
	downloader FileDownloader,
	maxUploadBytes int64,
	logger *zap.Logger,
) *Handlers {
	if maxUploadBytes <= 0 {
		maxUploadBytes = service.DefaultMaxUploadBytes
	}

	h := &Handlers{
		userService:       svc.Users,
		courseService:     svc.Courses,
		sessionService:    svc.Sessions,
		attendanceService: svc.Attendance,
		excuseService:     svc.Excuses,
		appealService:     svc.Appeals,
		policyService:     svc.Policies,
		reportService:     svc.Reports,
		stateManager:      stateManager,
		downloader:        downloader,
		maxUploadBytes:    maxUploadBytes,
		logger:            logger,
	}
	h.commands = h.commandTable()
	return h
}

// request входящая команда зарегистрированного пользователя
type request struct {
	user   *model.User
	chatID int64
	args   []string
}

func (r *request) actor() *model.Principal {
	return r.user.Principal()
}

// reply одно исходящее сообщение
type reply struct {
	text   string
	markup models.ReplyMarkup
}

func say(s string) []reply {
	return []reply{{text: s}}
}

type commandFunc func(ctx context.Context, req *request) ([]reply, error)
