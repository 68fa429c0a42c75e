package service

import (
	"context"

	"github.com/Freeeeeet/attendance_bot/internal/model"
)

// Хранилища, от которых зависят сервисы. Реализации: repository (PostgreSQL)
// и repository/memory (для тестов). Getter'ы возвращают nil, nil если объект не найден.

// Transactor выполняет fn атомарно; все хранилища, вызванные с переданным ctx, участвуют в транзакции
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*model.User, error)
	Update(ctx context.Context, user *model.User) error
}

type CourseStore interface {
	Create(ctx context.Context, course *model.Course) error
	GetByID(ctx context.Context, id int64) (*model.Course, error)
	Enroll(ctx context.Context, courseID, studentID int64) error
	Unenroll(ctx context.Context, courseID, studentID int64) error
	ListEnrollments(ctx context.Context, courseID int64) ([]int64, error)
	IsEnrolled(ctx context.Context, courseID, studentID int64) (bool, error)
}

type PolicyStore interface {
	Get(ctx context.Context, courseID int64) (*model.AttendancePolicy, error)
	Upsert(ctx context.Context, policy *model.AttendancePolicy) error
}

type SessionStore interface {
	Create(ctx context.Context, session *model.ClassSession) error
	GetByID(ctx context.Context, id int64) (*model.ClassSession, error)
	GetByCourse(ctx context.Context, courseID int64) ([]*model.ClassSession, error)
	// Transition is a compare-and-set on state; false means the session was not in from.
	Transition(ctx context.Context, id int64, from, to model.SessionState, code *string) (bool, error)
	SetCode(ctx context.Context, id int64, code string) error
}

type AttendanceStore interface {
	// Create fails with model.ErrDuplicateRecord when (session, student) already has a record.
	Create(ctx context.Context, rec *model.AttendanceRecord) error
	CreateMany(ctx context.Context, sessionID int64, studentIDs []int64, status model.AttendanceStatus, markedBy int64) ([]*model.AttendanceRecord, error)
	GetByID(ctx context.Context, id int64) (*model.AttendanceRecord, error)
	GetBySessionAndStudent(ctx context.Context, sessionID, studentID int64) (*model.AttendanceRecord, error)
	GetBySession(ctx context.Context, sessionID int64) ([]*model.AttendanceRecord, error)
	GetByCourse(ctx context.Context, courseID int64) ([]*model.AttendanceRecord, error)
	GetByCourseAndStudent(ctx context.Context, courseID, studentID int64) ([]*model.AttendanceRecord, error)
	UpdateStatus(ctx context.Context, id int64, status model.AttendanceStatus, markedBy int64) error
	ResolvePending(ctx context.Context, ids []int64, status model.AttendanceStatus, markedBy int64) ([]*model.AttendanceRecord, error)
}

type ExcuseStore interface {
	// Create fails with model.ErrDuplicateActiveRequest when an active request exists.
	Create(ctx context.Context, req *model.ExcuseRequest) error
	GetByID(ctx context.Context, id int64) (*model.ExcuseRequest, error)
	HasActive(ctx context.Context, sessionID, studentID int64) (bool, error)
	Decide(ctx context.Context, id int64, status model.RequestStatus, decidedBy int64, note string) (bool, error)
	GetPendingByCourse(ctx context.Context, courseID int64) ([]*model.ExcuseRequest, error)
	GetByStudent(ctx context.Context, studentID int64) ([]*model.ExcuseRequest, error)
}

type AppealStore interface {
	Create(ctx context.Context, appeal *model.AppealRecord) error
	GetByID(ctx context.Context, id int64) (*model.AppealRecord, error)
	HasActive(ctx context.Context, recordID int64) (bool, error)
	Decide(ctx context.Context, id int64, status model.RequestStatus, corrected *model.AttendanceStatus, decidedBy int64, note string) (bool, error)
	GetPendingByCourse(ctx context.Context, courseID int64) ([]*model.AppealRecord, error)
	GetByStudent(ctx context.Context, studentID int64) ([]*model.AppealRecord, error)
}

// NotificationSink доставляет уведомления; ошибки не влияют на основную операцию
type NotificationSink interface {
	Notify(ctx context.Context, userIDs []int64, msg model.NotificationMessage) error
}

// AuditSink пишет журнал аудита; ошибки не влияют на основную операцию
type AuditSink interface {
	Record(ctx context.Context, entry model.AuditEntry) error
}

// FileStorage сохраняет вложения и возвращает URL
type FileStorage interface {
	Store(ctx context.Context, data []byte, meta model.FileMeta) (string, error)
	Remove(ctx context.Context, url string) error
}
