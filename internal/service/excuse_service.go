package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"go.uber.org/zap"
)

// ExcuseService объяснительные об отсутствии: подача студентом, решение преподавателя
type ExcuseService struct {
	tx             Transactor
	excuseRepo     ExcuseStore
	sessionRepo    SessionStore
	courseRepo     CourseStore
	attendanceRepo AttendanceStore
	files          FileStorage
	attachments    AttachmentPolicy
	guard          courseGuard
	effects        *EffectRunner
	logger         *zap.Logger
}

func NewExcuseService(
	tx Transactor,
	excuseRepo ExcuseStore,
	sessionRepo SessionStore,
	courseRepo CourseStore,
	attendanceRepo AttendanceStore,
	files FileStorage,
	attachments AttachmentPolicy,
	effects *EffectRunner,
	logger *zap.Logger,
) *ExcuseService {
	return &ExcuseService{
		tx:             tx,
		excuseRepo:     excuseRepo,
		sessionRepo:    sessionRepo,
		courseRepo:     courseRepo,
		attendanceRepo: attendanceRepo,
		files:          files,
		attachments:    attachments,
		guard:          courseGuard{courses: courseRepo},
		effects:        effects,
		logger:         logger,
	}
}

// ExcuseInput объяснительная на занятие
type ExcuseInput struct {
	SessionID  int64          `json:"session_id" validate:"required"`
	ReasonCode string         `json:"reason_code" validate:"required,oneof=SICK FAMILY OFFICIAL OTHER"`
	Reason     string         `json:"reason" validate:"required,max=1000"`
	Files      []model.Upload `json:"-"`
}

// Submit создаёт объяснительную. Все проверки выполняются до сохранения файлов и заявки.
func (s *ExcuseService) Submit(ctx context.Context, actor *model.Principal, in ExcuseInput) (*model.ExcuseRequest, error) {
	if err := requirePrincipal(actor); err != nil {
		return nil, err
	}
	if !actor.IsStudent() {
		return nil, fmt.Errorf("submit excuse: %w", model.ErrForbidden)
	}

	in.ReasonCode = strings.ToUpper(strings.TrimSpace(in.ReasonCode))
	in.Reason = strings.TrimSpace(in.Reason)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.GetByID(ctx, in.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %d: %w", in.SessionID, model.ErrNotFound)
	}

	course, err := s.guard.course(ctx, session.CourseID)
	if err != nil {
		return nil, err
	}

	enrolled, err := s.courseRepo.IsEnrolled(ctx, session.CourseID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("check enrollment: %w", err)
	}
	if !enrolled {
		return nil, fmt.Errorf("student %d course %d: %w", actor.UserID, session.CourseID, model.ErrNotEnrolled)
	}

	hasActive, err := s.excuseRepo.HasActive(ctx, session.ID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("check active excuse: %w", err)
	}
	if hasActive {
		return nil, fmt.Errorf("excuse for session %d: %w", session.ID, model.ErrDuplicateActiveRequest)
	}

	metas, err := s.attachments.CheckAll(in.Files)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(metas))
	for i, meta := range metas {
		meta.OwnerID = actor.UserID
		url, err := s.files.Store(ctx, in.Files[i].Data, meta)
		if err != nil {
			s.discardFiles(ctx, urls)
			return nil, fmt.Errorf("store attachment %s: %w", meta.Filename, err)
		}
		urls = append(urls, url)
	}

	req := &model.ExcuseRequest{
		SessionID:  session.ID,
		StudentID:  actor.UserID,
		Reason:     in.Reason,
		ReasonCode: in.ReasonCode,
		FileURLs:   urls,
		Status:     model.RequestStatusPending,
	}
	if err := s.excuseRepo.Create(ctx, req); err != nil {
		s.discardFiles(ctx, urls)
		return nil, fmt.Errorf("create excuse: %w", err)
	}

	effects := &Effects{}
	effects.Audit(model.AuditEntry{
		ActorID:    actor.UserID,
		Action:     model.AuditExcuseCreate,
		TargetType: model.TargetExcuse,
		TargetID:   req.ID,
		NewValue:   map[string]any{"status": string(req.Status), "session_id": req.SessionID, "reason_code": req.ReasonCode},
	})
	effects.Notify([]int64{course.InstructorID}, model.NotificationMessage{
		Type:    model.NotificationExcuseCreated,
		Title:   "Новая объяснительная",
		Content: fmt.Sprintf("Объяснительная #%d (%s), занятие #%d: %s", req.ID, req.ReasonCode, req.SessionID, req.Reason),
		Link:    fmt.Sprintf("/decide_excuse %d", req.ID),
	})
	s.effects.Run(ctx, effects)

	s.logger.Info("Excuse submitted",
		zap.Int64("request_id", req.ID),
		zap.Int64("session_id", req.SessionID),
		zap.Int64("student_id", req.StudentID),
		zap.Int("files", len(urls)),
	)

	return req, nil
}

// Decide одобряет или отклоняет объяснительную. Одобрение и перевод записи в EXCUSED
// выполняются одной транзакцией.
func (s *ExcuseService) Decide(ctx context.Context, actor *model.Principal, requestID int64, approve bool, note string) (*model.ExcuseRequest, error) {
	if err := requirePrincipal(actor); err != nil {
		return nil, err
	}

	req, err := s.excuseRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get excuse: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("excuse %d: %w", requestID, model.ErrNotFound)
	}

	session, err := s.sessionRepo.GetByID(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %d: %w", req.SessionID, model.ErrNotFound)
	}

	if _, err := s.guard.requireManager(ctx, actor, session.CourseID); err != nil {
		return nil, err
	}

	if !req.IsPending() {
		return nil, fmt.Errorf("excuse %d is %s: %w", requestID, req.Status, model.ErrAlreadyDecided)
	}

	decision := model.RequestStatusRejected
	if approve {
		decision = model.RequestStatusApproved
	}

	var (
		record   *model.AttendanceRecord
		previous *model.AttendanceStatus
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.excuseRepo.Decide(ctx, requestID, decision, actor.UserID, note)
		if err != nil {
			return fmt.Errorf("decide excuse: %w", err)
		}
		if !ok {
			return fmt.Errorf("excuse %d: %w", requestID, model.ErrAlreadyDecided)
		}

		if !approve {
			return nil
		}

		record, previous, err = s.excuseRecord(ctx, req, actor.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}

	req.Status = decision
	req.DecidedBy = &actor.UserID
	req.DecisionNote = note

	effects := &Effects{}
	effects.Audit(model.AuditEntry{
		ActorID:    actor.UserID,
		Action:     model.AuditExcuseDecide,
		TargetType: model.TargetExcuse,
		TargetID:   req.ID,
		OldValue:   map[string]any{"status": string(model.RequestStatusPending)},
		NewValue:   map[string]any{"status": string(decision), "note": note},
	})
	if record != nil {
		var old map[string]any
		if previous != nil {
			old = map[string]any{"status": string(*previous)}
		}
		effects.Audit(model.AuditEntry{
			ActorID:    actor.UserID,
			Action:     model.AuditAttendanceEdit,
			TargetType: model.TargetAttendance,
			TargetID:   record.ID,
			OldValue:   old,
			NewValue:   map[string]any{"status": string(record.Status), "excuse_id": req.ID},
		})
	}
	effects.Notify([]int64{req.StudentID}, model.NotificationMessage{
		Type:    model.NotificationExcuseDecided,
		Title:   "Объяснительная " + decisionWord(decision),
		Content: strings.TrimSpace(fmt.Sprintf("Ваша объяснительная #%d по занятию #%d %s. %s", req.ID, req.SessionID, decisionWord(decision), note)),
	})
	s.effects.Run(ctx, effects)

	s.logger.Info("Excuse decided",
		zap.Int64("request_id", req.ID),
		zap.String("status", string(decision)),
		zap.Int64("actor_id", actor.UserID),
	)

	return req, nil
}

// excuseRecord переводит запись студента в EXCUSED, создавая её при отсутствии
func (s *ExcuseService) excuseRecord(ctx context.Context, req *model.ExcuseRequest, actorID int64) (*model.AttendanceRecord, *model.AttendanceStatus, error) {
	rec, err := s.attendanceRepo.GetBySessionAndStudent(ctx, req.SessionID, req.StudentID)
	if err != nil {
		return nil, nil, fmt.Errorf("get record: %w", err)
	}

	if rec == nil {
		rec = &model.AttendanceRecord{
			SessionID: req.SessionID,
			StudentID: req.StudentID,
			Status:    model.AttendanceStatusExcused,
			MarkedBy:  actorID,
		}
		if err := s.attendanceRepo.Create(ctx, rec); err != nil {
			return nil, nil, fmt.Errorf("create excused record: %w", err)
		}
		return rec, nil, nil
	}

	previous := rec.Status
	if err := s.attendanceRepo.UpdateStatus(ctx, rec.ID, model.AttendanceStatusExcused, actorID); err != nil {
		return nil, nil, fmt.Errorf("excuse record: %w", err)
	}
	rec.Status = model.AttendanceStatusExcused
	rec.MarkedBy = actorID

	return rec, &previous, nil
}

// PendingForCourse pending объяснительные курса (для преподавателя)
func (s *ExcuseService) PendingForCourse(ctx context.Context, actor *model.Principal, courseID int64) ([]*model.ExcuseRequest, error) {
	if _, err := s.guard.requireManager(ctx, actor, courseID); err != nil {
		return nil, err
	}

	return s.excuseRepo.GetPendingByCourse(ctx, courseID)
}

// MyRequests объяснительные текущего студента
func (s *ExcuseService) MyRequests(ctx context.Context, actor *model.Principal) ([]*model.ExcuseRequest, error) {
	if err := requirePrincipal(actor); err != nil {
		return nil, err
	}

	return s.excuseRepo.GetByStudent(ctx, actor.UserID)
}

// discardFiles удаляет вложения заявки, которая не была сохранена
func (s *ExcuseService) discardFiles(ctx context.Context, urls []string) {
	for _, url := range urls {
		if err := s.files.Remove(ctx, url); err != nil {
			s.logger.Warn("Failed to remove orphaned attachment",
				zap.String("url", url),
				zap.Error(err),
			)
		}
	}
}
