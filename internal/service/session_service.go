package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"go.uber.org/zap"
)

const (
	codeMin = 1000
	codeMax = 9999
)

// generateAttendanceCode генерирует 4-значный код, равномерно в [1000, 9999]
func generateAttendanceCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", fmt.Errorf("generate random code: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()+codeMin), nil
}

// SessionService конечный автомат занятия: SCHEDULED -> OPEN -> CLOSED
type SessionService struct {
	tx          Transactor
	sessionRepo SessionStore
	courseRepo  CourseStore
	guard       courseGuard
	reconciler  *Reconciler
	effects     *EffectRunner
	logger      *zap.Logger
	newCode     func() (string, error)
}

func NewSessionService(
	tx Transactor,
	sessionRepo SessionStore,
	courseRepo CourseStore,
	reconciler *Reconciler,
	effects *EffectRunner,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		tx:          tx,
		sessionRepo: sessionRepo,
		courseRepo:  courseRepo,
		guard:       courseGuard{courses: courseRepo},
		reconciler:  reconciler,
		effects:     effects,
		logger:      logger,
		newCode:     generateAttendanceCode,
	}
}

// CreateSessionInput описывает новое занятие
type CreateSessionInput struct {
	CourseID int64                  `json:"course_id" validate:"required"`
	StartAt  time.Time              `json:"start_at" validate:"required"`
	EndAt    time.Time              `json:"end_at" validate:"required,gtfield=StartAt"`
	Room     string                 `json:"room" validate:"max=64"`
	Method   model.AttendanceMethod `json:"attendance_method" validate:"required,oneof=DIRECT CODE"`
}

// CloseResult итог закрытия занятия вместе со сверкой
type CloseResult struct {
	Session   *model.ClassSession
	Reconcile *ReconcileResult
}

func sessionSnapshot(s *model.ClassSession) map[string]any {
	return map[string]any{
		"state":           string(s.State),
		"is_open":         s.IsOpen(),
		"is_closed":       s.IsClosed(),
		"attendance_code": s.AttendanceCode,
	}
}

func (s *SessionService) load(ctx context.Context, sessionID int64) (*model.ClassSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %d: %w", sessionID, model.ErrNotFound)
	}
	return session, nil
}

// loadManaged загружает занятие и проверяет права на его курс
func (s *SessionService) loadManaged(ctx context.Context, actor *model.Principal, sessionID int64) (*model.ClassSession, error) {
	if err := requirePrincipal(actor); err != nil {
		return nil, err
	}

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if _, err := s.guard.requireManager(ctx, actor, session.CourseID); err != nil {
		return nil, err
	}

	return session, nil
}

// CreateSession планирует занятие курса
func (s *SessionService) CreateSession(ctx context.Context, actor *model.Principal, in CreateSessionInput) (*model.ClassSession, error) {
	if _, err := s.guard.requireManager(ctx, actor, in.CourseID); err != nil {
		return nil, err
	}

	if err := validateStruct(in); err != nil {
		return nil, err
	}

	session := &model.ClassSession{
		CourseID: in.CourseID,
		StartAt:  in.StartAt,
		EndAt:    in.EndAt,
		Room:     in.Room,
		Method:   in.Method,
		State:    model.SessionStateScheduled,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	effects := &Effects{}
	effects.Audit(model.AuditEntry{
		ActorID:    actor.UserID,
		Action:     model.AuditSessionCreate,
		TargetType: model.TargetSession,
		TargetID:   session.ID,
		NewValue:   sessionSnapshot(session),
	})
	s.effects.Run(ctx, effects)

	s.logger.Info("Session created",
		zap.Int64("session_id", session.ID),
		zap.Int64("course_id", session.CourseID),
		zap.String("method", string(session.Method)),
	)

	return session, nil
}

// GetSession получает занятие по ID
func (s *SessionService) GetSession(ctx context.Context, sessionID int64) (*model.ClassSession, error) {
	return s.load(ctx, sessionID)
}

// ListCourseSessions возвращает занятия курса; доступно управляющим курсом и записанным студентам
func (s *SessionService) ListCourseSessions(ctx context.Context, actor *model.Principal, courseID int64) ([]*model.ClassSession, error) {
	if err := requirePrincipal(actor); err != nil {
		return nil, err
	}

	course, err := s.guard.course(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if !canManage(actor, course) {
		enrolled, err := s.courseRepo.IsEnrolled(ctx, courseID, actor.UserID)
		if err != nil {
			return nil, fmt.Errorf("check enrollment: %w", err)
		}
		if !enrolled {
			return nil, fmt.Errorf("course %d: %w", courseID, model.ErrForbidden)
		}
	}

	sessions, err := s.sessionRepo.GetByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	// Студентам код не показываем
	if !canManage(actor, course) {
		for _, session := range sessions {
			session.AttendanceCode = nil
		}
	}

	return sessions, nil
}

// Open открывает приём отметок; для CODE-занятия без кода выдаёт код
func (s *SessionService) Open(ctx context.Context, actor *model.Principal, sessionID int64) (*model.ClassSession, error) {
	session, err := s.loadManaged(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}

	next, err := model.Transition(session.State, model.SessionEventOpen)
	if err != nil {
		return nil, fmt.Errorf("open session %d: %w", sessionID, err)
	}

	before := sessionSnapshot(session)

	var code *string
	if session.UsesCode() && session.AttendanceCode == nil {
		generated, err := s.newCode()
		if err != nil {
			return nil, err
		}
		code = &generated
	}

	ok, err := s.sessionRepo.Transition(ctx, sessionID, session.State, next, code)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	if !ok {
		// Параллельный вызов успел изменить состояние
		return nil, fmt.Errorf("open session %d: %w", sessionID, model.ErrInvalidTransition)
	}

	session.State = next
	if code != nil {
		session.AttendanceCode = code
	}

	students, err := s.courseRepo.ListEnrollments(ctx, session.CourseID)
	if err != nil {
		// Занятие уже открыто; без списка студентов просто не рассылаем уведомления
		s.logger.Error("Failed to list enrollments for notification",
			zap.Int64("session_id", sessionID),
			zap.Error(err),
		)
	}

	effects := &Effects{}
	effects.Audit(model.AuditEntry{
		ActorID:    actor.UserID,
		Action:     model.AuditSessionOpen,
		TargetType: model.TargetSession,
		TargetID:   sessionID,
		OldValue:   before,
		NewValue:   sessionSnapshot(session),
	})
	effects.Notify(students, model.NotificationMessage{
		Type:    model.NotificationSessionOpened,
		Title:   "Отметка открыта",
		Content: fmt.Sprintf("Занятие #%d открыто для отметки до %s.", session.ID, session.EndAt.Format("15:04")),
		Link:    fmt.Sprintf("/mark %d", session.ID),
	})
	s.effects.Run(ctx, effects)

	s.logger.Info("Session opened",
		zap.Int64("session_id", sessionID),
		zap.Int64("actor_id", actor.UserID),
		zap.Bool("code_issued", code != nil),
	)

	return session, nil
}

// RegenerateCode выдаёт новый код; старый перестаёт действовать сразу
func (s *SessionService) RegenerateCode(ctx context.Context, actor *model.Principal, sessionID int64) (*model.ClassSession, error) {
	session, err := s.loadManaged(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}

	if !session.UsesCode() {
		return nil, fmt.Errorf("regenerate code for session %d: %w", sessionID, model.ErrWrongMethod)
	}

	before := sessionSnapshot(session)

	code, err := s.newCode()
	if err != nil {
		return nil, err
	}

	if err := s.sessionRepo.SetCode(ctx, sessionID, code); err != nil {
		return nil, fmt.Errorf("set code: %w", err)
	}
	session.AttendanceCode = &code

	effects := &Effects{}
	effects.Audit(model.AuditEntry{
		ActorID:    actor.UserID,
		Action:     model.AuditSessionCode,
		TargetType: model.TargetSession,
		TargetID:   sessionID,
		OldValue:   before,
		NewValue:   sessionSnapshot(session),
	})
	s.effects.Run(ctx, effects)

	s.logger.Info("Session code regenerated",
		zap.Int64("session_id", sessionID),
		zap.Int64("actor_id", actor.UserID),
	)

	return session, nil
}

// Close закрывает занятие и синхронно выполняет сверку в той же транзакции
func (s *SessionService) Close(ctx context.Context, actor *model.Principal, sessionID int64) (*CloseResult, error) {
	session, err := s.loadManaged(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}

	next, err := model.Transition(session.State, model.SessionEventClose)
	if err != nil {
		return nil, fmt.Errorf("close session %d: %w", sessionID, err)
	}

	before := sessionSnapshot(session)

	var result *ReconcileResult
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.sessionRepo.Transition(ctx, sessionID, session.State, next, nil)
		if err != nil {
			return fmt.Errorf("close session: %w", err)
		}
		if !ok {
			return fmt.Errorf("close session %d: %w", sessionID, model.ErrInvalidTransition)
		}

		session.State = next
		result, err = s.reconciler.Apply(ctx, session, actor.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}

	effects := &Effects{}
	effects.Audit(model.AuditEntry{
		ActorID:    actor.UserID,
		Action:     model.AuditSessionClose,
		TargetType: model.TargetSession,
		TargetID:   sessionID,
		OldValue:   before,
		NewValue:   sessionSnapshot(session),
	})
	for _, rec := range result.Created {
		effects.Audit(model.AuditEntry{
			ActorID:    actor.UserID,
			Action:     model.AuditAttendanceSweep,
			TargetType: model.TargetAttendance,
			TargetID:   rec.ID,
			OldValue:   nil,
			NewValue:   map[string]any{"status": string(rec.Status)},
		})
	}
	for _, rec := range result.Resolved {
		effects.Audit(model.AuditEntry{
			ActorID:    actor.UserID,
			Action:     model.AuditAttendanceSweep,
			TargetType: model.TargetAttendance,
			TargetID:   rec.ID,
			OldValue:   map[string]any{"status": string(model.AttendanceStatusPending)},
			NewValue:   map[string]any{"status": string(rec.Status)},
		})
	}
	s.effects.Run(ctx, effects)

	s.logger.Info("Session closed",
		zap.Int64("session_id", sessionID),
		zap.Int64("actor_id", actor.UserID),
		zap.Int("absent_created", len(result.Created)),
		zap.Int("pending_resolved", len(result.Resolved)),
	)

	return &CloseResult{Session: session, Reconcile: result}, nil
}
