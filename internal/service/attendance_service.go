package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"go.uber.org/zap"
)

// DefaultLateAfter отметка позже start_at + DefaultLateAfter считается опозданием
const DefaultLateAfter = 15 * time.Minute

// AttendanceService журнал посещаемости: отметки студентов и правки преподавателя
type AttendanceService struct {
	sessionRepo    SessionStore
	courseRepo     CourseStore
	attendanceRepo AttendanceStore
	guard          courseGuard
	effects        *EffectRunner
	logger         *zap.Logger
	lateAfter      time.Duration
	now            func() time.Time
}

func NewAttendanceService(
	sessionRepo SessionStore,
	courseRepo CourseStore,
	attendanceRepo AttendanceStore,
	effects *EffectRunner,
	lateAfter time.Duration,
	logger *zap.Logger,
) *AttendanceService {
	if lateAfter <= 0 {
		lateAfter = DefaultLateAfter
	}

	return &AttendanceService{
		sessionRepo:    sessionRepo,
		courseRepo:     courseRepo,
		attendanceRepo: attendanceRepo,
		guard:          courseGuard{courses: courseRepo},
		effects:        effects,
		logger:         logger,
		lateAfter:      lateAfter,
		now:            time.Now,
	}
}

// MarkInput отметка посещаемости. Code нужен только для самоотметки на CODE-занятии.
type MarkInput struct {
	SessionID int64
	StudentID int64
	Status    model.AttendanceStatus
	Code      string
}

// Mark создаёт запись посещаемости.
//
// Студент отмечает только себя и только на открытом занятии; запрошенный PRESENT
// превращается в LATE после start_at + lateAfter. Преподаватель курса или администратор
// может создать запись с любым статусом на открытом занятии и с итоговым на закрытом.
// Существующую запись Mark не меняет (ErrDuplicateRecord), для этого есть Update.
func (s *AttendanceService) Mark(ctx context.Context, actor *model.Principal, in MarkInput) (*model.AttendanceRecord, error) {
	if err := requirePrincipal(actor); err != nil {
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

	manager := canManage(actor, course)
	status := in.Status

	switch {
	case manager:
		if session.State == model.SessionStateScheduled {
			return nil, fmt.Errorf("session %d: %w", session.ID, model.ErrSessionNotOpen)
		}
		if err := checkManagerStatus(session, status); err != nil {
			return nil, err
		}

	case actor.IsStudent() && actor.UserID == in.StudentID:
		if !session.IsOpen() {
			return nil, fmt.Errorf("session %d: %w", session.ID, model.ErrSessionNotOpen)
		}
		if status == "" {
			status = model.AttendanceStatusPresent
		}
		if status != model.AttendanceStatusPresent && status != model.AttendanceStatusLate {
			return nil, model.NewValidationError(model.FieldError{Field: "status", Error: "students may only check in as PRESENT or LATE"})
		}

	default:
		return nil, fmt.Errorf("mark student %d: %w", in.StudentID, model.ErrForbidden)
	}

	enrolled, err := s.courseRepo.IsEnrolled(ctx, session.CourseID, in.StudentID)
	if err != nil {
		return nil, fmt.Errorf("check enrollment: %w", err)
	}
	if !enrolled {
		return nil, fmt.Errorf("student %d course %d: %w", in.StudentID, session.CourseID, model.ErrNotEnrolled)
	}

	if !manager {
		if session.UsesCode() && (session.Code() == "" || in.Code != session.Code()) {
			return nil, fmt.Errorf("session %d: %w", session.ID, model.ErrInvalidCode)
		}
		if status == model.AttendanceStatusPresent && s.now().After(session.StartAt.Add(s.lateAfter)) {
			status = model.AttendanceStatusLate
		}
	}

	rec := &model.AttendanceRecord{
		SessionID: session.ID,
		StudentID: in.StudentID,
		Status:    status,
		MarkedBy:  actor.UserID,
	}
	if err := s.attendanceRepo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("mark attendance: %w", err)
	}

	effects := &Effects{}
	effects.Audit(model.AuditEntry{
		ActorID:    actor.UserID,
		Action:     model.AuditAttendanceMark,
		TargetType: model.TargetAttendance,
		TargetID:   rec.ID,
		NewValue:   map[string]any{"status": string(rec.Status), "session_id": rec.SessionID, "student_id": rec.StudentID},
	})
	s.effects.Run(ctx, effects)

	s.logger.Info("Attendance marked",
		zap.Int64("record_id", rec.ID),
		zap.Int64("session_id", rec.SessionID),
		zap.Int64("student_id", rec.StudentID),
		zap.String("status", string(rec.Status)),
		zap.Bool("by_manager", manager),
	)

	return rec, nil
}

// Update правка преподавателя; разрешена в любом состоянии занятия,
// но после закрытия статус должен быть итоговым
func (s *AttendanceService) Update(ctx context.Context, actor *model.Principal, recordID int64, status model.AttendanceStatus) (*model.AttendanceRecord, error) {
	if err := requirePrincipal(actor); err != nil {
		return nil, err
	}

	rec, err := s.attendanceRepo.GetByID(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("attendance record %d: %w", recordID, model.ErrNotFound)
	}

	session, err := s.sessionRepo.GetByID(ctx, rec.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %d: %w", rec.SessionID, model.ErrNotFound)
	}

	if _, err := s.guard.requireManager(ctx, actor, session.CourseID); err != nil {
		return nil, err
	}

	if err := checkManagerStatus(session, status); err != nil {
		return nil, err
	}

	previous := rec.Status
	if previous == status {
		return rec, nil
	}

	if err := s.attendanceRepo.UpdateStatus(ctx, rec.ID, status, actor.UserID); err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}
	rec.Status = status
	rec.MarkedBy = actor.UserID

	effects := &Effects{}
	effects.Audit(model.AuditEntry{
		ActorID:    actor.UserID,
		Action:     model.AuditAttendanceEdit,
		TargetType: model.TargetAttendance,
		TargetID:   rec.ID,
		OldValue:   map[string]any{"status": string(previous)},
		NewValue:   map[string]any{"status": string(status)},
	})
	effects.Notify([]int64{rec.StudentID}, model.NotificationMessage{
		Type:    model.NotificationStatusChanged,
		Title:   "Отметка изменена",
		Content: fmt.Sprintf("Ваша отметка на занятии #%d изменена: %s -> %s.", rec.SessionID, previous, status),
		Link:    fmt.Sprintf("/appeal %d", rec.ID),
	})
	s.effects.Run(ctx, effects)

	s.logger.Info("Attendance updated",
		zap.Int64("record_id", rec.ID),
		zap.String("old_status", string(previous)),
		zap.String("new_status", string(status)),
		zap.Int64("actor_id", actor.UserID),
	)

	return rec, nil
}

// SessionRecords все записи занятия (для преподавателя)
func (s *AttendanceService) SessionRecords(ctx context.Context, actor *model.Principal, sessionID int64) ([]*model.AttendanceRecord, error) {
	if err := requirePrincipal(actor); err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %d: %w", sessionID, model.ErrNotFound)
	}

	if _, err := s.guard.requireManager(ctx, actor, session.CourseID); err != nil {
		return nil, err
	}

	return s.attendanceRepo.GetBySession(ctx, sessionID)
}

// StudentRecords записи студента по курсу
func (s *AttendanceService) StudentRecords(ctx context.Context, actor *model.Principal, courseID, studentID int64) ([]*model.AttendanceRecord, error) {
	if _, err := s.guard.requireSelfOrManager(ctx, actor, courseID, studentID); err != nil {
		return nil, err
	}

	return s.attendanceRepo.GetByCourseAndStudent(ctx, courseID, studentID)
}

// checkManagerStatus: закрытое занятие повторно не сверяется, PENDING на нём остался бы навсегда
func checkManagerStatus(session *model.ClassSession, status model.AttendanceStatus) error {
	if !status.IsValid() {
		return model.NewValidationError(model.FieldError{Field: "status", Error: "unknown status " + string(status)})
	}
	if session.IsClosed() && !status.IsResolved() {
		return model.NewValidationError(model.FieldError{Field: "status", Error: "session is closed, status must be PRESENT, LATE, ABSENT or EXCUSED"})
	}
	return nil
}
