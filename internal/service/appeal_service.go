package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"go.uber.org/zap"
)

// AppealService апелляции на уже выставленный статус
type AppealService struct {
	tx             Transactor
	appealRepo     AppealStore
	attendanceRepo AttendanceStore
	sessionRepo    SessionStore
	guard          courseGuard
	effects        *EffectRunner
	logger         *zap.Logger
}

func NewAppealService(
	tx Transactor,
	appealRepo AppealStore,
	attendanceRepo AttendanceStore,
	sessionRepo SessionStore,
	courseRepo CourseStore,
	effects *EffectRunner,
	logger *zap.Logger,
) *AppealService {
	return &AppealService{
		tx:             tx,
		appealRepo:     appealRepo,
		attendanceRepo: attendanceRepo,
		sessionRepo:    sessionRepo,
		guard:          courseGuard{courses: courseRepo},
		effects:        effects,
		logger:         logger,
	}
}

// AppealInput апелляция студента на запись
type AppealInput struct {
	RecordID        int64                  `json:"record_id" validate:"required"`
	RequestedStatus model.AttendanceStatus `json:"requested_status" validate:"required,oneof=PRESENT LATE ABSENT EXCUSED"`
	Reason          string                 `json:"reason" validate:"required,max=1000"`
}

func (s *AppealService) loadRecord(ctx context.Context, recordID int64) (*model.AttendanceRecord, *model.ClassSession, error) {
	rec, err := s.attendanceRepo.GetByID(ctx, recordID)
	if err != nil {
		return nil, nil, fmt.Errorf("get record: %w", err)
	}
	if rec == nil {
		return nil, nil, fmt.Errorf("attendance record %d: %w", recordID, model.ErrNotFound)
	}

	session, err := s.sessionRepo.GetByID(ctx, rec.SessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, nil, fmt.Errorf("session %d: %w", rec.SessionID, model.ErrNotFound)
	}

	return rec, session, nil
}

// Submit подаёт апелляцию на собственную запись
func (s *AppealService) Submit(ctx context.Context, actor *model.Principal, in AppealInput) (*model.AppealRecord, error) {
	if err := requirePrincipal(actor); err != nil {
		return nil, err
	}
	if !actor.IsStudent() {
		return nil, fmt.Errorf("submit appeal: %w", model.ErrForbidden)
	}

	in.RequestedStatus = model.AttendanceStatus(strings.ToUpper(string(in.RequestedStatus)))
	in.Reason = strings.TrimSpace(in.Reason)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	rec, session, err := s.loadRecord(ctx, in.RecordID)
	if err != nil {
		return nil, err
	}
	if rec.StudentID != actor.UserID {
		return nil, fmt.Errorf("attendance record %d: %w", rec.ID, model.ErrForbidden)
	}
	if rec.Status == in.RequestedStatus {
		return nil, model.NewValidationError(model.FieldError{Field: "requested_status", Error: "record already has this status"})
	}

	course, err := s.guard.course(ctx, session.CourseID)
	if err != nil {
		return nil, err
	}

	hasActive, err := s.appealRepo.HasActive(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("check active appeal: %w", err)
	}
	if hasActive {
		return nil, fmt.Errorf("appeal for record %d: %w", rec.ID, model.ErrDuplicateActiveRequest)
	}

	appeal := &model.AppealRecord{
		RecordID:        rec.ID,
		StudentID:       actor.UserID,
		RequestedStatus: in.RequestedStatus,
		Reason:          in.Reason,
		Status:          model.RequestStatusPending,
	}
	if err := s.appealRepo.Create(ctx, appeal); err != nil {
		return nil, fmt.Errorf("create appeal: %w", err)
	}

	effects := &Effects{}
	effects.Audit(model.AuditEntry{
		ActorID:    actor.UserID,
		Action:     model.AuditAppealCreate,
		TargetType: model.TargetAppeal,
		TargetID:   appeal.ID,
		NewValue:   map[string]any{"status": string(appeal.Status), "record_id": rec.ID, "requested_status": string(in.RequestedStatus)},
	})
	effects.Notify([]int64{course.InstructorID}, model.NotificationMessage{
		Type:    model.NotificationAppealCreated,
		Title:   "Новая апелляция",
		Content: fmt.Sprintf("Апелляция #%d, занятие #%d: %s -> %s. %s", appeal.ID, rec.SessionID, rec.Status, in.RequestedStatus, in.Reason),
		Link:    fmt.Sprintf("/decide_appeal %d", appeal.ID),
	})
	s.effects.Run(ctx, effects)

	s.logger.Info("Appeal submitted",
		zap.Int64("appeal_id", appeal.ID),
		zap.Int64("record_id", rec.ID),
		zap.String("requested_status", string(in.RequestedStatus)),
	)

	return appeal, nil
}

// Decide рассматривает апелляцию. При одобрении запись получает corrected
// (или запрошенный студентом статус, если corrected пуст) в той же транзакции.
func (s *AppealService) Decide(ctx context.Context, actor *model.Principal, appealID int64, approve bool, corrected model.AttendanceStatus, note string) (*model.AppealRecord, error) {
	if err := requirePrincipal(actor); err != nil {
		return nil, err
	}

	appeal, err := s.appealRepo.GetByID(ctx, appealID)
	if err != nil {
		return nil, fmt.Errorf("get appeal: %w", err)
	}
	if appeal == nil {
		return nil, fmt.Errorf("appeal %d: %w", appealID, model.ErrNotFound)
	}

	rec, session, err := s.loadRecord(ctx, appeal.RecordID)
	if err != nil {
		return nil, err
	}

	if _, err := s.guard.requireManager(ctx, actor, session.CourseID); err != nil {
		return nil, err
	}

	if !appeal.IsPending() {
		return nil, fmt.Errorf("appeal %d is %s: %w", appealID, appeal.Status, model.ErrAlreadyDecided)
	}

	decision := model.RequestStatusRejected
	var newStatus *model.AttendanceStatus
	if approve {
		decision = model.RequestStatusApproved
		status := corrected
		if status == "" {
			status = appeal.RequestedStatus
		}
		if !status.IsResolved() {
			return nil, model.NewValidationError(model.FieldError{Field: "corrected_status", Error: "must be PRESENT, LATE, ABSENT or EXCUSED"})
		}
		newStatus = &status
	}

	previous := rec.Status
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.appealRepo.Decide(ctx, appealID, decision, newStatus, actor.UserID, note)
		if err != nil {
			return fmt.Errorf("decide appeal: %w", err)
		}
		if !ok {
			return fmt.Errorf("appeal %d: %w", appealID, model.ErrAlreadyDecided)
		}

		if newStatus == nil {
			return nil
		}

		// Перечитываем запись внутри транзакции: статус мог измениться после загрузки
		current, err := s.attendanceRepo.GetByID(ctx, rec.ID)
		if err != nil {
			return fmt.Errorf("get record: %w", err)
		}
		if current == nil {
			return fmt.Errorf("attendance record %d: %w", rec.ID, model.ErrNotFound)
		}
		previous = current.Status

		if err := s.attendanceRepo.UpdateStatus(ctx, rec.ID, *newStatus, actor.UserID); err != nil {
			return fmt.Errorf("correct record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	appeal.Status = decision
	appeal.CorrectedStatus = newStatus
	appeal.DecidedBy = &actor.UserID
	appeal.DecisionNote = note

	effects := &Effects{}
	effects.Audit(model.AuditEntry{
		ActorID:    actor.UserID,
		Action:     model.AuditAppealDecide,
		TargetType: model.TargetAppeal,
		TargetID:   appeal.ID,
		OldValue:   map[string]any{"status": string(model.RequestStatusPending)},
		NewValue:   map[string]any{"status": string(decision), "note": note},
	})

	content := fmt.Sprintf("Ваша апелляция #%d по занятию #%d %s.", appeal.ID, session.ID, decisionWord(decision))
	if newStatus != nil {
		effects.Audit(model.AuditEntry{
			ActorID:    actor.UserID,
			Action:     model.AuditAttendanceEdit,
			TargetType: model.TargetAttendance,
			TargetID:   rec.ID,
			OldValue:   map[string]any{"status": string(previous)},
			NewValue:   map[string]any{"status": string(*newStatus), "appeal_id": appeal.ID},
		})
		content += fmt.Sprintf(" Новый статус: %s.", *newStatus)
	}
	effects.Notify([]int64{appeal.StudentID}, model.NotificationMessage{
		Type:    model.NotificationAppealDecided,
		Title:   "Апелляция " + decisionWord(decision),
		Content: strings.TrimSpace(content + " " + note),
	})
	s.effects.Run(ctx, effects)

	s.logger.Info("Appeal decided",
		zap.Int64("appeal_id", appeal.ID),
		zap.String("status", string(decision)),
		zap.Int64("actor_id", actor.UserID),
	)

	return appeal, nil
}

// PendingForCourse pending апелляции курса
func (s *AppealService) PendingForCourse(ctx context.Context, actor *model.Principal, courseID int64) ([]*model.AppealRecord, error) {
	if _, err := s.guard.requireManager(ctx, actor, courseID); err != nil {
		return nil, err
	}

	return s.appealRepo.GetPendingByCourse(ctx, courseID)
}

// MyAppeals апелляции текущего студента
func (s *AppealService) MyAppeals(ctx context.Context, actor *model.Principal) ([]*model.AppealRecord, error) {
	if err := requirePrincipal(actor); err != nil {
		return nil, err
	}

	return s.appealRepo.GetByStudent(ctx, actor.UserID)
}
