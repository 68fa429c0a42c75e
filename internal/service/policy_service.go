package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"go.uber.org/zap"
)

// PolicyService хранилище политик посещаемости курсов
type PolicyService struct {
	policyRepo PolicyStore
	guard      courseGuard
	effects    *EffectRunner
	logger     *zap.Logger
}

func NewPolicyService(policyRepo PolicyStore, courseRepo CourseStore, effects *EffectRunner, logger *zap.Logger) *PolicyService {
	return &PolicyService{
		policyRepo: policyRepo,
		guard:      courseGuard{courses: courseRepo},
		effects:    effects,
		logger:     logger,
	}
}

type policyInput struct {
	MaxAbsent    int `json:"max_absent" validate:"min=0"`
	LateToAbsent int `json:"late_to_absent" validate:"min=1"`
}

// GetPolicy возвращает политику курса или значения по умолчанию {3, 3}
func (s *PolicyService) GetPolicy(ctx context.Context, courseID int64) (*model.AttendancePolicy, error) {
	policy, err := s.policyRepo.Get(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("get policy: %w", err)
	}
	if policy == nil {
		return model.DefaultPolicy(courseID), nil
	}
	return policy, nil
}

// SetPolicy задаёт пороги курса
func (s *PolicyService) SetPolicy(ctx context.Context, actor *model.Principal, courseID int64, maxAbsent, lateToAbsent int) (*model.AttendancePolicy, error) {
	if _, err := s.guard.requireManager(ctx, actor, courseID); err != nil {
		return nil, err
	}

	if err := validateStruct(policyInput{MaxAbsent: maxAbsent, LateToAbsent: lateToAbsent}); err != nil {
		return nil, err
	}

	old, err := s.GetPolicy(ctx, courseID)
	if err != nil {
		return nil, err
	}

	policy := &model.AttendancePolicy{
		CourseID:     courseID,
		MaxAbsent:    maxAbsent,
		LateToAbsent: lateToAbsent,
	}
	if err := s.policyRepo.Upsert(ctx, policy); err != nil {
		return nil, fmt.Errorf("save policy: %w", err)
	}

	effects := &Effects{}
	effects.Audit(model.AuditEntry{
		ActorID:    actor.UserID,
		Action:     model.AuditPolicyUpdate,
		TargetType: model.TargetPolicy,
		TargetID:   courseID,
		OldValue:   map[string]any{"max_absent": old.MaxAbsent, "late_to_absent": old.LateToAbsent},
		NewValue:   map[string]any{"max_absent": maxAbsent, "late_to_absent": lateToAbsent},
	})
	s.effects.Run(ctx, effects)

	s.logger.Info("Attendance policy updated",
		zap.Int64("course_id", courseID),
		zap.Int("max_absent", maxAbsent),
		zap.Int("late_to_absent", lateToAbsent),
	)

	return policy, nil
}
