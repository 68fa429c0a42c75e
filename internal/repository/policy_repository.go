package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/Freeeeeet/attendance_bot/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PolicyRepository struct {
	*base.Repository
}

func NewPolicyRepository(pool *pgxpool.Pool) *PolicyRepository {
	return &PolicyRepository{Repository: base.NewRepository(pool)}
}

// Get получает политику курса; nil, если политика не задана
func (r *PolicyRepository) Get(ctx context.Context, courseID int64) (*model.AttendancePolicy, error) {
	query := `
		SELECT course_id, max_absent, late_to_absent, updated_at
		FROM attendance_policies
		WHERE course_id = $1
	`

	var policy model.AttendancePolicy
	err := r.QueryRow(ctx, query, courseID).Scan(
		&policy.CourseID,
		&policy.MaxAbsent,
		&policy.LateToAbsent,
		&policy.UpdatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get policy: %w", err)
	}

	return &policy, nil
}

// Upsert создаёт или обновляет политику курса
func (r *PolicyRepository) Upsert(ctx context.Context, policy *model.AttendancePolicy) error {
	query := `
		INSERT INTO attendance_policies (course_id, max_absent, late_to_absent, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (course_id) DO UPDATE
		SET max_absent = EXCLUDED.max_absent,
		    late_to_absent = EXCLUDED.late_to_absent,
		    updated_at = EXCLUDED.updated_at
		RETURNING updated_at
	`

	err := r.QueryRow(ctx, query, policy.CourseID, policy.MaxAbsent, policy.LateToAbsent).
		Scan(&policy.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert policy: %w", err)
	}

	return nil
}
