package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/Freeeeeet/attendance_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const appealColumns = `id, record_id, student_id, requested_status, reason, status, corrected_status, decided_by, decision_note, created_at, decided_at`

type AppealRepository struct {
	*base.Repository
}

func NewAppealRepository(pool *pgxpool.Pool) *AppealRepository {
	return &AppealRepository{Repository: base.NewRepository(pool)}
}

func scanAppeal(row pgx.Row) (*model.AppealRecord, error) {
	var a model.AppealRecord
	err := row.Scan(
		&a.ID,
		&a.RecordID,
		&a.StudentID,
		&a.RequestedStatus,
		&a.Reason,
		&a.Status,
		&a.CorrectedStatus,
		&a.DecidedBy,
		&a.DecisionNote,
		&a.CreatedAt,
		&a.DecidedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AppealRepository) list(ctx context.Context, query string, args ...any) ([]*model.AppealRecord, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get appeals: %w", err)
	}
	defer rows.Close()

	var appeals []*model.AppealRecord
	for rows.Next() {
		a, err := scanAppeal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appeal: %w", err)
		}
		appeals = append(appeals, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appeals: %w", err)
	}

	return appeals, nil
}

// Create создает апелляцию на запись посещаемости
func (r *AppealRepository) Create(ctx context.Context, appeal *model.AppealRecord) error {
	query := `
		INSERT INTO appeal_records (record_id, student_id, requested_status, reason, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		appeal.RecordID,
		appeal.StudentID,
		appeal.RequestedStatus,
		appeal.Reason,
		appeal.Status,
	).Scan(&appeal.ID, &appeal.CreatedAt)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return fmt.Errorf("appeal for record %d: %w", appeal.RecordID, model.ErrDuplicateActiveRequest)
		}
		return fmt.Errorf("create appeal: %w", err)
	}

	return nil
}

// GetByID получает апелляцию по ID
func (r *AppealRepository) GetByID(ctx context.Context, id int64) (*model.AppealRecord, error) {
	query := `SELECT ` + appealColumns + ` FROM appeal_records WHERE id = $1`

	a, err := scanAppeal(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appeal: %w", err)
	}

	return a, nil
}

// HasActive проверяет, есть ли PENDING или APPROVED апелляция на запись
func (r *AppealRepository) HasActive(ctx context.Context, recordID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM appeal_records
			WHERE record_id = $1 AND status IN ($2, $3)
		)
	`

	var exists bool
	err := r.QueryRow(ctx, query, recordID, model.RequestStatusPending, model.RequestStatusApproved).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active appeal: %w", err)
	}

	return exists, nil
}

// Decide фиксирует решение, только если апелляция ещё PENDING
func (r *AppealRepository) Decide(ctx context.Context, id int64, status model.RequestStatus, corrected *model.AttendanceStatus, decidedBy int64, note string) (bool, error) {
	query := `
		UPDATE appeal_records
		SET status = $1, corrected_status = $2, decided_by = $3, decision_note = $4, decided_at = NOW()
		WHERE id = $5 AND status = $6
	`

	affected, err := r.ExecAffected(ctx, query, status, corrected, decidedBy, note, id, model.RequestStatusPending)
	if err != nil {
		return false, fmt.Errorf("decide appeal: %w", err)
	}

	return affected == 1, nil
}

// GetPendingByCourse получает pending апелляции по курсу
func (r *AppealRepository) GetPendingByCourse(ctx context.Context, courseID int64) ([]*model.AppealRecord, error) {
	query := `
		SELECT ap.id, ap.record_id, ap.student_id, ap.requested_status, ap.reason, ap.status,
		       ap.corrected_status, ap.decided_by, ap.decision_note, ap.created_at, ap.decided_at
		FROM appeal_records ap
		JOIN attendance_records ar ON ar.id = ap.record_id
		JOIN class_sessions cs ON cs.id = ar.session_id
		WHERE cs.course_id = $1 AND ap.status = $2
		ORDER BY ap.created_at ASC
	`

	return r.list(ctx, query, courseID, model.RequestStatusPending)
}

// GetByStudent получает апелляции студента
func (r *AppealRepository) GetByStudent(ctx context.Context, studentID int64) ([]*model.AppealRecord, error) {
	query := `SELECT ` + appealColumns + ` FROM appeal_records WHERE student_id = $1 ORDER BY created_at DESC`

	return r.list(ctx, query, studentID)
}
