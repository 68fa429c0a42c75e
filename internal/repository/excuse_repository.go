package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/Freeeeeet/attendance_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const excuseColumns = `id, session_id, student_id, reason, reason_code, file_urls, status, decided_by, decision_note, created_at, decided_at`

type ExcuseRepository struct {
	*base.Repository
}

func NewExcuseRepository(pool *pgxpool.Pool) *ExcuseRepository {
	return &ExcuseRepository{Repository: base.NewRepository(pool)}
}

func scanExcuse(row pgx.Row) (*model.ExcuseRequest, error) {
	var req model.ExcuseRequest
	err := row.Scan(
		&req.ID,
		&req.SessionID,
		&req.StudentID,
		&req.Reason,
		&req.ReasonCode,
		&req.FileURLs,
		&req.Status,
		&req.DecidedBy,
		&req.DecisionNote,
		&req.CreatedAt,
		&req.DecidedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *ExcuseRepository) list(ctx context.Context, query string, args ...any) ([]*model.ExcuseRequest, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get excuse requests: %w", err)
	}
	defer rows.Close()

	var requests []*model.ExcuseRequest
	for rows.Next() {
		req, err := scanExcuse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan excuse request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate excuse requests: %w", err)
	}

	return requests, nil
}

// Create создает заявку; частичный уникальный индекс не допускает второй активной заявки
func (r *ExcuseRepository) Create(ctx context.Context, req *model.ExcuseRequest) error {
	query := `
		INSERT INTO excuse_requests (session_id, student_id, reason, reason_code, file_urls, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	fileURLs := req.FileURLs
	if fileURLs == nil {
		fileURLs = []string{}
	}

	err := r.QueryRow(
		ctx, query,
		req.SessionID,
		req.StudentID,
		req.Reason,
		req.ReasonCode,
		fileURLs,
		req.Status,
	).Scan(&req.ID, &req.CreatedAt)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return fmt.Errorf("excuse for session %d: %w", req.SessionID, model.ErrDuplicateActiveRequest)
		}
		return fmt.Errorf("create excuse request: %w", err)
	}

	return nil
}

// GetByID получает заявку по ID
func (r *ExcuseRepository) GetByID(ctx context.Context, id int64) (*model.ExcuseRequest, error) {
	query := `SELECT ` + excuseColumns + ` FROM excuse_requests WHERE id = $1`

	req, err := scanExcuse(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get excuse request: %w", err)
	}

	return req, nil
}

// HasActive проверяет, есть ли PENDING или APPROVED заявка на занятие
func (r *ExcuseRepository) HasActive(ctx context.Context, sessionID, studentID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM excuse_requests
			WHERE session_id = $1 AND student_id = $2 AND status IN ($3, $4)
		)
	`

	var exists bool
	err := r.QueryRow(ctx, query, sessionID, studentID, model.RequestStatusPending, model.RequestStatusApproved).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active excuse: %w", err)
	}

	return exists, nil
}

// Decide фиксирует решение, только если заявка ещё PENDING
func (r *ExcuseRepository) Decide(ctx context.Context, id int64, status model.RequestStatus, decidedBy int64, note string) (bool, error) {
	query := `
		UPDATE excuse_requests
		SET status = $1, decided_by = $2, decision_note = $3, decided_at = NOW()
		WHERE id = $4 AND status = $5
	`

	affected, err := r.ExecAffected(ctx, query, status, decidedBy, note, id, model.RequestStatusPending)
	if err != nil {
		return false, fmt.Errorf("decide excuse request: %w", err)
	}

	return affected == 1, nil
}

// GetPendingByCourse получает pending заявки по всем занятиям курса
func (r *ExcuseRepository) GetPendingByCourse(ctx context.Context, courseID int64) ([]*model.ExcuseRequest, error) {
	query := `
		SELECT er.id, er.session_id, er.student_id, er.reason, er.reason_code, er.file_urls, er.status,
		       er.decided_by, er.decision_note, er.created_at, er.decided_at
		FROM excuse_requests er
		JOIN class_sessions cs ON cs.id = er.session_id
		WHERE cs.course_id = $1 AND er.status = $2
		ORDER BY er.created_at ASC
	`

	return r.list(ctx, query, courseID, model.RequestStatusPending)
}

// GetByStudent получает заявки студента
func (r *ExcuseRepository) GetByStudent(ctx context.Context, studentID int64) ([]*model.ExcuseRequest, error) {
	query := `SELECT ` + excuseColumns + ` FROM excuse_requests WHERE student_id = $1 ORDER BY created_at DESC`

	return r.list(ctx, query, studentID)
}
