package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/Freeeeeet/attendance_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionColumns = `id, course_id, start_at, end_at, room, attendance_method, attendance_code, state, created_at, updated_at`

// SessionRepository хранит занятия курсов
type SessionRepository struct {
	*base.Repository
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{Repository: base.NewRepository(pool)}
}

func scanSession(row pgx.Row) (*model.ClassSession, error) {
	var s model.ClassSession
	err := row.Scan(
		&s.ID,
		&s.CourseID,
		&s.StartAt,
		&s.EndAt,
		&s.Room,
		&s.Method,
		&s.AttendanceCode,
		&s.State,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create создаёт занятие
func (r *SessionRepository) Create(ctx context.Context, session *model.ClassSession) error {
	query := `
		INSERT INTO class_sessions (course_id, start_at, end_at, room, attendance_method, attendance_code, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		session.CourseID,
		session.StartAt,
		session.EndAt,
		session.Room,
		session.Method,
		session.AttendanceCode,
		session.State,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

// GetByID получает занятие по ID
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*model.ClassSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM class_sessions WHERE id = $1`

	session, err := scanSession(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session by id: %w", err)
	}

	return session, nil
}

// GetByCourse получает все занятия курса по времени начала
func (r *SessionRepository) GetByCourse(ctx context.Context, courseID int64) ([]*model.ClassSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM class_sessions WHERE course_id = $1 ORDER BY start_at`

	rows, err := r.Query(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("get sessions by course: %w", err)
	}
	defer rows.Close()

	var sessions []*model.ClassSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// Transition переводит занятие из состояния from в to, если оно всё ещё в from.
// Непустой code заменяет текущий код. Возвращает false, если состояние уже изменилось.
func (r *SessionRepository) Transition(ctx context.Context, id int64, from, to model.SessionState, code *string) (bool, error) {
	query := `
		UPDATE class_sessions
		SET state = $1, attendance_code = COALESCE($2, attendance_code), updated_at = NOW()
		WHERE id = $3 AND state = $4
	`

	affected, err := r.ExecAffected(ctx, query, to, code, id, from)
	if err != nil {
		return false, fmt.Errorf("transition session: %w", err)
	}

	return affected == 1, nil
}

// SetCode заменяет код посещаемости
func (r *SessionRepository) SetCode(ctx context.Context, id int64, code string) error {
	query := `
		UPDATE class_sessions
		SET attendance_code = $1, updated_at = NOW()
		WHERE id = $2
	`

	affected, err := r.ExecAffected(ctx, query, code, id)
	if err != nil {
		return fmt.Errorf("set session code: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("session %d: %w", id, model.ErrNotFound)
	}

	return nil
}
