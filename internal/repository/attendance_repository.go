package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/Freeeeeet/attendance_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recordColumns = `id, session_id, student_id, status, marked_by, created_at, updated_at`

// AttendanceRepository единственный владелец строк attendance_records
type AttendanceRepository struct {
	*base.Repository
}

func NewAttendanceRepository(pool *pgxpool.Pool) *AttendanceRepository {
	return &AttendanceRepository{Repository: base.NewRepository(pool)}
}

func scanRecord(row pgx.Row) (*model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	err := row.Scan(
		&rec.ID,
		&rec.SessionID,
		&rec.StudentID,
		&rec.Status,
		&rec.MarkedBy,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func collectRecords(rows pgx.Rows) ([]*model.AttendanceRecord, error) {
	defer rows.Close()

	var records []*model.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance records: %w", err)
	}

	return records, nil
}

// Create вставляет запись; повтор для той же пары (session, student) даёт ErrDuplicateRecord
func (r *AttendanceRepository) Create(ctx context.Context, rec *model.AttendanceRecord) error {
	query := `
		INSERT INTO attendance_records (session_id, student_id, status, marked_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(ctx, query, rec.SessionID, rec.StudentID, rec.Status, rec.MarkedBy).
		Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return fmt.Errorf("session %d student %d: %w", rec.SessionID, rec.StudentID, model.ErrDuplicateRecord)
		}
		return fmt.Errorf("create attendance record: %w", err)
	}

	return nil
}

// CreateMany вставляет записи для списка студентов, пропуская уже существующие
func (r *AttendanceRepository) CreateMany(ctx context.Context, sessionID int64, studentIDs []int64, status model.AttendanceStatus, markedBy int64) ([]*model.AttendanceRecord, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}

	query := `
		INSERT INTO attendance_records (session_id, student_id, status, marked_by)
		SELECT $1, student_id, $3, $4
		FROM UNNEST($2::bigint[]) AS student_id
		ON CONFLICT (session_id, student_id) DO NOTHING
		RETURNING ` + recordColumns

	rows, err := r.Query(ctx, query, sessionID, studentIDs, status, markedBy)
	if err != nil {
		return nil, fmt.Errorf("create attendance records: %w", err)
	}

	return collectRecords(rows)
}

// GetByID получает запись по ID
func (r *AttendanceRepository) GetByID(ctx context.Context, id int64) (*model.AttendanceRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance_records WHERE id = $1`

	rec, err := scanRecord(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get attendance record: %w", err)
	}

	return rec, nil
}

// GetBySessionAndStudent получает запись студента на занятии
func (r *AttendanceRepository) GetBySessionAndStudent(ctx context.Context, sessionID, studentID int64) (*model.AttendanceRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance_records WHERE session_id = $1 AND student_id = $2`

	rec, err := scanRecord(r.QueryRow(ctx, query, sessionID, studentID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get attendance record: %w", err)
	}

	return rec, nil
}

// GetBySession получает все записи занятия
func (r *AttendanceRepository) GetBySession(ctx context.Context, sessionID int64) ([]*model.AttendanceRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance_records WHERE session_id = $1 ORDER BY student_id`

	rows, err := r.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get records by session: %w", err)
	}

	return collectRecords(rows)
}

// GetByCourse получает все записи всех занятий курса
func (r *AttendanceRepository) GetByCourse(ctx context.Context, courseID int64) ([]*model.AttendanceRecord, error) {
	query := `
		SELECT ar.id, ar.session_id, ar.student_id, ar.status, ar.marked_by, ar.created_at, ar.updated_at
		FROM attendance_records ar
		JOIN class_sessions cs ON cs.id = ar.session_id
		WHERE cs.course_id = $1
		ORDER BY cs.start_at, ar.student_id
	`

	rows, err := r.Query(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("get records by course: %w", err)
	}

	return collectRecords(rows)
}

// GetByCourseAndStudent получает записи студента по курсу
func (r *AttendanceRepository) GetByCourseAndStudent(ctx context.Context, courseID, studentID int64) ([]*model.AttendanceRecord, error) {
	query := `
		SELECT ar.id, ar.session_id, ar.student_id, ar.status, ar.marked_by, ar.created_at, ar.updated_at
		FROM attendance_records ar
		JOIN class_sessions cs ON cs.id = ar.session_id
		WHERE cs.course_id = $1 AND ar.student_id = $2
		ORDER BY cs.start_at
	`

	rows, err := r.Query(ctx, query, courseID, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student records: %w", err)
	}

	return collectRecords(rows)
}

// UpdateStatus обновляет статус записи
func (r *AttendanceRepository) UpdateStatus(ctx context.Context, id int64, status model.AttendanceStatus, markedBy int64) error {
	query := `
		UPDATE attendance_records
		SET status = $1, marked_by = $2, updated_at = NOW()
		WHERE id = $3
	`

	affected, err := r.ExecAffected(ctx, query, status, markedBy, id)
	if err != nil {
		return fmt.Errorf("update attendance status: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("attendance record %d: %w", id, model.ErrNotFound)
	}

	return nil
}

// ResolvePending переводит записи из PENDING в status; записи с другим статусом не трогаются
func (r *AttendanceRepository) ResolvePending(ctx context.Context, ids []int64, status model.AttendanceStatus, markedBy int64) ([]*model.AttendanceRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		UPDATE attendance_records
		SET status = $1, marked_by = $2, updated_at = NOW()
		WHERE id = ANY($3) AND status = $4
		RETURNING ` + recordColumns

	rows, err := r.Query(ctx, query, status, markedBy, ids, model.AttendanceStatusPending)
	if err != nil {
		return nil, fmt.Errorf("resolve pending records: %w", err)
	}

	return collectRecords(rows)
}
