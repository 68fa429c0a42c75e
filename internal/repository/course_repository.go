package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/Freeeeeet/attendance_bot/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CourseRepository хранит курсы и записи студентов на курсы
type CourseRepository struct {
	*base.Repository
}

func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт курс
func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	query := `
		INSERT INTO courses (code, name, instructor_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query, course.Code, course.Name, course.InstructorID).
		Scan(&course.ID, &course.CreatedAt)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return fmt.Errorf("create course %s: %w", course.Code, model.ErrDuplicateRecord)
		}
		return fmt.Errorf("create course: %w", err)
	}

	return nil
}

// GetByID получает курс по ID
func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*model.Course, error) {
	query := `
		SELECT id, code, name, instructor_id, created_at
		FROM courses
		WHERE id = $1
	`

	var course model.Course
	err := r.QueryRow(ctx, query, id).Scan(
		&course.ID,
		&course.Code,
		&course.Name,
		&course.InstructorID,
		&course.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get course: %w", err)
	}

	return &course, nil
}

// Enroll записывает студента на курс (повторная запись игнорируется)
func (r *CourseRepository) Enroll(ctx context.Context, courseID, studentID int64) error {
	query := `
		INSERT INTO enrollments (course_id, student_id)
		VALUES ($1, $2)
		ON CONFLICT (course_id, student_id) DO NOTHING
	`

	if _, err := r.ExecAffected(ctx, query, courseID, studentID); err != nil {
		return fmt.Errorf("enroll student: %w", err)
	}

	return nil
}

// Unenroll удаляет запись студента на курс
func (r *CourseRepository) Unenroll(ctx context.Context, courseID, studentID int64) error {
	query := `DELETE FROM enrollments WHERE course_id = $1 AND student_id = $2`

	affected, err := r.ExecAffected(ctx, query, courseID, studentID)
	if err != nil {
		return fmt.Errorf("unenroll student: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("enrollment: %w", model.ErrNotFound)
	}

	return nil
}

// ListEnrollments возвращает ID студентов курса
func (r *CourseRepository) ListEnrollments(ctx context.Context, courseID int64) ([]int64, error) {
	query := `
		SELECT student_id
		FROM enrollments
		WHERE course_id = $1
		ORDER BY student_id
	`

	rows, err := r.Query(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	var studentIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		studentIDs = append(studentIDs, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollments: %w", err)
	}

	return studentIDs, nil
}

// IsEnrolled проверяет, записан ли студент на курс
func (r *CourseRepository) IsEnrolled(ctx context.Context, courseID, studentID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM enrollments
			WHERE course_id = $1 AND student_id = $2
		)
	`

	var exists bool
	if err := r.QueryRow(ctx, query, courseID, studentID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}

	return exists, nil
}
