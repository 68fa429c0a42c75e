package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"go.uber.org/zap"
)

// CourseService курсы и справочник записей студентов (enrollment directory)
type CourseService struct {
	courseRepo CourseStore
	userRepo   UserStore
	guard      courseGuard
	logger     *zap.Logger
}

func NewCourseService(courseRepo CourseStore, userRepo UserStore, logger *zap.Logger) *CourseService {
	return &CourseService{
		courseRepo: courseRepo,
		userRepo:   userRepo,
		guard:      courseGuard{courses: courseRepo},
		logger:     logger,
	}
}

type createCourseInput struct {
	Code         string `json:"code" validate:"required,max=32"`
	Name         string `json:"name" validate:"required,max=200"`
	InstructorID int64  `json:"instructor_id" validate:"required"`
}

// CreateCourse создаёт курс (только администратор)
func (s *CourseService) CreateCourse(ctx context.Context, actor *model.Principal, code, name string, instructorID int64) (*model.Course, error) {
	if err := requirePrincipal(actor); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("create course: %w", model.ErrForbidden)
	}

	in := createCourseInput{Code: strings.TrimSpace(code), Name: strings.TrimSpace(name), InstructorID: instructorID}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	instructor, err := s.userRepo.GetByID(ctx, instructorID)
	if err != nil {
		return nil, fmt.Errorf("get instructor: %w", err)
	}
	if instructor == nil {
		return nil, fmt.Errorf("instructor %d: %w", instructorID, model.ErrNotFound)
	}
	if instructor.Role != model.RoleInstructor {
		return nil, model.NewValidationError(model.FieldError{Field: "instructor_id", Error: "user is not an instructor"})
	}

	course := &model.Course{Code: in.Code, Name: in.Name, InstructorID: instructorID}
	if err := s.courseRepo.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}

	s.logger.Info("Course created",
		zap.Int64("course_id", course.ID),
		zap.String("code", course.Code),
		zap.Int64("instructor_id", instructorID),
	)

	return course, nil
}

// GetCourse получает курс по ID
func (s *CourseService) GetCourse(ctx context.Context, courseID int64) (*model.Course, error) {
	return s.guard.course(ctx, courseID)
}

// Enroll записывает студента на курс
func (s *CourseService) Enroll(ctx context.Context, actor *model.Principal, courseID, studentID int64) error {
	if _, err := s.guard.requireManager(ctx, actor, courseID); err != nil {
		return err
	}

	student, err := s.userRepo.GetByID(ctx, studentID)
	if err != nil {
		return fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return fmt.Errorf("student %d: %w", studentID, model.ErrNotFound)
	}
	if student.Role != model.RoleStudent {
		return model.NewValidationError(model.FieldError{Field: "student_id", Error: "user is not a student"})
	}

	if err := s.courseRepo.Enroll(ctx, courseID, studentID); err != nil {
		return fmt.Errorf("enroll: %w", err)
	}

	s.logger.Info("Student enrolled",
		zap.Int64("course_id", courseID),
		zap.Int64("student_id", studentID),
	)

	return nil
}

// Unenroll отчисляет студента с курса
func (s *CourseService) Unenroll(ctx context.Context, actor *model.Principal, courseID, studentID int64) error {
	if _, err := s.guard.requireManager(ctx, actor, courseID); err != nil {
		return err
	}

	if err := s.courseRepo.Unenroll(ctx, courseID, studentID); err != nil {
		return fmt.Errorf("unenroll: %w", err)
	}

	s.logger.Info("Student unenrolled",
		zap.Int64("course_id", courseID),
		zap.Int64("student_id", studentID),
	)

	return nil
}

// ListEnrollments возвращает ID студентов курса
func (s *CourseService) ListEnrollments(ctx context.Context, courseID int64) ([]int64, error) {
	return s.courseRepo.ListEnrollments(ctx, courseID)
}

// IsEnrolled проверяет запись студента на курс
func (s *CourseService) IsEnrolled(ctx context.Context, courseID, studentID int64) (bool, error) {
	return s.courseRepo.IsEnrolled(ctx, courseID, studentID)
}
