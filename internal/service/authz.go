package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/attendance_bot/internal/model"
)

func requirePrincipal(p *model.Principal) error {
	if p == nil || p.UserID == 0 || !p.Role.IsValid() {
		return model.ErrUnauthorized
	}
	return nil
}

// courseGuard проверяет права на курс: администратор или преподаватель курса
type courseGuard struct {
	courses CourseStore
}

func (g courseGuard) course(ctx context.Context, courseID int64) (*model.Course, error) {
	course, err := g.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	if course == nil {
		return nil, fmt.Errorf("course %d: %w", courseID, model.ErrNotFound)
	}
	return course, nil
}

func canManage(p *model.Principal, course *model.Course) bool {
	return p.IsAdmin() || (p.IsInstructor() && course.InstructorID == p.UserID)
}

// requireManager возвращает курс, если principal может им управлять
func (g courseGuard) requireManager(ctx context.Context, p *model.Principal, courseID int64) (*model.Course, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}

	course, err := g.course(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if !canManage(p, course) {
		return nil, fmt.Errorf("course %d: %w", courseID, model.ErrForbidden)
	}

	return course, nil
}

// requireSelfOrManager разрешает доступ самому студенту или управляющему курсом
func (g courseGuard) requireSelfOrManager(ctx context.Context, p *model.Principal, courseID, studentID int64) (*model.Course, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}

	course, err := g.course(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if p.UserID != studentID && !canManage(p, course) {
		return nil, fmt.Errorf("student %d: %w", studentID, model.ErrForbidden)
	}

	return course, nil
}
