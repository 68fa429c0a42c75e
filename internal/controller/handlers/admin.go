package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/attendance_bot/internal/model"
)

// cmdNewCourse /newcourse <код> <telegram_id преподавателя> <название>
func (h *Handlers) cmdNewCourse(ctx context.Context, req *request) ([]reply, error) {
	if len(req.args) < 3 {
		return nil, usage("/newcourse <код> <telegram_id преподавателя> <название>")
	}

	instructor, err := h.userByTelegramArg(ctx, req.args, 1)
	if err != nil {
		return nil, err
	}

	course, err := h.courseService.CreateCourse(ctx, req.actor(), req.args[0], restFrom(req.args, 2), instructor.ID)
	if err != nil {
		return nil, err
	}

	return say(fmt.Sprintf("✅ Курс создан\n\n📚 #%d %s %s\n🎓 %s",
		course.ID, course.Code, course.Name, instructor.DisplayName())), nil
}

// cmdEnroll /enroll <курс> <telegram_id>
func (h *Handlers) cmdEnroll(ctx context.Context, req *request) ([]reply, error) {
	if len(req.args) < 2 {
		return nil, usage("/enroll <курс> <telegram_id>")
	}

	courseID, err := argID(req.args, 0, "course_id")
	if err != nil {
		return nil, err
	}
	student, err := h.userByTelegramArg(ctx, req.args, 1)
	if err != nil {
		return nil, err
	}

	if err := h.courseService.Enroll(ctx, req.actor(), courseID, student.ID); err != nil {
		return nil, err
	}

	return say(fmt.Sprintf("✅ %s записан на курс #%d", student.DisplayName(), courseID)), nil
}

// cmdSetRole /setrole <telegram_id> <ADMIN|INSTRUCTOR|STUDENT>
func (h *Handlers) cmdSetRole(ctx context.Context, req *request) ([]reply, error) {
	if len(req.args) < 2 {
		return nil, usage("/setrole <telegram_id> <ADMIN|INSTRUCTOR|STUDENT>")
	}

	target, err := h.userByTelegramArg(ctx, req.args, 0)
	if err != nil {
		return nil, err
	}

	updated, err := h.userService.SetRole(ctx, req.actor(), target.ID, model.Role(strings.ToUpper(req.args[1])))
	if err != nil {
		return nil, err
	}

	return say(fmt.Sprintf("✅ %s теперь %s", updated.DisplayName(), roleName(updated.Role))), nil
}
