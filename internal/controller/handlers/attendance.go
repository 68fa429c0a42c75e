package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/attendance_bot/internal/controller/common"
	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/Freeeeeet/attendance_bot/internal/service"
)

// cmdMark студент: /mark <занятие> [код]; преподаватель: /mark <занятие> <telegram_id> <статус>
func (h *Handlers) cmdMark(ctx context.Context, req *request) ([]reply, error) {
	if req.user.Role != model.RoleStudent {
		return h.markStudent(ctx, req)
	}

	sessionID, err := argID(req.args, 0, "session_id")
	if err != nil {
		return nil, usage("/mark <занятие> [код]")
	}

	code := ""
	if len(req.args) > 1 {
		code = req.args[1]
	}

	rec, err := h.attendanceService.Mark(ctx, req.actor(), service.MarkInput{
		SessionID: sessionID,
		StudentID: req.user.ID,
		Status:    model.AttendanceStatusPresent,
		Code:      code,
	})
	if err != nil {
		return nil, err
	}

	return say(fmt.Sprintf("✅ Вы отмечены на занятии #%d\n📊 %s",
		rec.SessionID, common.AttendanceStatusDisplay(rec.Status))), nil
}

func (h *Handlers) markStudent(ctx context.Context, req *request) ([]reply, error) {
	if len(req.args) < 3 {
		return nil, usage("/mark <занятие> <telegram_id> <статус>")
	}

	sessionID, err := argID(req.args, 0, "session_id")
	if err != nil {
		return nil, err
	}
	student, err := h.userByTelegramArg(ctx, req.args, 1)
	if err != nil {
		return nil, err
	}

	rec, err := h.attendanceService.Mark(ctx, req.actor(), service.MarkInput{
		SessionID: sessionID,
		StudentID: student.ID,
		Status:    parseStatus(req.args[2]),
	})
	if err != nil {
		return nil, err
	}

	return say("✅ Отметка создана\n" + common.FormatRecord(rec, student.DisplayName())), nil
}

// cmdSetStatus /setstatus <запись> <статус>
func (h *Handlers) cmdSetStatus(ctx context.Context, req *request) ([]reply, error) {
	if len(req.args) < 2 {
		return nil, usage("/setstatus <запись> <PRESENT|LATE|ABSENT|EXCUSED>")
	}

	recordID, err := argID(req.args, 0, "record_id")
	if err != nil {
		return nil, err
	}

	rec, err := h.attendanceService.Update(ctx, req.actor(), recordID, parseStatus(req.args[1]))
	if err != nil {
		return nil, err
	}

	student, err := h.userService.GetByID(ctx, rec.StudentID)
	if err != nil {
		return nil, err
	}

	return say("✏️ Отметка обновлена\n" + common.FormatRecord(rec, displayName(student))), nil
}

// cmdRecords /records <занятие>
func (h *Handlers) cmdRecords(ctx context.Context, req *request) ([]reply, error) {
	sessionID, err := argID(req.args, 0, "session_id")
	if err != nil {
		return nil, usage("/records <занятие>")
	}

	records, err := h.attendanceService.SessionRecords(ctx, req.actor(), sessionID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return say("📭 Отметок пока нет"), nil
	}

	names, err := h.studentNames(ctx, records)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 Отметки занятия #%d:\n\n", sessionID)
	for _, rec := range records {
		sb.WriteString(common.FormatRecord(rec, names[rec.StudentID]))
		sb.WriteString("\n")
	}
	return say(strings.TrimRight(sb.String(), "\n")), nil
}

// cmdMyRecords /myrecords <курс>
func (h *Handlers) cmdMyRecords(ctx context.Context, req *request) ([]reply, error) {
	courseID, err := argID(req.args, 0, "course_id")
	if err != nil {
		return nil, usage("/myrecords <курс>")
	}

	records, err := h.attendanceService.StudentRecords(ctx, req.actor(), courseID, req.user.ID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return say("📭 Отметок пока нет"), nil
	}

	var sb strings.Builder
	sb.WriteString("📋 Мои отметки:\n\n")
	for _, rec := range records {
		fmt.Fprintf(&sb, "#%d занятие #%d: %s\n", rec.ID, rec.SessionID, common.AttendanceStatusDisplay(rec.Status))
	}
	sb.WriteString("\nОспорить отметку: /appeal <запись> <статус> <текст>")
	return say(sb.String()), nil
}

// userByTelegramArg находит зарегистрированного пользователя по telegram_id из аргумента
func (h *Handlers) userByTelegramArg(ctx context.Context, args []string, i int) (*model.User, error) {
	telegramID, err := argID(args, i, "telegram_id")
	if err != nil {
		return nil, err
	}

	user, err := h.userService.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("telegram user %d: %w", telegramID, model.ErrNotFound)
	}
	return user, nil
}

func (h *Handlers) studentNames(ctx context.Context, records []*model.AttendanceRecord) (map[int64]string, error) {
	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.StudentID)
	}

	users, err := h.userService.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	names := make(map[int64]string, len(users))
	for _, id := range ids {
		names[id] = fmt.Sprintf("студент %d", id)
	}
	for _, u := range users {
		names[u.ID] = u.DisplayName()
	}
	return names, nil
}

func displayName(u *model.User) string {
	if u == nil {
		return "неизвестный"
	}
	return u.DisplayName()
}
