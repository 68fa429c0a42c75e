package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/attendance_bot/internal/controller/common"
	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/Freeeeeet/attendance_bot/internal/service"
)

// sessionReply карточка занятия; кнопки управления только для преподавателя и администратора
func sessionReply(s *model.ClassSession, actor *model.Principal) reply {
	r := reply{text: common.FormatSession(s, !actor.IsStudent())}
	if actor.IsStudent() {
		return r
	}
	if kb := common.SessionKeyboard(s.IsOpen(), s.IsClosed(), s.UsesCode(), s.ID); kb != nil {
		r.markup = kb
	}
	return r
}

// cmdSessions /sessions <курс>
func (h *Handlers) cmdSessions(ctx context.Context, req *request) ([]reply, error) {
	courseID, err := argID(req.args, 0, "course_id")
	if err != nil {
		return nil, usage("/sessions <курс>")
	}

	sessions, err := h.sessionService.ListCourseSessions(ctx, req.actor(), courseID)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return say("📭 У курса пока нет занятий"), nil
	}

	replies := make([]reply, 0, len(sessions))
	for _, s := range sessions {
		replies = append(replies, sessionReply(s, req.actor()))
	}
	return replies, nil
}

// cmdNewSession /newsession <курс> <direct|code> <начало> <минуты> [аудитория]
func (h *Handlers) cmdNewSession(ctx context.Context, req *request) ([]reply, error) {
	if len(req.args) < 4 {
		return nil, usage("/newsession <курс> <direct|code> <2006-01-02T15:04> <минуты> [аудитория]")
	}

	courseID, err := argID(req.args, 0, "course_id")
	if err != nil {
		return nil, err
	}
	start, err := parseStart(req.args[2], time.Local)
	if err != nil {
		return nil, err
	}
	minutes, err := argInt(req.args, 3, "duration")
	if err != nil {
		return nil, err
	}

	session, err := h.sessionService.CreateSession(ctx, req.actor(), service.CreateSessionInput{
		CourseID: courseID,
		StartAt:  start,
		EndAt:    start.Add(time.Duration(minutes) * time.Minute),
		Room:     restFrom(req.args, 4),
		Method:   model.AttendanceMethod(strings.ToUpper(req.args[1])),
	})
	if err != nil {
		return nil, err
	}

	created := sessionReply(session, req.actor())
	created.text = "✅ Занятие создано\n\n" + created.text
	return []reply{created}, nil
}

// cmdOpen /open <занятие>
func (h *Handlers) cmdOpen(ctx context.Context, req *request) ([]reply, error) {
	sessionID, err := argID(req.args, 0, "session_id")
	if err != nil {
		return nil, usage("/open <занятие>")
	}

	session, err := h.sessionService.Open(ctx, req.actor(), sessionID)
	if err != nil {
		return nil, err
	}

	opened := sessionReply(session, req.actor())
	opened.text = "🟢 Отметка открыта\n\n" + opened.text
	return []reply{opened}, nil
}

// cmdClose /close <занятие>
func (h *Handlers) cmdClose(ctx context.Context, req *request) ([]reply, error) {
	sessionID, err := argID(req.args, 0, "session_id")
	if err != nil {
		return nil, usage("/close <занятие>")
	}

	result, err := h.sessionService.Close(ctx, req.actor(), sessionID)
	if err != nil {
		return nil, err
	}

	return say(common.FormatCloseResult(result)), nil
}

// cmdCode /code <занятие>
func (h *Handlers) cmdCode(ctx context.Context, req *request) ([]reply, error) {
	sessionID, err := argID(req.args, 0, "session_id")
	if err != nil {
		return nil, usage("/code <занятие>")
	}

	session, err := h.sessionService.RegenerateCode(ctx, req.actor(), sessionID)
	if err != nil {
		return nil, err
	}

	return say(fmt.Sprintf("🔐 Новый код занятия #%d: %s\nСтарый код больше не действует.", session.ID, session.Code())), nil
}
