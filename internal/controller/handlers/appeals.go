package handlers

import (
	"context"

	"github.com/Freeeeeet/attendance_bot/internal/controller/common"
	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/Freeeeeet/attendance_bot/internal/service"
)

// cmdAppeal /appeal <запись> <статус> <текст>
func (h *Handlers) cmdAppeal(ctx context.Context, req *request) ([]reply, error) {
	if len(req.args) < 3 {
		return nil, usage("/appeal <запись> <PRESENT|LATE|ABSENT|EXCUSED> <текст>")
	}

	recordID, err := argID(req.args, 0, "record_id")
	if err != nil {
		return nil, err
	}

	appeal, err := h.appealService.Submit(ctx, req.actor(), service.AppealInput{
		RecordID:        recordID,
		RequestedStatus: parseStatus(req.args[1]),
		Reason:          restFrom(req.args, 2),
	})
	if err != nil {
		return nil, err
	}

	return say("✅ Апелляция отправлена преподавателю\n\n" + common.FormatAppeal(appeal)), nil
}

// cmdAppeals /appeals <курс>
func (h *Handlers) cmdAppeals(ctx context.Context, req *request) ([]reply, error) {
	courseID, err := argID(req.args, 0, "course_id")
	if err != nil {
		return nil, usage("/appeals <курс>")
	}

	pending, err := h.appealService.PendingForCourse(ctx, req.actor(), courseID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return say("📭 Нет апелляций на рассмотрении"), nil
	}

	replies := make([]reply, 0, len(pending))
	for _, a := range pending {
		student, err := h.userService.GetByID(ctx, a.StudentID)
		if err != nil {
			return nil, err
		}
		replies = append(replies, reply{
			text:   "👤 " + displayName(student) + "\n" + common.FormatAppeal(a),
			markup: common.DecisionKeyboard(common.CallbackAppeal, a.ID),
		})
	}
	return replies, nil
}

// cmdDecideAppeal /decide_appeal <id> <approve|reject> [статус] [комментарий]
func (h *Handlers) cmdDecideAppeal(ctx context.Context, req *request) ([]reply, error) {
	if len(req.args) < 2 {
		return nil, usage("/decide_appeal <id> <approve|reject> [статус] [комментарий]")
	}

	appealID, err := argID(req.args, 0, "appeal_id")
	if err != nil {
		return nil, err
	}
	approve, err := parseDecision(req.args[1])
	if err != nil {
		return nil, err
	}

	// Третий аргумент считается статусом, только если это известный статус
	var corrected model.AttendanceStatus
	noteFrom := 2
	if len(req.args) > 2 && parseStatus(req.args[2]).IsValid() {
		corrected = parseStatus(req.args[2])
		noteFrom = 3
	}

	appeal, err := h.appealService.Decide(ctx, req.actor(), appealID, approve, corrected, restFrom(req.args, noteFrom))
	if err != nil {
		return nil, err
	}

	return say("⚖️ Решение принято\n\n" + common.FormatAppeal(appeal)), nil
}
