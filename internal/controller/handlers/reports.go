package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/Freeeeeet/attendance_bot/internal/service"
)

func formatStanding(st service.Standing, name string) string {
	verdict := "✅ В пределах нормы"
	if st.Failing {
		verdict = "🚨 Превышен лимит пропусков"
	}
	return fmt.Sprintf(
		"👤 %s\n"+
			"✅ %d  🕒 %d  ❌ %d  📄 %d  ⏳ %d\n"+
			"📉 Пропусков с учётом опозданий: %d из %d\n"+
			"%s",
		name,
		st.Present, st.Late, st.Absent, st.Excused, st.Pending,
		st.EffectiveAbsences, st.MaxAbsent,
		verdict,
	)
}

// cmdStanding /standing <курс> [telegram_id]
func (h *Handlers) cmdStanding(ctx context.Context, req *request) ([]reply, error) {
	courseID, err := argID(req.args, 0, "course_id")
	if err != nil {
		return nil, usage("/standing <курс> [telegram_id]")
	}

	if req.user.Role == model.RoleStudent || len(req.args) > 1 {
		student := req.user
		if len(req.args) > 1 {
			if student, err = h.userByTelegramArg(ctx, req.args, 1); err != nil {
				return nil, err
			}
		}

		st, err := h.reportService.Standing(ctx, req.actor(), courseID, student.ID)
		if err != nil {
			return nil, err
		}
		return say(formatStanding(*st, student.DisplayName())), nil
	}

	standings, err := h.reportService.CourseStanding(ctx, req.actor(), courseID)
	if err != nil {
		return nil, err
	}
	if len(standings) == 0 {
		return say("📭 На курс пока никто не записан"), nil
	}

	ids := make([]int64, 0, len(standings))
	for _, st := range standings {
		ids = append(ids, st.StudentID)
	}
	users, err := h.userService.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Итоги курса #%d\n\n", courseID)
	for _, st := range standings {
		sb.WriteString(formatStanding(st, names[st.StudentID]))
		sb.WriteString("\n\n")
	}
	return say(strings.TrimRight(sb.String(), "\n")), nil
}

// cmdPolicy /policy <курс> показывает, /policy <курс> <max_absent> <late_to_absent> меняет
func (h *Handlers) cmdPolicy(ctx context.Context, req *request) ([]reply, error) {
	courseID, err := argID(req.args, 0, "course_id")
	if err != nil {
		return nil, usage("/policy <курс> [max_absent late_to_absent]")
	}

	var policy *model.AttendancePolicy
	switch len(req.args) {
	case 1:
		policy, err = h.policyService.GetPolicy(ctx, courseID)
	case 3:
		maxAbsent, perr := argInt(req.args, 1, "max_absent")
		if perr != nil {
			return nil, perr
		}
		lateToAbsent, perr := argInt(req.args, 2, "late_to_absent")
		if perr != nil {
			return nil, perr
		}
		policy, err = h.policyService.SetPolicy(ctx, req.actor(), courseID, maxAbsent, lateToAbsent)
	default:
		return nil, usage("/policy <курс> [max_absent late_to_absent]")
	}
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf(
		"📐 Политика курса #%d\n"+
			"❌ Допустимо пропусков: %d\n"+
			"🕒 Опозданий за один пропуск: %d",
		policy.CourseID, policy.MaxAbsent, policy.LateToAbsent,
	)
	if policy.UpdatedAt == nil {
		text += "\n(значения по умолчанию)"
	}
	return say(text), nil
}
