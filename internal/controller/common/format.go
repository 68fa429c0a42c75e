package common

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/Freeeeeet/attendance_bot/internal/service"
)

// StatusDisplay представляет отображение статуса
type StatusDisplay struct {
	Emoji string
	Text  string
}

func (d StatusDisplay) String() string {
	return d.Emoji + " " + d.Text
}

var unknownStatus = StatusDisplay{"❓", "Неизвестно"}

// AttendanceStatusDisplay возвращает emoji и текст для статуса посещаемости
func AttendanceStatusDisplay(status model.AttendanceStatus) StatusDisplay {
	displays := map[model.AttendanceStatus]StatusDisplay{
		model.AttendanceStatusPresent: {"✅", "Присутствовал"},
		model.AttendanceStatusLate:    {"🕒", "Опоздал"},
		model.AttendanceStatusAbsent:  {"❌", "Отсутствовал"},
		model.AttendanceStatusExcused: {"📄", "Уважительная причина"},
		model.AttendanceStatusPending: {"⏳", "Ожидает решения"},
	}

	if display, ok := displays[status]; ok {
		return display
	}
	return unknownStatus
}

// SessionStateDisplay возвращает emoji и текст для состояния занятия
func SessionStateDisplay(state model.SessionState) StatusDisplay {
	displays := map[model.SessionState]StatusDisplay{
		model.SessionStateScheduled: {"🗓", "Запланировано"},
		model.SessionStateOpen:      {"🟢", "Открыто"},
		model.SessionStateClosed:    {"⚫️", "Закрыто"},
	}

	if display, ok := displays[state]; ok {
		return display
	}
	return unknownStatus
}

// RequestStatusDisplay возвращает emoji и текст для статуса заявки
func RequestStatusDisplay(status model.RequestStatus) StatusDisplay {
	displays := map[model.RequestStatus]StatusDisplay{
		model.RequestStatusPending:  {"⏳", "На рассмотрении"},
		model.RequestStatusApproved: {"✅", "Одобрена"},
		model.RequestStatusRejected: {"🚫", "Отклонена"},
	}

	if display, ok := displays[status]; ok {
		return display
	}
	return unknownStatus
}

// FormatDateTime форматирует дату и время
func FormatDateTime(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}

// FormatTimeRange форматирует диапазон времени занятия
func FormatTimeRange(start, end time.Time) string {
	return fmt.Sprintf("%s-%s", FormatDateTime(start), end.Format("15:04"))
}

// FormatSession форматирует занятие. Код показывается только если withCode.
func FormatSession(s *model.ClassSession, withCode bool) string {
	text := fmt.Sprintf("%s Занятие #%d\n🕐 %s\n📊 %s",
		SessionStateDisplay(s.State).Emoji,
		s.ID,
		FormatTimeRange(s.StartAt, s.EndAt),
		SessionStateDisplay(s.State).Text,
	)
	if s.Room != "" {
		text += "\n🚪 Аудитория: " + s.Room
	}
	if s.UsesCode() {
		text += "\n🔐 Отметка по коду"
		if withCode && s.Code() != "" {
			text += ": " + s.Code()
		}
	} else {
		text += "\n👆 Свободная отметка"
	}
	return text
}

// FormatRecord форматирует запись посещаемости
func FormatRecord(r *model.AttendanceRecord, studentName string) string {
	return fmt.Sprintf("#%d %s: %s", r.ID, studentName, AttendanceStatusDisplay(r.Status))
}

// FormatExcuse форматирует заявку на уважительную причину
func FormatExcuse(r *model.ExcuseRequest) string {
	text := fmt.Sprintf("📝 Заявка #%d (занятие #%d)\n📊 %s\n🏷 %s\n💬 %s",
		r.ID, r.SessionID, RequestStatusDisplay(r.Status), r.ReasonCode, r.Reason)
	if n := len(r.FileURLs); n > 0 {
		text += fmt.Sprintf("\n📎 Файлов: %d", n)
	}
	if r.DecisionNote != "" {
		text += "\n🗒 " + r.DecisionNote
	}
	return text
}

// FormatAppeal форматирует апелляцию
func FormatAppeal(a *model.AppealRecord) string {
	text := fmt.Sprintf("⚖️ Апелляция #%d (запись #%d)\n📊 %s\n🎯 Запрошено: %s\n💬 %s",
		a.ID, a.RecordID, RequestStatusDisplay(a.Status), AttendanceStatusDisplay(a.RequestedStatus), a.Reason)
	if a.CorrectedStatus != nil {
		text += "\n✏️ Итог: " + AttendanceStatusDisplay(*a.CorrectedStatus).String()
	}
	if a.DecisionNote != "" {
		text += "\n🗒 " + a.DecisionNote
	}
	return text
}

// FormatCloseResult итог закрытия занятия со сверкой
func FormatCloseResult(result *service.CloseResult) string {
	text := fmt.Sprintf("🔒 Занятие #%d закрыто", result.Session.ID)
	if result.Reconcile == nil {
		return text
	}
	return text + fmt.Sprintf(
		"\n\n❌ Отмечено отсутствующими: %d\n⏳ Ожидавших решения: %d",
		len(result.Reconcile.Created),
		len(result.Reconcile.Resolved),
	)
}
