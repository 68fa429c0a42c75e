package state

import "github.com/Freeeeeet/attendance_bot/internal/model"

// UserState представляет текущее состояние пользователя в диалоге
type UserState string

const (
	StateNone UserState = "" // Нет активного состояния

	// Студент собирает вложения к объяснительной
	StateExcuseAttachments UserState = "excuse_attachments"
)

// ExcuseDraft объяснительная до отправки: текст уже введён, вложения докладываются сообщениями
type ExcuseDraft struct {
	SessionID  int64
	ReasonCode string
	Reason     string
	Files      []model.Upload
}

// Size суммарный размер вложений
func (d *ExcuseDraft) Size() int64 {
	var total int64
	for _, f := range d.Files {
		total += int64(len(f.Data))
	}
	return total
}

// UserData хранит временные данные пользователя во время диалога
type UserData struct {
	State  UserState
	Excuse *ExcuseDraft
}
