package common

import (
	"fmt"

	"github.com/go-telegram/bot/models"
)

// Префиксы callback data
const (
	CallbackExcuse  = "excuse"
	CallbackAppeal  = "appeal"
	CallbackSession = "session"
)

// Действия callback data
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionOpen    = "open"
	ActionClose   = "close"
	ActionCode    = "code"
)

// KeyboardBuilder упрощает создание inline клавиатур
type KeyboardBuilder struct {
	rows [][]models.InlineKeyboardButton
}

func NewKeyboard() *KeyboardBuilder {
	return &KeyboardBuilder{rows: make([][]models.InlineKeyboardButton, 0)}
}

// Row добавляет новый ряд кнопок
func (b *KeyboardBuilder) Row(buttons ...models.InlineKeyboardButton) *KeyboardBuilder {
	if len(buttons) > 0 {
		b.rows = append(b.rows, buttons)
	}
	return b
}

// Build создаёт финальную клавиатуру
func (b *KeyboardBuilder) Build() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: b.rows}
}

// Button создаёт кнопку
func Button(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: callbackData}
}

// CallbackData собирает строку вида "excuse:approve:12"
func CallbackData(kind, action string, id int64) string {
	return fmt.Sprintf("%s:%s:%d", kind, action, id)
}

// DecisionKeyboard кнопки одобрения и отклонения заявки
func DecisionKeyboard(kind string, id int64) *models.InlineKeyboardMarkup {
	return NewKeyboard().Row(
		Button("✅ Одобрить", CallbackData(kind, ActionApprove, id)),
		Button("❌ Отклонить", CallbackData(kind, ActionReject, id)),
	).Build()
}

// SessionKeyboard кнопки управления занятием в зависимости от состояния
func SessionKeyboard(open, closed bool, usesCode bool, id int64) *models.InlineKeyboardMarkup {
	kb := NewKeyboard()
	switch {
	case closed:
		return nil
	case open:
		if usesCode {
			kb.Row(Button("🔄 Новый код", CallbackData(CallbackSession, ActionCode, id)))
		}
		kb.Row(Button("🔒 Закрыть", CallbackData(CallbackSession, ActionClose, id)))
	default:
		kb.Row(Button("🟢 Открыть", CallbackData(CallbackSession, ActionOpen, id)))
	}
	return kb.Build()
}
