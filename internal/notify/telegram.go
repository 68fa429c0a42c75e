package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// MessageSender часть *bot.Bot, нужная для доставки
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramSender доставляет уведомления личным сообщением в Telegram
type TelegramSender struct {
	bot MessageSender
}

func NewTelegramSender(b MessageSender) *TelegramSender {
	return &TelegramSender{bot: b}
}

// Send отправляет уведомление на telegram_id получателя
func (s *TelegramSender) Send(ctx context.Context, n *model.Notification) error {
	if n.TelegramID == 0 {
		return fmt.Errorf("notification %d: recipient has no telegram id", n.ID)
	}

	_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.TelegramID,
		Text:   Render(n),
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

var typeEmoji = map[string]string{
	model.NotificationSessionOpened: "🟢",
	model.NotificationStatusChanged: "✏️",
	model.NotificationExcuseCreated: "📝",
	model.NotificationExcuseDecided: "📬",
	model.NotificationAppealCreated: "⚖️",
	model.NotificationAppealDecided: "📬",
}

// Render текст сообщения: заголовок, содержание и подсказка-команда
func Render(n *model.Notification) string {
	var sb strings.Builder

	if emoji, ok := typeEmoji[n.Type]; ok {
		sb.WriteString(emoji)
		sb.WriteString(" ")
	}
	sb.WriteString(n.Title)

	if content := strings.TrimSpace(n.Content); content != "" {
		sb.WriteString("\n\n")
		sb.WriteString(content)
	}
	if n.Link != "" {
		sb.WriteString("\n\n👉 ")
		sb.WriteString(n.Link)
	}

	return sb.String()
}
