package common

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// CallbackAction разобранная callback data
type CallbackAction struct {
	Kind   string
	Action string
	ID     int64
}

// ParseCallbackData разбирает строку вида "excuse:approve:12"
func ParseCallbackData(data string) (CallbackAction, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return CallbackAction{}, fmt.Errorf("%w: %q", ErrInvalidFormat, data)
	}

	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || id <= 0 {
		return CallbackAction{}, fmt.Errorf("%w: %q", ErrInvalidFormat, data)
	}

	return CallbackAction{Kind: parts[0], Action: parts[1], ID: id}, nil
}

// AnswerCallback отвечает на callback query (без alert)
func AnswerCallback(ctx context.Context, b *bot.Bot, callbackID string, text string) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       false,
	})
}

// AnswerCallbackAlert отвечает на callback query с alert (всплывающее окно)
func AnswerCallbackAlert(ctx context.Context, b *bot.Bot, callbackID string, text string) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       true,
	})
}

// GetMessageFromCallback извлекает сообщение из callback query
func GetMessageFromCallback(callback *models.CallbackQuery) *models.Message {
	if callback.Message.Message != nil {
		return callback.Message.Message
	}
	return nil
}
