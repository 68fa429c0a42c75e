package handlers

import (
	"context"
	"errors"

	"github.com/Freeeeeet/attendance_bot/internal/controller/common"
	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// requireUser проверяет что пользователь существует
// Возвращает user и true если OK, nil и false если нет
func (h *Handlers) requireUser(ctx context.Context, b *bot.Bot, update *models.Update) (*model.User, bool) {
	if update.Message == nil || update.Message.From == nil {
		return nil, false
	}

	telegramID := update.Message.From.ID
	user, err := h.userService.GetByTelegramID(ctx, telegramID)

	if err != nil {
		h.logger.Error("Failed to get user", zap.Int64("telegram_id", telegramID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Произошла ошибка. Попробуйте позже.")
		return nil, false
	}

	if user == nil {
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Пользователь не найден. Используйте /start для регистрации.")
		return nil, false
	}

	return user, true
}

// errorText переводит ошибку команды в сообщение; неожиданные ошибки логируются
func (h *Handlers) errorText(command string, user *model.User, err error) string {
	var uerr *usageError
	if errors.As(err, &uerr) {
		return "ℹ️ Использование: " + uerr.usage
	}

	msg := common.ErrorMessage(err)
	if msg == common.GenericErrorMessage {
		h.logger.Error("Command failed",
			zap.String("command", command),
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)
	} else {
		h.logger.Debug("Command rejected",
			zap.String("command", command),
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)
	}
	return msg
}

// sendReplies отправляет ответы команды по порядку
func (h *Handlers) sendReplies(ctx context.Context, b *bot.Bot, chatID int64, replies []reply) {
	for _, r := range replies {
		params := &bot.SendMessageParams{
			ChatID: chatID,
			Text:   r.text,
		}
		if r.markup != nil {
			params.ReplyMarkup = r.markup
		}
		if _, err := b.SendMessage(ctx, params); err != nil {
			h.logger.Error("Failed to send message",
				zap.Int64("chat_id", chatID),
				zap.Error(err),
			)
		}
	}
}

// sendError отправляет сообщение об ошибке и логирует если не удалось
func (h *Handlers) sendError(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send error message",
			zap.Int64("chat_id", chatID),
			zap.String("text", text),
			zap.Error(err),
		)
	}
}

// sendMessage отправляет сообщение и логирует если не удалось
func (h *Handlers) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	h.sendReplies(ctx, b, chatID, say(text))
}
