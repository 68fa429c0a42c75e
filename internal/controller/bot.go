package controller

import (
	"context"
	"strings"

	"github.com/Freeeeeet/attendance_bot/internal/controller/callbacks"
	"github.com/Freeeeeet/attendance_bot/internal/controller/handlers"
	"github.com/Freeeeeet/attendance_bot/internal/controller/state"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type BotController struct {
	bot             *bot.Bot
	handlers        *handlers.Handlers
	callbackHandler *callbacks.Handler
	logger          *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	svc handlers.Services,
	maxUploadBytes int64,
	logger *zap.Logger,
) *BotController {
	// Создаём менеджер состояний
	stateManager := state.NewManager()

	// Создаём обработчики команд
	cmdHandlers := handlers.NewHandlers(
		svc,
		stateManager,
		handlers.NewTelegramFiles(botInstance),
		maxUploadBytes,
		logger,
	)

	// Создаём callback handler с зависимостями
	callbackHandler := callbacks.NewHandler(
		svc.Users,
		svc.Sessions,
		svc.Excuses,
		svc.Appeals,
		logger,
	)

	return &BotController{
		bot:             botInstance,
		handlers:        cmdHandlers,
		callbackHandler: callbackHandler,
		logger:          logger,
	}
}

// isPlainMessage сообщение без команды: текст, фото или документ
func isPlainMessage(update *models.Update) bool {
	msg := update.Message
	if msg == nil {
		return false
	}
	return !strings.HasPrefix(msg.Text, "/")
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	// Все команды разбирает единый роутер, чтобы /appeal не перехватывал /appeals
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/", bot.MatchTypePrefix, c.handlers.HandleCommand)

	// Вложения к объяснительной и прочие сообщения без команды
	c.bot.RegisterHandlerMatchFunc(isPlainMessage, c.handlers.HandleMessage)

	// Обработчик нажатий на inline кнопки
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, c.callbackHandler.HandleCallbackQuery)

	// Устанавливаем меню команд
	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Начать работу с ботом"},
		{Command: "help", Description: "❓ Справка по командам"},
		{Command: "mark", Description: "✅ Отметиться на занятии"},
		{Command: "myrecords", Description: "📋 Мои отметки"},
		{Command: "excuse", Description: "📝 Объяснительная"},
		{Command: "myrequests", Description: "📨 Мои заявки"},
		{Command: "standing", Description: "📊 Итоги по курсу"},
		{Command: "sessions", Description: "🗓 Занятия курса"},
		{Command: "excuses", Description: "📥 Объяснительные (преподаватель)"},
		{Command: "appeals", Description: "⚖️ Апелляции (преподаватель)"},
		{Command: "cancel", Description: "❌ Отменить действие"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})

	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start запускает бота и блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
	return nil
}
