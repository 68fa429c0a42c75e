package handlers

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

func (h *Handlers) commandTable() map[string]commandFunc {
	return map[string]commandFunc{
		"help":          h.cmdHelp,
		"cancel":        h.cmdCancel,
		"sessions":      h.cmdSessions,
		"newsession":    h.cmdNewSession,
		"open":          h.cmdOpen,
		"close":         h.cmdClose,
		"code":          h.cmdCode,
		"mark":          h.cmdMark,
		"setstatus":     h.cmdSetStatus,
		"records":       h.cmdRecords,
		"myrecords":     h.cmdMyRecords,
		"excuse":        h.cmdExcuse,
		"submit":        h.cmdSubmit,
		"excuses":       h.cmdExcuses,
		"decide_excuse": h.cmdDecideExcuse,
		"appeal":        h.cmdAppeal,
		"appeals":       h.cmdAppeals,
		"decide_appeal": h.cmdDecideAppeal,
		"myrequests":    h.cmdMyRequests,
		"standing":      h.cmdStanding,
		"policy":        h.cmdPolicy,
		"newcourse":     h.cmdNewCourse,
		"enroll":        h.cmdEnroll,
		"setrole":       h.cmdSetRole,
		"whoami":        h.cmdWhoAmI,
	}
}

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	from := update.Message.From

	// Регистрируем пользователя
	user, err := h.userService.RegisterUser(ctx, from.ID, from.Username, from.FirstName, from.LastName)
	if err != nil {
		h.logger.Error("Failed to register user", zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Произошла ошибка при регистрации. Попробуйте позже.")
		return
	}

	welcomeText := fmt.Sprintf(
		"👋 Привет, %s!\n\n"+
			"Добро пожаловать в Attendance Bot - бот учёта посещаемости занятий.\n\n"+
			"Ваша роль: %s\n"+
			"Ваш Telegram ID: %d\n\n"+
			"Справка по командам: /help",
		user.DisplayName(),
		roleName(user.Role),
		user.TelegramID,
	)

	h.sendMessage(ctx, b, update.Message.Chat.ID, welcomeText)
}

// HandleCommand единая точка входа для команд, кроме /start
func (h *Handlers) HandleCommand(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	name, args := parseCommand(update.Message.Text)
	if name == "" {
		h.HandleMessage(ctx, b, update)
		return
	}
	if name == "start" {
		h.HandleStart(ctx, b, update)
		return
	}

	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	req := &request{user: user, chatID: update.Message.Chat.ID, args: args}
	h.sendReplies(ctx, b, req.chatID, h.dispatch(ctx, name, req))
}

// dispatch выполняет команду и превращает ошибку в ответ пользователю
func (h *Handlers) dispatch(ctx context.Context, name string, req *request) []reply {
	cmd, ok := h.commands[name]
	if !ok {
		return say("❓ Неизвестная команда. Список команд: /help")
	}

	replies, err := cmd(ctx, req)
	if err != nil {
		return say(h.errorText(name, req.user, err))
	}
	return replies
}

func (h *Handlers) cmdHelp(_ context.Context, req *request) ([]reply, error) {
	return say(helpText(req.user.Role)), nil
}

func (h *Handlers) cmdWhoAmI(_ context.Context, req *request) ([]reply, error) {
	return say(fmt.Sprintf("👤 %s\nРоль: %s\nTelegram ID: %d",
		req.user.DisplayName(), roleName(req.user.Role), req.user.TelegramID)), nil
}

// cmdCancel отменяет текущий диалог
func (h *Handlers) cmdCancel(_ context.Context, req *request) ([]reply, error) {
	if h.stateManager.GetState(req.user.TelegramID) == "" {
		return say("ℹ️ Нет активного действия для отмены"), nil
	}
	h.stateManager.ClearState(req.user.TelegramID)
	return say("❌ Действие отменено"), nil
}

func roleName(role model.Role) string {
	switch role {
	case model.RoleAdmin:
		return "👑 Администратор"
	case model.RoleInstructor:
		return "🎓 Преподаватель"
	case model.RoleStudent:
		return "📚 Студент"
	}
	return string(role)
}

func helpText(role model.Role) string {
	student := "Для студентов:\n" +
		"/mark <занятие> [код] - Отметиться на занятии\n" +
		"/myrecords <курс> - Мои отметки по курсу\n" +
		"/excuse <занятие> <SICK|FAMILY|OFFICIAL|OTHER> <текст> - Объяснительная\n" +
		"/submit - Отправить объяснительную\n" +
		"/appeal <запись> <статус> <текст> - Оспорить отметку\n" +
		"/myrequests - Мои заявки\n" +
		"/standing <курс> - Мой итог по курсу\n"

	manager := "Для преподавателей:\n" +
		"/sessions <курс> - Занятия курса\n" +
		"/newsession <курс> <direct|code> <2006-01-02T15:04> <минуты> [аудитория]\n" +
		"/open <занятие> - Открыть отметку\n" +
		"/close <занятие> - Закрыть занятие\n" +
		"/code <занятие> - Новый код\n" +
		"/mark <занятие> <telegram_id> <статус> - Отметить студента\n" +
		"/setstatus <запись> <статус> - Исправить отметку\n" +
		"/records <занятие> - Отметки занятия\n" +
		"/excuses <курс> - Объяснительные на рассмотрении\n" +
		"/decide_excuse <id> <approve|reject> [комментарий]\n" +
		"/appeals <курс> - Апелляции на рассмотрении\n" +
		"/decide_appeal <id> <approve|reject> [статус] [комментарий]\n" +
		"/standing <курс> [telegram_id] - Итоги по курсу\n" +
		"/policy <курс> [max_absent late_to_absent] - Политика посещаемости\n" +
		"/enroll <курс> <telegram_id> - Записать студента\n"

	admin := "Для администратора:\n" +
		"/newcourse <код> <telegram_id преподавателя> <название>\n" +
		"/setrole <telegram_id> <ADMIN|INSTRUCTOR|STUDENT>\n"

	header := "📚 Справка по командам:\n\n/start - Регистрация\n/whoami - Мой профиль\n/cancel - Отменить действие\n\n"

	switch role {
	case model.RoleAdmin:
		return header + manager + "\n" + admin
	case model.RoleInstructor:
		return header + manager
	default:
		return header + student + "\n/sessions <курс> - Занятия курса"
	}
}
