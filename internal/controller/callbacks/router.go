package callbacks

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/attendance_bot/internal/controller/common"
	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/Freeeeeet/attendance_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Handler обрабатывает нажатия inline кнопок: решения по заявкам и управление занятием
type Handler struct {
	userService    *service.UserService
	sessionService *service.SessionService
	excuseService  *service.ExcuseService
	appealService  *service.AppealService
	logger         *zap.Logger
}

func NewHandler(
	userService *service.UserService,
	sessionService *service.SessionService,
	excuseService *service.ExcuseService,
	appealService *service.AppealService,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		userService:    userService,
		sessionService: sessionService,
		excuseService:  excuseService,
		appealService:  appealService,
		logger:         logger,
	}
}

// result новое содержимое сообщения с кнопками и короткий ответ на нажатие
type result struct {
	text   string
	markup *models.InlineKeyboardMarkup
	toast  string
}

// HandleCallbackQuery точка входа для всех callback query
func (h *Handler) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	callback := update.CallbackQuery
	if callback == nil {
		return
	}

	res, err := h.process(ctx, callback.From.ID, callback.Data)
	if err != nil {
		h.logger.Warn("Callback failed",
			zap.String("data", callback.Data),
			zap.Int64("telegram_id", callback.From.ID),
			zap.Error(err),
		)
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}

	common.AnswerCallback(ctx, b, callback.ID, res.toast)

	msg := common.GetMessageFromCallback(callback)
	if msg == nil {
		return
	}

	params := &bot.EditMessageTextParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      res.text,
	}
	if res.markup != nil {
		params.ReplyMarkup = res.markup
	}
	if _, err := b.EditMessageText(ctx, params); err != nil {
		h.logger.Error("Failed to edit message", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	}
}

// process разбирает callback data и выполняет действие от имени пользователя
func (h *Handler) process(ctx context.Context, telegramID int64, data string) (*result, error) {
	action, err := common.ParseCallbackData(data)
	if err != nil {
		return nil, err
	}

	user, err := h.userService.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, common.ErrUserNotFound
	}
	actor := user.Principal()

	switch action.Kind {
	case common.CallbackExcuse:
		return h.decideExcuse(ctx, actor, action)
	case common.CallbackAppeal:
		return h.decideAppeal(ctx, actor, action)
	case common.CallbackSession:
		return h.manageSession(ctx, actor, action)
	}
	return nil, fmt.Errorf("%w: unknown kind %q", common.ErrInvalidFormat, action.Kind)
}

func decision(action string) (bool, error) {
	switch action {
	case common.ActionApprove:
		return true, nil
	case common.ActionReject:
		return false, nil
	}
	return false, fmt.Errorf("%w: unknown decision %q", common.ErrInvalidFormat, action)
}

func (h *Handler) decideExcuse(ctx context.Context, actor *model.Principal, action common.CallbackAction) (*result, error) {
	approve, err := decision(action.Action)
	if err != nil {
		return nil, err
	}

	excuse, err := h.excuseService.Decide(ctx, actor, action.ID, approve, "")
	if err != nil {
		return nil, err
	}

	return &result{
		text:  common.FormatExcuse(excuse),
		toast: common.RequestStatusDisplay(excuse.Status).String(),
	}, nil
}

func (h *Handler) decideAppeal(ctx context.Context, actor *model.Principal, action common.CallbackAction) (*result, error) {
	approve, err := decision(action.Action)
	if err != nil {
		return nil, err
	}

	appeal, err := h.appealService.Decide(ctx, actor, action.ID, approve, "", "")
	if err != nil {
		return nil, err
	}

	return &result{
		text:  common.FormatAppeal(appeal),
		toast: common.RequestStatusDisplay(appeal.Status).String(),
	}, nil
}

func (h *Handler) manageSession(ctx context.Context, actor *model.Principal, action common.CallbackAction) (*result, error) {
	var (
		session *model.ClassSession
		err     error
	)

	switch action.Action {
	case common.ActionOpen:
		session, err = h.sessionService.Open(ctx, actor, action.ID)
	case common.ActionCode:
		session, err = h.sessionService.RegenerateCode(ctx, actor, action.ID)
	case common.ActionClose:
		closed, err := h.sessionService.Close(ctx, actor, action.ID)
		if err != nil {
			return nil, err
		}
		return &result{text: common.FormatCloseResult(closed), toast: "🔒 Закрыто"}, nil
	default:
		return nil, fmt.Errorf("%w: unknown session action %q", common.ErrInvalidFormat, action.Action)
	}
	if err != nil {
		return nil, err
	}

	return &result{
		text:   common.FormatSession(session, true),
		markup: common.SessionKeyboard(session.IsOpen(), session.IsClosed(), session.UsesCode(), session.ID),
		toast:  common.SessionStateDisplay(session.State).String(),
	}, nil
}
