package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/attendance_bot/internal/controller/common"
	"github.com/Freeeeeet/attendance_bot/internal/controller/state"
	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/Freeeeeet/attendance_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// attachment файл из входящего сообщения, ещё не скачанный
type attachment struct {
	fileID   string
	filename string
	size     int64
}

// cmdExcuse /excuse <занятие> <код причины> <текст>; начинает сбор вложений
func (h *Handlers) cmdExcuse(_ context.Context, req *request) ([]reply, error) {
	if len(req.args) < 3 {
		return nil, usage("/excuse <занятие> <SICK|FAMILY|OFFICIAL|OTHER> <текст>")
	}

	sessionID, err := argID(req.args, 0, "session_id")
	if err != nil {
		return nil, err
	}

	h.stateManager.StartExcuse(req.user.TelegramID, &state.ExcuseDraft{
		SessionID:  sessionID,
		ReasonCode: strings.ToUpper(req.args[1]),
		Reason:     restFrom(req.args, 2),
	})

	return say(fmt.Sprintf(
		"📝 Объяснительная к занятию #%d\n\n"+
			"📎 Прикрепите до %d файлов (PDF, JPEG, PNG) отдельными сообщениями.\n"+
			"Когда будете готовы, отправьте /submit\n"+
			"Отмена: /cancel",
		sessionID, service.MaxAttachments,
	)), nil
}

// cmdSubmit отправляет черновик объяснительной
func (h *Handlers) cmdSubmit(ctx context.Context, req *request) ([]reply, error) {
	draft, ok := h.stateManager.TakeExcuse(req.user.TelegramID)
	if !ok {
		return say("ℹ️ Нет объяснительной для отправки. Начните с /excuse"), nil
	}

	excuse, err := h.excuseService.Submit(ctx, req.actor(), service.ExcuseInput{
		SessionID:  draft.SessionID,
		ReasonCode: draft.ReasonCode,
		Reason:     draft.Reason,
		Files:      draft.Files,
	})
	if err != nil {
		return nil, err
	}

	return say("✅ Объяснительная отправлена преподавателю\n\n" + common.FormatExcuse(excuse)), nil
}

// attach скачивает файл и добавляет его к черновику
func (h *Handlers) attach(ctx context.Context, req *request, a attachment) ([]reply, error) {
	if h.stateManager.GetState(req.user.TelegramID) != state.StateExcuseAttachments {
		return say("ℹ️ Чтобы приложить файл, начните объяснительную: /excuse"), nil
	}
	if a.size > h.maxUploadBytes {
		return nil, fmt.Errorf("%s: %w", a.filename, model.ErrFileTooLarge)
	}

	// Лимит +1 байт, чтобы превышение дошло до проверки вложений
	data, err := h.downloader.Download(ctx, a.fileID, h.maxUploadBytes+1)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", a.filename, err)
	}

	count, ok := h.stateManager.AddAttachment(req.user.TelegramID, model.Upload{Filename: a.filename, Data: data}, service.MaxAttachments)
	if !ok {
		return say(fmt.Sprintf("⚠️ Можно приложить не более %d файлов. Отправьте /submit", service.MaxAttachments)), nil
	}

	return say(fmt.Sprintf("📎 Файл добавлен (%d/%d). Ещё файл или /submit", count, service.MaxAttachments)), nil
}

// HandleMessage обрабатывает сообщения без команды: вложения к объяснительной
func (h *Handlers) HandleMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	a, hasFile := messageAttachment(msg)
	if !hasFile {
		if h.stateManager.GetState(msg.From.ID) == state.StateExcuseAttachments {
			h.sendMessage(ctx, b, msg.Chat.ID, "📎 Пришлите файл или отправьте /submit. Отмена: /cancel")
		}
		return
	}

	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	req := &request{user: user, chatID: msg.Chat.ID}
	replies, err := h.attach(ctx, req, a)
	if err != nil {
		replies = say(h.errorText("attach", user, err))
	}
	h.sendReplies(ctx, b, req.chatID, replies)
}

func messageAttachment(msg *models.Message) (attachment, bool) {
	if msg.Document != nil {
		name := msg.Document.FileName
		if name == "" {
			name = "document"
		}
		return attachment{fileID: msg.Document.FileID, filename: name, size: int64(msg.Document.FileSize)}, true
	}
	if n := len(msg.Photo); n > 0 {
		// Последний размер самый крупный
		photo := msg.Photo[n-1]
		return attachment{fileID: photo.FileID, filename: photo.FileUniqueID + ".jpg", size: int64(photo.FileSize)}, true
	}
	return attachment{}, false
}

// cmdExcuses /excuses <курс>: объяснительные на рассмотрении с кнопками решения
func (h *Handlers) cmdExcuses(ctx context.Context, req *request) ([]reply, error) {
	courseID, err := argID(req.args, 0, "course_id")
	if err != nil {
		return nil, usage("/excuses <курс>")
	}

	pending, err := h.excuseService.PendingForCourse(ctx, req.actor(), courseID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return say("📭 Нет объяснительных на рассмотрении"), nil
	}

	replies := make([]reply, 0, len(pending))
	for _, r := range pending {
		student, err := h.userService.GetByID(ctx, r.StudentID)
		if err != nil {
			return nil, err
		}
		text := "👤 " + displayName(student) + "\n" + common.FormatExcuse(r)
		for _, url := range r.FileURLs {
			text += "\n🔗 " + url
		}
		replies = append(replies, reply{
			text:   text,
			markup: common.DecisionKeyboard(common.CallbackExcuse, r.ID),
		})
	}
	return replies, nil
}

// cmdDecideExcuse /decide_excuse <id> <approve|reject> [комментарий]
func (h *Handlers) cmdDecideExcuse(ctx context.Context, req *request) ([]reply, error) {
	if len(req.args) < 2 {
		return nil, usage("/decide_excuse <id> <approve|reject> [комментарий]")
	}

	requestID, err := argID(req.args, 0, "request_id")
	if err != nil {
		return nil, err
	}
	approve, err := parseDecision(req.args[1])
	if err != nil {
		return nil, err
	}

	excuse, err := h.excuseService.Decide(ctx, req.actor(), requestID, approve, restFrom(req.args, 2))
	if err != nil {
		return nil, err
	}

	h.logger.Debug("Excuse decided via command", zap.Int64("request_id", excuse.ID), zap.Bool("approve", approve))
	return say("🧾 Решение принято\n\n" + common.FormatExcuse(excuse)), nil
}

// cmdMyRequests объяснительные и апелляции текущего студента
func (h *Handlers) cmdMyRequests(ctx context.Context, req *request) ([]reply, error) {
	excuses, err := h.excuseService.MyRequests(ctx, req.actor())
	if err != nil {
		return nil, err
	}
	appeals, err := h.appealService.MyAppeals(ctx, req.actor())
	if err != nil {
		return nil, err
	}

	if len(excuses) == 0 && len(appeals) == 0 {
		return say("📭 У вас нет заявок"), nil
	}

	replies := make([]reply, 0, len(excuses)+len(appeals))
	for _, r := range excuses {
		replies = append(replies, reply{text: common.FormatExcuse(r)})
	}
	for _, a := range appeals {
		replies = append(replies, reply{text: common.FormatAppeal(a)})
	}
	return replies, nil
}
