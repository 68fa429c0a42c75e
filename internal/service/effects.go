package service

import (
	"context"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"go.uber.org/zap"
)

type notification struct {
	userIDs []int64
	msg     model.NotificationMessage
}

// Effects собирает побочные эффекты операции; они выполняются только после коммита
type Effects struct {
	notifications []notification
	audits        []model.AuditEntry
}

// Notify добавляет уведомление для получателей
func (e *Effects) Notify(userIDs []int64, msg model.NotificationMessage) {
	if len(userIDs) == 0 {
		return
	}
	e.notifications = append(e.notifications, notification{userIDs: userIDs, msg: msg})
}

// Audit добавляет запись аудита
func (e *Effects) Audit(entry model.AuditEntry) {
	e.audits = append(e.audits, entry)
}

// Len возвращает количество накопленных эффектов
func (e *Effects) Len() int {
	return len(e.notifications) + len(e.audits)
}

// EffectRunner выполняет эффекты best-effort: ошибки логируются и не возвращаются
type EffectRunner struct {
	notifier NotificationSink
	auditor  AuditSink
	logger   *zap.Logger
}

func NewEffectRunner(notifier NotificationSink, auditor AuditSink, logger *zap.Logger) *EffectRunner {
	return &EffectRunner{
		notifier: notifier,
		auditor:  auditor,
		logger:   logger,
	}
}

// Run выполняет аудит, затем уведомления
func (r *EffectRunner) Run(ctx context.Context, effects *Effects) {
	if effects == nil {
		return
	}

	for _, entry := range effects.audits {
		if err := r.auditor.Record(ctx, entry); err != nil {
			r.logger.Error("Failed to record audit entry",
				zap.String("action", entry.Action),
				zap.String("target_type", entry.TargetType),
				zap.Int64("target_id", entry.TargetID),
				zap.Error(err),
			)
		}
	}

	for _, n := range effects.notifications {
		if err := r.notifier.Notify(ctx, n.userIDs, n.msg); err != nil {
			r.logger.Error("Failed to enqueue notification",
				zap.String("type", n.msg.Type),
				zap.Int("recipients", len(n.userIDs)),
				zap.Error(err),
			)
		}
	}
}

// decisionWord решение по заявке в тексте уведомления
func decisionWord(status model.RequestStatus) string {
	if status == model.RequestStatusApproved {
		return "одобрена"
	}
	return "отклонена"
}
