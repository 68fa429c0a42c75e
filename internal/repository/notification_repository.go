package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/Freeeeeet/attendance_bot/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationRepository outbox уведомлений: запись при событии, доставка поллером
type NotificationRepository struct {
	*base.Repository
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{Repository: base.NewRepository(pool)}
}

// Notify ставит уведомление в очередь для каждого получателя
func (r *NotificationRepository) Notify(ctx context.Context, userIDs []int64, msg model.NotificationMessage) error {
	if len(userIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO notifications (user_id, type, title, content, link)
		SELECT user_id, $2, $3, $4, $5
		FROM UNNEST($1::bigint[]) AS user_id
	`

	if _, err := r.ExecAffected(ctx, query, userIDs, msg.Type, msg.Title, msg.Content, msg.Link); err != nil {
		return fmt.Errorf("enqueue notifications: %w", err)
	}

	return nil
}

// ClaimUndelivered забирает пачку недоставленных уведомлений.
// Забранные строки не выдаются повторно в течение lease.
func (r *NotificationRepository) ClaimUndelivered(ctx context.Context, limit, maxAttempts int, lease time.Duration) ([]*model.Notification, error) {
	query := `
		WITH claimed AS (
			UPDATE notifications
			SET attempts = attempts + 1, claimed_at = NOW()
			WHERE id IN (
				SELECT id FROM notifications
				WHERE delivered_at IS NULL
				  AND attempts < $2
				  AND (claimed_at IS NULL OR claimed_at < NOW() - $3 * INTERVAL '1 second')
				ORDER BY id
				LIMIT $1
				FOR UPDATE SKIP LOCKED
			)
			RETURNING id, user_id, type, title, content, link, attempts, last_error, created_at
		)
		SELECT c.id, c.user_id, u.telegram_id, c.type, c.title, c.content, c.link, c.attempts, c.last_error, c.created_at
		FROM claimed c
		JOIN users u ON u.id = c.user_id
		ORDER BY c.id
	`

	rows, err := r.Query(ctx, query, limit, maxAttempts, lease.Seconds())
	if err != nil {
		return nil, fmt.Errorf("claim notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*model.Notification
	for rows.Next() {
		var n model.Notification
		err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.TelegramID,
			&n.Type,
			&n.Title,
			&n.Content,
			&n.Link,
			&n.Attempts,
			&n.LastError,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	return notifications, nil
}

// MarkDelivered отмечает уведомление доставленным
func (r *NotificationRepository) MarkDelivered(ctx context.Context, id int64) error {
	query := `UPDATE notifications SET delivered_at = NOW(), last_error = '' WHERE id = $1`

	if _, err := r.ExecAffected(ctx, query, id); err != nil {
		return fmt.Errorf("mark notification delivered: %w", err)
	}

	return nil
}

// MarkFailed сохраняет ошибку доставки и снимает захват для повторной попытки
func (r *NotificationRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	query := `UPDATE notifications SET last_error = $1, claimed_at = NULL WHERE id = $2`

	if _, err := r.ExecAffected(ctx, query, reason, id); err != nil {
		return fmt.Errorf("mark notification failed: %w", err)
	}

	return nil
}
