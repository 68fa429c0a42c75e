package app

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"go.uber.org/zap"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultBatchSize    = 50
	maxDeliveryAttempts = 5
	claimLease          = time.Minute
)

// NotificationQueue outbox уведомлений
type NotificationQueue interface {
	ClaimUndelivered(ctx context.Context, limit, maxAttempts int, lease time.Duration) ([]*model.Notification, error)
	MarkDelivered(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
}

// Sender доставляет одно уведомление пользователю
type Sender interface {
	Send(ctx context.Context, n *model.Notification) error
}

// Dispatcher периодически забирает уведомления из outbox и отправляет их
type Dispatcher struct {
	queue     NotificationQueue
	sender    Sender
	interval  time.Duration
	batchSize int
	logger    *zap.Logger
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewDispatcher создаёт поллер уведомлений
func NewDispatcher(queue NotificationQueue, sender Sender, interval time.Duration, batchSize int, logger *zap.Logger) *Dispatcher {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &Dispatcher{
		queue:     queue,
		sender:    sender,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Start запускает фоновую доставку
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting notification dispatcher", zap.Duration("interval", d.interval))

	d.wg.Add(1)
	go d.run(ctx)
}

// Stop останавливает доставку и ждёт завершения текущей пачки
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.logger.Info("Stopping notification dispatcher")
		close(d.stopChan)
	})
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.DeliverPending(ctx)
		case <-d.stopChan:
			d.logger.Info("Notification dispatcher stopped")
			return
		case <-ctx.Done():
			d.logger.Info("Notification dispatcher cancelled")
			return
		}
	}
}

// DeliverPending отправляет одну пачку и возвращает число доставленных уведомлений
func (d *Dispatcher) DeliverPending(ctx context.Context) int {
	batch, err := d.queue.ClaimUndelivered(ctx, d.batchSize, maxDeliveryAttempts, claimLease)
	if err != nil {
		d.logger.Error("Failed to claim notifications", zap.Error(err))
		return 0
	}

	delivered := 0
	for _, n := range batch {
		if err := d.sender.Send(ctx, n); err != nil {
			d.logger.Warn("Failed to deliver notification",
				zap.Int64("notification_id", n.ID),
				zap.Int64("user_id", n.UserID),
				zap.Int("attempt", n.Attempts),
				zap.Error(err),
			)
			if err := d.queue.MarkFailed(ctx, n.ID, err.Error()); err != nil {
				d.logger.Error("Failed to mark notification failed", zap.Int64("notification_id", n.ID), zap.Error(err))
			}
			continue
		}

		if err := d.queue.MarkDelivered(ctx, n.ID); err != nil {
			d.logger.Error("Failed to mark notification delivered", zap.Int64("notification_id", n.ID), zap.Error(err))
			continue
		}
		delivered++
	}

	if len(batch) > 0 {
		d.logger.Debug("Notification batch processed",
			zap.Int("claimed", len(batch)),
			zap.Int("delivered", delivered),
		)
	}

	return delivered
}
