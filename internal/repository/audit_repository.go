package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/Freeeeeet/attendance_bot/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditRepository struct {
	*base.Repository
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{Repository: base.NewRepository(pool)}
}

// Record пишет запись журнала аудита
func (r *AuditRepository) Record(ctx context.Context, entry model.AuditEntry) error {
	query := `
		INSERT INTO audit_logs (actor_id, action, target_type, target_id, old_value, new_value)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.ExecAffected(
		ctx, query,
		entry.ActorID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		entry.OldValue,
		entry.NewValue,
	)
	if err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}

	return nil
}

// GetByTarget получает историю изменений объекта
func (r *AuditRepository) GetByTarget(ctx context.Context, targetType string, targetID int64) ([]*model.AuditEntry, error) {
	query := `
		SELECT id, actor_id, action, target_type, target_id, old_value, new_value, created_at
		FROM audit_logs
		WHERE target_type = $1 AND target_id = $2
		ORDER BY id
	`

	rows, err := r.Query(ctx, query, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("get audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		err := rows.Scan(
			&e.ID,
			&e.ActorID,
			&e.Action,
			&e.TargetType,
			&e.TargetID,
			&e.OldValue,
			&e.NewValue,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}

	return entries, nil
}
