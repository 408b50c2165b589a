package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vuxmai/budgetwatch/internal/core/domain"
)

// NotificationRepo implements storage.NotificationRepository using PostgreSQL.
type NotificationRepo struct {
	db *DB
}

// NewNotificationRepo creates a new PostgreSQL notification repository.
func NewNotificationRepo(db *DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// Append adds a history entry. Entries are never mutated; the only
// delete path is the retention pruner.
func (r *NotificationRepo) Append(ctx context.Context, rec *domain.NotificationRecord) error {
	query := `
		INSERT INTO notification_history (
			notification_id, user_id, budget_id, category, threshold_type,
			spending, limit_amount, title, message, channel, sent_at, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.NotificationID, rec.UserID, rec.BudgetID, rec.Category,
		string(rec.ThresholdType), rec.Spending, rec.Limit,
		rec.Title, rec.Message, rec.Channel, rec.SentAt, string(rec.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to append notification record: %w", err)
	}
	return nil
}

// ListByUser returns the most recent history entries for a user.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.NotificationRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT notification_id, user_id, budget_id, category, threshold_type,
		       spending, limit_amount, title, message, channel, sent_at, status
		FROM notification_history
		WHERE user_id = $1
		ORDER BY sent_at DESC
		LIMIT $2
	`

	var recs []*domain.NotificationRecord
	if err := r.db.SelectContext(ctx, &recs, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list notification history: %w", err)
	}
	return recs, nil
}

// DeleteOlderThan drops history entries sent before the cutoff.
func (r *NotificationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM notification_history WHERE sent_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune notification history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}
