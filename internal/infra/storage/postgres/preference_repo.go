package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vuxmai/budgetwatch/internal/core/domain"
	"github.com/vuxmai/budgetwatch/internal/infra/storage"
)

// PreferenceRepo implements storage.PreferenceRepository using PostgreSQL.
type PreferenceRepo struct {
	db *DB
}

// NewPreferenceRepo creates a new PostgreSQL preference repository.
func NewPreferenceRepo(db *DB) *PreferenceRepo {
	return &PreferenceRepo{db: db}
}

// GetPreferences returns a user's notification settings.
func (r *PreferenceRepo) GetPreferences(ctx context.Context, userID string) (*domain.UserPreferences, error) {
	query := `
		SELECT user_id, email, budget_alerts, preferred_channel, updated_at
		FROM user_preferences
		WHERE user_id = $1
	`

	var prefs domain.UserPreferences
	if err := r.db.GetContext(ctx, &prefs, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	return &prefs, nil
}

// SavePreferences inserts or updates a user's settings.
func (r *PreferenceRepo) SavePreferences(ctx context.Context, prefs *domain.UserPreferences) error {
	query := `
		INSERT INTO user_preferences (user_id, email, budget_alerts, preferred_channel, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email,
			budget_alerts = EXCLUDED.budget_alerts,
			preferred_channel = EXCLUDED.preferred_channel,
			updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query,
		prefs.UserID, prefs.Email, prefs.BudgetAlerts, prefs.PreferredChannel,
	)
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}
