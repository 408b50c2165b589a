package domain

import "time"

// UserPreferences holds per-user notification settings
type UserPreferences struct {
	UserID           string    `json:"user_id"           db:"user_id"`
	Email            string    `json:"email"             db:"email"`
	BudgetAlerts     bool      `json:"budget_alerts"     db:"budget_alerts"`
	PreferredChannel string    `json:"preferred_channel" db:"preferred_channel"`
	UpdatedAt        time.Time `json:"updated_at"        db:"updated_at"`
}

// DefaultPreferences returns the settings assumed when a user has never
// saved preferences: alerts enabled on the console channel.
func DefaultPreferences(userID string) *UserPreferences {
	return &UserPreferences{
		UserID:           userID,
		BudgetAlerts:     true,
		PreferredChannel: "console",
	}
}
