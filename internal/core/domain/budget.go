package domain

import (
	"math"
	"time"
)

// Budget represents a per-user spending limit for a category
type Budget struct {
	BudgetID        string    `json:"budget_id"        db:"budget_id"`
	UserID          string    `json:"user_id"          db:"user_id"`
	Name            string    `json:"name"             db:"name"`
	Amount          float64   `json:"amount"           db:"amount"`
	Category        string    `json:"category"         db:"category"`
	CurrentSpending float64   `json:"current_spending" db:"current_spending"`
	PercentageUsed  float64   `json:"percentage_used"  db:"percentage_used"`
	LastCalculated  time.Time `json:"last_calculated"  db:"last_calculated"`
	CreatedAt       time.Time `json:"created_at"       db:"created_at"`
}

// ThresholdType classifies how far spending has crossed the budget limit
type ThresholdType string

const (
	ThresholdWarning  ThresholdType = "warning"  // spending >= 80% of limit
	ThresholdExceeded ThresholdType = "exceeded" // spending >= 100% of limit
)

// ThresholdEvent is the transient decision artifact produced by the
// threshold engine. It is not persisted; at most one is emitted per
// budget per recomputation pass.
type ThresholdEvent struct {
	UserID          string        `json:"user_id"`
	BudgetID        string        `json:"budget_id"`
	Category        string        `json:"category"`
	CurrentSpending float64       `json:"current_spending"`
	Limit           float64       `json:"limit"`
	PercentageUsed  float64       `json:"percentage_used"`
	ThresholdType   ThresholdType `json:"threshold_type"`
	Timestamp       time.Time     `json:"timestamp"`
}

// Round2 rounds a value to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
