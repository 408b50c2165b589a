package domain

import (
	"strings"
	"time"
)

// Transaction represents a recorded income or expense
type Transaction struct {
	TransactionID string          `json:"transaction_id" db:"transaction_id"`
	UserID        string          `json:"user_id"        db:"user_id"`
	Amount        float64         `json:"amount"         db:"amount"` // always stored positive, sign implied by Type
	Category      string          `json:"category"       db:"category"`
	Type          TransactionType `json:"type"           db:"type"`
	Description   string          `json:"description"    db:"description"`
	CreatedAt     time.Time       `json:"created_at"     db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"     db:"updated_at"`
}

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// NormalizeCategory lowercases and trims a category for matching and storage.
func NormalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
