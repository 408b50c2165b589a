package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vuxmai/budgetwatch/internal/core/domain"
)

var (
	// ErrNotFound is returned when a requested record doesn't exist
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned when a conditional insert collides
	ErrAlreadyExists = errors.New("record already exists")
)

// TransactionRepository handles transaction storage operations
type TransactionRepository interface {
	// Save inserts or updates a transaction
	Save(ctx context.Context, tx *domain.Transaction) error

	// GetByID retrieves a transaction
	GetByID(ctx context.Context, userID, transactionID string) (*domain.Transaction, error)

	// Delete removes a transaction
	Delete(ctx context.Context, userID, transactionID string) error

	// SumExpensesByCategory returns the total expense amount for a
	// user+category. This is the full rescan the threshold engine
	// relies on for self-healing recovery.
	SumExpensesByCategory(ctx context.Context, userID, category string) (float64, error)
}

// BudgetRepository handles budget storage operations
type BudgetRepository interface {
	// Save inserts or updates a budget
	Save(ctx context.Context, budget *domain.Budget) error

	// GetByID retrieves a budget
	GetByID(ctx context.Context, userID, budgetID string) (*domain.Budget, error)

	// GetByUser retrieves all budgets belonging to a user
	GetByUser(ctx context.Context, userID string) ([]*domain.Budget, error)

	// UpdateSpending persists the recomputed spending fields
	UpdateSpending(ctx context.Context, budgetID string, spending, percentageUsed float64, calculatedAt time.Time) error
}

// NotificationRepository stores append-only notification history
type NotificationRepository interface {
	// Append adds a history entry; entries are never mutated
	Append(ctx context.Context, rec *domain.NotificationRecord) error

	// ListByUser returns the most recent entries for a user
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.NotificationRecord, error)

	// DeleteOlderThan drops entries sent before the cutoff, returning
	// how many were removed. Used by the retention worker only.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// PreferenceRepository resolves per-user notification settings
type PreferenceRepository interface {
	// GetPreferences returns a user's settings, or ErrNotFound when the
	// user never saved any
	GetPreferences(ctx context.Context, userID string) (*domain.UserPreferences, error)
}

// DeadLetterRepository is the durable dead-letter queue
type DeadLetterRepository interface {
	// Add enqueues a dead letter
	Add(ctx context.Context, dl *domain.DeadLetter) error

	// GetNext retrieves the next dead letter to retry (lowest retry count first)
	GetNext(ctx context.Context) (*domain.DeadLetter, error)

	// IncrementRetry bumps retry count and last attempt time
	IncrementRetry(ctx context.Context, id string) error

	// MarkResolved removes a successfully replayed dead letter
	MarkResolved(ctx context.Context, id string) error

	// MarkIgnored takes a dead letter out of the replay queue while
	// keeping its record visible via GetAll. Used for entries that can
	// never succeed (validation failures, exhausted retries); without
	// this they would sit at the queue head forever and starve every
	// retryable entry behind them.
	MarkIgnored(ctx context.Context, id string) error

	// GetAll retrieves all pending dead letters
	GetAll(ctx context.Context) ([]*domain.DeadLetter, error)

	// Count returns the queue depth
	Count(ctx context.Context) (int, error)
}
