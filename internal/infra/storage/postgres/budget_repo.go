package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vuxmai/budgetwatch/internal/core/domain"
	"github.com/vuxmai/budgetwatch/internal/infra/storage"
)

// BudgetRepo implements storage.BudgetRepository using PostgreSQL.
type BudgetRepo struct {
	db *DB
}

// NewBudgetRepo creates a new PostgreSQL budget repository.
func NewBudgetRepo(db *DB) *BudgetRepo {
	return &BudgetRepo{db: db}
}

// Save saves a budget to the database.
func (r *BudgetRepo) Save(ctx context.Context, budget *domain.Budget) error {
	query := `
		INSERT INTO budgets (
			budget_id, user_id, name, amount, category,
			current_spending, percentage_used, last_calculated, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (budget_id) DO UPDATE SET
			name = EXCLUDED.name,
			amount = EXCLUDED.amount,
			category = EXCLUDED.category
	`

	_, err := r.db.ExecContext(ctx, query,
		budget.BudgetID, budget.UserID, budget.Name, budget.Amount,
		domain.NormalizeCategory(budget.Category),
		budget.CurrentSpending, budget.PercentageUsed, budget.LastCalculated,
	)
	if err != nil {
		return fmt.Errorf("failed to save budget: %w", err)
	}
	return nil
}

// GetByID retrieves a budget.
func (r *BudgetRepo) GetByID(ctx context.Context, userID, budgetID string) (*domain.Budget, error) {
	query := `
		SELECT budget_id, user_id, name, amount, category,
		       current_spending, percentage_used, last_calculated, created_at
		FROM budgets
		WHERE user_id = $1 AND budget_id = $2
	`

	var b domain.Budget
	if err := r.db.GetContext(ctx, &b, query, userID, budgetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}
	return &b, nil
}

// GetByUser retrieves all budgets for a user.
func (r *BudgetRepo) GetByUser(ctx context.Context, userID string) ([]*domain.Budget, error) {
	query := `
		SELECT budget_id, user_id, name, amount, category,
		       current_spending, percentage_used, last_calculated, created_at
		FROM budgets
		WHERE user_id = $1
		ORDER BY budget_id
	`

	var budgets []*domain.Budget
	if err := r.db.SelectContext(ctx, &budgets, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	return budgets, nil
}

// UpdateSpending persists recomputed spending fields.
func (r *BudgetRepo) UpdateSpending(ctx context.Context, budgetID string, spending, percentageUsed float64, calculatedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE budgets
		SET current_spending = $2, percentage_used = $3, last_calculated = $4
		WHERE budget_id = $1
	`, budgetID, spending, percentageUsed, calculatedAt)
	if err != nil {
		return fmt.Errorf("failed to update spending: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
