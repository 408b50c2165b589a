package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vuxmai/budgetwatch/internal/core/domain"
	"github.com/vuxmai/budgetwatch/internal/infra/storage"
)

// TxRepo implements storage.TransactionRepository using PostgreSQL.
type TxRepo struct {
	db *DB
}

// NewTxRepo creates a new PostgreSQL transaction repository.
func NewTxRepo(db *DB) *TxRepo {
	return &TxRepo{db: db}
}

// Save saves a transaction to the database.
func (r *TxRepo) Save(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (
			transaction_id, user_id, amount, category, type, description, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (user_id, transaction_id) DO UPDATE SET
			amount = EXCLUDED.amount,
			category = EXCLUDED.category,
			type = EXCLUDED.type,
			description = EXCLUDED.description,
			updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query,
		tx.TransactionID, tx.UserID, tx.Amount,
		domain.NormalizeCategory(tx.Category), string(tx.Type),
		tx.Description, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction.
func (r *TxRepo) GetByID(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	query := `
		SELECT transaction_id, user_id, amount, category, type, description, created_at, updated_at
		FROM transactions
		WHERE user_id = $1 AND transaction_id = $2
	`

	var tx domain.Transaction
	if err := r.db.GetContext(ctx, &tx, query, userID, transactionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

// Delete removes a transaction.
func (r *TxRepo) Delete(ctx context.Context, userID, transactionID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE user_id = $1 AND transaction_id = $2`,
		userID, transactionID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SumExpensesByCategory returns the total expense amount for user+category.
func (r *TxRepo) SumExpensesByCategory(ctx context.Context, userID, category string) (float64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1 AND category = $2 AND type = 'expense'
	`

	var total float64
	if err := r.db.GetContext(ctx, &total, query, userID, domain.NormalizeCategory(category)); err != nil {
		return 0, fmt.Errorf("failed to sum expenses: %w", err)
	}
	return total, nil
}
