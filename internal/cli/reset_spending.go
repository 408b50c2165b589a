package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vuxmai/budgetwatch/internal/core/config"
	"github.com/vuxmai/budgetwatch/internal/infra/storage/postgres"
)

var resetSpendingCmd = &cobra.Command{
	Use:   "reset-spending [budget_id]",
	Short: "Reset the cached spending fields of a budget to zero",
	Args:  cobra.ExactArgs(1),
	Run:   runResetSpending,
}

func init() {
	rootCmd.AddCommand(resetSpendingCmd)
}

func runResetSpending(cmd *cobra.Command, args []string) {
	budgetID := args[0]

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	// The next matching event recomputes from the transaction table, so
	// zeroing here is safe; direct SQL keeps the override simple.
	query := `UPDATE budgets SET current_spending = 0, percentage_used = 0, last_calculated = NOW() WHERE budget_id = $1`
	res, err := db.ExecContext(ctx, query, budgetID)
	if err != nil {
		slog.Error("Failed to reset spending", "error", err)
		os.Exit(1)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		fmt.Printf("No budget found with id %s\n", budgetID)
		os.Exit(1)
	}

	fmt.Printf("Successfully reset spending for budget %s\n", budgetID)
}
