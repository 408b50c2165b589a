package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vuxmai/budgetwatch/internal/core/config"
	"github.com/vuxmai/budgetwatch/internal/infra/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current spending state of all budgets",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
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

	rows, err := db.QueryContext(ctx, `
		SELECT budget_id, user_id, name, category, amount, current_spending, percentage_used
		FROM budgets
		ORDER BY user_id, percentage_used DESC`)
	if err != nil {
		slog.Error("Failed to query budgets", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = rows.Close()
	}()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "BUDGET\tUSER\tNAME\tCATEGORY\tLIMIT\tSPENT\tUSED")

	for rows.Next() {
		var budgetID, userID, name, category string
		var amount, spending, pct float64
		if err := rows.Scan(&budgetID, &userID, &name, &category, &amount, &spending, &pct); err != nil {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%.2f\t%.2f%%\n",
			budgetID, userID, name, category, amount, spending, pct)
	}
	_ = w.Flush()
}
