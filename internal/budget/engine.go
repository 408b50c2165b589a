// Package budget recomputes category spending and decides when a budget
// threshold alert should be emitted.
package budget

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vuxmai/budgetwatch/internal/core/domain"
	"github.com/vuxmai/budgetwatch/internal/infra/storage"
	"github.com/vuxmai/budgetwatch/internal/metrics"
	"github.com/vuxmai/budgetwatch/internal/reliability/classify"
)

const (
	warningPercent  = 80.0
	exceededPercent = 100.0
)

// Outcome reports what a single event produced.
type Outcome struct {
	Processed     bool
	Notifications []domain.ThresholdEvent
}

// Engine is the budget threshold engine. It owns the budgets'
// currentSpending/percentageUsed/lastCalculated fields.
type Engine struct {
	txs     storage.TransactionRepository
	budgets storage.BudgetRepository
	log     *slog.Logger
	now     func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(txs storage.TransactionRepository, budgets storage.BudgetRepository, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		txs:     txs,
		budgets: budgets,
		log:     log,
		now:     time.Now,
	}
}

// HandleTransactionEvent recomputes spending for every budget matching
// the event's category and yields at most one ThresholdEvent per budget.
// Income never counts against budgets. Re-crossing the same threshold on
// a later event re-emits; processing is at-least-once by design.
func (e *Engine) HandleTransactionEvent(ctx context.Context, ev *domain.TransactionEvent) (Outcome, error) {
	if ev == nil {
		return Outcome{}, classify.Validationf("nil transaction event")
	}
	if ev.Type == domain.TransactionTypeIncome {
		return Outcome{Processed: false}, nil
	}
	if ev.UserID == "" {
		return Outcome{}, classify.Validationf("transaction event missing userId")
	}
	if ev.Category == "" {
		return Outcome{}, classify.Validationf("transaction event missing category")
	}

	category := domain.NormalizeCategory(ev.Category)

	budgets, err := e.budgets.GetByUser(ctx, ev.UserID)
	if err != nil {
		return Outcome{}, classify.Transient(fmt.Errorf("load budgets for %s: %w", ev.UserID, err))
	}

	out := Outcome{Processed: true}
	for _, b := range budgets {
		if !budgetMatches(b, category) {
			continue
		}

		event, err := e.recompute(ctx, b, ev.UserID, category)
		if err != nil {
			return Outcome{}, err
		}
		if event != nil {
			out.Notifications = append(out.Notifications, *event)
		}
	}

	return out, nil
}

// budgetMatches reports whether a budget applies to a category. The
// matching is deliberately inclusive-OR for compatibility with existing
// data: an explicit category match, a budget named after the category,
// or a budget whose name marks it as a test budget all match. The
// "test" rule can catch unrelated budgets that merely contain the
// substring; tightening it needs a product decision.
func budgetMatches(b *domain.Budget, category string) bool {
	name := strings.ToLower(b.Name)
	return domain.NormalizeCategory(b.Category) == category ||
		strings.Contains(name, category) ||
		strings.Contains(name, "test")
}

// recompute rescans the full category spend, persists the refreshed
// fields, and returns a ThresholdEvent when a threshold is crossed.
// The rescan (not an incremental counter) is what lets the system heal
// from missed events. Persistence is best-effort.
func (e *Engine) recompute(ctx context.Context, b *domain.Budget, userID, category string) (*domain.ThresholdEvent, error) {
	spending, err := e.txs.SumExpensesByCategory(ctx, userID, category)
	if err != nil {
		return nil, classify.Transient(fmt.Errorf("sum expenses for %s/%s: %w", userID, category, err))
	}
	metrics.SpendRecomputations.Inc()

	if b.Amount <= 0 {
		e.log.Warn("budget has non-positive limit, skipping threshold check",
			"budget_id", b.BudgetID, "amount", b.Amount)
		return nil, nil
	}

	pct := domain.Round2(spending / b.Amount * 100)
	now := e.now()

	// Persist unconditionally, even below the warning threshold, so the
	// budget's stored fields track reality. Failure here must not fail
	// the event.
	if err := e.budgets.UpdateSpending(ctx, b.BudgetID, spending, pct, now); err != nil {
		e.log.Warn("failed to persist recomputed spending",
			"budget_id", b.BudgetID, "error", err)
	}

	if pct < warningPercent {
		return nil, nil
	}

	thresholdType := domain.ThresholdWarning
	if pct >= exceededPercent {
		thresholdType = domain.ThresholdExceeded
	}
	metrics.ThresholdEvents.WithLabelValues(string(thresholdType)).Inc()

	return &domain.ThresholdEvent{
		UserID:          userID,
		BudgetID:        b.BudgetID,
		Category:        category,
		CurrentSpending: spending,
		Limit:           b.Amount,
		PercentageUsed:  pct,
		ThresholdType:   thresholdType,
		Timestamp:       now,
	}, nil
}
