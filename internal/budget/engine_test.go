package budget

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/vuxmai/budgetwatch/internal/core/domain"
	"github.com/vuxmai/budgetwatch/internal/infra/storage/memory"
	"github.com/vuxmai/budgetwatch/internal/reliability/classify"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *memory.TxRepo, *memory.BudgetRepo) {
	t.Helper()
	store := memory.NewMemoryStorage()
	txs := memory.NewTxRepo(store)
	budgets := memory.NewBudgetRepo(store)
	e := NewEngine(txs, budgets, slog.Default())
	e.now = func() time.Time { return fixedNow }
	return e, txs, budgets
}

func addExpense(t *testing.T, txs *memory.TxRepo, userID, id, category string, amount float64) {
	t.Helper()
	err := txs.Save(context.Background(), &domain.Transaction{
		TransactionID: id,
		UserID:        userID,
		Amount:        amount,
		Category:      category,
		Type:          domain.TransactionTypeExpense,
	})
	if err != nil {
		t.Fatalf("save transaction: %v", err)
	}
}

func TestHandleTransactionEventThresholds(t *testing.T) {
	tests := []struct {
		name       string
		limit      float64
		spending   float64
		wantEvents int
		wantType   domain.ThresholdType
		wantPct    float64
	}{
		{"below warning", 200, 100, 0, "", 50},
		{"just under warning", 200, 159.98, 0, "", 79.99},
		{"at warning", 200, 160, 1, domain.ThresholdWarning, 80},
		{"between thresholds", 200, 185, 1, domain.ThresholdWarning, 92.5},
		{"at limit", 200, 200, 1, domain.ThresholdExceeded, 100},
		{"over limit", 200, 250, 1, domain.ThresholdExceeded, 125},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, txs, budgets := newTestEngine(t)
			ctx := context.Background()

			budgets.Save(ctx, &domain.Budget{
				BudgetID: "b1", UserID: "u1",
				Name: "Groceries", Category: "groceries", Amount: tt.limit,
			})
			addExpense(t, txs, "u1", "t1", "groceries", tt.spending)

			out, err := e.HandleTransactionEvent(ctx, &domain.TransactionEvent{
				UserID: "u1", TransactionID: "t1",
				Category: "groceries", Type: domain.TransactionTypeExpense,
			})
			if err != nil {
				t.Fatalf("HandleTransactionEvent: %v", err)
			}
			if !out.Processed {
				t.Fatal("expected event to be processed")
			}
			if len(out.Notifications) != tt.wantEvents {
				t.Fatalf("got %d notifications, want %d", len(out.Notifications), tt.wantEvents)
			}
			if tt.wantEvents == 1 {
				ev := out.Notifications[0]
				if ev.ThresholdType != tt.wantType {
					t.Errorf("threshold type = %s, want %s", ev.ThresholdType, tt.wantType)
				}
				if ev.PercentageUsed != tt.wantPct {
					t.Errorf("percentage = %v, want %v", ev.PercentageUsed, tt.wantPct)
				}
				if ev.Limit != tt.limit || ev.CurrentSpending != tt.spending {
					t.Errorf("event carries limit=%v spending=%v, want %v/%v",
						ev.Limit, ev.CurrentSpending, tt.limit, tt.spending)
				}
			}

			// The stored budget is refreshed regardless of threshold.
			b, err := budgets.GetByID(ctx, "u1", "b1")
			if err != nil {
				t.Fatalf("GetByID: %v", err)
			}
			if b.CurrentSpending != tt.spending {
				t.Errorf("stored spending = %v, want %v", b.CurrentSpending, tt.spending)
			}
			if b.PercentageUsed != domain.Round2(tt.spending/tt.limit*100) {
				t.Errorf("stored percentage = %v", b.PercentageUsed)
			}
			if !b.LastCalculated.Equal(fixedNow) {
				t.Errorf("lastCalculated = %v, want %v", b.LastCalculated, fixedNow)
			}
		})
	}
}

func TestHandleTransactionEventIgnoresIncome(t *testing.T) {
	e, _, budgets := newTestEngine(t)
	ctx := context.Background()

	budgets.Save(ctx, &domain.Budget{
		BudgetID: "b1", UserID: "u1", Name: "Salary", Category: "salary", Amount: 100,
	})

	out, err := e.HandleTransactionEvent(ctx, &domain.TransactionEvent{
		UserID: "u1", Category: "salary", Amount: 5000,
		Type: domain.TransactionTypeIncome,
	})
	if err != nil {
		t.Fatalf("HandleTransactionEvent: %v", err)
	}
	if out.Processed {
		t.Error("income events must not trigger recomputation")
	}
	if len(out.Notifications) != 0 {
		t.Errorf("got %d notifications, want none", len(out.Notifications))
	}

	b, _ := budgets.GetByID(ctx, "u1", "b1")
	if !b.LastCalculated.IsZero() {
		t.Error("income event must not touch the stored budget")
	}
}

func TestHandleTransactionEventValidation(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name string
		ev   *domain.TransactionEvent
	}{
		{"nil event", nil},
		{"missing user", &domain.TransactionEvent{Category: "food", Type: domain.TransactionTypeExpense}},
		{"missing category", &domain.TransactionEvent{UserID: "u1", Type: domain.TransactionTypeExpense}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.HandleTransactionEvent(ctx, tt.ev)
			if err == nil {
				t.Fatal("expected error")
			}
			if kind := classify.Classify(err); kind != classify.KindValidation {
				t.Errorf("classified as %s, want %s", kind, classify.KindValidation)
			}
		})
	}
}

func TestBudgetMatching(t *testing.T) {
	tests := []struct {
		name     string
		budget   domain.Budget
		category string
		want     bool
	}{
		{"category equal", domain.Budget{Name: "Monthly food", Category: "groceries"}, "groceries", true},
		{"category equal ignores case", domain.Budget{Name: "x", Category: "Groceries"}, "groceries", true},
		{"name contains category", domain.Budget{Name: "Groceries and household", Category: "other"}, "groceries", true},
		{"test budget matches anything", domain.Budget{Name: "My test budget", Category: "travel"}, "groceries", true},
		{"no match", domain.Budget{Name: "Travel", Category: "travel"}, "groceries", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := budgetMatches(&tt.budget, tt.category); got != tt.want {
				t.Errorf("budgetMatches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandleTransactionEventMultipleBudgets(t *testing.T) {
	e, txs, budgets := newTestEngine(t)
	ctx := context.Background()

	// Two budgets match "dining": one by category, one by name.
	budgets.Save(ctx, &domain.Budget{BudgetID: "b1", UserID: "u1", Name: "Food", Category: "dining", Amount: 100})
	budgets.Save(ctx, &domain.Budget{BudgetID: "b2", UserID: "u1", Name: "Dining out", Category: "restaurants", Amount: 500})
	budgets.Save(ctx, &domain.Budget{BudgetID: "b3", UserID: "u1", Name: "Rent", Category: "housing", Amount: 2000})

	addExpense(t, txs, "u1", "t1", "dining", 90)

	out, err := e.HandleTransactionEvent(ctx, &domain.TransactionEvent{
		UserID: "u1", Category: "dining", Type: domain.TransactionTypeExpense,
	})
	if err != nil {
		t.Fatalf("HandleTransactionEvent: %v", err)
	}

	// b1 is at 90%, b2 at 18%, b3 untouched. At most one event per budget.
	if len(out.Notifications) != 1 {
		t.Fatalf("got %d notifications, want 1", len(out.Notifications))
	}
	if out.Notifications[0].BudgetID != "b1" {
		t.Errorf("notification for %s, want b1", out.Notifications[0].BudgetID)
	}

	b2, _ := budgets.GetByID(ctx, "u1", "b2")
	if b2.CurrentSpending != 90 {
		t.Errorf("b2 spending = %v, want 90 (name match recomputes)", b2.CurrentSpending)
	}
	b3, _ := budgets.GetByID(ctx, "u1", "b3")
	if !b3.LastCalculated.IsZero() {
		t.Error("non-matching budget must not be recomputed")
	}
}

func TestHandleTransactionEventFullRescan(t *testing.T) {
	e, txs, budgets := newTestEngine(t)
	ctx := context.Background()

	budgets.Save(ctx, &domain.Budget{BudgetID: "b1", UserID: "u1", Name: "Groceries", Category: "groceries", Amount: 200})

	// Spending is the sum over all stored expenses, not the event amount.
	addExpense(t, txs, "u1", "t1", "groceries", 140)
	addExpense(t, txs, "u1", "t2", "groceries", 60)
	addExpense(t, txs, "u2", "t3", "groceries", 999) // different user
	txs.Save(ctx, &domain.Transaction{
		TransactionID: "t4", UserID: "u1", Amount: 500,
		Category: "groceries", Type: domain.TransactionTypeIncome,
	})

	out, err := e.HandleTransactionEvent(ctx, &domain.TransactionEvent{
		UserID: "u1", TransactionID: "t2", Category: "groceries",
		Type: domain.TransactionTypeExpense,
	})
	if err != nil {
		t.Fatalf("HandleTransactionEvent: %v", err)
	}
	if len(out.Notifications) != 1 {
		t.Fatalf("got %d notifications, want 1", len(out.Notifications))
	}
	ev := out.Notifications[0]
	if ev.CurrentSpending != 200 {
		t.Errorf("spending = %v, want 200", ev.CurrentSpending)
	}
	if ev.ThresholdType != domain.ThresholdExceeded {
		t.Errorf("threshold = %s, want exceeded", ev.ThresholdType)
	}
}

func TestHandleTransactionEventZeroLimit(t *testing.T) {
	e, txs, budgets := newTestEngine(t)
	ctx := context.Background()

	budgets.Save(ctx, &domain.Budget{BudgetID: "b1", UserID: "u1", Name: "Broken", Category: "misc", Amount: 0})
	addExpense(t, txs, "u1", "t1", "misc", 10)

	out, err := e.HandleTransactionEvent(ctx, &domain.TransactionEvent{
		UserID: "u1", Category: "misc", Type: domain.TransactionTypeExpense,
	})
	if err != nil {
		t.Fatalf("HandleTransactionEvent: %v", err)
	}
	if len(out.Notifications) != 0 {
		t.Error("zero-limit budget must not emit")
	}
}

func TestHandleTransactionEventStoreFailureIsTransient(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.budgets = failingBudgetRepo{}

	_, err := e.HandleTransactionEvent(context.Background(), &domain.TransactionEvent{
		UserID: "u1", Category: "food", Type: domain.TransactionTypeExpense,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := classify.Classify(err); kind != classify.KindTransient {
		t.Errorf("classified as %s, want %s", kind, classify.KindTransient)
	}
}

type failingBudgetRepo struct{}

func (failingBudgetRepo) Save(ctx context.Context, b *domain.Budget) error { return errors.New("down") }
func (failingBudgetRepo) GetByID(ctx context.Context, userID, budgetID string) (*domain.Budget, error) {
	return nil, errors.New("down")
}
func (failingBudgetRepo) GetByUser(ctx context.Context, userID string) ([]*domain.Budget, error) {
	return nil, errors.New("down")
}
func (failingBudgetRepo) UpdateSpending(ctx context.Context, budgetID string, spending, percentageUsed float64, calculatedAt time.Time) error {
	return errors.New("down")
}
