package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vuxmai/budgetwatch/internal/core/domain"
	"github.com/vuxmai/budgetwatch/internal/infra/storage"
)

// MemoryStorage backs every repository with process-local maps. Used
// when no database URL is configured and throughout the tests.
type MemoryStorage struct {
	txs           map[string]*domain.Transaction // key: userID + "/" + transactionID
	budgets       map[string]*domain.Budget      // key: budgetID
	notifications []*domain.NotificationRecord
	prefs         map[string]*domain.UserPreferences
	deadLetters   map[string]*domain.DeadLetter
	mu            sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		txs:         make(map[string]*domain.Transaction),
		budgets:     make(map[string]*domain.Budget),
		prefs:       make(map[string]*domain.UserPreferences),
		deadLetters: make(map[string]*domain.DeadLetter),
	}
}

func txKey(userID, transactionID string) string {
	return userID + "/" + transactionID
}

// -----------------------------------------------------------------------------
// Transaction Repository
// -----------------------------------------------------------------------------

type TxRepo struct {
	store *MemoryStorage
}

func NewTxRepo(store *MemoryStorage) *TxRepo {
	return &TxRepo{store: store}
}

func (r *TxRepo) Save(ctx context.Context, tx *domain.Transaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *tx
	cp.Category = domain.NormalizeCategory(cp.Category)
	r.store.txs[txKey(tx.UserID, tx.TransactionID)] = &cp
	return nil
}

func (r *TxRepo) GetByID(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	tx, ok := r.store.txs[txKey(userID, transactionID)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (r *TxRepo) Delete(ctx context.Context, userID, transactionID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := txKey(userID, transactionID)
	if _, ok := r.store.txs[key]; !ok {
		return storage.ErrNotFound
	}
	delete(r.store.txs, key)
	return nil
}

func (r *TxRepo) SumExpensesByCategory(ctx context.Context, userID, category string) (float64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	category = domain.NormalizeCategory(category)
	var total float64
	for _, tx := range r.store.txs {
		if tx.UserID == userID && tx.Type == domain.TransactionTypeExpense &&
			domain.NormalizeCategory(tx.Category) == category {
			total += tx.Amount
		}
	}
	return total, nil
}

// -----------------------------------------------------------------------------
// Budget Repository
// -----------------------------------------------------------------------------

type BudgetRepo struct {
	store *MemoryStorage
}

func NewBudgetRepo(store *MemoryStorage) *BudgetRepo {
	return &BudgetRepo{store: store}
}

func (r *BudgetRepo) Save(ctx context.Context, budget *domain.Budget) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *budget
	r.store.budgets[budget.BudgetID] = &cp
	return nil
}

func (r *BudgetRepo) GetByID(ctx context.Context, userID, budgetID string) (*domain.Budget, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	b, ok := r.store.budgets[budgetID]
	if !ok || b.UserID != userID {
		return nil, storage.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *BudgetRepo) GetByUser(ctx context.Context, userID string) ([]*domain.Budget, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*domain.Budget
	for _, b := range r.store.budgets {
		if b.UserID == userID {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BudgetID < out[j].BudgetID })
	return out, nil
}

func (r *BudgetRepo) UpdateSpending(ctx context.Context, budgetID string, spending, percentageUsed float64, calculatedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	b, ok := r.store.budgets[budgetID]
	if !ok {
		return storage.ErrNotFound
	}
	b.CurrentSpending = spending
	b.PercentageUsed = percentageUsed
	b.LastCalculated = calculatedAt
	return nil
}

// -----------------------------------------------------------------------------
// Notification Repository
// -----------------------------------------------------------------------------

type NotificationRepo struct {
	store *MemoryStorage
}

func NewNotificationRepo(store *MemoryStorage) *NotificationRepo {
	return &NotificationRepo{store: store}
}

func (r *NotificationRepo) Append(ctx context.Context, rec *domain.NotificationRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *rec
	r.store.notifications = append(r.store.notifications, &cp)
	return nil
}

func (r *NotificationRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.NotificationRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*domain.NotificationRecord
	for i := len(r.store.notifications) - 1; i >= 0; i-- {
		rec := r.store.notifications[i]
		if rec.UserID != userID {
			continue
		}
		cp := *rec
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *NotificationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	kept := r.store.notifications[:0]
	removed := 0
	for _, rec := range r.store.notifications {
		if rec.SentAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	r.store.notifications = kept
	return removed, nil
}

// -----------------------------------------------------------------------------
// Preference Repository
// -----------------------------------------------------------------------------

type PreferenceRepo struct {
	store *MemoryStorage
}

func NewPreferenceRepo(store *MemoryStorage) *PreferenceRepo {
	return &PreferenceRepo{store: store}
}

func (r *PreferenceRepo) SavePreferences(ctx context.Context, prefs *domain.UserPreferences) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *prefs
	r.store.prefs[prefs.UserID] = &cp
	return nil
}

func (r *PreferenceRepo) GetPreferences(ctx context.Context, userID string) (*domain.UserPreferences, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	p, ok := r.store.prefs[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// -----------------------------------------------------------------------------
// Dead Letter Repository
// -----------------------------------------------------------------------------

type DeadLetterRepo struct {
	store *MemoryStorage
}

func NewDeadLetterRepo(store *MemoryStorage) *DeadLetterRepo {
	return &DeadLetterRepo{store: store}
}

func (r *DeadLetterRepo) Add(ctx context.Context, dl *domain.DeadLetter) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *dl
	r.store.deadLetters[dl.ID] = &cp
	return nil
}

func (r *DeadLetterRepo) GetNext(ctx context.Context) (*domain.DeadLetter, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var next *domain.DeadLetter
	for _, dl := range r.store.deadLetters {
		if dl.Status == domain.DeadLetterStatusIgnored {
			continue
		}
		if next == nil || dl.RetryCount < next.RetryCount ||
			(dl.RetryCount == next.RetryCount && dl.ID < next.ID) {
			next = dl
		}
	}
	if next == nil {
		return nil, nil
	}
	cp := *next
	return &cp, nil
}

func (r *DeadLetterRepo) IncrementRetry(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	dl, ok := r.store.deadLetters[id]
	if !ok {
		return storage.ErrNotFound
	}
	dl.RetryCount++
	dl.LastAttempt = uint64(time.Now().Unix())
	return nil
}

func (r *DeadLetterRepo) MarkResolved(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.deadLetters[id]; !ok {
		return storage.ErrNotFound
	}
	delete(r.store.deadLetters, id)
	return nil
}

func (r *DeadLetterRepo) MarkIgnored(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	dl, ok := r.store.deadLetters[id]
	if !ok {
		return storage.ErrNotFound
	}
	dl.Status = domain.DeadLetterStatusIgnored
	return nil
}

func (r *DeadLetterRepo) GetAll(ctx context.Context) ([]*domain.DeadLetter, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*domain.DeadLetter, 0, len(r.store.deadLetters))
	for _, dl := range r.store.deadLetters {
		cp := *dl
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Count returns the replay queue depth, excluding ignored entries.
func (r *DeadLetterRepo) Count(ctx context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	n := 0
	for _, dl := range r.store.deadLetters {
		if dl.Status != domain.DeadLetterStatusIgnored {
			n++
		}
	}
	return n, nil
}
