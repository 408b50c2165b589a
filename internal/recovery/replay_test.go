package recovery

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/vuxmai/budgetwatch/internal/core/domain"
	"github.com/vuxmai/budgetwatch/internal/infra/storage/memory"
	"github.com/vuxmai/budgetwatch/internal/reliability/backoff"
	"github.com/vuxmai/budgetwatch/internal/reliability/classify"
)

func testPolicy() *backoff.Policy {
	return backoff.New(backoff.Config{
		InitialDelay: 2 * time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2,
	})
}

func newTestHandler(t *testing.T, replay ReplayFunc) (*Handler, *memory.DeadLetterRepo) {
	t.Helper()
	repo := memory.NewDeadLetterRepo(memory.NewMemoryStorage())
	h := NewHandler(repo, replay, testPolicy(), 5, slog.Default())
	return h, repo
}

func addDeadLetter(t *testing.T, repo *memory.DeadLetterRepo, id string, kind classify.Kind, retries int, lastAttempt time.Time) {
	t.Helper()
	err := repo.Add(context.Background(), &domain.DeadLetter{
		ID:          id,
		EventType:   domain.EventTypeTransactionCreated,
		Payload:     []byte(`{"detail-type":"transaction.created","detail":{}}`),
		Error:       "boom",
		ErrorKind:   string(kind),
		RetryCount:  retries,
		Status:      domain.DeadLetterStatusPending,
		LastAttempt: uint64(lastAttempt.Unix()),
	})
	if err != nil {
		t.Fatalf("add dead letter: %v", err)
	}
}

func TestProcessNextReplaysAndResolves(t *testing.T) {
	var replayed [][]byte
	h, repo := newTestHandler(t, func(ctx context.Context, payload []byte) error {
		replayed = append(replayed, payload)
		return nil
	})
	addDeadLetter(t, repo, "dl1", classify.KindTransient, 0, time.Now().Add(-time.Minute))

	if err := h.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	if len(replayed) != 1 {
		t.Fatalf("replayed %d entries, want 1", len(replayed))
	}
	count, _ := repo.Count(context.Background())
	if count != 0 {
		t.Errorf("queue depth = %d, want 0 after resolve", count)
	}
}

func TestProcessNextIncrementsOnFailure(t *testing.T) {
	h, repo := newTestHandler(t, func(ctx context.Context, payload []byte) error {
		return errors.New("still broken")
	})
	addDeadLetter(t, repo, "dl1", classify.KindTransient, 1, time.Now().Add(-time.Minute))

	if err := h.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	dl, _ := repo.GetNext(context.Background())
	if dl == nil || dl.RetryCount != 2 {
		t.Fatalf("expected retry count 2, got %+v", dl)
	}
}

func TestProcessNextRespectsBackoffWindow(t *testing.T) {
	calls := 0
	h, repo := newTestHandler(t, func(ctx context.Context, payload []byte) error {
		calls++
		return nil
	})
	// Second attempt needs a 4s gap; the last attempt was 1s ago.
	addDeadLetter(t, repo, "dl1", classify.KindTransient, 1, time.Now().Add(-time.Second))

	if err := h.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	if calls != 0 {
		t.Errorf("replayed %d times inside the backoff window, want 0", calls)
	}
}

func TestProcessNextIgnoresNonRetryable(t *testing.T) {
	calls := 0
	h, repo := newTestHandler(t, func(ctx context.Context, payload []byte) error {
		calls++
		return nil
	})
	addDeadLetter(t, repo, "dl1", classify.KindValidation, 0, time.Now().Add(-time.Hour))

	if err := h.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	if calls != 0 {
		t.Error("validation dead letters must not be replayed")
	}
	count, _ := repo.Count(context.Background())
	if count != 0 {
		t.Errorf("queue depth = %d, want 0 after ignoring", count)
	}
	all, _ := repo.GetAll(context.Background())
	if len(all) != 1 || all[0].Status != domain.DeadLetterStatusIgnored {
		t.Fatalf("expected one ignored record for operators, got %+v", all)
	}
}

func TestProcessNextIgnoresAfterMaxAttempts(t *testing.T) {
	calls := 0
	h, repo := newTestHandler(t, func(ctx context.Context, payload []byte) error {
		calls++
		return errors.New("still broken")
	})
	addDeadLetter(t, repo, "dl1", classify.KindTransient, 5, time.Now().Add(-time.Hour))

	if err := h.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	if calls != 0 {
		t.Error("exhausted entries must not be replayed")
	}
	count, _ := repo.Count(context.Background())
	if count != 0 {
		t.Errorf("queue depth = %d, want 0 after ignoring", count)
	}
}

func TestValidationEntryDoesNotStarveQueue(t *testing.T) {
	var replayed [][]byte
	h, repo := newTestHandler(t, func(ctx context.Context, payload []byte) error {
		replayed = append(replayed, payload)
		return nil
	})
	// The validation entry sorts first (retry count 0, lowest ID) and
	// would head the queue on every pass if it were merely skipped.
	addDeadLetter(t, repo, "aaa", classify.KindValidation, 0, time.Now().Add(-time.Hour))
	addDeadLetter(t, repo, "bbb", classify.KindTransient, 1, time.Now().Add(-time.Hour))

	for i := 0; i < 3; i++ {
		if err := h.ProcessNext(context.Background()); err != nil {
			t.Fatalf("ProcessNext pass %d: %v", i, err)
		}
	}

	if len(replayed) != 1 {
		t.Fatalf("replayed %d entries, want the transient entry replayed once", len(replayed))
	}
	count, _ := repo.Count(context.Background())
	if count != 0 {
		t.Errorf("queue depth = %d, want 0 after draining", count)
	}
}

func TestProcessNextEmptyQueue(t *testing.T) {
	h, _ := newTestHandler(t, func(ctx context.Context, payload []byte) error {
		t.Fatal("replay must not run on an empty queue")
		return nil
	})
	if err := h.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
}
