package breaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vuxmai/budgetwatch/internal/metrics"
	"github.com/vuxmai/budgetwatch/internal/reliability/classify"
)

var errBoom = errors.New("boom")

func newTestBreaker(t *testing.T) (*Breaker, *time.Time) {
	t.Helper()
	now := time.Unix(1_700_000_000, 0)
	b := New("store", Config{
		FailureThreshold:  3,
		RecoveryTimeout:   30 * time.Second,
		HalfOpenSuccesses: 2,
	})
	b.now = func() time.Time { return now }
	return b, &now
}

func fail(ctx context.Context) error { return errBoom }

func succeed(ctx context.Context) error { return nil }

func TestBreakerFullCycle(t *testing.T) {
	b, now := newTestBreaker(t)
	ctx := context.Background()

	// closed -> open after threshold consecutive failures
	for i := 0; i < 3; i++ {
		if err := b.Execute(ctx, fail); !errors.Is(err, errBoom) {
			t.Fatalf("attempt %d: got %v, want boom", i, err)
		}
	}
	if got := b.Snapshot().State; got != StateOpen {
		t.Fatalf("state after failures = %v, want open", got)
	}

	// open rejects immediately before the recovery timeout
	if err := b.Execute(ctx, succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen", err)
	}
	if kind := classify.Classify(ErrCircuitOpen); kind != classify.KindPermanent {
		t.Fatalf("ErrCircuitOpen classifies as %v, want permanent", kind)
	}

	// after the timeout the next call is a half-open probe
	*now = now.Add(31 * time.Second)
	if err := b.Execute(ctx, succeed); err != nil {
		t.Fatalf("half-open probe failed: %v", err)
	}
	if got := b.Snapshot().State; got != StateHalfOpen {
		t.Fatalf("state after first probe = %v, want half_open", got)
	}

	// second consecutive success closes the circuit
	if err := b.Execute(ctx, succeed); err != nil {
		t.Fatalf("second probe failed: %v", err)
	}
	if got := b.Snapshot().State; got != StateClosed {
		t.Fatalf("state after probes = %v, want closed", got)
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b, now := newTestBreaker(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		b.Execute(ctx, fail)
	}
	*now = now.Add(time.Minute)

	// probe fails -> straight back to open
	if err := b.Execute(ctx, fail); !errors.Is(err, errBoom) {
		t.Fatalf("got %v, want boom", err)
	}
	if got := b.Snapshot().State; got != StateOpen {
		t.Fatalf("state = %v, want open", got)
	}
	if err := b.Execute(ctx, succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen", err)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(t)
	ctx := context.Background()

	b.Execute(ctx, fail)
	b.Execute(ctx, fail)
	b.Execute(ctx, succeed)

	if got := b.Snapshot().Failures; got != 0 {
		t.Fatalf("failures after success = %d, want 0", got)
	}
	if got := b.Snapshot().State; got != StateClosed {
		t.Fatalf("state = %v, want closed", got)
	}
}

func TestBreakerConcurrentAccess(t *testing.T) {
	b := New("bus", Config{FailureThreshold: 50, RecoveryTimeout: time.Second, HalfOpenSuccesses: 2})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if n%2 == 0 {
					b.Execute(ctx, succeed)
				} else {
					b.Execute(ctx, fail)
				}
			}
		}(i)
	}
	wg.Wait()

	// No assertion on final state; the test is for the race detector.
	b.Snapshot()
}

func TestNewPublishesClosedStateGauge(t *testing.T) {
	before := testutil.CollectAndCount(metrics.BreakerState)
	New("fresh-dependency", DefaultConfig)
	after := testutil.CollectAndCount(metrics.BreakerState)

	if after != before+1 {
		t.Fatalf("gauge series count = %d, want %d; a new breaker must publish its state immediately", after, before+1)
	}
	if got := testutil.ToFloat64(metrics.BreakerState.WithLabelValues("fresh-dependency")); got != 0 {
		t.Fatalf("initial state gauge = %v, want 0 (closed)", got)
	}
}

func TestRegistryReturnsSameInstance(t *testing.T) {
	r := NewRegistry(DefaultConfig)

	a := r.Get("store")
	b := r.Get("store")
	if a != b {
		t.Fatal("Get returned different breakers for the same name")
	}
	if c := r.Get("bus"); c == a {
		t.Fatal("different dependencies share a breaker")
	}

	snaps := r.Snapshots()
	if len(snaps) != 2 {
		t.Fatalf("snapshots = %d, want 2", len(snaps))
	}
}
