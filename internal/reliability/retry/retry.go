// Package retry drives repeated attempts of an operation through a
// circuit breaker and backoff policy.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vuxmai/budgetwatch/internal/metrics"
	"github.com/vuxmai/budgetwatch/internal/reliability/backoff"
	"github.com/vuxmai/budgetwatch/internal/reliability/breaker"
	"github.com/vuxmai/budgetwatch/internal/reliability/classify"
)

// Config defines retry behavior.
type Config struct {
	MaxRetries int // retries after the initial attempt
	Backoff    backoff.Config
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	MaxRetries: 3,
	Backoff:    backoff.DefaultConfig,
}

// Executor runs operations with retry, classification-aware short
// circuiting, and an optional per-dependency circuit breaker.
type Executor struct {
	cfg    Config
	policy *backoff.Policy
	log    *slog.Logger
}

// New creates an Executor from cfg.
func New(cfg Config, log *slog.Logger) *Executor {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		cfg:    cfg,
		policy: backoff.New(cfg.Backoff),
		log:    log,
	}
}

// NewWithPolicy creates an Executor with an explicit backoff policy
// (used by tests to remove jitter).
func NewWithPolicy(cfg Config, policy *backoff.Policy, log *slog.Logger) *Executor {
	e := New(cfg, log)
	e.policy = policy
	return e
}

// Do executes op, retrying retryable failures up to MaxRetries times.
// When b is non-nil every attempt goes through the breaker, so repeated
// failures against the same dependency fail fast instead of waiting out
// the backoff schedule. Exhaustion returns a terminal error wrapping the
// last cause.
func (e *Executor) Do(ctx context.Context, b *breaker.Breaker, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			dep := "default"
			if b != nil {
				dep = b.Name()
			}
			metrics.RetryAttempts.WithLabelValues(dep).Inc()

			delay := e.policy.Delay(attempt)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("retry cancelled before attempt %d: %w", attempt+1, ctx.Err())
			case <-timer.C:
			}
		}

		var err error
		if b != nil {
			err = b.Execute(ctx, op)
		} else {
			err = op(ctx)
		}
		if err == nil {
			return nil
		}
		lastErr = err

		kind := classify.Classify(err)
		if !classify.Retryable(kind) {
			return err
		}
		if attempt < e.cfg.MaxRetries {
			e.log.Debug("retrying after failure",
				"attempt", attempt+1,
				"kind", string(kind),
				"error", err)
		}
	}

	// The terminal error wraps the last cause without reclassifying it,
	// so Classify still reports the inner kind. Dead letters keep the
	// original kind that way, and the replay loop can tell a transient
	// exhaustion (worth replaying later) from a validation failure
	// (never worth replaying).
	return fmt.Errorf("failed after %d attempts: %w", e.cfg.MaxRetries+1, lastErr)
}
