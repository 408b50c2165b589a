// Package recovery replays dead-lettered events against the live
// processing pipeline.
package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vuxmai/budgetwatch/internal/core/domain"
	"github.com/vuxmai/budgetwatch/internal/infra/storage"
	"github.com/vuxmai/budgetwatch/internal/reliability/backoff"
	"github.com/vuxmai/budgetwatch/internal/reliability/classify"
)

// ReplayFunc retries processing of a dead-lettered raw record.
type ReplayFunc func(ctx context.Context, payload []byte) error

// Handler drains the dead-letter queue one entry at a time, respecting
// a backoff window between attempts on the same entry.
type Handler struct {
	repo        storage.DeadLetterRepository
	replay      ReplayFunc
	policy      *backoff.Policy
	maxAttempts int
	log         *slog.Logger
	now         func() time.Time
}

// NewHandler creates a replay handler. maxAttempts bounds how many
// times a single entry is replayed before it is left for an operator.
func NewHandler(repo storage.DeadLetterRepository, replay ReplayFunc, policy *backoff.Policy, maxAttempts int, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		repo:        repo,
		replay:      replay,
		policy:      policy,
		maxAttempts: maxAttempts,
		log:         log,
		now:         time.Now,
	}
}

// ProcessNext picks the next dead letter and replays it if its backoff
// window has elapsed. Entries that failed validation are never
// replayed; they would fail identically and need manual correction.
// Such entries are marked ignored rather than skipped in place:
// GetNext always returns the lowest-retry-count entry, so a skipped
// entry would stay at the queue head and starve everything behind it.
func (h *Handler) ProcessNext(ctx context.Context) error {
	dl, err := h.repo.GetNext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get next dead letter: %w", err)
	}
	if dl == nil {
		return nil
	}

	if !classify.Retryable(classify.Kind(dl.ErrorKind)) {
		return h.ignore(ctx, dl, "non-retryable")
	}
	if dl.RetryCount >= h.maxAttempts {
		return h.ignore(ctx, dl, "max attempts reached")
	}

	delay := h.policy.Delay(dl.RetryCount + 1)
	lastAttempt := time.Unix(int64(dl.LastAttempt), 0)
	if h.now().Before(lastAttempt.Add(delay)) {
		return nil
	}

	if err := h.replay(ctx, dl.Payload); err == nil {
		if err := h.repo.MarkResolved(ctx, dl.ID); err != nil {
			return fmt.Errorf("failed to resolve dead letter %s: %w", dl.ID, err)
		}
		h.log.Info("dead letter replayed",
			"id", dl.ID, "event_type", string(dl.EventType), "attempts", dl.RetryCount+1)
		return nil
	}

	if err := h.repo.IncrementRetry(ctx, dl.ID); err != nil {
		return fmt.Errorf("failed to increment retry: %w", err)
	}
	return nil
}

// ignore retires an entry from the replay queue, leaving its record for
// an operator to inspect and resolve.
func (h *Handler) ignore(ctx context.Context, dl *domain.DeadLetter, reason string) error {
	if err := h.repo.MarkIgnored(ctx, dl.ID); err != nil {
		return fmt.Errorf("failed to ignore dead letter %s: %w", dl.ID, err)
	}
	h.log.Warn("dead letter left for operator",
		"id", dl.ID, "event_type", string(dl.EventType),
		"error_kind", dl.ErrorKind, "retries", dl.RetryCount, "reason", reason)
	return nil
}

// Run drives ProcessNext on a fixed interval until the context is done.
func (h *Handler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.ProcessNext(ctx); err != nil {
				h.log.Warn("dead letter replay pass failed", "error", err)
			}
		}
	}
}

// Pending returns the current queue for operator inspection.
func (h *Handler) Pending(ctx context.Context) ([]*domain.DeadLetter, error) {
	return h.repo.GetAll(ctx)
}
