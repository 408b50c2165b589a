package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vuxmai/budgetwatch/internal/infra/storage"
)

// Pruner deletes old notification history based on retention policy.
type Pruner struct {
	retention time.Duration
	history   storage.NotificationRepository
	log       *slog.Logger
}

// NewPruner creates a new Pruner worker. A non-positive retention
// disables it.
func NewPruner(retention time.Duration, history storage.NotificationRepository, log *slog.Logger) *Pruner {
	if log == nil {
		log = slog.Default()
	}
	return &Pruner{
		retention: retention,
		history:   history,
		log:       log,
	}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	// Check interval: 10% of the retention period, clamped to [1m, 1h]
	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	cutoff := time.Now().Add(-p.retention)

	removed, err := p.history.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		p.log.Error("failed to prune notification history", "error", err)
		return
	}
	if removed > 0 {
		p.log.Info("pruned notification history", "removed", removed, "cutoff", cutoff)
	}
}
