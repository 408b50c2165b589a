// Package bus publishes event envelopes to the platform event bus.
package bus

import (
	"context"
	"log/slog"

	"github.com/vuxmai/budgetwatch/internal/core/domain"
)

// Publisher delivers envelopes to a topic. Delivery is at-least-once;
// there is no ordering guarantee across topics.
type Publisher interface {
	// Publish sends a single envelope
	Publish(ctx context.Context, topic string, env domain.Envelope) error

	// Close closes the publisher connection
	Close() error
}

// LogPublisher is the zero-dependency fallback: it logs envelopes
// instead of delivering them. Used when no bus URL is configured.
type LogPublisher struct {
	Log *slog.Logger
}

// Publish logs the envelope.
func (p *LogPublisher) Publish(ctx context.Context, topic string, env domain.Envelope) error {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("event published",
		"topic", topic,
		"source", env.Source,
		"detail_type", string(env.DetailType))
	return nil
}

// Close is a no-op.
func (p *LogPublisher) Close() error { return nil }
