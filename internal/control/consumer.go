package control

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/vuxmai/budgetwatch/internal/core/config"
	"github.com/vuxmai/budgetwatch/internal/infra/bus"
	"github.com/vuxmai/budgetwatch/internal/processing"
)

// BatchFunc runs a batch of raw records through the pipeline.
type BatchFunc func(ctx context.Context, records [][]byte) processing.Result

// Consumer feeds bus messages into the batch pipeline. Each message is
// processed as a single-record batch; the bus delivery itself is the
// batching boundary.
type Consumer struct {
	pub     *bus.NATSPublisher
	cfg     config.ConsumerConfig
	process BatchFunc
	log     *slog.Logger
	sub     *nats.Subscription
}

func NewConsumer(pub *bus.NATSPublisher, cfg config.ConsumerConfig, process BatchFunc, log *slog.Logger) *Consumer {
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{
		pub:     pub,
		cfg:     cfg,
		process: process,
		log:     log,
	}
}

// Start subscribes to the configured subject.
func (c *Consumer) Start() error {
	sub, err := c.pub.Subscribe(c.cfg.Subject, c.cfg.Queue, func(data []byte) {
		result := c.process(context.Background(), [][]byte{data})
		if result.Failed > 0 {
			c.log.Warn("record processing failed",
				"subject", c.cfg.Subject,
				"errors", len(result.Errors))
		}
	})
	if err != nil {
		return err
	}
	c.sub = sub
	c.log.Info("Consumer subscribed", "subject", c.cfg.Subject, "queue", c.cfg.Queue)
	return nil
}

// Stop unsubscribes from the bus.
func (c *Consumer) Stop() {
	if c.sub != nil {
		if err := c.sub.Unsubscribe(); err != nil {
			c.log.Warn("Failed to unsubscribe", "error", err)
		}
	}
}
