// Package notify renders and delivers budget threshold alerts.
package notify

import (
	"context"
	"log/slog"

	"github.com/vuxmai/budgetwatch/internal/core/domain"
)

// Message is a rendered alert ready for delivery.
type Message struct {
	Title string
	Body  string
}

// Channel delivers a rendered message to a user.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, userID string, msg Message) error
}

// ConsoleChannel writes alerts to the structured log. It is the default
// delivery path and the fallback when a user's preferred channel is not
// registered.
type ConsoleChannel struct {
	log *slog.Logger
}

func NewConsoleChannel(log *slog.Logger) *ConsoleChannel {
	if log == nil {
		log = slog.Default()
	}
	return &ConsoleChannel{log: log}
}

func (c *ConsoleChannel) Name() string { return "console" }

func (c *ConsoleChannel) Deliver(ctx context.Context, userID string, msg Message) error {
	c.log.Info("budget alert",
		"user_id", userID,
		"title", msg.Title,
		"message", msg.Body)
	return nil
}

var _ Channel = (*ConsoleChannel)(nil)

// Render builds the user-facing message for a threshold event.
func Render(ev domain.ThresholdEvent) Message {
	if ev.ThresholdType == domain.ThresholdExceeded {
		return renderExceeded(ev)
	}
	return renderWarning(ev)
}
