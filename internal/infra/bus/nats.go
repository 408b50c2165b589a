package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/vuxmai/budgetwatch/internal/core/domain"
)

// Config holds NATS connection configuration.
type Config struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"` // client name reported to the server
}

// NATSPublisher implements Publisher over NATS core publish. The server
// side (JetStream stream configuration) owns durability; the publisher
// only needs fire-and-forget semantics with connection-level retry.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to the NATS server.
func NewNATSPublisher(cfg Config) (*NATSPublisher, error) {
	name := cfg.Name
	if name == "" {
		name = "budgetwatch"
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	return &NATSPublisher{conn: conn}, nil
}

// Publish sends the envelope as JSON on the topic subject.
func (p *NATSPublisher) Publish(ctx context.Context, topic string, env domain.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err := p.conn.Publish(topic, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// Subscribe registers a handler for raw records on a subject. The
// consumer loop uses it to receive transaction-mutation events. A
// non-empty queue joins a queue group so horizontally scaled instances
// share the subject.
func (p *NATSPublisher) Subscribe(subject, queue string, handle func(data []byte)) (*nats.Subscription, error) {
	cb := func(msg *nats.Msg) {
		handle(msg.Data)
	}

	var (
		sub *nats.Subscription
		err error
	)
	if queue != "" {
		sub, err = p.conn.QueueSubscribe(subject, queue, cb)
	} else {
		sub, err = p.conn.Subscribe(subject, cb)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	return sub, nil
}
