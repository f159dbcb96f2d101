// Package audit publishes record-mutation events to a message broker so
// external systems can follow roster changes.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const exchangeName = "roster.audit"

// Event mirrors the audit row written to the store.
type Event struct {
	ID       string         `json:"id"`
	Actor    string         `json:"actor"`
	Action   string         `json:"action"`
	RecordID string         `json:"recordId,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
	At       time.Time      `json:"at"`
}

// Publisher emits audit events. Implementations must never let a
// publish failure reach the request path.
type Publisher interface {
	Publish(ctx context.Context, event Event)
	Close() error
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}
func (NopPublisher) Close() error                   { return nil }

// AMQPPublisher fans audit events out over a durable exchange.
type AMQPPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewAMQPPublisher connects to the broker and declares the exchange.
func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchangeName, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPPublisher{conn: conn, channel: ch}, nil
}

// Publish sends the event. Failures are logged and swallowed; audit
// delivery must never fail a roster mutation.
func (p *AMQPPublisher) Publish(ctx context.Context, event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		slog.Warn("audit_publish_failed", "error", err, "action", event.Action)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	err = p.channel.PublishWithContext(ctx, exchangeName, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   event.At,
		Body:        body,
	})
	if err != nil {
		slog.Warn("audit_publish_failed", "error", err, "action", event.Action)
	}
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
