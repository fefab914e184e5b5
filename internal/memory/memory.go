// Package memory forwards lead context to the downstream agent memory store.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Entry is the memory record published for a lead interaction
type Entry struct {
	LeadID     string            `json:"lead_id"`
	Email      string            `json:"email"`
	Source     string            `json:"source"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Sink receives lead memories. Callers treat errors as best effort.
type Sink interface {
	AddLeadMemory(ctx context.Context, e Entry) error
	Close() error
}

// Noop discards every entry
type Noop struct{}

// AddLeadMemory implements Sink
func (Noop) AddLeadMemory(context.Context, Entry) error { return nil }

// Close implements Sink
func (Noop) Close() error { return nil }

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPSink publishes entries as persistent JSON messages to a RabbitMQ exchange
type AMQPSink struct {
	conn       *amqp.Connection
	ch         publisher
	exchange   string
	routingKey string
}

// NewAMQPSink dials url and declares a durable topic exchange
func NewAMQPSink(url, exchange, routingKey string) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to memory broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	logrus.WithField("exchange", exchange).Info("Memory sink connected")
	return &AMQPSink{conn: conn, ch: ch, exchange: exchange, routingKey: routingKey}, nil
}

// AddLeadMemory implements Sink
func (s *AMQPSink) AddLeadMemory(ctx context.Context, e Entry) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal memory entry: %w", err)
	}

	err = s.ch.PublishWithContext(ctx, s.exchange, s.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    e.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish memory for lead %s: %w", e.LeadID, err)
	}
	return nil
}

// Close closes the channel and connection
func (s *AMQPSink) Close() error {
	if err := s.ch.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close memory channel")
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
