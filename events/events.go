// Package events publishes order lifecycle events for downstream consumers
// (fulfilment, analytics). Publishing is best effort.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event types
const (
	OrderCreated    = "order.created"
	OrderCancelled  = "order.cancelled"
	OrderConfirmed  = "order.confirmed"
	PaymentRecorded = "payment.recorded"
)

// Event is the JSON payload written to the topic.
type Event struct {
	Type          string    `json:"type"`
	OrderID       string    `json:"orderId"`
	ProductID     string    `json:"productId,omitempty"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	Amount        float64   `json:"amount,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Publisher sends events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards events. Used when no broker is configured.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, Event) error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to one Kafka topic keyed by order ID, so all
// events of an order land on the same partition in order.
type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaPublisher creates a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}}
}

// Publish writes one event.
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:     []byte(e.OrderID),
		Value:   payload,
		Headers: []kafka.Header{{Key: "type", Value: []byte(e.Type)}},
	})
	if err != nil {
		return fmt.Errorf("publish %s event: %w", e.Type, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
