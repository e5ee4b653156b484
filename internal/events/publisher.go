// Package events publishes order lifecycle events to Kafka. Publishing is
// best effort: a failed publish is logged by the caller and never fails
// the business operation that produced it.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/novamart/novamart-commerce-service/internal/config"
	"github.com/novamart/novamart-commerce-service/internal/models"
)

// EventType identifies an order lifecycle event.
type EventType string

const (
	EventTypeOrderCreated  EventType = "order.created"
	EventTypeOrderPaid     EventType = "order.paid"
	EventTypeOrderCanceled EventType = "order.canceled"
)

// OrderEvent is the envelope written to the orders topic.
type OrderEvent struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	OrderID   string          `json:"order_id"`
	UserID    string          `json:"user_id"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Publisher emits order lifecycle events.
type Publisher interface {
	OrderCreated(ctx context.Context, order *models.Order) error
	OrderPaid(ctx context.Context, order *models.Order) error
	OrderCanceled(ctx context.Context, order *models.Order, reason string) error
	Close() error
}

// KafkaPublisher publishes order events to Kafka.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaPublisher creates a Kafka-based publisher for the orders topic.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *zap.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.OrdersTopic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaPublisher{
		writer: writer,
		logger: logger.Named("event-publisher"),
	}
}

func (p *KafkaPublisher) OrderCreated(ctx context.Context, order *models.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return p.publish(ctx, newEvent(EventTypeOrderCreated, order, data))
}

func (p *KafkaPublisher) OrderPaid(ctx context.Context, order *models.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return p.publish(ctx, newEvent(EventTypeOrderPaid, order, data))
}

func (p *KafkaPublisher) OrderCanceled(ctx context.Context, order *models.Order, reason string) error {
	payload := struct {
		Order  *models.Order `json:"order"`
		Reason string        `json:"reason"`
	}{
		Order:  order,
		Reason: reason,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.publish(ctx, newEvent(EventTypeOrderCanceled, order, data))
}

func (p *KafkaPublisher) publish(ctx context.Context, event *OrderEvent) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: eventData,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.String("order_id", event.OrderID),
			zap.Error(err))
		return err
	}

	p.logger.Info("Event published",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("order_id", event.OrderID))
	return nil
}

// Close closes the Kafka writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func newEvent(eventType EventType, order *models.Order, data []byte) *OrderEvent {
	return &OrderEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		OrderID:   order.ID,
		UserID:    order.UserID,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// MemoryPublisher records events in memory for tests and for running
// without a broker. Publishes happen outside any transaction, so
// concurrent settlements reach it concurrently; a mutex guards the slice.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []*OrderEvent
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{events: make([]*OrderEvent, 0)}
}

func (m *MemoryPublisher) OrderCreated(ctx context.Context, order *models.Order) error {
	m.record(&OrderEvent{Type: EventTypeOrderCreated, OrderID: order.ID, UserID: order.UserID})
	return nil
}

func (m *MemoryPublisher) OrderPaid(ctx context.Context, order *models.Order) error {
	m.record(&OrderEvent{Type: EventTypeOrderPaid, OrderID: order.ID, UserID: order.UserID})
	return nil
}

func (m *MemoryPublisher) OrderCanceled(ctx context.Context, order *models.Order, reason string) error {
	m.record(&OrderEvent{Type: EventTypeOrderCanceled, OrderID: order.ID, UserID: order.UserID})
	return nil
}

func (m *MemoryPublisher) Close() error { return nil }

func (m *MemoryPublisher) record(event *OrderEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

// Recorded returns a snapshot of the events published so far.
func (m *MemoryPublisher) Recorded() []*OrderEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*OrderEvent, len(m.events))
	copy(out, m.events)
	return out
}
