// Package events publishes order lifecycle notifications.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/talkincode/stockroom/internal/domain"
)

const (
	OrderCreated = "order-created"
	OrderPaid    = "order-paid"
)

// OrderEvent is the message body of an order notification
type OrderEvent struct {
	Type       string             `json:"type"`
	OrderID    int64              `json:"order_id,string"`
	Status     domain.OrderStatus `json:"status"`
	ActorID    int64              `json:"actor_id,string,omitempty"`
	Items      []EventItem        `json:"items"`
	OccurredAt time.Time          `json:"occurred_at"`
}

type EventItem struct {
	ProductID int64 `json:"product_id,string"`
	Quantity  int   `json:"quantity"`
}

// NewOrderEvent builds an event of the given type for order
func NewOrderEvent(kind string, order *domain.Order, items []domain.OrderItem) OrderEvent {
	evt := OrderEvent{
		Type:       kind,
		OrderID:    order.ID,
		Status:     order.Status,
		ActorID:    order.CreatedBy,
		Items:      make([]EventItem, 0, len(items)),
		OccurredAt: time.Now(),
	}
	for _, it := range items {
		evt.Items = append(evt.Items, EventItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return evt
}

// Publisher delivers order events
type Publisher interface {
	Publish(ctx context.Context, evt OrderEvent) error
	Close() error
}

// KafkaPublisher writes order events to a Kafka topic
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher writing to topic on the given brokers
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	addrs := make([]string, 0, len(brokers))
	for _, b := range brokers {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(addrs...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt OrderEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "encode order event")
	}
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("order-%s-%d", evt.Type, evt.OrderID)),
		Value: body,
	}
	return errors.Wrapf(p.writer.WriteMessages(ctx, msg), "publish %s", evt.Type)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher discards events
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }
func (NopPublisher) Close() error                              { return nil }

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []OrderEvent
}

func (r *Recorder) Publish(_ context.Context, evt OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far
func (r *Recorder) Events() []OrderEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]OrderEvent, len(r.events))
	copy(out, r.events)
	return out
}
