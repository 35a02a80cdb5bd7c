package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/jafarshop/storeapi/internal/config"
)

// OrderCreatedEvent is emitted after a checkout transaction commits
type OrderCreatedEvent struct {
	EventID    string           `json:"event_id"`
	OrderID    string           `json:"order_id"`
	UserID     string           `json:"user_id"`
	TotalPrice float64          `json:"total_price"`
	Items      []OrderItemEvent `json:"items"`
	Timestamp  time.Time        `json:"timestamp"`
}

type OrderItemEvent struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Publisher emits order events. Publishing is best-effort: the checkout has
// already committed by the time an event is produced, so failures are logged
// by the caller, never propagated.
type Publisher interface {
	PublishOrderCreated(ctx context.Context, event OrderCreatedEvent) error
	Close() error
}

type kafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaPublisher creates a publisher over the configured brokers
func NewKafkaPublisher(cfg config.KafkaConfig, logger *zap.Logger) *kafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(cfg.Brokers, ",")...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}

	return &kafkaPublisher{
		writer: writer,
		logger: logger,
	}
}

func (p *kafkaPublisher) PublishOrderCreated(ctx context.Context, event OrderCreatedEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderID),
		Value: data,
	})
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops events. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderCreated(ctx context.Context, event OrderCreatedEvent) error {
	return nil
}

func (NopPublisher) Close() error { return nil }
