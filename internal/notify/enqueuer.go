package notify

import (
	"context"
	"encoding/json"

	"github.com/ahmedm-sallam/SmartInventorySystem/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer is the subset of kafka.Writer the enqueuer needs.
type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Enqueuer hands notification events to the dispatcher's topic. The broker
// acknowledgment is the at-least-once enqueue contract; delivery to email
// or SMS is the notification service's concern.
type Enqueuer struct {
	log      *zap.Logger
	producer Producer
	topic    string
}

func NewEnqueuer(log *zap.Logger, producer Producer, topic string) *Enqueuer {
	return &Enqueuer{log: log, producer: producer, topic: topic}
}

func (e *Enqueuer) Enqueue(ctx context.Context, event domain.NotificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	key := event.OrderID
	if key == "" {
		key = event.ProductID
	}

	msg := kafka.Message{
		Topic: e.topic,
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}

	if err := e.producer.WriteMessages(ctx, msg); err != nil {
		e.log.Error("notification enqueue failed",
			zap.String("type", string(event.Type)),
			zap.String("order_id", event.OrderID),
			zap.Error(err),
		)
		return err
	}

	e.log.Info("notification enqueued",
		zap.String("type", string(event.Type)),
		zap.String("order_id", event.OrderID),
		zap.String("product_id", event.ProductID),
	)
	return nil
}

// NewWriter builds the kafka producer for the notification topic.
func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}
