package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ahmedm-sallam/SmartInventorySystem/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

func TestEnqueuer_Enqueue(t *testing.T) {
	t.Parallel()

	t.Run("order event keyed by order id", func(t *testing.T) {
		t.Parallel()
		producer := &fakeProducer{}
		e := NewEnqueuer(zap.NewNop(), producer, "notifications")

		event := domain.NotificationEvent{
			Type:       domain.NotificationOrderConfirmed,
			OrderID:    "order-1",
			Recipient:  "buyer@example.com",
			Data:       map[string]string{"total_cents": "1500"},
			OccurredAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		}
		if err := e.Enqueue(context.Background(), event); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(producer.messages) != 1 {
			t.Fatalf("expected 1 message, got %d", len(producer.messages))
		}
		msg := producer.messages[0]
		if msg.Topic != "notifications" {
			t.Fatalf("unexpected topic %q", msg.Topic)
		}
		if string(msg.Key) != "order-1" {
			t.Fatalf("expected key order-1, got %q", msg.Key)
		}
		if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != "order_confirmed" {
			t.Fatalf("unexpected headers: %+v", msg.Headers)
		}

		var decoded domain.NotificationEvent
		if err := json.Unmarshal(msg.Value, &decoded); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if decoded.Type != event.Type || decoded.Recipient != event.Recipient {
			t.Fatalf("unexpected payload: %+v", decoded)
		}
	})

	t.Run("low stock event keyed by product id", func(t *testing.T) {
		t.Parallel()
		producer := &fakeProducer{}
		e := NewEnqueuer(zap.NewNop(), producer, "notifications")

		event := domain.NotificationEvent{
			Type:      domain.NotificationLowStock,
			ProductID: "prod-1",
			Data:      map[string]string{"available": "2", "threshold": "5"},
		}
		if err := e.Enqueue(context.Background(), event); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(producer.messages[0].Key) != "prod-1" {
			t.Fatalf("expected key prod-1, got %q", producer.messages[0].Key)
		}
	})

	t.Run("producer failure surfaces", func(t *testing.T) {
		t.Parallel()
		producer := &fakeProducer{err: errors.New("broker down")}
		e := NewEnqueuer(zap.NewNop(), producer, "notifications")

		err := e.Enqueue(context.Background(), domain.NotificationEvent{
			Type:    domain.NotificationOrderFailed,
			OrderID: "order-1",
		})
		if err == nil {
			t.Fatalf("expected error")
		}
	})
}

type fakeProducer struct {
	messages []kafka.Message
	err      error
}

func (f *fakeProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}
