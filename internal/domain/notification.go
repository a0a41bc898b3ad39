package domain

import "time"

type NotificationType string

const (
	NotificationLowStock       NotificationType = "low_stock"
	NotificationOrderConfirmed NotificationType = "order_confirmed"
	NotificationOrderFailed    NotificationType = "order_failed"
)

// NotificationEvent is the fire-and-forget record handed to the dispatcher.
// Delivery is the dispatcher's problem; the orchestrator only needs the
// enqueue to be at-least-once.
type NotificationEvent struct {
	Type       NotificationType  `json:"type"`
	OrderID    string            `json:"order_id,omitempty"`
	ProductID  string            `json:"product_id,omitempty"`
	Recipient  string            `json:"recipient,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}
