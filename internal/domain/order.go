package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusValidating OrderStatus = "validating"
	OrderStatusReserving  OrderStatus = "reserving"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	// OrderStatusConfirmedWithIssues marks an order past the commit point of
	// no return where some items could not be committed after retries. It is
	// surfaced for manual reconciliation, never rolled back.
	OrderStatusConfirmedWithIssues OrderStatus = "confirmed_with_issues"
	OrderStatusFailed              OrderStatus = "failed"
)

// Terminal reports whether no further transitions are expected. A degraded
// confirmation counts as terminal from the caller's perspective.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusConfirmed, OrderStatusConfirmedWithIssues, OrderStatusFailed:
		return true
	}
	return false
}

type FailureReason string

const (
	ReasonNone                  FailureReason = ""
	ReasonUnknownProduct        FailureReason = "unknown_product"
	ReasonOutOfStock            FailureReason = "out_of_stock"
	ReasonDependencyUnavailable FailureReason = "dependency_unavailable"
)

type Order struct {
	ID               string
	IdempotencyKey   string
	CustomerName     string
	CustomerEmail    string
	Status           OrderStatus
	FailureReason    FailureReason
	Items            []OrderItem
	ItemsFingerprint string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// OrderItem snapshots the unit price at validation time; later catalog
// price changes never alter a placed order.
type OrderItem struct {
	ProductID      string
	Quantity       int
	UnitPriceCents int64
}

func (o Order) TotalCents() int64 {
	var total int64
	for _, item := range o.Items {
		total += int64(item.Quantity) * item.UnitPriceCents
	}
	return total
}
