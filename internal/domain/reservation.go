package domain

import "time"

type ReservationState string

const (
	ReservationHeld      ReservationState = "held"
	ReservationCommitted ReservationState = "committed"
	ReservationReleased  ReservationState = "released"
)

// Reservation is a provisional, time-bounded claim on stock tied to one
// order and one product. Only a reservation may decrement available-to-sell.
type Reservation struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int
	State     ReservationState
	ExpiresAt time.Time
	CreatedAt time.Time
}

// CommitResult carries the reservation after a commit together with the
// post-commit stock level, so callers can detect low stock without a
// second ledger round-trip.
type CommitResult struct {
	Reservation Reservation
	Available   int
	Threshold   int
}

func (c CommitResult) LowStock() bool {
	return c.Available <= c.Threshold
}
