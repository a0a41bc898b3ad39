package domain

import "errors"

var (
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrEmptyOrder             = errors.New("order has no items")
	ErrDuplicateOrderItem     = errors.New("duplicate product in order")
	ErrIdempotencyKeyRequired = errors.New("idempotency key required")
	ErrIdempotencyConflict    = errors.New("idempotency conflict")
	ErrInvalidID              = errors.New("invalid id")

	ErrUnknownProduct     = errors.New("unknown product")
	ErrCatalogUnavailable = errors.New("product directory unavailable")

	ErrInventoryNotFound   = errors.New("inventory record not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrReservationReleased = errors.New("reservation already released")
	ErrLedgerUnavailable   = errors.New("inventory ledger unavailable")

	ErrOrderNotFound = errors.New("order not found")
)
