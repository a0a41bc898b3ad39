package order

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ahmedm-sallam/SmartInventorySystem/internal/clock"
	"github.com/ahmedm-sallam/SmartInventorySystem/internal/domain"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Catalog is the read-only product directory dependency.
type Catalog interface {
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
}

// Ledger is the inventory ledger dependency. Reserve is idempotent per
// (order, product); Commit and Release per reservation id.
type Ledger interface {
	Reserve(ctx context.Context, productID string, quantity int, orderID string) (domain.Reservation, error)
	Commit(ctx context.Context, reservationID string) (domain.CommitResult, error)
	Release(ctx context.Context, reservationID string) (domain.Reservation, error)
}

// Notifier enqueues events for the notification dispatcher. Enqueue
// failures never affect order state.
type Notifier interface {
	Enqueue(ctx context.Context, event domain.NotificationEvent) error
}

type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateOrder(ctx context.Context, o domain.Order) error
	FindOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	InsertOrderItems(ctx context.Context, orderID string, items []domain.OrderItem) error
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus, reason domain.FailureReason, now time.Time) error
	ListOrders(ctx context.Context, limit, offset int) ([]domain.Order, error)
	ListOrdersByCustomer(ctx context.Context, email string) ([]domain.Order, error)
}

// Service is the order fulfillment orchestrator. It owns the order state
// machine exclusively and never mutates stock directly; all stock
// arithmetic goes through the ledger.
type Service struct {
	repo     Repository
	catalog  Catalog
	ledger   Ledger
	notifier Notifier
	clock    clock.Clock
	log      *zap.Logger
	tracer   trace.Tracer
}

func NewService(repo Repository, cat Catalog, led Ledger, notifier Notifier, clk clock.Clock, log *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		catalog:  cat,
		ledger:   led,
		notifier: notifier,
		clock:    clk,
		log:      log,
		tracer:   otel.Tracer("order-fulfillment"),
	}
}

type ItemInput struct {
	ProductID string
	Quantity  int
}

type PlaceOrderInput struct {
	IdempotencyKey string
	CustomerName   string
	CustomerEmail  string
	Items          []ItemInput
}

type PlaceOrderResult struct {
	Order   domain.Order
	Created bool
}

// PlaceOrder validates, reserves, and confirms an order, returning a
// terminal (or degraded) status synchronously. A replay with the same
// idempotency key returns the stored outcome without re-executing side
// effects; the same key with different items is a conflict.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (PlaceOrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "PlaceOrder")
	defer span.End()

	if err := validateInput(in); err != nil {
		return PlaceOrderResult{}, err
	}

	fingerprint := itemsFingerprint(in.Items)
	now := s.clock.Now()

	o, created, err := s.createOrReuse(ctx, in, fingerprint, now)
	if err != nil {
		return PlaceOrderResult{}, err
	}
	if !created {
		return PlaceOrderResult{Order: o, Created: false}, nil
	}

	span.SetAttributes(attribute.String("order.id", o.ID))

	o = s.fulfill(ctx, o, in.Items)
	return PlaceOrderResult{Order: o, Created: true}, nil
}

func validateInput(in PlaceOrderInput) error {
	if in.IdempotencyKey == "" {
		return domain.ErrIdempotencyKeyRequired
	}
	if len(in.Items) == 0 {
		return domain.ErrEmptyOrder
	}
	seen := make(map[string]struct{}, len(in.Items))
	for _, item := range in.Items {
		if item.ProductID == "" {
			return domain.ErrInvalidID
		}
		if item.Quantity <= 0 {
			return domain.ErrInvalidQuantity
		}
		if _, dup := seen[item.ProductID]; dup {
			return domain.ErrDuplicateOrderItem
		}
		seen[item.ProductID] = struct{}{}
	}
	return nil
}

// createOrReuse is the atomic create-if-absent on the idempotency key.
func (s *Service) createOrReuse(ctx context.Context, in PlaceOrderInput, fingerprint string, now time.Time) (domain.Order, bool, error) {
	var result domain.Order
	created := false

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if existing, err := s.repo.FindOrderByIdempotencyKey(txCtx, in.IdempotencyKey); err != nil {
			return err
		} else if existing != nil {
			if existing.ItemsFingerprint != fingerprint {
				return domain.ErrIdempotencyConflict
			}
			result = *existing
			return nil
		}

		o := domain.Order{
			ID:               uuid.NewString(),
			IdempotencyKey:   in.IdempotencyKey,
			CustomerName:     in.CustomerName,
			CustomerEmail:    in.CustomerEmail,
			Status:           domain.OrderStatusPending,
			ItemsFingerprint: fingerprint,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		if err := s.repo.CreateOrder(txCtx, o); err != nil {
			// Lost the insert race against a concurrent retry; surface
			// the winner's order instead.
			if err == domain.ErrIdempotencyConflict {
				existing, err := s.repo.FindOrderByIdempotencyKey(txCtx, in.IdempotencyKey)
				if err != nil {
					return err
				}
				if existing != nil {
					if existing.ItemsFingerprint != fingerprint {
						return domain.ErrIdempotencyConflict
					}
					result = *existing
					return nil
				}
			}
			return err
		}

		result = o
		created = true
		return nil
	})
	if err != nil {
		return domain.Order{}, false, err
	}
	return result, created, nil
}

// fulfill drives a freshly created order through the state machine. It
// always returns the order in a terminal or degraded state; errors along
// the way become the order's failure reason rather than bubbling up.
func (s *Service) fulfill(ctx context.Context, o domain.Order, items []ItemInput) domain.Order {
	priced, failReason := s.validateProducts(ctx, &o, items)
	if failReason != domain.ReasonNone {
		return s.fail(ctx, o, failReason)
	}

	reservations, failReason := s.reserveAll(ctx, &o, priced)
	if failReason != domain.ReasonNone {
		return s.fail(ctx, o, failReason)
	}

	return s.commitAll(ctx, o, reservations)
}

func (s *Service) validateProducts(ctx context.Context, o *domain.Order, items []ItemInput) ([]domain.OrderItem, domain.FailureReason) {
	ctx, span := s.tracer.Start(ctx, "ValidateProducts")
	defer span.End()

	s.setStatus(ctx, o, domain.OrderStatusValidating, domain.ReasonNone)

	priced := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrUnknownProduct) {
				s.log.Warn("order references unknown product",
					zap.String("order_id", o.ID),
					zap.String("product_id", item.ProductID),
				)
				return nil, domain.ReasonUnknownProduct
			}
			s.log.Error("product directory lookup failed",
				zap.String("order_id", o.ID),
				zap.String("product_id", item.ProductID),
				zap.Error(err),
			)
			return nil, domain.ReasonDependencyUnavailable
		}
		priced = append(priced, domain.OrderItem{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPriceCents: product.PriceCents,
		})
	}

	// Prices are snapshotted here and never recomputed.
	if err := s.repo.InsertOrderItems(ctx, o.ID, priced); err != nil {
		s.log.Error("persist order items", zap.String("order_id", o.ID), zap.Error(err))
		return nil, domain.ReasonDependencyUnavailable
	}
	o.Items = priced
	return priced, domain.ReasonNone
}

// reserveAll requests holds in ascending product id order so concurrent
// orders contending for overlapping product sets cannot circular-wait.
// On any failure every granted hold is released before reporting.
func (s *Service) reserveAll(ctx context.Context, o *domain.Order, items []domain.OrderItem) ([]domain.Reservation, domain.FailureReason) {
	ctx, span := s.tracer.Start(ctx, "ReserveInventory")
	defer span.End()

	s.setStatus(ctx, o, domain.OrderStatusReserving, domain.ReasonNone)

	sorted := make([]domain.OrderItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	granted := make([]domain.Reservation, 0, len(sorted))
	for _, item := range sorted {
		res, err := s.ledger.Reserve(ctx, item.ProductID, item.Quantity, o.ID)
		if err != nil {
			s.releaseAll(ctx, o.ID, granted)
			if errors.Is(err, domain.ErrInsufficientStock) {
				return nil, domain.ReasonOutOfStock
			}
			s.log.Error("reserve failed",
				zap.String("order_id", o.ID),
				zap.String("product_id", item.ProductID),
				zap.Error(err),
			)
			return nil, domain.ReasonDependencyUnavailable
		}
		granted = append(granted, res)
	}
	return granted, domain.ReasonNone
}

func (s *Service) releaseAll(ctx context.Context, orderID string, reservations []domain.Reservation) {
	for i := len(reservations) - 1; i >= 0; i-- {
		res := reservations[i]
		if _, err := s.ledger.Release(ctx, res.ID); err != nil {
			// The expiry sweep will reclaim it; nothing more to do here.
			s.log.Error("release failed, hold left to expiry sweep",
				zap.String("order_id", orderID),
				zap.String("reservation_id", res.ID),
				zap.Error(err),
			)
		}
	}
}

// commitAll converts all holds. The first successful commit is the point
// of no return: later failures degrade the order for manual reconciliation
// instead of rolling back already-promised units. Only when not a single
// commit landed is rollback still safe.
func (s *Service) commitAll(ctx context.Context, o domain.Order, reservations []domain.Reservation) domain.Order {
	ctx, span := s.tracer.Start(ctx, "CommitReservations")
	defer span.End()

	var lowStock []domain.CommitResult
	committed := 0
	failed := 0

	for _, res := range reservations {
		result, err := s.ledger.Commit(ctx, res.ID)
		if err != nil {
			failed++
			s.log.Error("commit failed after retries",
				zap.String("order_id", o.ID),
				zap.String("reservation_id", res.ID),
				zap.Error(err),
			)
			continue
		}
		committed++
		if result.LowStock() {
			lowStock = append(lowStock, result)
		}
	}

	if committed == 0 && failed > 0 {
		s.releaseAll(ctx, o.ID, reservations)
		return s.fail(ctx, o, domain.ReasonDependencyUnavailable)
	}

	status := domain.OrderStatusConfirmed
	if failed > 0 {
		status = domain.OrderStatusConfirmedWithIssues
		s.log.Warn("order confirmed with uncommitted items, needs reconciliation",
			zap.String("order_id", o.ID),
			zap.Int("committed", committed),
			zap.Int("failed", failed),
		)
	}
	s.setStatus(ctx, &o, status, domain.ReasonNone)

	s.enqueue(ctx, domain.NotificationEvent{
		Type:      domain.NotificationOrderConfirmed,
		OrderID:   o.ID,
		Recipient: o.CustomerEmail,
		Data: map[string]string{
			"status":      string(status),
			"total_cents": strconv.FormatInt(o.TotalCents(), 10),
		},
		OccurredAt: s.clock.Now(),
	})

	for _, result := range lowStock {
		s.enqueue(ctx, domain.NotificationEvent{
			Type:      domain.NotificationLowStock,
			ProductID: result.Reservation.ProductID,
			Data: map[string]string{
				"available": strconv.Itoa(result.Available),
				"threshold": strconv.Itoa(result.Threshold),
			},
			OccurredAt: s.clock.Now(),
		})
	}

	return o
}

func (s *Service) fail(ctx context.Context, o domain.Order, reason domain.FailureReason) domain.Order {
	s.setStatus(ctx, &o, domain.OrderStatusFailed, reason)

	s.enqueue(ctx, domain.NotificationEvent{
		Type:      domain.NotificationOrderFailed,
		OrderID:   o.ID,
		Recipient: o.CustomerEmail,
		Data: map[string]string{
			"reason": string(reason),
		},
		OccurredAt: s.clock.Now(),
	})
	return o
}

func (s *Service) setStatus(ctx context.Context, o *domain.Order, status domain.OrderStatus, reason domain.FailureReason) {
	now := s.clock.Now()
	if err := s.repo.UpdateOrderStatus(ctx, o.ID, status, reason, now); err != nil {
		s.log.Error("persist order status",
			zap.String("order_id", o.ID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
	o.Status = status
	o.FailureReason = reason
	o.UpdatedAt = now
}

func (s *Service) enqueue(ctx context.Context, event domain.NotificationEvent) {
	// Best effort: a lost notification never changes order state.
	_ = s.notifier.Enqueue(ctx, event)
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	if orderID == "" {
		return domain.Order{}, domain.ErrInvalidID
	}
	return s.repo.GetOrder(ctx, orderID)
}

func (s *Service) ListOrders(ctx context.Context, limit, offset int) ([]domain.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListOrders(ctx, limit, offset)
}

func (s *Service) ListOrdersByCustomer(ctx context.Context, email string) ([]domain.Order, error) {
	if email == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListOrdersByCustomer(ctx, email)
}

// itemsFingerprint canonicalizes the requested items so idempotency-key
// replays can be told apart from key reuse with a different payload.
func itemsFingerprint(items []ItemInput) string {
	sorted := make([]ItemInput, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	var b strings.Builder
	for _, item := range sorted {
		b.WriteString(item.ProductID)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(item.Quantity))
		b.WriteByte('|')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
