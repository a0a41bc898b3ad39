package ledger

import (
	"context"
	"time"

	"github.com/ahmedm-sallam/SmartInventorySystem/internal/clock"
	"github.com/ahmedm-sallam/SmartInventorySystem/internal/domain"
	"github.com/google/uuid"
)

// Repository is the storage contract for the reservation primitive. All
// mutating operations run inside WithTx; GetInventoryForUpdate and
// GetReservationForUpdate take row locks that serialize writers per product
// and per reservation.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetInventoryForUpdate(ctx context.Context, productID string) (domain.InventoryRecord, error)
	GetInventory(ctx context.Context, productID string) (domain.InventoryRecord, error)
	AdjustReserved(ctx context.Context, productID string, delta int) error
	FindReservationByOrderAndProduct(ctx context.Context, orderID, productID string) (*domain.Reservation, error)
	GetReservationForUpdate(ctx context.Context, reservationID string) (domain.Reservation, error)
	CreateReservation(ctx context.Context, res domain.Reservation) error
	UpdateReservationState(ctx context.Context, reservationID string, state domain.ReservationState) error
	ExpiredHeldReservations(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error)
}

// Service owns all stock arithmetic. The sum of held and committed
// reservations never exceeds total: Reserve checks availability under the
// product row lock, and only Release returns held quantity to availability.
type Service struct {
	repo  Repository
	clock clock.Clock
	ttl   time.Duration
}

const defaultReservationTTL = 15 * time.Minute

func NewService(repo Repository, clk clock.Clock, opts ...ServiceOption) *Service {
	svc := &Service{
		repo:  repo,
		clock: clk,
		ttl:   defaultReservationTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ServiceOption func(*Service)

// WithReservationTTL overrides the default hold time for new reservations.
func WithReservationTTL(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

type ReserveInput struct {
	ProductID string
	OrderID   string
	Quantity  int
}

// Reserve atomically claims quantity for an order. Retries are collapsed:
// a reservation already recorded for (order, product) is returned as-is,
// regardless of its state, so a replayed request never double-applies.
func (s *Service) Reserve(ctx context.Context, in ReserveInput) (domain.Reservation, error) {
	if in.Quantity <= 0 {
		return domain.Reservation{}, domain.ErrInvalidQuantity
	}
	if in.OrderID == "" || in.ProductID == "" {
		return domain.Reservation{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var result domain.Reservation

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if existing, err := s.repo.FindReservationByOrderAndProduct(txCtx, in.OrderID, in.ProductID); err != nil {
			return err
		} else if existing != nil {
			result = *existing
			return nil
		}

		inv, err := s.repo.GetInventoryForUpdate(txCtx, in.ProductID)
		if err != nil {
			return err
		}
		if inv.Available() < in.Quantity {
			return domain.ErrInsufficientStock
		}

		if err := s.repo.AdjustReserved(txCtx, in.ProductID, in.Quantity); err != nil {
			return err
		}

		res := domain.Reservation{
			ID:        uuid.NewString(),
			OrderID:   in.OrderID,
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			State:     domain.ReservationHeld,
			ExpiresAt: now.Add(s.ttl),
			CreatedAt: now,
		}

		if err := s.repo.CreateReservation(txCtx, res); err != nil {
			// A concurrent retry won the insert race. Re-read so both
			// callers observe the same reservation.
			if err == domain.ErrIdempotencyConflict {
				existing, err := s.repo.FindReservationByOrderAndProduct(txCtx, in.OrderID, in.ProductID)
				if err != nil {
					return err
				}
				if existing != nil {
					result = *existing
					return nil
				}
			}
			return err
		}

		result = res
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	return result, nil
}

// Commit converts a held reservation into a permanent deduction. Committing
// an already-committed reservation is a no-op success; a released one
// cannot be committed. The result carries the post-commit stock level.
func (s *Service) Commit(ctx context.Context, reservationID string) (domain.CommitResult, error) {
	if reservationID == "" {
		return domain.CommitResult{}, domain.ErrInvalidID
	}

	var result domain.CommitResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		res, err := s.repo.GetReservationForUpdate(txCtx, reservationID)
		if err != nil {
			return err
		}

		switch res.State {
		case domain.ReservationReleased:
			return domain.ErrReservationReleased
		case domain.ReservationHeld:
			if err := s.repo.UpdateReservationState(txCtx, res.ID, domain.ReservationCommitted); err != nil {
				return err
			}
			res.State = domain.ReservationCommitted
		}

		inv, err := s.repo.GetInventory(txCtx, res.ProductID)
		if err != nil {
			return err
		}

		result = domain.CommitResult{
			Reservation: res,
			Available:   inv.Available(),
			Threshold:   inv.Threshold,
		}
		return nil
	})
	if err != nil {
		return domain.CommitResult{}, err
	}
	return result, nil
}

// Release returns a held reservation's quantity to availability. Releasing
// a released reservation is a no-op; committed reservations are never
// released through this path.
func (s *Service) Release(ctx context.Context, reservationID string) (domain.Reservation, error) {
	if reservationID == "" {
		return domain.Reservation{}, domain.ErrInvalidID
	}

	var result domain.Reservation

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		res, err := s.repo.GetReservationForUpdate(txCtx, reservationID)
		if err != nil {
			return err
		}

		if res.State == domain.ReservationHeld {
			if err := s.repo.UpdateReservationState(txCtx, res.ID, domain.ReservationReleased); err != nil {
				return err
			}
			if err := s.repo.AdjustReserved(txCtx, res.ProductID, -res.Quantity); err != nil {
				return err
			}
			res.State = domain.ReservationReleased
		}

		result = res
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	return result, nil
}

func (s *Service) GetInventory(ctx context.Context, productID string) (domain.InventoryRecord, error) {
	if productID == "" {
		return domain.InventoryRecord{}, domain.ErrInvalidID
	}
	return s.repo.GetInventory(ctx, productID)
}

// ReleaseExpired releases held reservations past their expiry, in batches,
// and reports how many were released. It backs the background sweep that
// recovers stock stranded by crashed orchestrators.
func (s *Service) ReleaseExpired(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	released := 0
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		expired, err := s.repo.ExpiredHeldReservations(txCtx, s.clock.Now(), batchSize)
		if err != nil {
			return err
		}
		for _, res := range expired {
			if err := s.repo.UpdateReservationState(txCtx, res.ID, domain.ReservationReleased); err != nil {
				return err
			}
			if err := s.repo.AdjustReserved(txCtx, res.ProductID, -res.Quantity); err != nil {
				return err
			}
			released++
		}
		return nil
	})
	if err != nil {
		return released, err
	}
	return released, nil
}
