package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ahmedm-sallam/SmartInventorySystem/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerRepository persists inventory records and reservations. All stock
// arithmetic happens under a per-product row lock taken by
// GetInventoryForUpdate, so concurrent reserves serialize per product.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

func (r *LedgerRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *LedgerRepository) GetInventoryForUpdate(ctx context.Context, productID string) (domain.InventoryRecord, error) {
	const query = `
SELECT product_id, total, reserved, threshold
FROM inventory
WHERE product_id = $1
FOR UPDATE`

	return r.scanInventory(r.queryRow(ctx, query, productID))
}

func (r *LedgerRepository) GetInventory(ctx context.Context, productID string) (domain.InventoryRecord, error) {
	const query = `SELECT product_id, total, reserved, threshold FROM inventory WHERE product_id = $1`
	return r.scanInventory(r.queryRow(ctx, query, productID))
}

func (r *LedgerRepository) scanInventory(row pgx.Row) (domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	err := row.Scan(&rec.ProductID, &rec.Total, &rec.Reserved, &rec.Threshold)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.InventoryRecord{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.InventoryRecord{}, domain.ErrInventoryNotFound
		}
		return domain.InventoryRecord{}, fmt.Errorf("get inventory: %w", err)
	}
	return rec, nil
}

// AdjustReserved moves the reserved counter by delta. The CHECK constraint
// on the table rejects any adjustment that would take reserved below zero
// or above total.
func (r *LedgerRepository) AdjustReserved(ctx context.Context, productID string, delta int) error {
	const stmt = `UPDATE inventory SET reserved = reserved + $2 WHERE product_id = $1`

	tag, err := r.exec(ctx, stmt, productID, delta)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInsufficientStock
		}
		return fmt.Errorf("adjust reserved: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInventoryNotFound
	}
	return nil
}

func (r *LedgerRepository) FindReservationByOrderAndProduct(ctx context.Context, orderID, productID string) (*domain.Reservation, error) {
	const query = `
SELECT id, order_id, product_id, quantity, state, expires_at, created_at
FROM reservations
WHERE order_id = $1 AND product_id = $2`

	res, err := r.scanReservation(r.queryRow(ctx, query, orderID, productID))
	if err != nil {
		if err == domain.ErrReservationNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &res, nil
}

func (r *LedgerRepository) GetReservationForUpdate(ctx context.Context, reservationID string) (domain.Reservation, error) {
	const query = `
SELECT id, order_id, product_id, quantity, state, expires_at, created_at
FROM reservations
WHERE id = $1
FOR UPDATE`

	return r.scanReservation(r.queryRow(ctx, query, reservationID))
}

func (r *LedgerRepository) scanReservation(row pgx.Row) (domain.Reservation, error) {
	var res domain.Reservation
	var state string
	err := row.Scan(&res.ID, &res.OrderID, &res.ProductID, &res.Quantity, &state, &res.ExpiresAt, &res.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	res.State = domain.ReservationState(state)
	return res, nil
}

func (r *LedgerRepository) CreateReservation(ctx context.Context, res domain.Reservation) error {
	const stmt = `
INSERT INTO reservations (id, order_id, product_id, quantity, state, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.exec(ctx, stmt,
		res.ID,
		res.OrderID,
		res.ProductID,
		res.Quantity,
		res.State,
		res.ExpiresAt,
		res.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdempotencyConflict
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func (r *LedgerRepository) UpdateReservationState(ctx context.Context, reservationID string, state domain.ReservationState) error {
	const stmt = `UPDATE reservations SET state = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, reservationID, state)
	if err != nil {
		return fmt.Errorf("update reservation state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

// ExpiredHeldReservations locks and returns up to limit held reservations
// past their expiry. SKIP LOCKED keeps concurrent sweepers and in-flight
// commits out of each other's way.
func (r *LedgerRepository) ExpiredHeldReservations(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	const query = `
SELECT id, order_id, product_id, quantity, state, expires_at, created_at
FROM reservations
WHERE state = 'held' AND expires_at <= $1
ORDER BY expires_at
LIMIT $2
FOR UPDATE SKIP LOCKED`

	rows, err := r.query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired reservations: %w", err)
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		var state string
		if err := rows.Scan(&res.ID, &res.OrderID, &res.ProductID, &res.Quantity, &state, &res.ExpiresAt, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan expired reservation: %w", err)
		}
		res.State = domain.ReservationState(state)
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *LedgerRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *LedgerRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *LedgerRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
