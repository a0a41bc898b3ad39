package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ahmedm-sallam/SmartInventorySystem/internal/domain"
	"github.com/ahmedm-sallam/SmartInventorySystem/internal/ledger"
	"github.com/go-chi/chi/v5"
)

func TestHandleReserve(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	successReservation := domain.Reservation{
		ID:        "res-123",
		OrderID:   "order-1",
		ProductID: "prod-1",
		Quantity:  2,
		State:     domain.ReservationHeld,
		ExpiresAt: now.Add(15 * time.Minute),
		CreatedAt: now,
	}

	tests := []struct {
		name           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			body:           `{"product_id":"prod-1","order_id":"order-1","quantity":2}`,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"id":"res-123"`,
		},
		{
			name:           "invalid json",
			body:           `{"product_id":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid quantity",
			body:           `{"product_id":"prod-1","order_id":"order-1","quantity":0}`,
			serviceErr:     domain.ErrInvalidQuantity,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: `"code":"invalid_quantity"`,
		},
		{
			name:           "inventory not found",
			body:           `{"product_id":"prod-x","order_id":"order-1","quantity":1}`,
			serviceErr:     domain.ErrInventoryNotFound,
			expectedStatus: http.StatusNotFound,
			expectedSubstr: `"code":"inventory_not_found"`,
		},
		{
			name:           "insufficient stock",
			body:           `{"product_id":"prod-1","order_id":"order-1","quantity":99}`,
			serviceErr:     domain.ErrInsufficientStock,
			expectedStatus: http.StatusConflict,
			expectedSubstr: `"code":"insufficient_stock"`,
		},
		{
			name:           "internal error",
			body:           `{"product_id":"prod-1","order_id":"order-1","quantity":1}`,
			serviceErr:     errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubLedgerService{
				reservation: successReservation,
				err:         tt.serviceErr,
			}
			req := httptest.NewRequest(http.MethodPost, "/reservations", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			handler := HandleReserve(svc)
			handler.ServeHTTP(rec, req)

			res := rec.Result()
			if res.StatusCode != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, res.StatusCode)
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestHandleCommitReservation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success reports stock level",
			expectedStatus: http.StatusOK,
			expectedSubstr: `"available":3`,
		},
		{
			name:           "not found",
			serviceErr:     domain.ErrReservationNotFound,
			expectedStatus: http.StatusNotFound,
			expectedSubstr: `"code":"reservation_not_found"`,
		},
		{
			name:           "already released",
			serviceErr:     domain.ErrReservationReleased,
			expectedStatus: http.StatusConflict,
			expectedSubstr: `"code":"reservation_released"`,
		},
		{
			name:           "internal error",
			serviceErr:     errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubLedgerService{
				commitResult: domain.CommitResult{
					Reservation: domain.Reservation{ID: "res-123", State: domain.ReservationCommitted},
					Available:   3,
					Threshold:   5,
				},
				err: tt.serviceErr,
			}
			req := httptest.NewRequest(http.MethodPost, "/reservations/res-123/commit", nil)
			rec := httptest.NewRecorder()

			r := chi.NewRouter()
			r.Post("/reservations/{reservationID}/commit", HandleCommitReservation(svc))
			r.ServeHTTP(rec, req)

			res := rec.Result()
			if res.StatusCode != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, res.StatusCode)
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
			if tt.serviceErr == nil && svc.lastReservationID != "res-123" {
				t.Fatalf("expected reservation id res-123, got %q", svc.lastReservationID)
			}
		})
	}
}

func TestHandleReleaseReservation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			expectedStatus: http.StatusOK,
			expectedSubstr: `"state":"released"`,
		},
		{
			name:           "not found",
			serviceErr:     domain.ErrReservationNotFound,
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubLedgerService{
				reservation: domain.Reservation{ID: "res-123", State: domain.ReservationReleased},
				err:         tt.serviceErr,
			}
			req := httptest.NewRequest(http.MethodPost, "/reservations/res-123/release", nil)
			rec := httptest.NewRecorder()

			r := chi.NewRouter()
			r.Post("/reservations/{reservationID}/release", HandleReleaseReservation(svc))
			r.ServeHTTP(rec, req)

			res := rec.Result()
			if res.StatusCode != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, res.StatusCode)
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestHandleGetInventory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			expectedStatus: http.StatusOK,
			expectedSubstr: `"available":7`,
		},
		{
			name:           "not found",
			serviceErr:     domain.ErrInventoryNotFound,
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubLedgerService{
				record: domain.InventoryRecord{ProductID: "prod-1", Total: 10, Reserved: 3, Threshold: 5},
				err:    tt.serviceErr,
			}
			req := httptest.NewRequest(http.MethodGet, "/inventory/prod-1", nil)
			rec := httptest.NewRecorder()

			r := chi.NewRouter()
			r.Get("/inventory/{productID}", HandleGetInventory(svc))
			r.ServeHTTP(rec, req)

			res := rec.Result()
			if res.StatusCode != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, res.StatusCode)
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

type stubLedgerService struct {
	reservation       domain.Reservation
	commitResult      domain.CommitResult
	record            domain.InventoryRecord
	err               error
	lastReservationID string
}

func (s *stubLedgerService) Reserve(_ context.Context, _ ledger.ReserveInput) (domain.Reservation, error) {
	return s.reservation, s.err
}

func (s *stubLedgerService) Commit(_ context.Context, reservationID string) (domain.CommitResult, error) {
	s.lastReservationID = reservationID
	return s.commitResult, s.err
}

func (s *stubLedgerService) Release(_ context.Context, reservationID string) (domain.Reservation, error) {
	s.lastReservationID = reservationID
	return s.reservation, s.err
}

func (s *stubLedgerService) GetInventory(_ context.Context, _ string) (domain.InventoryRecord, error) {
	return s.record, s.err
}
