package ledgerclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ahmedm-sallam/SmartInventorySystem/internal/domain"
	"go.uber.org/zap"
)

func TestClient_Reserve(t *testing.T) {
	t.Parallel()

	t.Run("success decodes reservation", func(t *testing.T) {
		t.Parallel()
		expires := time.Date(2025, 3, 1, 12, 15, 0, 0, time.UTC)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/reservations" {
				t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			}
			var req map[string]any
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req["product_id"] != "prod-1" || req["quantity"] != float64(3) {
				t.Errorf("unexpected payload: %v", req)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":         "res-1",
				"order_id":   "order-1",
				"product_id": "prod-1",
				"quantity":   3,
				"state":      "held",
				"expires_at": expires,
			})
		}))
		defer srv.Close()

		c := New(srv.URL, zap.NewNop())
		res, err := c.Reserve(context.Background(), "prod-1", 3, "order-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.ID != "res-1" || res.State != domain.ReservationHeld || !res.ExpiresAt.Equal(expires) {
			t.Fatalf("unexpected reservation: %+v", res)
		}
	})

	t.Run("insufficient stock is permanent", func(t *testing.T) {
		t.Parallel()
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"insufficient stock","code":"insufficient_stock"}`))
		}))
		defer srv.Close()

		c := New(srv.URL, zap.NewNop())
		_, err := c.Reserve(context.Background(), "prod-1", 99, "order-1")
		if !errors.Is(err, domain.ErrInsufficientStock) {
			t.Fatalf("expected ErrInsufficientStock, got %v", err)
		}
		if got := hits.Load(); got != 1 {
			t.Fatalf("expected no retries on 4xx, got %d requests", got)
		}
	})

	t.Run("server errors are retried", func(t *testing.T) {
		t.Parallel()
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"res-1","order_id":"order-1","product_id":"prod-1","quantity":1,"state":"held"}`))
		}))
		defer srv.Close()

		c := New(srv.URL, zap.NewNop())
		res, err := c.Reserve(context.Background(), "prod-1", 1, "order-1")
		if err != nil {
			t.Fatalf("expected success after retries, got %v", err)
		}
		if res.ID != "res-1" {
			t.Fatalf("unexpected reservation: %+v", res)
		}
		if got := hits.Load(); got != 3 {
			t.Fatalf("expected 3 requests, got %d", got)
		}
	})

	t.Run("exhausted retries report unavailable", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := New(srv.URL, zap.NewNop(), WithRetryAttempts(2))
		_, err := c.Reserve(context.Background(), "prod-1", 1, "order-1")
		if !errors.Is(err, domain.ErrLedgerUnavailable) {
			t.Fatalf("expected ErrLedgerUnavailable, got %v", err)
		}
	})
}

func TestClient_Commit(t *testing.T) {
	t.Parallel()

	t.Run("success reports stock level", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/reservations/res-1/commit" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"reservation":{"id":"res-1","state":"committed"},"available":2,"threshold":5}`))
		}))
		defer srv.Close()

		c := New(srv.URL, zap.NewNop())
		result, err := c.Commit(context.Background(), "res-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Reservation.State != domain.ReservationCommitted || result.Available != 2 || result.Threshold != 5 {
			t.Fatalf("unexpected result: %+v", result)
		}
		if !result.LowStock() {
			t.Fatalf("expected low stock at available 2, threshold 5")
		}
	})

	t.Run("released reservation maps to domain error", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"reservation released","code":"reservation_released"}`))
		}))
		defer srv.Close()

		c := New(srv.URL, zap.NewNop())
		_, err := c.Commit(context.Background(), "res-1")
		if !errors.Is(err, domain.ErrReservationReleased) {
			t.Fatalf("expected ErrReservationReleased, got %v", err)
		}
	})
}

func TestClient_Release(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reservations/res-1/release" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"res-1","state":"released","quantity":2}`))
	}))
	defer srv.Close()

	c := New(srv.URL, zap.NewNop())
	res, err := c.Release(context.Background(), "res-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.State != domain.ReservationReleased || res.Quantity != 2 {
		t.Fatalf("unexpected reservation: %+v", res)
	}
}
