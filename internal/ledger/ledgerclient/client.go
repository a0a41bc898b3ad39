package ledgerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ahmedm-sallam/SmartInventorySystem/internal/domain"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Client drives the inventory ledger over HTTP. Every call carries a
// bounded retry budget; reserve is idempotent per (order, product) and
// commit/release per reservation id, so replays collapse server-side.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
	attempts   uint64
	timeout    time.Duration
}

type Option func(*Client)

// WithRetryAttempts bounds the total tries per call (first try included).
func WithRetryAttempts(n uint64) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithCallTimeout bounds each individual HTTP round-trip.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func New(baseURL string, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
		attempts:   4,
		timeout:    3 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type reserveRequest struct {
	ProductID string `json:"product_id"`
	OrderID   string `json:"order_id"`
	Quantity  int    `json:"quantity"`
}

type reservationPayload struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	State     string    `json:"state"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type commitPayload struct {
	Reservation reservationPayload `json:"reservation"`
	Available   int                `json:"available"`
	Threshold   int                `json:"threshold"`
}

type errorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (c *Client) Reserve(ctx context.Context, productID string, quantity int, orderID string) (domain.Reservation, error) {
	body, err := json.Marshal(reserveRequest{ProductID: productID, OrderID: orderID, Quantity: quantity})
	if err != nil {
		return domain.Reservation{}, err
	}

	var payload reservationPayload
	if err := c.call(ctx, http.MethodPost, "/reservations", body, &payload); err != nil {
		return domain.Reservation{}, err
	}
	return payload.toDomain(), nil
}

func (c *Client) Commit(ctx context.Context, reservationID string) (domain.CommitResult, error) {
	var payload commitPayload
	path := "/reservations/" + reservationID + "/commit"
	if err := c.call(ctx, http.MethodPost, path, nil, &payload); err != nil {
		return domain.CommitResult{}, err
	}
	return domain.CommitResult{
		Reservation: payload.Reservation.toDomain(),
		Available:   payload.Available,
		Threshold:   payload.Threshold,
	}, nil
}

func (c *Client) Release(ctx context.Context, reservationID string) (domain.Reservation, error) {
	var payload reservationPayload
	path := "/reservations/" + reservationID + "/release"
	if err := c.call(ctx, http.MethodPost, path, nil, &payload); err != nil {
		return domain.Reservation{}, err
	}
	return payload.toDomain(), nil
}

// call retries transport failures and 5xx responses with exponential
// backoff until the attempt budget runs out, then reports the ledger as
// unavailable. 4xx responses map to domain errors and are never retried.
func (c *Client) call(ctx context.Context, method, path string, body []byte, out any) error {
	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(callCtx, method, c.baseURL+path, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("ledger returned status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			var payload errorPayload
			_ = json.NewDecoder(resp.Body).Decode(&payload)
			return backoff.Permanent(domainError(payload.Code, resp.StatusCode))
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("decode ledger response: %w", err)
			}
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newBackOff(), c.attempts-1),
		ctx,
	)

	err := backoff.Retry(operation, policy)
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	c.log.Warn("ledger call failed after retries",
		zap.String("method", method),
		zap.String("path", path),
		zap.Error(err),
	)
	return fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 0
	return b
}

func (p reservationPayload) toDomain() domain.Reservation {
	return domain.Reservation{
		ID:        p.ID,
		OrderID:   p.OrderID,
		ProductID: p.ProductID,
		Quantity:  p.Quantity,
		State:     domain.ReservationState(p.State),
		ExpiresAt: p.ExpiresAt,
		CreatedAt: p.CreatedAt,
	}
}

func domainError(code string, status int) error {
	switch code {
	case "insufficient_stock":
		return domain.ErrInsufficientStock
	case "inventory_not_found":
		return domain.ErrInventoryNotFound
	case "reservation_not_found":
		return domain.ErrReservationNotFound
	case "reservation_released":
		return domain.ErrReservationReleased
	case "invalid_quantity":
		return domain.ErrInvalidQuantity
	case "invalid_id":
		return domain.ErrInvalidID
	}
	return fmt.Errorf("ledger rejected request with status %d (%s)", status, code)
}

func isDomainError(err error) bool {
	for _, candidate := range []error{
		domain.ErrInsufficientStock,
		domain.ErrInventoryNotFound,
		domain.ErrReservationNotFound,
		domain.ErrReservationReleased,
		domain.ErrInvalidQuantity,
		domain.ErrInvalidID,
	} {
		if err == candidate {
			return true
		}
	}
	return false
}
