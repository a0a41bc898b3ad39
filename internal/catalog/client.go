package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ahmedm-sallam/SmartInventorySystem/internal/domain"
	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Client reads products from the product directory service. Lookups are
// read-only and cacheable: concurrent requests for the same product are
// collapsed through singleflight, and results are kept in Redis for a
// short TTL when a cache is configured.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
	cache      *redis.Client
	cacheTTL   time.Duration
	attempts   uint64
	group      singleflight.Group
}

type Option func(*Client)

// WithCache enables the Redis product cache.
func WithCache(rdb *redis.Client, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = rdb
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

func WithRetryAttempts(n uint64) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

func New(baseURL string, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		log:        log,
		cacheTTL:   30 * time.Second,
		attempts:   3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type productPayload struct {
	ID         string `json:"id"`
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

// GetProduct returns the product or domain.ErrUnknownProduct. Transient
// directory failures are retried; after the budget the directory is
// reported unavailable.
func (c *Client) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if productID == "" {
		return domain.Product{}, domain.ErrInvalidID
	}

	if p, ok := c.cacheGet(ctx, productID); ok {
		return p, nil
	}

	v, err, _ := c.group.Do(productID, func() (any, error) {
		return c.fetch(ctx, productID)
	})
	if err != nil {
		return domain.Product{}, err
	}

	product := v.(domain.Product)
	c.cacheSet(ctx, product)
	return product, nil
}

func (c *Client) fetch(ctx context.Context, productID string) (domain.Product, error) {
	var payload productPayload

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/products/"+productID, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(domain.ErrUnknownProduct)
		case resp.StatusCode >= 500:
			return fmt.Errorf("product directory returned status %d", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("product directory returned status %d", resp.StatusCode))
		}

		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return fmt.Errorf("decode product: %w", err)
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), c.attempts-1), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, domain.ErrUnknownProduct) {
			return domain.Product{}, domain.ErrUnknownProduct
		}
		c.log.Warn("product lookup failed after retries", zap.String("product_id", productID), zap.Error(err))
		return domain.Product{}, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	return domain.Product{
		ID:         payload.ID,
		SKU:        payload.SKU,
		Name:       payload.Name,
		PriceCents: payload.PriceCents,
	}, nil
}

func (c *Client) cacheGet(ctx context.Context, productID string) (domain.Product, bool) {
	if c.cache == nil {
		return domain.Product{}, false
	}
	raw, err := c.cache.Get(ctx, cacheKey(productID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Debug("product cache read failed", zap.Error(err))
		}
		return domain.Product{}, false
	}
	var p domain.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Product{}, false
	}
	return p, true
}

func (c *Client) cacheSet(ctx context.Context, p domain.Product) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, cacheKey(p.ID), raw, c.cacheTTL).Err(); err != nil {
		c.log.Debug("product cache write failed", zap.Error(err))
	}
}

func cacheKey(productID string) string {
	return "product:" + productID
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 0
	return b
}
