package geocode

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parcel-ingest/internal/resilience"
)

// Client resolves addresses through a Provider, caching every match.
type Client struct {
	provider Provider
	cache    *Cache
	breaker  *resilience.CircuitBreaker

	breakerCfg resilience.CircuitBreakerConfig
}

// Option configures a Client.
type Option func(*Client)

// WithCache replaces the client's cache, for sharing one cache between
// clients.
func WithCache(c *Cache) Option {
	return func(cl *Client) {
		if c != nil {
			cl.cache = c
		}
	}
}

// WithCacheSize sets the bound of the client's own cache.
func WithCacheSize(n int) Option {
	return func(cl *Client) { cl.cache = NewCache(n) }
}

// WithCircuitBreaker sets how many consecutive provider failures stop calls
// and for how long.
func WithCircuitBreaker(failureThreshold int, resetTimeout time.Duration) Option {
	return func(cl *Client) {
		cl.breakerCfg.FailureThreshold = failureThreshold
		cl.breakerCfg.ResetTimeout = resetTimeout
	}
}

// NewClient creates a Client over provider.
func NewClient(provider Provider, opts ...Option) *Client {
	c := &Client{
		provider:   provider,
		cache:      NewCache(DefaultCacheSize),
		breakerCfg: resilience.DefaultCircuitBreakerConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breakerCfg.Name = "geocode." + provider.Name()
	c.breaker = resilience.NewCircuitBreaker(c.breakerCfg)
	return c
}

// Geocode resolves address. An empty address returns (nil, nil) without
// calling the provider; so does a provider miss. Misses are not cached.
func (c *Client) Geocode(ctx context.Context, address string) (*Result, error) {
	if strings.TrimSpace(address) == "" {
		return nil, nil
	}
	if cached, ok := c.cache.Get(address); ok {
		return cached, nil
	}

	result, err := resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) (*Result, error) {
		return c.provider.Geocode(ctx, address)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: %s provider", c.provider.Name())
	}
	if result == nil {
		return nil, nil
	}

	c.cache.Set(address, *result)
	out := *result
	return &out, nil
}

// ClearCache empties the cache and closes the provider circuit, so the next
// lookup of any address reaches the provider.
func (c *Client) ClearCache() {
	c.cache.Clear()
	c.breaker.Reset()
}

// CacheSize reports the number of cached addresses.
func (c *Client) CacheSize() int { return c.cache.Len() }

// Provider returns the underlying provider.
func (c *Client) Provider() Provider { return c.provider }
