package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/parcel-ingest/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	// HostRate is the default requests per second allowed against one host.
	// County portals are small; keep this low.
	HostRate float64
	// HostLimits overrides HostRate for specific hosts.
	HostLimits map[string]float64
	// Retry overrides the backoff policy. MaxAttempts is taken from MaxRetries.
	Retry resilience.RetryConfig
}

// AdaptiveLimiter wraps a rate.Limiter that slows down when a host answers
// 429 and recovers gradually on success. The rate stays within
// [initial/4, initial*2].
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	initialRate rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive limiter starting at initialRate.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, max(1, burst)),
		initialRate: initialRate,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess raises the rate by 20%.
func (a *AdaptiveLimiter) OnSuccess() {
	a.setRate(func(cur rate.Limit) rate.Limit { return min(cur*1.2, a.initialRate*2) })
}

// OnRateLimit halves the rate.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.setRate(func(cur rate.Limit) rate.Limit { return max(cur*0.5, a.initialRate/4) })
	zap.L().Warn("fetcher: host rate limited, slowing down",
		zap.Float64("new_rate", float64(a.Limit())),
	)
}

func (a *AdaptiveLimiter) setRate(next func(rate.Limit) rate.Limit) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = next(a.currentRate)
	a.limiter.SetLimit(a.currentRate)
}

// Limit returns the current rate.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// HTTPFetcher implements Fetcher over net/http with retries and a per-host
// adaptive rate limit.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions
	log    *zap.Logger

	mu       sync.Mutex
	limiters map[string]*AdaptiveLimiter
}

// NewHTTPFetcher creates an HTTPFetcher.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "parcel-ingest/1.0"
	}
	if opts.HostRate <= 0 {
		opts.HostRate = 2
	}
	if opts.Retry.InitialBackoff == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
		opts.Retry.InitialBackoff = time.Second
	}
	opts.Retry.MaxAttempts = opts.MaxRetries

	transport := &http.Transport{
		MaxIdleConnsPerHost: 4,
		MaxConnsPerHost:     8,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client:   &http.Client{Timeout: opts.Timeout, Transport: transport},
		opts:     opts,
		log:      zap.L().With(zap.String("component", "fetcher.http")),
		limiters: make(map[string]*AdaptiveLimiter),
	}
}

// limiterFor returns the host's limiter, creating it on first use.
func (f *HTTPFetcher) limiterFor(u *url.URL) *AdaptiveLimiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lim, ok := f.limiters[u.Host]; ok {
		return lim
	}
	r := f.opts.HostRate
	if override, ok := f.opts.HostLimits[u.Host]; ok && override > 0 {
		r = override
	}
	lim := NewAdaptiveLimiter(rate.Limit(r), int(r)+1)
	f.limiters[u.Host] = lim
	return lim
}

// do sends req with retries. Transient statuses are retried; any other
// response is returned to the caller with its body open.
func (f *HTTPFetcher) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse url %q", rawURL)
	}
	lim := f.limiterFor(u)

	cfg := f.opts.Retry
	cfg.OnRetry = func(attempt int, err error) {
		f.log.Warn("fetcher: request failed, retrying",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*http.Response, error) {
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: create request")
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrap(err, "fetcher: http request"), 0)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			lim.OnRateLimit()
		}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			_ = resp.Body.Close()
			return nil, resilience.NewTransientError(
				eris.Errorf("fetcher: http %d from %s", resp.StatusCode, rawURL), resp.StatusCode)
		}
		lim.OnSuccess()
		return resp, nil
	})
}

// Download fetches the URL and returns the body. Non-200 responses are errors.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := f.do(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: download")
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, eris.Errorf("fetcher: download: unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	return resp.Body, nil
}

// DownloadToFile fetches the URL into path.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck
	return writeToFile(body, path)
}

// Probe sends a HEAD request. Any status below 400 counts as reachable;
// servers that reject HEAD with 405 are retried with GET.
func (f *HTTPFetcher) Probe(ctx context.Context, rawURL string) error {
	resp, err := f.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return eris.Wrap(err, "fetcher: probe")
	}
	_ = resp.Body.Close()

	if resp.StatusCode == http.StatusMethodNotAllowed {
		resp, err = f.do(ctx, http.MethodGet, rawURL)
		if err != nil {
			return eris.Wrap(err, "fetcher: probe")
		}
		_ = resp.Body.Close()
	}
	if resp.StatusCode >= 400 {
		return eris.Errorf("fetcher: probe: status %d from %s", resp.StatusCode, rawURL)
	}
	return nil
}

func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrap(err, "fetcher: create parent directory")
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create file")
	}
	return file, nil
}
