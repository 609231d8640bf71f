package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/parcel-ingest/internal/resilience"
)

const (
	censusOneLineURL = "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress"
	censusBenchmark  = "Public_AR_Current"
)

type censusResponse struct {
	Result struct {
		AddressMatches []struct {
			Coordinates struct {
				X float64 `json:"x"` // longitude
				Y float64 `json:"y"` // latitude
			} `json:"coordinates"`
			MatchedAddress string `json:"matchedAddress"`
		} `json:"addressMatches"`
	} `json:"result"`
}

// CensusProvider geocodes through the US Census one-line address API.
type CensusProvider struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
}

// CensusOption configures a CensusProvider.
type CensusOption func(*CensusProvider)

// WithCensusBaseURL overrides the endpoint, for tests.
func WithCensusBaseURL(u string) CensusOption {
	return func(p *CensusProvider) { p.baseURL = u }
}

// WithCensusHTTPClient sets the HTTP client.
func WithCensusHTTPClient(hc *http.Client) CensusOption {
	return func(p *CensusProvider) { p.httpClient = hc }
}

// WithCensusRateLimit sets requests per second.
func WithCensusRateLimit(rps float64) CensusOption {
	return func(p *CensusProvider) {
		if rps > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
		}
	}
}

// WithCensusRetry sets the retry policy for transient failures.
func WithCensusRetry(cfg resilience.RetryConfig) CensusOption {
	return func(p *CensusProvider) { p.retry = cfg }
}

// NewCensusProvider creates a CensusProvider limited to 10 req/s.
func NewCensusProvider(opts ...CensusOption) *CensusProvider {
	p := &CensusProvider{
		baseURL:    censusOneLineURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *CensusProvider) Name() string { return "census" }

// Geocode implements Provider. A Census match is exact, so confidence is 1.
func (p *CensusProvider) Geocode(ctx context.Context, address string) (*Result, error) {
	if normalizeKey(address) == "" {
		return nil, nil
	}
	cfg := p.retry
	cfg.OnRetry = resilience.RetryLogger("census", "geocode")
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*Result, error) {
		return p.geocodeOnce(ctx, address)
	})
}

func (p *CensusProvider) geocodeOnce(ctx context.Context, address string) (*Result, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: census rate limit")
	}

	params := url.Values{
		"address":   {address},
		"benchmark": {censusBenchmark},
		"format":    {"json"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census build request")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return nil, resilience.NewTransientError(
			eris.Errorf("geocode: census returned status %d", resp.StatusCode), resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: census returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census read body")
	}
	var parsed censusResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "geocode: census parse response")
	}
	if len(parsed.Result.AddressMatches) == 0 {
		return nil, nil
	}

	m := parsed.Result.AddressMatches[0]
	return &Result{
		Latitude:         m.Coordinates.Y,
		Longitude:        m.Coordinates.X,
		FormattedAddress: m.MatchedAddress,
		Confidence:       1.0,
	}, nil
}
