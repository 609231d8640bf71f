package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parcel-ingest/internal/resilience"
)

const censusMatchJSON = `{"result":{"addressMatches":[{"coordinates":{"x":-76.6355,"y":38.2912},"matchedAddress":"1000 MAIN ST, LEONARDTOWN, MD, 20650"}]}}`

func newTestCensus(url string) *CensusProvider {
	return NewCensusProvider(
		WithCensusBaseURL(url),
		WithCensusRateLimit(1000),
		WithCensusRetry(resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}),
	)
}

func TestCensusProvider_Match(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1000 Main St, Leonardtown, MD 20650", r.URL.Query().Get("address"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		_, _ = w.Write([]byte(censusMatchJSON))
	}))
	defer srv.Close()

	r, err := newTestCensus(srv.URL).Geocode(context.Background(), "1000 Main St, Leonardtown, MD 20650")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.InDelta(t, 38.2912, r.Latitude, 1e-6)
	assert.InDelta(t, -76.6355, r.Longitude, 1e-6)
	assert.Equal(t, 1.0, r.Confidence)
	assert.Equal(t, "1000 MAIN ST, LEONARDTOWN, MD, 20650", r.FormattedAddress)
}

func TestCensusProvider_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"addressMatches":[]}}`))
	}))
	defer srv.Close()

	r, err := newTestCensus(srv.URL).Geocode(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestCensusProvider_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(censusMatchJSON))
	}))
	defer srv.Close()

	r, err := newTestCensus(srv.URL).Geocode(context.Background(), "1000 Main St")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, int64(3), calls.Load())
}

func TestCensusProvider_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestCensus(srv.URL).Geocode(context.Background(), "1000 Main St")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int64(1), calls.Load())
}

func TestCensusProvider_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	_, err := newTestCensus(srv.URL).Geocode(context.Background(), "1000 Main St")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse response")
}

func TestCensusProvider_EmptyAddress(t *testing.T) {
	p := NewCensusProvider(WithCensusBaseURL("http://127.0.0.1:1"))
	r, err := p.Geocode(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.Equal(t, "census", p.Name())
}
