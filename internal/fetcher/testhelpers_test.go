package fetcher

import (
	"os"
	"time"

	"github.com/sells-group/parcel-ingest/internal/resilience"
)

func writeTestFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

// fastHTTP returns a fetcher that retries without real delays.
func fastHTTP(maxRetries int) *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		MaxRetries: maxRetries,
		HostRate:   1000,
		Retry: resilience.RetryConfig{
			InitialBackoff: time.Millisecond,
			MaxBackoff:     2 * time.Millisecond,
		},
	})
}
