// Package collector fetches raw property records from external sources and
// orchestrates collection runs with bounded concurrency.
package collector

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parcel-ingest/internal/model"
)

// DataCollector retrieves records from one kind of source.
type DataCollector interface {
	// Type is the collector_type a SourceConfig selects this collector by.
	Type() string

	// Initialize probes the source and records whether it is reachable.
	// An error means the collector stays unavailable.
	Initialize(ctx context.Context) error

	// IsAvailable gates every collection attempt.
	IsAvailable() bool

	// Collect runs one collection. Failures are reported in the result,
	// never as panics.
	Collect(ctx context.Context, source model.SourceConfig) *model.CollectionResult
}

// Failure kinds recorded under model.MetaErrorKind.
const (
	KindCollectorNotFound = "collector_not_found"
	KindSourceUnavailable = "source_unavailable"
	KindCollectionError   = "collection_error"
)

// Sentinels matching the failure kinds, for callers that prefer errors.Is.
var (
	ErrCollectorNotFound = eris.New("collector: collector not found")
	ErrSourceUnavailable = eris.New("collector: source unavailable")
	ErrCollection        = eris.New("collector: collection failed")
)

// ErrFromResult converts a failed result into its sentinel error wrapped with
// the result message. It returns nil for successful results.
func ErrFromResult(r *model.CollectionResult) error {
	if r == nil {
		return eris.Wrap(ErrCollection, "nil result")
	}
	if r.Success {
		return nil
	}
	switch r.ErrorKind() {
	case KindCollectorNotFound:
		return eris.Wrap(ErrCollectorNotFound, r.Message)
	case KindSourceUnavailable:
		return eris.Wrap(ErrSourceUnavailable, r.Message)
	default:
		return eris.Wrap(ErrCollection, r.Message)
	}
}

// RecordProcessor turns a raw record into a standardized one.
// *pipeline.Pipeline satisfies it.
type RecordProcessor interface {
	Process(ctx context.Context, raw model.RawRecord, sourceType string) (*model.StandardizedRecord, error)
}

// RecordSink persists standardized records, upserting by parcel id.
type RecordSink interface {
	UpsertRecord(ctx context.Context, rec *model.StandardizedRecord) error
}

// FetchFunc downloads and parses one source into raw field bags.
type FetchFunc func(ctx context.Context, source model.SourceConfig) ([]map[string]any, error)
