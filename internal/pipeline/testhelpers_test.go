package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sells-group/parcel-ingest/pkg/geocode"
)

type stubGeocoder struct {
	calls  atomic.Int64
	result *geocode.Result
	err    error
	last   atomic.Value
}

func (s *stubGeocoder) Geocode(_ context.Context, address string) (*geocode.Result, error) {
	s.calls.Add(1)
	s.last.Store(address)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestPipeline(g Geocoder) *Pipeline {
	p := New(g)
	p.now = func() time.Time { return fixedNow }
	return p
}
