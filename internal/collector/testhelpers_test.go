package collector

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sells-group/parcel-ingest/internal/fetcher"
	"github.com/sells-group/parcel-ingest/internal/model"
	"github.com/sells-group/parcel-ingest/internal/resilience"
)

// fakeCollector is a DataCollector driven by closures.
type fakeCollector struct {
	typ       string
	available bool
	initErr   error
	initPanic bool
	collect   func(ctx context.Context, src model.SourceConfig) *model.CollectionResult
	inits     atomic.Int64
}

func (f *fakeCollector) Type() string { return f.typ }

func (f *fakeCollector) Initialize(context.Context) error {
	f.inits.Add(1)
	if f.initPanic {
		panic("init exploded")
	}
	if f.initErr != nil {
		f.available = false
		return f.initErr
	}
	f.available = true
	return nil
}

func (f *fakeCollector) IsAvailable() bool { return f.available }

func (f *fakeCollector) Collect(ctx context.Context, src model.SourceConfig) *model.CollectionResult {
	if f.collect == nil {
		return model.NewCollectionSuccess(src.ID, f.typ, []string{f.typ + "-1"}, nil)
	}
	return f.collect(ctx, src)
}

func okCollector(typ string) *fakeCollector {
	return &fakeCollector{typ: typ, available: true}
}

// memArtifacts records snapshots in memory.
type memArtifacts struct {
	mu    sync.Mutex
	saved map[string]any
	err   error
}

func (m *memArtifacts) Save(_ context.Context, name string, v any) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = map[string]any{}
	}
	m.saved[name] = v
	return "mem://" + name, nil
}

// echoProcessor maps the "id" field to ParcelID and fails on "fail".
type echoProcessor struct {
	mu    sync.Mutex
	types []string
}

func (p *echoProcessor) Process(_ context.Context, raw model.RawRecord, sourceType string) (*model.StandardizedRecord, error) {
	p.mu.Lock()
	p.types = append(p.types, sourceType)
	p.mu.Unlock()
	id, _ := raw.Fields["id"].(string)
	if id == "fail" {
		return nil, errors.New("cannot transform")
	}
	return &model.StandardizedRecord{ParcelID: id, State: raw.Region.State}, nil
}

// memSink stores records by parcel id.
type memSink struct {
	mu      sync.Mutex
	records map[string]*model.StandardizedRecord
	failOn  string
}

func (s *memSink) UpsertRecord(_ context.Context, rec *model.StandardizedRecord) error {
	if rec.ParcelID == s.failOn && s.failOn != "" {
		return errors.New("db down")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records == nil {
		s.records = map[string]*model.StandardizedRecord{}
	}
	s.records[rec.ParcelID] = rec
	return nil
}

// stubFetcher serves canned bodies without a network.
type stubFetcher struct {
	probeErr error
	probed   atomic.Int64
	body     string
}

func (s *stubFetcher) Download(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.body)), nil
}

func (s *stubFetcher) DownloadToFile(context.Context, string, string) (int64, error) {
	return 0, errors.New("not supported")
}

func (s *stubFetcher) Probe(context.Context, string) error {
	s.probed.Add(1)
	return s.probeErr
}

func testHTTPFetcher() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		MaxRetries: 1,
		HostRate:   1000,
		Retry:      resilience.RetryConfig{InitialBackoff: time.Millisecond},
	})
}
