package collector

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/parcel-ingest/internal/artifact"
	"github.com/sells-group/parcel-ingest/internal/fetcher"
	"github.com/sells-group/parcel-ingest/internal/model"
)

// MetaStandardization names the pipeline mapping for a source's records.
// It defaults to the collector type.
const MetaStandardization = "standardization"

// Deps are the collaborators every collector shares.
type Deps struct {
	Fetcher   fetcher.Fetcher
	Artifacts artifact.Store
	Processor RecordProcessor
	// Sink is optional; without it records are standardized but not stored.
	Sink    RecordSink
	TempDir string
}

// Base implements the availability flag and the collection run shared by
// all collectors. Concrete collectors embed it and supply a FetchFunc.
type Base struct {
	collectorType string
	probeURL      string
	deps          Deps
	available     atomic.Bool
	now           func() time.Time
	log           *zap.Logger
}

// NewBase creates a Base. An empty probeURL makes Initialize succeed without
// a network check, for collectors whose URL is only known per source.
func NewBase(collectorType, probeURL string, deps Deps) *Base {
	return &Base{
		collectorType: collectorType,
		probeURL:      probeURL,
		deps:          deps,
		now:           func() time.Time { return time.Now().UTC() },
		log:           zap.L().With(zap.String("component", "collector."+collectorType)),
	}
}

// Type implements DataCollector.
func (b *Base) Type() string { return b.collectorType }

// IsAvailable implements DataCollector.
func (b *Base) IsAvailable() bool { return b.available.Load() }

// Initialize implements DataCollector.
func (b *Base) Initialize(ctx context.Context) error {
	if b.probeURL == "" || b.deps.Fetcher == nil {
		b.available.Store(true)
		return nil
	}
	if err := b.deps.Fetcher.Probe(ctx, b.probeURL); err != nil {
		b.available.Store(false)
		return err
	}
	b.available.Store(true)
	return nil
}

// Run fetches the source, snapshots the raw records, and pushes each one
// through the processor and sink. A record that fails is logged and counted;
// it does not fail the run. Any fetch error or panic becomes a
// collection_error result.
func (b *Base) Run(ctx context.Context, source model.SourceConfig, fetch FetchFunc) (result *model.CollectionResult) {
	start := b.now()
	log := b.log.With(zap.String("source_id", source.ID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("collector: panic during collection", zap.Any("panic", r))
			result = model.NewCollectionFailure(source.ID, KindCollectionError,
				fmt.Sprintf("%s collection panicked: %v", b.collectorType, r))
		}
	}()

	records, err := fetch(ctx, source)
	if err != nil {
		log.Error("collector: fetch failed", zap.Error(err))
		return model.NewCollectionFailure(source.ID, KindCollectionError,
			fmt.Sprintf("%s collection failed: %v", b.collectorType, err))
	}

	meta := map[string]any{
		model.MetaCollectorType:  b.collectorType,
		model.MetaRecordsFetched: len(records),
	}
	if b.deps.Artifacts != nil {
		name := artifact.SnapshotName(b.collectorType, source.ID, start)
		loc, err := b.deps.Artifacts.Save(ctx, name, records)
		if err != nil {
			log.Warn("collector: raw snapshot not saved", zap.Error(err))
		} else {
			meta[model.MetaRawDataPath] = loc
		}
	}

	sourceType := source.MetadataString(MetaStandardization, b.collectorType)
	ids := make([]string, 0, len(records))
	failed := 0
	for i, fields := range records {
		if err := ctx.Err(); err != nil {
			return model.NewCollectionFailure(source.ID, KindCollectionError,
				fmt.Sprintf("%s collection cancelled after %d of %d records: %v", b.collectorType, i, len(records), err))
		}
		id, ok := b.handleRecord(ctx, log, source, sourceType, fields)
		if !ok {
			failed++
			continue
		}
		if id != "" {
			ids = append(ids, id)
		}
	}

	meta[model.MetaRecordsFailed] = failed
	meta[model.MetaDurationMs] = b.now().Sub(start).Milliseconds()
	log.Info("collector: collection complete",
		zap.Int("fetched", len(records)),
		zap.Int("stored", len(ids)),
		zap.Int("failed", failed),
	)
	return model.NewCollectionSuccess(source.ID,
		fmt.Sprintf("collected %d of %d records", len(ids), len(records)), ids, meta)
}

// handleRecord processes and stores one record. It reports false when the
// record failed.
func (b *Base) handleRecord(ctx context.Context, log *zap.Logger, source model.SourceConfig, sourceType string, fields map[string]any) (string, bool) {
	if b.deps.Processor == nil {
		return "", true
	}
	raw := model.RawRecord{
		SourceID:   source.ID,
		SourceType: sourceType,
		Region:     source.Region,
		Fields:     fields,
	}
	rec, err := b.deps.Processor.Process(ctx, raw, sourceType)
	if err != nil {
		log.Warn("collector: record transformation failed", zap.Error(err))
		return "", false
	}
	if b.deps.Sink != nil {
		if err := b.deps.Sink.UpsertRecord(ctx, rec); err != nil {
			log.Warn("collector: record not stored",
				zap.String("parcel_id", rec.ParcelID), zap.Error(err))
			return "", false
		}
	}
	return rec.ParcelID, true
}

// workDir creates a scratch directory under Deps.TempDir. Callers remove it.
func (b *Base) workDir(pattern string) (string, error) {
	if b.deps.TempDir != "" {
		if err := os.MkdirAll(b.deps.TempDir, 0o755); err != nil {
			return "", eris.Wrap(err, "collector: create temp dir")
		}
	}
	dir, err := os.MkdirTemp(b.deps.TempDir, pattern)
	if err != nil {
		return "", eris.Wrap(err, "collector: create work dir")
	}
	return dir, nil
}
