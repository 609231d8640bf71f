package collector

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parcel-ingest/internal/model"
)

func staticFetch(records ...map[string]any) FetchFunc {
	return func(context.Context, model.SourceConfig) ([]map[string]any, error) {
		return records, nil
	}
}

func TestBase_Initialize(t *testing.T) {
	t.Run("no probe url", func(t *testing.T) {
		b := NewBase("x", "", Deps{})
		require.NoError(t, b.Initialize(context.Background()))
		assert.True(t, b.IsAvailable())
	})

	t.Run("probe ok", func(t *testing.T) {
		f := &stubFetcher{}
		b := NewBase("x", "https://county.example/search", Deps{Fetcher: f})
		require.NoError(t, b.Initialize(context.Background()))
		assert.True(t, b.IsAvailable())
		assert.Equal(t, int64(1), f.probed.Load())
	})

	t.Run("probe fails", func(t *testing.T) {
		f := &stubFetcher{probeErr: errors.New("503")}
		b := NewBase("x", "https://county.example/search", Deps{Fetcher: f})
		assert.Error(t, b.Initialize(context.Background()))
		assert.False(t, b.IsAvailable())
	})
}

func TestBase_Run_Success(t *testing.T) {
	arts := &memArtifacts{}
	proc := &echoProcessor{}
	sink := &memSink{}
	b := NewBase("test", "", Deps{Artifacts: arts, Processor: proc, Sink: sink})

	src := model.SourceConfig{
		ID:       "src-1",
		Region:   model.Region{State: "MD", County: "St. Mary's"},
		Metadata: map[string]any{MetaStandardization: "st-marys-county-md"},
	}
	r := b.Run(context.Background(), src, staticFetch(
		map[string]any{"id": "A"},
		map[string]any{"id": "B"},
	))

	require.True(t, r.Success, r.Message)
	assert.Equal(t, []string{"A", "B"}, r.RecordIDs)
	assert.Equal(t, "test", r.Metadata[model.MetaCollectorType])
	assert.Equal(t, 2, r.Metadata[model.MetaRecordsFetched])
	assert.Equal(t, 0, r.Metadata[model.MetaRecordsFailed])
	assert.Contains(t, r.Metadata, model.MetaDurationMs)

	loc, _ := r.Metadata[model.MetaRawDataPath].(string)
	assert.True(t, strings.HasPrefix(loc, "mem://test_src-1_"), loc)
	assert.Len(t, arts.saved, 1)

	assert.Equal(t, []string{"st-marys-county-md", "st-marys-county-md"}, proc.types)
	require.Contains(t, sink.records, "A")
	assert.Equal(t, "MD", sink.records["A"].State)
}

func TestBase_Run_DefaultsStandardizationToCollectorType(t *testing.T) {
	proc := &echoProcessor{}
	b := NewBase("csv-export", "", Deps{Processor: proc})
	r := b.Run(context.Background(), model.SourceConfig{ID: "s"}, staticFetch(map[string]any{"id": "A"}))
	require.True(t, r.Success)
	assert.Equal(t, []string{"csv-export"}, proc.types)
}

func TestBase_Run_RecordFailuresAreCounted(t *testing.T) {
	sink := &memSink{failOn: "C"}
	b := NewBase("test", "", Deps{Processor: &echoProcessor{}, Sink: sink})

	r := b.Run(context.Background(), model.SourceConfig{ID: "s"}, staticFetch(
		map[string]any{"id": "A"},
		map[string]any{"id": "fail"},
		map[string]any{"id": "C"},
	))

	require.True(t, r.Success)
	assert.Equal(t, []string{"A"}, r.RecordIDs)
	assert.Equal(t, 2, r.Metadata[model.MetaRecordsFailed])
	assert.Equal(t, 3, r.Metadata[model.MetaRecordsFetched])
}

func TestBase_Run_SnapshotFailureIsNotFatal(t *testing.T) {
	b := NewBase("test", "", Deps{Artifacts: &memArtifacts{err: errors.New("disk full")}})
	r := b.Run(context.Background(), model.SourceConfig{ID: "s"}, staticFetch(map[string]any{"id": "A"}))
	require.True(t, r.Success)
	assert.NotContains(t, r.Metadata, model.MetaRawDataPath)
}

func TestBase_Run_FetchError(t *testing.T) {
	b := NewBase("test", "", Deps{})
	r := b.Run(context.Background(), model.SourceConfig{ID: "s"}, func(context.Context, model.SourceConfig) ([]map[string]any, error) {
		return nil, errors.New("connection refused")
	})
	assert.False(t, r.Success)
	assert.Equal(t, KindCollectionError, r.ErrorKind())
	assert.Contains(t, r.Message, "connection refused")
}

func TestBase_Run_FetchPanic(t *testing.T) {
	b := NewBase("test", "", Deps{})
	r := b.Run(context.Background(), model.SourceConfig{ID: "s"}, func(context.Context, model.SourceConfig) ([]map[string]any, error) {
		panic("nil map")
	})
	assert.False(t, r.Success)
	assert.Equal(t, KindCollectionError, r.ErrorKind())
	assert.Contains(t, r.Message, "nil map")
}

func TestBase_Run_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := NewBase("test", "", Deps{Processor: &echoProcessor{}})
	r := b.Run(ctx, model.SourceConfig{ID: "s"}, staticFetch(map[string]any{"id": "A"}))
	assert.False(t, r.Success)
	assert.Contains(t, r.Message, "cancelled")
}

func TestBase_Run_WithoutProcessor(t *testing.T) {
	b := NewBase("test", "", Deps{})
	r := b.Run(context.Background(), model.SourceConfig{ID: "s"}, staticFetch(map[string]any{"id": "A"}))
	require.True(t, r.Success)
	assert.Empty(t, r.RecordIDs)
	assert.Equal(t, 1, r.Metadata[model.MetaRecordsFetched])
}

func TestMetadataInt(t *testing.T) {
	src := model.SourceConfig{Metadata: map[string]any{"a": 3, "b": float64(7), "c": int64(9), "d": "x"}}
	assert.Equal(t, 3, metadataInt(src, "a", 0))
	assert.Equal(t, 7, metadataInt(src, "b", 0))
	assert.Equal(t, 9, metadataInt(src, "c", 0))
	assert.Equal(t, 5, metadataInt(src, "d", 5))
	assert.Equal(t, 5, metadataInt(src, "missing", 5))
}
