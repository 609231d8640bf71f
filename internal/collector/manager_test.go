package collector

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parcel-ingest/internal/model"
)

func newTestManager(maxConcurrent int) *Manager {
	return NewManager(ManagerOptions{MaxConcurrent: maxConcurrent, PacingDelay: -1})
}

func TestManager_ExecuteCollections_PositionalWithMissingType(t *testing.T) {
	m := newTestManager(2)
	m.Register(okCollector("a"))
	m.Register(okCollector("b"))

	results := m.ExecuteCollections(context.Background(), []model.SourceConfig{
		{ID: "s1", CollectorType: "a"},
		{ID: "s2", CollectorType: "c"},
	})

	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.Equal(t, "s1", results[0].SourceID)
	assert.Equal(t, []string{"a-1"}, results[0].RecordIDs)

	assert.False(t, results[1].Success)
	assert.Equal(t, "s2", results[1].SourceID)
	assert.Equal(t, KindCollectorNotFound, results[1].ErrorKind())
	assert.Contains(t, results[1].Message, `"c"`)
	assert.NotEmpty(t, results[0].RunID)
	assert.NotEqual(t, results[0].RunID, results[1].RunID)
}

func TestManager_UnknownTypeNeverPanics(t *testing.T) {
	m := newTestManager(1)
	for _, src := range []model.SourceConfig{{}, {CollectorType: "x"}, {ID: "id", CollectorType: " "}} {
		r := m.ExecuteCollection(context.Background(), src)
		require.NotNil(t, r)
		assert.False(t, r.Success)
		assert.ErrorIs(t, ErrFromResult(r), ErrCollectorNotFound)
	}
}

func TestManager_UnavailableCollector(t *testing.T) {
	m := newTestManager(1)
	called := false
	m.Register(&fakeCollector{typ: "down", collect: func(context.Context, model.SourceConfig) *model.CollectionResult {
		called = true
		return nil
	}})

	r := m.ExecuteCollection(context.Background(), model.SourceConfig{ID: "s", CollectorType: "down"})
	assert.False(t, r.Success)
	assert.Equal(t, KindSourceUnavailable, r.ErrorKind())
	assert.ErrorIs(t, ErrFromResult(r), ErrSourceUnavailable)
	assert.False(t, called)
}

func TestManager_PanicAndNilResult(t *testing.T) {
	m := newTestManager(1)
	m.Register(&fakeCollector{typ: "boom", available: true, collect: func(context.Context, model.SourceConfig) *model.CollectionResult {
		panic("kaboom")
	}})
	m.Register(&fakeCollector{typ: "nil", available: true, collect: func(context.Context, model.SourceConfig) *model.CollectionResult {
		return nil
	}})

	r := m.ExecuteCollection(context.Background(), model.SourceConfig{CollectorType: "boom"})
	assert.False(t, r.Success)
	assert.Equal(t, KindCollectionError, r.ErrorKind())
	assert.Contains(t, r.Message, "kaboom")
	assert.Equal(t, 0, m.Active())

	r = m.ExecuteCollection(context.Background(), model.SourceConfig{CollectorType: "nil"})
	assert.False(t, r.Success)
	assert.Equal(t, KindCollectionError, r.ErrorKind())
	assert.Equal(t, 0, m.Active())
}

func TestManager_NeverExceedsMaxConcurrent(t *testing.T) {
	for _, limit := range []int{1, 2, 3, 5} {
		t.Run(fmt.Sprintf("max=%d", limit), func(t *testing.T) {
			m := newTestManager(limit)
			var inFlight, peak atomic.Int64
			m.Register(&fakeCollector{typ: "slow", available: true, collect: func(_ context.Context, src model.SourceConfig) *model.CollectionResult {
				n := inFlight.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				if got := m.Active(); got > limit {
					t.Errorf("active %d exceeds limit %d", got, limit)
				}
				time.Sleep(5 * time.Millisecond)
				inFlight.Add(-1)
				return model.NewCollectionSuccess(src.ID, "ok", nil, nil)
			}})

			sources := make([]model.SourceConfig, 20)
			for i := range sources {
				sources[i] = model.SourceConfig{ID: fmt.Sprintf("s%d", i), CollectorType: "slow"}
			}
			results := m.ExecuteCollections(context.Background(), sources)

			assert.LessOrEqual(t, peak.Load(), int64(limit))
			assert.Equal(t, 0, m.Active())
			for i, r := range results {
				assert.True(t, r.Success)
				assert.Equal(t, sources[i].ID, r.SourceID)
			}
		})
	}
}

func TestManager_FailureDoesNotAffectOthers(t *testing.T) {
	m := newTestManager(3)
	m.Register(&fakeCollector{typ: "bad", available: true, collect: func(context.Context, model.SourceConfig) *model.CollectionResult {
		panic("bad source")
	}})
	m.Register(okCollector("good"))

	results := m.ExecuteCollections(context.Background(), []model.SourceConfig{
		{ID: "1", CollectorType: "good"},
		{ID: "2", CollectorType: "bad"},
		{ID: "3", CollectorType: "good"},
	})
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.True(t, results[2].Success)
}

func TestManager_PacingDelayWhileActive(t *testing.T) {
	m := NewManager(ManagerOptions{MaxConcurrent: 2, PacingDelay: 40 * time.Millisecond})
	release := make(chan struct{})
	m.Register(&fakeCollector{typ: "hold", available: true, collect: func(_ context.Context, src model.SourceConfig) *model.CollectionResult {
		<-release
		return model.NewCollectionSuccess(src.ID, "ok", nil, nil)
	}})
	m.Register(okCollector("quick"))

	done := make(chan struct{})
	go func() {
		m.ExecuteCollection(context.Background(), model.SourceConfig{CollectorType: "hold"})
		close(done)
	}()
	require.Eventually(t, func() bool { return m.Active() == 1 }, time.Second, time.Millisecond)

	start := time.Now()
	r := m.ExecuteCollection(context.Background(), model.SourceConfig{CollectorType: "quick"})
	assert.True(t, r.Success)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)

	close(release)
	<-done
}

func TestManager_CancelledWhileQueued(t *testing.T) {
	m := newTestManager(1)
	release := make(chan struct{})
	m.Register(&fakeCollector{typ: "hold", available: true, collect: func(_ context.Context, src model.SourceConfig) *model.CollectionResult {
		<-release
		return model.NewCollectionSuccess(src.ID, "ok", nil, nil)
	}})

	go m.ExecuteCollection(context.Background(), model.SourceConfig{CollectorType: "hold"})
	require.Eventually(t, func() bool { return m.Active() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	r := m.ExecuteCollection(ctx, model.SourceConfig{CollectorType: "hold"})
	assert.False(t, r.Success)
	assert.Equal(t, KindCollectionError, r.ErrorKind())
	assert.Contains(t, r.Message, "slot")

	close(release)
	require.Eventually(t, func() bool { return m.Active() == 0 }, time.Second, time.Millisecond)
}

func TestManager_RegisterLastWriteWins(t *testing.T) {
	m := newTestManager(1)
	first := okCollector("a")
	second := okCollector("a")
	m.Register(first)
	m.Register(okCollector("b"))
	m.Register(second)

	got, ok := m.Collector("a")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, []string{"a", "b"}, m.Types())
}

func TestManager_InitializeAllIsolatesFailures(t *testing.T) {
	m := newTestManager(1)
	failing := &fakeCollector{typ: "failing", initErr: errors.New("unreachable")}
	panicking := &fakeCollector{typ: "panicking", initPanic: true}
	healthy := &fakeCollector{typ: "healthy"}
	m.Register(failing)
	m.Register(panicking)
	m.Register(healthy)

	m.InitializeAll(context.Background())

	assert.Equal(t, int64(1), failing.inits.Load())
	assert.Equal(t, int64(1), panicking.inits.Load())
	assert.Equal(t, int64(1), healthy.inits.Load())
	assert.False(t, failing.IsAvailable())
	assert.False(t, panicking.IsAvailable())
	assert.True(t, healthy.IsAvailable())
}

func TestNewManager_Defaults(t *testing.T) {
	m := NewManager(ManagerOptions{})
	assert.Equal(t, DefaultMaxConcurrent, m.MaxConcurrent())
	assert.Equal(t, DefaultPacingDelay, m.pacing)
}

func TestErrFromResult(t *testing.T) {
	assert.NoError(t, ErrFromResult(model.NewCollectionSuccess("s", "ok", nil, nil)))
	assert.ErrorIs(t, ErrFromResult(nil), ErrCollection)
	assert.ErrorIs(t, ErrFromResult(model.NewCollectionFailure("s", KindCollectionError, "x")), ErrCollection)
}
