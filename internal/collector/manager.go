package collector

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sells-group/parcel-ingest/internal/model"
)

// Defaults for ManagerOptions.
const (
	DefaultMaxConcurrent = 3
	DefaultPacingDelay   = 2 * time.Second
)

// ManagerOptions sets the two scheduling knobs.
type ManagerOptions struct {
	// MaxConcurrent caps simultaneous Collect calls.
	MaxConcurrent int
	// PacingDelay is waited before starting a collection while another is
	// in flight, to avoid bursts against county sites. Negative disables.
	PacingDelay time.Duration
}

// Manager owns a registry of collectors and runs collections through it.
type Manager struct {
	mu         sync.RWMutex
	collectors map[string]DataCollector
	order      []string

	maxConcurrent int
	pacing        time.Duration
	sem           *semaphore.Weighted
	active        atomic.Int64
	log           *zap.Logger
}

// NewManager creates a Manager with an empty registry.
func NewManager(opts ManagerOptions) *Manager {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.PacingDelay == 0 {
		opts.PacingDelay = DefaultPacingDelay
	}
	if opts.PacingDelay < 0 {
		opts.PacingDelay = 0
	}
	return &Manager{
		collectors:    make(map[string]DataCollector),
		maxConcurrent: opts.MaxConcurrent,
		pacing:        opts.PacingDelay,
		sem:           semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		log:           zap.L().With(zap.String("component", "collector.manager")),
	}
}

// Register adds c under its type. A later registration for the same type
// replaces the earlier one.
func (m *Manager) Register(c DataCollector) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := c.Type()
	if _, exists := m.collectors[t]; exists {
		m.log.Warn("collector: replacing registered collector", zap.String("collector_type", t))
	} else {
		m.order = append(m.order, t)
	}
	m.collectors[t] = c
}

// Collector returns the collector registered for collectorType.
func (m *Manager) Collector(collectorType string) (DataCollector, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collectors[collectorType]
	return c, ok
}

// Types returns registered types in registration order.
func (m *Manager) Types() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Active reports how many collections are running.
func (m *Manager) Active() int { return int(m.active.Load()) }

// MaxConcurrent returns the parallelism ceiling.
func (m *Manager) MaxConcurrent() int { return m.maxConcurrent }

// InitializeAll initializes every collector in registration order. A
// collector that errors or panics is logged and left unavailable; the rest
// still run.
func (m *Manager) InitializeAll(ctx context.Context) {
	m.mu.RLock()
	collectors := make([]DataCollector, 0, len(m.order))
	for _, t := range m.order {
		collectors = append(collectors, m.collectors[t])
	}
	m.mu.RUnlock()

	for _, c := range collectors {
		if err := initialize(ctx, c); err != nil {
			m.log.Error("collector: initialization failed",
				zap.String("collector_type", c.Type()), zap.Error(err))
			continue
		}
		m.log.Info("collector: initialized",
			zap.String("collector_type", c.Type()),
			zap.Bool("available", c.IsAvailable()),
		)
	}
}

func initialize(ctx context.Context, c DataCollector) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("panic: %v", r)
		}
	}()
	return c.Initialize(ctx)
}

// ExecuteCollection runs source through its collector. It always returns a
// result; unknown types, unavailable collectors, cancellation while queued
// and panics all become failure results.
func (m *Manager) ExecuteCollection(ctx context.Context, source model.SourceConfig) *model.CollectionResult {
	result := m.execute(ctx, source)
	result.RunID = uuid.NewString()
	return result
}

func (m *Manager) execute(ctx context.Context, source model.SourceConfig) *model.CollectionResult {
	log := m.log.With(
		zap.String("source_id", source.ID),
		zap.String("collector_type", source.CollectorType),
	)

	c, ok := m.Collector(source.CollectorType)
	if !ok {
		log.Error("collector: no collector registered")
		return model.NewCollectionFailure(source.ID, KindCollectorNotFound,
			fmt.Sprintf("no collector registered for type %q", source.CollectorType))
	}
	if !c.IsAvailable() {
		log.Error("collector: collector unavailable")
		return model.NewCollectionFailure(source.ID, KindSourceUnavailable,
			fmt.Sprintf("collector %q is not available", source.CollectorType))
	}

	if m.pacing > 0 && m.active.Load() > 0 {
		if err := sleep(ctx, m.pacing); err != nil {
			return model.NewCollectionFailure(source.ID, KindCollectionError,
				fmt.Sprintf("cancelled during pacing delay: %v", err))
		}
	}

	if err := m.sem.Acquire(ctx, 1); err != nil {
		return model.NewCollectionFailure(source.ID, KindCollectionError,
			fmt.Sprintf("cancelled waiting for a collection slot: %v", err))
	}
	defer m.sem.Release(1)
	m.active.Add(1)
	defer m.active.Add(-1)

	log.Info("collector: collection started", zap.Int64("active", m.active.Load()))
	result := collect(ctx, c, source)
	if !result.Success {
		log.Error("collector: collection failed", zap.String("message", result.Message))
	}
	return result
}

// collect calls c.Collect, converting panics and nil results to failures.
func collect(ctx context.Context, c DataCollector, source model.SourceConfig) (result *model.CollectionResult) {
	defer func() {
		if r := recover(); r != nil {
			result = model.NewCollectionFailure(source.ID, KindCollectionError,
				fmt.Sprintf("collector %q panicked: %v", c.Type(), r))
		}
	}()
	result = c.Collect(ctx, source)
	if result == nil {
		result = model.NewCollectionFailure(source.ID, KindCollectionError,
			fmt.Sprintf("collector %q returned no result", c.Type()))
	}
	return result
}

// ExecuteCollections runs every source concurrently, subject to the
// manager's ceiling. results[i] belongs to sources[i].
func (m *Manager) ExecuteCollections(ctx context.Context, sources []model.SourceConfig) []*model.CollectionResult {
	results := make([]*model.CollectionResult, len(sources))
	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			results[i] = m.ExecuteCollection(ctx, src)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
