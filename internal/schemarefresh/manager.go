// Package schemarefresh keeps the preview server's generated schema current:
// it builds snapshots from a datamodel source, polls the source for changes
// and swaps in rebuilt snapshots.
package schemarefresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"opencrud-gen/internal/logging"
	"opencrud-gen/internal/naming"
	"opencrud-gen/internal/observability"
)

// Config controls schema refresh behavior.
type Config struct {
	Source      Source
	Naming      naming.Config
	Logger      *logging.Logger
	Generation  *observability.GenerationMetrics
	Metrics     *observability.RefreshMetrics
	MinInterval time.Duration
	MaxInterval time.Duration
	GraphiQL    bool
}

// Manager maintains and refreshes schema snapshots.
type Manager struct {
	source      Source
	build       BuildConfig
	logger      *slog.Logger
	metrics     *observability.RefreshMetrics
	minInterval time.Duration
	maxInterval time.Duration

	// refreshMu serializes rebuilds from the poll loop and RefreshNow.
	refreshMu sync.Mutex
	active    atomic.Pointer[Snapshot]
	wg        sync.WaitGroup
}

// NewManager builds the initial snapshot and returns a manager. It fails
// when the initial build fails.
func NewManager(ctx context.Context, cfg Config) (*Manager, error) {
	if cfg.Source == nil {
		return nil, errors.New("schema refresh manager requires a source")
	}
	if cfg.Logger == nil {
		cfg.Logger = &logging.Logger{Logger: slog.Default()}
	}

	minInterval := cfg.MinInterval
	maxInterval := cfg.MaxInterval
	if minInterval <= 0 {
		minInterval = 5 * time.Second
	}
	if maxInterval < minInterval {
		maxInterval = minInterval
	}

	logger := cfg.Logger.Component("schema_refresh")
	m := &Manager{
		source: cfg.Source,
		build: BuildConfig{
			Naming:   cfg.Naming,
			Logger:   logger,
			GraphiQL: cfg.GraphiQL,
		},
		logger:      logger,
		metrics:     cfg.Metrics,
		minInterval: minInterval,
		maxInterval: maxInterval,
	}
	if cfg.Generation != nil {
		m.build.Recorder = cfg.Generation
	}

	if _, err := m.refresh(ctx, true); err != nil {
		return nil, err
	}
	return m, nil
}

// Start begins the background refresh loop. It stops when ctx is done.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.refreshLoop(ctx)
	}()
}

// Wait blocks until the refresh loop exits or ctx is canceled.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CurrentSnapshot returns the active snapshot.
func (m *Manager) CurrentSnapshot() *Snapshot {
	return m.active.Load()
}

// Handler serves GraphQL requests with whichever snapshot is active when
// each request arrives.
func (m *Manager) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snapshot := m.CurrentSnapshot()
		if snapshot == nil {
			http.Error(w, "schema not ready", http.StatusServiceUnavailable)
			return
		}
		snapshot.Handler.ServeHTTP(w, r)
	})
}

// RefreshNow rebuilds the snapshot even if the source is unchanged. The
// previous snapshot stays active when the rebuild fails.
func (m *Manager) RefreshNow(ctx context.Context) error {
	_, err := m.refresh(ctx, true)
	return err
}

func (m *Manager) refreshLoop(ctx context.Context) {
	var changes <-chan struct{}
	if w, ok := m.source.(Watcher); ok {
		ch, err := w.Watch(ctx)
		if err != nil {
			m.logger.Warn("source watch unavailable, polling only",
				slog.String("source", m.source.Describe()),
				slog.String("error", err.Error()),
			)
		} else {
			changes = ch
		}
	}

	interval := m.minInterval
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("schema refresh stopped")
			return
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			interval = m.refreshOnce(ctx, interval)
			timer.Reset(interval)
		case <-timer.C:
			interval = m.refreshOnce(ctx, interval)
			timer.Reset(interval)
		}
	}
}

// refreshOnce runs one poll and returns the interval until the next. The
// interval backs off while the source is unchanged and resets after a
// change or a failure.
func (m *Manager) refreshOnce(ctx context.Context, interval time.Duration) time.Duration {
	changed, err := m.refresh(ctx, false)
	if err != nil || changed {
		return m.minInterval
	}
	return nextInterval(interval, m.minInterval, m.maxInterval)
}

// refresh fingerprints the source and rebuilds when the fingerprint moved
// or force is set. It reports whether a new snapshot was swapped in.
func (m *Manager) refresh(ctx context.Context, force bool) (changed bool, err error) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	start := time.Now()
	defer func() {
		m.metrics.RecordRefresh(ctx, time.Since(start), changed, err)
	}()

	fingerprint, err := m.source.Fingerprint(ctx)
	if err != nil {
		m.logger.Warn("schema fingerprint check failed",
			slog.String("source", m.source.Describe()),
			slog.String("error", err.Error()),
		)
		return false, fmt.Errorf("failed to fingerprint %s: %w", m.source.Describe(), err)
	}

	current := m.CurrentSnapshot()
	if !force && current != nil && current.Fingerprint == fingerprint {
		return false, nil
	}
	if current != nil {
		m.logger.Info("rebuilding schema",
			slog.String("source", m.source.Describe()),
			slog.String("fingerprint", fingerprint),
			slog.Bool("forced", force),
		)
	}

	model, err := m.source.Load(ctx)
	if err != nil {
		m.logger.Error("failed to load datamodel",
			slog.String("source", m.source.Describe()),
			slog.String("error", err.Error()),
		)
		return false, fmt.Errorf("failed to load datamodel from %s: %w", m.source.Describe(), err)
	}
	snapshot, err := BuildSnapshot(ctx, model, fingerprint, m.build)
	if err != nil {
		m.logger.Error("failed to rebuild schema", slog.String("error", err.Error()))
		return false, err
	}

	m.active.Store(snapshot)
	m.logger.Info("schema snapshot active",
		slog.String("source", m.source.Describe()),
		slog.String("fingerprint", fingerprint),
		slog.Int("types", len(snapshot.Schema.Types)),
		slog.Duration("duration", time.Since(start)),
	)
	return true, nil
}

func nextInterval(current, minInterval, maxInterval time.Duration) time.Duration {
	if current < minInterval {
		return minInterval
	}
	next := current + current/2
	if next > maxInterval {
		return maxInterval
	}
	return next
}
