package copsync

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MartinezAgullo/copforge/internal/cop"
	"github.com/MartinezAgullo/copforge/internal/resilience"
)

// SyncStatus summarizes the remote side of a store mutation. Sync failures
// never roll the local mutation back; they only surface here.
type SyncStatus string

const (
	SyncOK       SyncStatus = "ok"
	SyncFailed   SyncStatus = "failed"
	SyncDisabled SyncStatus = "disabled"
)

// Stats are cumulative sync counters since the manager was created.
type Stats struct {
	TotalSyncs   int        `json:"total_syncs"`
	TotalPushed  int        `json:"total_pushed"`
	TotalDeleted int        `json:"total_deleted"`
	TotalLoaded  int        `json:"total_loaded"`
	TotalErrors  int        `json:"total_errors"`
	LastSync     *time.Time `json:"last_sync,omitempty"`
}

// SyncAllResult counts the outcome of a manual full sync.
type SyncAllResult struct {
	Pushed int      `json:"pushed"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors,omitempty"`
}

// LoadResult counts the outcome of a pull from the remote.
type LoadResult struct {
	Pulled int      `json:"pulled"`
	Errors []string `json:"errors"`
}

// Manager orchestrates push/pull between the entity store and the remote
// system-of-record. Every network call happens on a copy taken outside the
// store's lock, so a slow remote cannot stall local COP operations.
type Manager struct {
	store    *cop.Store
	remote   RemoteClient
	breaker  *resilience.CircuitBreaker
	autoSync bool
	parallel int

	mu        sync.Mutex
	stats     Stats
	connected bool
}

// Option configures the manager.
type Option func(*Manager)

// WithAutoSync toggles pushing on every successful store mutation.
// Default on.
func WithAutoSync(enabled bool) Option {
	return func(m *Manager) { m.autoSync = enabled }
}

// WithCircuitBreaker guards remote calls with the given breaker. Nil
// (the default) disables breaking entirely.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(m *Manager) { m.breaker = cb }
}

// WithParallelism bounds concurrent pushes during SyncAll. Default 4.
func WithParallelism(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.parallel = n
		}
	}
}

// NewManager creates a sync manager for the store and remote.
func NewManager(store *cop.Store, remote RemoteClient, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		remote:   remote,
		autoSync: true,
		parallel: 4,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AutoSync reports whether mutation-triggered pushes are enabled.
func (m *Manager) AutoSync() bool { return m.autoSync }

// Connected reports the result of the most recent remote contact.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Stats returns a copy of the cumulative counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// call routes a remote operation through the circuit breaker when one is
// configured.
func (m *Manager) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.breaker == nil {
		return fn(ctx)
	}
	return m.breaker.Execute(ctx, fn)
}

// PushEntity mirrors one entity to the remote. Called after a successful
// upsert; the entity has already been copied out of the store.
func (m *Manager) PushEntity(ctx context.Context, e cop.Entity) SyncStatus {
	if !m.autoSync {
		return SyncDisabled
	}
	err := m.call(ctx, func(ctx context.Context) error {
		return m.remote.Push(ctx, e)
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.stats.TotalErrors++
		m.connected = false
		zap.L().Warn("failed to sync entity to mapa",
			zap.String("entity_id", e.EntityID),
			zap.Error(err),
		)
		return SyncFailed
	}
	m.stats.TotalPushed++
	m.connected = true
	return SyncOK
}

// RemoveEntity deletes the remote record after a successful local removal.
func (m *Manager) RemoveEntity(ctx context.Context, entityID string) SyncStatus {
	if !m.autoSync {
		return SyncDisabled
	}
	err := m.call(ctx, func(ctx context.Context) error {
		return m.remote.Delete(ctx, entityID)
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.stats.TotalErrors++
		zap.L().Warn("failed to remove entity from mapa",
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
		return SyncFailed
	}
	m.stats.TotalDeleted++
	return SyncOK
}

// SyncAll pushes every entity in the current snapshot to the remote with
// bounded parallelism, and reports per-entity outcomes. The snapshot is
// copied out first; no store lock is held during the pushes.
func (m *Manager) SyncAll(ctx context.Context) SyncAllResult {
	snap := m.store.List()

	var (
		resultMu sync.Mutex
		result   SyncAllResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.parallel)
	for _, e := range snap.Entities {
		e := e
		g.Go(func() error {
			err := m.call(gctx, func(ctx context.Context) error {
				return m.remote.Push(ctx, e)
			})
			resultMu.Lock()
			defer resultMu.Unlock()
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, e.EntityID+": "+err.Error())
				return nil // best-effort: one failure never aborts the batch
			}
			result.Pushed++
			return nil
		})
	}
	_ = g.Wait()

	m.mu.Lock()
	m.stats.TotalSyncs++
	m.stats.TotalPushed += result.Pushed
	m.stats.TotalErrors += result.Failed
	now := time.Now().UTC()
	m.stats.LastSync = &now
	m.connected = result.Failed < snap.Len() || snap.Len() == 0
	m.mu.Unlock()

	zap.L().Info("full sync to mapa complete",
		zap.Int("pushed", result.Pushed),
		zap.Int("failed", result.Failed),
	)
	return result
}

// LoadFromMapa pulls the full remote set and upserts it into the store.
// The remote is the source of truth for entities it knows, but local
// entities absent remotely are kept: they may be freshly ingested and not
// yet synced. A pull failure leaves the store unchanged and is reported in
// the result, never raised.
func (m *Manager) LoadFromMapa(ctx context.Context) LoadResult {
	var entities []cop.Entity
	err := m.call(ctx, func(ctx context.Context) error {
		var pullErr error
		entities, pullErr = m.remote.PullAll(ctx)
		return pullErr
	})
	if err != nil {
		m.mu.Lock()
		m.stats.TotalErrors++
		m.connected = false
		m.mu.Unlock()
		zap.L().Warn("cannot load from mapa", zap.Error(err))
		return LoadResult{Pulled: 0, Errors: []string{err.Error()}}
	}

	result := LoadResult{Errors: []string{}}
	for _, e := range entities {
		if _, err := m.store.Upsert(e); err != nil {
			result.Errors = append(result.Errors, e.EntityID+": "+err.Error())
			continue
		}
		result.Pulled++
	}

	m.mu.Lock()
	m.stats.TotalLoaded += result.Pulled
	m.connected = true
	m.mu.Unlock()

	zap.L().Info("loaded entities from mapa",
		zap.Int("pulled", result.Pulled),
		zap.Int("errors", len(result.Errors)),
	)
	return result
}

// CheckConnection probes the remote. Never errors; a confirmed-healthy
// remote also resets the circuit breaker so syncing resumes immediately.
func (m *Manager) CheckConnection(ctx context.Context) Health {
	h := m.remote.HealthCheck(ctx)

	m.mu.Lock()
	m.connected = h.Reachable
	m.mu.Unlock()

	if h.Reachable && m.breaker != nil {
		m.breaker.Reset()
	}
	return h
}
