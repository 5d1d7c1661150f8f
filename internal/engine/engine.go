// Package engine exposes the COP tool contract: typed request/response
// pairs for the eight operations the dispatch layer invokes. It wires the
// store, fusion, query and sync subsystems together and owns the rule that
// remote sync runs only after, and never instead of, local mutations.
package engine

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/MartinezAgullo/copforge/internal/cop"
	"github.com/MartinezAgullo/copforge/internal/copsync"
	"github.com/MartinezAgullo/copforge/internal/fusion"
	"github.com/MartinezAgullo/copforge/internal/query"
)

// Engine bundles the COP subsystems behind the tool contract.
type Engine struct {
	store *cop.Store
	sync  *copsync.Manager

	defaultDistanceM float64
	defaultWindowSec float64
}

// Option configures the engine.
type Option func(*Engine)

// WithDefaultThresholds overrides the duplicate-detection defaults.
func WithDefaultThresholds(distanceM, windowSec float64) Option {
	return func(e *Engine) {
		if distanceM > 0 {
			e.defaultDistanceM = distanceM
		}
		if windowSec > 0 {
			e.defaultWindowSec = windowSec
		}
	}
}

// New creates the engine over a store and sync manager.
func New(store *cop.Store, sync *copsync.Manager, opts ...Option) *Engine {
	e := &Engine{
		store:            store,
		sync:             sync,
		defaultDistanceM: fusion.DefaultDistanceThresholdM,
		defaultWindowSec: fusion.DefaultTimeWindowSec,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store exposes the underlying store for read-only callers (the resource
// endpoints).
func (e *Engine) Store() *cop.Store { return e.store }

// FindDuplicatesRequest asks for duplicates of one candidate entity.
// Zero thresholds select the configured defaults.
type FindDuplicatesRequest struct {
	Entity             cop.Entity `json:"entity"`
	DistanceThresholdM float64    `json:"distance_threshold_m,omitempty"`
	TimeWindowSec      float64    `json:"time_window_sec,omitempty"`
}

// FindDuplicatesResponse lists ranked matches and echoes the thresholds.
type FindDuplicatesResponse struct {
	Matches       []fusion.Match    `json:"matches"`
	QueryEntityID string            `json:"query_entity_id"`
	Thresholds    fusion.Thresholds `json:"thresholds"`
}

// FindDuplicates ranks stored entities that may be the same real-world
// object as the candidate. Read-only; the store is never mutated.
func (e *Engine) FindDuplicates(_ context.Context, req FindDuplicatesRequest) (FindDuplicatesResponse, error) {
	candidate := req.Entity
	candidate.Normalize()
	if err := candidate.Validate(); err != nil {
		return FindDuplicatesResponse{}, err
	}

	distanceM := req.DistanceThresholdM
	if distanceM <= 0 {
		distanceM = e.defaultDistanceM
	}
	windowSec := req.TimeWindowSec
	if windowSec <= 0 {
		windowSec = e.defaultWindowSec
	}

	matches, thresholds := fusion.FindDuplicates(candidate, e.store.List(), distanceM, windowSec)
	if matches == nil {
		matches = []fusion.Match{}
	}
	return FindDuplicatesResponse{
		Matches:       matches,
		QueryEntityID: candidate.EntityID,
		Thresholds:    thresholds,
	}, nil
}

// MergeRequest names the two entities to fuse. KeepID defaults to Entity1ID.
type MergeRequest struct {
	Entity1ID string `json:"entity1_id"`
	Entity2ID string `json:"entity2_id"`
	KeepID    string `json:"keep_id,omitempty"`
}

// MergeResponse is the fused entity plus the bookkeeping the caller needs.
type MergeResponse struct {
	MergedEntity         cop.Entity         `json:"merged_entity"`
	KeptEntityID         string             `json:"kept_entity_id"`
	RemovedEntityID      string             `json:"removed_entity_id"`
	NewerEntityID        string             `json:"newer_entity_id"`
	SensorsCombined      []string           `json:"sensors_combined"`
	ConfidenceAfterMerge float64            `json:"confidence_after_merge"`
	SyncStatus           copsync.SyncStatus `json:"sync_status"`
}

// MergeEntities fuses two stored entities into one. The store rewrite is
// atomic; the remote is updated afterwards (merged entity pushed, removed
// entity deleted) and any sync failure surfaces only in SyncStatus.
func (e *Engine) MergeEntities(ctx context.Context, req MergeRequest) (MergeResponse, error) {
	if req.Entity1ID == "" || req.Entity2ID == "" {
		return MergeResponse{}, &cop.ValidationError{Field: "entity1_id/entity2_id", Reason: "both entity IDs are required"}
	}
	result, err := fusion.Merge(e.store, req.Entity1ID, req.Entity2ID, req.KeepID)
	if err != nil {
		return MergeResponse{}, err
	}

	syncStatus := e.sync.PushEntity(ctx, result.Merged)
	if result.RemovedEntityID != "" {
		if removeStatus := e.sync.RemoveEntity(ctx, result.RemovedEntityID); removeStatus == copsync.SyncFailed {
			syncStatus = copsync.SyncFailed
		}
	}

	return MergeResponse{
		MergedEntity:         result.Merged,
		KeptEntityID:         result.KeptEntityID,
		RemovedEntityID:      result.RemovedEntityID,
		NewerEntityID:        result.NewerEntityID,
		SensorsCombined:      result.SensorsCombined,
		ConfidenceAfterMerge: result.ConfidenceAfterMerge,
		SyncStatus:           syncStatus,
	}, nil
}

// UpdateRequest is a batch of entities to add or overwrite.
type UpdateRequest struct {
	Entities []cop.Entity `json:"entities"`
}

// UpdateError records one rejected batch item.
type UpdateError struct {
	Index    int    `json:"index"`
	EntityID string `json:"entity_id,omitempty"`
	Reason   string `json:"reason"`
}

// UpdateResponse reports per-item outcomes of a batch update.
type UpdateResponse struct {
	Added              int                `json:"added"`
	Updated            int                `json:"updated"`
	Errors             []UpdateError      `json:"errors"`
	TotalProcessed     int                `json:"total_processed"`
	TotalEntitiesInCOP int                `json:"total_entities_in_cop"`
	SyncStatus         copsync.SyncStatus `json:"sync_status"`
}

// UpdateCOP upserts each entity independently: an invalid entity is
// recorded with its index and the rest of the batch still processes.
// Each successful upsert triggers a remote push; SyncStatus degrades to
// "failed" if any push fails but the local writes always stand.
func (e *Engine) UpdateCOP(ctx context.Context, req UpdateRequest) UpdateResponse {
	resp := UpdateResponse{Errors: []UpdateError{}, SyncStatus: copsync.SyncDisabled}
	if e.sync.AutoSync() {
		resp.SyncStatus = copsync.SyncOK
	}

	for i, entity := range req.Entities {
		result, err := e.store.Upsert(entity)
		if err != nil {
			resp.Errors = append(resp.Errors, UpdateError{
				Index:    i,
				EntityID: entity.EntityID,
				Reason:   err.Error(),
			})
			continue
		}
		if result == cop.UpsertCreated {
			resp.Added++
		} else {
			resp.Updated++
		}
		if stored, ok := e.store.Get(entity.EntityID); ok {
			if status := e.sync.PushEntity(ctx, stored); status == copsync.SyncFailed {
				resp.SyncStatus = copsync.SyncFailed
			}
		}
	}

	resp.TotalProcessed = len(req.Entities)
	resp.TotalEntitiesInCOP = e.store.Len()
	return resp
}

// RemoveEntity deletes one entity locally and mirrors the delete remotely.
func (e *Engine) RemoveEntity(ctx context.Context, entityID string) (copsync.SyncStatus, error) {
	if !e.store.Remove(entityID) {
		return "", eris.Wrapf(cop.ErrNotFound, "remove: %s", entityID)
	}
	return e.sync.RemoveEntity(ctx, entityID), nil
}

// QueryRequest carries the recognized filters; all are optional and
// AND-combined. SinceTimestamp is RFC 3339.
type QueryRequest struct {
	EntityType     string    `json:"entity_type,omitempty"`
	Classification string    `json:"classification,omitempty"`
	BBox           []float64 `json:"bbox,omitempty"`
	SinceTimestamp string    `json:"since_timestamp,omitempty"`
	MinConfidence  *float64  `json:"min_confidence,omitempty"`
	Limit          int       `json:"limit,omitempty"`
}

// QueryResponse is a filtered page of the picture, echoing the filters.
type QueryResponse struct {
	Entities       []cop.Entity `json:"entities"`
	Count          int          `json:"count"`
	TotalInCOP     int          `json:"total_in_cop"`
	FiltersApplied QueryRequest `json:"filters_applied"`
}

// QueryCOP filters a snapshot of the picture. A malformed since_timestamp
// or bbox is a hard failure; unrecognized filters never reach this layer.
func (e *Engine) QueryCOP(_ context.Context, req QueryRequest) (QueryResponse, error) {
	filters := query.Filters{
		EntityType:     cop.EntityType(req.EntityType),
		Classification: cop.Classification(req.Classification),
		BBox:           req.BBox,
		MinConfidence:  req.MinConfidence,
		Limit:          req.Limit,
	}
	if req.SinceTimestamp != "" {
		since, err := time.Parse(time.RFC3339, req.SinceTimestamp)
		if err != nil {
			return QueryResponse{}, eris.Wrapf(query.ErrInvalidFilter, "invalid timestamp format: %s", req.SinceTimestamp)
		}
		filters.Since = &since
	}

	result, err := query.Run(e.store.List(), filters)
	if err != nil {
		return QueryResponse{}, err
	}
	if req.Limit <= 0 {
		req.Limit = query.DefaultLimit
	}
	return QueryResponse{
		Entities:       result.Entities,
		Count:          result.Count,
		TotalInCOP:     result.TotalInCOP,
		FiltersApplied: req,
	}, nil
}

// StatsResponse is the aggregate picture plus sync posture.
type StatsResponse struct {
	cop.Stats
	MapaConnected   bool               `json:"mapa_connected"`
	AutoSyncEnabled bool               `json:"auto_sync_enabled"`
	SyncStatus      copsync.SyncStatus `json:"sync_status"`
	SyncStats       copsync.Stats      `json:"sync_stats"`
}

// GetCOPStats aggregates over a snapshot; total_entities always equals the
// store's current size.
func (e *Engine) GetCOPStats(_ context.Context) StatsResponse {
	status := copsync.SyncFailed
	if e.sync.Connected() {
		status = copsync.SyncOK
	}
	if !e.sync.AutoSync() {
		status = copsync.SyncDisabled
	}
	return StatsResponse{
		Stats:           e.store.Stats(),
		MapaConnected:   e.sync.Connected(),
		AutoSyncEnabled: e.sync.AutoSync(),
		SyncStatus:      status,
		SyncStats:       e.sync.Stats(),
	}
}

// SyncToMapa pushes every stored entity to the remote.
func (e *Engine) SyncToMapa(ctx context.Context) copsync.SyncAllResult {
	return e.sync.SyncAll(ctx)
}

// LoadFromMapa pulls the remote set into the store.
func (e *Engine) LoadFromMapa(ctx context.Context) copsync.LoadResult {
	return e.sync.LoadFromMapa(ctx)
}

// CheckMapaConnection probes the remote; it always returns a structured
// result, never an error.
func (e *Engine) CheckMapaConnection(ctx context.Context) copsync.Health {
	return e.sync.CheckConnection(ctx)
}
