// Package copsync reconciles the local entity store with the
// mapa-puntos-interes system-of-record. The remote owns the durable copy;
// the store is a synchronized cache of it. All sync paths are best-effort:
// a dead remote degrades sync_status, never local operations.
package copsync

import (
	"context"

	"github.com/MartinezAgullo/copforge/internal/cop"
	"github.com/MartinezAgullo/copforge/pkg/mapa"
)

// Health is the outcome of probing the remote.
type Health struct {
	Reachable bool   `json:"reachable"`
	LatencyMS int64  `json:"latency_ms"`
	Message   string `json:"message,omitempty"`
}

// RemoteClient is the capability the sync manager needs from the
// system-of-record. It is the only interface behind which network I/O
// happens, so tests swap it for an in-memory double and the "never hold
// the store lock during I/O" rule is structurally enforced.
type RemoteClient interface {
	// Push upserts one entity remotely.
	Push(ctx context.Context, e cop.Entity) error
	// Delete removes the remote record for entityID. Deleting an entity
	// the remote never saw is not an error.
	Delete(ctx context.Context, entityID string) error
	// PullAll fetches every remote entity.
	PullAll(ctx context.Context) ([]cop.Entity, error)
	// HealthCheck probes the remote. It never returns an error.
	HealthCheck(ctx context.Context) Health
}

// MapaRemote adapts the mapa HTTP client to the RemoteClient capability,
// translating entities to the server's punto schema on the way out and
// back on the way in.
type MapaRemote struct {
	client mapa.Client
}

// NewMapaRemote wraps a mapa client.
func NewMapaRemote(client mapa.Client) *MapaRemote {
	return &MapaRemote{client: client}
}

func (r *MapaRemote) Push(ctx context.Context, e cop.Entity) error {
	_, _, err := r.client.UpsertPunto(ctx, EntityToPunto(e))
	return err
}

func (r *MapaRemote) Delete(ctx context.Context, entityID string) error {
	punto, err := r.client.FindByElemento(ctx, entityID)
	if err != nil {
		return err
	}
	if punto == nil {
		return nil // already gone remotely
	}
	return r.client.DeletePunto(ctx, punto.ID)
}

func (r *MapaRemote) PullAll(ctx context.Context) ([]cop.Entity, error) {
	puntos, err := r.client.ListPuntos(ctx)
	if err != nil {
		return nil, err
	}
	entities := make([]cop.Entity, 0, len(puntos))
	for _, p := range puntos {
		entities = append(entities, PuntoToEntity(p))
	}
	return entities, nil
}

func (r *MapaRemote) HealthCheck(ctx context.Context) Health {
	hs := r.client.Health(ctx)
	return Health{Reachable: hs.Reachable, LatencyMS: hs.LatencyMS, Message: hs.Message}
}
