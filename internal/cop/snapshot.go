package cop

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Snapshot is a read-only, timestamped copy of the full entity set, in
// store insertion order. Snapshots back duplicate scoring, queries, and
// checkpoint/restore; they are never mutated in place.
type Snapshot struct {
	SnapshotID string         `json:"snapshot_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Entities   []Entity       `json:"entities"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Get looks up an entity in the snapshot by ID.
func (s Snapshot) Get(id string) (Entity, bool) {
	for _, e := range s.Entities {
		if e.EntityID == id {
			return e, true
		}
	}
	return Entity{}, false
}

// Len returns the number of entities in the snapshot.
func (s Snapshot) Len() int { return len(s.Entities) }

// Checkpoint takes a snapshot and retains it in the store for later
// Restore. The snapshot ID embeds a UUID so concurrent checkpoints never
// collide.
func (s *Store) Checkpoint() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshotLocked(fmt.Sprintf("snapshot_%s", uuid.NewString()))
	s.checkpoints = append(s.checkpoints, snap)
	return snap
}

// Checkpoints returns the retained checkpoint snapshots, oldest first.
func (s *Store) Checkpoints() []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Snapshot(nil), s.checkpoints...)
}

// Restore replaces the store contents with the entities of the snapshot.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = make(map[string]Entity, len(snap.Entities))
	s.order = make([]string, 0, len(snap.Entities))
	for _, e := range snap.Entities {
		if _, dup := s.entities[e.EntityID]; dup {
			continue
		}
		s.entities[e.EntityID] = e.Clone()
		s.order = append(s.order, e.EntityID)
	}
	s.lastUpdated = time.Now().UTC()
}

// snapshotLocked builds a snapshot of the current table. Caller holds at
// least the read lock. An empty id produces an anonymous (non-checkpoint)
// snapshot.
func (s *Store) snapshotLocked(id string) Snapshot {
	entities := make([]Entity, 0, len(s.order))
	for _, eid := range s.order {
		entities = append(entities, s.entities[eid].Clone())
	}
	return Snapshot{
		SnapshotID: id,
		Timestamp:  time.Now().UTC(),
		Entities:   entities,
		Metadata: map[string]any{
			"entity_count": len(entities),
			"created_at":   s.createdAt.Format(time.RFC3339),
		},
	}
}
