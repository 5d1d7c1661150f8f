package cop

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// UpsertResult says whether an upsert created a new entity or overwrote an
// existing one.
type UpsertResult string

const (
	UpsertCreated UpsertResult = "created"
	UpsertUpdated UpsertResult = "updated"
)

// Store is the authoritative in-memory table of COP entities.
//
// All mutations run under an exclusive lock; reads copy the table under a
// brief critical section and then work on their private snapshot, so O(n)
// scans (duplicate scoring, queries) never block writers. The store is a
// cache: the durable copy lives in the remote system-of-record.
type Store struct {
	mu          sync.RWMutex
	entities    map[string]Entity
	order       []string // insertion order of entity IDs
	checkpoints []Snapshot
	createdAt   time.Time
	lastUpdated time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	now := time.Now().UTC()
	return &Store{
		entities:    make(map[string]Entity),
		createdAt:   now,
		lastUpdated: now,
	}
}

// Upsert validates the entity and inserts it, or overwrites the entity with
// the same ID (last write wins). No partial writes: an invalid entity leaves
// the store untouched.
func (s *Store) Upsert(e Entity) (UpsertResult, error) {
	e.Normalize()
	if err := e.Validate(); err != nil {
		return "", err
	}
	e = e.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	result := UpsertCreated
	if _, exists := s.entities[e.EntityID]; exists {
		result = UpsertUpdated
	} else {
		s.order = append(s.order, e.EntityID)
	}
	s.entities[e.EntityID] = e
	s.lastUpdated = time.Now().UTC()
	return result, nil
}

// Get returns a copy of the entity with the given ID.
func (s *Store) Get(id string) (Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return Entity{}, false
	}
	return e.Clone(), true
}

// Remove deletes the entity with the given ID and reports whether it existed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[id]; !ok {
		return false
	}
	delete(s.entities, id)
	s.dropFromOrder(id)
	s.lastUpdated = time.Now().UTC()
	return true
}

// Len returns the number of entities currently stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// List copies the full entity set into a read-only snapshot. The copy is
// taken under the lock; callers scan it lock-free afterwards.
func (s *Store) List() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked("")
}

// Fuse atomically applies fuse to the two named entities, writes the result
// under keepID and removes the other entity. The whole get-modify-remove
// sequence runs under the write lock, so no concurrent mutation can observe
// a half-merged picture.
func (s *Store) Fuse(id1, id2, keepID string, fuse func(e1, e2 Entity) Entity) (Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e1, ok := s.entities[id1]
	if !ok {
		return Entity{}, eris.Wrapf(ErrNotFound, "fuse: %s", id1)
	}
	e2, ok := s.entities[id2]
	if !ok {
		return Entity{}, eris.Wrapf(ErrNotFound, "fuse: %s", id2)
	}

	merged := fuse(e1.Clone(), e2.Clone())
	merged.EntityID = keepID

	removedID := id2
	if keepID == id2 {
		removedID = id1
	}
	// A self-fuse rewrites the entity in place; nothing is removed.
	if removedID != keepID {
		delete(s.entities, removedID)
		s.dropFromOrder(removedID)
	}
	s.entities[keepID] = merged
	s.lastUpdated = time.Now().UTC()
	return merged.Clone(), nil
}

// Stats aggregates counts over the current entity set.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		TotalEntities:    len(s.entities),
		ByType:           make(map[EntityType]int),
		ByClassification: make(map[Classification]int),
		CreatedAt:        s.createdAt,
		LastUpdated:      s.lastUpdated,
	}
	sensors := make(map[string]bool)
	var confSum float64
	for _, e := range s.entities {
		st.ByType[e.EntityType]++
		st.ByClassification[e.Classification]++
		for _, sensor := range e.SourceSensors {
			sensors[sensor] = true
		}
		confSum += e.Confidence
	}
	st.UniqueSensors = len(sensors)
	st.SensorList = make([]string, 0, len(sensors))
	for sensor := range sensors {
		st.SensorList = append(st.SensorList, sensor)
	}
	sort.Strings(st.SensorList)
	if len(s.entities) > 0 {
		st.AverageConfidence = math.Round(confSum/float64(len(s.entities))*1000) / 1000
	}
	return st
}

// Clear empties the store and returns how many entities and checkpoints
// were dropped.
func (s *Store) Clear() ClearCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := ClearCounts{
		Entities:    len(s.entities),
		Checkpoints: len(s.checkpoints),
	}
	s.entities = make(map[string]Entity)
	s.order = nil
	s.checkpoints = nil
	s.lastUpdated = time.Now().UTC()
	return counts
}

// ClearCounts reports what Clear removed.
type ClearCounts struct {
	Entities    int `json:"entities"`
	Checkpoints int `json:"checkpoints"`
}

// dropFromOrder removes id from the insertion-order index. Caller holds the
// write lock.
func (s *Store) dropFromOrder(id string) {
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
