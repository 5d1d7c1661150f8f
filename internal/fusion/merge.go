package fusion

import (
	"math"
	"time"

	"github.com/MartinezAgullo/copforge/internal/cop"
)

// Merge policy constants. A second sensor confirming a track earns a fixed
// confidence bonus, capped at full confidence.
const (
	ConfidenceBoost = 0.1
	MaxConfidence   = 1.0
)

// MergeResult is the outcome of fusing two entities.
type MergeResult struct {
	Merged               cop.Entity `json:"merged_entity"`
	KeptEntityID         string     `json:"kept_entity_id"`
	RemovedEntityID      string     `json:"removed_entity_id"`
	NewerEntityID        string     `json:"newer_entity_id"`
	SensorsCombined      []string   `json:"sensors_combined"`
	ConfidenceAfterMerge float64    `json:"confidence_after_merge"`
}

// Merge fuses the two named entities into one, atomically rewriting the
// store: the merged entity is stored under keepID and the other entity is
// removed. keepID defaults to id1 when it names neither entity. Merging an
// entity with itself rewrites it in place and removes nothing. Returns
// cop.ErrNotFound (wrapped) if either ID is absent.
//
// Fusion policy: location, IFF classification, kinematics and comments come
// from the entity with the more recent timestamp; metadata is shallow-merged
// with the newer entity winning key collisions; the security level is the
// higher-ranked of the two; sensors are unioned; confidence is
// min(MaxConfidence, max(c1, c2) + ConfidenceBoost).
func Merge(store *cop.Store, id1, id2, keepID string) (MergeResult, error) {
	if keepID != id1 && keepID != id2 {
		keepID = id1
	}

	var result MergeResult
	now := time.Now().UTC()
	merged, err := store.Fuse(id1, id2, keepID, func(e1, e2 cop.Entity) cop.Entity {
		fused, newerID := fuseEntities(e1, e2, now)
		result.NewerEntityID = newerID
		return fused
	})
	if err != nil {
		return MergeResult{}, err
	}

	result.Merged = merged
	result.KeptEntityID = keepID
	result.RemovedEntityID = id2
	if keepID == id2 {
		result.RemovedEntityID = id1
	}
	if result.RemovedEntityID == keepID {
		// Self-merge: the entity was rewritten in place, nothing removed.
		result.RemovedEntityID = ""
	}
	result.SensorsCombined = merged.SourceSensors
	result.ConfidenceAfterMerge = merged.Confidence
	return result, nil
}

// fuseEntities applies the fusion policy to two entities and returns the
// combined entity along with the ID of whichever input was newer. The
// caller owns setting the result's entity ID.
func fuseEntities(e1, e2 cop.Entity, now time.Time) (cop.Entity, string) {
	newer, older := e1, e2
	if e2.Timestamp.After(e1.Timestamp) {
		newer, older = e2, e1
	}

	location := newer.Location
	if location.Alt == nil && older.Location.Alt != nil {
		alt := *older.Location.Alt
		location.Alt = &alt
	}

	metadata := make(map[string]any, len(older.Metadata)+len(newer.Metadata)+2)
	for k, v := range older.Metadata {
		metadata[k] = v
	}
	for k, v := range newer.Metadata {
		metadata[k] = v
	}
	metadata["merged_from"] = []string{e1.EntityID, e2.EntityID}
	metadata["merge_timestamp"] = now.Format(time.RFC3339)

	heading := newer.Heading
	if heading == nil {
		heading = older.Heading
	}
	speed := newer.SpeedKmh
	if speed == nil {
		speed = older.SpeedKmh
	}
	comments := newer.Comments
	if comments == "" {
		comments = older.Comments
	}

	fused := cop.Entity{
		EntityType:         newer.EntityType,
		Location:           location,
		Heading:            heading,
		SpeedKmh:           speed,
		Classification:     newer.Classification,
		InfoClassification: cop.HigherInfoClassification(e1.InfoClassification, e2.InfoClassification),
		Confidence:         math.Min(MaxConfidence, math.Max(e1.Confidence, e2.Confidence)+ConfidenceBoost),
		Timestamp:          newer.Timestamp,
		SourceSensors:      cop.UnionSensors(e1.SourceSensors, e2.SourceSensors),
		Metadata:           metadata,
		Comments:           comments,
	}
	return fused, newer.EntityID
}
