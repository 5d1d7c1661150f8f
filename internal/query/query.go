// Package query filters and paginates COP snapshots. All filters are
// AND-combined; an absent filter imposes no constraint.
package query

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/MartinezAgullo/copforge/internal/cop"
)

// DefaultLimit caps result sets when the caller does not set one.
const DefaultLimit = 100

// ErrInvalidFilter is returned for structurally malformed filter values
// (such as a bounding box without exactly four coordinates). Unrecognized
// filter keys are the transport layer's concern and are simply ignored there.
var ErrInvalidFilter = eris.New("query: invalid filter")

// Filters selects entities from a snapshot. Zero values mean "no
// constraint"; BBox must be [min_lat, min_lon, max_lat, max_lon] when set.
type Filters struct {
	EntityType     cop.EntityType
	Classification cop.Classification
	BBox           []float64
	Since          *time.Time
	MinConfidence  *float64
	Limit          int
}

// Result is a filtered page of the snapshot.
type Result struct {
	Entities   []cop.Entity
	Count      int
	TotalInCOP int
}

// Run applies the filters to the snapshot, preserving the snapshot's
// insertion order, and truncates at the limit. The snapshot itself is never
// mutated.
func Run(snap cop.Snapshot, f Filters) (Result, error) {
	if f.BBox != nil && len(f.BBox) != 4 {
		return Result{}, eris.Wrap(ErrInvalidFilter, "bbox must have 4 values: [min_lat, min_lon, max_lat, max_lon]")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	classification := cop.Classification(strings.ToLower(string(f.Classification)))

	entities := make([]cop.Entity, 0, min(limit, snap.Len()))
	for _, e := range snap.Entities {
		if f.EntityType != "" && e.EntityType != f.EntityType {
			continue
		}
		if classification != "" && e.Classification != classification {
			continue
		}
		if f.MinConfidence != nil && e.Confidence < *f.MinConfidence {
			continue
		}
		if f.Since != nil && e.Timestamp.Before(*f.Since) {
			continue
		}
		if f.BBox != nil && !inBBox(e.Location, f.BBox) {
			continue
		}
		entities = append(entities, e)
		if len(entities) >= limit {
			break
		}
	}

	return Result{
		Entities:   entities,
		Count:      len(entities),
		TotalInCOP: snap.Len(),
	}, nil
}

// inBBox tests inclusive rectangle containment. bbox has been length-checked.
func inBBox(l cop.Location, bbox []float64) bool {
	minLat, minLon, maxLat, maxLon := bbox[0], bbox[1], bbox[2], bbox[3]
	return l.Lat >= minLat && l.Lat <= maxLat && l.Lon >= minLon && l.Lon <= maxLon
}
