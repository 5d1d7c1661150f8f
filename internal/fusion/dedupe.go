// Package fusion implements multi-sensor fusion over the COP: ranking
// candidate duplicates and merging two tracks into one entity.
package fusion

import (
	"math"
	"sort"

	"github.com/MartinezAgullo/copforge/internal/cop"
	"github.com/MartinezAgullo/copforge/internal/geo"
)

// Default hard filters for duplicate detection.
const (
	DefaultDistanceThresholdM = 500.0
	DefaultTimeWindowSec      = 300.0
)

// Match is one ranked duplicate candidate.
type Match struct {
	EntityID        string             `json:"entity_id"`
	EntityType      cop.EntityType     `json:"entity_type"`
	Classification  cop.Classification `json:"classification"`
	DistanceM       float64            `json:"distance_m"`
	TimeDiffSec     float64            `json:"time_diff_sec"`
	Score           float64            `json:"score"`
	ExistingSensors []string           `json:"existing_sensors"`
}

// Thresholds echoes the hard filters a detection ran with.
type Thresholds struct {
	DistanceM     float64 `json:"distance_m"`
	TimeWindowSec float64 `json:"time_window_sec"`
}

// FindDuplicates ranks entities in the snapshot that may be the same
// real-world object as candidate. Only entities sharing the candidate's
// type and IFF classification are considered; survivors must fall inside
// both the distance threshold and the time window. Non-positive thresholds
// select the defaults.
//
// Deterministic and side-effect free: the snapshot is never mutated.
func FindDuplicates(candidate cop.Entity, snap cop.Snapshot, distanceThresholdM, timeWindowSec float64) ([]Match, Thresholds) {
	if distanceThresholdM <= 0 {
		distanceThresholdM = DefaultDistanceThresholdM
	}
	if timeWindowSec <= 0 {
		timeWindowSec = DefaultTimeWindowSec
	}

	var matches []Match
	for _, existing := range snap.Entities {
		if existing.EntityID == candidate.EntityID {
			continue
		}
		if existing.EntityType != candidate.EntityType {
			continue
		}
		if existing.Classification != candidate.Classification {
			continue
		}
		distanceM := geo.HaversineMeters(candidate.Location, existing.Location)
		if distanceM > distanceThresholdM {
			continue
		}
		timeDiffSec := math.Abs(candidate.Timestamp.Sub(existing.Timestamp).Seconds())
		if timeDiffSec > timeWindowSec {
			continue
		}
		score := geo.CombinedScore(
			geo.SpatialScore(distanceM, distanceThresholdM),
			geo.TemporalScore(timeDiffSec, timeWindowSec),
		)
		matches = append(matches, Match{
			EntityID:        existing.EntityID,
			EntityType:      existing.EntityType,
			Classification:  existing.Classification,
			DistanceM:       round2(distanceM),
			TimeDiffSec:     round1(timeDiffSec),
			Score:           round3(score),
			ExistingSensors: append([]string(nil), existing.SourceSensors...),
		})
	}

	// Highest score first; ties broken by proximity.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].DistanceM < matches[j].DistanceM
	})

	return matches, Thresholds{DistanceM: distanceThresholdM, TimeWindowSec: timeWindowSec}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
