// Package geo provides great-circle distance and the spatial/temporal
// similarity scores used by duplicate detection. All functions are pure.
package geo

import (
	"math"

	"github.com/MartinezAgullo/copforge/internal/cop"
)

// EarthRadiusM is the mean Earth radius used for Haversine distances.
const EarthRadiusM = 6_371_000.0

// Weights of the combined duplicate score. Spatial proximity dominates;
// the temporal component breaks near-ties between stale and fresh tracks.
const (
	SpatialWeight  = 0.7
	TemporalWeight = 0.3
)

// HaversineMeters returns the great-circle distance between two locations
// in meters. Symmetric: HaversineMeters(a, b) == HaversineMeters(b, a).
func HaversineMeters(a, b cop.Location) float64 {
	lat1 := a.Lat * math.Pi / 180
	lon1 := a.Lon * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	lon2 := b.Lon * math.Pi / 180

	dlat := lat2 - lat1
	dlon := lon2 - lon1
	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	return EarthRadiusM * 2 * math.Asin(math.Sqrt(h))
}

// SpatialScore maps a distance onto [0, 1]: 1 at zero distance, 0 at or
// beyond the threshold.
func SpatialScore(distanceM, thresholdM float64) float64 {
	if thresholdM <= 0 {
		return 0
	}
	return math.Max(0, 1-distanceM/thresholdM)
}

// TemporalScore maps a time difference in seconds onto [0, 1]: 1 for
// simultaneous observations, 0 at or beyond the window.
func TemporalScore(timeDiffSec, windowSec float64) float64 {
	if windowSec <= 0 {
		return 0
	}
	return math.Max(0, 1-timeDiffSec/windowSec)
}

// CombinedScore blends the spatial and temporal scores with the fixed
// 0.7 / 0.3 weighting.
func CombinedScore(spatial, temporal float64) float64 {
	return SpatialWeight*spatial + TemporalWeight*temporal
}
