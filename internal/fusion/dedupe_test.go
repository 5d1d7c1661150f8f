package fusion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MartinezAgullo/copforge/internal/cop"
)

var baseTime = time.Date(2025, 10, 15, 14, 30, 0, 0, time.UTC)

func track(id string, lat, lon float64, ts time.Time) cop.Entity {
	return cop.Entity{
		EntityID:           id,
		EntityType:         cop.TypeAircraft,
		Location:           cop.Location{Lat: lat, Lon: lon},
		Classification:     cop.ClassUnknown,
		InfoClassification: cop.InfoUnclassified,
		Confidence:         0.8,
		Timestamp:          ts,
		SourceSensors:      []string{"radar_01"},
	}
}

func snapshotOf(entities ...cop.Entity) cop.Snapshot {
	return cop.Snapshot{Timestamp: baseTime, Entities: entities}
}

func TestFindDuplicatesNearbyTrack(t *testing.T) {
	t.Parallel()

	existing := track("radar_01_T001", 39.4699, -0.3763, baseTime)
	candidate := track("drone_03_X1", 39.4709, -0.3763, baseTime.Add(30*time.Second))
	candidate.SourceSensors = []string{"drone_03"}

	matches, th := FindDuplicates(candidate, snapshotOf(existing), 0, 0)

	assert.Equal(t, DefaultDistanceThresholdM, th.DistanceM)
	assert.Equal(t, DefaultTimeWindowSec, th.TimeWindowSec)
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, "radar_01_T001", m.EntityID)
	assert.Equal(t, cop.TypeAircraft, m.EntityType)
	assert.InDelta(t, 111.2, m.DistanceM, 0.5)
	assert.Equal(t, 30.0, m.TimeDiffSec)
	assert.InDelta(t, 0.814, m.Score, 0.003)
	assert.Equal(t, []string{"radar_01"}, m.ExistingSensors)
}

func TestFindDuplicatesFilters(t *testing.T) {
	t.Parallel()

	candidate := track("new", 39.4699, -0.3763, baseTime)

	otherType := track("heli", 39.4699, -0.3763, baseTime)
	otherType.EntityType = cop.TypeHelicopter

	otherClass := track("hostile", 39.4699, -0.3763, baseTime)
	otherClass.Classification = cop.ClassHostile

	farAway := track("far", 39.52, -0.3763, baseTime) // several km north

	stale := track("stale", 39.4699, -0.3763, baseTime.Add(-10*time.Minute))

	self := track("new", 39.4699, -0.3763, baseTime)

	matches, _ := FindDuplicates(candidate, snapshotOf(otherType, otherClass, farAway, stale, self), 500, 300)
	assert.Empty(t, matches)
}

func TestFindDuplicatesBoundaryInclusive(t *testing.T) {
	t.Parallel()

	candidate := track("new", 39.4699, -0.3763, baseTime)
	// Exactly at the time window edge: still a match, scored 0 temporally.
	edge := track("edge", 39.4699, -0.3763, baseTime.Add(300*time.Second))

	matches, _ := FindDuplicates(candidate, snapshotOf(edge), 500, 300)
	require.Len(t, matches, 1)
	assert.Equal(t, 300.0, matches[0].TimeDiffSec)
	assert.InDelta(t, 0.7, matches[0].Score, 1e-9)
}

func TestFindDuplicatesRanking(t *testing.T) {
	t.Parallel()

	candidate := track("new", 39.4699, -0.3763, baseTime)

	near := track("close", 39.4702, -0.3763, baseTime.Add(10*time.Second))
	far := track("far", 39.4730, -0.3763, baseTime.Add(200*time.Second))

	matches, _ := FindDuplicates(candidate, snapshotOf(far, near), 500, 300)
	require.Len(t, matches, 2)
	assert.Equal(t, "close", matches[0].EntityID)
	assert.Equal(t, "far", matches[1].EntityID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestFindDuplicatesEmptySnapshot(t *testing.T) {
	t.Parallel()

	candidate := track("new", 39.4699, -0.3763, baseTime)
	matches, _ := FindDuplicates(candidate, snapshotOf(), 500, 300)
	assert.Empty(t, matches)
}
