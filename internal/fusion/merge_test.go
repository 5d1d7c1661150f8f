package fusion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MartinezAgullo/copforge/internal/cop"
)

func storeWith(t *testing.T, entities ...cop.Entity) *cop.Store {
	t.Helper()
	s := cop.NewStore()
	for _, e := range entities {
		_, err := s.Upsert(e)
		require.NoError(t, err)
	}
	return s
}

func TestMergeTwoSensorTracks(t *testing.T) {
	t.Parallel()

	older := track("radar_01_T001", 39.4699, -0.3763, baseTime)
	older.Confidence = 0.75
	older.Classification = cop.ClassHostile
	older.InfoClassification = cop.InfoSecret
	older.Metadata = map[string]any{"track_id": "T001", "origin": "radar"}

	newer := track("drone_03_X1", 39.4709, -0.3763, baseTime.Add(30*time.Second))
	newer.Confidence = 0.85
	newer.Classification = cop.ClassHostile
	newer.InfoClassification = cop.InfoRestricted
	newer.SourceSensors = []string{"drone_03"}
	newer.Metadata = map[string]any{"origin": "drone"}

	s := storeWith(t, older, newer)

	res, err := Merge(s, "radar_01_T001", "drone_03_X1", "radar_01_T001")
	require.NoError(t, err)

	assert.Equal(t, "radar_01_T001", res.KeptEntityID)
	assert.Equal(t, "drone_03_X1", res.RemovedEntityID)
	assert.Equal(t, "drone_03_X1", res.NewerEntityID)

	m := res.Merged
	assert.Equal(t, "radar_01_T001", m.EntityID)
	// Newer position wins.
	assert.InDelta(t, 39.4709, m.Location.Lat, 1e-9)
	// Higher security level wins regardless of recency.
	assert.Equal(t, cop.InfoSecret, m.InfoClassification)
	// min(1.0, max(0.75, 0.85) + 0.1)
	assert.InDelta(t, 0.95, m.Confidence, 1e-9)
	assert.Equal(t, []string{"drone_03", "radar_01"}, m.SourceSensors)
	assert.Equal(t, newer.Timestamp, m.Timestamp)

	// Metadata is merged, newer entity winning collisions.
	assert.Equal(t, "T001", m.Metadata["track_id"])
	assert.Equal(t, "drone", m.Metadata["origin"])
	assert.Equal(t, []string{"radar_01_T001", "drone_03_X1"}, m.Metadata["merged_from"])
	_, err = time.Parse(time.RFC3339, m.Metadata["merge_timestamp"].(string))
	assert.NoError(t, err)

	// Only one entity survives.
	assert.Equal(t, 1, s.Len())
	_, ok := s.Get("drone_03_X1")
	assert.False(t, ok)
}

func TestMergeConfidenceCap(t *testing.T) {
	t.Parallel()

	a := track("a", 39.4699, -0.3763, baseTime)
	a.Confidence = 0.95
	b := track("b", 39.4700, -0.3763, baseTime.Add(time.Second))
	b.Confidence = 0.98

	s := storeWith(t, a, b)

	res, err := Merge(s, "a", "b", "a")
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.ConfidenceAfterMerge)
}

func TestMergeDefaultsKeepToFirst(t *testing.T) {
	t.Parallel()

	s := storeWith(t,
		track("a", 39.4699, -0.3763, baseTime),
		track("b", 39.4700, -0.3763, baseTime))

	res, err := Merge(s, "a", "b", "")
	require.NoError(t, err)
	assert.Equal(t, "a", res.KeptEntityID)
	assert.Equal(t, "b", res.RemovedEntityID)
}

func TestMergeKinematicsFallBack(t *testing.T) {
	t.Parallel()

	heading := 270.0
	speed := 450.0
	older := track("a", 39.4699, -0.3763, baseTime)
	older.Heading = &heading
	older.SpeedKmh = &speed
	older.Comments = "initial contact"

	newer := track("b", 39.4700, -0.3763, baseTime.Add(time.Minute))

	s := storeWith(t, older, newer)

	res, err := Merge(s, "a", "b", "a")
	require.NoError(t, err)

	// The newer track carried no kinematics, so the older values survive.
	require.NotNil(t, res.Merged.Heading)
	assert.Equal(t, 270.0, *res.Merged.Heading)
	require.NotNil(t, res.Merged.SpeedKmh)
	assert.Equal(t, 450.0, *res.Merged.SpeedKmh)
	assert.Equal(t, "initial contact", res.Merged.Comments)
}

func TestMergeEntityWithItself(t *testing.T) {
	t.Parallel()

	a := track("a", 39.4699, -0.3763, baseTime)
	a.Confidence = 0.8
	s := storeWith(t, a)

	res, err := Merge(s, "a", "a", "a")
	require.NoError(t, err)
	assert.Equal(t, "a", res.KeptEntityID)
	assert.Empty(t, res.RemovedEntityID)
	assert.InDelta(t, 0.9, res.ConfidenceAfterMerge, 1e-9)

	// Nothing is removed: the entity survives in snapshots.
	assert.Equal(t, 1, s.Len())
	_, ok := s.List().Get("a")
	assert.True(t, ok)
}

func TestMergeMissingEntity(t *testing.T) {
	t.Parallel()

	s := storeWith(t, track("a", 39.4699, -0.3763, baseTime))

	_, err := Merge(s, "a", "ghost", "a")
	require.ErrorIs(t, err, cop.ErrNotFound)
	assert.Equal(t, 1, s.Len())
}
