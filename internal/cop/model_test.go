package cop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEntity(id string) Entity {
	return Entity{
		EntityID:           id,
		EntityType:         TypeAircraft,
		Location:           Location{Lat: 39.5, Lon: -0.4},
		Classification:     ClassUnknown,
		InfoClassification: InfoSecret,
		Confidence:         0.9,
		Timestamp:          time.Date(2025, 10, 15, 14, 30, 0, 0, time.UTC),
		SourceSensors:      []string{"radar_01"},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	alt := 5000.0
	heading := 270.0
	speed := 450.0

	base := validEntity("radar_01_T001")
	base.Location.Alt = &alt
	base.Heading = &heading
	base.SpeedKmh = &speed
	require.NoError(t, base.Validate())

	tests := []struct {
		name    string
		mutate  func(e *Entity)
		wantErr string
	}{
		{"missing entity_id", func(e *Entity) { e.EntityID = "" }, "entity_id"},
		{"bad entity_type", func(e *Entity) { e.EntityType = "starship" }, "entity_type"},
		{"lat too high", func(e *Entity) { e.Location.Lat = 90.1 }, "location.lat"},
		{"lat too low", func(e *Entity) { e.Location.Lat = -91 }, "location.lat"},
		{"lon too high", func(e *Entity) { e.Location.Lon = 180.5 }, "location.lon"},
		{"bad classification", func(e *Entity) { e.Classification = "ally" }, "classification"},
		{"bad info level", func(e *Entity) { e.InfoClassification = "SUPER_SECRET" }, "information_classification"},
		{"confidence above 1", func(e *Entity) { e.Confidence = 1.2 }, "confidence"},
		{"confidence below 0", func(e *Entity) { e.Confidence = -0.1 }, "confidence"},
		{"heading 360", func(e *Entity) { h := 360.0; e.Heading = &h }, "heading"},
		{"negative speed", func(e *Entity) { s := -1.0; e.SpeedKmh = &s }, "speed_kmh"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := validEntity("x1")
			tt.mutate(&e)
			err := e.Validate()
			require.Error(t, err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantErr, ve.Field)
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	e := Entity{
		EntityID:           "t1",
		Location:           Location{Lat: 39.50000049, Lon: -0.40000051},
		Classification:     "HOSTILE",
		InfoClassification: "secret",
	}
	e.Normalize()

	assert.Equal(t, TypeUnknown, e.EntityType)
	assert.Equal(t, ClassHostile, e.Classification)
	assert.Equal(t, InfoSecret, e.InfoClassification)
	assert.False(t, e.Timestamp.IsZero())
	assert.InDelta(t, 39.5, e.Location.Lat, 1e-9)
	assert.InDelta(t, -0.400001, e.Location.Lon, 1e-9)
}

func TestNormalizeKeepsExistingTimestamp(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 10, 15, 14, 30, 0, 0, time.UTC)
	e := Entity{EntityID: "t1", Timestamp: ts}
	e.Normalize()
	assert.Equal(t, ts, e.Timestamp)
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	alt := 100.0
	e := validEntity("t1")
	e.Location.Alt = &alt
	e.Metadata = map[string]any{"track_id": "T001"}

	c := e.Clone()
	c.SourceSensors[0] = "mutated"
	c.Metadata["track_id"] = "T999"
	*c.Location.Alt = 0

	assert.Equal(t, "radar_01", e.SourceSensors[0])
	assert.Equal(t, "T001", e.Metadata["track_id"])
	assert.Equal(t, 100.0, *e.Location.Alt)
}

func TestInfoClassificationRank(t *testing.T) {
	t.Parallel()

	assert.Greater(t, InfoTopSecret.Rank(), InfoSecret.Rank())
	assert.Greater(t, InfoSecret.Rank(), InfoConfidential.Rank())
	assert.Greater(t, InfoConfidential.Rank(), InfoRestricted.Rank())
	assert.Greater(t, InfoRestricted.Rank(), InfoUnclassified.Rank())

	assert.Equal(t, InfoSecret, HigherInfoClassification(InfoSecret, InfoRestricted))
	assert.Equal(t, InfoSecret, HigherInfoClassification(InfoRestricted, InfoSecret))
	assert.Equal(t, InfoTopSecret, HigherInfoClassification(InfoTopSecret, InfoTopSecret))
}

func TestLocationEqualPrecision(t *testing.T) {
	t.Parallel()

	a := Location{Lat: 39.5000001, Lon: -0.4000001}
	b := Location{Lat: 39.5000004, Lon: -0.4000004}
	c := Location{Lat: 39.5000100, Lon: -0.4000001}

	// Within 6-decimal precision these collapse to the same point.
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestUnionSensors(t *testing.T) {
	t.Parallel()

	got := UnionSensors([]string{"radar_01", "ais_02"}, []string{"ais_02", "drone_03", ""})
	assert.Equal(t, []string{"ais_02", "drone_03", "radar_01"}, got)

	assert.Nil(t, UnionSensors(nil, nil))
}
