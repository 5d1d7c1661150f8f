// Package cop holds the Common Operational Picture data model and the
// in-memory entity store. Every tracked object, regardless of which sensor
// reported it, is normalized into an Entity before entering the picture.
package cop

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// EntityType categorizes a tracked object.
type EntityType string

const (
	// Air
	TypeAircraft   EntityType = "aircraft"
	TypeFighter    EntityType = "fighter"
	TypeBomber     EntityType = "bomber"
	TypeHelicopter EntityType = "helicopter"
	TypeUAV        EntityType = "uav"
	TypeMissile    EntityType = "missile"
	// Ground
	TypeGroundVehicle EntityType = "ground_vehicle"
	TypeTank          EntityType = "tank"
	TypeAPC           EntityType = "apc"
	TypeArtillery     EntityType = "artillery"
	TypeInfantry      EntityType = "infantry"
	// Sea
	TypeShip      EntityType = "ship"
	TypeDestroyer EntityType = "destroyer"
	TypeSubmarine EntityType = "submarine"
	// Infrastructure
	TypeBase           EntityType = "base"
	TypeBuilding       EntityType = "building"
	TypeInfrastructure EntityType = "infrastructure"
	// Other
	TypePerson  EntityType = "person"
	TypeEvent   EntityType = "event"
	TypeUnknown EntityType = "unknown"
)

var validEntityTypes = map[EntityType]bool{
	TypeAircraft: true, TypeFighter: true, TypeBomber: true,
	TypeHelicopter: true, TypeUAV: true, TypeMissile: true,
	TypeGroundVehicle: true, TypeTank: true, TypeAPC: true,
	TypeArtillery: true, TypeInfantry: true,
	TypeShip: true, TypeDestroyer: true, TypeSubmarine: true,
	TypeBase: true, TypeBuilding: true, TypeInfrastructure: true,
	TypePerson: true, TypeEvent: true, TypeUnknown: true,
}

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool { return validEntityTypes[t] }

// Classification is the IFF (Identification Friend or Foe) tag of an entity.
type Classification string

const (
	ClassFriendly Classification = "friendly"
	ClassHostile  Classification = "hostile"
	ClassNeutral  Classification = "neutral"
	ClassUnknown  Classification = "unknown"
)

// Valid reports whether c is a known IFF classification.
func (c Classification) Valid() bool {
	switch c {
	case ClassFriendly, ClassHostile, ClassNeutral, ClassUnknown:
		return true
	}
	return false
}

// InfoClassification is the security level of an entity's information.
type InfoClassification string

const (
	InfoUnclassified InfoClassification = "UNCLASSIFIED"
	InfoRestricted   InfoClassification = "RESTRICTED"
	InfoConfidential InfoClassification = "CONFIDENTIAL"
	InfoSecret       InfoClassification = "SECRET"
	InfoTopSecret    InfoClassification = "TOP_SECRET"
)

var infoRank = map[InfoClassification]int{
	InfoUnclassified: 0,
	InfoRestricted:   1,
	InfoConfidential: 2,
	InfoSecret:       3,
	InfoTopSecret:    4,
}

// Valid reports whether ic is a known security level.
func (ic InfoClassification) Valid() bool {
	_, ok := infoRank[ic]
	return ok
}

// Rank returns the numeric position of ic in the ordered hierarchy
// (UNCLASSIFIED = 0 ... TOP_SECRET = 4). Unknown levels rank lowest.
func (ic InfoClassification) Rank() int { return infoRank[ic] }

// HigherInfoClassification returns whichever of a, b sits higher in the
// security hierarchy.
func HigherInfoClassification(a, b InfoClassification) InfoClassification {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// coordPrecision is the decimal precision coordinates are stored and
// compared at (6 decimals, roughly 0.1 m).
const coordPrecision = 1e6

func round6(v float64) float64 {
	return math.Round(v*coordPrecision) / coordPrecision
}

// Location is a geographic position with optional altitude in meters.
type Location struct {
	Lat float64  `json:"lat"`
	Lon float64  `json:"lon"`
	Alt *float64 `json:"alt,omitempty"`
}

// Rounded returns the location with lat/lon rounded to 6 decimal places.
func (l Location) Rounded() Location {
	l.Lat = round6(l.Lat)
	l.Lon = round6(l.Lon)
	return l
}

// Equal reports whether two locations match at 6-decimal precision.
// Altitude is not part of the comparison.
func (l Location) Equal(o Location) bool {
	return round6(l.Lat) == round6(o.Lat) && round6(l.Lon) == round6(o.Lon)
}

func (l Location) String() string {
	if l.Alt != nil {
		return fmt.Sprintf("(%.4f, %.4f, %.0fm)", l.Lat, l.Lon, *l.Alt)
	}
	return fmt.Sprintf("(%.4f, %.4f)", l.Lat, l.Lon)
}

// Entity is a single normalized track in the Common Operational Picture.
type Entity struct {
	EntityID   string     `json:"entity_id"`
	EntityType EntityType `json:"entity_type"`

	Location Location `json:"location"`
	Heading  *float64 `json:"heading,omitempty"`
	SpeedKmh *float64 `json:"speed_kmh,omitempty"`

	Classification     Classification     `json:"classification"`
	InfoClassification InfoClassification `json:"information_classification"`

	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`

	SourceSensors []string       `json:"source_sensors"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Comments      string         `json:"comments,omitempty"`
}

// Normalize fills enum defaults, canonicalizes casing, and rounds
// coordinates. Sensor inputs are sloppy about case, so classification is
// lowercased and the security level uppercased before validation.
func (e *Entity) Normalize() {
	if e.EntityType == "" {
		e.EntityType = TypeUnknown
	}
	if e.Classification == "" {
		e.Classification = ClassUnknown
	} else {
		e.Classification = Classification(strings.ToLower(string(e.Classification)))
	}
	if e.InfoClassification == "" {
		e.InfoClassification = InfoUnclassified
	} else {
		e.InfoClassification = InfoClassification(strings.ToUpper(string(e.InfoClassification)))
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	e.Location = e.Location.Rounded()
}

// Validate checks the invariants every stored entity must hold. It returns
// a *ValidationError describing the first violation found, or nil.
func (e *Entity) Validate() error {
	if e.EntityID == "" {
		return &ValidationError{Field: "entity_id", Reason: "must not be empty"}
	}
	if !e.EntityType.Valid() {
		return &ValidationError{Field: "entity_type", Reason: fmt.Sprintf("unknown entity type %q", e.EntityType)}
	}
	if e.Location.Lat < -90 || e.Location.Lat > 90 {
		return &ValidationError{Field: "location.lat", Reason: fmt.Sprintf("latitude %v out of range [-90, 90]", e.Location.Lat)}
	}
	if e.Location.Lon < -180 || e.Location.Lon > 180 {
		return &ValidationError{Field: "location.lon", Reason: fmt.Sprintf("longitude %v out of range [-180, 180]", e.Location.Lon)}
	}
	if !e.Classification.Valid() {
		return &ValidationError{Field: "classification", Reason: fmt.Sprintf("unknown classification %q", e.Classification)}
	}
	if !e.InfoClassification.Valid() {
		return &ValidationError{Field: "information_classification", Reason: fmt.Sprintf("unknown level %q", e.InfoClassification)}
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return &ValidationError{Field: "confidence", Reason: fmt.Sprintf("confidence %v out of range [0, 1]", e.Confidence)}
	}
	if e.Heading != nil && (*e.Heading < 0 || *e.Heading >= 360) {
		return &ValidationError{Field: "heading", Reason: fmt.Sprintf("heading %v out of range [0, 360)", *e.Heading)}
	}
	if e.SpeedKmh != nil && *e.SpeedKmh < 0 {
		return &ValidationError{Field: "speed_kmh", Reason: "speed must not be negative"}
	}
	return nil
}

// Clone returns a deep copy of the entity. Slices and the metadata map are
// copied so the result can be mutated without affecting the original.
func (e Entity) Clone() Entity {
	c := e
	if e.SourceSensors != nil {
		c.SourceSensors = append([]string(nil), e.SourceSensors...)
	}
	if e.Metadata != nil {
		c.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = v
		}
	}
	if e.Heading != nil {
		h := *e.Heading
		c.Heading = &h
	}
	if e.SpeedKmh != nil {
		s := *e.SpeedKmh
		c.SpeedKmh = &s
	}
	if e.Location.Alt != nil {
		a := *e.Location.Alt
		c.Location.Alt = &a
	}
	return c
}

func (e Entity) String() string {
	return fmt.Sprintf("Entity(%s, %s, %s, %s)", e.EntityID, e.EntityType, e.Classification, e.Location)
}

// UnionSensors merges two sensor lists, dropping duplicates. The result is
// sorted so fused entities compare deterministically.
func UnionSensors(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range a {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
