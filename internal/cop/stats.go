package cop

import "time"

// Stats aggregates the current picture: entity counts broken down by type
// and IFF classification, the distinct sensors that contributed, and the
// mean confidence across all entities (rounded to 3 decimals).
type Stats struct {
	TotalEntities     int                    `json:"total_entities"`
	ByType            map[EntityType]int     `json:"by_type"`
	ByClassification  map[Classification]int `json:"by_classification"`
	UniqueSensors     int                    `json:"unique_sensors"`
	SensorList        []string               `json:"sensor_list"`
	AverageConfidence float64                `json:"average_confidence"`
	CreatedAt         time.Time              `json:"created_at"`
	LastUpdated       time.Time              `json:"last_updated"`
}
