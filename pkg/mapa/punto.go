package mapa

// Punto is a point of interest as the mapa-puntos-interes API represents
// it. Field names follow the server's Spanish schema; sensores is a
// comma-separated list.
type Punto struct {
	ID                   int            `json:"id,omitempty"`
	ElementoIdentificado string         `json:"elemento_identificado,omitempty"`
	Nombre               string         `json:"nombre,omitempty"`
	TipoElemento         string         `json:"tipo_elemento,omitempty"`
	Latitud              float64        `json:"latitud"`
	Longitud             float64        `json:"longitud"`
	Altitud              *float64       `json:"altitud,omitempty"`
	Rumbo                *float64       `json:"rumbo,omitempty"`
	Velocidad            *float64       `json:"velocidad,omitempty"`
	Clasificacion        string         `json:"clasificacion,omitempty"`
	NivelClasificacion   string         `json:"nivel_clasificacion,omitempty"`
	Confianza            *float64       `json:"confianza,omitempty"`
	Sensores             string         `json:"sensores,omitempty"`
	Timestamp            string         `json:"timestamp,omitempty"`
	Comentarios          string         `json:"comentarios,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty"`
}

// HealthStatus is the outcome of a health probe.
type HealthStatus struct {
	Reachable bool   `json:"reachable"`
	LatencyMS int64  `json:"latency_ms"`
	Message   string `json:"message,omitempty"`
}
