package copsync

import (
	"fmt"
	"strings"
	"time"

	"github.com/MartinezAgullo/copforge/internal/cop"
	"github.com/MartinezAgullo/copforge/pkg/mapa"
)

// Translation tables between COP vocabulary and the mapa server's Spanish
// element types. Unknown values map to "desconocido" on the way out and
// cop.TypeUnknown on the way in.
var entityTypeToMapa = map[cop.EntityType]string{
	cop.TypeAircraft:       "aeronave",
	cop.TypeFighter:        "aeronave",
	cop.TypeBomber:         "aeronave",
	cop.TypeHelicopter:     "helicoptero",
	cop.TypeUAV:            "dron",
	cop.TypeMissile:        "misil",
	cop.TypeGroundVehicle:  "vehiculo",
	cop.TypeTank:           "tanque",
	cop.TypeAPC:            "vehiculo_blindado",
	cop.TypeArtillery:      "artilleria",
	cop.TypeInfantry:       "infanteria",
	cop.TypeShip:           "barco",
	cop.TypeDestroyer:      "destructor",
	cop.TypeSubmarine:      "submarino",
	cop.TypeBase:           "base",
	cop.TypeBuilding:       "edificio",
	cop.TypeInfrastructure: "infraestructura",
	cop.TypePerson:         "persona",
	cop.TypeEvent:          "evento",
	cop.TypeUnknown:        "desconocido",
}

// mapaToEntityType inverts entityTypeToMapa. The fighter/bomber collapse to
// "aeronave" is lossy; everything aeronave comes back as aircraft.
var mapaToEntityType = func() map[string]cop.EntityType {
	m := make(map[string]cop.EntityType, len(entityTypeToMapa))
	for k, v := range entityTypeToMapa {
		if _, taken := m[v]; !taken {
			m[v] = k
		}
	}
	m["aeronave"] = cop.TypeAircraft
	return m
}()

var classificationToMapa = map[cop.Classification]string{
	cop.ClassFriendly: "amigo",
	cop.ClassHostile:  "enemigo",
	cop.ClassNeutral:  "neutral",
	cop.ClassUnknown:  "desconocido",
}

var mapaToClassification = map[string]cop.Classification{
	"amigo":       cop.ClassFriendly,
	"enemigo":     cop.ClassHostile,
	"neutral":     cop.ClassNeutral,
	"desconocido": cop.ClassUnknown,
}

// EntityToPunto converts a COP entity to the mapa wire format.
func EntityToPunto(e cop.Entity) mapa.Punto {
	tipo, ok := entityTypeToMapa[e.EntityType]
	if !ok {
		tipo = "desconocido"
	}
	clasificacion, ok := classificationToMapa[e.Classification]
	if !ok {
		clasificacion = "desconocido"
	}

	nombre := e.EntityID
	if runes := []rune(nombre); len(runes) > 8 {
		nombre = string(runes[:8])
	}
	confianza := e.Confidence

	return mapa.Punto{
		ElementoIdentificado: e.EntityID,
		Nombre:               fmt.Sprintf("%s_%s", e.EntityType, nombre),
		TipoElemento:         tipo,
		Latitud:              e.Location.Lat,
		Longitud:             e.Location.Lon,
		Altitud:              e.Location.Alt,
		Rumbo:                e.Heading,
		Velocidad:            e.SpeedKmh,
		Clasificacion:        clasificacion,
		NivelClasificacion:   string(e.InfoClassification),
		Confianza:            &confianza,
		Sensores:             strings.Join(e.SourceSensors, ","),
		Timestamp:            e.Timestamp.UTC().Format(time.RFC3339),
		Comentarios:          e.Comments,
		Metadata:             e.Metadata,
	}
}

// PuntoToEntity converts a mapa punto back to a COP entity. Missing or
// unparseable fields fall back to safe defaults rather than failing the
// whole pull.
func PuntoToEntity(p mapa.Punto) cop.Entity {
	entityID := p.ElementoIdentificado
	if entityID == "" {
		entityID = fmt.Sprintf("mapa_%d", p.ID)
	}

	entityType, ok := mapaToEntityType[p.TipoElemento]
	if !ok {
		entityType = cop.TypeUnknown
	}
	classification, ok := mapaToClassification[p.Clasificacion]
	if !ok {
		classification = cop.ClassUnknown
	}

	timestamp := time.Now().UTC()
	if p.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, p.Timestamp); err == nil {
			timestamp = ts.UTC()
		}
	}

	var sensors []string
	if p.Sensores != "" {
		sensors = strings.Split(p.Sensores, ",")
	}

	confidence := 0.5
	if p.Confianza != nil {
		confidence = *p.Confianza
	}

	info := cop.InfoClassification(p.NivelClasificacion)
	if !info.Valid() {
		info = cop.InfoUnclassified
	}

	return cop.Entity{
		EntityID:           entityID,
		EntityType:         entityType,
		Location:           cop.Location{Lat: p.Latitud, Lon: p.Longitud, Alt: p.Altitud},
		Heading:            p.Rumbo,
		SpeedKmh:           p.Velocidad,
		Classification:     classification,
		InfoClassification: info,
		Confidence:         confidence,
		Timestamp:          timestamp,
		SourceSensors:      sensors,
		Metadata:           p.Metadata,
		Comments:           p.Comentarios,
	}
}
