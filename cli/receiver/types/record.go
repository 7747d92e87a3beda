package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Record - готовая к записи телеметрия одного транспортного средства.
type Record struct {
	ID            uuid.UUID `json:"id"`
	VehicleNumber string    `json:"vehicleNumber"`
	SerialNumber  string    `json:"serialNumber"`
	Speed         float64   `json:"speed"`
	Overspeed     float64   `json:"overspeed"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Geohash       string    `json:"geohash"`
	Ignition      int       `json:"ignition"`
	Odometer      float64   `json:"odometer"`
	Heading       float64   `json:"headingDirectionDegree"`
	Timestamp     time.Time `json:"timestamp"`
}

func (r *Record) Position() Position2D {
	return Position2D{Latitude: r.Latitude, Longitude: r.Longitude}
}

func (r *Record) ToBytes() ([]byte, error) {
	return json.Marshal(r)
}

func (r *Record) fields() map[string]interface{} {
	return map[string]interface{}{
		"id":                     r.ID.String(),
		"vehicleNumber":          r.VehicleNumber,
		"serialNumber":           r.SerialNumber,
		"speed":                  r.Speed,
		"overspeed":              r.Overspeed,
		"latitude":               r.Latitude,
		"longitude":              r.Longitude,
		"geohash":                r.Geohash,
		"ignition":               r.Ignition,
		"odometer":               r.Odometer,
		"headingDirectionDegree": r.Heading,
		"timestamp":              r.Timestamp.UnixMilli(),
	}
}
