package types

import "math"

type Position2D struct {
	Latitude  float64
	Longitude float64
}

// Valid возвращает true, если обе координаты заданы и не равны нулю.
func (p Position2D) Valid() bool {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) {
		return false
	}
	return p.Latitude != 0 && p.Longitude != 0
}
