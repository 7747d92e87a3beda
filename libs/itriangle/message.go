package itriangle

import (
	"math"
	"strconv"
	"strings"
)

// Позиции полей в теле сообщения iTriangle TS101.
const (
	fieldSerialNumber = 1
	fieldLatitude     = 3
	fieldLongitude    = 4
	fieldSpeed        = 8
	fieldOdometer     = 9
	fieldHeading      = 10
	fieldOverspeed    = 18
	fieldIgnition     = 27

	FieldCount = 28
)

// Message - разобранное телематическое сообщение. Отсутствующие или
// нечисловые значения представлены как NaN.
type Message struct {
	SerialNumber   string  `json:"serial_number"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	SpeedKph       float64 `json:"speed"`
	OdometerKm     float64 `json:"odometer"`
	HeadingDegrees float64 `json:"heading"`
	Overspeed      float64 `json:"overspeed"`
	Ignition       float64 `json:"ignition"`
}

// Parse разбирает тело кадра. Никогда не завершается ошибкой: поля,
// которых нет в сообщении, получают значение NaN.
func Parse(body string) Message {
	fields := strings.Split(body, ",")

	return Message{
		SerialNumber:   stringField(fields, fieldSerialNumber),
		Latitude:       floatField(fields, fieldLatitude),
		Longitude:      floatField(fields, fieldLongitude),
		SpeedKph:       floatField(fields, fieldSpeed),
		OdometerKm:     floatField(fields, fieldOdometer),
		HeadingDegrees: floatField(fields, fieldHeading),
		Overspeed:      floatField(fields, fieldOverspeed),
		Ignition:       floatField(fields, fieldIgnition),
	}
}

func stringField(fields []string, i int) string {
	if i >= len(fields) {
		return ""
	}
	return fields[i]
}

func floatField(fields []string, i int) float64 {
	if i >= len(fields) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Present сообщает, было ли значение получено от устройства.
func Present(v float64) bool {
	return !math.IsNaN(v)
}

// IsHandshake - начальное сообщение без зажигания, одометра или курса.
// Полезной телеметрии в нём нет.
func (m *Message) IsHandshake() bool {
	return !Present(m.Ignition) || !Present(m.OdometerKm) || !Present(m.HeadingDegrees)
}

// HasPosition - координаты присутствуют и не равны нулю.
func (m *Message) HasPosition() bool {
	return Present(m.Latitude) && Present(m.Longitude) && m.Latitude != 0 && m.Longitude != 0
}
