package itriangle

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	fieldMessageType = 2
	fieldTime        = 5
	fieldValidity    = 6

	timeLayout = "020106150405"
)

func formatFloat(v float64) string {
	if !Present(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Checksum - XOR всех байт тела в виде двух шестнадцатеричных символов.
func Checksum(body string) string {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return fmt.Sprintf("%02X", sum)
}

func frame(fields []string) []byte {
	body := strings.Join(fields, ",")
	return []byte("$$" + body + EndMarker + Checksum(body))
}

// Encode собирает кадр TS101 из сообщения. Поля со значением NaN остаются пустыми.
func Encode(m Message, at time.Time) []byte {
	fields := make([]string, FieldCount)
	for i := range fields {
		fields[i] = "0"
	}
	fields[0] = strings.TrimPrefix(StartMarker, "$$")
	fields[fieldSerialNumber] = m.SerialNumber
	fields[fieldMessageType] = "101"
	fields[fieldLatitude] = formatFloat(m.Latitude)
	fields[fieldLongitude] = formatFloat(m.Longitude)
	fields[fieldTime] = at.UTC().Format(timeLayout)
	fields[fieldValidity] = "A"
	fields[fieldSpeed] = formatFloat(m.SpeedKph)
	fields[fieldOdometer] = formatFloat(m.OdometerKm)
	fields[fieldHeading] = formatFloat(m.HeadingDegrees)
	fields[fieldOverspeed] = formatFloat(m.Overspeed)
	fields[fieldIgnition] = formatFloat(m.Ignition)

	return frame(fields)
}

// Handshake собирает начальный кадр, который трекер шлёт после подключения.
func Handshake(serial string, at time.Time) []byte {
	return frame([]string{
		strings.TrimPrefix(StartMarker, "$$"), serial, "101", "", "", at.UTC().Format(timeLayout), "V",
	})
}
