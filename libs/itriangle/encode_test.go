package itriangle

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2013, time.August, 19, 17, 23, 19, 0, time.UTC)

func TestEncodeIsExtractable(t *testing.T) {
	m := Message{
		SerialNumber:   "1234567880",
		Latitude:       20.2664,
		Longitude:      85.8333,
		SpeedKph:       24,
		OdometerKm:     1945,
		HeadingDegrees: 358,
		Overspeed:      0,
		Ignition:       1,
	}

	raw := Encode(m, at)
	assert.Contains(t, string(raw), ",190813172319,A,")

	bodies, err := NewExtractor(0).Feed(raw)
	require.NoError(t, err)
	require.Len(t, bodies, 1)
	assert.Equal(t, m, Parse(bodies[0]))
}

func TestEncodeMissingFields(t *testing.T) {
	m := Message{SerialNumber: "DEV1", Latitude: 1, Longitude: 2, Ignition: math.NaN(), OdometerKm: 3, HeadingDegrees: 4}

	bodies, err := NewExtractor(0).Feed(Encode(m, at))
	require.NoError(t, err)
	require.Len(t, bodies, 1)

	got := Parse(bodies[0])
	assert.True(t, got.IsHandshake())
}

func TestHandshake(t *testing.T) {
	bodies, err := NewExtractor(0).Feed(Handshake("DEV1", at))
	require.NoError(t, err)
	require.Len(t, bodies, 1)

	m := Parse(bodies[0])
	assert.Equal(t, "DEV1", m.SerialNumber)
	assert.True(t, m.IsHandshake())
	assert.False(t, m.HasPosition())
}

func TestChecksum(t *testing.T) {
	assert.Equal(t, "00", Checksum(""))
	assert.Equal(t, "41", Checksum("A"))
	assert.Equal(t, "03", Checksum("AB"))
}
