package gps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRMC(t *testing.T) {
	d := NewDecoder()
	now := time.Now()

	updated, err := d.Sentence("$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A", now)
	require.NoError(t, err)
	assert.True(t, updated)

	fix := d.Fix()
	assert.True(t, fix.PositionValid)
	assert.True(t, fix.SpeedValid)
	assert.True(t, fix.TimeValid)
	assert.True(t, fix.DateValid)
	assert.InDelta(t, 48.1173, fix.Latitude, 0.0001)
	assert.InDelta(t, 11.5166, fix.Longitude, 0.0001)
	assert.InDelta(t, 22.4, fix.SpeedKnots, 0.001)
	assert.Equal(t, 12, fix.Hour)
	assert.Equal(t, 35, fix.Minute)
	assert.Equal(t, 19, fix.Second)
	assert.Equal(t, 23, fix.Day)
	assert.Equal(t, time.March, fix.Month)
	assert.Equal(t, 2094, fix.Year)
	assert.Equal(t, now, fix.Updated)
}

func TestDecodeRMC_WestHemisphere(t *testing.T) {
	d := NewDecoder()

	updated, err := d.Sentence("$GPRMC,170500,A,3723.246,N,12202.736,W,28.1,90.0,270626,,*0D", time.Now())
	require.NoError(t, err)
	assert.True(t, updated)

	fix := d.Fix()
	assert.InDelta(t, 37.3874, fix.Latitude, 0.0001)
	assert.InDelta(t, -122.0456, fix.Longitude, 0.0001)
	assert.Equal(t, 2026, fix.Year)
	assert.Equal(t, time.June, fix.Month)
	assert.Equal(t, 27, fix.Day)
}

func TestDecodeRMC_Void(t *testing.T) {
	d := NewDecoder()

	// A valid fix first, then a void sentence invalidates position and speed
	// but time/date remain usable.
	_, err := d.Sentence("$GPRMC,170500,A,3723.246,N,12202.736,W,28.1,90.0,270626,,*0D", time.Now())
	require.NoError(t, err)

	updated, err := d.Sentence("$GPRMC,170501,V,,,,,,,270626,,*34", time.Now())
	require.NoError(t, err)
	assert.True(t, updated)

	fix := d.Fix()
	assert.False(t, fix.PositionValid)
	assert.False(t, fix.SpeedValid)
	assert.True(t, fix.TimeValid)
	assert.True(t, fix.DateValid)
	assert.Equal(t, 1, fix.Second)
}

func TestDecodeRMC_MalformedLeavesFixUntouched(t *testing.T) {
	d := NewDecoder()

	// Valid fix first, then a sentence whose time field parses but whose
	// coordinate is garbage. The error must not partially commit: the fix
	// keeps the previous time and position.
	_, err := d.Sentence("$GPRMC,170500,A,3723.246,N,12202.736,W,28.1,90.0,270626,,*0D", time.Now())
	require.NoError(t, err)
	before := d.Fix()

	updated, err := d.Sentence("$GPRMC,170501,A,BAD,N,12202.736,W,28.1,90.0,270626,,", time.Now())
	assert.Error(t, err)
	assert.False(t, updated)
	assert.Equal(t, before, d.Fix())
}

func TestDecodeGGA_Satellites(t *testing.T) {
	d := NewDecoder()

	updated, err := d.Sentence("$GPGGA,170500,3723.246,N,12202.736,W,1,05,1.1,12.0,M,,M,,*7F", time.Now())
	require.NoError(t, err)
	assert.True(t, updated)

	fix := d.Fix()
	assert.True(t, fix.SatsValid)
	assert.Equal(t, 5, fix.Satellites)
	assert.False(t, fix.PositionValid) // GGA position is not used
}

func TestSentence_BadChecksum(t *testing.T) {
	d := NewDecoder()

	updated, err := d.Sentence("$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*00", time.Now())
	assert.Error(t, err)
	assert.False(t, updated)
	assert.False(t, d.Fix().PositionValid)
}

func TestSentence_UnsupportedAndGarbage(t *testing.T) {
	d := NewDecoder()

	tests := []struct {
		name string
		line string
	}{
		{name: "GSV ignored", line: "$GPGSV,3,1,11,03,03,111,00,04,15,270,00,06,01,010,00,13,06,292,00"},
		{name: "empty line", line: ""},
		{name: "not a sentence", line: "hello world"},
		{name: "bare dollar", line: "$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated, err := d.Sentence(tt.line, time.Now())
			assert.NoError(t, err)
			assert.False(t, updated)
		})
	}
}

func TestFix_SpeedMph(t *testing.T) {
	tests := []struct {
		name  string
		knots float64
		want  int
	}{
		{name: "zero", knots: 0, want: 0},
		{name: "rounds down", knots: 20, want: 23},   // 23.0156
		{name: "rounds up", knots: 30, want: 35},     // 34.5234 -> 35
		{name: "highway", knots: 60.8, want: 70},     // 69.967
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fix := Fix{SpeedKnots: tt.knots}
			assert.Equal(t, tt.want, fix.SpeedMph())
		})
	}
}

func TestFix_Loggable(t *testing.T) {
	fix := Fix{
		PositionValid: true,
		TimeValid:     true,
		DateValid:     true,
		SatsValid:     true,
		Satellites:    5,
	}

	assert.True(t, fix.Loggable(4))
	assert.True(t, fix.Loggable(5))
	assert.False(t, fix.Loggable(6))

	noPos := fix
	noPos.PositionValid = false
	assert.False(t, noPos.Loggable(4))

	noDate := fix
	noDate.DateValid = false
	assert.False(t, noDate.Loggable(4))
}

func TestFix_Age(t *testing.T) {
	now := time.Now()

	fix := Fix{Updated: now.Add(-2 * time.Second)}
	assert.Equal(t, 2*time.Second, fix.Age(now))

	var never Fix
	assert.Greater(t, never.Age(now), 100*365*24*time.Hour)
}
