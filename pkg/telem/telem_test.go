package telem

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gotacho/pkg/config"
	"github.com/itohio/gotacho/pkg/gps"
)

func TestParseLine(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		line    string
		want    Event
		wantErr bool
	}{
		{
			name: "nmea passthrough",
			line: "$GPRMC,170500,A,3723.246,N,12202.736,W,28.1,90.0,270626,,*0D",
			want: Event{Type: EventSentence, Sentence: "$GPRMC,170500,A,3723.246,N,12202.736,W,28.1,90.0,270626,,*0D"},
		},
		{
			name: "pulse",
			line: "P,1234567890123",
			want: Event{Type: EventPulse, PulseMicros: 1234567890123},
		},
		{
			name: "button low",
			line: "B,0",
			want: Event{Type: EventButton, ButtonHigh: false},
		},
		{
			name: "button high",
			line: "B,1",
			want: Event{Type: EventButton, ButtonHigh: true},
		},
		{
			name:    "invalid pulse",
			line:    "P,abc",
			wantErr: true,
		},
		{
			name:    "invalid button",
			line:    "B,2",
			wantErr: true,
		},
		{
			name:    "garbage",
			line:    "hello",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLine(tt.line, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.want.Received = now
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNMEASentence_ChecksumDecodable(t *testing.T) {
	line := nmeaSentence("GPRMC,170500,A,3723.246,N,12202.736,W,28.1,90.0,270626,,")
	assert.Equal(t, "$GPRMC,170500,A,3723.246,N,12202.736,W,28.1,90.0,270626,,*0D", line)

	d := gps.NewDecoder()
	updated, err := d.Sentence(line, time.Now())
	require.NoError(t, err)
	assert.True(t, updated)
}

func TestMock_ConnectClose(t *testing.T) {
	cfg := config.Default().Mock
	m := NewMock(&cfg)

	assert.False(t, m.IsConnected())
	require.NoError(t, m.Connect())
	assert.True(t, m.IsConnected())
	assert.Error(t, m.Connect(), "double connect is rejected")

	require.NoError(t, m.Close())
	assert.False(t, m.IsConnected())
	require.NoError(t, m.Close(), "double close is a no-op")
}

func TestMock_EmitsDecodableFixesAndPulses(t *testing.T) {
	cfg := config.MockConfig{
		StartLat:   54.6872,
		StartLon:   25.2797,
		Heading:    90,
		SpeedMph:   35,
		RPM:        3000,
		Satellites: 7,
		FixRate:    50 * time.Millisecond,
		FixDelay:   0,
	}
	m := NewMock(&cfg)
	require.NoError(t, m.Connect())
	defer m.Close()

	d := gps.NewDecoder()
	var pulses, sentences int

	deadline := time.After(2 * time.Second)
	for pulses < 5 || !d.Fix().Loggable(4) {
		select {
		case ev := <-m.Events():
			switch ev.Type {
			case EventPulse:
				pulses++
			case EventSentence:
				sentences++
				_, err := d.Sentence(ev.Sentence, ev.Received)
				assert.NoError(t, err, "mock sentences must decode cleanly")
			}
		case <-deadline:
			t.Fatalf("timed out: pulses=%d sentences=%d fix=%+v", pulses, sentences, d.Fix())
		}
	}

	fix := d.Fix()
	assert.InDelta(t, cfg.StartLat, fix.Latitude, 0.01)
	assert.InDelta(t, cfg.StartLon, fix.Longitude, 0.01)
	assert.Equal(t, cfg.Satellites, fix.Satellites)
	assert.InDelta(t, cfg.SpeedMph, float64(fix.SpeedMph()), 1.0)
}

func TestMock_FixDelayEmitsVoidSentences(t *testing.T) {
	cfg := config.MockConfig{
		StartLat:   54.6872,
		StartLon:   25.2797,
		SpeedMph:   35,
		Satellites: 7,
		FixRate:    30 * time.Millisecond,
		FixDelay:   10 * time.Second,
	}
	m := NewMock(&cfg)
	require.NoError(t, m.Connect())
	defer m.Close()

	d := gps.NewDecoder()
	deadline := time.After(2 * time.Second)
	seen := 0
	for seen < 4 {
		select {
		case ev := <-m.Events():
			if ev.Type != EventSentence {
				continue
			}
			seen++
			_, err := d.Sentence(ev.Sentence, ev.Received)
			assert.NoError(t, err)
		case <-deadline:
			t.Fatal("timed out waiting for sentences")
		}
	}

	fix := d.Fix()
	assert.False(t, fix.PositionValid, "no position before the fix delay")
	assert.True(t, fix.TimeValid, "time is reported while searching")
	assert.False(t, fix.Loggable(4))
}

func TestMock_CloseWhileEmitting(t *testing.T) {
	cfg := config.MockConfig{
		RPM:        6000,
		Satellites: 7,
		FixRate:    time.Millisecond,
	}
	m := NewMock(&cfg)
	require.NoError(t, m.Connect())

	// Close while the generator and a pending button release are still
	// producing. The channel must close only after every producer stopped.
	m.PressButton(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, m.Close())

	for range m.Events() {
	}

	// A closed device ignores further presses.
	m.PressButton(time.Millisecond)
	require.NoError(t, m.Close())
}

func TestMock_PressButton(t *testing.T) {
	cfg := config.MockConfig{
		RPM:     0,
		FixRate: time.Hour, // keep the stream quiet
	}
	m := NewMock(&cfg)
	require.NoError(t, m.Connect())
	defer m.Close()

	m.PressButton(50 * time.Millisecond)

	var levels []bool
	deadline := time.After(2 * time.Second)
	for len(levels) < 3 {
		select {
		case ev := <-m.Events():
			if ev.Type == EventButton {
				levels = append(levels, ev.ButtonHigh)
			}
		case <-deadline:
			t.Fatalf("timed out, levels=%v", levels)
		}
	}

	// Initial released level, press, then release.
	assert.Equal(t, []bool{true, false, true}, levels)
}
