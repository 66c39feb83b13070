package telem

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EventType discriminates telemetry events from the device.
type EventType int

const (
	// EventSentence is a raw NMEA sentence forwarded from the GPS UART.
	EventSentence EventType = iota
	// EventPulse is an accepted rotation-sensor pulse.
	EventPulse
	// EventButton is a raw button level sampled by the device loop.
	EventButton
)

// Event is one telemetry event from the device.
type Event struct {
	Type     EventType
	Received time.Time // host receive time

	Sentence    string // EventSentence: full NMEA sentence including '$'
	PulseMicros int64  // EventPulse: device timestamp in microseconds
	ButtonHigh  bool   // EventButton: raw level, true = released (pull-up)
}

// parseLine parses one line of the device protocol into an Event.
// Format:
//
//	$GPRMC,...          NMEA passthrough
//	P,<unix_micros>     accepted rotation pulse
//	B,<0|1>             raw button level
func parseLine(line string, now time.Time) (Event, error) {
	if strings.HasPrefix(line, "$") {
		return Event{Type: EventSentence, Received: now, Sentence: line}, nil
	}

	switch {
	case strings.HasPrefix(line, "P,"):
		micros, err := strconv.ParseInt(line[2:], 10, 64)
		if err != nil {
			return Event{}, fmt.Errorf("invalid pulse timestamp: %w", err)
		}
		return Event{Type: EventPulse, Received: now, PulseMicros: micros}, nil

	case strings.HasPrefix(line, "B,"):
		switch line[2:] {
		case "0":
			return Event{Type: EventButton, Received: now, ButtonHigh: false}, nil
		case "1":
			return Event{Type: EventButton, Received: now, ButtonHigh: true}, nil
		}
		return Event{}, fmt.Errorf("invalid button level: %q", line)
	}

	return Event{}, fmt.Errorf("unrecognized line: %q", line)
}

// nmeaSentence wraps a sentence body into $<body>*<checksum> form.
func nmeaSentence(body string) string {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X", body, sum)
}
