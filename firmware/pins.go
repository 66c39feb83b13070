//go:build tinygo

package main

import "machine"

const (
	// Pulse input configuration
	// Hall sensor pulls the pin low once per revolution (or more, with a
	// multi-magnet setup; the host divides by pulses_per_rev). Electrical
	// ringing right after an edge is rejected here so the host never sees it.
	PULSE_DEBOUNCE_US = 10000 // Minimum gap between reported pulses

	// Pulse and button pins
	PIN_PULSE  = machine.D1
	PIN_BUTTON = machine.D2

	// GPS UART pins
	PIN_GPS_TX = machine.D6
	PIN_GPS_RX = machine.D7

	// Serial configuration
	// GPS modules default to 9600 baud NMEA output.
	GPS_BAUD_RATE = 9600
	// Host link budget: NMEA passthrough dominates at ~2 sentences/sec of
	// <=82 bytes each, plus ~20 bytes per pulse report. Even at 6000 RPM
	// (100 pulses/sec) that is ~2,200 bytes/sec; UART 8N1 at 115200 gives
	// 11,520 bytes/sec, ~5x headroom.
	UART_BAUD_RATE = 115200
)
