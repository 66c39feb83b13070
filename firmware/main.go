//go:generate tinygo flash -target=xiao-esp32c3

//go:build tinygo

package main

import (
	"machine"
	"time"
)

var (
	gps = machine.UART1

	// GPS line assembly
	gpsBuffer [96]byte
	gpsPos    int
	gpsDrop   bool

	// Pulse capture - written by the pin interrupt, drained by the main
	// loop. The flag is cleared before the timestamp is read so a pulse
	// landing in between is reported on the next pass, not lost.
	lastPulseMicros int64
	pulsePending    bool

	// Button level - raw, debouncing happens on the host
	buttonHigh bool
)

func main() {
	// Pulse and button are active-low with internal pull-ups
	PIN_PULSE.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	PIN_BUTTON.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	// Configure GPS UART
	gps.Configure(machine.UARTConfig{
		BaudRate: GPS_BAUD_RATE,
		TX:       PIN_GPS_TX,
		RX:       PIN_GPS_RX,
	})

	PIN_PULSE.SetInterrupt(machine.PinFalling, onPulse)

	// Report the initial button level so the host debouncer starts from
	// the real state instead of assuming released.
	buttonHigh = PIN_BUTTON.Get()
	reportButton()

	// Main loop
	for {
		processGPS()
		emitPulse()
		pollButton()

		// Small delay to prevent tight loop (but still allow precise timing)
		time.Sleep(100 * time.Microsecond)
	}
}

// onPulse timestamps one sensor edge. Runs in interrupt context: no
// allocation, no printing, just the two stores.
func onPulse(machine.Pin) {
	now := time.Now().UnixNano() / 1000
	if now-lastPulseMicros < PULSE_DEBOUNCE_US {
		return
	}
	lastPulseMicros = now
	pulsePending = true
}

// emitPulse reports a captured pulse as "P,<unix_micros>".
func emitPulse() {
	if !pulsePending {
		return
	}
	pulsePending = false
	timestampMicros := lastPulseMicros

	print("P,")
	print(timestampMicros)
	print("\n")
}

// processGPS assembles NMEA lines from the GPS UART and forwards complete
// sentences to the host unchanged. Checksum validation is the host's job;
// the firmware only guarantees line framing.
func processGPS() {
	for gps.Buffered() > 0 {
		data, err := gps.ReadByte()
		if err != nil {
			break
		}

		// Check for newline (end of line)
		if data == '\n' || data == '\r' {
			if gpsPos > 0 && !gpsDrop && gpsBuffer[0] == '$' {
				print(string(gpsBuffer[:gpsPos]))
				print("\n")
			}
			gpsPos = 0
			gpsDrop = false
			continue
		}

		if gpsPos < len(gpsBuffer) {
			gpsBuffer[gpsPos] = data
			gpsPos++
		} else {
			// Over-length line - drop the whole sentence, not a prefix
			gpsDrop = true
		}
	}
}

// pollButton reports the raw button level as "B,<0|1>" whenever it changes.
func pollButton() {
	high := PIN_BUTTON.Get()
	if high == buttonHigh {
		return
	}
	buttonHigh = high
	reportButton()
}

func reportButton() {
	if buttonHigh {
		print("B,1\n")
	} else {
		print("B,0\n")
	}
}
