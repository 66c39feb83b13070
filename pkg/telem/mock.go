package telem

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/itohio/gotacho/pkg/config"
)

// Mock simulates the telemetry board for testing and development: it drives
// a straight line at constant speed, emits NMEA fixes at the configured
// rate, rotation pulses matching the configured RPM, and scriptable button
// presses.
type Mock struct {
	cfg *config.MockConfig

	events    chan Event
	mu        sync.RWMutex
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool

	// Simulation state
	startTime time.Time
	lat       float64
	lon       float64
	lastFix   time.Time
	nextPulse time.Time
}

// NewMock creates a new mocked device instance.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		def := config.Default().Mock
		cfg = &def
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Mock{
		cfg:    cfg,
		events: make(chan Event, DefaultBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Connect starts the simulation.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	m.connected = true
	m.startTime = time.Now()
	m.lastFix = m.startTime
	m.nextPulse = m.startTime
	m.lat = m.cfg.StartLat
	m.lon = m.cfg.StartLon

	// Button released at start.
	m.emit(Event{Type: EventButton, Received: m.startTime, ButtonHigh: true})

	m.wg.Add(1)
	go m.generate()

	return nil
}

// Close stops the mocked device.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	m.cancel()
	m.connected = false

	// All producer goroutines must be done before the channel closes.
	m.wg.Wait()
	close(m.events)

	return nil
}

// Events returns the channel for reading telemetry events.
func (m *Mock) Events() <-chan Event {
	return m.events
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// PressButton simulates holding the physical button for the given duration.
// A no-op on a closed device.
func (m *Mock) PressButton(held time.Duration) {
	m.mu.RLock()
	if !m.connected {
		m.mu.RUnlock()
		return
	}
	m.emit(Event{Type: EventButton, Received: time.Now(), ButtonHigh: false})
	m.wg.Add(1)
	m.mu.RUnlock()

	go func() {
		defer m.wg.Done()
		select {
		case <-time.After(held):
			m.emit(Event{Type: EventButton, Received: time.Now(), ButtonHigh: true})
		case <-m.ctx.Done():
		}
	}()
}

// generate produces simulated telemetry events.
func (m *Mock) generate() {
	defer m.wg.Done()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	pulseGap := time.Duration(float64(time.Minute) / math.Max(m.cfg.RPM, 1))

	for {
		select {
		case <-m.ctx.Done():
			return
		case now := <-ticker.C:
			if m.cfg.RPM > 0 {
				for !m.nextPulse.After(now) {
					m.emit(Event{
						Type:        EventPulse,
						Received:    m.nextPulse,
						PulseMicros: m.nextPulse.UnixMicro(),
					})
					m.nextPulse = m.nextPulse.Add(pulseGap)
				}
			}

			if now.Sub(m.lastFix) >= m.cfg.FixRate {
				m.advance(now.Sub(m.lastFix))
				m.lastFix = now
				m.emitFix(now)
			}
		}
	}
}

// advance moves the simulated position along the configured heading.
func (m *Mock) advance(dt time.Duration) {
	meters := m.cfg.SpeedMph * 0.44704 * dt.Seconds()
	hdg := m.cfg.Heading * math.Pi / 180
	m.lat += math.Cos(hdg) * meters / 111320.0
	m.lon += math.Sin(hdg) * meters / (111320.0 * math.Cos(m.lat*math.Pi/180))
}

// emitFix emits one RMC + GGA pair. Before the configured fix delay has
// elapsed the receiver is still searching: RMC is void and GGA reports too
// few satellites.
func (m *Mock) emitFix(now time.Time) {
	utc := now.UTC()
	hhmmss := fmt.Sprintf("%02d%02d%02d", utc.Hour(), utc.Minute(), utc.Second())
	searching := now.Sub(m.startTime) < m.cfg.FixDelay

	var rmc, gga string
	if searching {
		rmc = fmt.Sprintf("GPRMC,%s,V,,,,,,,%02d%02d%02d,,",
			hhmmss, utc.Day(), int(utc.Month()), utc.Year()%100)
		gga = fmt.Sprintf("GPGGA,%s,,,,,0,02,,,M,,M,,", hhmmss)
	} else {
		latStr, latHemi := formatCoordinate(m.lat, true)
		lonStr, lonHemi := formatCoordinate(m.lon, false)
		knots := m.cfg.SpeedMph / 1.15078
		rmc = fmt.Sprintf("GPRMC,%s,A,%s,%s,%s,%s,%05.1f,%05.1f,%02d%02d%02d,,",
			hhmmss, latStr, latHemi, lonStr, lonHemi, knots, m.cfg.Heading,
			utc.Day(), int(utc.Month()), utc.Year()%100)
		gga = fmt.Sprintf("GPGGA,%s,%s,%s,%s,%s,1,%02d,1.0,10.0,M,,M,,",
			hhmmss, latStr, latHemi, lonStr, lonHemi, m.cfg.Satellites)
	}

	m.emit(Event{Type: EventSentence, Received: now, Sentence: nmeaSentence(rmc)})
	m.emit(Event{Type: EventSentence, Received: now, Sentence: nmeaSentence(gga)})
}

// formatCoordinate renders decimal degrees as NMEA ddmm.mmmm plus hemisphere.
func formatCoordinate(deg float64, isLat bool) (string, string) {
	hemi := "N"
	if isLat {
		if deg < 0 {
			hemi = "S"
		}
	} else {
		hemi = "E"
		if deg < 0 {
			hemi = "W"
		}
	}

	abs := math.Abs(deg)
	d := math.Floor(abs)
	min := (abs - d) * 60

	if isLat {
		return fmt.Sprintf("%02.0f%07.4f", d, min), hemi
	}
	return fmt.Sprintf("%03.0f%07.4f", d, min), hemi
}

// emit sends an event without blocking; the consumer is expected to keep up.
func (m *Mock) emit(event Event) {
	select {
	case m.events <- event:
	case <-m.ctx.Done():
	default:
	}
}
