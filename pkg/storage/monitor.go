package storage

import "time"

// Event is the outcome of a presence poll.
type Event int

const (
	// Unchanged means presence did not change (or the check interval has
	// not yet elapsed).
	Unchanged Event = iota
	// Inserted means the medium appeared since the last check.
	Inserted
	// Removed means the medium disappeared since the last check. Any open
	// file handle is invalid from this point on.
	Removed
)

func (e Event) String() string {
	switch e {
	case Inserted:
		return "inserted"
	case Removed:
		return "removed"
	}
	return "unchanged"
}

// Monitor performs bounded-interval presence probing of a Volume and reports
// insertion/removal transitions. Probing has real cost on the physical bus,
// so polls inside the check interval return Unchanged without touching the
// volume.
type Monitor struct {
	vol      Volume
	interval time.Duration

	lastCheck time.Time
	present   bool
}

// NewMonitor creates a Monitor over the given volume. The medium is assumed
// absent until the first probe.
func NewMonitor(vol Volume, interval time.Duration) *Monitor {
	return &Monitor{vol: vol, interval: interval}
}

// Present returns the cached presence state from the last probe.
func (m *Monitor) Present() bool { return m.present }

// Poll probes the volume if the check interval has elapsed and returns the
// observed transition. The first poll always probes.
func (m *Monitor) Poll(now time.Time) Event {
	if !m.lastCheck.IsZero() && now.Sub(m.lastCheck) < m.interval {
		return Unchanged
	}
	m.lastCheck = now

	present := m.vol.Present()
	if present == m.present {
		return Unchanged
	}
	m.present = present
	if present {
		return Inserted
	}
	return Removed
}
