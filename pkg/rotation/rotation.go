package rotation

import (
	"sync/atomic"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/gotacho/pkg/config"
)

// Estimator converts raw sensor pulses into a jitter-suppressed display rate
// and an averaged rate for log records.
//
// Capture is the only method safe to call from the interrupt (or device
// reader) context. It touches nothing but three atomic words: the last two
// accepted pulse timestamps and a new-pulse marker. No floating point, no
// allocation, no blocking. All other state belongs to the polling context.
type Estimator struct {
	// Shared with the capture context. Single producer (Capture), single
	// consumer (Estimate); the two timestamps plus the marker replace the
	// interrupt-disable bracket of the bare-metal variant.
	lastPulseUs atomic.Int64
	prevPulseUs atomic.Int64
	newPulse    atomic.Bool

	debounceUs int64 // read-only after New

	// Polling-context state.
	pulsesPerRev  int
	maxDeltaPerMs float32
	timeout       time.Duration
	refresh       time.Duration

	lastEstimate time.Time
	lastAccepted time.Time
	target       float32
	displayed    float32

	// Accumulator for the inter-record average.
	sum   float64
	count int
}

// New creates an Estimator from rotation configuration.
func New(cfg config.RotationConfig) *Estimator {
	ppr := cfg.PulsesPerRev
	if ppr <= 0 {
		ppr = 1
	}
	return &Estimator{
		debounceUs:    cfg.PulseDebounce.Microseconds(),
		pulsesPerRev:  ppr,
		maxDeltaPerMs: float32(cfg.MaxDeltaPerMs),
		timeout:       cfg.Timeout,
		refresh:       cfg.Refresh,
	}
}

// Capture records a sensor pulse at the given timestamp (microseconds, on
// whatever clock the sensor source uses; only differences between pulse
// timestamps matter). Pulses closer than the debounce gap to the previously
// accepted pulse are rejected. Safe to call from interrupt context.
func (e *Estimator) Capture(nowMicros int64) {
	last := e.lastPulseUs.Load()
	if last != 0 && nowMicros-last < e.debounceUs {
		return
	}
	e.prevPulseUs.Store(last)
	e.lastPulseUs.Store(nowMicros)
	e.newPulse.Store(true)
}

// Estimate recomputes the displayed rate. Calls arriving faster than the
// refresh cadence are no-ops returning false. Each accepted update also
// feeds the running average consumed by TakeAverage.
func (e *Estimator) Estimate(now time.Time) bool {
	if e.lastEstimate.IsZero() {
		e.lastEstimate = now
		e.accumulate()
		return true
	}
	elapsed := now.Sub(e.lastEstimate)
	if elapsed < e.refresh {
		return false
	}
	e.lastEstimate = now

	// A pulse captured during one loop pass becomes visible to the next
	// estimate through this single marker check. Acceptance is stamped on
	// the polling clock here: pulse timestamps come from the device clock
	// (boot-relative on a board without an RTC) and are only ever compared
	// against each other, never against host time.
	if e.newPulse.Swap(false) {
		e.lastAccepted = now
		last := e.lastPulseUs.Load()
		prev := e.prevPulseUs.Load()
		if interval := last - prev; prev != 0 && interval > 0 {
			intervalMs := float32(interval) / 1000.0
			e.target = 60000.0 / (intervalMs * float32(e.pulsesPerRev))
		}
	}

	// Sensor presumed stopped: no accepted pulse within the timeout window.
	if e.lastAccepted.IsZero() || now.Sub(e.lastAccepted) > e.timeout {
		e.target = 0
		e.displayed = 0
		e.accumulate()
		return true
	}

	// Rate-limit the change applied to the displayed value.
	maxDelta := e.maxDeltaPerMs * float32(elapsed.Milliseconds())
	delta := e.target - e.displayed
	if math32.Abs(delta) > maxDelta {
		delta = math32.Copysign(maxDelta, delta)
	}
	e.displayed += delta

	e.accumulate()
	return true
}

func (e *Estimator) accumulate() {
	e.sum += float64(e.displayed)
	e.count++
}

// Displayed returns the current rate-limited display value.
func (e *Estimator) Displayed() float32 { return e.displayed }

// TakeAverage returns the average displayed rate accumulated since the last
// call and resets the accumulator, so a log record carries the average over
// the inter-record interval rather than an instantaneous sample.
func (e *Estimator) TakeAverage() float64 {
	if e.count == 0 {
		return 0
	}
	avg := e.sum / float64(e.count)
	e.sum = 0
	e.count = 0
	return avg
}
