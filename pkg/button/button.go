package button

import "time"

// State describes where the debouncer currently is. The physical input is
// active-low: HIGH is released, LOW is pressed.
type State int

const (
	// Idle means the stable level is HIGH and the raw level agrees.
	Idle State = iota
	// PressedUnstable means the raw level dropped but has not yet held
	// long enough to be accepted.
	PressedUnstable
	// PressedStable means the LOW level was accepted as the stable state.
	PressedStable
	// ReleasedUnstable means the raw level rose but has not yet held long
	// enough to be accepted.
	ReleasedUnstable
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PressedUnstable:
		return "pressed-unstable"
	case PressedStable:
		return "pressed-stable"
	case ReleasedUnstable:
		return "released-unstable"
	}
	return "unknown"
}

// Debouncer converts a noisy digital input into stable click / long-press
// events. Update is called once per poll pass with the raw level; events are
// edge-triggered one-shots consumed via TakeClick / TakeLongPress.
type Debouncer struct {
	debounce  time.Duration
	longPress time.Duration

	stableHigh bool      // accepted level
	rawHigh    bool      // last raw level seen
	changedAt  time.Time // when the raw level last changed
	pressedAt  time.Time // when the accepted level went LOW

	pendingClick bool
	pendingLong  bool
}

// New creates a Debouncer. The input is assumed released (HIGH) at start.
func New(debounce, longPress time.Duration) *Debouncer {
	return &Debouncer{
		debounce:   debounce,
		longPress:  longPress,
		stableHigh: true,
		rawHigh:    true,
	}
}

// Update feeds one raw reading. Any raw-level change restarts the debounce
// timer; a level becomes the new stable state only after holding
// continuously for the debounce duration.
func (d *Debouncer) Update(rawHigh bool, now time.Time) {
	if rawHigh != d.rawHigh {
		d.rawHigh = rawHigh
		d.changedAt = now
		return
	}

	if rawHigh == d.stableHigh || now.Sub(d.changedAt) < d.debounce {
		return
	}

	// Accept the new stable level.
	d.stableHigh = rawHigh
	if !rawHigh {
		// HIGH -> LOW: press begins. Duration is measured from the raw
		// edge, not the acceptance instant.
		d.pressedAt = d.changedAt
		return
	}

	// LOW -> HIGH: press ended. Exactly one of the two events fires.
	if d.changedAt.Sub(d.pressedAt) >= d.longPress {
		d.pendingLong = true
	} else {
		d.pendingClick = true
	}
}

// TakeClick consumes a pending click event. It returns true at most once per
// release; repeated polls before the next release return false.
func (d *Debouncer) TakeClick() bool {
	if d.pendingClick {
		d.pendingClick = false
		return true
	}
	return false
}

// TakeLongPress consumes a pending long-press event.
func (d *Debouncer) TakeLongPress() bool {
	if d.pendingLong {
		d.pendingLong = false
		return true
	}
	return false
}

// Pressed reports whether the accepted stable level is LOW.
func (d *Debouncer) Pressed() bool { return !d.stableHigh }

// State returns the current debounce state.
func (d *Debouncer) State() State {
	switch {
	case d.stableHigh && d.rawHigh:
		return Idle
	case d.stableHigh && !d.rawHigh:
		return PressedUnstable
	case !d.stableHigh && !d.rawHigh:
		return PressedStable
	default:
		return ReleasedUnstable
	}
}
