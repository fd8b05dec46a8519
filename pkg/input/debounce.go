// Package input turns two physical buttons into mode and menu
// commands: level debouncing, short/long press classification, and the
// policy that maps presses onto the display mode machine and the
// settings action runner.
package input

// Event is a classified button event.
type Event int

const (
	EventNone Event = iota
	EventShortPress
	EventLongPress
)

func (e Event) String() string {
	switch e {
	case EventShortPress:
		return "short"
	case EventLongPress:
		return "long"
	default:
		return "none"
	}
}

// Default timings (milliseconds).
const (
	DefaultDebounceMS  = 50
	DefaultLongPressMS = 600
)

// Debouncer classifies one button's raw pressed level into short and
// long presses. A long press fires while the button is still held, the
// moment the threshold elapses; a short press fires on release. At most
// one event fires per physical press. Not safe for concurrent use; the
// poller owns it.
type Debouncer struct {
	debounceMS  int64
	longPressMS int64

	stable           bool
	candidate        bool
	candidateSinceMS int64
	pressStartMS     int64
	longFired        bool
}

// NewDebouncer builds a debouncer. Non-positive timings fall back to
// the defaults.
func NewDebouncer(debounceMS, longPressMS int64) *Debouncer {
	if debounceMS <= 0 {
		debounceMS = DefaultDebounceMS
	}
	if longPressMS <= 0 {
		longPressMS = DefaultLongPressMS
	}
	return &Debouncer{debounceMS: debounceMS, longPressMS: longPressMS}
}

// Update feeds one sampled level (true = pressed) and returns the event
// it completes, if any.
func (d *Debouncer) Update(pressed bool, nowMS int64) Event {
	if pressed != d.candidate {
		d.candidate = pressed
		d.candidateSinceMS = nowMS
	}

	if d.candidate != d.stable && nowMS-d.candidateSinceMS >= d.debounceMS {
		d.stable = d.candidate
		if d.stable {
			// Date the press from the raw edge, not the debounce commit,
			// so the long-press threshold measures the physical hold.
			d.pressStartMS = d.candidateSinceMS
			d.longFired = false
		} else {
			held := d.candidateSinceMS - d.pressStartMS
			if !d.longFired && held < d.longPressMS {
				return EventShortPress
			}
			return EventNone
		}
	}

	if d.stable && !d.longFired && nowMS-d.pressStartMS >= d.longPressMS {
		d.longFired = true
		return EventLongPress
	}
	return EventNone
}

// Pressed reports the debounced level.
func (d *Debouncer) Pressed() bool { return d.stable }
