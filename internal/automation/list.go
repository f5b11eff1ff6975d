package automation

import (
	"sort"
	"sync"
)

// State describes how an automation list participates in a running session.
type State string

// Automation states.
const (
	// StateOff means the list is ignored; the control's raw value rules.
	StateOff State = "off"

	// StatePlay means the list drives the control during rolling playback.
	StatePlay State = "play"

	// StateWrite means new events are being recorded over existing ones.
	StateWrite State = "write"

	// StateTouch means events are recorded only while the control is held.
	StateTouch State = "touch"
)

// ControlEvent is a single automation point: a value at a sample position.
type ControlEvent struct {
	// When is the sample position of the event.
	When int64 `yaml:"when" json:"when"`

	// Value is the control value at that position.
	Value float64 `yaml:"value" json:"value"`
}

// List is an ordered set of control events with linear interpolation
// between them. It is the envelope a control plays back during automation.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - The RTSafe* methods never block: if the lock is contended they
//     report failure instead of waiting, so a render thread can fall
//     back to a flat value without missing its deadline.
type List struct {
	mu     sync.RWMutex
	events []ControlEvent // sorted by When, unique
	state  State
	def    float64 // value reported when the list is empty
}

// NewList creates an empty automation list.
//
// Parameters:
//   - def: Value returned by Eval when the list has no events
func NewList(def float64) *List {
	return &List{
		state: StateOff,
		def:   def,
	}
}

// SetState changes the automation state.
func (l *List) SetState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// AutomationState returns the current automation state.
func (l *List) AutomationState() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Playback reports whether the list is currently driving its control.
func (l *List) Playback() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StatePlay || l.state == StateTouch
}

// Add inserts an event, replacing any existing event at the same position.
func (l *List) Add(when int64, value float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := sort.Search(len(l.events), func(i int) bool {
		return l.events[i].When >= when
	})
	if i < len(l.events) && l.events[i].When == when {
		l.events[i].Value = value
		return
	}
	l.events = append(l.events, ControlEvent{})
	copy(l.events[i+1:], l.events[i:])
	l.events[i] = ControlEvent{When: when, Value: value}
}

// Clear removes all events.
func (l *List) Clear() {
	l.mu.Lock()
	l.events = nil
	l.mu.Unlock()
}

// Len returns the number of events.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Events returns a copy of all events in order.
func (l *List) Events() []ControlEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]ControlEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Eval returns the interpolated value at the given sample position.
// Before the first event it returns the first event's value; past the
// last event, the last event's value; with no events, the default.
func (l *List) Eval(when int64) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.evalLocked(when)
}

// RTSafeEval is the render-thread variant of Eval. It never blocks.
//
// Returns:
//   - float64: The interpolated value (meaningless when valid is false)
//   - bool: False if the lock was contended or the list has no events
func (l *List) RTSafeEval(when int64) (float64, bool) {
	if !l.mu.TryRLock() {
		return 0, false
	}
	defer l.mu.RUnlock()

	if len(l.events) == 0 {
		return 0, false
	}
	return l.evalLocked(when), true
}

// RTSafeGetVector fills dst with interpolated values across [start, end).
// Sample positions are distributed evenly over the range, one per slot.
// It never blocks and never allocates.
//
// Returns false (leaving dst untouched) when the lock is contended, the
// list is empty, or the list is not in a playback state. Callers use the
// result to choose between curve-based and flat-value rendering.
func (l *List) RTSafeGetVector(start, end int64, dst []float64) bool {
	if len(dst) == 0 || end <= start {
		return false
	}
	if !l.mu.TryRLock() {
		return false
	}
	defer l.mu.RUnlock()

	if len(l.events) == 0 {
		return false
	}
	if l.state != StatePlay && l.state != StateTouch {
		return false
	}

	span := end - start
	n := int64(len(dst))
	for i := range dst {
		when := start + int64(i)*span/n
		dst[i] = l.evalLocked(when)
	}
	return true
}

// NextEventAfter returns the position of the earliest event strictly
// inside (now, end), if any.
func (l *List) NextEventAfter(now, end int64) (int64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i := sort.Search(len(l.events), func(i int) bool {
		return l.events[i].When > now
	})
	if i < len(l.events) && l.events[i].When < end {
		return l.events[i].When, true
	}
	return 0, false
}

// evalLocked interpolates linearly between the two events bracketing when.
// Caller must hold at least a read lock.
func (l *List) evalLocked(when int64) float64 {
	if len(l.events) == 0 {
		return l.def
	}

	i := sort.Search(len(l.events), func(i int) bool {
		return l.events[i].When >= when
	})
	if i == 0 {
		return l.events[0].Value
	}
	if i == len(l.events) {
		return l.events[len(l.events)-1].Value
	}

	a, b := l.events[i-1], l.events[i]
	if b.When == a.When {
		return b.Value
	}
	frac := float64(when-a.When) / float64(b.When-a.When)
	return a.Value + (b.Value-a.Value)*frac
}
