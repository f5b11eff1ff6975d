package control

import (
	"math"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/itmuckel/ardour/internal/automation"
)

// Transport supplies the current playback position for automation
// lookups. Implemented by the owning session.
type Transport interface {
	// TransportFrame returns the current transport position in samples.
	TransportFrame() int64
}

// Control is a scalar session parameter: a raw value within descriptor
// bounds, an optional automation envelope, and change/destroy events.
//
// Thread Safety:
//   - The raw value is stored atomically; reads never block.
//   - Event subscription and emission are safe for concurrent use.
type Control struct {
	id   string
	name string
	desc Descriptor

	// raw holds the float64 bits of the control's own value,
	// excluding any master contribution.
	raw atomic.Uint64

	list      atomic.Pointer[automation.List]
	transport Transport

	changed changedSignal
	dropped voidSignal
	gone    atomic.Bool
}

// NewControl creates a control with the given name and descriptor.
// The initial raw value is the descriptor's Normal.
func NewControl(name string, desc Descriptor) *Control {
	c := &Control{
		id:   "ctl-" + uuid.NewString()[:16],
		name: name,
		desc: desc,
	}
	c.raw.Store(math.Float64bits(desc.Normal))
	return c
}

// RestoreControl creates a control carrying a previously issued
// identifier, used when rebuilding controls from a saved document.
func RestoreControl(id, name string, desc Descriptor) *Control {
	c := &Control{
		id:   id,
		name: name,
		desc: desc,
	}
	c.raw.Store(math.Float64bits(desc.Normal))
	return c
}

// ID returns the control's unique identifier.
func (c *Control) ID() string { return c.id }

// Name returns the control's human-readable name.
func (c *Control) Name() string { return c.name }

// Describe returns the control's parameter descriptor.
func (c *Control) Describe() Descriptor { return c.desc }

// Toggled reports whether this is a two-state parameter.
func (c *Control) Toggled() bool { return c.desc.Toggled }

// Lower returns the minimum raw value.
func (c *Control) Lower() float64 { return c.desc.Lower }

// Upper returns the maximum raw value.
func (c *Control) Upper() float64 { return c.desc.Upper }

// RawValue returns the control's own value, excluding master
// contribution and automation playback.
func (c *Control) RawValue() float64 {
	return math.Float64frombits(c.raw.Load())
}

// GetValue returns the control's effective value. When the automation
// list is in a playback state, the envelope drives the result;
// otherwise the raw value does.
func (c *Control) GetValue() float64 {
	if l := c.List(); l != nil && l.Playback() {
		return l.Eval(c.now())
	}
	return c.RawValue()
}

// SetValue sets the raw value (clamped to the descriptor bounds) and
// emits a self-originated change notification.
func (c *Control) SetValue(value float64, gd GroupDisposition) {
	c.setRaw(value)
	c.EmitChanged(true, gd)
}

// SetValueUnchecked sets the raw value without emitting any
// notification. Callers that need observers informed must emit
// explicitly; the boolean aggregation pass relies on this split to
// update a master's visible value without recursing.
func (c *Control) SetValueUnchecked(value float64) {
	c.setRaw(value)
}

// setRaw clamps and stores the raw value, silently.
func (c *Control) setRaw(value float64) {
	value = clamp(value, c.desc.Lower, c.desc.Upper)
	c.raw.Store(math.Float64bits(value))
}

// SetList attaches an automation envelope. nil detaches.
func (c *Control) SetList(l *automation.List) {
	c.list.Store(l)
}

// List returns the attached automation envelope, or nil.
func (c *Control) List() *automation.List {
	return c.list.Load()
}

// SetTransport wires the transport used for automation "now" lookups.
// Must be called before concurrent use begins.
func (c *Control) SetTransport(t Transport) {
	c.transport = t
}

// AutomationPlayback reports whether the envelope currently drives the
// control.
func (c *Control) AutomationPlayback() bool {
	l := c.List()
	return l != nil && l.Playback()
}

// OnChanged registers a value-change handler.
func (c *Control) OnChanged(h ChangedHandler) *Subscription {
	return c.changed.subscribe(h)
}

// OnDropped registers a handler invoked when the control is destroyed.
func (c *Control) OnDropped(h func()) *Subscription {
	return c.dropped.subscribe(h)
}

// EmitChanged notifies all change handlers. fromSelf is false when the
// change was caused by a master.
func (c *Control) EmitChanged(fromSelf bool, gd GroupDisposition) {
	c.changed.emit(fromSelf, gd)
}

// Drop announces the control's destruction. Every slave holding this
// control as a master detaches itself from the destroy notification, so
// no dangling reference survives the call. Drop is idempotent.
func (c *Control) Drop() {
	if c.gone.Swap(true) {
		return
	}
	c.dropped.emit()
}

// Dropped reports whether Drop has been called.
func (c *Control) Dropped() bool {
	return c.gone.Load()
}

// now returns the current transport position, or zero without a
// transport.
func (c *Control) now() int64 {
	if c.transport == nil {
		return 0
	}
	return c.transport.TransportFrame()
}
