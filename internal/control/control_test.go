package control

import (
	"math"
	"testing"

	"github.com/itmuckel/ardour/internal/automation"
)

// fakeTransport returns a fixed transport position.
type fakeTransport struct {
	frame int64
}

func (t *fakeTransport) TransportFrame() int64 { return t.frame }

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNewControlDefaults(t *testing.T) {
	c := NewControl("gain", GainDescriptor())

	if c.ID() == "" {
		t.Error("expected non-empty id")
	}
	if c.Name() != "gain" {
		t.Errorf("expected name gain, got %q", c.Name())
	}
	if got := c.RawValue(); !almostEqual(got, 1.0) {
		t.Errorf("expected initial raw value 1.0, got %v", got)
	}
	if c.Toggled() {
		t.Error("gain control should not be toggled")
	}
}

func TestSetValueClamps(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  float64
	}{
		{"in range", 1.5, 1.5},
		{"below lower", -0.5, 0.0},
		{"above upper", 3.0, 2.0},
		{"at lower", 0.0, 0.0},
		{"at upper", 2.0, 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewControl("gain", GainDescriptor())
			c.SetValue(tt.value, GroupNone)
			if got := c.RawValue(); !almostEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSetValueNotifies(t *testing.T) {
	c := NewControl("gain", GainDescriptor())

	var calls int
	var lastFromSelf bool
	c.OnChanged(func(fromSelf bool, _ GroupDisposition) {
		calls++
		lastFromSelf = fromSelf
	})

	c.SetValue(1.5, GroupNone)

	if calls != 1 {
		t.Fatalf("expected 1 change notification, got %d", calls)
	}
	if !lastFromSelf {
		t.Error("direct set should report fromSelf=true")
	}
}

func TestSetValueUncheckedIsSilent(t *testing.T) {
	c := NewControl("gain", GainDescriptor())

	var calls int
	c.OnChanged(func(bool, GroupDisposition) { calls++ })

	c.SetValueUnchecked(1.5)

	if calls != 0 {
		t.Errorf("expected no notifications, got %d", calls)
	}
	if got := c.RawValue(); !almostEqual(got, 1.5) {
		t.Errorf("expected raw value 1.5, got %v", got)
	}
}

func TestSubscriptionCancel(t *testing.T) {
	c := NewControl("gain", GainDescriptor())

	var calls int
	sub := c.OnChanged(func(bool, GroupDisposition) { calls++ })

	c.SetValue(1.5, GroupNone)
	sub.Cancel()
	sub.Cancel() // second cancel is harmless
	c.SetValue(0.5, GroupNone)

	if calls != 1 {
		t.Errorf("expected 1 notification after cancel, got %d", calls)
	}
}

func TestGetValueFollowsEnvelope(t *testing.T) {
	c := NewControl("gain", GainDescriptor())
	c.SetValue(0.5, GroupNone)

	l := automation.NewList(1.0)
	l.Add(0, 1.0)
	l.Add(1000, 2.0)
	c.SetList(l)

	tr := &fakeTransport{frame: 500}
	c.SetTransport(tr)

	// State off: raw value rules.
	if got := c.GetValue(); !almostEqual(got, 0.5) {
		t.Errorf("state off: expected 0.5, got %v", got)
	}

	l.SetState(automation.StatePlay)
	if got := c.GetValue(); !almostEqual(got, 1.5) {
		t.Errorf("playback: expected 1.5 at frame 500, got %v", got)
	}

	tr.frame = 1000
	if got := c.GetValue(); !almostEqual(got, 2.0) {
		t.Errorf("playback: expected 2.0 at frame 1000, got %v", got)
	}
}

func TestDropIsIdempotent(t *testing.T) {
	c := NewControl("gain", GainDescriptor())

	var calls int
	c.OnDropped(func() { calls++ })

	c.Drop()
	c.Drop()

	if calls != 1 {
		t.Errorf("expected 1 drop notification, got %d", calls)
	}
	if !c.Dropped() {
		t.Error("expected Dropped to report true")
	}
}
