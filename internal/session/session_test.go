package session

import (
	"errors"
	"math"
	"testing"

	"github.com/itmuckel/ardour/internal/automation"
	"github.com/itmuckel/ardour/internal/control"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return New("ses-test", "test session", 1024)
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNewControlRegistersAndWires(t *testing.T) {
	s := newTestSession(t)

	c, err := s.NewControl("fader", control.GainDescriptor())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.Control(c.ID())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != c {
		t.Error("expected the registered control back")
	}

	// The session's transport drives envelope lookups.
	l := automation.NewList(1.0)
	l.Add(0, 1.0)
	l.Add(1000, 2.0)
	l.SetState(automation.StatePlay)
	c.SetList(l)

	s.SetTransportFrame(500)
	if v := c.GetValue(); !almostEqual(v, 1.5) {
		t.Errorf("expected 1.5 at frame 500, got %v", v)
	}
}

func TestControlNotFound(t *testing.T) {
	s := newTestSession(t)

	if _, err := s.Control("ctl-missing"); !errors.Is(err, ErrControlNotFound) {
		t.Errorf("expected ErrControlNotFound, got %v", err)
	}
}

func TestAssignMaster(t *testing.T) {
	s := newTestSession(t)

	slave, _ := s.NewControl("fader", control.GainDescriptor())
	master, _ := s.NewControl("vca", control.GainDescriptor())

	if err := s.AssignMaster(slave.ID(), master.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slave.SlavedTo(master) {
		t.Error("expected assignment to attach the master")
	}

	master.SetValue(2.0, control.GroupNone)
	if v := slave.GetValue(); !almostEqual(v, 2.0) {
		t.Errorf("expected composite 2.0, got %v", v)
	}
}

func TestAssignMasterRejectsSelf(t *testing.T) {
	s := newTestSession(t)
	c, _ := s.NewControl("fader", control.GainDescriptor())

	if err := s.AssignMaster(c.ID(), c.ID()); !errors.Is(err, ErrSelfAssignment) {
		t.Errorf("expected ErrSelfAssignment, got %v", err)
	}
}

func TestAssignMasterRejectsCycles(t *testing.T) {
	s := newTestSession(t)

	a, _ := s.NewControl("a", control.GainDescriptor())
	b, _ := s.NewControl("b", control.GainDescriptor())
	c, _ := s.NewControl("c", control.GainDescriptor())

	if err := s.AssignMaster(a.ID(), b.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.AssignMaster(b.ID(), c.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// c -> b -> a exists upward; a as master of c would close the loop.
	if err := s.AssignMaster(c.ID(), a.ID()); !errors.Is(err, ErrMasterCycle) {
		t.Errorf("expected ErrMasterCycle, got %v", err)
	}
}

func TestAssignMasterUnknownControls(t *testing.T) {
	s := newTestSession(t)
	c, _ := s.NewControl("fader", control.GainDescriptor())

	if err := s.AssignMaster(c.ID(), "ctl-missing"); !errors.Is(err, ErrControlNotFound) {
		t.Errorf("expected ErrControlNotFound, got %v", err)
	}
	if err := s.AssignMaster("ctl-missing", c.ID()); !errors.Is(err, ErrControlNotFound) {
		t.Errorf("expected ErrControlNotFound, got %v", err)
	}
}

func TestUnassignMaster(t *testing.T) {
	s := newTestSession(t)

	slave, _ := s.NewControl("fader", control.GainDescriptor())
	master, _ := s.NewControl("vca", control.GainDescriptor())

	if err := s.AssignMaster(slave.ID(), master.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	master.SetValue(2.0, control.GroupNone)

	before := slave.GetValue()
	if err := s.UnassignMaster(slave.ID(), master.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if slave.Slaved() {
		t.Error("expected no masters after unassign")
	}
	if v := slave.GetValue(); !almostEqual(v, before) {
		t.Errorf("expected value preserved across unassign, got %v", v)
	}
}

func TestRemoveControlDetachesSlaves(t *testing.T) {
	s := newTestSession(t)

	slave, _ := s.NewControl("fader", control.GainDescriptor())
	master, _ := s.NewControl("vca", control.GainDescriptor())

	if err := s.AssignMaster(slave.ID(), master.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	master.SetValue(2.0, control.GroupNone)

	if err := s.RemoveControl(master.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if slave.Slaved() {
		t.Error("expected slave detached after master removal")
	}
	// The last contribution is baked in.
	if v := slave.RawValue(); !almostEqual(v, 2.0) {
		t.Errorf("expected raw 2.0 after bake, got %v", v)
	}
	if _, err := s.Control(master.ID()); !errors.Is(err, ErrControlNotFound) {
		t.Errorf("expected control gone, got %v", err)
	}
}

func TestControlsOrderedByID(t *testing.T) {
	s := newTestSession(t)

	for i := 0; i < 5; i++ {
		if _, err := s.NewControl("c", control.GainDescriptor()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	controls := s.Controls()
	if len(controls) != 5 {
		t.Fatalf("expected 5 controls, got %d", len(controls))
	}
	for i := 1; i < len(controls); i++ {
		if controls[i-1].ID() >= controls[i].ID() {
			t.Fatal("expected controls sorted by ID")
		}
	}
}

func TestRunBooleanAutomation(t *testing.T) {
	s := newTestSession(t)

	slave, _ := s.NewControl("mute", control.ToggleDescriptor())
	master, _ := s.NewControl("mute master", control.ToggleDescriptor())

	if err := s.AssignMaster(slave.ID(), master.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	l := automation.NewList(0)
	l.Add(0, 0)
	l.Add(100, 1)
	l.SetState(automation.StatePlay)
	master.SetList(l)

	s.SetTransportFrame(100)
	flipped := s.RunBooleanAutomation(64)

	if len(flipped) != 1 || flipped[0] != slave {
		t.Fatalf("expected the slave to flip, got %v", flipped)
	}
	if v := slave.GetValue(); !almostEqual(v, 1.0) {
		t.Errorf("expected slave on, got %v", v)
	}
}

func TestCloseSuppressesDetachSideEffects(t *testing.T) {
	s := newTestSession(t)

	slave, _ := s.NewControl("fader", control.GainDescriptor())
	master, _ := s.NewControl("vca", control.GainDescriptor())

	if err := s.AssignMaster(slave.ID(), master.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	slave.SetValue(0.5, control.GroupNone)
	master.SetValue(2.0, control.GroupNone)

	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Teardown must not rescale values through the detach path.
	if v := slave.RawValue(); !almostEqual(v, 0.5) {
		t.Errorf("expected raw untouched at 0.5, got %v", v)
	}
	if !s.IsClosed() {
		t.Error("expected session closed")
	}
	if _, err := s.NewControl("late", control.GainDescriptor()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// Close is idempotent.
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error on second close: %v", err)
	}
}
