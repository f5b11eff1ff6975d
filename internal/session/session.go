package session

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/itmuckel/ardour/internal/control"
)

// Logger defines the logging interface used by the Session.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Session owns a set of automatable controls and the shared services
// they need: the transport position, the per-render scratch buffer, and
// the teardown flag that suppresses detach side effects during close.
//
// It implements control.Transport, control.BufferSource, and
// control.TeardownGuard and wires itself into every control it creates.
//
// All public methods are thread-safe. ScratchAutomationBuffer is the
// exception: the buffer it returns is shared, so only the render pass
// may use it, one control at a time.
type Session struct {
	id   string
	name string

	mu       sync.RWMutex
	controls map[string]*control.SlavableControl

	frame   atomic.Int64
	scratch []float64
	tearing atomic.Bool

	logger Logger
}

// New creates an empty session. blockSize fixes the scratch buffer used
// by curve rendering; values below one fall back to a single sample.
func New(id, name string, blockSize int) *Session {
	if blockSize < 1 {
		blockSize = 1
	}
	return &Session{
		id:       id,
		name:     name,
		controls: make(map[string]*control.SlavableControl),
		scratch:  make([]float64, blockSize),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the session.
func (s *Session) SetLogger(logger Logger) {
	s.logger = logger
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Name returns the session's human-readable name.
func (s *Session) Name() string { return s.name }

// NewControl creates a slavable control, wires it to this session's
// transport, scratch buffer, and teardown flag, and registers it.
func (s *Session) NewControl(name string, desc control.Descriptor) (*control.SlavableControl, error) {
	if s.tearing.Load() {
		return nil, ErrClosed
	}

	c := control.NewSlavableControl(name, desc)
	s.adopt(c)

	s.mu.Lock()
	s.controls[c.ID()] = c
	s.mu.Unlock()

	s.logger.Debug("control created", "id", c.ID(), "name", name, "toggled", desc.Toggled)
	return c, nil
}

// restoreControl registers a control rebuilt from a saved document.
func (s *Session) restoreControl(c *control.SlavableControl) error {
	s.adopt(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.controls[c.ID()]; ok {
		return ErrControlExists
	}
	s.controls[c.ID()] = c
	return nil
}

// adopt wires the session's shared services into a control.
func (s *Session) adopt(c *control.SlavableControl) {
	c.SetTransport(s)
	c.SetBufferSource(s)
	c.SetTeardownGuard(s)
}

// Control returns the control with the given ID.
func (s *Session) Control(id string) (*control.SlavableControl, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.controls[id]
	if !ok {
		return nil, ErrControlNotFound
	}
	return c, nil
}

// Controls returns all controls ordered by ID.
func (s *Session) Controls() []*control.SlavableControl {
	s.mu.RLock()
	out := make([]*control.SlavableControl, 0, len(s.controls))
	for _, c := range s.controls {
		out = append(out, c)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// RemoveControl destroys a control and unregisters it. Every slave
// holding it as a master detaches through the destroy notification.
func (s *Session) RemoveControl(id string) error {
	s.mu.Lock()
	c, ok := s.controls[id]
	if ok {
		delete(s.controls, id)
	}
	s.mu.Unlock()

	if !ok {
		return ErrControlNotFound
	}

	c.Drop()
	s.logger.Debug("control removed", "id", id, "name", c.Name())
	return nil
}

// AssignMaster attaches the control masterID as a master of slaveID.
// Self-assignment and assignments that would close a cycle in the
// master graph are rejected.
func (s *Session) AssignMaster(slaveID, masterID string) error {
	if slaveID == masterID {
		return ErrSelfAssignment
	}

	slave, err := s.Control(slaveID)
	if err != nil {
		return err
	}
	master, err := s.Control(masterID)
	if err != nil {
		return err
	}

	// Reject if the slave is reachable from the master through
	// existing assignments.
	if s.mastersReach(master, slaveID) {
		return ErrMasterCycle
	}

	slave.AddMaster(master, false)
	s.logger.Info("master assigned", "slave", slaveID, "master", masterID)
	return nil
}

// mastersReach reports whether target is reachable by walking up the
// master graph from c.
func (s *Session) mastersReach(c *control.SlavableControl, target string) bool {
	if c.ID() == target {
		return true
	}
	for _, id := range c.MasterIDs() {
		m, err := s.Control(id)
		if err != nil {
			continue
		}
		if s.mastersReach(m, target) {
			return true
		}
	}
	return false
}

// UnassignMaster detaches masterID from slaveID. Detaching a master
// that is not attached is not an error.
func (s *Session) UnassignMaster(slaveID, masterID string) error {
	slave, err := s.Control(slaveID)
	if err != nil {
		return err
	}
	master, err := s.Control(masterID)
	if err != nil {
		return err
	}

	slave.RemoveMaster(master)
	s.logger.Info("master unassigned", "slave", slaveID, "master", masterID)
	return nil
}

// ClearMasters detaches every master from slaveID.
func (s *Session) ClearMasters(slaveID string) error {
	slave, err := s.Control(slaveID)
	if err != nil {
		return err
	}

	slave.ClearMasters()
	s.logger.Info("masters cleared", "slave", slaveID)
	return nil
}

// TransportFrame returns the current transport position in samples.
func (s *Session) TransportFrame() int64 {
	return s.frame.Load()
}

// SetTransportFrame moves the transport position.
func (s *Session) SetTransportFrame(frame int64) {
	s.frame.Store(frame)
}

// ScratchAutomationBuffer returns the shared scratch buffer used by
// curve rendering.
func (s *Session) ScratchAutomationBuffer() []float64 {
	return s.scratch
}

// TeardownInProgress reports whether Close has begun.
func (s *Session) TeardownInProgress() bool {
	return s.tearing.Load()
}

// RunBooleanAutomation advances boolean automation on every toggled
// control for the block starting at the current transport position.
// It returns the controls whose state flipped during the pass.
func (s *Session) RunBooleanAutomation(length int) []*control.SlavableControl {
	start := s.TransportFrame()

	var flipped []*control.SlavableControl
	for _, c := range s.Controls() {
		if !c.Toggled() {
			continue
		}
		if c.BooleanAutomationRun(start, length) {
			flipped = append(flipped, c)
		}
	}
	return flipped
}

// Close marks the session as tearing down and destroys every control.
// Detach side effects are suppressed so values are not rescaled while
// the whole graph disappears. Close is idempotent.
func (s *Session) Close() error {
	if s.tearing.Swap(true) {
		return nil
	}

	for _, c := range s.Controls() {
		c.Drop()
	}

	s.mu.Lock()
	s.controls = make(map[string]*control.SlavableControl)
	s.mu.Unlock()

	s.logger.Info("session closed", "id", s.id)
	return nil
}

// IsClosed reports whether Close has been called.
func (s *Session) IsClosed() bool {
	return s.tearing.Load()
}

var _ control.Transport = (*Session)(nil)
var _ control.BufferSource = (*Session)(nil)
var _ control.TeardownGuard = (*Session)(nil)
