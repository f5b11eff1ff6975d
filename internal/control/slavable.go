package control

import (
	"sync"
	"sync/atomic"

	"github.com/itmuckel/ardour/internal/automation"
)

// Master is what a slavable control needs from a control acting as a
// scaling source. *Control and *SlavableControl both satisfy it.
type Master interface {
	ID() string
	Name() string
	GetValue() float64
	Toggled() bool
	AutomationPlayback() bool
	List() *automation.List
	SetValueUnchecked(value float64)
	EmitChanged(fromSelf bool, gd GroupDisposition)
	OnChanged(h ChangedHandler) *Subscription
	OnDropped(h func()) *Subscription
}

// SubMaster is the capability interface for masters that are themselves
// slavable. A master advertising it participates in chained mastering:
// its own curve, boolean edges, and pending events are folded into its
// slaves' results. Dispatch is by interface presence, never by concrete
// type.
type SubMaster interface {
	Master

	MastersCurveMultiply(start, end int64, buf []float64) bool
	BooleanAutomationRun(start int64, length int) bool
	FindNextMasterEvent(now, end int64) (int64, bool)
}

// BufferSource supplies the reusable per-render scratch buffer used by
// the curve compositor. Implemented by the owning session.
type BufferSource interface {
	// ScratchAutomationBuffer returns a buffer at least one render
	// block long. The same buffer is reused across calls within a
	// render pass; it is never retained.
	ScratchAutomationBuffer() []float64
}

// TeardownGuard lets a control ask its owner whether whole-object
// teardown is in progress, in which case detach side effects (value
// rescaling, notifications) are suppressed.
type TeardownGuard interface {
	TeardownInProgress() bool
}

// Hooks are the extension points for derived control kinds (grouped
// mute and friends). All fields are optional.
type Hooks struct {
	// PreRemoveMaster runs before a master is detached. m is nil when
	// all masters are about to be removed.
	PreRemoveMaster func(m Master)

	// PostAddMaster runs after a master has been attached.
	PostAddMaster func(m Master)

	// MasterChangeMeaningful decides whether a given master change
	// results in a change of this control's own value. It is called
	// with the registry read-locked and must not mutate the registry.
	// nil means every master change is meaningful.
	MasterChangeMeaningful func(m Master) bool
}

// SlavableControl is a Control whose effective value can be scaled or
// overridden by zero or more master controls.
//
// Continuous parameters compose multiplicatively: the effective value is
// raw × Π(master ratio). Toggled parameters compose as boolean OR: the
// control is on when it is on itself or any master is on.
//
// Thread Safety:
//   - One RWMutex guards the master registry and its records. Readers:
//     value queries, membership queries, next-event lookup, boolean
//     aggregation. Writers: attach, detach, clear.
//   - MastersCurveMultiply takes no lock at all; see its comment.
type SlavableControl struct {
	*Control

	masterMu sync.RWMutex
	masters  map[string]*masterRecord

	// aggregating is set for the duration of a boolean aggregation
	// pass. The master-change handler consults it to skip re-entrant
	// notifications instead of re-acquiring masterMu.
	aggregating atomic.Bool

	// pending holds the persisted master-list fragment between load
	// and resolution, when the referenced masters may not exist yet.
	pending []MasterState

	buffers BufferSource
	guard   TeardownGuard
	hooks   Hooks

	masterStatus voidSignal
}

// NewSlavableControl creates a slavable control with no masters.
func NewSlavableControl(name string, desc Descriptor) *SlavableControl {
	return &SlavableControl{
		Control: NewControl(name, desc),
		masters: make(map[string]*masterRecord),
	}
}

// RestoreSlavableControl creates a slavable control carrying a
// previously issued identifier, used when rebuilding a saved session.
func RestoreSlavableControl(id, name string, desc Descriptor) *SlavableControl {
	return &SlavableControl{
		Control: RestoreControl(id, name, desc),
		masters: make(map[string]*masterRecord),
	}
}

// SetBufferSource wires the scratch-buffer provider used by the curve
// compositor. Must be called before concurrent use begins.
func (s *SlavableControl) SetBufferSource(b BufferSource) {
	s.buffers = b
}

// SetTeardownGuard wires the owner's teardown query. Must be called
// before concurrent use begins.
func (s *SlavableControl) SetTeardownGuard(g TeardownGuard) {
	s.guard = g
}

// SetHooks installs the derived-kind extension hooks. Must be called
// before concurrent use begins.
func (s *SlavableControl) SetHooks(h Hooks) {
	s.hooks = h
}

// AddMaster attaches a master control. Attaching an already-attached
// master is a silent no-op, so the call is idempotent.
//
// On success the current values of both controls are snapshotted into
// the record, the master's change and destroy events are subscribed,
// and a single mastering-status notification is emitted.
//
// When loading is true the notification and the cached-boolean refresh
// are skipped: the snapshots taken here are provisional and will be
// replaced by ResolvePendingMasters once the whole graph exists.
func (s *SlavableControl) AddMaster(m Master, loading bool) {
	var added bool

	{
		masterValue := m.GetValue()
		s.masterMu.Lock()

		if _, ok := s.masters[m.ID()]; !ok {
			mr := &masterRecord{
				master:    m,
				valCtrl:   s.getValueLocked(),
				valMaster: masterValue,
			}
			s.masters[m.ID()] = mr
			added = true

			// Both subscriptions live inside the record, so
			// detaching the record silences the master for good.
			mr.droppedSub = m.OnDropped(func() {
				s.masterGoingAway(m)
			})
			mr.changedSub = m.OnChanged(func(_ bool, _ GroupDisposition) {
				s.masterChanged(m)
			})
		}

		s.masterMu.Unlock()
	}

	if !added || loading {
		return
	}

	s.masterStatus.emit()

	if s.hooks.PostAddMaster != nil {
		s.hooks.PostAddMaster(m)
	}

	s.updateBooleanMasterRecord(m)
}

// RemoveMaster detaches a master. The master's last contribution is
// baked into the raw value first, so the composite value is unchanged
// across the detach boundary. Removing an unknown master is a silent
// no-op with no notification.
func (s *SlavableControl) RemoveMaster(m Master) {
	if s.tearingDown() {
		return
	}

	if s.hooks.PreRemoveMaster != nil {
		s.hooks.PreRemoveMaster(m)
	}

	newVal := s.RawValue()
	oldVal := newVal
	removed := false

	{
		s.masterMu.Lock()

		if mr, ok := s.masters[m.ID()]; ok {
			// Apply the master's value permanently before the
			// record disappears.
			newVal *= mr.ratio()
			mr.detach()
			delete(s.masters, m.ID())
			removed = true
		}

		s.masterMu.Unlock()
	}

	if !removed {
		return
	}

	if oldVal != newVal {
		s.setRaw(newVal)
	}

	s.masterStatus.emit()
}

// ClearMasters detaches every master, applying the product of all
// current ratios to the raw value so the composite value is unchanged.
// A single mastering-status notification is emitted; none if there was
// nothing to remove.
func (s *SlavableControl) ClearMasters() {
	if s.tearingDown() {
		return
	}

	if s.hooks.PreRemoveMaster != nil {
		s.hooks.PreRemoveMaster(nil)
	}

	newVal := s.RawValue()
	oldVal := newVal

	{
		s.masterMu.Lock()

		if len(s.masters) == 0 {
			s.masterMu.Unlock()
			return
		}

		newVal *= s.mastersValueLocked()

		for _, mr := range s.masters {
			mr.detach()
		}
		s.masters = make(map[string]*masterRecord)

		s.masterMu.Unlock()
	}

	if oldVal != newVal {
		s.setRaw(newVal)
	}

	s.masterStatus.emit()
}

// SlavedTo reports whether the given master is attached.
func (s *SlavableControl) SlavedTo(m Master) bool {
	s.masterMu.RLock()
	defer s.masterMu.RUnlock()
	_, ok := s.masters[m.ID()]
	return ok
}

// Slaved reports whether any master is attached.
func (s *SlavableControl) Slaved() bool {
	s.masterMu.RLock()
	defer s.masterMu.RUnlock()
	return len(s.masters) > 0
}

// MasterIDs returns the IDs of all attached masters.
func (s *SlavableControl) MasterIDs() []string {
	s.masterMu.RLock()
	defer s.masterMu.RUnlock()

	ids := make([]string, 0, len(s.masters))
	for id := range s.masters {
		ids = append(ids, id)
	}
	return ids
}

// MasterCount returns the number of attached masters.
func (s *SlavableControl) MasterCount() int {
	s.masterMu.RLock()
	defer s.masterMu.RUnlock()
	return len(s.masters)
}

// BooleanMasters returns how many attached masters are currently
// cached as "on". Always zero for continuous parameters.
func (s *SlavableControl) BooleanMasters() int {
	if !s.desc.Toggled {
		return 0
	}

	s.masterMu.RLock()
	defer s.masterMu.RUnlock()

	n := 0
	for _, mr := range s.masters {
		if mr.yn.Load() {
			n++
		}
	}
	return n
}

// OnMasterStatusChanged registers a handler for attach/detach events.
func (s *SlavableControl) OnMasterStatusChanged(h func()) *Subscription {
	return s.masterStatus.subscribe(h)
}

// GetValue returns the effective value: the raw (or envelope-driven)
// value combined with all master contributions.
func (s *SlavableControl) GetValue() float64 {
	l := s.List()
	fromList := l != nil && l.Playback()

	s.masterMu.RLock()
	defer s.masterMu.RUnlock()

	if !fromList {
		return s.getValueLocked()
	}
	return l.Eval(s.now()) * s.mastersValueLocked()
}

// getValueLocked computes the effective value. Caller holds at least a
// read lock on the registry.
func (s *SlavableControl) getValueLocked() float64 {
	if len(s.masters) == 0 {
		return s.RawValue()
	}

	if s.desc.Toggled {
		// Slave-on OR any master-on. Checking ourselves first lets
		// us return without evaluating any master.
		if s.RawValue() != 0 {
			return s.desc.Upper
		}
		return s.mastersValueLocked()
	}

	return s.RawValue() * s.mastersValueLocked()
}

// mastersValueLocked combines all master contributions: boolean OR for
// toggled parameters (upper when any master is on, lower otherwise),
// the product of ratios for continuous ones. The toggled branch reads
// the records' cached state, which the change handler and the
// aggregation pass keep current. Caller holds at least a read lock.
func (s *SlavableControl) mastersValueLocked() float64 {
	if s.desc.Toggled {
		for _, mr := range s.masters {
			if mr.yn.Load() {
				return s.desc.Upper
			}
		}
		return s.desc.Lower
	}

	v := 1.0
	for _, mr := range s.masters {
		v *= mr.ratio()
	}
	return v
}

// SetValue sets the effective value. For continuous parameters with
// masters attached, the requested value is back-solved to a raw value
// so that raw × combined-ratio lands on the request; a combined ratio
// of zero forces the raw value to zero rather than scaling up through
// a division by zero. Toggled parameters bypass back-solving.
func (s *SlavableControl) SetValue(value float64, gd GroupDisposition) {
	if !s.desc.Toggled {
		s.masterMu.Lock()

		if len(s.masters) > 0 {
			mv := s.mastersValueLocked()
			if mv == 0 {
				value = 0
			} else {
				value /= mv
				value = clamp(value, s.desc.Lower, s.desc.Upper)
			}
		}

		s.masterMu.Unlock()
	}

	s.Control.SetValue(value, gd)
}

// FindNextMasterEvent returns the earliest automation event strictly
// inside (now, end) across all masters, recursing through masters that
// are themselves slaved.
func (s *SlavableControl) FindNextMasterEvent(now, end int64) (int64, bool) {
	s.masterMu.RLock()
	defer s.masterMu.RUnlock()

	found := false
	next := end

	for _, mr := range s.masters {
		if sm, ok := mr.master.(SubMaster); ok {
			if when, ok := sm.FindNextMasterEvent(now, next); ok {
				next = when
				found = true
			}
		}

		l := mr.master.List()
		if l == nil {
			continue
		}
		if when, ok := l.NextEventAfter(now, next); ok {
			next = when
			found = true
		}
	}

	return next, found
}

// masterChanged is subscribed to every attached master's change event.
//
// During a boolean aggregation pass masters' values are updated from
// inside the locked section; the resulting notifications arrive here
// re-entrantly and are skipped via the aggregating flag, with the pass
// itself coalescing them into a single notification afterwards.
func (s *SlavableControl) masterChanged(m Master) {
	if s.aggregating.Load() {
		return
	}

	s.masterMu.RLock()
	send := s.handleMasterChange(m)
	s.masterMu.RUnlock()

	// Takes the read lock again itself.
	s.updateBooleanMasterRecord(m)

	if send {
		s.EmitChanged(false, GroupNone)
	}
}

// handleMasterChange decides whether a master's change results in a
// change of this control's own value. Called with the registry
// read-locked.
func (s *SlavableControl) handleMasterChange(m Master) bool {
	if s.hooks.MasterChangeMeaningful != nil {
		return s.hooks.MasterChangeMeaningful(m)
	}
	return true
}

// masterGoingAway detaches a destroyed master from this slave.
func (s *SlavableControl) masterGoingAway(m Master) {
	s.RemoveMaster(m)
}

// updateBooleanMasterRecord refreshes the cached on/off state for one
// master. Only the record is touched, never the registry itself, so a
// read lock suffices.
func (s *SlavableControl) updateBooleanMasterRecord(m Master) {
	if !s.desc.Toggled {
		return
	}

	s.masterMu.RLock()
	defer s.masterMu.RUnlock()

	if mr, ok := s.masters[m.ID()]; ok {
		mr.yn.Store(m.GetValue() != 0)
	}
}

// tearingDown reports whether the owning session is being destroyed.
func (s *SlavableControl) tearingDown() bool {
	return s.guard != nil && s.guard.TeardownInProgress()
}
