package control

// BooleanAutomationRun advances every toggled master whose envelope is
// in a playback state to its value at start, flipping the master's own
// state on an edge. It returns whether any master flipped during this
// pass.
//
// While the pass runs the aggregating flag is set, which makes this
// control ignore the change notifications its own flips would otherwise
// feed back into masterChanged. The control emits a single coalesced
// change notification after the pass instead.
func (s *SlavableControl) BooleanAutomationRun(start int64, length int) bool {
	if !s.Toggled() {
		return false
	}

	s.aggregating.Store(true)
	s.masterMu.RLock()
	changed := s.booleanAutomationRunLocked(start, length)
	s.masterMu.RUnlock()
	s.aggregating.Store(false)

	if changed {
		s.EmitChanged(false, GroupNone)
	}
	return changed
}

func (s *SlavableControl) booleanAutomationRunLocked(start int64, length int) bool {
	changed := false

	for _, mr := range s.masters {
		m := mr.master

		if !m.Toggled() || !m.AutomationPlayback() {
			continue
		}

		if sm, ok := m.(SubMaster); ok {
			if sm.BooleanAutomationRun(start, length) {
				changed = true
			}
		}

		l := m.List()
		if l == nil {
			continue
		}
		v, ok := l.RTSafeEval(start)
		if !ok {
			continue
		}

		yn := v >= 0.5
		if yn == mr.yn.Load() {
			continue
		}

		if s.handleMasterChange(m) {
			changed = true
		}
		mr.yn.Store(yn)

		// Push the sampled state into the master itself so its
		// observers and any siblings slaved to it see the flip.
		if yn {
			m.SetValueUnchecked(1.0)
		} else {
			m.SetValueUnchecked(0.0)
		}
		m.EmitChanged(false, GroupNone)
	}

	return changed
}
