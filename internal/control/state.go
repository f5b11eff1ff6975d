package control

// MasterState is the serialised form of one master assignment. Snapshot
// fields are pointers so a partial record round-trips without inventing
// values.
type MasterState struct {
	ID        string   `yaml:"id"`
	YN        *bool    `yaml:"yn,omitempty"`
	ValCtrl   *float64 `yaml:"val-ctrl,omitempty"`
	ValMaster *float64 `yaml:"val-master,omitempty"`
}

// MastersState snapshots the current master assignments for
// serialisation. The slice is a copy and safe to retain.
func (s *SlavableControl) MastersState() []MasterState {
	s.masterMu.RLock()
	defer s.masterMu.RUnlock()

	if len(s.masters) == 0 {
		return nil
	}
	out := make([]MasterState, 0, len(s.masters))
	for id, mr := range s.masters {
		ms := MasterState{ID: id}
		if s.Toggled() {
			yn := mr.yn.Load()
			ms.YN = &yn
		} else {
			vc, vm := mr.valCtrl, mr.valMaster
			ms.ValCtrl = &vc
			ms.ValMaster = &vm
		}
		out = append(out, ms)
	}
	return out
}

// SetMastersState stashes deserialised master assignments until the
// controls they reference exist. ResolvePendingMasters performs the
// actual attachment.
func (s *SlavableControl) SetMastersState(states []MasterState) {
	s.masterMu.Lock()
	s.pending = append(s.pending[:0], states...)
	s.masterMu.Unlock()
}

// ResolvePendingMasters attaches every stashed master assignment whose
// id lookup resolves. Records referencing controls the lookup does not
// know are dropped without error; a document may legitimately carry
// assignments to masters that no longer exist. The stash is consumed
// either way.
func (s *SlavableControl) ResolvePendingMasters(lookup func(id string) Master) {
	s.masterMu.Lock()
	pending := s.pending
	s.pending = nil
	s.masterMu.Unlock()

	refresh := make(map[string]bool, len(pending))
	for _, st := range pending {
		m := lookup(st.ID)
		if m == nil {
			continue
		}
		s.AddMaster(m, true)
		s.restoreMasterState(st)
		// A record that carried a serialised boolean keeps it;
		// refreshing from the live master would discard the saved
		// state.
		if st.YN == nil {
			refresh[st.ID] = true
		}
	}

	if len(pending) > 0 {
		s.refreshBooleanMasters(refresh)
		s.masterStatus.emit()
	}
}

// restoreMasterState overwrites the freshly attached record's snapshots
// with the serialised ones so ratios survive the round trip.
func (s *SlavableControl) restoreMasterState(st MasterState) {
	s.masterMu.Lock()
	defer s.masterMu.Unlock()

	mr, ok := s.masters[st.ID]
	if !ok {
		return
	}
	if st.YN != nil {
		mr.yn.Store(*st.YN)
	}
	if st.ValCtrl != nil {
		mr.valCtrl = *st.ValCtrl
	}
	if st.ValMaster != nil {
		mr.valMaster = *st.ValMaster
	}
}

// refreshBooleanMasters recomputes the cached on/off state of the given
// master records from their masters' live values, for toggled controls.
func (s *SlavableControl) refreshBooleanMasters(ids map[string]bool) {
	if !s.Toggled() {
		return
	}
	s.masterMu.RLock()
	defer s.masterMu.RUnlock()
	for id, mr := range s.masters {
		if ids[id] {
			mr.yn.Store(mr.master.GetValue() != 0)
		}
	}
}
