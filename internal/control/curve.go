package control

// MastersCurveMultiply multiplies buf elementwise by this control's
// contribution over [start, end): its own envelope (or flat raw value
// when no envelope is active), then each master's nested curve and
// scalar ratio, depth-first through chained masters.
//
// It returns whether any curve, own or nested, was active; callers use
// that to choose curve-based or flat-value rendering upstream.
//
// This is the render-thread path: it takes no registry lock and
// allocates nothing. Envelope evaluation goes through the non-blocking
// RTSafe calls and falls back to the flat value on contention. Callers
// must guarantee that no master attaches or detaches for the duration
// of a render pass; that stability comes from the engine's pass
// barrier, not from this routine.
func (s *SlavableControl) MastersCurveMultiply(start, end int64, buf []float64) bool {
	active := false

	if l := s.List(); l != nil {
		if scratch := s.scratchFor(len(buf)); scratch != nil {
			if l.RTSafeGetVector(start, end, scratch) {
				for i := range buf {
					buf[i] *= scratch[i]
				}
				active = true
			}
		}
	}
	if !active {
		applyGainToBuffer(buf, s.RawValue())
	}

	for _, mr := range s.masters {
		if sm, ok := mr.master.(SubMaster); ok {
			if sm.MastersCurveMultiply(start, end, buf) {
				active = true
			}
		}
		// The master's nested curve and its own scalar ratio both
		// apply to the block.
		applyGainToBuffer(buf, mr.ratio())
	}

	return active
}

// scratchFor returns a scratch slice of exactly n samples, or nil when
// no buffer source is wired or the buffer is too short for the block.
func (s *SlavableControl) scratchFor(n int) []float64 {
	if s.buffers == nil {
		return nil
	}
	scratch := s.buffers.ScratchAutomationBuffer()
	if len(scratch) < n {
		return nil
	}
	return scratch[:n]
}

// applyGainToBuffer multiplies every sample by gain.
func applyGainToBuffer(buf []float64, gain float64) {
	for i := range buf {
		buf[i] *= gain
	}
}
