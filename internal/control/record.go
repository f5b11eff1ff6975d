package control

import "sync/atomic"

// masterRecord is the per-attached-master bookkeeping held in a slave's
// registry. It does not own the master: destruction of the master is
// observed through the drop subscription, which removes the record.
type masterRecord struct {
	master Master

	// valCtrl and valMaster snapshot the slave's and the master's
	// values at attach time. They are written under the registry
	// write lock (at attach, and again when saved ratios are applied
	// during session load).
	valCtrl   float64
	valMaster float64

	// yn caches the master's last known on/off state for toggled
	// slaves. A master can emit several change notifications without
	// its effective value flipping; comparing against this cache is
	// what turns envelope noise into edges.
	yn atomic.Bool

	changedSub *Subscription
	droppedSub *Subscription
}

// ratio returns the master's current contribution factor relative to
// its attach-time value. A master that is itself slaved reports its own
// composite value here, so chained masters compose transitively.
func (mr *masterRecord) ratio() float64 {
	if mr.valMaster == 0 {
		return 0
	}
	return mr.master.GetValue() / mr.valMaster
}

// detach cancels the record's subscriptions.
func (mr *masterRecord) detach() {
	mr.changedSub.Cancel()
	mr.droppedSub.Cancel()
}
