package control

import "sync"

// ChangedHandler receives value-change notifications from a control.
//
// fromSelf is true when the change originated on the control itself
// (a direct set) and false when it was forwarded from a master.
type ChangedHandler func(fromSelf bool, gd GroupDisposition)

// Subscription is a handle on a registered event handler. Cancelling it
// removes the handler; cancelling twice is harmless.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Cancel removes the handler from its event. Safe on a nil subscription.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// changedSignal is the per-control list of value-change handlers.
//
// Handlers are invoked synchronously on the emitting goroutine, but the
// internal lock is never held across a handler call, so handlers may
// subscribe, cancel, or emit further events without deadlocking.
type changedSignal struct {
	mu       sync.Mutex
	next     int
	handlers map[int]ChangedHandler
}

func (s *changedSignal) subscribe(h ChangedHandler) *Subscription {
	s.mu.Lock()
	if s.handlers == nil {
		s.handlers = make(map[int]ChangedHandler)
	}
	id := s.next
	s.next++
	s.handlers[id] = h
	s.mu.Unlock()

	return &Subscription{cancel: func() {
		s.mu.Lock()
		delete(s.handlers, id)
		s.mu.Unlock()
	}}
}

func (s *changedSignal) emit(fromSelf bool, gd GroupDisposition) {
	s.mu.Lock()
	hs := make([]ChangedHandler, 0, len(s.handlers))
	for _, h := range s.handlers {
		hs = append(hs, h)
	}
	s.mu.Unlock()

	for _, h := range hs {
		h(fromSelf, gd)
	}
}

// voidSignal is a parameterless event list, used for destroy and
// mastering-status notifications. Same locking discipline as
// changedSignal.
type voidSignal struct {
	mu       sync.Mutex
	next     int
	handlers map[int]func()
}

func (s *voidSignal) subscribe(h func()) *Subscription {
	s.mu.Lock()
	if s.handlers == nil {
		s.handlers = make(map[int]func())
	}
	id := s.next
	s.next++
	s.handlers[id] = h
	s.mu.Unlock()

	return &Subscription{cancel: func() {
		s.mu.Lock()
		delete(s.handlers, id)
		s.mu.Unlock()
	}}
}

func (s *voidSignal) emit() {
	s.mu.Lock()
	hs := make([]func(), 0, len(s.handlers))
	for _, h := range s.handlers {
		hs = append(hs, h)
	}
	s.mu.Unlock()

	for _, h := range hs {
		h()
	}
}
