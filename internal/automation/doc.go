// Package automation provides the automation-envelope storage used by
// controls during playback.
//
// A List is an ordered set of (sample position, value) events with
// linear interpolation between them. Controls consult their list when it
// is in a playback state; otherwise the control's raw value rules.
//
// # Key Types
//
//   - List: The envelope itself (events, state, evaluation)
//   - ControlEvent: A single automation point
//   - State: off, play, write, touch
//
// # Realtime Use
//
// The RTSafe* methods are designed for the audio render thread: they
// acquire the internal lock with a non-blocking attempt and report
// failure rather than waiting, and they never allocate. Callers fall
// back to flat-value rendering when evaluation fails.
//
// # Thread Safety
//
// All methods are safe for concurrent use. A single RWMutex guards the
// event slice and state.
package automation
