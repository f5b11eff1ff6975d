package mqtt

import "fmt"

// Topic prefixes for the control-surface protocol.
//
// Control surfaces talk to the core over two hierarchies: the core
// publishes authoritative control state under ardour/core, surfaces
// publish commands under ardour/command.
const (
	// TopicPrefixCore is the base for all state published by the core.
	TopicPrefixCore = "ardour/core"

	// TopicPrefixCommand is the base for commands sent by surfaces.
	TopicPrefixCommand = "ardour/command"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "ardour/system"
)

// Topics provides builders for control-surface MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	valueTopic := topics.ControlValue("ctl-1f0a")
//	// Returns: "ardour/core/control/ctl-1f0a/value"
type Topics struct{}

// ControlValue returns the topic carrying a control's effective value.
// This is the authoritative value published by the core after every
// change, whatever its origin.
//
// Example: ardour/core/control/ctl-1f0a/value
func (Topics) ControlValue(controlID string) string {
	return fmt.Sprintf("%s/control/%s/value", TopicPrefixCore, controlID)
}

// ControlMasters returns the topic carrying a control's master
// assignments, published whenever the mastering status changes.
//
// Example: ardour/core/control/ctl-1f0a/masters
func (Topics) ControlMasters(controlID string) string {
	return fmt.Sprintf("%s/control/%s/masters", TopicPrefixCore, controlID)
}

// ControlCommand returns the topic a surface publishes commands for one
// control to. The payload carries the action (set, assign, unassign,
// clear) and its arguments.
//
// Example: ardour/command/control/ctl-1f0a
func (Topics) ControlCommand(controlID string) string {
	return fmt.Sprintf("%s/control/%s", TopicPrefixCommand, controlID)
}

// SessionEvent returns the topic for session lifecycle events.
//
// Example: ardour/core/session/loaded
func (Topics) SessionEvent(event string) string {
	return fmt.Sprintf("%s/session/%s", TopicPrefixCore, event)
}

// Transport returns the topic carrying transport position updates.
//
// Example: ardour/core/transport
func (Topics) Transport() string {
	return fmt.Sprintf("%s/transport", TopicPrefixCore)
}

// SystemStatus returns the system status topic. The client's last-will
// message is published here so surfaces see the core go offline.
//
// Example: ardour/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemShutdown returns the shutdown signal topic.
//
// Example: ardour/system/shutdown
func (Topics) SystemShutdown() string {
	return fmt.Sprintf("%s/shutdown", TopicPrefixSystem)
}

// AllControlCommands returns a pattern matching every control command.
//
// Pattern: ardour/command/control/+
func (Topics) AllControlCommands() string {
	return fmt.Sprintf("%s/control/+", TopicPrefixCommand)
}

// AllControlValues returns a pattern matching every published value.
//
// Pattern: ardour/core/control/+/value
func (Topics) AllControlValues() string {
	return fmt.Sprintf("%s/control/+/value", TopicPrefixCore)
}

// AllTopics returns a pattern matching all topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: ardour/#
func (Topics) AllTopics() string {
	return "ardour/#"
}
