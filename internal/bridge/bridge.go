package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/itmuckel/ardour/internal/control"
	"github.com/itmuckel/ardour/internal/history"
	"github.com/itmuckel/ardour/internal/infrastructure/mqtt"
	"github.com/itmuckel/ardour/internal/session"
)

// Logger defines the logging interface used by the Bridge.
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

// Broker is the MQTT connectivity the bridge needs. *mqtt.Client
// satisfies it.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Recorder persists control value changes. *history.SQLiteRepository
// satisfies it.
type Recorder interface {
	Record(ctx context.Context, controlID string, value float64, source string) error
}

// Telemetry fans value changes out to the time-series database.
// *influxdb.Client satisfies it.
type Telemetry interface {
	WriteControlValue(controlID string, source string, value float64)
	WriteMasterAssignment(controlID string, masterCount int)
}

// Bridge connects a session to control surfaces over MQTT.
//
// Outbound, it publishes every control's effective value (retained, so
// surfaces sync on connect) and its mastering status. Inbound, it
// subscribes to the command hierarchy and applies set/assign/unassign/
// clear commands to the session. Each observed change is also recorded
// in the history repository and the time-series database when those are
// wired.
type Bridge struct {
	session   *session.Session
	broker    Broker
	recorder  Recorder
	telemetry Telemetry
	qos       byte
	logger    Logger

	topics mqtt.Topics

	mu   sync.Mutex
	subs []*control.Subscription
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithRecorder wires the history repository.
func WithRecorder(r Recorder) Option {
	return func(b *Bridge) { b.recorder = r }
}

// WithTelemetry wires the time-series client.
func WithTelemetry(t Telemetry) Option {
	return func(b *Bridge) { b.telemetry = t }
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// New creates a bridge for the given session and broker connection.
func New(sess *session.Session, broker Broker, qos byte, opts ...Option) *Bridge {
	b := &Bridge{
		session: sess,
		broker:  broker,
		qos:     qos,
		logger:  noopLogger{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start subscribes to the command hierarchy and attaches to every
// control currently in the session. Controls created afterwards must be
// attached explicitly via AttachControl.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.broker.Subscribe(b.topics.AllControlCommands(), b.qos, b.handleCommand); err != nil {
		return fmt.Errorf("subscribing to commands: %w", err)
	}

	for _, c := range b.session.Controls() {
		b.AttachControl(ctx, c)
	}

	b.logger.Info("bridge started", "controls", len(b.session.Controls()))
	return nil
}

// AttachControl starts publishing a control's changes. The current
// value and mastering status are published immediately so surfaces see
// the control without waiting for a change.
func (b *Bridge) AttachControl(ctx context.Context, c *control.SlavableControl) {
	changedSub := c.OnChanged(func(fromSelf bool, _ control.GroupDisposition) {
		source := history.SourceMaster
		if fromSelf {
			source = history.SourceCommand
		}
		b.publishValue(ctx, c, source)
	})
	statusSub := c.OnMasterStatusChanged(func() {
		b.publishMasters(c)
	})

	b.mu.Lock()
	b.subs = append(b.subs, changedSub, statusSub)
	b.mu.Unlock()

	b.publishValue(ctx, c, history.SourceCommand)
	b.publishMasters(c)
}

// Close cancels every control subscription and unsubscribes from the
// command hierarchy.
func (b *Bridge) Close() error {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}

	return b.broker.Unsubscribe(b.topics.AllControlCommands())
}

// ValueMessage is the payload published on a control's value topic.
type ValueMessage struct {
	ControlID string  `json:"control_id"`
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Source    string  `json:"source"`
}

// MastersMessage is the payload published on a control's masters topic.
type MastersMessage struct {
	ControlID string   `json:"control_id"`
	MasterIDs []string `json:"master_ids"`
}

func (b *Bridge) publishValue(ctx context.Context, c *control.SlavableControl, source string) {
	value := c.GetValue()

	msg := ValueMessage{
		ControlID: c.ID(),
		Name:      c.Name(),
		Value:     value,
		Source:    source,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("marshalling value message", "control", c.ID(), "error", err)
		return
	}

	if err := b.broker.Publish(b.topics.ControlValue(c.ID()), payload, b.qos, true); err != nil {
		b.logger.Error("publishing value", "control", c.ID(), "error", err)
	}

	if b.recorder != nil {
		if err := b.recorder.Record(ctx, c.ID(), value, source); err != nil {
			b.logger.Error("recording history", "control", c.ID(), "error", err)
		}
	}
	if b.telemetry != nil {
		b.telemetry.WriteControlValue(c.ID(), source, value)
	}
}

func (b *Bridge) publishMasters(c *control.SlavableControl) {
	ids := c.MasterIDs()

	msg := MastersMessage{ControlID: c.ID(), MasterIDs: ids}
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("marshalling masters message", "control", c.ID(), "error", err)
		return
	}

	if err := b.broker.Publish(b.topics.ControlMasters(c.ID()), payload, b.qos, true); err != nil {
		b.logger.Error("publishing masters", "control", c.ID(), "error", err)
	}
	if b.telemetry != nil {
		b.telemetry.WriteMasterAssignment(c.ID(), len(ids))
	}
}

// Command actions accepted on the command topic.
const (
	ActionSet      = "set"
	ActionAssign   = "assign"
	ActionUnassign = "unassign"
	ActionClear    = "clear"
)

// CommandMessage is the payload surfaces publish on a control's command
// topic.
type CommandMessage struct {
	Action   string  `json:"action"`
	Value    float64 `json:"value,omitempty"`
	MasterID string  `json:"master_id,omitempty"`
}

// handleCommand processes one inbound command message.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	controlID := controlIDFromTopic(topic)
	if controlID == "" {
		return fmt.Errorf("bridge: malformed command topic %q", topic)
	}

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("bridge: parsing command: %w", err)
	}

	b.logger.Debug("command received", "control", controlID, "action", cmd.Action)

	switch cmd.Action {
	case ActionSet:
		c, err := b.session.Control(controlID)
		if err != nil {
			return fmt.Errorf("bridge: %w", err)
		}
		c.SetValue(cmd.Value, control.GroupNone)
		return nil

	case ActionAssign:
		if err := b.session.AssignMaster(controlID, cmd.MasterID); err != nil {
			return fmt.Errorf("bridge: %w", err)
		}
		return nil

	case ActionUnassign:
		if err := b.session.UnassignMaster(controlID, cmd.MasterID); err != nil {
			return fmt.Errorf("bridge: %w", err)
		}
		return nil

	case ActionClear:
		if err := b.session.ClearMasters(controlID); err != nil {
			return fmt.Errorf("bridge: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("bridge: unknown action %q", cmd.Action)
	}
}

// controlIDFromTopic extracts the control ID from a command topic
// (ardour/command/control/{id}).
func controlIDFromTopic(topic string) string {
	prefix := mqtt.TopicPrefixCommand + "/control/"
	if !strings.HasPrefix(topic, prefix) {
		return ""
	}
	id := strings.TrimPrefix(topic, prefix)
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
