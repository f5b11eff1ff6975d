package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/itmuckel/ardour/internal/infrastructure/config"
)

// MessageHandler receives one inbound message. Handlers run on paho's
// delivery goroutines and should return quickly; a returned error is
// logged and the message is still acknowledged.
type MessageHandler func(topic string, payload []byte) error

// Logger is the subset of logging.Logger the client needs for handler
// failures. A nil logger drops them.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Client is a connection to the broker that survives reconnects.
// Subscriptions registered through Subscribe are replayed every time
// the connection comes back. All methods are safe for concurrent use.
type Client struct {
	paho pahomqtt.Client
	cfg  config.MQTTConfig

	mu        sync.RWMutex
	connected bool
	subs      map[string]subscription

	onConnect    func()
	onDisconnect func(err error)

	log Logger
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// Connect dials the broker and blocks until the session is up or the
// connect timeout expires. The returned client reconnects on its own
// with backoff between cfg.Reconnect.InitialDelay and MaxDelay, and
// carries a retained will on the system status topic so subscribers
// see a crash as "offline".
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		cfg:  cfg,
		subs: make(map[string]subscription),
	}

	opts := buildClientOptions(cfg)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.sessionUp() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.sessionDown(err) })

	c.paho = pahomqtt.NewClient(opts)
	token := c.paho.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The on-connect handler runs on paho's goroutine and may not have
	// fired yet; mark the state here so IsConnected is true on return.
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	return c, nil
}

// sessionUp runs on every successful (re)connect.
func (c *Client) sessionUp() {
	c.mu.Lock()
	c.connected = true
	subs := make(map[string]subscription, len(c.subs))
	for topic, sub := range c.subs {
		subs[topic] = sub
	}
	cb := c.onConnect
	c.mu.Unlock()

	for topic, sub := range subs {
		c.paho.Subscribe(topic, sub.qos, c.wrapHandler(sub.handler))
	}
	c.paho.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true,
		statusPayload(c.cfg.Broker.ClientID, "online", ""))

	if cb != nil {
		cb()
	}
}

func (c *Client) sessionDown(err error) {
	c.mu.Lock()
	c.connected = false
	cb := c.onDisconnect
	c.mu.Unlock()

	if cb != nil {
		cb(err)
	}
}

// Close publishes a graceful offline status, distinct from the will the
// broker would send on a crash, then disconnects.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}

	if c.IsConnected() {
		token := c.paho.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true,
			statusPayload(c.cfg.Broker.ClientID, "offline", "graceful_shutdown"))
		token.WaitTimeout(opTimeout)
	}
	c.paho.Disconnect(disconnectQuiesceMs)

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	return nil
}

// HealthCheck reports whether the session is currently up.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.paho.IsConnected()
}

// SetOnConnect registers a callback for every (re)connect.
func (c *Client) SetOnConnect(cb func()) {
	c.mu.Lock()
	c.onConnect = cb
	c.mu.Unlock()
}

// SetOnDisconnect registers a callback for every lost connection.
func (c *Client) SetOnDisconnect(cb func(err error)) {
	c.mu.Lock()
	c.onDisconnect = cb
	c.mu.Unlock()
}

// SetLogger routes handler panics and errors somewhere visible.
func (c *Client) SetLogger(log Logger) {
	c.mu.Lock()
	c.log = log
	c.mu.Unlock()
}

func (c *Client) logger() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.log
}

// wrapHandler adapts a MessageHandler to paho's signature. A panicking
// handler must not take down the delivery goroutine.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if log := c.logger(); log != nil {
					log.Error("mqtt handler panicked", "topic", msg.Topic(), "panic", r)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if log := c.logger(); log != nil {
				log.Warn("mqtt handler failed", "topic", msg.Topic(), "error", err)
			}
		}
	}
}
