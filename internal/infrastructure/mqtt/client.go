package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/sensornode/internal/infrastructure/config"
)

// pahoClient is the subset of pahomqtt.Client the wrapper uses.
type pahoClient interface {
	IsConnected() bool
	Connect() pahomqtt.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Subscribe(topic string, qos byte, callback pahomqtt.MessageHandler) pahomqtt.Token
	Unsubscribe(topics ...string) pahomqtt.Token
}

// newPahoClient constructs the underlying client. Replaced in tests.
var newPahoClient = func(opts *pahomqtt.ClientOptions) pahoClient {
	return pahomqtt.NewClient(opts)
}

// Client wraps paho.mqtt.golang for the sensor node.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Subscriptions are restored on reconnection when reconnect is enabled.
type Client struct {
	client pahoClient
	cfg    config.MQTTConfig
	device config.DeviceConfig
	topics Topics

	// subscriptions tracks active subscriptions for re-subscription on reconnect.
	subscriptions map[string]subscription
	subMu         sync.RWMutex

	connected bool
	connMu    sync.RWMutex

	// connects counts OnConnect invocations. paho delivers the first one
	// asynchronously, possibly after Connect has returned.
	connects atomic.Uint64

	onReconnect  func()
	onDisconnect func(err error)
	callbackMu   sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// MessageHandler is the callback signature for received messages.
//
// Handlers are invoked in goroutines owned by the paho library and should
// not block. A returned error is logged and otherwise ignored.
type MessageHandler func(topic string, payload []byte) error

// Connect establishes a connection to the MQTT broker.
//
// The connection attempt is bounded by cfg.Timeouts.Connect. There is no
// retry: a failure is returned to the caller wrapped in ErrConnectionFailed.
//
// Parameters:
//   - cfg: MQTT settings
//   - device: Identity presented to the broker
//   - tlsConfig: Client TLS configuration, used when cfg.Broker.TLS is set (may be nil)
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: If the initial connection fails or times out
func Connect(cfg config.MQTTConfig, device config.DeviceConfig, tlsConfig *tls.Config) (*Client, error) {
	opts := buildClientOptions(cfg, device, tlsConfig)
	if cfg.StatusMessages {
		configureLWT(opts, device)
	}

	c := &Client{
		cfg:           cfg,
		device:        device,
		topics:        NewTopics(device.ThingName),
		subscriptions: make(map[string]subscription),
	}

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})

	c.client = newPahoClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(cfg.Timeouts.Connect) {
		c.client.Disconnect(0)
		return nil, fmt.Errorf("%w: %w after %v", ErrConnectionFailed, ErrTimeout, cfg.Timeouts.Connect)
	}
	if err := token.Error(); err != nil {
		c.client.Disconnect(0)
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnect callback runs asynchronously; mark connected here so
	// IsConnected is true as soon as Connect returns.
	c.setConnected(true)

	return c, nil
}

func (c *Client) setConnected(v bool) {
	c.connMu.Lock()
	c.connected = v
	c.connMu.Unlock()
}

// handleConnect is called when the connection is established.
// The reconnect callback is skipped for the initial connection.
func (c *Client) handleConnect() {
	c.setConnected(true)
	c.restoreSubscriptions()

	if c.cfg.StatusMessages {
		c.publishStatus(StatusOnline, "")
	}

	if c.connects.Add(1) == 1 {
		return
	}

	c.callbackMu.RLock()
	callback := c.onReconnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback()
	}
}

// handleDisconnect is called when the connection is lost.
func (c *Client) handleDisconnect(err error) {
	c.setConnected(false)

	c.callbackMu.RLock()
	callback := c.onDisconnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// restoreSubscriptions re-subscribes to all tracked topics after reconnect.
func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for _, sub := range c.subscriptions {
		// Errors surface through the next publish; nothing to do here.
		c.client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler))
	}
}

// publishStatus publishes a retained status message and waits at most the
// publish timeout.
func (c *Client) publishStatus(status, reason string) {
	payload := buildStatusPayload(c.device, status, reason, time.Now())
	token := c.client.Publish(c.topics.Status(), statusQoS, true, payload)
	token.WaitTimeout(c.cfg.Timeouts.Publish)
}

// Close disconnects from the broker.
//
// When status messages are enabled a graceful offline status is published
// first. Pending operations get cfg.Timeouts.Disconnect to complete.
//
// Returns:
//   - error: Always nil; a connection that is already closed is not an error
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() && c.cfg.StatusMessages {
		c.publishStatus(StatusOffline, "graceful_shutdown")
	}

	quiesce := max(c.cfg.Timeouts.Disconnect.Milliseconds(), 0)
	c.client.Disconnect(uint(quiesce)) // #nosec G115 -- clamped to >= 0
	c.setConnected(false)

	return nil
}

// HealthCheck verifies the MQTT connection is alive.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	if c.client == nil {
		return false
	}
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client.IsConnected()
}

// StatusTopic returns the device status topic.
func (c *Client) StatusTopic() string {
	return c.topics.Status()
}

// SetOnReconnect sets a callback invoked each time paho re-establishes a
// lost connection. The initial connection made by Connect never triggers it.
func (c *Client) SetOnReconnect(callback func()) {
	c.callbackMu.Lock()
	c.onReconnect = callback
	c.callbackMu.Unlock()
}

// SetOnDisconnect sets a callback invoked when the connection is lost.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.callbackMu.Lock()
	c.onDisconnect = callback
	c.callbackMu.Unlock()
}

// SetLogger sets a logger for handler errors and panics.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// wrapHandler wraps a MessageHandler with panic recovery and optional logging.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("MQTT handler panic recovered",
						"topic", msg.Topic(),
						"panic", r,
					)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT handler returned error",
					"topic", msg.Topic(),
					"error", err,
				)
			}
		}
	}
}
