package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/sensornode/internal/infrastructure/config"
)

// Connection constants.
const (
	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// statusQoS is the QoS used for status and Last Will messages.
	statusQoS = 1

	// tlsMinVersion is the minimum TLS version when no TLS config is supplied.
	tlsMinVersion = tls.VersionTLS12
)

// Status values published on the status topic.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// brokerURL returns tcp:// or ssl:// host:port.
func brokerURL(cfg config.MQTTBrokerConfig) string {
	scheme := "tcp"
	if cfg.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port)
}

// buildClientOptions creates paho MQTT options for the node.
//
// This configures:
//   - Broker URL (tcp:// or ssl:// based on TLS setting)
//   - Client ID from the device identity
//   - Authentication credentials (if provided)
//   - Clean session mode
//   - Auto-reconnect only when explicitly enabled
//   - TLS configuration (if enabled)
func buildClientOptions(cfg config.MQTTConfig, device config.DeviceConfig, tlsConfig *tls.Config) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	opts.AddBroker(brokerURL(cfg.Broker))
	opts.SetClientID(device.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetCleanSession(true)

	// The initial connect is attempted once; the caller decides what a
	// failure means.
	opts.SetConnectRetry(false)
	opts.SetAutoReconnect(cfg.Reconnect.Enabled)
	if cfg.Reconnect.Enabled {
		opts.SetMaxReconnectInterval(cfg.Reconnect.MaxDelay)
	}

	opts.SetConnectTimeout(cfg.Timeouts.Connect)
	opts.SetWriteTimeout(cfg.Timeouts.Publish)
	if cfg.Timeouts.KeepAlive > 0 {
		opts.SetKeepAlive(cfg.Timeouts.KeepAlive)
	}

	if cfg.Broker.TLS {
		if tlsConfig == nil {
			tlsConfig = &tls.Config{MinVersion: tlsMinVersion}
		}
		opts.SetTLSConfig(tlsConfig)
	}

	return opts
}

// statusMessage is the payload of the status topic.
type statusMessage struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Thing     string `json:"thing"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

// buildStatusPayload encodes a status message.
func buildStatusPayload(device config.DeviceConfig, status, reason string, now time.Time) []byte {
	payload, err := json.Marshal(statusMessage{
		Status:    status,
		ClientID:  device.ClientID,
		Thing:     device.ThingName,
		Reason:    reason,
		Timestamp: now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		// Only string fields; Marshal cannot fail.
		return []byte(`{"status":"` + status + `"}`)
	}
	return payload
}

// configureLWT registers the offline status as the Last Will.
//
// The broker publishes it if the node disappears without a clean
// disconnect (power loss, Wi-Fi drop).
//
// QoS: 1, Retained: true
func configureLWT(opts *pahomqtt.ClientOptions, device config.DeviceConfig) {
	opts.SetBinaryWill(
		NewTopics(device.ThingName).Status(),
		buildStatusPayload(device, StatusOffline, "unexpected_disconnect", time.Now()),
		statusQoS,
		true,
	)
}
