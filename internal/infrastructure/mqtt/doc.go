// Package mqtt provides MQTT client connectivity for the sensor node.
//
// This package manages:
//   - A single connection attempt bounded by a fixed timeout
//   - Publishing with a fixed acknowledgement timeout
//   - Optional subscriptions with panic-safe handlers
//   - Optional retained status messages with a Last Will
//
// Reconnection is off unless mqtt.reconnect.enabled is set. With it off, a
// lost connection makes every later Publish return ErrNotConnected, which
// the telemetry task logs and otherwise ignores.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Device, tlsConfig)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Publish("freertos/mqtt/basement", []byte("{T: 21, H: 45}"), 1, false)
//
// # Security Considerations
//
//   - TLS (ssl://) is used when mqtt.broker.tls is set; the client key pair
//     comes from the credentials package
//   - Username/password are sent only when a username is configured
package mqtt
