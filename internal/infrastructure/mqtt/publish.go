package mqtt

import (
	"fmt"
)

// maxPayloadSize bounds a single message (256KB). Telemetry payloads are a
// few dozen bytes; anything larger is a bug upstream.
const maxPayloadSize = 256 << 10

// Publish sends a message to the specified MQTT topic and waits at most the
// configured publish timeout for the broker acknowledgement.
//
// QoS Levels:
//   - 0: At most once (fire and forget)
//   - 1: At least once (acknowledged, may duplicate)
//   - 2: Exactly once
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure.
//     A timeout matches both ErrPublishFailed and ErrTimeout.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" || hasWildcard(topic) {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	timeout := c.cfg.Timeouts.Publish
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w: %w after %v", ErrPublishFailed, ErrTimeout, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}
