package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefixStatus is the base of the per-device status topics.
const TopicPrefixStatus = "sensornode"

// Topics builds the topics owned by one device.
//
//	topics := mqtt.NewTopics("BasementSTM32L475")
//	topics.Status() // "sensornode/BasementSTM32L475/status"
//
// The telemetry topic itself is configuration and is used verbatim.
type Topics struct {
	thing string
}

// NewTopics returns topic builders for the named device.
func NewTopics(thing string) Topics {
	return Topics{thing: thing}
}

// Status returns the retained online/offline topic for the device.
//
// Example: sensornode/BasementSTM32L475/status
func (t Topics) Status() string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixStatus, t.thing)
}

// hasWildcard reports whether topic contains an MQTT wildcard.
func hasWildcard(topic string) bool {
	return strings.ContainsAny(topic, "+#")
}
