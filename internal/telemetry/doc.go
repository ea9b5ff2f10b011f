// Package telemetry runs the node's publish loop.
//
// Each iteration reads the temperature, waits the settle delay, reads the
// humidity, waits the settle delay again, formats both values into a
// bounded payload and publishes it once. The loop then sleeps for the
// publish interval and repeats until its context is cancelled.
//
// Failures are logged and the iteration moves on to its delay. There is no
// retry, backoff or reconnection here; the MQTT client owns the connection.
//
// # Payload
//
// The compact format is the fixed-size text
//
//	{T: 21, H: 45}
//
// with both values truncated toward zero and the whole string cut to
// MaxDataLength-1 bytes.
package telemetry
