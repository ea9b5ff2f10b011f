// Package logging provides structured logging for the sensor node.
//
// It wraps log/slog and stands in for the diagnostic console: connect
// results, every publish outcome and sensor failures are reported here.
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Never log the Wi-Fi password, MQTT password or private key material.
package logging
