package sensor

import "errors"

var (
	// ErrUnknownDriver is returned by New for an unsupported driver name.
	ErrUnknownDriver = errors.New("sensor: unknown driver")

	// ErrInvalidReading is returned when a value cannot be parsed or is
	// not a finite number.
	ErrInvalidReading = errors.New("sensor: invalid reading")

	// ErrClosed is returned when reading from a closed sensor.
	ErrClosed = errors.New("sensor: closed")
)
