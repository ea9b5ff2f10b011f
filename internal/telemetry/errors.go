package telemetry

import "errors"

// ErrInvalidOptions is returned by NewTask for incomplete options.
var ErrInvalidOptions = errors.New("telemetry: invalid options")
