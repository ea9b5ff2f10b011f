package sensor

import (
	"context"
	"fmt"
	"math"

	"github.com/nerrad567/sensornode/internal/infrastructure/config"
)

// Sensor provides blocking access to the environmental readings.
//
// Temperature is in degrees Celsius, relative humidity in percent.
type Sensor interface {
	ReadTemperature(ctx context.Context) (float64, error)
	ReadHumidity(ctx context.Context) (float64, error)
	Close() error
}

// New opens the driver named by cfg.Driver.
func New(cfg config.SensorsConfig) (Sensor, error) {
	switch cfg.Driver {
	case config.DriverIIO:
		return NewIIO(cfg.IIO)
	case config.DriverSimulated:
		return NewSimulated(cfg.Simulated), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// checkFinite rejects NaN and infinite values.
func checkFinite(quantity string, v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s is %v", ErrInvalidReading, quantity, v)
	}
	return v, nil
}
