package sensor

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/nerrad567/sensornode/internal/infrastructure/config"
)

// IIO reads processed values from Linux IIO sysfs attributes.
//
// Each read opens the attribute file, which triggers a fresh conversion
// on most drivers.
type IIO struct {
	cfg    config.IIOConfig
	closed atomic.Bool
}

// NewIIO checks that both attributes exist and returns the driver.
func NewIIO(cfg config.IIOConfig) (*IIO, error) {
	for _, path := range []string{cfg.TemperaturePath, cfg.HumidityPath} {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("opening iio attribute: %w", err)
		}
	}
	return &IIO{cfg: cfg}, nil
}

// ReadTemperature returns the temperature in degrees Celsius.
func (s *IIO) ReadTemperature(ctx context.Context) (float64, error) {
	return s.read(ctx, "temperature", s.cfg.TemperaturePath, s.cfg.TemperatureScale)
}

// ReadHumidity returns the relative humidity in percent.
func (s *IIO) ReadHumidity(ctx context.Context) (float64, error) {
	return s.read(ctx, "humidity", s.cfg.HumidityPath, s.cfg.HumidityScale)
}

// Close marks the driver closed. Attribute files are not held open.
func (s *IIO) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *IIO) read(ctx context.Context, quantity, path string, scale float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.closed.Load() {
		return 0, ErrClosed
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", quantity, err)
	}

	raw, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrInvalidReading, quantity, strings.TrimSpace(string(data)))
	}

	return checkFinite(quantity, raw*scale)
}
