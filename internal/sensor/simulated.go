package sensor

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/nerrad567/sensornode/internal/infrastructure/config"
)

// Simulated returns base values with uniform jitter in [-Jitter, +Jitter].
//
// The sequence is reproducible for a given seed.
type Simulated struct {
	cfg config.SimulatedConfig

	mu     sync.Mutex
	rng    *rand.Rand
	closed bool
}

// NewSimulated creates a simulated sensor.
func NewSimulated(cfg config.SimulatedConfig) *Simulated {
	return &Simulated{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(uint64(cfg.Seed), 0)), //nolint:gosec // not security sensitive
	}
}

// ReadTemperature returns a simulated temperature.
func (s *Simulated) ReadTemperature(ctx context.Context) (float64, error) {
	return s.read(ctx, "temperature", s.cfg.Temperature)
}

// ReadHumidity returns a simulated relative humidity, clamped to 0..100.
func (s *Simulated) ReadHumidity(ctx context.Context) (float64, error) {
	v, err := s.read(ctx, "humidity", s.cfg.Humidity)
	if err != nil {
		return 0, err
	}
	return min(max(v, 0), 100), nil
}

// Close stops further reads.
func (s *Simulated) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *Simulated) read(ctx context.Context, quantity string, base float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	v := base
	if s.cfg.Jitter > 0 {
		v += (s.rng.Float64()*2 - 1) * s.cfg.Jitter
	}
	return checkFinite(quantity, v)
}
