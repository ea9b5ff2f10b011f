package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nerrad567/sensornode/internal/infrastructure/config"
	"github.com/nerrad567/sensornode/internal/infrastructure/mqtt"
	"github.com/nerrad567/sensornode/internal/sensor"
)

// Publisher sends one payload. *mqtt.Client satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Subscriber is needed only for the echo subscription.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Logger is the logging surface the task uses.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options configures a Task.
type Options struct {
	Sensor     sensor.Sensor
	Publisher  Publisher
	Subscriber Subscriber
	Logger     Logger

	Topic       string
	QoS         byte
	Interval    time.Duration
	SettleDelay time.Duration

	// Format is config.FormatCompact (default) or config.FormatJSON.
	Format string

	// EchoSubscribe subscribes to Topic and logs what comes back.
	EchoSubscribe bool

	// Sinks are notified after every publish attempt.
	Sinks []Sink
}

// Stats counts publish attempts since the task started.
type Stats struct {
	Attempts     uint64
	Failures     uint64
	ReadFailures uint64
}

// Task is the publish loop. Run it from a single goroutine.
type Task struct {
	opts Options

	attempts     atomic.Uint64
	failures     atomic.Uint64
	readFailures atomic.Uint64

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewTask validates opts and returns a task ready to Run.
func NewTask(opts Options) (*Task, error) {
	switch {
	case opts.Sensor == nil:
		return nil, fmt.Errorf("%w: sensor is required", ErrInvalidOptions)
	case opts.Publisher == nil:
		return nil, fmt.Errorf("%w: publisher is required", ErrInvalidOptions)
	case opts.Logger == nil:
		return nil, fmt.Errorf("%w: logger is required", ErrInvalidOptions)
	case opts.Topic == "":
		return nil, fmt.Errorf("%w: topic is required", ErrInvalidOptions)
	case opts.EchoSubscribe && opts.Subscriber == nil:
		return nil, fmt.Errorf("%w: echo subscription needs a subscriber", ErrInvalidOptions)
	}

	switch opts.Format {
	case "":
		opts.Format = config.FormatCompact
	case config.FormatCompact, config.FormatJSON:
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidOptions, opts.Format)
	}

	return &Task{
		opts:  opts,
		now:   time.Now,
		sleep: sleepContext,
	}, nil
}

// Run executes the loop until ctx is cancelled.
func (t *Task) Run(ctx context.Context) {
	if t.opts.EchoSubscribe {
		if err := t.opts.Subscriber.Subscribe(t.opts.Topic, t.opts.QoS, t.echo); err != nil {
			t.opts.Logger.Warn("echo subscription failed", "topic", t.opts.Topic, "error", err)
		}
	}

	t.opts.Logger.Info("telemetry task started",
		"topic", t.opts.Topic,
		"qos", t.opts.QoS,
		"interval", t.opts.Interval,
		"format", t.opts.Format,
	)

	for {
		reading, err := t.readSensors(ctx)
		switch {
		case ctx.Err() != nil:
			t.stopped()
			return
		case err != nil:
			t.readFailures.Add(1)
			t.opts.Logger.Error("sensor read failed", "error", err)
		default:
			t.publish(ctx, reading)
		}

		if err := t.sleep(ctx, t.opts.Interval); err != nil {
			t.stopped()
			return
		}
	}
}

// Stats returns the counters so far.
func (t *Task) Stats() Stats {
	return Stats{
		Attempts:     t.attempts.Load(),
		Failures:     t.failures.Load(),
		ReadFailures: t.readFailures.Load(),
	}
}

func (t *Task) stopped() {
	s := t.Stats()
	t.opts.Logger.Info("telemetry task stopped",
		"attempts", s.Attempts,
		"failures", s.Failures,
		"read_failures", s.ReadFailures,
	)
}

// readSensors reads temperature then humidity, each followed by the settle delay.
func (t *Task) readSensors(ctx context.Context) (Reading, error) {
	temp, err := t.opts.Sensor.ReadTemperature(ctx)
	if err != nil {
		return Reading{}, fmt.Errorf("temperature: %w", err)
	}
	if err := t.sleep(ctx, t.opts.SettleDelay); err != nil {
		return Reading{}, err
	}

	hum, err := t.opts.Sensor.ReadHumidity(ctx)
	if err != nil {
		return Reading{}, fmt.Errorf("humidity: %w", err)
	}
	at := t.now()
	if err := t.sleep(ctx, t.opts.SettleDelay); err != nil {
		return Reading{}, err
	}

	return Reading{Temperature: temp, Humidity: hum, At: at}, nil
}

func (t *Task) format(r Reading) ([]byte, error) {
	if t.opts.Format == config.FormatJSON {
		return FormatJSONPayload(r)
	}
	return FormatPayload(r), nil
}

func (t *Task) publish(ctx context.Context, r Reading) {
	payload, err := t.format(r)
	if err != nil {
		t.opts.Logger.Error("formatting payload failed", "error", err)
		return
	}

	t.attempts.Add(1)
	err = t.opts.Publisher.Publish(t.opts.Topic, payload, t.opts.QoS, false)
	if err != nil {
		t.failures.Add(1)
		t.opts.Logger.Error("publish failed",
			"topic", t.opts.Topic,
			"payload", string(payload),
			"error", err,
		)
	} else {
		t.opts.Logger.Info("sent message", "topic", t.opts.Topic, "payload", string(payload))
	}

	result := Result{
		Reading:   r,
		Topic:     t.opts.Topic,
		Payload:   payload,
		Published: err == nil,
		Err:       err,
	}
	for _, sink := range t.opts.Sinks {
		sink.Observe(ctx, result)
	}
}

// echo logs a message received on the telemetry topic, copied into a
// MaxDataLength buffer.
func (t *Task) echo(topic string, payload []byte) error {
	var buf [MaxDataLength]byte
	n := copy(buf[:MaxDataLength-1], payload)
	t.opts.Logger.Info("received message",
		"topic", topic,
		"payload", string(buf[:n]),
		"truncated", n < len(payload),
	)
	return nil
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
