package telemetry

import (
	"context"
	"time"

	"github.com/nerrad567/sensornode/internal/journal"
)

// Result describes one publish attempt.
type Result struct {
	Reading   Reading
	Topic     string
	Payload   []byte
	Published bool
	Err       error
}

// Sink observes publish attempts. Observe must not block the loop for long.
type Sink interface {
	Observe(ctx context.Context, result Result)
}

// Recorder stores journal entries. *journal.Repository satisfies it.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// JournalSink records every attempt to the local journal.
type JournalSink struct {
	Recorder Recorder
	Logger   Logger
}

// Observe implements Sink.
func (s JournalSink) Observe(ctx context.Context, r Result) {
	entry := journal.Entry{
		Topic:       r.Topic,
		Temperature: r.Reading.Temperature,
		Humidity:    r.Reading.Humidity,
		Payload:     string(r.Payload),
		Published:   r.Published,
		CreatedAt:   r.Reading.At,
	}
	if r.Err != nil {
		entry.Error = r.Err.Error()
	}

	if err := s.Recorder.Record(ctx, entry); err != nil && s.Logger != nil {
		s.Logger.Warn("journal write failed", "error", err)
	}
}

// PointWriter queues a reading for a time-series store.
// *influxdb.Client satisfies it.
type PointWriter interface {
	WriteReading(thing, clientID string, temperature, humidity float64, at time.Time)
}

// InfluxSink mirrors successfully published readings.
type InfluxSink struct {
	Writer   PointWriter
	Thing    string
	ClientID string
}

// Observe implements Sink. Failed publishes are not mirrored.
func (s InfluxSink) Observe(_ context.Context, r Result) {
	if !r.Published {
		return
	}
	s.Writer.WriteReading(s.Thing, s.ClientID, r.Reading.Temperature, r.Reading.Humidity, r.Reading.At)
}
