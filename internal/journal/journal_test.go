package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/sensornode/internal/infrastructure/config"
	"github.com/nerrad567/sensornode/internal/infrastructure/database"
	"github.com/nerrad567/sensornode/migrations"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, config.JournalConfig{
		Path:        filepath.Join(t.TempDir(), "journal.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return New(db.DB)
}

// fixedClock returns a clock that advances one second per call.
func fixedClock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(time.Second)
		return now
	}
}

func TestRecordAndRecent(t *testing.T) {
	repo := newTestRepo(t)
	repo.now = fixedClock(time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	if err := repo.Record(ctx, Entry{
		Topic: "freertos/mqtt/basement", Temperature: 21.7, Humidity: 45.2,
		Payload: "{T: 21, H: 45}", Published: true,
	}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := repo.Record(ctx, Entry{
		Topic: "freertos/mqtt/basement", Temperature: 22.1, Humidity: 44.9,
		Payload: "{T: 22, H: 44}", Error: "mqtt: client not connected",
	}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entries, err := repo.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}

	newest := entries[0]
	if newest.Payload != "{T: 22, H: 44}" || newest.Published || newest.Error == "" {
		t.Errorf("newest = %+v", newest)
	}
	if newest.BootID != repo.BootID() {
		t.Errorf("BootID = %q, want %q", newest.BootID, repo.BootID())
	}
	if !newest.CreatedAt.Equal(time.Date(2026, 10, 14, 9, 0, 1, 0, time.UTC)) {
		t.Errorf("CreatedAt = %v", newest.CreatedAt)
	}

	oldest := entries[1]
	if !oldest.Published || oldest.Error != "" || oldest.Temperature != 21.7 {
		t.Errorf("oldest = %+v", oldest)
	}
}

func TestRecent_SubSecondOrdering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

	for i, offset := range []time.Duration{0, 500 * time.Millisecond, time.Second} {
		if err := repo.Record(ctx, Entry{
			Topic: "t", Payload: string(rune('a' + i)), CreatedAt: base.Add(offset),
		}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	entries, err := repo.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	got := entries[0].Payload + entries[1].Payload + entries[2].Payload
	if got != "cba" {
		t.Errorf("order = %q, want cba", got)
	}
}

func TestRecent_Limit(t *testing.T) {
	repo := newTestRepo(t)
	repo.now = fixedClock(time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for i := 0; i < maxRecentLimit+5; i++ {
		if err := repo.Record(ctx, Entry{Topic: "t", Payload: "p", Published: true}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	tests := []struct {
		limit int
		want  int
	}{
		{0, defaultRecentLimit},
		{-1, defaultRecentLimit},
		{3, 3},
		{maxRecentLimit + 100, maxRecentLimit},
	}
	for _, tt := range tests {
		entries, err := repo.Recent(ctx, tt.limit)
		if err != nil {
			t.Fatalf("Recent(%d) error = %v", tt.limit, err)
		}
		if len(entries) != tt.want {
			t.Errorf("Recent(%d) returned %d, want %d", tt.limit, len(entries), tt.want)
		}
	}
}

func TestRecord_RequiresTopic(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.Record(context.Background(), Entry{}); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Record() error = %v, want ErrInvalidEntry", err)
	}
}

func TestStats(t *testing.T) {
	repo := newTestRepo(t)
	repo.now = fixedClock(time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	empty, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if empty.Attempts != 0 || !empty.LastSuccess.IsZero() {
		t.Errorf("empty stats = %+v", empty)
	}

	// A row from an earlier boot.
	if err := repo.Record(ctx, Entry{BootID: "previous", Topic: "t", Payload: "p"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := repo.Record(ctx, Entry{Topic: "t", Payload: "p", Published: true}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := repo.Record(ctx, Entry{Topic: "t", Payload: "p", Error: "timeout"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	s, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if s.Attempts != 3 || s.Failures != 2 {
		t.Errorf("attempts/failures = %d/%d, want 3/2", s.Attempts, s.Failures)
	}
	if s.BootAttempts != 2 || s.BootFailures != 1 {
		t.Errorf("boot attempts/failures = %d/%d, want 2/1", s.BootAttempts, s.BootFailures)
	}
	if !s.LastSuccess.Equal(time.Date(2026, 10, 14, 9, 0, 1, 0, time.UTC)) {
		t.Errorf("LastSuccess = %v", s.LastSuccess)
	}
}

func TestPrune(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	for _, age := range []time.Duration{72 * time.Hour, 48 * time.Hour, time.Hour} {
		if err := repo.Record(ctx, Entry{Topic: "t", Payload: "p", CreatedAt: now.Add(-age)}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	n, err := repo.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Prune() removed %d, want 2", n)
	}

	if _, err := repo.Prune(ctx, 0); err == nil {
		t.Error("Prune(0) succeeded")
	}
}

func TestNew_DistinctBootIDs(t *testing.T) {
	a, b := New(nil), New(nil)
	if a.BootID() == "" || a.BootID() == b.BootID() {
		t.Errorf("boot ids %q and %q", a.BootID(), b.BootID())
	}
}
