package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 200

	// timeLayout is fixed width so created_at sorts as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// ErrInvalidEntry is returned by Record for an entry without a topic.
var ErrInvalidEntry = errors.New("journal: invalid entry")

// Entry is one publish attempt.
type Entry struct {
	ID          int64
	BootID      string
	Topic       string
	Temperature float64
	Humidity    float64
	Payload     string
	Published   bool
	Error       string
	CreatedAt   time.Time
}

// Stats summarises the journal.
type Stats struct {
	Attempts     int64
	Failures     int64
	BootAttempts int64
	BootFailures int64
	LastSuccess  time.Time
}

// Repository stores entries in the publish_log table.
type Repository struct {
	db     *sql.DB
	bootID string
	now    func() time.Time
}

// New returns a repository writing under a fresh boot id.
func New(db *sql.DB) *Repository {
	return &Repository{
		db:     db,
		bootID: uuid.NewString(),
		now:    time.Now,
	}
}

// BootID identifies this process's rows.
func (r *Repository) BootID() string {
	return r.bootID
}

// Record inserts an entry. BootID and CreatedAt are filled in when empty.
func (r *Repository) Record(ctx context.Context, e Entry) error {
	if e.Topic == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidEntry)
	}
	if e.BootID == "" {
		e.BootID = r.bootID
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}

	var errText sql.NullString
	if e.Error != "" {
		errText = sql.NullString{String: e.Error, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO publish_log
		 (boot_id, topic, temperature, humidity, payload, published, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.BootID,
		e.Topic,
		e.Temperature,
		e.Humidity,
		e.Payload,
		boolToInt(e.Published),
		errText,
		e.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting publish log: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first (default 50, max 200).
func (r *Repository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, boot_id, topic, temperature, humidity, payload, published, error, created_at
		 FROM publish_log
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying publish log: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		var published int
		var errText sql.NullString
		var createdAt string

		if err := rows.Scan(&e.ID, &e.BootID, &e.Topic, &e.Temperature, &e.Humidity,
			&e.Payload, &published, &errText, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning publish log: %w", err)
		}
		e.Published = published == 1
		e.Error = errText.String

		if e.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating publish log: %w", err)
	}
	return entries, nil
}

// Stats counts attempts and failures overall and for this boot.
func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	var lastSuccess sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT
		   COUNT(*),
		   COALESCE(SUM(published = 0), 0),
		   COALESCE(SUM(boot_id = ?), 0),
		   COALESCE(SUM(boot_id = ? AND published = 0), 0),
		   MAX(CASE WHEN published = 1 THEN created_at END)
		 FROM publish_log`,
		r.bootID, r.bootID,
	).Scan(&s.Attempts, &s.Failures, &s.BootAttempts, &s.BootFailures, &lastSuccess)
	if err != nil {
		return Stats{}, fmt.Errorf("querying publish stats: %w", err)
	}

	if lastSuccess.Valid {
		if s.LastSuccess, err = time.Parse(timeLayout, lastSuccess.String); err != nil {
			return Stats{}, fmt.Errorf("parsing last success: %w", err)
		}
	}
	return s, nil
}

// Prune deletes entries older than olderThan and returns the count removed.
func (r *Repository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := r.now().Add(-olderThan).UTC().Format(timeLayout)
	result, err := r.db.ExecContext(ctx, "DELETE FROM publish_log WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting publish log: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
