// Package state persists build history in SQLite: an append-only event log
// per build plus a summary row used to decide whether a rebuild can be
// skipped.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Event types recorded in the log.
const (
	EventBuildStarted   = "build.started"
	EventStageCompleted = "stage.completed"
	EventBuildFinished  = "build.finished"
)

// Build statuses.
const (
	StatusSuccess = "success"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// ErrNoBuilds indicates no matching build record exists.
var ErrNoBuilds = errors.New("no recorded builds")

// Event is one entry in a build's event log.
type Event struct {
	ID        int64
	BuildID   string
	Type      string
	Timestamp time.Time
	Payload   []byte
}

// BuildRecord summarizes one build.
type BuildRecord struct {
	BuildID       string
	Builder       string
	SourceHash    string
	SphinxVersion string
	Status        string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Store is a SQLite-backed build history store. Use ":memory:" for an
// in-memory database, or a file path for persistent storage.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewBuildID returns a fresh build identifier.
func NewBuildID() string { return uuid.NewString() }

// NewStore opens (and if needed initializes) the store at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		payload BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_events_build_id ON events(build_id);
	CREATE TABLE IF NOT EXISTS builds (
		build_id TEXT PRIMARY KEY,
		builder TEXT NOT NULL,
		source_hash TEXT NOT NULL,
		sphinx_version TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_builds_builder ON builds(builder, finished_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Append adds an event to a build's log.
func (s *Store) Append(ctx context.Context, buildID, eventType string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (build_id, event_type, timestamp, payload) VALUES (?, ?, ?, ?)",
		buildID, eventType, time.Now().Unix(), payload,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// EventsByBuild retrieves all events for one build in append order.
func (s *Store) EventsByBuild(ctx context.Context, buildID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, build_id, event_type, timestamp, payload FROM events WHERE build_id = ? ORDER BY id",
		buildID,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var e Event
		var ts int64
		if err := rows.Scan(&e.ID, &e.BuildID, &e.Type, &ts, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Timestamp = time.Unix(ts, 0)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return events, nil
}

// RecordBuild upserts a build's summary row.
func (s *Store) RecordBuild(ctx context.Context, rec BuildRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO builds (build_id, builder, source_hash, sphinx_version, status, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(build_id) DO UPDATE SET
			status = excluded.status,
			source_hash = excluded.source_hash,
			sphinx_version = excluded.sphinx_version,
			finished_at = excluded.finished_at`,
		rec.BuildID, rec.Builder, rec.SourceHash, rec.SphinxVersion, rec.Status,
		rec.StartedAt.Unix(), rec.FinishedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("record build: %w", err)
	}
	return nil
}

// LastSuccessful returns the most recent successful build for a builder.
// Skipped builds do not count; they point back at an earlier success.
func (s *Store) LastSuccessful(ctx context.Context, builder string) (*BuildRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT build_id, builder, source_hash, sphinx_version, status, started_at, finished_at
		FROM builds WHERE builder = ? AND status = ?
		ORDER BY finished_at DESC, build_id DESC LIMIT 1`,
		builder, StatusSuccess,
	)

	var rec BuildRecord
	var started, finished int64
	err := row.Scan(&rec.BuildID, &rec.Builder, &rec.SourceHash, &rec.SphinxVersion, &rec.Status, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoBuilds
	}
	if err != nil {
		return nil, fmt.Errorf("query last build: %w", err)
	}
	rec.StartedAt = time.Unix(started, 0)
	rec.FinishedAt = time.Unix(finished, 0)
	return &rec, nil
}
