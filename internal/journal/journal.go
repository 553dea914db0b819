// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package journal records conversion attempts in a SQLite database so
// failures can be diagnosed after the fact. Only metadata is stored: the
// document bytes and the converted content never leave memory.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/docmorph/pkg/types"
)

// Outcome classifies how a conversion attempt ended.
type Outcome string

const (
	OutcomeSuccess           Outcome = "success"
	OutcomeEmpty             Outcome = "empty"
	OutcomeCredentialMissing Outcome = "credential_missing"
	OutcomeEncodingError     Outcome = "encoding_error"
	OutcomeRemoteError       Outcome = "remote_error"
)

// timeLayout is fixed-width so created_at sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Attempt is one recorded conversion.
type Attempt struct {
	ID        string                 `json:"id" yaml:"id"`
	SessionID string                 `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Format    types.ConversionFormat `json:"format" yaml:"format"`
	MediaType string                 `json:"media_type" yaml:"media_type"`
	Size      int64                  `json:"size" yaml:"size"`
	Outcome   Outcome                `json:"outcome" yaml:"outcome"`
	Cause     string                 `json:"cause,omitempty" yaml:"cause,omitempty"`
	Duration  time.Duration          `json:"duration" yaml:"duration"`
	CreatedAt time.Time              `json:"created_at" yaml:"created_at"`
}

// Store manages the journal database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the journal database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id TEXT PRIMARY KEY,
			session_id TEXT,
			format TEXT NOT NULL,
			media_type TEXT,
			size INTEGER,
			outcome TEXT NOT NULL,
			cause TEXT,
			duration_ms INTEGER,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_created_at ON attempts(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_outcome ON attempts(outcome)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record inserts a, assigning an ID and timestamp when they are unset.
func (s *Store) Record(ctx context.Context, a Attempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (id, session_id, format, media_type, size, outcome, cause, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SessionID, string(a.Format), a.MediaType, a.Size, string(a.Outcome),
		a.Cause, a.Duration.Milliseconds(), a.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting attempt %s: %w", a.ID, err)
	}
	return nil
}

// QueryOptions filters Recent.
type QueryOptions struct {
	// Limit caps the number of rows (default 20).
	Limit int
	// Outcome restricts rows to one outcome when non-empty.
	Outcome Outcome
}

// Recent returns attempts newest first.
func (s *Store) Recent(ctx context.Context, opts QueryOptions) ([]Attempt, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, session_id, format, media_type, size, outcome, cause, duration_ms, created_at FROM attempts`
	var args []any
	if opts.Outcome != "" {
		query += ` WHERE outcome = ?`
		args = append(args, string(opts.Outcome))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var (
			a          Attempt
			sessionID  sql.NullString
			mediaType  sql.NullString
			cause      sql.NullString
			format     string
			outcome    string
			durationMS int64
			createdAt  string
		)
		if err := rows.Scan(&a.ID, &sessionID, &format, &mediaType, &a.Size, &outcome, &cause, &durationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning attempt: %w", err)
		}
		a.SessionID = sessionID.String
		a.MediaType = mediaType.String
		a.Cause = cause.String
		a.Format = types.ConversionFormat(format)
		a.Outcome = Outcome(outcome)
		a.Duration = time.Duration(durationMS) * time.Millisecond
		if t, err := time.Parse(timeLayout, createdAt); err == nil {
			a.CreatedAt = t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Counts returns the number of attempts per outcome.
func (s *Store) Counts(ctx context.Context) (map[Outcome]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, count(*) FROM attempts GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("counting attempts: %w", err)
	}
	defer rows.Close()

	counts := make(map[Outcome]int)
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[Outcome(outcome)] = n
	}
	return counts, rows.Err()
}
