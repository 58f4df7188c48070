// Package store handles SQLite persistence of conversion history.
package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Run is one invocation of the tool.
type Run struct {
	ID        string
	StartedAt time.Time
	Mode      string
	Root      string
	Format    string
	Files     int
	Failed    int
}

// Outcome is one file processed by a run.
type Outcome struct {
	Source       string
	Dest         string
	Encoding     string
	Confidence   float64
	Fallback     bool
	BytesWritten int
	Error        string
}

// EncodingCount is how often an encoding was resolved.
type EncodingCount struct {
	Encoding string
	Files    int
}

// Store wraps SQLite access for run history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			mode TEXT NOT NULL,
			root TEXT NOT NULL,
			format TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			source TEXT NOT NULL,
			dest TEXT NOT NULL,
			encoding TEXT NOT NULL,
			confidence REAL NOT NULL,
			fallback INTEGER NOT NULL,
			bytes_written INTEGER NOT NULL,
			error TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_encoding ON outcomes(encoding);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordRun stores a run and its outcomes, returning the generated run id.
func (s *Store) RecordRun(ctx context.Context, run Run, outcomes []Outcome) (id string, err error) {
	if run.StartedAt.IsZero() {
		return "", errors.New("run start time is required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	id = uuid.NewString()
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, mode, root, format) VALUES (?, ?, ?, ?, ?)`,
		id, run.StartedAt.UTC().Format(time.RFC3339Nano), run.Mode, run.Root, run.Format,
	); err != nil {
		return "", err
	}

	if len(outcomes) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO outcomes (run_id, seq, source, dest, encoding, confidence, fallback, bytes_written, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return "", err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for i, o := range outcomes {
			if _, err = stmt.ExecContext(ctx, id, i, o.Source, o.Dest, o.Encoding, o.Confidence, o.Fallback, o.BytesWritten, o.Error); err != nil {
				return "", err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// ListRuns returns the most recent runs, newest first. last <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, last int) ([]Run, error) {
	limit := last
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT r.id, r.started_at, r.mode, r.root, r.format,
		COUNT(o.seq), COALESCE(SUM(CASE WHEN o.error != '' THEN 1 ELSE 0 END), 0)
		FROM runs r
		LEFT JOIN outcomes o ON o.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedAt string
		if err := rows.Scan(&r.ID, &startedAt, &r.Mode, &r.Root, &r.Format, &r.Files, &r.Failed); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, err
		}
		r.StartedAt = parsed
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// ListOutcomes returns the outcomes of one run in processing order.
func (s *Store) ListOutcomes(ctx context.Context, runID string) ([]Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source, dest, encoding, confidence, fallback, bytes_written, error
		FROM outcomes
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []Outcome
	for rows.Next() {
		var o Outcome
		if err := rows.Scan(&o.Source, &o.Dest, &o.Encoding, &o.Confidence, &o.Fallback, &o.BytesWritten, &o.Error); err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// EncodingCounts tallies resolved encodings over the most recent runs.
func (s *Store) EncodingCounts(ctx context.Context, last int) ([]EncodingCount, error) {
	limit := last
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `WITH recent_runs AS (
		SELECT id FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	)
	SELECT o.encoding, COUNT(*) AS files
	FROM outcomes o
	JOIN recent_runs r ON r.id = o.run_id
	WHERE o.error = '' AND o.encoding != ''
	GROUP BY o.encoding
	ORDER BY files DESC, o.encoding ASC`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []EncodingCount
	for rows.Next() {
		var c EncodingCount
		if err := rows.Scan(&c.Encoding, &c.Files); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
