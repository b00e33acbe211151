package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists the run journal to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			duration_ms INTEGER,
			cache_key   TEXT,
			label       TEXT,
			trigger_by  TEXT,
			requested   INTEGER,
			succeeded   INTEGER,
			failed      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS fetch_failures (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id  TEXT NOT NULL REFERENCES runs(id),
			symbol  TEXT NOT NULL,
			reason  TEXT,
			message TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_failures_run ON fetch_failures(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores a run and its per-symbol failures in one transaction.
// An empty ID is filled with a new UUID.
func (r *SQLiteRecorder) RecordRun(run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	started := run.StartedAt
	if started.IsZero() {
		started = time.Now()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO runs
		(id, started_at, duration_ms, cache_key, label, trigger_by, requested, succeeded, failed)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		run.ID, started.Unix(), run.Duration.Milliseconds(), run.Key, run.Label, run.Trigger,
		run.Requested, run.Succeeded, len(run.Failures),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	for _, f := range run.Failures {
		if _, err := tx.Exec(`INSERT INTO fetch_failures (run_id, symbol, reason, message) VALUES (?,?,?,?)`,
			run.ID, f.Symbol, string(f.Reason), f.Message,
		); err != nil {
			return fmt.Errorf("insert failure: %w", err)
		}
	}
	return tx.Commit()
}

// RecentRuns returns the latest runs, newest first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(`SELECT id, started_at, duration_ms, cache_key, label, trigger_by, requested, succeeded, failed
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var started, durMS int64
		if err := rows.Scan(&s.ID, &started, &durMS, &s.Key, &s.Label, &s.Trigger, &s.Requested, &s.Succeeded, &s.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.StartedAt = time.Unix(started, 0)
		s.Duration = time.Duration(durMS) * time.Millisecond
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
