package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kktt667/Pair-Finder/internal/logger"
)

// SQLiteRecorder journals scan runs to a SQLite database.
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

	logger.Infof("[recorder] sqlite opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
			run_id        TEXT PRIMARY KEY,
			triggered_by  TEXT,
			started_at    INTEGER NOT NULL,
			finished_at   INTEGER NOT NULL,
			interval      TEXT,
			lookback_days INTEGER,
			symbols       INTEGER,
			accepted      INTEGER,
			rejected      INTEGER,
			failed        INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_runs_started ON scan_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS scan_failures (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES scan_runs(run_id),
			symbol TEXT NOT NULL,
			error  TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_failures_run ON scan_failures(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordScan stores a run and its failures in one transaction.
func (r *SQLiteRecorder) RecordScan(run *ScanRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO scan_runs
		(run_id, triggered_by, started_at, finished_at, interval, lookback_days, symbols, accepted, rejected, failed)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		run.RunID, run.Trigger, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(),
		run.Interval, run.LookbackDays, run.Symbols, run.Accepted, run.Rejected, len(run.Failures),
	)
	if err != nil {
		return fmt.Errorf("insert scan run: %w", err)
	}
	for _, f := range run.Failures {
		if _, err := tx.Exec(`INSERT INTO scan_failures (run_id, symbol, error) VALUES (?,?,?)`,
			run.RunID, f.Symbol, f.Error); err != nil {
			return fmt.Errorf("insert scan failure: %w", err)
		}
	}
	return tx.Commit()
}

// RecentScans returns the latest runs, newest first. Failures are not loaded.
func (r *SQLiteRecorder) RecentScans(limit int) ([]ScanRun, error) {
	if limit <= 0 {
		limit = 20
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT run_id, triggered_by, started_at, finished_at, interval,
		lookback_days, symbols, accepted, rejected
		FROM scan_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []ScanRun
	for rows.Next() {
		var (
			run               ScanRun
			started, finished int64
		)
		if err := rows.Scan(&run.RunID, &run.Trigger, &started, &finished, &run.Interval,
			&run.LookbackDays, &run.Symbols, &run.Accepted, &run.Rejected); err != nil {
			return nil, err
		}
		run.StartedAt = time.UnixMilli(started)
		run.FinishedAt = time.UnixMilli(finished)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// FailureCount returns how many failures were journaled for a run.
func (r *SQLiteRecorder) FailureCount(runID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM scan_failures WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	logger.Infof("[recorder] closing sqlite")
	return r.db.Close()
}
