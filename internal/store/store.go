// Package store provides SQLite-backed run history persistence.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rustproof/rustproof/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	crate_dir   TEXT NOT NULL,
	backend     TEXT NOT NULL,
	status      TEXT NOT NULL,
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS run_entries (
	run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	display_name TEXT NOT NULL,
	status       TEXT NOT NULL,
	duration_ms  INTEGER NOT NULL,
	stats        TEXT NOT NULL,
	PRIMARY KEY (run_id, display_name)
);
`

// Run is one persisted verification run.
type Run struct {
	ID         string
	CrateDir   string
	Backend    string
	Status     domain.Status
	Passed     int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store records completed runs and their per-entry outcomes.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun persists a run and all its outcomes in one transaction.
func (s *Store) SaveRun(run *Run, outcomes []domain.Outcome) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, crate_dir, backend, status, passed, failed, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, run.CrateDir, run.Backend, string(run.Status),
		run.Passed, run.Failed, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for _, o := range outcomes {
		statsJSON, err := json.Marshal(o.Stats)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`
			INSERT INTO run_entries (run_id, display_name, status, duration_ms, stats)
			VALUES (?, ?, ?, ?, ?)
		`,
			run.ID, o.Entry.DisplayName, string(o.Status),
			o.Duration.Milliseconds(), string(statsJSON),
		)
		if err != nil {
			return fmt.Errorf("inserting entry %s: %w", o.Entry.DisplayName, err)
		}
	}
	return tx.Commit()
}

// RecentRuns lists the most recent runs, newest first.
func (s *Store) RecentRuns(limit int) ([]*Run, error) {
	rows, err := s.db.Query(`
		SELECT id, crate_dir, backend, status, passed, failed, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		var status string
		if err := rows.Scan(&r.ID, &r.CrateDir, &r.Backend, &status, &r.Passed, &r.Failed, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		r.Status = domain.Status(status)
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// RunEntries lists the per-entry outcomes recorded for a run.
func (s *Store) RunEntries(runID string) ([]domain.Outcome, error) {
	rows, err := s.db.Query(`
		SELECT display_name, status, duration_ms, stats
		FROM run_entries WHERE run_id = ? ORDER BY display_name
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []domain.Outcome
	for rows.Next() {
		var o domain.Outcome
		var status, statsJSON string
		var durationMS int64
		if err := rows.Scan(&o.Entry.DisplayName, &status, &durationMS, &statsJSON); err != nil {
			return nil, err
		}
		o.Status = domain.Status(status)
		o.Duration = time.Duration(durationMS) * time.Millisecond
		if err := json.Unmarshal([]byte(statsJSON), &o.Stats); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}
