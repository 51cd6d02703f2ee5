/*
Copyright 2026 Prameya LLC.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package runlog persists each run's terminal RunReport to a small
// Postgres table, over jmoiron/sqlx and jackc/pgx/v5's stdlib driver.
// This is pure plumbing: the core never reads it back, and a write
// failure here is logged and returned to the caller, never fatal.
package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-logr/logr"
	"github.com/jmoiron/sqlx"

	"github.com/prameyallc/congress-ingest/pkg/runner"
)

// Entry is one row of the run_log table.
type Entry struct {
	ID         int64     `db:"id"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
	Mode       string    `db:"mode"`
	Terminal   string    `db:"terminal"`
	Totals     []byte    `db:"totals"` // JSON-encoded runner.Counters
	ByFamily   []byte    `db:"by_family"`
}

// Store persists run reports. A nil *Store is valid and every method on
// it is a no-op, so callers that run without runlog configured (e.g.
// cmd/ingest with no DSN set) don't need a separate code path.
type Store struct {
	db  *sqlx.DB
	log logr.Logger
}

// New wraps db for run-history persistence.
func New(db *sqlx.DB, log logr.Logger) *Store {
	return &Store{db: db, log: log}
}

// Record inserts one terminal report. An insert failure is logged and
// returned to the caller; the run driver never treats it as fatal.
func (s *Store) Record(ctx context.Context, mode string, startedAt, finishedAt time.Time, report runner.RunReport) error {
	if s == nil || s.db == nil {
		return nil
	}

	totals, err := json.Marshal(report.Totals)
	if err != nil {
		return err
	}
	byFamily, err := json.Marshal(report.ByFamily)
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO run_log (started_at, finished_at, mode, terminal, totals, by_family)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(ctx, q, startedAt, finishedAt, mode, string(report.Terminal), totals, byFamily)
	if err != nil {
		s.log.Error(err, "failed to persist run log entry", "mode", mode, "terminal", report.Terminal)
		return err
	}
	return nil
}

// Last returns the most recently recorded entry, whatever its terminal
// state, or (Entry{}, false) if the table is empty (used by
// cmd/healthprobe to report the last recorded run).
func (s *Store) Last(ctx context.Context) (Entry, bool, error) {
	if s == nil || s.db == nil {
		return Entry{}, false, nil
	}

	var e Entry
	const q = `SELECT id, started_at, finished_at, mode, terminal, totals, by_family FROM run_log ORDER BY id DESC LIMIT 1`
	if err := s.db.GetContext(ctx, &e, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	return e, true, nil
}
