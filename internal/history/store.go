// Package history persists completed analysis runs to a local SQLite
// database.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/medcoast/ges-cli/internal/ges"
)

// Run is one recorded analysis run.
type Run struct {
	ID        string     `json:"id"`
	Params    ges.Params `json:"params"`
	Counts    []Count    `json:"counts"`
	Total     int64      `json:"total"`
	CreatedAt time.Time  `json:"created_at"`
}

// Count is one class count of a recorded run.
type Count struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// CountsOf flattens a classification for storage.
func CountsOf(c ges.Classification) []Count {
	out := make([]Count, len(c))
	for i, cc := range c {
		out[i] = Count{Label: cc.Class.Label, Count: cc.Count}
	}
	return out
}

// Store records runs in SQLite via modernc.org/sqlite.
type Store struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "history: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "history: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	country    TEXT NOT NULL,
	start_year INTEGER NOT NULL,
	end_year   INTEGER NOT NULL,
	buffer_km  INTEGER NOT NULL,
	counts     TEXT NOT NULL,
	total      INTEGER NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_country ON runs(country);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "history: migrate")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save records a completed run and returns it with its assigned id.
func (s *Store) Save(ctx context.Context, params ges.Params, counts ges.Classification) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Params:    params,
		Counts:    CountsOf(counts),
		Total:     counts.Total(),
		CreatedAt: time.Now().UTC(),
	}

	countsJSON, err := json.Marshal(run.Counts)
	if err != nil {
		return nil, eris.Wrap(err, "history: marshal counts")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, country, start_year, end_year, buffer_km, counts, total, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, params.Country, params.StartYear, params.EndYear, params.BufferKM,
		string(countsJSON), run.Total, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "history: insert run")
	}
	return run, nil
}

// Filter narrows List results.
type Filter struct {
	Country string
	Limit   int
}

// List returns recorded runs, newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Run, error) {
	query := `SELECT id, country, start_year, end_year, buffer_km, counts, total, created_at
	          FROM runs WHERE 1=1`
	var args []any

	if filter.Country != "" {
		query += ` AND country = ?`
		args = append(args, filter.Country)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "history: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "history: list runs iterate")
}

// Get returns one recorded run by id.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, country, start_year, end_year, buffer_km, counts, total, created_at
		 FROM runs WHERE id = ?`,
		id,
	)
	return scanRun(row)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var r Run
	var countsJSON string

	err := row.Scan(&r.ID, &r.Params.Country, &r.Params.StartYear, &r.Params.EndYear,
		&r.Params.BufferKM, &countsJSON, &r.Total, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("history: run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "history: scan run")
	}

	if err := json.Unmarshal([]byte(countsJSON), &r.Counts); err != nil {
		return nil, eris.Wrap(err, "history: unmarshal counts")
	}
	return &r, nil
}
