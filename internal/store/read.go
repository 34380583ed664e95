package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/odakahirokazu/ANLNext/internal/engine"
)

const runColumns = `id, chain_file, num_loop, parallel, status, put, get, started_at, finished_at`

// ReadRun returns one run.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run.
//
// Returns an empty slice (not nil) if the journal is empty.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadParameters returns the recorded parameters of a run in the order
// they were written.
func (s *Store) ReadParameters(ctx context.Context, runID string) ([]Parameter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT module_id, name, type_name, value_json
		FROM run_parameters
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query parameters: %w", err)
	}
	defer rows.Close()

	params := []Parameter{}
	for rows.Next() {
		var p Parameter
		if err := rows.Scan(&p.ModuleID, &p.Name, &p.TypeName, &p.ValueJSON); err != nil {
			return nil, fmt.Errorf("scan parameter: %w", err)
		}
		params = append(params, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate parameters: %w", err)
	}
	return params, nil
}

// ReadCounters returns the event totals and module counters of a run.
// Returns sql.ErrNoRows if the run is not found.
func (s *Store) ReadCounters(ctx context.Context, runID string) (engine.Counters, error) {
	c := engine.Counters{Modules: []engine.ModuleCounter{}}
	err := s.db.QueryRowContext(ctx, `SELECT put, get FROM runs WHERE id = ?`, runID).Scan(&c.Put, &c.Get)
	if err != nil {
		return engine.Counters{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT module_id, entry, ok, error, skip, quit
		FROM run_counters
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return engine.Counters{}, fmt.Errorf("query counters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var mc engine.ModuleCounter
		if err := rows.Scan(&mc.ModuleID, &mc.Entry, &mc.OK, &mc.Error, &mc.Skip, &mc.Quit); err != nil {
			return engine.Counters{}, fmt.Errorf("scan counter: %w", err)
		}
		c.Modules = append(c.Modules, mc)
	}
	if err := rows.Err(); err != nil {
		return engine.Counters{}, fmt.Errorf("iterate counters: %w", err)
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		r        Run
		started  string
		finished sql.NullString
	)
	if err := row.Scan(&r.ID, &r.ChainFile, &r.NumLoop, &r.Parallel, &r.Status, &r.Put, &r.Get, &started, &finished); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	var err error
	if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("run %s: started_at: %w", r.ID, err)
	}
	if finished.Valid {
		if r.FinishedAt, err = time.Parse(timeLayout, finished.String); err != nil {
			return Run{}, fmt.Errorf("run %s: finished_at: %w", r.ID, err)
		}
	}
	return r, nil
}
