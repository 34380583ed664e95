package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/odakahirokazu/ANLNext/internal/engine"
	"github.com/odakahirokazu/ANLNext/internal/module"
	"github.com/odakahirokazu/ANLNext/internal/param"
)

// StatusRunning is the status of a run that has begun but not finished.
const StatusRunning = "running"

// Run is one journal entry.
type Run struct {
	ID        string
	ChainFile string
	NumLoop   int64
	Parallel  int
	Status    string
	Put       int64
	Get       int64
	StartedAt time.Time
	// FinishedAt is zero while the run is in progress.
	FinishedAt time.Time
}

// Parameter is the recorded value of one module parameter.
type Parameter struct {
	ModuleID string
	Name     string
	TypeName string
	// ValueJSON is the canonical JSON of the parameter's host value.
	ValueJSON string
}

// BeginRun records the start of a run with status StatusRunning.
// Uses ON CONFLICT(id) DO NOTHING; beginning the same run twice keeps the
// first record.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	parallel := run.Parallel
	if parallel < 1 {
		parallel = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, chain_file, num_loop, parallel, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.ChainFile,
		run.NumLoop,
		parallel,
		StatusRunning,
		formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// FinishRun sets the final status of a run. Returns an error wrapping
// sql.ErrNoRows if the run was never begun.
func (s *Store) FinishRun(ctx context.Context, id, status string, finishedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, finished_at = ? WHERE id = ?
	`, status, formatTime(finishedAt), id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return requireRow(res, "finish run", id)
}

// WriteParameters records every parameter of mods, in chain order and
// declaration order. Hidden parameters are recorded too.
func (s *Store) WriteParameters(ctx context.Context, runID string, mods []module.Module) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write parameters: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	seq := 0
	for _, m := range mods {
		for _, p := range m.Parameters().Parameters() {
			v, err := param.GetValue(p)
			if err != nil {
				return fmt.Errorf("write parameters: %s.%s: %w", m.ModuleID(), p.Name(), err)
			}
			js, err := param.MarshalCanonical(v)
			if err != nil {
				return fmt.Errorf("write parameters: %s.%s: %w", m.ModuleID(), p.Name(), err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO run_parameters (run_id, seq, module_id, name, type_name, value_json)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT DO NOTHING
			`, runID, seq, m.ModuleID(), p.Name(), p.TypeName(), string(js))
			if err != nil {
				return fmt.Errorf("write parameters: %s.%s: %w", m.ModuleID(), p.Name(), err)
			}
			seq++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write parameters: commit: %w", err)
	}
	return nil
}

// WriteCounters records the event totals of a run and its per-module
// counters. Counter rows already present are kept.
func (s *Store) WriteCounters(ctx context.Context, runID string, c engine.Counters) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write counters: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE runs SET put = ?, get = ? WHERE id = ?`, c.Put, c.Get, runID)
	if err != nil {
		return fmt.Errorf("write counters: %w", err)
	}
	if err := requireRow(res, "write counters", runID); err != nil {
		return err
	}

	for i, mc := range c.Modules {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_counters (run_id, seq, module_id, entry, ok, error, skip, quit)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, runID, i, mc.ModuleID, mc.Entry, mc.OK, mc.Error, mc.Skip, mc.Quit)
		if err != nil {
			return fmt.Errorf("write counters: %s: %w", mc.ModuleID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write counters: commit: %w", err)
	}
	return nil
}

func requireRow(res sql.Result, op, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: run %s: %w", op, id, sql.ErrNoRows)
	}
	return nil
}

// timeLayout is fixed-width so timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
