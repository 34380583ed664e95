package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/odakahirokazu/ANLNext/internal/chain"
	"github.com/odakahirokazu/ANLNext/internal/chaindef"
	"github.com/odakahirokazu/ANLNext/internal/engine"
	"github.com/odakahirokazu/ANLNext/internal/module"
	"github.com/odakahirokazu/ANLNext/internal/modules"
	"github.com/odakahirokazu/ANLNext/internal/param"
	"github.com/odakahirokazu/ANLNext/internal/store"
)

// epoch is the start time recorded for every scenario run.
var epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Result is the outcome of one scenario run.
type Result struct {
	ScenarioName string
	RunID        string

	// Pass is true if every expectation held.
	Pass   bool
	Errors []string

	Status       string
	FailedPhase  string
	FailedStatus string
	// RunError is the error the driver returned, if any.
	RunError string

	// Counters are read back from the run journal.
	Counters engine.Counters
	Flags    map[string]int64
	// Parameters maps module id to parameter name to value, after the run.
	Parameters map[string]map[string]any
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

type config struct {
	logger  *slog.Logger
	catalog *module.Catalog
}

// Option configures Run.
type Option func(*config)

// WithLogger sets the logger given to the engine and builder. Runs are
// silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithCatalog replaces the built-in module catalog.
func WithCatalog(cat *module.Catalog) Option {
	return func(c *config) { c.catalog = cat }
}

// Run executes a scenario on the reference engine and checks its
// expectations.
//
// Each scenario runs with a fixed run id and records itself in a fresh
// in-memory journal, so results are reproducible. The returned error
// reports a scenario that could not be set up; a run that fails or misses
// an expectation is reported through Result.
func Run(ctx context.Context, sc *Scenario, opts ...Option) (*Result, error) {
	cfg := config{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		catalog: modules.Catalog(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	def, err := chaindef.FromTree(sc.Chain)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: chain: %w", sc.Name, err)
	}
	numLoop := def.NumLoop
	if sc.NumLoop != nil {
		numLoop = sc.NumLoop
	}
	if numLoop == nil {
		return nil, fmt.Errorf("scenario %s: num_loop is required", sc.Name)
	}

	journal, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer journal.Close()

	runID := "scenario-" + sc.Name
	eng := engine.New(
		engine.WithLogger(cfg.logger),
		engine.WithParallel(max(sc.Parallel, 1)),
		engine.WithCatalog(cfg.catalog),
		engine.WithIDGenerator(engine.NewFixedGenerator(runID)),
	)
	var chainOpts []chain.Option
	chainOpts = append(chainOpts, chain.WithLogger(cfg.logger))
	if def.DisplayPeriod != nil {
		chainOpts = append(chainOpts, chain.WithDisplayPeriod(*def.DisplayPeriod))
	}
	b := chain.New(eng, chainOpts...)
	if err := chaindef.Apply(def, b, cfg.catalog); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	err = journal.BeginRun(ctx, store.Run{
		ID:        runID,
		ChainFile: "scenario:" + sc.Name,
		NumLoop:   *numLoop,
		Parallel:  eng.Parallel(),
		StartedAt: epoch,
	})
	if err != nil {
		return nil, err
	}
	b.Modify(func(b *chain.Builder) error {
		return journal.WriteParameters(ctx, runID, b.Modules())
	})

	result := &Result{ScenarioName: sc.Name, RunID: runID, Pass: true, Errors: []string{}, Status: StatusOK}
	if runErr := b.Run(ctx, *numLoop); runErr != nil {
		result.Status = StatusFailed
		result.RunError = runErr.Error()
		if phase, st, ok := chain.FailedPhase(runErr); ok {
			result.FailedPhase = phaseName(phase)
			result.FailedStatus = st.String()
		} else {
			result.FailedPhase = phaseName(chain.PhaseLoadParameters)
		}
	}

	if err := journal.WriteCounters(ctx, runID, eng.Counters()); err != nil {
		return nil, err
	}
	if err := journal.FinishRun(ctx, runID, result.Status, epoch); err != nil {
		return nil, err
	}
	if result.Counters, err = journal.ReadCounters(ctx, runID); err != nil {
		return nil, err
	}
	result.Flags = eng.FlagCounts()
	if result.Parameters, err = collectParameters(b.Modules()); err != nil {
		return nil, err
	}

	check(sc, result)
	return result, nil
}

func phaseName(p chain.Phase) string {
	return strings.TrimSuffix(p.String(), "()")
}

func collectParameters(mods []module.Module) (map[string]map[string]any, error) {
	out := make(map[string]map[string]any, len(mods))
	for _, m := range mods {
		values := make(map[string]any)
		for _, p := range m.Parameters().Parameters() {
			v, err := param.GetValue(p)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", m.ModuleID(), p.Name(), err)
			}
			values[p.Name()] = v
		}
		out[m.ModuleID()] = values
	}
	return out, nil
}

// check compares the run against the scenario's expectations.
func check(sc *Scenario, r *Result) {
	exp := sc.Expect
	if r.Status != exp.Status {
		if r.RunError != "" {
			r.AddError("status: got %q, want %q (%s)", r.Status, exp.Status, r.RunError)
		} else {
			r.AddError("status: got %q, want %q", r.Status, exp.Status)
		}
	}
	if exp.FailedPhase != "" && r.FailedPhase != exp.FailedPhase {
		r.AddError("failed_phase: got %q, want %q", r.FailedPhase, exp.FailedPhase)
	}
	if exp.FailedStatus != "" && r.FailedStatus != exp.FailedStatus {
		r.AddError("failed_status: got %q, want %q", r.FailedStatus, exp.FailedStatus)
	}

	for _, id := range slices.Sorted(maps.Keys(exp.Parameters)) {
		got, ok := r.Parameters[id]
		if !ok {
			r.AddError("parameters: no module %q", id)
			continue
		}
		for _, name := range slices.Sorted(maps.Keys(exp.Parameters[id])) {
			checkParameter(r, id, name, got, exp.Parameters[id][name])
		}
	}

	if exp.Counters != nil {
		checkCounters(r, exp.Counters)
	}

	for _, flag := range slices.Sorted(maps.Keys(exp.Flags)) {
		got, ok := r.Flags[flag]
		if !ok {
			r.AddError("flags: %q is not defined", flag)
			continue
		}
		if got != exp.Flags[flag] {
			r.AddError("flags.%s: got %d, want %d", flag, got, exp.Flags[flag])
		}
	}
}

// checkParameter compares values by their canonical JSON, so a YAML list
// matches a typed vector with the same elements.
func checkParameter(r *Result, id, name string, got map[string]any, want any) {
	v, ok := got[name]
	if !ok {
		r.AddError("parameters.%s: no parameter %q", id, name)
		return
	}
	gotJSON, err := param.MarshalCanonical(v)
	if err != nil {
		r.AddError("parameters.%s.%s: %v", id, name, err)
		return
	}
	wantJSON, err := param.MarshalCanonical(want)
	if err != nil {
		r.AddError("parameters.%s.%s: expected value: %v", id, name, err)
		return
	}
	if string(gotJSON) != string(wantJSON) {
		r.AddError("parameters.%s.%s: got %s, want %s", id, name, gotJSON, wantJSON)
	}
}

func checkCounters(r *Result, exp *ExpectCounters) {
	checkCount(r, "counters.put", r.Counters.Put, exp.Put)
	checkCount(r, "counters.get", r.Counters.Get, exp.Get)

	for _, id := range slices.Sorted(maps.Keys(exp.Modules)) {
		i := slices.IndexFunc(r.Counters.Modules, func(c engine.ModuleCounter) bool { return c.ModuleID == id })
		if i < 0 {
			r.AddError("counters.modules: no module %q", id)
			continue
		}
		got, want := r.Counters.Modules[i], exp.Modules[id]
		prefix := "counters.modules." + id
		checkCount(r, prefix+".entry", got.Entry, want.Entry)
		checkCount(r, prefix+".ok", got.OK, want.OK)
		checkCount(r, prefix+".error", got.Error, want.Error)
		checkCount(r, prefix+".skip", got.Skip, want.Skip)
		checkCount(r, prefix+".quit", got.Quit, want.Quit)
	}
}

func checkCount(r *Result, what string, got int64, want *int64) {
	if want != nil && got != *want {
		r.AddError("%s: got %d, want %d", what, got, *want)
	}
}
