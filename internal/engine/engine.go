package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/odakahirokazu/ANLNext/internal/module"
	"github.com/odakahirokazu/ANLNext/internal/status"
)

type engineState int

const (
	stateEmpty engineState = iota
	stateModulesSet
	stateDefined
	statePreInitialized
	stateInitialized
	stateAnalyzed
	stateFinalized
)

func (s engineState) String() string {
	return [...]string{"Empty", "ModulesSet", "Defined", "PreInitialized", "Initialized", "Analyzed", "Finalized"}[s]
}

// Engine runs module callbacks over one or more replicas of a chain.
//
// Replica 0 is the module list passed to SetModules. With WithParallel(n),
// PreInitialize ends by copying the chain into replicas 1..n-1; those
// replicas take part in Initialize, Analyze and Finalize.
//
// Thread-safety: phase methods must be called from one goroutine. During
// Analyze each replica runs in its own goroutine and touches only its own
// modules, flags and counters.
type Engine struct {
	logger   *slog.Logger
	tracer   trace.Tracer
	catalog  *module.Catalog
	ids      IDGenerator
	parallel int

	runID         string
	displayPeriod int64
	state         engineState
	replicas      []*replica
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger for phase and progress messages.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithTracer sets the tracer used for phase spans.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) { e.tracer = t }
}

// WithParallel runs the event loop on n replicas of the chain. Values
// below 1 are treated as 1.
func WithParallel(n int) EngineOption {
	return func(e *Engine) { e.parallel = max(n, 1) }
}

// WithCatalog supplies factories for replicating modules that do not
// implement module.Cloner.
func WithCatalog(c *module.Catalog) EngineOption {
	return func(e *Engine) { e.catalog = c }
}

// WithIDGenerator sets the run id source.
func WithIDGenerator(g IDGenerator) EngineOption {
	return func(e *Engine) { e.ids = g }
}

// New creates an engine.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		logger:        slog.Default(),
		tracer:        noop.NewTracerProvider().Tracer("anlnext"),
		ids:           UUIDv7Generator{},
		parallel:      1,
		displayPeriod: 10000,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunID identifies the current run. It is assigned by SetModules.
func (e *Engine) RunID() string {
	return e.runID
}

// Parallel returns the number of replicas the engine runs.
func (e *Engine) Parallel() int {
	return e.parallel
}

// SetModules installs the chain and assigns a new run id.
func (e *Engine) SetModules(mods []module.Module) error {
	if e.state != stateEmpty {
		return NewPhaseOrderError("SetModules", e.state)
	}
	e.replicas = []*replica{newReplica(0, slices.Clone(mods), module.NewFlags())}
	e.runID = e.ids.Generate()
	e.state = stateModulesSet
	e.logger.Debug("modules installed", "run_id", e.runID, "modules", len(mods))
	return nil
}

// SetDisplayPeriod sets how many events pass between progress messages.
func (e *Engine) SetDisplayPeriod(n int64) {
	e.displayPeriod = n
}

// Modules returns the modules of replica 0.
func (e *Engine) Modules() []module.Module {
	if len(e.replicas) == 0 {
		return nil
	}
	return slices.Clone(e.replicas[0].modules)
}

// ParallelModule returns the module with id in replica index.
func (e *Engine) ParallelModule(index int, id string) (module.Module, bool) {
	if index < 0 || index >= len(e.replicas) {
		return nil, false
	}
	for _, m := range e.replicas[index].modules {
		if m.ModuleID() == id {
			return m, true
		}
	}
	return nil, false
}

// Define calls Define on every module, including switched-off ones, so
// that all parameters and event flags exist before configuration.
func (e *Engine) Define(ctx context.Context) (status.Status, error) {
	if e.state != stateModulesSet {
		return status.Quit, NewPhaseOrderError("Define", e.state)
	}
	st := e.runPhase(ctx, "define", module.Module.Define, true)
	e.state = stateDefined
	return st, nil
}

// PreInitialize calls PreInitialize on replica 0 and then builds the
// parallel replicas, which start from replica 0's state at that point.
func (e *Engine) PreInitialize(ctx context.Context) (status.Status, error) {
	if e.state != stateDefined {
		return status.Quit, NewPhaseOrderError("PreInitialize", e.state)
	}
	st := e.runPhase(ctx, "pre_initialize", module.Module.PreInitialize, false)
	e.state = statePreInitialized
	if st != status.OK {
		return st, nil
	}
	if err := e.replicate(); err != nil {
		return status.Quit, err
	}
	return status.OK, nil
}

// Initialize calls Initialize on every replica.
func (e *Engine) Initialize(ctx context.Context) (status.Status, error) {
	if e.state != statePreInitialized {
		return status.Quit, NewPhaseOrderError("Initialize", e.state)
	}
	st := e.runPhase(ctx, "initialize", module.Module.Initialize, false)
	e.state = stateInitialized
	return st, nil
}

// Finalize calls Finalize on every module of every replica, even after a
// failure, and returns the first non-OK status.
func (e *Engine) Finalize(ctx context.Context) (status.Status, error) {
	if e.state < stateInitialized || e.state == stateFinalized {
		return status.Quit, NewPhaseOrderError("Finalize", e.state)
	}
	ctx, span := e.startSpan(ctx, "finalize")
	defer span.End()

	result := status.OK
	for _, r := range e.replicas {
		rctx := r.context(ctx)
		for _, m := range r.modules {
			if !m.IsOn() {
				continue
			}
			if st := m.Finalize(rctx); st != status.OK {
				e.phaseFailed(span, "finalize", r, m, st)
				if result == status.OK {
					result = st
				}
			}
		}
	}
	e.state = stateFinalized
	return result, nil
}

func (e *Engine) replicate() error {
	base := e.replicas[0]
	for i := 1; i < e.parallel; i++ {
		mods := make([]module.Module, len(base.modules))
		for j, m := range base.modules {
			cp, err := module.Replicate(m, e.catalog)
			if err != nil {
				return NewReplicationError(m.ModuleID(), i, err)
			}
			mods[j] = cp
		}
		flags := module.NewFlags()
		for _, k := range base.flags.Keys() {
			flags.Define(k)
		}
		e.replicas = append(e.replicas, newReplica(i, mods, flags))
	}
	if e.parallel > 1 {
		e.logger.Debug("replicated chain", "run_id", e.runID, "replicas", e.parallel)
	}
	return nil
}

// runPhase calls fn on each module of each replica in chain order and stops
// at the first non-OK status.
func (e *Engine) runPhase(ctx context.Context, name string, fn func(module.Module, context.Context) status.Status, includeOff bool) status.Status {
	ctx, span := e.startSpan(ctx, name)
	defer span.End()

	for _, r := range e.replicas {
		rctx := r.context(ctx)
		for _, m := range r.modules {
			if !includeOff && !m.IsOn() {
				continue
			}
			if st := fn(m, rctx); st != status.OK {
				e.phaseFailed(span, name, r, m, st)
				return st
			}
		}
	}
	return status.OK
}

func (e *Engine) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "anlnext."+name, trace.WithAttributes(
		attribute.String("run_id", e.runID),
		attribute.Int("replicas", len(e.replicas)),
	))
}

func (e *Engine) phaseFailed(span trace.Span, phase string, r *replica, m module.Module, st status.Status) {
	span.SetStatus(codes.Error, st.String())
	span.SetAttributes(attribute.String("module", m.ModuleID()))
	e.logger.Error(fmt.Sprintf("%s returned %s", phase, st),
		"module", m.ModuleID(), "replica", r.index, "run_id", e.runID)
}
