package chain

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/odakahirokazu/ANLNext/internal/status"
)

// DefaultDisplayPeriod is the progress period for unbounded loops.
const DefaultDisplayPeriod = 10000

// State is the lifecycle state of a Builder. States only move forward.
type State int

const (
	StateBuilding State = iota
	StateDefined
	StatePreInitialized
	StateInitialized
	StateAnalyzing
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "Building"
	case StateDefined:
		return "Defined"
	case StatePreInitialized:
		return "PreInitialized"
	case StateInitialized:
		return "Initialized"
	case StateAnalyzing:
		return "Analyzing"
	case StateFinalized:
		return "Finalized"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Phase names one step of Run.
type Phase int

const (
	PhaseDefine Phase = iota + 1
	PhaseLoadParameters
	PhasePreInitialize
	PhaseModify
	PhaseInitialize
	PhaseAnalyze
	PhaseFinalize
)

func (p Phase) String() string {
	switch p {
	case PhaseDefine:
		return "Define()"
	case PhaseLoadParameters:
		return "LoadAllParameters()"
	case PhasePreInitialize:
		return "PreInitialize()"
	case PhaseModify:
		return "Modify()"
	case PhaseInitialize:
		return "Initialize()"
	case PhaseAnalyze:
		return "Analyze()"
	case PhaseFinalize:
		return "Finalize()"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// ProposedDisplayPeriod derives a progress period from the loop count:
// 10000 for negative (unbounded) counts, 1 below 100 events, and
// 10^floor(log10(n) - 1.5) otherwise.
func ProposedDisplayPeriod(numLoop int64) int64 {
	switch {
	case numLoop < 0:
		return DefaultDisplayPeriod
	case numLoop < 100:
		return 1
	}
	exp := math.Floor(math.Log10(float64(numLoop)) - 1.5)
	return int64(math.Pow(10, exp))
}

// Run drives the chain through its lifecycle on the builder's engine.
// numLoop bounds the event loop; a negative value runs until a module quits.
//
// Failures before Analyze abort the run. Once Initialize has been invoked,
// Finalize is invoked exactly once, whatever Initialize or Analyze returned.
// Errors are returned as *Error with ErrCodeLifecyclePhaseFailure, or wrap
// the parameter error from LoadAllParameters.
func (b *Builder) Run(ctx context.Context, numLoop int64) error {
	if b.state != StateBuilding {
		return &Error{
			Code:    ErrCodeLifecyclePhaseFailure,
			Message: fmt.Sprintf("chain already run (state %s)", b.state),
		}
	}

	period := b.displayPeriod
	if period <= 0 {
		period = ProposedDisplayPeriod(numLoop)
	}

	if err := b.engine.SetModules(b.Modules()); err != nil {
		return b.fail(newPhaseError(PhaseDefine, status.Quit, err))
	}
	st, err := b.engine.Define(ctx)
	b.state = StateDefined
	if err := b.check(PhaseDefine, st, err); err != nil {
		return err
	}

	if err := b.LoadAllParameters(); err != nil {
		b.logger.Error("loading parameters failed", "error", err)
		return err
	}

	st, err = b.engine.PreInitialize(ctx)
	b.state = StatePreInitialized
	if err := b.check(PhasePreInitialize, st, err); err != nil {
		return err
	}

	for _, fn := range b.modifiers {
		if err := fn(b); err != nil {
			return b.fail(newPhaseError(PhaseModify, status.Quit, err))
		}
	}

	st, err = b.engine.Initialize(ctx)
	b.state = StateInitialized
	if failure := b.check(PhaseInitialize, st, err); failure != nil {
		b.finalize(ctx)
		return failure
	}

	b.engine.SetDisplayPeriod(period)
	b.state = StateAnalyzing
	start := time.Now()
	b.logger.Info("<Begin Analysis>", "num_loop", numLoop, "display_period", period)
	st, err = b.engine.Analyze(ctx, numLoop, b.console)
	b.logger.Info("<End Analysis>", "elapsed", time.Since(start).Round(time.Millisecond))
	analyzeErr := b.check(PhaseAnalyze, st, err)

	if finErr := b.finalize(ctx); finErr != nil && analyzeErr == nil {
		return finErr
	}
	return analyzeErr
}

func (b *Builder) finalize(ctx context.Context) error {
	st, err := b.engine.Finalize(ctx)
	b.state = StateFinalized
	return b.check(PhaseFinalize, st, err)
}

// check turns a non-OK status or engine error into a logged phase failure.
// SKIP counts as failure in every phase; inside the event loop it is
// consumed by the engine and never reaches the driver.
func (b *Builder) check(p Phase, st status.Status, err error) error {
	if err == nil && st == status.OK {
		return nil
	}
	return b.fail(newPhaseError(p, st, err))
}

func (b *Builder) fail(e *Error) error {
	b.logger.Error("lifecycle phase failed", "phase", e.Phase.String(), "status", e.Status.String(), "error", e.Err)
	return e
}
