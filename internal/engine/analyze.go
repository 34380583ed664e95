package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/odakahirokazu/ANLNext/internal/module"
	"github.com/odakahirokazu/ANLNext/internal/status"
)

// Analyze runs BeginRun, the event loop and EndRun, then merges the
// results of parallel replicas into the first one through module.Reducer.
//
// numLoop bounds the total number of events over all replicas; a negative
// value runs until every replica quits. Within one event the modules are
// called in chain order until one returns something other than OK:
//   - a normal error is counted and then treated as its plain status
//   - Skip abandons the event
//   - Quit ends this replica's loop after the event
//   - QuitAll ends the loop of every replica
//   - a critical error ends every loop and is returned
//
// Analyze returns OK when the loop ended normally, including by Quit.
func (e *Engine) Analyze(ctx context.Context, numLoop int64, console bool) (status.Status, error) {
	if e.state != stateInitialized {
		return status.Quit, NewPhaseOrderError("Analyze", e.state)
	}
	e.state = stateAnalyzed

	ctx, span := e.startSpan(ctx, "analyze")
	defer span.End()
	span.SetAttributes(attribute.Int64("num_loop", numLoop))

	if st := e.eachReplica(ctx, "begin_run", e.beginRun); st != status.OK {
		return st, nil
	}

	idx := newLoopIndex(numLoop)
	results := make([]status.Status, len(e.replicas))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range e.replicas {
		g.Go(func() error {
			st, err := e.loop(gctx, r, idx, console)
			results[i] = st
			return err
		})
	}
	loopErr := g.Wait()
	span.SetAttributes(attribute.Int64("events", idx.Issued()))

	result := status.OK
	for _, st := range results {
		if status.IsCriticalError(st) {
			result = st
			break
		}
	}

	if loopErr != nil {
		span.SetStatus(codes.Error, loopErr.Error())
		e.logger.Error("event loop canceled", "run_id", e.runID, "events", idx.Issued())
		return status.Quit, loopErr
	}
	if result != status.OK {
		span.SetStatus(codes.Error, result.String())
		return result, nil
	}

	if st := e.eachReplica(ctx, "end_run", e.endRun); st != status.OK {
		return st, nil
	}
	return e.reduce(ctx), nil
}

// reduce merges the results of replicas 1..n-1 into the modules of the
// first replica.
func (e *Engine) reduce(ctx context.Context) status.Status {
	if len(e.replicas) < 2 {
		return status.OK
	}
	_, span := e.startSpan(ctx, "reduce")
	defer span.End()

	base := e.replicas[0]
	for j, m := range base.modules {
		red, ok := m.(module.Reducer)
		if !ok || !m.IsOn() {
			continue
		}
		others := make([]module.Module, 0, len(e.replicas)-1)
		for _, r := range e.replicas[1:] {
			others = append(others, r.modules[j])
		}
		if st := red.Reduce(others); st != status.OK {
			e.phaseFailed(span, "Reduce()", base, m, st)
			return st
		}
		e.logger.Debug("merged replica results", "module", m.ModuleID(), "replicas", len(e.replicas))
	}
	return status.OK
}

func (e *Engine) loop(ctx context.Context, r *replica, idx *loopIndex, console bool) (status.Status, error) {
	rctx := r.context(ctx)
	start := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			idx.Stop()
			return status.Quit, &RuntimeError{Code: ErrCodeCanceled, Message: "event loop interrupted", Replica: r.index, Err: err}
		}
		i, ok := idx.Next()
		if !ok {
			return status.OK, nil
		}
		if console && e.displayPeriod > 0 && i%e.displayPeriod == 0 {
			e.logger.Info("event", "index", i, "replica", r.index, "elapsed", time.Since(start).Round(time.Millisecond))
		}

		switch st := e.processEvent(rctx, r, i); {
		case st == status.Quit:
			return status.OK, nil
		case st == status.QuitAll:
			idx.Stop()
			return status.OK, nil
		case status.IsCriticalError(st):
			idx.Stop()
			e.logger.Error("critical error in event loop", "status", st.String(), "index", i, "replica", r.index)
			return st, nil
		}
	}
}

// processEvent runs one event through the replica's chain and returns the
// status that ended it, with normal errors already eliminated.
func (e *Engine) processEvent(ctx context.Context, r *replica, i int64) status.Status {
	r.flags.ResetAll()
	r.put++
	ctx = module.WithEventIndex(ctx, i)

	result := status.OK
	for j, m := range r.modules {
		if !m.IsOn() {
			continue
		}
		c := &r.counters[j]
		c.Entry++
		st := m.Analyze(ctx)
		if status.IsNormalError(st) {
			c.Error++
			e.logger.Warn("analyze reported an error", "module", m.ModuleID(), "index", i, "status", st.String())
			st = status.EliminateNormalError(st)
		}
		if st == status.OK {
			c.OK++
			continue
		}
		if st == status.Skip {
			c.Skip++
		} else {
			c.Quit++
		}
		result = st
		break
	}

	if result == status.OK {
		r.get++
	}
	for _, k := range r.flags.Active() {
		r.flagCounts[k]++
	}
	return result
}

func (e *Engine) beginRun(ctx context.Context, r *replica) status.Status {
	for _, m := range r.modules {
		if !m.IsOn() {
			continue
		}
		if st := m.BeginRun(ctx); st != status.OK {
			return st
		}
	}
	return status.OK
}

func (e *Engine) endRun(ctx context.Context, r *replica) status.Status {
	for _, m := range r.modules {
		if !m.IsOn() {
			continue
		}
		if st := m.EndRun(ctx); st != status.OK {
			return st
		}
	}
	return status.OK
}

func (e *Engine) eachReplica(ctx context.Context, name string, fn func(context.Context, *replica) status.Status) status.Status {
	for _, r := range e.replicas {
		if st := fn(r.context(ctx), r); st != status.OK {
			e.logger.Error(name+" failed", "status", st.String(), "replica", r.index, "run_id", e.runID)
			return st
		}
	}
	return status.OK
}
