package engine

import (
	"context"

	"github.com/odakahirokazu/ANLNext/internal/module"
)

// ModuleCounter tallies the Analyze outcomes of one module.
type ModuleCounter struct {
	ModuleID string `json:"module_id"`
	Entry    int64  `json:"entry"`
	OK       int64  `json:"ok"`
	Error    int64  `json:"error"`
	Skip     int64  `json:"skip"`
	Quit     int64  `json:"quit"`
}

// Counters is the event accounting of a run, summed over replicas.
// Put counts events entered into the chain and Get counts events that
// passed every module with OK.
type Counters struct {
	Put     int64           `json:"put"`
	Get     int64           `json:"get"`
	Modules []ModuleCounter `json:"modules"`
}

// replica is one copy of the chain with its own event state.
type replica struct {
	index      int
	modules    []module.Module
	flags      *module.Flags
	put        int64
	get        int64
	counters   []ModuleCounter
	flagCounts map[string]int64
}

func newReplica(index int, mods []module.Module, flags *module.Flags) *replica {
	r := &replica{
		index:      index,
		modules:    mods,
		flags:      flags,
		counters:   make([]ModuleCounter, len(mods)),
		flagCounts: make(map[string]int64),
	}
	for i, m := range mods {
		r.counters[i].ModuleID = m.ModuleID()
	}
	return r
}

func (r *replica) context(ctx context.Context) context.Context {
	ctx = module.WithFlags(ctx, r.flags)
	ctx = module.WithFinder(ctx, r.find)
	return module.WithReplica(ctx, r.index)
}

func (r *replica) find(name string) (module.Module, bool) {
	for _, m := range r.modules {
		if module.Matches(m, name) {
			return m, true
		}
	}
	return nil, false
}

// Counters returns the event counters summed over all replicas.
func (e *Engine) Counters() Counters {
	var out Counters
	for i, r := range e.replicas {
		out.Put += r.put
		out.Get += r.get
		if i == 0 {
			out.Modules = append([]ModuleCounter(nil), r.counters...)
			continue
		}
		for j, c := range r.counters {
			m := &out.Modules[j]
			m.Entry += c.Entry
			m.OK += c.OK
			m.Error += c.Error
			m.Skip += c.Skip
			m.Quit += c.Quit
		}
	}
	return out
}

// FlagCounts returns, for every defined event flag, how many events ended
// with it raised. Flags never raised are reported with zero.
func (e *Engine) FlagCounts() map[string]int64 {
	out := make(map[string]int64)
	if len(e.replicas) == 0 {
		return out
	}
	for _, k := range e.replicas[0].flags.Keys() {
		out[k] = 0
	}
	for _, r := range e.replicas {
		for k, n := range r.flagCounts {
			out[k] += n
		}
	}
	return out
}

// FlagKeys returns the defined event flags in definition order.
func (e *Engine) FlagKeys() []string {
	if len(e.replicas) == 0 {
		return nil
	}
	return e.replicas[0].flags.Keys()
}
