package module

import (
	"context"
	"fmt"
	"slices"
)

// Flags is the per-event flag set shared by the modules of one chain
// replica. Keys must be defined, usually in Define, before they are set.
// All set flags are cleared by the engine at the start of every event.
type Flags struct {
	order   []string
	defined map[string]bool
	set     map[string]bool
}

// NewFlags returns an empty flag set.
func NewFlags() *Flags {
	return &Flags{defined: make(map[string]bool), set: make(map[string]bool)}
}

// Define registers key. Defining a key twice is a no-op.
func (f *Flags) Define(key string) {
	if f.defined[key] {
		return
	}
	f.defined[key] = true
	f.order = append(f.order, key)
}

func (f *Flags) IsDefined(key string) bool { return f.defined[key] }

// Set raises key for the current event.
func (f *Flags) Set(key string) error {
	if !f.defined[key] {
		return fmt.Errorf("event flag %q is not defined", key)
	}
	f.set[key] = true
	return nil
}

// Reset lowers key for the current event.
func (f *Flags) Reset(key string) {
	delete(f.set, key)
}

// Get reports whether key is raised.
func (f *Flags) Get(key string) bool {
	return f.set[key]
}

// ResetAll lowers every flag.
func (f *Flags) ResetAll() {
	clear(f.set)
}

// Keys returns the defined keys in definition order.
func (f *Flags) Keys() []string {
	return slices.Clone(f.order)
}

// Active returns the raised keys in definition order.
func (f *Flags) Active() []string {
	var out []string
	for _, k := range f.order {
		if f.set[k] {
			out = append(out, k)
		}
	}
	return out
}

type ctxKey int

const (
	flagsKey ctxKey = iota
	eventKey
	replicaKey
	finderKey
)

// WithFlags attaches the replica's flag set to ctx.
func WithFlags(ctx context.Context, f *Flags) context.Context {
	return context.WithValue(ctx, flagsKey, f)
}

// FlagsFrom returns the flag set attached by the engine. Outside an engine
// it returns a fresh, unshared set.
func FlagsFrom(ctx context.Context) *Flags {
	if f, ok := ctx.Value(flagsKey).(*Flags); ok {
		return f
	}
	return NewFlags()
}

// WithEventIndex attaches the loop index of the event being analyzed.
func WithEventIndex(ctx context.Context, index int64) context.Context {
	return context.WithValue(ctx, eventKey, index)
}

// EventIndex returns the loop index of the event being analyzed, or -1
// outside Analyze.
func EventIndex(ctx context.Context) int64 {
	if i, ok := ctx.Value(eventKey).(int64); ok {
		return i
	}
	return -1
}

// WithReplica attaches the parallel replica index.
func WithReplica(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, replicaKey, index)
}

// Replica returns the parallel replica index, 0 for serial runs.
func Replica(ctx context.Context) int {
	if i, ok := ctx.Value(replicaKey).(int); ok {
		return i
	}
	return 0
}

// Finder resolves a module of the running chain replica by id or alias.
type Finder func(name string) (Module, bool)

// WithFinder attaches the replica's module lookup to ctx.
func WithFinder(ctx context.Context, f Finder) context.Context {
	return context.WithValue(ctx, finderKey, f)
}

// Lookup returns the module of the current replica that answers to name.
// It is how a module reaches the modules before it in the chain, usually in
// Initialize. Outside an engine nothing is found.
func Lookup(ctx context.Context, name string) (Module, bool) {
	if f, ok := ctx.Value(finderKey).(Finder); ok {
		return f(name)
	}
	return nil, false
}
