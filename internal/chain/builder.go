package chain

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/odakahirokazu/ANLNext/internal/module"
	"github.com/odakahirokazu/ANLNext/internal/param"
)

// noModule marks the absence of a current module.
const noModule = -1

// Builder accumulates modules and deferred parameter commands, then runs
// them on an Engine.
type Builder struct {
	engine Engine
	logger *slog.Logger

	modules []module.Module
	current int

	queue     []queued
	modifiers []func(*Builder) error

	displayPeriod int64
	console       bool
	state         State
}

// queued is a command bound to the index of its target module.
type queued struct {
	target int
	cmd    Command
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithDisplayPeriod fixes the progress display period. Without it the
// period is derived from the loop count by ProposedDisplayPeriod.
func WithDisplayPeriod(n int64) Option {
	return func(b *Builder) { b.displayPeriod = n }
}

// WithConsole enables or disables per-period progress output during
// Analyze. Console output is on by default.
func WithConsole(on bool) Option {
	return func(b *Builder) { b.console = on }
}

// New returns a Builder that runs its chain on e.
func New(e Engine, opts ...Option) *Builder {
	b := &Builder{
		engine:  e,
		logger:  slog.Default(),
		current: noModule,
		console: true,
		state:   StateBuilding,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Chain constructs a module, optionally renames it, appends it and makes it
// current. More than one id is an error.
func (b *Builder) Chain(f module.Factory, id ...string) (module.Module, error) {
	if len(id) > 1 {
		return nil, fmt.Errorf("chain: at most one module id, got %d", len(id))
	}
	m := f()
	if len(id) == 1 && id[0] != "" {
		m.SetModuleID(id[0])
	}
	if err := b.Add(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Add appends an already constructed module and makes it current.
func (b *Builder) Add(m module.Module) error {
	if b.state != StateBuilding {
		return fmt.Errorf("chain: cannot add modules in state %s", b.state)
	}
	if _, ok := b.GetModule(m.ModuleID()); ok {
		return &Error{
			Code:     ErrCodeDuplicateModuleID,
			ModuleID: m.ModuleID(),
			Message:  fmt.Sprintf("module id already in chain (type %s); give the second instance an explicit id", m.TypeName()),
		}
	}
	b.modules = append(b.modules, m)
	b.current = len(b.modules) - 1
	return nil
}

// Modules returns the chained modules in execution order.
func (b *Builder) Modules() []module.Module {
	return slices.Clone(b.modules)
}

// Current returns the current module.
func (b *Builder) Current() (module.Module, bool) {
	if b.current == noModule {
		return nil, false
	}
	return b.modules[b.current], true
}

// GetModule returns the first module with the given id.
func (b *Builder) GetModule(id string) (module.Module, bool) {
	i := b.indexOf(id)
	if i == noModule {
		return nil, false
	}
	return b.modules[i], true
}

// ExposeModule makes the module with the given id current and returns it.
// When no module matches there is no current module afterwards.
func (b *Builder) ExposeModule(id string) (module.Module, bool) {
	b.current = b.indexOf(id)
	return b.Current()
}

// FindModule looks a module up by name, leniently: an exact id or alias
// match first, then a case-insensitive match, then a unique
// case-insensitive prefix.
func (b *Builder) FindModule(name string) (module.Module, bool) {
	for _, m := range b.modules {
		if module.Matches(m, name) {
			return m, true
		}
	}
	lower := strings.ToLower(name)
	for _, m := range b.modules {
		if strings.ToLower(m.ModuleID()) == lower {
			return m, true
		}
	}
	var found module.Module
	for _, m := range b.modules {
		if strings.HasPrefix(strings.ToLower(m.ModuleID()), lower) {
			if found != nil {
				return nil, false
			}
			found = m
		}
	}
	return found, found != nil
}

func (b *Builder) indexOf(id string) int {
	for i, m := range b.modules {
		if m.ModuleID() == id {
			return i
		}
	}
	return noModule
}

// WithParameters queues one routed setter per entry, in sorted name order.
func (b *Builder) WithParameters(params map[string]any) error {
	for _, name := range slices.Sorted(maps.Keys(params)) {
		if err := b.WithParameter(name, params[name]); err != nil {
			return err
		}
	}
	return nil
}

// WithParameter queues the setter Route picks for value.
func (b *Builder) WithParameter(name string, value any) error {
	cmds, err := Route(name, value)
	if err != nil {
		return err
	}
	return b.enqueue(cmds...)
}

// PushToVector queues a record append on the current module.
func (b *Builder) PushToVector(name string, fields map[string]any) error {
	return b.enqueue(PushToVector{Name: name, Fields: maps.Clone(fields)})
}

// InsertToMap queues a keyed record insert on the current module.
func (b *Builder) InsertToMap(name, key string, fields map[string]any) error {
	return b.enqueue(InsertToMap{Name: name, Key: key, Fields: maps.Clone(fields)})
}

// WithSetter queues an arbitrary function on the current module.
func (b *Builder) WithSetter(label string, fn func(module.Module) error) error {
	return b.enqueue(Setter{Label: label, Func: fn})
}

func (b *Builder) enqueue(cmds ...Command) error {
	if b.current == noModule {
		return &Error{Code: ErrCodeNoCurrentModule, Message: "no current module; call Chain or ExposeModule first"}
	}
	if b.state != StateBuilding {
		return fmt.Errorf("chain: cannot queue parameters in state %s", b.state)
	}
	for _, c := range cmds {
		b.queue = append(b.queue, queued{target: b.current, cmd: c})
	}
	return nil
}

// Pending returns the number of queued commands.
func (b *Builder) Pending() int {
	return len(b.queue)
}

// LoadAllParameters applies every queued command in queue order and clears
// the queue. It stops at the first failure; the queue is cleared either way.
func (b *Builder) LoadAllParameters() error {
	queue := b.queue
	b.queue = nil
	for _, q := range queue {
		m := b.modules[q.target]
		if err := q.cmd.Apply(m); err != nil {
			return fmt.Errorf("module %s: %s: %w", m.ModuleID(), q.cmd, err)
		}
		b.logger.Debug("applied parameter command", "module", m.ModuleID(), "command", q.cmd.String())
	}
	return nil
}

// Modify queues a hook that runs after PreInitialize and before Initialize.
// It is the point where parallel replicas exist and ParallelModule can be
// used to override one replica's parameters.
func (b *Builder) Modify(fn func(*Builder) error) {
	b.modifiers = append(b.modifiers, fn)
}

// ParallelModule returns the module id in parallel replica index.
func (b *Builder) ParallelModule(index int, id string) (module.Module, bool) {
	return b.engine.ParallelModule(index, id)
}

// State returns the lifecycle state reached so far.
func (b *Builder) State() State {
	return b.state
}

// ParametersJSON renders every module's parameters as canonical JSON:
// {"<module id>": {"<parameter>": <value>, ...}, ...}.
func (b *Builder) ParametersJSON() ([]byte, error) {
	out := make(map[string]map[string]any, len(b.modules))
	for _, m := range b.modules {
		vals := make(map[string]any)
		for _, p := range m.Parameters().Parameters() {
			v, err := param.GetValue(p)
			if err != nil {
				return nil, fmt.Errorf("module %s: %w", m.ModuleID(), err)
			}
			vals[p.Name()] = v
		}
		out[m.ModuleID()] = vals
	}
	return param.MarshalCanonical(out)
}
