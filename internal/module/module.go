package module

import (
	"context"
	"slices"

	"github.com/odakahirokazu/ANLNext/internal/param"
	"github.com/odakahirokazu/ANLNext/internal/status"
)

// Module is one stage of an analysis chain.
type Module interface {
	ModuleID() string
	SetModuleID(id string)
	TypeName() string
	Version() string
	Parameters() *param.Registry

	IsOn() bool
	SetOn(on bool)
	Aliases() []string
	AddAlias(alias string)

	Define(ctx context.Context) status.Status
	PreInitialize(ctx context.Context) status.Status
	Initialize(ctx context.Context) status.Status
	BeginRun(ctx context.Context) status.Status
	Analyze(ctx context.Context) status.Status
	EndRun(ctx context.Context) status.Status
	Finalize(ctx context.Context) status.Status
}

// Cloner is implemented by modules that can copy themselves, state and
// parameters included, for parallel replicas.
type Cloner interface {
	Clone() Module
}

// Reducer is implemented by modules that accumulate results over the
// event loop. After EndRun of a parallel run the engine calls Reduce on
// the module of the first replica with the same module of every other
// replica, in replica order.
type Reducer interface {
	Reduce(parallel []Module) status.Status
}

// Base provides identity, parameters and default callbacks. Embed it by
// value and construct it with NewBase.
type Base struct {
	id       string
	typeName string
	version  string
	params   *param.Registry
	off      bool
	aliases  []string
}

// NewBase returns a Base whose module id equals typeName.
func NewBase(typeName, version string) Base {
	return Base{
		id:       typeName,
		typeName: typeName,
		version:  version,
		params:   param.NewRegistry(),
	}
}

func (b *Base) ModuleID() string            { return b.id }
func (b *Base) SetModuleID(id string)       { b.id = id }
func (b *Base) TypeName() string            { return b.typeName }
func (b *Base) Version() string             { return b.version }
func (b *Base) Parameters() *param.Registry { return b.params }
func (b *Base) IsOn() bool                  { return !b.off }
func (b *Base) SetOn(on bool)               { b.off = !on }
func (b *Base) Aliases() []string           { return slices.Clone(b.aliases) }

// AddAlias registers an additional name the module can be looked up by.
func (b *Base) AddAlias(alias string) {
	if !slices.Contains(b.aliases, alias) {
		b.aliases = append(b.aliases, alias)
	}
}

func (b *Base) Define(context.Context) status.Status        { return status.OK }
func (b *Base) PreInitialize(context.Context) status.Status { return status.OK }
func (b *Base) Initialize(context.Context) status.Status    { return status.OK }
func (b *Base) BeginRun(context.Context) status.Status      { return status.OK }
func (b *Base) Analyze(context.Context) status.Status       { return status.OK }
func (b *Base) EndRun(context.Context) status.Status        { return status.OK }
func (b *Base) Finalize(context.Context) status.Status      { return status.OK }

// CloneBase returns a deep copy of b for use in a Cloner implementation.
func (b *Base) CloneBase() Base {
	return Base{
		id:       b.id,
		typeName: b.typeName,
		version:  b.version,
		params:   b.params.Clone(),
		off:      b.off,
		aliases:  slices.Clone(b.aliases),
	}
}

// Matches reports whether m answers to name, by id or by alias.
func Matches(m Module, name string) bool {
	return m.ModuleID() == name || slices.Contains(m.Aliases(), name)
}
