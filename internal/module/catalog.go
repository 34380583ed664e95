package module

import (
	"fmt"
	"maps"
	"slices"
)

// Factory constructs a fresh module with default parameters.
type Factory func() Module

// Catalog maps module type names to factories. Chain definition files and
// parallel replication resolve module types through it.
type Catalog struct {
	factories map[string]Factory
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// Register adds a factory under the type name of the module it builds.
func (c *Catalog) Register(f Factory) error {
	name := f().TypeName()
	if _, exists := c.factories[name]; exists {
		return fmt.Errorf("module type %q already registered", name)
	}
	c.factories[name] = f
	return nil
}

// MustRegister is like Register but panics on error.
func (c *Catalog) MustRegister(fs ...Factory) *Catalog {
	for _, f := range fs {
		if err := c.Register(f); err != nil {
			panic(err)
		}
	}
	return c
}

// Lookup returns the factory for typeName.
func (c *Catalog) Lookup(typeName string) (Factory, bool) {
	f, ok := c.factories[typeName]
	return f, ok
}

// TypeNames returns the registered type names in sorted order.
func (c *Catalog) TypeNames() []string {
	return slices.Sorted(maps.Keys(c.factories))
}

// Replicate returns an independent copy of m. Modules implementing Cloner
// copy themselves; others are rebuilt from the catalog with m's id, on/off
// state, aliases and parameter values carried over.
func Replicate(m Module, c *Catalog) (Module, error) {
	if cl, ok := m.(Cloner); ok {
		return cl.Clone(), nil
	}
	if c == nil {
		return nil, fmt.Errorf("module %q is not a Cloner and no catalog is available", m.ModuleID())
	}
	f, ok := c.Lookup(m.TypeName())
	if !ok {
		return nil, fmt.Errorf("module %q: type %q not in catalog", m.ModuleID(), m.TypeName())
	}
	cp := f()
	cp.SetModuleID(m.ModuleID())
	cp.SetOn(m.IsOn())
	for _, a := range m.Aliases() {
		cp.AddAlias(a)
	}
	if err := cp.Parameters().CopyValuesFrom(m.Parameters()); err != nil {
		return nil, fmt.Errorf("module %q: copy parameters: %w", m.ModuleID(), err)
	}
	return cp, nil
}
