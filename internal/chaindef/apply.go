package chaindef

import (
	"fmt"
	"maps"
	"slices"

	"github.com/odakahirokazu/ANLNext/internal/chain"
	"github.com/odakahirokazu/ANLNext/internal/module"
	"github.com/odakahirokazu/ANLNext/internal/param"
)

// Apply appends the modules of def to b, in order, and queues their
// parameters. Parameters are queued first, then pushes in parameter
// name order, then inserts in parameter and key order. Nothing is applied
// to the modules until b.LoadAllParameters.
func Apply(def *Definition, b *chain.Builder, catalog *module.Catalog) error {
	for _, md := range def.Modules {
		f, ok := catalog.Lookup(md.Type)
		if !ok {
			return &LoadError{Code: ErrCodeUnknownType, Message: fmt.Sprintf("unknown module type %q (known: %v)", md.Type, catalog.TypeNames())}
		}
		var ids []string
		if md.ID != "" {
			ids = append(ids, md.ID)
		}
		m, err := b.Chain(f, ids...)
		if err != nil {
			return &LoadError{Code: ErrCodeApplyFailed, Message: err.Error()}
		}
		if md.Off {
			m.SetOn(false)
		}
		for _, a := range md.Aliases {
			m.AddAlias(a)
		}
		if err := queue(def, md, m, b); err != nil {
			return &LoadError{Code: ErrCodeApplyFailed, Message: fmt.Sprintf("module %s: %v", m.ModuleID(), err)}
		}
	}
	return nil
}

func queue(def *Definition, md ModuleDef, m module.Module, b *chain.Builder) error {
	params := md.Parameters
	if def.untypedNumbers {
		params = make(map[string]any, len(md.Parameters))
		for name, v := range md.Parameters {
			params[name] = conformTo(m, name, v)
		}
	}
	if err := b.WithParameters(params); err != nil {
		return err
	}

	for _, name := range slices.Sorted(maps.Keys(md.Push)) {
		for _, rec := range md.Push[name] {
			if def.untypedNumbers {
				rec = conformRecord(recordSchema(m, name), rec)
			}
			if err := b.PushToVector(name, rec); err != nil {
				return err
			}
		}
	}

	for _, name := range slices.Sorted(maps.Keys(md.Insert)) {
		entries := md.Insert[name]
		for _, key := range slices.Sorted(maps.Keys(entries)) {
			rec := entries[key]
			if def.untypedNumbers {
				rec = conformRecord(recordSchema(m, name), rec)
			}
			if err := b.InsertToMap(name, key, rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// conformTo converts integral numbers in v to float64 where the declared
// parameter expects reals. Unknown parameters are left alone; the registry
// reports them when the queue is applied.
func conformTo(m module.Module, name string, v any) any {
	p, ok := m.Parameters().Lookup(name)
	if !ok {
		return v
	}
	return conform(p.Value(), v)
}

func conform(template param.Value, v any) any {
	switch t := template.(type) {
	case param.Real:
		if n, ok := v.(int64); ok {
			return float64(n)
		}
	case param.RealVector, param.Vec2, param.Vec3:
		if list, ok := v.([]any); ok {
			out := make([]any, len(list))
			for i, e := range list {
				if n, ok := e.(int64); ok {
					out[i] = float64(n)
				} else {
					out[i] = e
				}
			}
			return out
		}
	case param.RecordVector:
		if list, ok := v.([]any); ok {
			out := make([]any, len(list))
			for i, e := range list {
				if rec, ok := e.(map[string]any); ok {
					out[i] = conformRecord(t.Schema, rec)
				} else {
					out[i] = e
				}
			}
			return out
		}
	case param.RecordMap:
		if recs, ok := v.(map[string]any); ok {
			out := make(map[string]any, len(recs))
			for k, e := range recs {
				if rec, ok := e.(map[string]any); ok {
					out[k] = conformRecord(t.Schema, rec)
				} else {
					out[k] = e
				}
			}
			return out
		}
	}
	return v
}

func conformRecord(schema param.Schema, rec map[string]any) map[string]any {
	if schema == nil {
		return rec
	}
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		if tmpl, ok := schema.Lookup(k); ok {
			out[k] = conform(tmpl, v)
		} else {
			out[k] = v
		}
	}
	return out
}

func recordSchema(m module.Module, name string) param.Schema {
	p, ok := m.Parameters().Lookup(name)
	if !ok {
		return nil
	}
	switch v := p.Value().(type) {
	case param.RecordVector:
		return v.Schema
	case param.RecordMap:
		return v.Schema
	}
	return nil
}
