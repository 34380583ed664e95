package chaindef

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Definition is a chain described in a file: the modules in chain order
// and optional loop settings.
type Definition struct {
	// Source is the file the definition was loaded from, if any.
	Source string

	Modules []ModuleDef

	// NumLoop and DisplayPeriod are nil when the file leaves them to the
	// command line.
	NumLoop       *int64
	DisplayPeriod *int64

	// untypedNumbers is set for formats whose numbers carry no int/float
	// distinction. Apply then converts integral numbers bound for real
	// parameters.
	untypedNumbers bool
}

// ModuleDef is one module of a chain definition.
type ModuleDef struct {
	// Type is the catalog type name.
	Type string
	// ID overrides the module id; empty means the type name.
	ID      string
	Off     bool
	Aliases []string

	// Parameters are routed like Builder.WithParameters.
	Parameters map[string]any
	// Push appends records to record-vector parameters, in list order.
	Push map[string][]map[string]any
	// Insert sets records of record-map parameters by key.
	Insert map[string]map[string]map[string]any
}

// ModuleID returns the id the module will have in the chain.
func (d ModuleDef) ModuleID() string {
	if d.ID != "" {
		return d.ID
	}
	return d.Type
}

// Load reads a chain definition, choosing the format by file extension:
// .yaml/.yml, .cue or .hcl.
func Load(path string) (*Definition, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeReadFailed, Message: err.Error()}
	}
	return Parse(src, path)
}

// Parse decodes src in the format implied by filename's extension.
func Parse(src []byte, filename string) (*Definition, error) {
	var (
		def *Definition
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml":
		def, err = ParseYAML(src, filename)
	case ".cue":
		def, err = ParseCUE(src, filename)
	case ".hcl":
		def, err = ParseHCL(src, filename)
	default:
		return nil, &LoadError{Code: ErrCodeUnsupportedFormat, Message: fmt.Sprintf("unsupported chain file extension %q", ext)}
	}
	if err != nil {
		return nil, err
	}
	def.Source = filename
	return def, nil
}

var (
	topLevelKeys = []string{"display_period", "modules", "num_loop"}
	moduleKeys   = []string{"aliases", "id", "insert", "on", "parameters", "push", "type"}
)

// decode builds a Definition from the generic tree every loader produces:
// maps with string keys, []any lists, string, bool, int64 and float64.
func decode(tree map[string]any) (*Definition, error) {
	if err := checkKeys("chain", tree, topLevelKeys); err != nil {
		return nil, err
	}
	def := &Definition{}
	var err error
	if def.NumLoop, err = optionalInt(tree, "num_loop"); err != nil {
		return nil, err
	}
	if def.DisplayPeriod, err = optionalInt(tree, "display_period"); err != nil {
		return nil, err
	}

	raw, ok := tree["modules"]
	if !ok {
		return nil, invalid("chain has no modules")
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, invalid("modules is %s, want a list", describe(raw))
	}
	for i, e := range list {
		fields, ok := e.(map[string]any)
		if !ok {
			return nil, invalid("modules[%d] is %s, want a mapping", i, describe(e))
		}
		md, err := decodeModule(fields)
		if err != nil {
			err.Message = fmt.Sprintf("modules[%d]: %s", i, err.Message)
			return nil, err
		}
		def.Modules = append(def.Modules, md)
	}
	return def, nil
}

func decodeModule(fields map[string]any) (ModuleDef, *LoadError) {
	var md ModuleDef
	if err := checkKeys("module", fields, moduleKeys); err != nil {
		return md, err
	}

	typ, ok := fields["type"].(string)
	if !ok || typ == "" {
		return md, invalid("module has no type")
	}
	md.Type = typ
	if v, ok := fields["id"]; ok {
		if md.ID, ok = v.(string); !ok {
			return md, invalid("module %s: id is %s, want a string", typ, describe(v))
		}
	}
	if v, ok := fields["on"]; ok {
		on, ok := v.(bool)
		if !ok {
			return md, invalid("module %s: on is %s, want a bool", typ, describe(v))
		}
		md.Off = !on
	}
	if v, ok := fields["aliases"]; ok {
		list, ok := v.([]any)
		if !ok {
			return md, invalid("module %s: aliases is %s, want a list", typ, describe(v))
		}
		for _, a := range list {
			s, ok := a.(string)
			if !ok {
				return md, invalid("module %s: alias is %s, want a string", typ, describe(a))
			}
			md.Aliases = append(md.Aliases, s)
		}
	}

	if v, ok := fields["parameters"]; ok {
		params, ok := v.(map[string]any)
		if !ok {
			return md, invalid("module %s: parameters is %s, want a mapping", typ, describe(v))
		}
		md.Parameters = params
	}

	if v, ok := fields["push"]; ok {
		push, ok := v.(map[string]any)
		if !ok {
			return md, invalid("module %s: push is %s, want a mapping", typ, describe(v))
		}
		md.Push = make(map[string][]map[string]any, len(push))
		for name, recs := range push {
			list, ok := recs.([]any)
			if !ok {
				return md, invalid("module %s: push.%s is %s, want a list of records", typ, name, describe(recs))
			}
			for i, r := range list {
				rec, ok := r.(map[string]any)
				if !ok {
					return md, invalid("module %s: push.%s[%d] is %s, want a record", typ, name, i, describe(r))
				}
				md.Push[name] = append(md.Push[name], rec)
			}
		}
	}

	if v, ok := fields["insert"]; ok {
		insert, ok := v.(map[string]any)
		if !ok {
			return md, invalid("module %s: insert is %s, want a mapping", typ, describe(v))
		}
		md.Insert = make(map[string]map[string]map[string]any, len(insert))
		for name, entries := range insert {
			m, ok := entries.(map[string]any)
			if !ok {
				return md, invalid("module %s: insert.%s is %s, want a mapping of records", typ, name, describe(entries))
			}
			md.Insert[name] = make(map[string]map[string]any, len(m))
			for key, r := range m {
				rec, ok := r.(map[string]any)
				if !ok {
					return md, invalid("module %s: insert.%s.%s is %s, want a record", typ, name, key, describe(r))
				}
				md.Insert[name][key] = rec
			}
		}
	}
	return md, nil
}

func checkKeys(what string, fields map[string]any, allowed []string) *LoadError {
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		if !slices.Contains(allowed, k) {
			return invalid("unknown %s key %q (allowed: %s)", what, k, strings.Join(allowed, ", "))
		}
	}
	return nil
}

func optionalInt(tree map[string]any, key string) (*int64, error) {
	v, ok := tree[key]
	if !ok {
		return nil, nil
	}
	switch n := v.(type) {
	case int64:
		return &n, nil
	case float64:
		if n == float64(int64(n)) {
			i := int64(n)
			return &i, nil
		}
	}
	return nil, invalid("%s is %s, want an integer", key, describe(v))
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "a mapping"
	case []any:
		return "a list"
	}
	return fmt.Sprintf("%T", v)
}

// normalize converts decoder output to the generic tree: every integer
// becomes int64 and every mapping map[string]any.
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case uint64:
		return int64(t), nil
	case float32:
		return float64(t), nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			ks, ok := k.(string)
			if !ok {
				return nil, invalid("mapping key %v is %T, want a string", k, k)
			}
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			out[ks] = n
		}
		return out, nil
	}
	return v, nil
}
