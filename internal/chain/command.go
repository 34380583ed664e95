package chain

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/odakahirokazu/ANLNext/internal/module"
	"github.com/odakahirokazu/ANLNext/internal/param"
)

// Command is one deferred mutation of a module.
type Command interface {
	Apply(m module.Module) error
	String() string
}

// SetStringVector sets a vector<string> parameter.
type SetStringVector struct {
	Name   string
	Values []string
}

// SetRealVector sets a vector<double> (or 2-/3-vector) parameter.
type SetRealVector struct {
	Name   string
	Values []float64
}

// SetIntVector sets a vector<int> parameter.
type SetIntVector struct {
	Name   string
	Values []int64
}

// SetInteger sets an int parameter.
type SetInteger struct {
	Name  string
	Value int64
}

// SetValue sets any parameter from an already typed value.
type SetValue struct {
	Name  string
	Value param.Value
}

// ClearArray empties a vector or record container parameter. With
// SkipFixed set, a parameter of fixed shape is left unchanged instead of
// failing.
type ClearArray struct {
	Name      string
	SkipFixed bool
}

// PushToVector appends one record to a record vector.
type PushToVector struct {
	Name   string
	Fields map[string]any
}

// InsertToMap stores one record under Key in a record map.
type InsertToMap struct {
	Name   string
	Key    string
	Fields map[string]any
}

// Setter runs an arbitrary function against the module.
type Setter struct {
	Label string
	Func  func(module.Module) error
}

func (c SetStringVector) Apply(m module.Module) error {
	return m.Parameters().SetStringVector(c.Name, c.Values)
}

func (c SetRealVector) Apply(m module.Module) error {
	return m.Parameters().SetRealVector(c.Name, c.Values)
}

func (c SetIntVector) Apply(m module.Module) error {
	return m.Parameters().SetIntVector(c.Name, c.Values)
}

func (c SetInteger) Apply(m module.Module) error {
	return m.Parameters().SetInteger(c.Name, c.Value)
}

func (c SetValue) Apply(m module.Module) error {
	return m.Parameters().Set(c.Name, c.Value)
}

func (c ClearArray) Apply(m module.Module) error {
	if c.SkipFixed {
		if p, ok := m.Parameters().Lookup(c.Name); ok && !p.Kind().IsClearable() {
			return nil
		}
	}
	return m.Parameters().ClearArray(c.Name)
}

func (c PushToVector) Apply(m module.Module) error {
	return m.Parameters().PushToVector(c.Name, c.Fields)
}

func (c InsertToMap) Apply(m module.Module) error {
	return m.Parameters().InsertToMap(c.Name, c.Key, c.Fields)
}

func (c Setter) Apply(m module.Module) error {
	return c.Func(m)
}

func (c SetStringVector) String() string { return fmt.Sprintf("set_parameter_vector_str(%s)", c.Name) }
func (c SetRealVector) String() string   { return fmt.Sprintf("set_parameter_vector_d(%s)", c.Name) }
func (c SetIntVector) String() string    { return fmt.Sprintf("set_parameter_vector_i(%s)", c.Name) }
func (c SetInteger) String() string      { return fmt.Sprintf("set_parameter_integer(%s)", c.Name) }
func (c SetValue) String() string        { return fmt.Sprintf("set_parameter(%s)", c.Name) }
func (c ClearArray) String() string      { return fmt.Sprintf("clear_array(%s)", c.Name) }
func (c PushToVector) String() string    { return fmt.Sprintf("push_to_vector(%s)", c.Name) }
func (c InsertToMap) String() string     { return fmt.Sprintf("insert_to_map(%s, %s)", c.Name, c.Key) }

func (c Setter) String() string {
	if c.Label != "" {
		return fmt.Sprintf("with_setter(%s)", c.Label)
	}
	return "with_setter"
}

// Route picks the setter for a host value by its concrete type:
//
//	empty list                   → ClearArray, ignored by scalars and
//	                               fixed tuples
//	[]string                     → SetStringVector
//	[]float64                    → SetRealVector
//	[]int, []int64               → SetIntVector
//	[]any                        → by the first element, as above; a list of
//	                               records becomes ClearArray + PushToVector
//	map of records               → InsertToMap per key, in key order
//	integer scalar               → SetInteger
//	anything else                → SetValue via param.FromHost
//
// Route is pure; nothing is applied.
func Route(name string, value any) ([]Command, error) {
	switch v := value.(type) {
	case nil:
		return nil, fmt.Errorf("parameter %q: nil value", name)
	case param.Value:
		return []Command{SetValue{Name: name, Value: param.Clone(v)}}, nil
	case []string:
		if len(v) == 0 {
			return emptyList(name), nil
		}
		return []Command{SetStringVector{Name: name, Values: slices.Clone(v)}}, nil
	case []float64:
		if len(v) == 0 {
			return emptyList(name), nil
		}
		return []Command{SetRealVector{Name: name, Values: slices.Clone(v)}}, nil
	case []int64:
		if len(v) == 0 {
			return emptyList(name), nil
		}
		return []Command{SetIntVector{Name: name, Values: slices.Clone(v)}}, nil
	case []int:
		if len(v) == 0 {
			return emptyList(name), nil
		}
		ns := make([]int64, len(v))
		for i, n := range v {
			ns[i] = int64(n)
		}
		return []Command{SetIntVector{Name: name, Values: ns}}, nil
	case []map[string]any:
		return routeRecords(name, v), nil
	case []any:
		return routeList(name, v)
	case map[string]map[string]any:
		return routeMap(name, v), nil
	case map[string]any:
		recs := make(map[string]map[string]any, len(v))
		for k, e := range v {
			rec, ok := e.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("parameter %q: map key %q is %T, want record", name, k, e)
			}
			recs[k] = rec
		}
		return routeMap(name, recs), nil
	}

	if n, ok := integer(value); ok {
		return []Command{SetInteger{Name: name, Value: n}}, nil
	}
	pv, err := param.FromHost(value)
	if err != nil {
		return nil, fmt.Errorf("parameter %q: %w", name, err)
	}
	return []Command{SetValue{Name: name, Value: pv}}, nil
}

func routeList(name string, list []any) ([]Command, error) {
	if len(list) == 0 {
		return emptyList(name), nil
	}
	switch list[0].(type) {
	case string:
		ss := make([]string, len(list))
		for i, e := range list {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("parameter %q: element %d is %T, want string", name, i, e)
			}
			ss[i] = s
		}
		return []Command{SetStringVector{Name: name, Values: ss}}, nil
	case float32, float64:
		fs := make([]float64, len(list))
		for i, e := range list {
			f, ok := asReal(e)
			if !ok {
				return nil, fmt.Errorf("parameter %q: element %d is %T, want number", name, i, e)
			}
			fs[i] = f
		}
		return []Command{SetRealVector{Name: name, Values: fs}}, nil
	case map[string]any:
		recs := make([]map[string]any, len(list))
		for i, e := range list {
			rec, ok := e.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("parameter %q: element %d is %T, want record", name, i, e)
			}
			recs[i] = rec
		}
		return routeRecords(name, recs), nil
	}
	if _, ok := integer(list[0]); ok {
		ns := make([]int64, len(list))
		for i, e := range list {
			n, ok := integer(e)
			if !ok {
				return nil, fmt.Errorf("parameter %q: element %d is %T, want integer", name, i, e)
			}
			ns[i] = n
		}
		return []Command{SetIntVector{Name: name, Values: ns}}, nil
	}
	return nil, fmt.Errorf("parameter %q: unsupported list element %T", name, list[0])
}

func emptyList(name string) []Command {
	return []Command{ClearArray{Name: name, SkipFixed: true}}
}

func routeRecords(name string, recs []map[string]any) []Command {
	cmds := []Command{ClearArray{Name: name}}
	for _, rec := range recs {
		cmds = append(cmds, PushToVector{Name: name, Fields: maps.Clone(rec)})
	}
	return cmds
}

func routeMap(name string, recs map[string]map[string]any) []Command {
	var cmds []Command
	for _, k := range slices.Sorted(maps.Keys(recs)) {
		cmds = append(cmds, InsertToMap{Name: name, Key: k, Fields: maps.Clone(recs[k])})
	}
	return cmds
}

func integer(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return fromUnsigned(uint64(n))
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return fromUnsigned(n)
	}
	return 0, false
}

// fromUnsigned rejects values an int parameter cannot hold.
func fromUnsigned(n uint64) (int64, bool) {
	if n > math.MaxInt64 {
		return 0, false
	}
	return int64(n), true
}

func asReal(v any) (float64, bool) {
	switch f := v.(type) {
	case float32:
		return float64(f), true
	case float64:
		return f, true
	}
	if n, ok := integer(v); ok {
		return float64(n), true
	}
	return 0, false
}
