package param

import (
	"fmt"
)

// Registry maps parameter names to values for one module.
//
// Names are unique and a declared kind never changes. The registry is not
// safe for concurrent use; a module's parameters are configured by a single
// goroutine before the lifecycle starts.
type Registry struct {
	params []*Parameter
	index  map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Declare registers a parameter with its default value.
func (r *Registry) Declare(name string, def Value, opts ...Option) (*Parameter, error) {
	if name == "" {
		return nil, fmt.Errorf("parameter name is empty")
	}
	if def == nil {
		return nil, fmt.Errorf("parameter %q has no default", name)
	}
	if _, exists := r.index[name]; exists {
		return nil, newError(ErrCodeDuplicateParameter, name, "already declared")
	}
	if s, ok := schemaOf(def); ok {
		if err := s.Validate(); err != nil {
			return nil, wrapError(ErrCodeSchemaViolation, name, err)
		}
	}

	p := &Parameter{name: name}
	for _, opt := range opts {
		opt(p)
	}
	p.value = p.toInternal(def)
	r.index[name] = len(r.params)
	r.params = append(r.params, p)
	return p, nil
}

// MustDeclare is like Declare but panics on error. It is intended for module
// constructors, where a failed declaration is a programming error.
func (r *Registry) MustDeclare(name string, def Value, opts ...Option) *Parameter {
	p, err := r.Declare(name, def, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Lookup returns the named parameter.
func (r *Registry) Lookup(name string) (*Parameter, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.params[i], true
}

// Parameters returns all parameters in declaration order.
func (r *Registry) Parameters() []*Parameter {
	return append([]*Parameter(nil), r.params...)
}

// Len returns the number of declared parameters.
func (r *Registry) Len() int {
	return len(r.params)
}

// Get returns a deep copy of the named value in the parameter's unit.
func (r *Registry) Get(name string) (Value, error) {
	p, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return p.Value(), nil
}

// Stored returns a deep copy of the named value in internal units. Modules
// read their configuration through Stored.
func (r *Registry) Stored(name string) (Value, error) {
	p, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return p.Stored(), nil
}

// Set replaces the named value, given in the parameter's unit. The value
// must have the declared kind and, for record containers, an equal schema.
func (r *Registry) Set(name string, v Value) error {
	p, err := r.lookup(name)
	if err != nil {
		return err
	}
	if err := checkAssignable(p, v); err != nil {
		return err
	}
	p.value = p.toInternal(v)
	p.positioned = false
	return nil
}

func checkAssignable(p *Parameter, v Value) error {
	name := p.name
	if v == nil {
		return newError(ErrCodeTypeMismatch, name, "nil value")
	}
	if v.Kind() != p.Kind() {
		return newError(ErrCodeTypeMismatch, name, fmt.Sprintf("declared %s, got %s", p.Kind(), v.Kind()))
	}
	if want, ok := schemaOf(p.value); ok {
		got, _ := schemaOf(v)
		if !want.Equal(got) {
			return newError(ErrCodeTypeMismatch, name, fmt.Sprintf("schema %s, got %s", want, got))
		}
	}
	return nil
}

// SetInteger sets an int parameter.
func (r *Registry) SetInteger(name string, n int64) error {
	return r.Set(name, Int(n))
}

// SetReal sets a double parameter. It never targets int parameters.
func (r *Registry) SetReal(name string, f float64) error {
	return r.Set(name, Real(f))
}

// SetBool sets a bool parameter.
func (r *Registry) SetBool(name string, b bool) error {
	return r.Set(name, Bool(b))
}

// SetString sets a string parameter.
func (r *Registry) SetString(name, s string) error {
	return r.Set(name, String(s))
}

// SetVec2 sets a 2-vector parameter.
func (r *Registry) SetVec2(name string, x, y float64) error {
	return r.Set(name, Vec2{x, y})
}

// SetVec3 sets a 3-vector parameter.
func (r *Registry) SetVec3(name string, x, y, z float64) error {
	return r.Set(name, Vec3{x, y, z})
}

// SetIntVector sets a vector<int> parameter.
func (r *Registry) SetIntVector(name string, ns []int64) error {
	return r.Set(name, IntVector(ns))
}

// SetRealVector sets a vector<double> parameter. A 2-vector or 3-vector
// parameter also accepts a real vector of exactly its length.
func (r *Registry) SetRealVector(name string, fs []float64) error {
	p, err := r.lookup(name)
	if err != nil {
		return err
	}
	switch p.Kind() {
	case KindVec2:
		if len(fs) != 2 {
			return newError(ErrCodeTypeMismatch, name, fmt.Sprintf("2-vector needs 2 reals, got %d", len(fs)))
		}
		return r.Set(name, Vec2{fs[0], fs[1]})
	case KindVec3:
		if len(fs) != 3 {
			return newError(ErrCodeTypeMismatch, name, fmt.Sprintf("3-vector needs 3 reals, got %d", len(fs)))
		}
		return r.Set(name, Vec3{fs[0], fs[1], fs[2]})
	}
	return r.Set(name, RealVector(fs))
}

// SetStringVector sets a vector<string> parameter.
func (r *Registry) SetStringVector(name string, ss []string) error {
	return r.Set(name, StringVector(ss))
}

// ClearArray empties a dynamic vector or record container.
func (r *Registry) ClearArray(name string) error {
	p, err := r.lookup(name)
	if err != nil {
		return err
	}
	if !p.Kind().IsClearable() {
		return newError(ErrCodeTypeMismatch, name, fmt.Sprintf("clear_array on %s", p.TypeName()))
	}
	switch v := p.value.(type) {
	case IntVector:
		p.value = IntVector{}
	case RealVector:
		p.value = RealVector{}
	case StringVector:
		p.value = StringVector{}
	case RecordVector:
		p.value = NewRecordVector(v.Schema)
	case RecordMap:
		p.value = NewRecordMap(v.Schema)
	}
	p.positioned = false
	return nil
}

// PushToVector appends a record, decoded against the container schema, to a
// record vector.
func (r *Registry) PushToVector(name string, fields map[string]any) error {
	p, err := r.lookup(name)
	if err != nil {
		return err
	}
	v, ok := p.value.(RecordVector)
	if !ok {
		return newError(ErrCodeTypeMismatch, name, fmt.Sprintf("push_to_vector on %s", p.TypeName()))
	}
	rec, err := v.Schema.Decode(fields)
	if err != nil {
		return wrapError(ErrCodeSchemaViolation, name, err)
	}
	v.Records = append(v.Records, rec)
	p.value = v
	p.positioned = false
	return nil
}

// InsertToMap stores a record under key in a record map. A repeated key
// replaces the previous record.
func (r *Registry) InsertToMap(name, key string, fields map[string]any) error {
	p, err := r.lookup(name)
	if err != nil {
		return err
	}
	m, ok := p.value.(RecordMap)
	if !ok {
		return newError(ErrCodeTypeMismatch, name, fmt.Sprintf("insert_to_map on %s", p.TypeName()))
	}
	rec, err := m.Schema.Decode(fields)
	if err != nil {
		return wrapError(ErrCodeSchemaViolation, name, err)
	}
	m.Records[key] = rec
	p.positioned = false
	return nil
}

// CopyValuesFrom overwrites every parameter that src also declares with
// src's value. Parameters only one side declares are left alone. Values are
// copied in internal units.
func (r *Registry) CopyValuesFrom(src *Registry) error {
	for _, sp := range src.params {
		p, ok := r.Lookup(sp.name)
		if !ok {
			continue
		}
		if err := checkAssignable(p, sp.value); err != nil {
			return err
		}
		p.value = Clone(sp.value)
		p.positioned = false
	}
	return nil
}

// Clone returns a deep copy of the registry, metadata included.
func (r *Registry) Clone() *Registry {
	out := &Registry{
		params: make([]*Parameter, len(r.params)),
		index:  make(map[string]int, len(r.index)),
	}
	for i, p := range r.params {
		out.params[i] = p.detach()
		out.index[p.name] = i
	}
	return out
}

func (r *Registry) lookup(name string) (*Parameter, error) {
	p, ok := r.Lookup(name)
	if !ok {
		return nil, newError(ErrCodeUnknownParameter, name, "not declared")
	}
	return p, nil
}
