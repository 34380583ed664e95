package param

import "fmt"

// Parameter is one named, typed value in a Registry together with its
// presentation metadata and a reflection cursor.
//
// The cursor is only meaningful for record containers; it is positioned by
// RetrieveFromContainer or RetrieveFromMap and read through
// NumValueElements and ValueElementInfo.
type Parameter struct {
	name        string
	description string
	unit        string
	factor      float64
	hidden      bool
	value       Value

	element    Record
	positioned bool
}

// Option configures parameter metadata at declaration time.
type Option func(*Parameter)

// WithDescription attaches a human-readable description.
func WithDescription(desc string) Option {
	return func(p *Parameter) { p.description = desc }
}

// WithUnit attaches a unit shown next to the value in listings. factor is
// the size of one unit in the module's internal units: real-valued
// parameters are stored as value*factor and read back as value/factor, so
// listings and host values stay in the named unit while Stored yields the
// internal value. A factor of zero means one.
func WithUnit(name string, factor float64) Option {
	return func(p *Parameter) {
		p.unit = name
		p.factor = factor
	}
}

// Hidden excludes the parameter from parameter listings.
func Hidden() Option {
	return func(p *Parameter) { p.hidden = true }
}

func (p *Parameter) Name() string        { return p.name }
func (p *Parameter) Description() string { return p.description }
func (p *Parameter) Unit() string        { return p.unit }
func (p *Parameter) IsHidden() bool      { return p.hidden }
func (p *Parameter) Kind() Kind          { return p.value.Kind() }

// UnitFactor returns the internal size of the parameter's unit.
func (p *Parameter) UnitFactor() float64 {
	if p.factor == 0 {
		return 1
	}
	return p.factor
}

// Value returns a deep copy of the current value in the parameter's unit.
func (p *Parameter) Value() Value {
	f := p.UnitFactor()
	return scaleReals(p.value, func(x float64) float64 { return x / f })
}

// Stored returns a deep copy of the current value in internal units.
func (p *Parameter) Stored() Value {
	return Clone(p.value)
}

func (p *Parameter) toInternal(v Value) Value {
	f := p.UnitFactor()
	return scaleReals(v, func(x float64) float64 { return x * f })
}

// scaleReals returns a copy of v with every real component mapped through
// f. Kinds without reals are cloned unchanged.
func scaleReals(v Value, f func(float64) float64) Value {
	switch x := v.(type) {
	case Real:
		return Real(f(float64(x)))
	case Vec2:
		return Vec2{f(x[0]), f(x[1])}
	case Vec3:
		return Vec3{f(x[0]), f(x[1]), f(x[2])}
	case RealVector:
		out := make(RealVector, len(x))
		for i, r := range x {
			out[i] = f(r)
		}
		return out
	}
	return Clone(v)
}

// TypeName returns the kind tag, e.g. "vector<double>" or "map".
func (p *Parameter) TypeName() string {
	return p.value.Kind().String()
}

// SizeOfContainer returns the number of records in a record container.
func (p *Parameter) SizeOfContainer() (int, error) {
	switch v := p.value.(type) {
	case RecordVector:
		return v.Len(), nil
	case RecordMap:
		return v.Len(), nil
	}
	return 0, p.notContainer("size_of_container")
}

// MapKeyList returns the keys of a record map in sorted order.
func (p *Parameter) MapKeyList() ([]string, error) {
	m, ok := p.value.(RecordMap)
	if !ok {
		return nil, newError(ErrCodeTypeMismatch, p.name, fmt.Sprintf("map_key_list on %s", p.TypeName()))
	}
	return m.Keys(), nil
}

// RetrieveFromContainer positions the cursor on record index of a record
// vector.
func (p *Parameter) RetrieveFromContainer(index int) error {
	v, ok := p.value.(RecordVector)
	if !ok {
		return newError(ErrCodeTypeMismatch, p.name, fmt.Sprintf("retrieve_from_container(%d) on %s", index, p.TypeName()))
	}
	if index < 0 || index >= len(v.Records) {
		p.positioned = false
		return newError(ErrCodeNoSuchElement, p.name, fmt.Sprintf("index %d out of range [0,%d)", index, len(v.Records)))
	}
	p.element = v.Records[index]
	p.positioned = true
	return nil
}

// RetrieveFromMap positions the cursor on the record stored under key.
func (p *Parameter) RetrieveFromMap(key string) error {
	m, ok := p.value.(RecordMap)
	if !ok {
		return newError(ErrCodeTypeMismatch, p.name, fmt.Sprintf("retrieve_from_container(%q) on %s", key, p.TypeName()))
	}
	r, ok := m.Records[key]
	if !ok {
		p.positioned = false
		return newError(ErrCodeNoSuchElement, p.name, fmt.Sprintf("no key %q", key))
	}
	p.element = r
	p.positioned = true
	return nil
}

// NumValueElements returns the number of fields in one record of the
// container, or 0 for non-container kinds.
func (p *Parameter) NumValueElements() int {
	if s, ok := schemaOf(p.value); ok {
		return len(s)
	}
	return 0
}

// ValueElementInfo returns field i of the record under the cursor as a
// detached parameter named after the field.
func (p *Parameter) ValueElementInfo(i int) (*Parameter, error) {
	if !p.positioned {
		return nil, newError(ErrCodeNoSuchElement, p.name, "cursor is not positioned")
	}
	if i < 0 || i >= len(p.element) {
		return nil, newError(ErrCodeNoSuchElement, p.name, fmt.Sprintf("field %d out of range [0,%d)", i, len(p.element)))
	}
	f := p.element[i]
	return &Parameter{name: f.Name, value: Clone(f.Value)}, nil
}

// detach returns a copy sharing no state with p and with a reset cursor.
func (p *Parameter) detach() *Parameter {
	return &Parameter{
		name:        p.name,
		description: p.description,
		unit:        p.unit,
		factor:      p.factor,
		hidden:      p.hidden,
		value:       Clone(p.value),
	}
}

func (p *Parameter) notContainer(op string) error {
	return newError(ErrCodeTypeMismatch, p.name, fmt.Sprintf("%s on %s", op, p.TypeName()))
}
