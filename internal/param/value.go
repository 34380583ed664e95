package param

import (
	"maps"
	"reflect"
	"slices"
)

// Value is a sealed interface over the parameter kinds.
// Only the types declared in this file implement it.
type Value interface {
	Kind() Kind
	paramValue()
}

// Bool is a boolean parameter value.
type Bool bool

// Int is an integer parameter value. It is distinct from Real; the two are
// never converted into each other.
type Int int64

// Real is a floating point parameter value.
type Real float64

// String is a string parameter value.
type String string

// Vec2 is a fixed pair of reals.
type Vec2 [2]float64

// Vec3 is a fixed triple of reals.
type Vec3 [3]float64

// IntVector is a dynamic vector of integers.
type IntVector []int64

// RealVector is a dynamic vector of reals.
type RealVector []float64

// StringVector is a dynamic vector of strings.
type StringVector []string

// RecordVector is an ordered list of records sharing one schema.
// Push order is preserved.
type RecordVector struct {
	Schema  Schema
	Records []Record
}

// RecordMap is a string-keyed map of records sharing one schema.
// Keys are unique; iteration order is not meaningful.
type RecordMap struct {
	Schema  Schema
	Records map[string]Record
}

func (Bool) Kind() Kind         { return KindBool }
func (Int) Kind() Kind          { return KindInt }
func (Real) Kind() Kind         { return KindReal }
func (String) Kind() Kind       { return KindString }
func (Vec2) Kind() Kind         { return KindVec2 }
func (Vec3) Kind() Kind         { return KindVec3 }
func (IntVector) Kind() Kind    { return KindIntVector }
func (RealVector) Kind() Kind   { return KindRealVector }
func (StringVector) Kind() Kind { return KindStringVector }
func (RecordVector) Kind() Kind { return KindRecordVector }
func (RecordMap) Kind() Kind    { return KindRecordMap }

func (Bool) paramValue()         {}
func (Int) paramValue()          {}
func (Real) paramValue()         {}
func (String) paramValue()       {}
func (Vec2) paramValue()         {}
func (Vec3) paramValue()         {}
func (IntVector) paramValue()    {}
func (RealVector) paramValue()   {}
func (StringVector) paramValue() {}
func (RecordVector) paramValue() {}
func (RecordMap) paramValue()    {}

// NewRecordVector returns an empty record list with the given schema.
func NewRecordVector(schema Schema) RecordVector {
	return RecordVector{Schema: schema, Records: []Record{}}
}

// NewRecordMap returns an empty record map with the given schema.
func NewRecordMap(schema Schema) RecordMap {
	return RecordMap{Schema: schema, Records: map[string]Record{}}
}

// Len returns the number of records.
func (v RecordVector) Len() int { return len(v.Records) }

// Len returns the number of records.
func (m RecordMap) Len() int { return len(m.Records) }

// Keys returns the map keys in sorted order.
func (m RecordMap) Keys() []string {
	return slices.Sorted(maps.Keys(m.Records))
}

// Clone returns a deep copy of v. Slices in the copy are never nil.
func Clone(v Value) Value {
	switch val := v.(type) {
	case nil:
		return nil
	case IntVector:
		return IntVector(append(make([]int64, 0, len(val)), val...))
	case RealVector:
		return RealVector(append(make([]float64, 0, len(val)), val...))
	case StringVector:
		return StringVector(append(make([]string, 0, len(val)), val...))
	case RecordVector:
		out := RecordVector{Schema: val.Schema.clone(), Records: make([]Record, len(val.Records))}
		for i, r := range val.Records {
			out.Records[i] = r.clone()
		}
		return out
	case RecordMap:
		out := RecordMap{Schema: val.Schema.clone(), Records: make(map[string]Record, len(val.Records))}
		for k, r := range val.Records {
			out.Records[k] = r.clone()
		}
		return out
	default:
		// Scalars and fixed tuples are plain values.
		return v
	}
}

// Equal reports whether a and b have the same kind and contents.
// Record containers must also have equal schemas.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case RecordVector:
		if !av.Schema.Equal(b.(RecordVector).Schema) {
			return false
		}
	case RecordMap:
		if !av.Schema.Equal(b.(RecordMap).Schema) {
			return false
		}
	}
	return reflect.DeepEqual(ToHost(a), ToHost(b))
}

// ToHost converts v into plain Go values:
//
//	Bool → bool, Int → int64, Real → float64, String → string
//	Vec2 → [2]float64, Vec3 → [3]float64
//	IntVector → []int64, RealVector → []float64, StringVector → []string
//	RecordVector → []map[string]any
//	RecordMap → map[string]map[string]any
func ToHost(v Value) any {
	switch val := v.(type) {
	case Bool:
		return bool(val)
	case Int:
		return int64(val)
	case Real:
		return float64(val)
	case String:
		return string(val)
	case Vec2:
		return [2]float64(val)
	case Vec3:
		return [3]float64(val)
	case IntVector:
		return append(make([]int64, 0, len(val)), val...)
	case RealVector:
		return append(make([]float64, 0, len(val)), val...)
	case StringVector:
		return append(make([]string, 0, len(val)), val...)
	case RecordVector:
		out := make([]map[string]any, len(val.Records))
		for i, r := range val.Records {
			out[i] = r.toHost()
		}
		return out
	case RecordMap:
		out := make(map[string]map[string]any, len(val.Records))
		for k, r := range val.Records {
			out[k] = r.toHost()
		}
		return out
	default:
		return nil
	}
}
