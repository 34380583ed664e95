package param

import (
	"fmt"
	"maps"
	"math"
	"slices"
)

// FromHost infers a Value from a plain Go value.
//
// Integers of any width become Int and floats become Real; the two are never
// merged for scalars. A list of numbers becomes IntVector when every element
// is integral and RealVector when at least one element is a float. Empty
// lists and maps have no inferable kind and are rejected, as are record
// shapes, which need a schema (see Schema.Decode).
func FromHost(h any) (Value, error) {
	switch v := h.(type) {
	case nil:
		return nil, fmt.Errorf("nil has no parameter kind")
	case Value:
		return Clone(v), nil
	case bool:
		return Bool(v), nil
	case string:
		return String(v), nil
	case float32:
		return Real(v), nil
	case float64:
		return Real(v), nil
	case [2]float64:
		return Vec2(v), nil
	case [3]float64:
		return Vec3(v), nil
	case []int64:
		return Clone(IntVector(v)), nil
	case []int:
		out := make(IntVector, len(v))
		for i, n := range v {
			out[i] = int64(n)
		}
		return out, nil
	case []float64:
		return Clone(RealVector(v)), nil
	case []string:
		return Clone(StringVector(v)), nil
	case []any:
		return listFromHost(v)
	}
	if n, ok := asInt64(h); ok {
		return Int(n), nil
	}
	switch h.(type) {
	case uint, uint64:
		return nil, fmt.Errorf("integer %v overflows int64", h)
	}
	return nil, fmt.Errorf("unsupported host type %T", h)
}

func listFromHost(list []any) (Value, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("empty list has no parameter kind")
	}
	if _, ok := list[0].(string); ok {
		out := make(StringVector, len(list))
		for i, e := range list {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("list element %d is %T, want string", i, e)
			}
			out[i] = s
		}
		return out, nil
	}
	ints := make(IntVector, 0, len(list))
	reals := make(RealVector, 0, len(list))
	allInt := true
	for i, e := range list {
		if n, ok := asInt64(e); ok {
			ints = append(ints, n)
			reals = append(reals, float64(n))
			continue
		}
		f, ok := asFloat64(e)
		if !ok {
			return nil, fmt.Errorf("list element %d is %T, want number", i, e)
		}
		allInt = false
		reals = append(reals, f)
	}
	if allInt {
		return ints, nil
	}
	return reals, nil
}

// decodeAs converts h into a value of the same kind (and schema) as
// template. It is strict: an integer never decodes as a real or vice versa.
func decodeAs(template Value, h any) (Value, error) {
	if v, ok := h.(Value); ok {
		if v.Kind() != template.Kind() {
			return nil, fmt.Errorf("got %s, want %s", v.Kind(), template.Kind())
		}
		if want, ok := schemaOf(template); ok {
			got, _ := schemaOf(v)
			if !want.Equal(got) {
				return nil, fmt.Errorf("record schema %s does not match %s", got, want)
			}
		}
		return Clone(v), nil
	}

	switch t := template.(type) {
	case Bool:
		if b, ok := h.(bool); ok {
			return Bool(b), nil
		}
	case Int:
		if n, ok := asInt64(h); ok {
			return Int(n), nil
		}
	case Real:
		if f, ok := asFloat64(h); ok {
			return Real(f), nil
		}
	case String:
		if s, ok := h.(string); ok {
			return String(s), nil
		}
	case Vec2:
		if fs, ok := realsOf(h); ok && len(fs) == 2 {
			return Vec2{fs[0], fs[1]}, nil
		}
	case Vec3:
		if fs, ok := realsOf(h); ok && len(fs) == 3 {
			return Vec3{fs[0], fs[1], fs[2]}, nil
		}
	case IntVector:
		if ns, ok := intsOf(h); ok {
			return IntVector(ns), nil
		}
	case RealVector:
		if fs, ok := realsOf(h); ok {
			return RealVector(fs), nil
		}
	case StringVector:
		if ss, ok := stringsOf(h); ok {
			return StringVector(ss), nil
		}
	case RecordVector:
		return decodeRecordVector(t.Schema, h)
	case RecordMap:
		return decodeRecordMap(t.Schema, h)
	}
	return nil, fmt.Errorf("cannot use %T as %s", h, template.Kind())
}

func decodeRecordVector(schema Schema, h any) (Value, error) {
	var elems []map[string]any
	switch v := h.(type) {
	case []map[string]any:
		elems = v
	case []any:
		for i, e := range v {
			m, ok := e.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("element %d is %T, want record", i, e)
			}
			elems = append(elems, m)
		}
	default:
		return nil, fmt.Errorf("cannot use %T as %s", h, KindRecordVector)
	}
	out := NewRecordVector(schema.clone())
	for i, m := range elems {
		r, err := schema.Decode(m)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out.Records = append(out.Records, r)
	}
	return out, nil
}

func decodeRecordMap(schema Schema, h any) (Value, error) {
	elems := map[string]map[string]any{}
	switch v := h.(type) {
	case map[string]map[string]any:
		elems = v
	case map[string]any:
		for k, e := range v {
			m, ok := e.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("key %q is %T, want record", k, e)
			}
			elems[k] = m
		}
	default:
		return nil, fmt.Errorf("cannot use %T as %s", h, KindRecordMap)
	}
	out := NewRecordMap(schema.clone())
	for _, k := range slices.Sorted(maps.Keys(elems)) {
		r, err := schema.Decode(elems[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out.Records[k] = r
	}
	return out, nil
}

func asInt64(h any) (int64, bool) {
	switch n := h.(type) {
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
	case Int:
		return int64(n), true
	}
	return 0, false
}

func fromUnsigned(n uint64) (int64, bool) {
	if n > math.MaxInt64 {
		return 0, false
	}
	return int64(n), true
}

func asFloat64(h any) (float64, bool) {
	switch f := h.(type) {
	case float32:
		return float64(f), true
	case float64:
		return f, true
	case Real:
		return float64(f), true
	}
	return 0, false
}

func intsOf(h any) ([]int64, bool) {
	switch v := h.(type) {
	case []int64:
		return append(make([]int64, 0, len(v)), v...), true
	case []int:
		out := make([]int64, len(v))
		for i, n := range v {
			out[i] = int64(n)
		}
		return out, true
	case []any:
		out := make([]int64, len(v))
		for i, e := range v {
			n, ok := asInt64(e)
			if !ok {
				return nil, false
			}
			out[i] = n
		}
		return out, true
	}
	return nil, false
}

func realsOf(h any) ([]float64, bool) {
	switch v := h.(type) {
	case []float64:
		return append(make([]float64, 0, len(v)), v...), true
	case [2]float64:
		return v[:], true
	case [3]float64:
		return v[:], true
	case []any:
		out := make([]float64, len(v))
		for i, e := range v {
			f, ok := asFloat64(e)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	}
	return nil, false
}

func stringsOf(h any) ([]string, bool) {
	switch v := h.(type) {
	case []string:
		return append(make([]string, 0, len(v)), v...), true
	case []any:
		out := make([]string, len(v))
		for i, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	}
	return nil, false
}
