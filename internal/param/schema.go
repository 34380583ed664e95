package param

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Field is a named value. In a Schema the value is the field default; in a
// Record it is the field's current value.
type Field struct {
	Name  string
	Value Value
}

// F is a shorthand for constructing a Field.
// Example: NewSchema(F("ID", Int(0)), F("type", String("pixel")))
func F(name string, v Value) Field {
	return Field{Name: name, Value: v}
}

// Schema describes the shape of one record: ordered field names, each with
// a default that fixes the field kind.
type Schema []Field

// NewSchema builds a schema and panics if it is malformed. Schemas are
// declared at module construction, so a bad one is a programming error.
func NewSchema(fields ...Field) Schema {
	s := Schema(fields)
	if err := s.Validate(); err != nil {
		panic(err)
	}
	return s
}

// Validate checks that field names are non-empty and unique and that every
// field has a default.
func (s Schema) Validate() error {
	seen := make(map[string]bool, len(s))
	for i, f := range s {
		if f.Name == "" {
			return newError(ErrCodeSchemaViolation, "", fmt.Sprintf("schema field %d has no name", i))
		}
		if seen[f.Name] {
			return newError(ErrCodeSchemaViolation, "", fmt.Sprintf("schema field %q declared twice", f.Name))
		}
		if f.Value == nil {
			return newError(ErrCodeSchemaViolation, "", fmt.Sprintf("schema field %q has no default", f.Name))
		}
		seen[f.Name] = true
	}
	return nil
}

// Lookup returns the default of the named field.
func (s Schema) Lookup(name string) (Value, bool) {
	for _, f := range s {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Names returns the field names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Equal reports whether both schemas have the same field names and kinds in
// the same order. Defaults are not compared.
func (s Schema) Equal(o Schema) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i].Name != o[i].Name || s[i].Value.Kind() != o[i].Value.Kind() {
			return false
		}
		if nested, ok := schemaOf(s[i].Value); ok {
			other, _ := schemaOf(o[i].Value)
			if !nested.Equal(other) {
				return false
			}
		}
	}
	return true
}

// String renders the schema as "{name:kind, ...}".
func (s Schema) String() string {
	parts := make([]string, len(s))
	for i, f := range s {
		parts[i] = f.Name + ":" + f.Value.Kind().String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// NewRecord returns a record populated with the schema defaults.
func (s Schema) NewRecord() Record {
	r := make(Record, len(s))
	for i, f := range s {
		r[i] = Field{Name: f.Name, Value: Clone(f.Value)}
	}
	return r
}

// Decode builds a record from host values. Fields not present in fields take
// the schema default. Unknown fields and values of the wrong kind are
// rejected; nothing is coerced.
func (s Schema) Decode(fields map[string]any) (Record, error) {
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		if _, ok := s.Lookup(name); !ok {
			return nil, fmt.Errorf("unknown field %q (schema %s)", name, s)
		}
	}
	r := s.NewRecord()
	for i, f := range s {
		h, ok := fields[f.Name]
		if !ok {
			continue
		}
		v, err := decodeAs(f.Value, h)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		r[i].Value = v
	}
	return r, nil
}

// Check validates that r has exactly the schema's fields, in order, with
// matching kinds.
func (s Schema) Check(r Record) error {
	if len(r) != len(s) {
		return fmt.Errorf("record has %d fields, schema %s has %d", len(r), s, len(s))
	}
	for i, f := range s {
		if r[i].Name != f.Name {
			return fmt.Errorf("field %d is %q, want %q", i, r[i].Name, f.Name)
		}
		if r[i].Value == nil || r[i].Value.Kind() != f.Value.Kind() {
			return fmt.Errorf("field %q: want kind %s", f.Name, f.Value.Kind())
		}
		if nested, ok := schemaOf(f.Value); ok {
			got, _ := schemaOf(r[i].Value)
			if !nested.Equal(got) {
				return fmt.Errorf("field %q: nested schema mismatch", f.Name)
			}
		}
	}
	return nil
}

func (s Schema) clone() Schema {
	out := make(Schema, len(s))
	for i, f := range s {
		out[i] = Field{Name: f.Name, Value: Clone(f.Value)}
	}
	return out
}

// Record is one element of a record container: the schema's fields in
// schema order.
type Record []Field

// Get returns the value of the named field.
func (r Record) Get(name string) (Value, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

func (r Record) clone() Record {
	out := make(Record, len(r))
	for i, f := range r {
		out[i] = Field{Name: f.Name, Value: Clone(f.Value)}
	}
	return out
}

func (r Record) toHost() map[string]any {
	out := make(map[string]any, len(r))
	for _, f := range r {
		out[f.Name] = ToHost(f.Value)
	}
	return out
}

func schemaOf(v Value) (Schema, bool) {
	switch val := v.(type) {
	case RecordVector:
		return val.Schema, true
	case RecordMap:
		return val.Schema, true
	}
	return nil, false
}
