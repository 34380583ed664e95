package param

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hitSchema() Schema {
	return NewSchema(
		F("ID", Int(0)),
		F("type", String("pixel")),
		F("x", Real(0)),
		F("y", Real(0)),
	)
}

func TestDeclare_Duplicate(t *testing.T) {
	r := NewRegistry()
	_, err := r.Declare("x", Int(10))
	require.NoError(t, err)

	for _, def := range []Value{Int(1), Real(1), String("a"), NewRecordVector(hitSchema())} {
		_, err = r.Declare("x", def)
		assert.True(t, IsDuplicateParameter(err), "kind %s", def.Kind())
		assert.ErrorIs(t, err, ErrDuplicateParameter)
	}
	assert.Equal(t, 1, r.Len())
}

func TestDeclare_RejectsBadSchema(t *testing.T) {
	r := NewRegistry()
	bad := NewRecordVector(Schema{F("a", Int(0)), F("a", Real(0))})
	_, err := r.Declare("v", bad)
	assert.True(t, IsSchemaViolation(err))
}

func TestDeclare_Metadata(t *testing.T) {
	r := NewRegistry()
	p := r.MustDeclare("energy", Real(1.5), WithDescription("line energy"), WithUnit("keV", 1e-3), Hidden())
	assert.Equal(t, "energy", p.Name())
	assert.Equal(t, "line energy", p.Description())
	assert.Equal(t, "keV", p.Unit())
	assert.Equal(t, 1e-3, p.UnitFactor())
	assert.True(t, p.IsHidden())
	assert.Equal(t, "double", p.TypeName())
}

func TestUnit_ScalesReals(t *testing.T) {
	r := NewRegistry()
	p := r.MustDeclare("energy", Real(2.0), WithUnit("MeV", 1000))
	assert.Equal(t, Real(2.0), p.Value())
	assert.Equal(t, Real(2000), p.Stored())

	require.NoError(t, r.SetReal("energy", 1.0))
	v, err := r.Get("energy")
	require.NoError(t, err)
	assert.Equal(t, Real(1.0), v)
	v, err = r.Stored("energy")
	require.NoError(t, err)
	assert.Equal(t, Real(1000), v)

	host, err := GetValue(p)
	require.NoError(t, err)
	assert.Equal(t, 1.0, host)

	r.MustDeclare("window", RealVector{}, WithUnit("MeV", 1000))
	require.NoError(t, r.SetRealVector("window", []float64{0.5, 1.5}))
	v, _ = r.Stored("window")
	assert.Equal(t, RealVector{500, 1500}, v)
	v, _ = r.Get("window")
	assert.Equal(t, RealVector{0.5, 1.5}, v)

	r.MustDeclare("origin", Vec3{}, WithUnit("cm", 10))
	require.NoError(t, r.SetRealVector("origin", []float64{1, 2, 3}))
	v, _ = r.Stored("origin")
	assert.Equal(t, Vec3{10, 20, 30}, v)
}

func TestUnit_LeavesOtherKinds(t *testing.T) {
	r := NewRegistry()
	r.MustDeclare("n", Int(3), WithUnit("count", 1000))
	v, _ := r.Stored("n")
	assert.Equal(t, Int(3), v)

	p := r.MustDeclare("x", Real(4))
	assert.Equal(t, 1.0, p.UnitFactor())
	assert.Equal(t, p.Value(), p.Stored())
}

func TestUnit_CopyAndClone(t *testing.T) {
	src := NewRegistry()
	src.MustDeclare("energy", Real(1), WithUnit("MeV", 1000))
	dst := src.Clone()
	v, _ := dst.Stored("energy")
	assert.Equal(t, Real(1000), v)

	require.NoError(t, src.SetReal("energy", 3))
	require.NoError(t, dst.CopyValuesFrom(src))
	v, _ = dst.Get("energy")
	assert.Equal(t, Real(3), v, "values are copied without scaling twice")
}

func TestSet_UnknownParameter(t *testing.T) {
	r := NewRegistry()
	err := r.Set("nope", Int(1))
	assert.True(t, IsUnknownParameter(err))

	_, err = r.Get("nope")
	assert.True(t, IsUnknownParameter(err))
}

func TestSet_NeverCoerces(t *testing.T) {
	r := NewRegistry()
	r.MustDeclare("i", Int(1))
	r.MustDeclare("d", Real(1))
	r.MustDeclare("s", String(""))

	assert.True(t, IsTypeMismatch(r.SetReal("i", 2.0)))
	assert.True(t, IsTypeMismatch(r.SetInteger("d", 2)))
	assert.True(t, IsTypeMismatch(r.SetBool("s", true)))
	assert.True(t, IsTypeMismatch(r.Set("i", nil)))

	v, err := r.Get("i")
	require.NoError(t, err)
	assert.Equal(t, Int(1), v, "failed set must not modify the value")
}

func TestSet_RecordContainerSchemaMustMatch(t *testing.T) {
	r := NewRegistry()
	r.MustDeclare("hits", NewRecordVector(hitSchema()))

	other := NewRecordVector(NewSchema(F("ID", Int(0))))
	assert.True(t, IsTypeMismatch(r.Set("hits", other)))

	same := NewRecordVector(hitSchema())
	same.Records = append(same.Records, hitSchema().NewRecord())
	require.NoError(t, r.Set("hits", same))
}

func TestSetRealVector_FixedTuples(t *testing.T) {
	r := NewRegistry()
	r.MustDeclare("pos", Vec3{})
	r.MustDeclare("xy", Vec2{})

	require.NoError(t, r.SetRealVector("pos", []float64{1, 2, 3}))
	v, _ := r.Get("pos")
	assert.Equal(t, Vec3{1, 2, 3}, v)

	assert.True(t, IsTypeMismatch(r.SetRealVector("xy", []float64{1, 2, 3})))
	require.NoError(t, r.SetVec2("xy", 0.5, -0.5))
	v, _ = r.Get("xy")
	assert.Equal(t, Vec2{0.5, -0.5}, v)
}

func TestGet_ReturnsCopy(t *testing.T) {
	r := NewRegistry()
	r.MustDeclare("v", IntVector{1, 2})

	v, err := r.Get("v")
	require.NoError(t, err)
	v.(IntVector)[0] = 99

	again, _ := r.Get("v")
	assert.Equal(t, IntVector{1, 2}, again)
}

func TestClearArray(t *testing.T) {
	r := NewRegistry()
	r.MustDeclare("v", StringVector{"a"})
	r.MustDeclare("hits", NewRecordVector(hitSchema()))
	r.MustDeclare("n", Int(0))
	require.NoError(t, r.PushToVector("hits", map[string]any{"ID": 1}))

	require.NoError(t, r.ClearArray("v"))
	require.NoError(t, r.ClearArray("hits"))
	assert.True(t, IsTypeMismatch(r.ClearArray("n")))

	v, _ := r.Get("v")
	assert.Empty(t, v)
	p, _ := r.Lookup("hits")
	n, err := p.SizeOfContainer()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPushToVector(t *testing.T) {
	r := NewRegistry()
	r.MustDeclare("hits", NewRecordVector(hitSchema()))
	r.MustDeclare("n", Int(0))

	t.Run("not a record vector", func(t *testing.T) {
		assert.True(t, IsTypeMismatch(r.PushToVector("n", map[string]any{})))
	})

	t.Run("unknown field", func(t *testing.T) {
		err := r.PushToVector("hits", map[string]any{"z": 1.0})
		assert.True(t, IsSchemaViolation(err))
		assert.ErrorIs(t, err, ErrSchemaViolation)
	})

	t.Run("wrong field kind", func(t *testing.T) {
		err := r.PushToVector("hits", map[string]any{"ID": 1.5})
		assert.True(t, IsSchemaViolation(err))
	})

	t.Run("missing fields take defaults", func(t *testing.T) {
		require.NoError(t, r.PushToVector("hits", map[string]any{"ID": 7, "x": 1.25}))
		p, _ := r.Lookup("hits")
		got, err := GetValue(p)
		require.NoError(t, err)
		assert.Equal(t, []map[string]any{
			{"ID": int64(7), "type": "pixel", "x": 1.25, "y": 0.0},
		}, got)
	})
}

func TestInsertToMap_RepeatedKeyOverwrites(t *testing.T) {
	r := NewRegistry()
	r.MustDeclare("pixels", NewRecordMap(hitSchema()))

	require.NoError(t, r.InsertToMap("pixels", "a", map[string]any{"ID": 1}))
	require.NoError(t, r.InsertToMap("pixels", "b", map[string]any{"ID": 2}))
	require.NoError(t, r.InsertToMap("pixels", "a", map[string]any{"ID": 3, "type": "strip"}))

	p, _ := r.Lookup("pixels")
	keys, err := p.MapKeyList()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	got, err := GetValue(p)
	require.NoError(t, err)
	m := got.(map[string]map[string]any)
	assert.Equal(t, int64(3), m["a"]["ID"])
	assert.Equal(t, "strip", m["a"]["type"])

	assert.True(t, IsTypeMismatch(r.PushToVector("pixels", map[string]any{})))
}

func TestRegistry_CloneIsIndependent(t *testing.T) {
	r := NewRegistry()
	r.MustDeclare("hits", NewRecordVector(hitSchema()), WithDescription("hits"))
	require.NoError(t, r.PushToVector("hits", map[string]any{"ID": 1}))

	c := r.Clone()
	require.NoError(t, c.PushToVector("hits", map[string]any{"ID": 2}))

	orig, _ := r.Lookup("hits")
	n, _ := orig.SizeOfContainer()
	assert.Equal(t, 1, n)
	cp, _ := c.Lookup("hits")
	n, _ = cp.SizeOfContainer()
	assert.Equal(t, 2, n)
	assert.Equal(t, "hits", cp.Description())
}

func TestRegistry_CopyValuesFrom(t *testing.T) {
	src := NewRegistry()
	src.MustDeclare("a", Int(5))
	src.MustDeclare("extra", String("x"))

	dst := NewRegistry()
	dst.MustDeclare("a", Int(1))
	dst.MustDeclare("b", Real(2))

	require.NoError(t, dst.CopyValuesFrom(src))
	a, _ := dst.Get("a")
	b, _ := dst.Get("b")
	assert.Equal(t, Int(5), a)
	assert.Equal(t, Real(2), b)
	_, ok := dst.Lookup("extra")
	assert.False(t, ok)
}

func TestError_Format(t *testing.T) {
	err := newError(ErrCodeUnknownParameter, "x", "not declared")
	assert.Equal(t, `UNKNOWN_PARAMETER: parameter "x": not declared`, err.Error())

	wrapped := wrapError(ErrCodeSchemaViolation, "hits", errors.New("unknown field"))
	assert.Equal(t, `SCHEMA_VIOLATION: parameter "hits": unknown field`, wrapped.Error())
	assert.False(t, errors.Is(wrapped, ErrTypeMismatch))
}
