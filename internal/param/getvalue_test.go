package param

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestGetValue_Primitives(t *testing.T) {
	r := NewRegistry()
	r.MustDeclare("x", Int(10))
	r.MustDeclare("y", RealVector{1.3, 4.0})
	r.MustDeclare("pos", Vec3{1, 2, 3})
	r.MustDeclare("names", StringVector{"a", "b"})

	tests := []struct {
		name string
		want any
	}{
		{"x", int64(10)},
		{"y", []float64{1.3, 4.0}},
		{"pos", [3]float64{1, 2, 3}},
		{"names", []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := r.Lookup(tt.name)
			require.True(t, ok)
			got, err := GetValue(p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetValue_PushOrderPreserved(t *testing.T) {
	r := NewRegistry()
	r.MustDeclare("hits", NewRecordVector(hitSchema()))
	for i := 1; i <= 5; i++ {
		require.NoError(t, r.PushToVector("hits", map[string]any{"ID": i}))
	}

	p, _ := r.Lookup("hits")
	got, err := GetValue(p)
	require.NoError(t, err)

	recs := got.([]map[string]any)
	require.Len(t, recs, 5)
	for i, rec := range recs {
		assert.Equal(t, int64(i+1), rec["ID"])
	}
}

func TestGetValue_NestedContainers(t *testing.T) {
	inner := NewSchema(F("name", String("")), F("gain", Real(1)))
	outer := NewSchema(
		F("id", Int(0)),
		F("channels", NewRecordVector(inner)),
		F("lookup", NewRecordMap(inner)),
	)

	r := NewRegistry()
	r.MustDeclare("detectors", NewRecordMap(outer))
	require.NoError(t, r.InsertToMap("detectors", "cdte", map[string]any{
		"id": 3,
		"channels": []any{
			map[string]any{"name": "ch0"},
			map[string]any{"name": "ch1", "gain": 0.5},
		},
		"lookup": map[string]any{
			"hv": map[string]any{"name": "bias", "gain": 2.0},
		},
	}))

	p, _ := r.Lookup("detectors")
	got, err := GetValue(p)
	require.NoError(t, err)

	want := map[string]map[string]any{
		"cdte": {
			"id": int64(3),
			"channels": []map[string]any{
				{"name": "ch0", "gain": 1.0},
				{"name": "ch1", "gain": 0.5},
			},
			"lookup": map[string]map[string]any{
				"hv": {"name": "bias", "gain": 2.0},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetValue mismatch (-want +got):\n%s", diff)
	}
}

func TestGetValue_DoesNotMoveCursor(t *testing.T) {
	r := NewRegistry()
	r.MustDeclare("hits", NewRecordVector(hitSchema()))
	require.NoError(t, r.PushToVector("hits", map[string]any{"ID": 1}))
	require.NoError(t, r.PushToVector("hits", map[string]any{"ID": 2}))

	p, _ := r.Lookup("hits")
	require.NoError(t, p.RetrieveFromContainer(0))

	first, err := GetValue(p)
	require.NoError(t, err)
	second, err := GetValue(p)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	f, err := p.ValueElementInfo(0)
	require.NoError(t, err)
	assert.Equal(t, "ID", f.Name())
	assert.Equal(t, Int(1), f.Value())
}

func TestReflection_Errors(t *testing.T) {
	r := NewRegistry()
	r.MustDeclare("hits", NewRecordVector(hitSchema()))
	r.MustDeclare("n", Int(0))

	hits, _ := r.Lookup("hits")
	n, _ := r.Lookup("n")

	_, err := n.SizeOfContainer()
	assert.True(t, IsTypeMismatch(err))
	_, err = hits.MapKeyList()
	assert.True(t, IsTypeMismatch(err))
	assert.ErrorIs(t, hits.RetrieveFromContainer(0), ErrNoSuchElement)
	_, err = hits.ValueElementInfo(0)
	assert.ErrorIs(t, err, ErrNoSuchElement)
	assert.Equal(t, 4, hits.NumValueElements())
	assert.Zero(t, n.NumValueElements())
}

func TestProperty_PrimitiveRoundTrip(t *testing.T) {
	finite := rapid.Float64Range(-1e12, 1e12)
	rapid.Check(t, func(rt *rapid.T) {
		var v Value
		switch rapid.IntRange(0, 8).Draw(rt, "kind") {
		case 0:
			v = Bool(rapid.Bool().Draw(rt, "b"))
		case 1:
			v = Int(rapid.Int64().Draw(rt, "i"))
		case 2:
			v = Real(finite.Draw(rt, "f"))
		case 3:
			v = String(rapid.String().Draw(rt, "s"))
		case 4:
			v = Vec2{finite.Draw(rt, "x"), finite.Draw(rt, "y")}
		case 5:
			v = Vec3{finite.Draw(rt, "x"), finite.Draw(rt, "y"), finite.Draw(rt, "z")}
		case 6:
			v = IntVector(rapid.SliceOf(rapid.Int64()).Draw(rt, "is"))
		case 7:
			v = RealVector(rapid.SliceOf(finite).Draw(rt, "fs"))
		case 8:
			v = StringVector(rapid.SliceOf(rapid.String()).Draw(rt, "ss"))
		}

		r := NewRegistry()
		r.MustDeclare("p", Clone(v))
		if err := r.Set("p", v); err != nil {
			rt.Fatalf("set: %v", err)
		}
		got, err := r.Get("p")
		if err != nil {
			rt.Fatalf("get: %v", err)
		}
		if !Equal(v, got) {
			rt.Fatalf("round trip changed value: %#v -> %#v", v, got)
		}
	})
}

func TestProperty_MismatchedKindAlwaysFails(t *testing.T) {
	samples := []Value{
		Bool(true), Int(1), Real(1), String("s"), Vec2{}, Vec3{},
		IntVector{}, RealVector{}, StringVector{},
		NewRecordVector(hitSchema()), NewRecordMap(hitSchema()),
	}
	rapid.Check(t, func(rt *rapid.T) {
		i := rapid.IntRange(0, len(samples)-1).Draw(rt, "declared")
		off := rapid.IntRange(1, len(samples)-1).Draw(rt, "offset")
		j := (i + off) % len(samples)
		r := NewRegistry()
		r.MustDeclare("p", samples[i])
		if err := r.Set("p", samples[j]); !IsTypeMismatch(err) {
			rt.Fatalf("set %s on %s: got %v", samples[j].Kind(), samples[i].Kind(), err)
		}
	})
}
