package module

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odakahirokazu/ANLNext/internal/param"
	"github.com/odakahirokazu/ANLNext/internal/status"
)

type counter struct {
	Base
	calls int
}

func newCounter() Module {
	m := &counter{Base: NewBase("Counter", "1.0")}
	m.Parameters().MustDeclare("limit", param.Int(3))
	return m
}

func (m *counter) Analyze(context.Context) status.Status {
	m.calls++
	return status.OK
}

type cloning struct {
	Base
	state []int
}

func (m *cloning) Clone() Module {
	return &cloning{Base: m.CloneBase(), state: append([]int(nil), m.state...)}
}

func TestBase_Defaults(t *testing.T) {
	m := newCounter()
	ctx := context.Background()

	assert.Equal(t, "Counter", m.ModuleID())
	assert.Equal(t, "Counter", m.TypeName())
	assert.Equal(t, "1.0", m.Version())
	assert.True(t, m.IsOn())
	for _, phase := range []func(context.Context) status.Status{
		m.Define, m.PreInitialize, m.Initialize, m.BeginRun, m.EndRun, m.Finalize,
	} {
		assert.Equal(t, status.OK, phase(ctx))
	}

	m.SetModuleID("Counter_2")
	m.SetOn(false)
	m.AddAlias("c2")
	m.AddAlias("c2")
	assert.Equal(t, "Counter", m.TypeName(), "type name is immutable")
	assert.False(t, m.IsOn())
	assert.Equal(t, []string{"c2"}, m.Aliases())
	assert.True(t, Matches(m, "c2"))
	assert.True(t, Matches(m, "Counter_2"))
	assert.False(t, Matches(m, "Counter"))
}

func TestCatalog(t *testing.T) {
	c := NewCatalog().MustRegister(newCounter)
	assert.Error(t, c.Register(newCounter))

	f, ok := c.Lookup("Counter")
	require.True(t, ok)
	assert.Equal(t, "Counter", f().TypeName())
	assert.Equal(t, []string{"Counter"}, c.TypeNames())
}

func TestReplicate_FromCatalog(t *testing.T) {
	c := NewCatalog().MustRegister(newCounter)
	m := newCounter()
	m.SetModuleID("second")
	m.AddAlias("alt")
	require.NoError(t, m.Parameters().SetInteger("limit", 9))

	cp, err := Replicate(m, c)
	require.NoError(t, err)
	assert.NotSame(t, m, cp)
	assert.Equal(t, "second", cp.ModuleID())
	assert.Equal(t, []string{"alt"}, cp.Aliases())
	v, _ := cp.Parameters().Get("limit")
	assert.Equal(t, param.Int(9), v)

	require.NoError(t, cp.Parameters().SetInteger("limit", 1))
	v, _ = m.Parameters().Get("limit")
	assert.Equal(t, param.Int(9), v, "replica must not share the registry")
}

func TestReplicate_Cloner(t *testing.T) {
	m := &cloning{Base: NewBase("Cloning", "2.0"), state: []int{1}}
	cp, err := Replicate(m, nil)
	require.NoError(t, err)
	cp.(*cloning).state[0] = 5
	assert.Equal(t, []int{1}, m.state)

	_, err = Replicate(newCounter(), nil)
	assert.Error(t, err)
	_, err = Replicate(newCounter(), NewCatalog())
	assert.Error(t, err)
}

func TestFlags(t *testing.T) {
	f := NewFlags()
	f.Define("high")
	f.Define("low")
	f.Define("high")

	assert.Error(t, f.Set("missing"))
	require.NoError(t, f.Set("low"))
	require.NoError(t, f.Set("high"))
	assert.Equal(t, []string{"high", "low"}, f.Active())

	f.Reset("high")
	assert.False(t, f.Get("high"))
	assert.True(t, f.Get("low"))

	f.ResetAll()
	assert.Empty(t, f.Active())
	assert.Equal(t, []string{"high", "low"}, f.Keys())
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, int64(-1), EventIndex(ctx))
	assert.Equal(t, 0, Replica(ctx))
	assert.NotNil(t, FlagsFrom(ctx))

	f := NewFlags()
	ctx = WithReplica(WithEventIndex(WithFlags(ctx, f), 42), 3)
	assert.Same(t, f, FlagsFrom(ctx))
	assert.Equal(t, int64(42), EventIndex(ctx))
	assert.Equal(t, 3, Replica(ctx))
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	_, ok := Lookup(ctx, "Counter")
	assert.False(t, ok)

	m := newCounter()
	m.AddAlias("cnt")
	ctx = WithFinder(ctx, func(name string) (Module, bool) {
		if Matches(m, name) {
			return m, true
		}
		return nil, false
	})
	got, ok := Lookup(ctx, "cnt")
	require.True(t, ok)
	assert.Same(t, m, got)
	_, ok = Lookup(ctx, "other")
	assert.False(t, ok)
}
