package modules

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odakahirokazu/ANLNext/internal/chain"
	"github.com/odakahirokazu/ANLNext/internal/engine"
	"github.com/odakahirokazu/ANLNext/internal/module"
	"github.com/odakahirokazu/ANLNext/internal/param"
	"github.com/odakahirokazu/ANLNext/internal/status"
)

func runChain(t *testing.T, numLoop int64, build func(b *chain.Builder), opts ...engine.EngineOption) (*engine.Engine, error) {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]engine.EngineOption{engine.WithLogger(quiet), engine.WithCatalog(Catalog())}, opts...)
	e := engine.New(opts...)
	b := chain.New(e, chain.WithLogger(quiet), chain.WithConsole(false))
	build(b)
	return e, b.Run(context.Background(), numLoop)
}

func mustChain(t *testing.T, b *chain.Builder, f module.Factory, id ...string) module.Module {
	t.Helper()
	m, err := b.Chain(f, id...)
	require.NoError(t, err)
	return m
}

func valueOf(t *testing.T, m module.Module, name string) any {
	t.Helper()
	p, ok := m.Parameters().Lookup(name)
	require.True(t, ok, name)
	v, err := param.GetValue(p)
	require.NoError(t, err)
	return v
}

func TestCatalog_TypeNames(t *testing.T) {
	assert.Equal(t, []string{
		"FillHistogram", "GenerateEvents", "MyMapModule", "MyModule",
		"MyVectorModule", "QuitAt", "Recorder",
	}, Catalog().TypeNames())
}

func TestMyModule_Defaults(t *testing.T) {
	m := NewMyModule()
	assert.Equal(t, int64(1), valueOf(t, m, "my_parameter1"))
	assert.Equal(t, 2.0, valueOf(t, m, "my_parameter2"))
	assert.Equal(t, "test", valueOf(t, m, "my_parameter3"))
	assert.Equal(t, []int64{}, valueOf(t, m, "my_vector1"))
	assert.Equal(t, []float64{}, valueOf(t, m, "my_vector2"))
	assert.Equal(t, []string{}, valueOf(t, m, "my_vector3"))
}

func TestMyVectorAndMapModules(t *testing.T) {
	var vec, mp module.Module
	_, err := runChain(t, 1, func(b *chain.Builder) {
		vec = mustChain(t, b, NewMyVectorModule)
		require.NoError(t, b.PushToVector("my_vector", map[string]any{"ID": 1, "x": 0.5}))
		require.NoError(t, b.PushToVector("my_vector", map[string]any{"ID": 2, "type": "strip"}))
		mp = mustChain(t, b, NewMyMapModule)
		require.NoError(t, b.InsertToMap("my_map", "north", map[string]any{"ID": 7, "y": -1.5}))
	})
	require.NoError(t, err)

	assert.Equal(t, []map[string]any{
		{"ID": int64(1), "type": "pixel", "x": 0.5, "y": 0.0},
		{"ID": int64(2), "type": "strip", "x": 0.0, "y": 0.0},
	}, valueOf(t, vec, "my_vector"))
	assert.Equal(t, map[string]map[string]any{
		"north": {"ID": int64(7), "type": "pixel", "x": 0.0, "y": -1.5},
	}, valueOf(t, mp, "my_map"))
}

func TestGenerateEvents_FillHistogram(t *testing.T) {
	run := func() (engine.Counters, map[string]int64, []*Histogram) {
		var fill module.Module
		e, err := runChain(t, 1000, func(b *chain.Builder) {
			mustChain(t, b, NewGenerateEvents)
			require.NoError(t, b.WithParameters(map[string]any{"energy": 60.0, "seed": 42}))
			fill = mustChain(t, b, NewFillHistogram)
			require.NoError(t, b.WithParameters(map[string]any{"nbin": 50, "energy_min": 40.0, "energy_max": 80.0}))
		})
		require.NoError(t, err)
		return e.Counters(), e.FlagCounts(), fill.(*FillHistogram).Histograms()
	}

	counters, flags, hists := run()
	gen := counters.Modules[0]
	assert.Equal(t, int64(1000), counters.Put)
	assert.Equal(t, int64(1000), gen.Entry)
	assert.Equal(t, gen.OK, counters.Get)
	assert.Equal(t, int64(1000), gen.OK+gen.Skip)
	assert.Positive(t, gen.Skip)
	assert.Equal(t, gen.OK, counters.Modules[1].Entry)

	d1, d2 := flags[FlagDetector1], flags[FlagDetector2]
	assert.Equal(t, gen.OK, d1+d2, "every accepted event hit exactly one detector")
	require.Len(t, hists, 3)
	assert.Equal(t, d1, hists[0].Entries())
	assert.Equal(t, d2, hists[1].Entries())
	assert.Equal(t, d1+d2, hists[2].Entries())

	again, flagsAgain, _ := run()
	assert.Equal(t, counters, again, "same seed, same run")
	assert.Equal(t, flags, flagsAgain)
}

func TestFillHistogram_ParallelMerge(t *testing.T) {
	var fill module.Module
	e, err := runChain(t, 3000, func(b *chain.Builder) {
		mustChain(t, b, NewGenerateEvents)
		require.NoError(t, b.WithParameter("seed", 7))
		fill = mustChain(t, b, NewFillHistogram)
	}, engine.WithParallel(3))
	require.NoError(t, err)

	counters, flags := e.Counters(), e.FlagCounts()
	assert.Equal(t, int64(3000), counters.Put)
	hists := fill.(*FillHistogram).Histograms()
	require.Len(t, hists, 3)
	assert.Equal(t, flags[FlagDetector1], hists[0].Entries())
	assert.Equal(t, flags[FlagDetector2], hists[1].Entries())
	assert.Equal(t, counters.Get, hists[2].Entries(), "replica spectra are merged into the first")
}

func TestFillHistogram_ReduceRejectsForeignModule(t *testing.T) {
	m := NewFillHistogram().(*FillHistogram)
	m.sum = NewHistogram("spectrum_sum", 4, 0, 1)
	assert.Equal(t, status.QuitError, m.Reduce([]module.Module{NewMyModule()}))
}

func TestFillHistogram_MissingSource(t *testing.T) {
	_, err := runChain(t, 10, func(b *chain.Builder) {
		mustChain(t, b, NewFillHistogram)
	})
	phase, st, ok := chain.FailedPhase(err)
	require.True(t, ok)
	assert.Equal(t, chain.PhaseInitialize, phase)
	assert.Equal(t, status.Quit, st)
}

func TestHistogram_Fill(t *testing.T) {
	h := NewHistogram("h", 4, 0, 8)
	for _, x := range []float64{-1, 0, 1.9, 2, 7.999, 8, 100} {
		h.Fill(x)
	}
	assert.Equal(t, []int64{2, 1, 0, 1}, h.Bins)
	assert.Equal(t, int64(1), h.Underflow)
	assert.Equal(t, int64(2), h.Overflow)
	assert.Equal(t, int64(7), h.Entries())

	o := NewHistogram("o", 4, 0, 8)
	o.Fill(3)
	h.Add(o)
	assert.Equal(t, []int64{2, 2, 0, 1}, h.Bins)
}

func TestQuitAt(t *testing.T) {
	for _, tt := range []struct {
		name     string
		parallel int
		all      bool
	}{
		{"serial", 1, false},
		{"quit_all", 3, true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			e, err := runChain(t, -1, func(b *chain.Builder) {
				mustChain(t, b, NewQuitAt)
				require.NoError(t, b.WithParameters(map[string]any{"quit_index": 10, "quit_all": tt.all}))
			}, engine.WithParallel(tt.parallel))
			require.NoError(t, err)
			c := e.Counters()
			assert.Equal(t, int64(1), c.Modules[0].Quit)
			if tt.parallel == 1 {
				assert.Equal(t, int64(11), c.Put)
			}
		})
	}
}

func TestRecorder_Lifecycle(t *testing.T) {
	var rec module.Module
	_, err := runChain(t, 3, func(b *chain.Builder) {
		rec = mustChain(t, b, NewRecorder)
	})
	require.NoError(t, err)

	r := rec.(*Recorder)
	assert.Equal(t, []string{"Define", "PreInitialize", "Initialize", "BeginRun", "EndRun", "Finalize"}, r.Calls())
	assert.Equal(t, int64(3), r.Events())
}

func TestRecorder_FailPhase(t *testing.T) {
	var rec module.Module
	_, err := runChain(t, 3, func(b *chain.Builder) {
		rec = mustChain(t, b, NewRecorder)
		require.NoError(t, b.WithParameters(map[string]any{"fail_phase": "Initialize", "fail_status": "AS_SKIP"}))
	})
	phase, st, ok := chain.FailedPhase(err)
	require.True(t, ok)
	assert.Equal(t, chain.PhaseInitialize, phase)
	assert.Equal(t, status.Skip, st)
	assert.Equal(t, []string{"Define", "PreInitialize", "Initialize", "Finalize"}, rec.(*Recorder).Calls())
}

func TestRecorder_FailEvent(t *testing.T) {
	e, err := runChain(t, 10, func(b *chain.Builder) {
		mustChain(t, b, NewRecorder)
		require.NoError(t, b.WithParameters(map[string]any{
			"fail_phase": "Analyze", "fail_status": "AS_SKIP_ERROR", "fail_index": 4,
		}))
	})
	require.NoError(t, err)
	c := e.Counters()
	assert.Equal(t, int64(9), c.Get)
	assert.Equal(t, engine.ModuleCounter{ModuleID: "Recorder", Entry: 10, OK: 9, Error: 1, Skip: 1}, c.Modules[0])
}
