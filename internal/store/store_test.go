package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odakahirokazu/ANLNext/internal/engine"
	"github.com/odakahirokazu/ANLNext/internal/module"
	"github.com/odakahirokazu/ANLNext/internal/modules"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func beginRun(t *testing.T, s *Store, id string, started time.Time) {
	t.Helper()
	require.NoError(t, s.BeginRun(context.Background(), Run{
		ID: id, ChainFile: "chain.yaml", NumLoop: 100, Parallel: 2, StartedAt: started,
	}))
}

func TestOpen_CreatesAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "open #%d", i)
		require.NoError(t, s.Close())
	}
	_, err := os.Stat(path)
	require.NoError(t, err)

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	for _, table := range []string{"runs", "run_parameters", "run_counters"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, table)
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)
	for name, want := range map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1",
		"busy_timeout": "5000",
		"foreign_keys": "1",
		"user_version": "1",
	} {
		got, err := s.pragma(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestOpen_UpgradesVersionZeroJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec(schemaSQL)
	require.NoError(t, err)
	_, err = raw.Exec(`INSERT INTO runs (id, chain_file, num_loop, status, started_at) VALUES ('old', 'c.yaml', 5, 'ok', '2025-01-01T00:00:00Z')`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	var name string
	err = s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name='idx_runs_started'").Scan(&name)
	assert.NoError(t, err)
	v, err := s.pragma("user_version")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&n))
	assert.Equal(t, 1, n, "existing runs survive the upgrade")
}

func TestRunLifecycle(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	beginRun(t, s, "run-1", t0)

	r, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, r.Status)
	assert.Equal(t, 2, r.Parallel)
	assert.True(t, r.StartedAt.Equal(t0))
	assert.True(t, r.FinishedAt.IsZero())

	require.NoError(t, s.FinishRun(ctx, "run-1", "ok", t0.Add(time.Second)))
	r, err = s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "ok", r.Status)
	assert.True(t, r.FinishedAt.Equal(t0.Add(time.Second)))
}

func TestBeginRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	beginRun(t, s, "run-1", t0)
	require.NoError(t, s.BeginRun(ctx, Run{ID: "run-1", ChainFile: "other.cue", StartedAt: t0.Add(time.Hour)}))

	r, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "chain.yaml", r.ChainFile)
	assert.True(t, r.StartedAt.Equal(t0))
}

func TestMissingRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.ReadRun(ctx, "nope")
	assert.Equal(t, sql.ErrNoRows, err)

	err = s.FinishRun(ctx, "nope", "ok", t0)
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	err = s.WriteCounters(ctx, "nope", engine.Counters{})
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	_, err = s.ReadCounters(ctx, "nope")
	assert.Equal(t, sql.ErrNoRows, err)
}

func TestListRuns_NewestFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)

	beginRun(t, s, "a", t0)
	beginRun(t, s, "b", t0.Add(500*time.Millisecond))
	beginRun(t, s, "c", t0.Add(2*time.Second))
	beginRun(t, s, "d", t0.Add(2*time.Second))

	runs, err = s.ListRuns(ctx, 0)
	require.NoError(t, err)
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"d", "c", "b", "a"}, ids)

	runs, err = s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestParameters(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	beginRun(t, s, "run-1", t0)

	vec := modules.NewMyVectorModule()
	require.NoError(t, vec.Parameters().PushToVector("my_vector", map[string]any{"ID": int64(3), "x": 1.5}))
	mods := []module.Module{modules.NewMyModule(), vec}

	require.NoError(t, s.WriteParameters(ctx, "run-1", mods))
	// A second write keeps the first.
	require.NoError(t, s.WriteParameters(ctx, "run-1", []module.Module{modules.NewMyVectorModule()}))

	got, err := s.ReadParameters(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []Parameter{
		{ModuleID: "MyModule", Name: "my_parameter1", TypeName: "int", ValueJSON: "1"},
		{ModuleID: "MyModule", Name: "my_parameter2", TypeName: "double", ValueJSON: "2"},
		{ModuleID: "MyModule", Name: "my_parameter3", TypeName: "string", ValueJSON: `"test"`},
		{ModuleID: "MyModule", Name: "my_vector1", TypeName: "vector<int>", ValueJSON: "[]"},
		{ModuleID: "MyModule", Name: "my_vector2", TypeName: "vector<double>", ValueJSON: "[]"},
		{ModuleID: "MyModule", Name: "my_vector3", TypeName: "vector<string>", ValueJSON: "[]"},
		{ModuleID: "MyVectorModule", Name: "my_vector", TypeName: "vector", ValueJSON: `[{"ID":3,"type":"pixel","x":1.5,"y":0}]`},
	}, got)
}

func TestParameters_RequireRun(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteParameters(context.Background(), "nope", []module.Module{modules.NewMyModule()})
	assert.Error(t, err, "foreign key")
}

func TestCounters(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	beginRun(t, s, "run-1", t0)

	c := engine.Counters{
		Put: 10, Get: 7,
		Modules: []engine.ModuleCounter{
			{ModuleID: "gen", Entry: 10, OK: 8, Skip: 2},
			{ModuleID: "FillHistogram", Entry: 8, OK: 7, Error: 1, Quit: 1},
		},
	}
	require.NoError(t, s.WriteCounters(ctx, "run-1", c))

	got, err := s.ReadCounters(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, c, got)

	r, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), r.Put)
	assert.Equal(t, int64(7), r.Get)
}

func TestCounters_EmptyRun(t *testing.T) {
	s := createTestStore(t)
	beginRun(t, s, "run-1", t0)
	got, err := s.ReadCounters(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, engine.Counters{Modules: []engine.ModuleCounter{}}, got)
}
