package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odakahirokazu/ANLNext/internal/engine"
)

func decodeRun(t *testing.T, resp response) RunResult {
	t.Helper()
	var r RunResult
	require.NoError(t, json.Unmarshal(resp.Data, &r))
	return r
}

func TestRun_QuitEndsLoop(t *testing.T) {
	path := writeFile(t, "chain.yaml", quitChain)

	resp, err := executeJSON(t, "run", path)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)

	r := decodeRun(t, resp)
	assert.NotEmpty(t, r.RunID)
	assert.Equal(t, path, r.ChainFile)
	assert.Equal(t, int64(10), r.NumLoop)
	assert.Equal(t, 1, r.Parallel)
	assert.Equal(t, "ok", r.Status)
	assert.Equal(t, int64(7), r.Counters.Put)
	assert.Equal(t, int64(6), r.Counters.Get)
	assert.Equal(t, []engine.ModuleCounter{
		{ModuleID: "MyModule", Entry: 7, OK: 7},
		{ModuleID: "QuitAt", Entry: 7, OK: 6, Quit: 1},
	}, r.Counters.Modules)
}

func TestRun_LoopsFlagOverridesFile(t *testing.T) {
	path := writeFile(t, "chain.yaml", "num_loop: 10\nmodules:\n  - type: MyModule\n")

	resp, err := executeJSON(t, "run", path, "--loops", "3")
	require.NoError(t, err)
	r := decodeRun(t, resp)
	assert.Equal(t, int64(3), r.NumLoop)
	assert.Equal(t, int64(3), r.Counters.Put)
	assert.Equal(t, int64(3), r.Counters.Get)
}

func TestRun_NoLoopCount(t *testing.T) {
	path := writeFile(t, "chain.yaml", "modules:\n  - type: MyModule\n")

	resp, err := executeJSON(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error.Message, "no loop count")
}

func TestRun_Parallel(t *testing.T) {
	path := writeFile(t, "chain.yaml", "num_loop: 100\nmodules:\n  - type: MyModule\n")

	resp, err := executeJSON(t, "run", path, "--parallel", "3")
	require.NoError(t, err)
	r := decodeRun(t, resp)
	assert.Equal(t, 3, r.Parallel)
	assert.Equal(t, int64(100), r.Counters.Put)
	require.Len(t, r.Counters.Modules, 1)
	assert.Equal(t, int64(100), r.Counters.Modules[0].Entry)
}

func TestRun_InitializeFailure(t *testing.T) {
	path := writeFile(t, "chain.yaml", `num_loop: 10
modules:
  - type: Recorder
    parameters: {fail_phase: Initialize, fail_status: AS_QUIT_ERROR}
`)

	resp, err := executeJSON(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeRunFailed, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "Initialize()")

	r := decodeRun(t, resp)
	assert.Equal(t, "failed", r.Status)
	assert.Equal(t, "Initialize", r.FailedPhase)
	assert.Zero(t, r.Counters.Put)
}

func TestRun_ParameterTypeMismatch(t *testing.T) {
	path := writeFile(t, "chain.yaml", `num_loop: 10
modules:
  - type: MyModule
    parameters: {my_parameter1: "five"}
`)

	resp, err := executeJSON(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeParameters, resp.Error.Code)

	r := decodeRun(t, resp)
	assert.Equal(t, "LoadAllParameters", r.FailedPhase)
}

func TestRun_UnknownModuleType(t *testing.T) {
	path := writeFile(t, "chain.yaml", "num_loop: 1\nmodules:\n  - type: NoSuchModule\n")

	resp, err := executeJSON(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E205", resp.Error.Code)
}

func TestRun_TextSummary(t *testing.T) {
	path := writeFile(t, "chain.yaml", quitChain)

	out, err := execute(t, "run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "chain "+path+": ok")
	assert.Contains(t, out, "PUT")
	assert.Contains(t, out, "QuitAt")
}

func TestRun_RecordsJournal(t *testing.T) {
	path := writeFile(t, "chain.yaml", quitChain)
	db := filepath.Join(t.TempDir(), "runs.db")

	resp, err := executeJSON(t, "run", path, "--db", db)
	require.NoError(t, err)
	r := decodeRun(t, resp)

	resp, err = executeJSON(t, "history", "--db", db, r.RunID)
	require.NoError(t, err)
	var detail HistoryDetail
	require.NoError(t, json.Unmarshal(resp.Data, &detail))

	assert.Equal(t, r.RunID, detail.Run.ID)
	assert.Equal(t, "ok", detail.Run.Status)
	assert.Equal(t, int64(10), detail.Run.NumLoop)
	assert.NotEmpty(t, detail.Run.FinishedAt)
	assert.Equal(t, r.Counters, detail.Counters)

	values := make(map[string]string)
	for _, p := range detail.Parameters {
		values[p.ModuleID+"."+p.Name] = p.Value
	}
	assert.Equal(t, "5", values["MyModule.my_parameter1"])
	assert.Equal(t, "6", values["QuitAt.quit_index"])
}

func TestRun_RecordsFailedRun(t *testing.T) {
	path := writeFile(t, "chain.yaml", `num_loop: 10
modules:
  - type: Recorder
    parameters: {fail_phase: Initialize, fail_status: AS_QUIT_ERROR}
`)
	db := filepath.Join(t.TempDir(), "runs.db")

	_, err := executeJSON(t, "run", path, "--db", db)
	require.Error(t, err)

	resp, err := executeJSON(t, "history", "--db", db)
	require.NoError(t, err)
	var list HistoryList
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	require.Len(t, list.Runs, 1)
	assert.Equal(t, "failed", list.Runs[0].Status)
}
