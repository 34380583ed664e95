package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_ListsNewestFirst(t *testing.T) {
	chainFile := writeFile(t, "chain.yaml", quitChain)
	db := filepath.Join(t.TempDir(), "runs.db")

	var ids []string
	for range 3 {
		resp, err := executeJSON(t, "run", chainFile, "--db", db)
		require.NoError(t, err)
		ids = append(ids, decodeRun(t, resp).RunID)
	}

	resp, err := executeJSON(t, "history", "--db", db)
	require.NoError(t, err)
	var list HistoryList
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	require.Len(t, list.Runs, 3)
	// UUIDv7 ids sort by creation time, which breaks ties between runs
	// started within the same timestamp.
	assert.Equal(t, ids[2], list.Runs[0].ID)
	assert.Equal(t, ids[0], list.Runs[2].ID)

	resp, err = executeJSON(t, "history", "--db", db, "--limit", "1")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	require.Len(t, list.Runs, 1)
	assert.Equal(t, ids[2], list.Runs[0].ID)
}

func TestHistory_Text(t *testing.T) {
	chainFile := writeFile(t, "chain.yaml", quitChain)
	db := filepath.Join(t.TempDir(), "runs.db")

	resp, err := executeJSON(t, "run", chainFile, "--db", db)
	require.NoError(t, err)
	runID := decodeRun(t, resp).RunID

	out, err := execute(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, runID)
	assert.Contains(t, out, "STATUS")

	out, err = execute(t, "history", "--db", db, runID)
	require.NoError(t, err)
	assert.Contains(t, out, "QuitAt")
	assert.Contains(t, out, "my_parameter1")
}

func TestHistory_Errors(t *testing.T) {
	t.Run("no journal configured", func(t *testing.T) {
		resp, err := executeJSON(t, "history")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Equal(t, ErrCodeConfig, resp.Error.Code)
	})

	t.Run("journal file missing", func(t *testing.T) {
		resp, err := executeJSON(t, "history", "--db", filepath.Join(t.TempDir(), "absent.db"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	})

	t.Run("unknown run", func(t *testing.T) {
		chainFile := writeFile(t, "chain.yaml", quitChain)
		db := filepath.Join(t.TempDir(), "runs.db")
		_, err := executeJSON(t, "run", chainFile, "--db", db)
		require.NoError(t, err)

		resp, err := executeJSON(t, "history", "--db", db, "no-such-run")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "no-such-run")
	})
}
