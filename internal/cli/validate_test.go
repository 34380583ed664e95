package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidChain(t *testing.T) {
	path := filepath.Join("..", "chaindef", "testdata", "histogram.yaml")

	out, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "valid (4 modules)")
}

func TestValidate_ValidChainJSON(t *testing.T) {
	for _, name := range []string{"histogram.yaml", "histogram.cue", "histogram.hcl"} {
		t.Run(name, func(t *testing.T) {
			resp, err := executeJSON(t, "validate", filepath.Join("..", "chaindef", "testdata", name))
			require.NoError(t, err)
			assert.Equal(t, "ok", resp.Status)

			var result ValidationResult
			require.NoError(t, json.Unmarshal(resp.Data, &result))
			assert.True(t, result.Valid)
			assert.Equal(t, []string{"gen", "FillHistogram", "MyVectorModule", "MyMapModule"}, result.Modules)
		})
	}
}

func TestValidate_UnknownParameter(t *testing.T) {
	path := writeFile(t, "chain.yaml", `modules:
  - type: MyModule
    parameters: {no_such_parameter: 1}
`)

	resp, err := executeJSON(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "error", resp.Status)

	var result ValidationResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, ErrCodeParameters, result.Errors[0].Code)
	assert.Contains(t, result.Errors[0].Message, "no_such_parameter")
}

func TestValidate_DuplicateModuleID(t *testing.T) {
	path := writeFile(t, "chain.yaml", `modules:
  - type: MyModule
  - type: MyModule
`)

	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗")
	assert.Contains(t, out, "E206")
}

func TestValidate_SyntaxError(t *testing.T) {
	path := writeFile(t, "chain.yaml", "modules:\n  - type: [unclosed\n")

	resp, err := executeJSON(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ValidationResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "E203", result.Errors[0].Code)
	assert.Equal(t, path, result.Errors[0].File)
}

func TestValidate_MissingFile(t *testing.T) {
	resp, err := executeJSON(t, "validate", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E202", resp.Error.Code)
}
