package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/odakahirokazu/ANLNext/internal/param"
)

// toCanonicalMap converts a Result to the plain map written to golden
// files. Pass, Errors and RunError are left out; the golden file records
// what the run produced, not how it compared.
func (r *Result) toCanonicalMap() map[string]any {
	mods := make([]any, len(r.Counters.Modules))
	for i, c := range r.Counters.Modules {
		mods[i] = map[string]any{
			"module_id": c.ModuleID,
			"entry":     c.Entry,
			"ok":        c.OK,
			"error":     c.Error,
			"skip":      c.Skip,
			"quit":      c.Quit,
		}
	}

	out := map[string]any{
		"scenario_name": r.ScenarioName,
		"status":        r.Status,
		"counters": map[string]any{
			"put":     r.Counters.Put,
			"get":     r.Counters.Get,
			"modules": mods,
		},
		"flags":      r.Flags,
		"parameters": r.Parameters,
	}
	if r.FailedPhase != "" {
		out["failed_phase"] = r.FailedPhase
	}
	if r.FailedStatus != "" {
		out["failed_status"] = r.FailedStatus
	}
	return out
}

// Snapshot renders r as canonical JSON.
func Snapshot(r *Result) ([]byte, error) {
	return param.MarshalCanonical(r.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if the scenario could not be run. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, snapshot)
	return nil
}
