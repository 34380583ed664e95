package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/odakahirokazu/ANLNext/internal/status"
)

// Scenario defines one chain run and what it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Chain is an inline chain definition, in the same shape as a YAML
	// chain file.
	Chain map[string]any `yaml:"chain"`

	// NumLoop overrides the chain's num_loop.
	NumLoop *int64 `yaml:"num_loop,omitempty"`

	// Parallel is the number of chain replicas; zero means one.
	Parallel int `yaml:"parallel,omitempty"`

	Expect Expect `yaml:"expect"`
}

// Expect lists the checks applied to a run. Everything except Status is
// a subset match: only what is given is checked.
type Expect struct {
	// Status is "ok" (the default) or "failed".
	Status string `yaml:"status,omitempty"`

	// FailedPhase is the lifecycle phase that failed, e.g. "Initialize".
	FailedPhase string `yaml:"failed_phase,omitempty"`

	// FailedStatus is the AS_* status the failed phase returned.
	FailedStatus string `yaml:"failed_status,omitempty"`

	// Parameters maps module id to parameter name to expected value.
	Parameters map[string]map[string]any `yaml:"parameters,omitempty"`

	Counters *ExpectCounters `yaml:"counters,omitempty"`

	// Flags maps event flag to the number of events that raised it.
	Flags map[string]int64 `yaml:"flags,omitempty"`
}

// ExpectCounters is the expected event accounting.
type ExpectCounters struct {
	Put     *int64                  `yaml:"put,omitempty"`
	Get     *int64                  `yaml:"get,omitempty"`
	Modules map[string]ModuleCounts `yaml:"modules,omitempty"`
}

// ModuleCounts is the expected accounting of one module.
type ModuleCounts struct {
	Entry *int64 `yaml:"entry,omitempty"`
	OK    *int64 `yaml:"ok,omitempty"`
	Error *int64 `yaml:"error,omitempty"`
	Skip  *int64 `yaml:"skip,omitempty"`
	Quit  *int64 `yaml:"quit,omitempty"`
}

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "expects:" vs "expect:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if len(s.Chain) == 0 {
		return fmt.Errorf("chain is required")
	}

	if s.Parallel < 0 {
		return fmt.Errorf("parallel must be non-negative")
	}

	switch s.Expect.Status {
	case "":
		s.Expect.Status = StatusOK
	case StatusOK, StatusFailed:
	default:
		return fmt.Errorf("expect.status: unknown status %q (want %q or %q)", s.Expect.Status, StatusOK, StatusFailed)
	}

	if s.Expect.FailedStatus != "" {
		if _, err := status.Parse(s.Expect.FailedStatus); err != nil {
			return fmt.Errorf("expect.failed_status: %w", err)
		}
	}
	if (s.Expect.FailedPhase != "" || s.Expect.FailedStatus != "") && s.Expect.Status != StatusFailed {
		return fmt.Errorf("expect.failed_phase and failed_status require status %q", StatusFailed)
	}

	return nil
}
