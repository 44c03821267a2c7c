package harness

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario drives one configuration through a fixed input schedule and
// checks the resulting trace.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is the CUE configuration directory, relative to the scenario
	// file.
	Config string `yaml:"config"`

	// Step overrides the configuration's fixed step. Required when the
	// configuration has none.
	Step float64 `yaml:"step,omitempty"`

	// Ticks is the input schedule.
	Ticks []TickStep `yaml:"ticks"`

	// Assertions validate the trace.
	Assertions []Assertion `yaml:"assertions"`
}

// TickStep stages inputs and then runs Repeat ticks (at least one).
type TickStep struct {
	// Inputs maps host input names to values: numbers for real and int,
	// true/false for bool, a label or ordinal for enum.
	Inputs map[string]any `yaml:"inputs,omitempty"`

	Repeat int `yaml:"repeat,omitempty"`
}

// Count returns the number of ticks this step runs.
func (s TickStep) Count() int {
	if s.Repeat < 1 {
		return 1
	}
	return s.Repeat
}

// Assertion validates the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "output_equals": Variable has Value at Tick (within Tolerance for reals)
	// - "output_saturated": bool Variable is true at Tick
	// - "fault_count": exactly Count faults, filtered by Code and System
	// - "deterministic": a second run and a replay reproduce the trace
	Type string `yaml:"type"`

	Variable  string  `yaml:"variable,omitempty"`
	Value     any     `yaml:"value,omitempty"`
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Tick selects the tick to check (1-based). Zero means the last tick.
	Tick uint64 `yaml:"tick,omitempty"`

	Code   string `yaml:"code,omitempty"`
	System string `yaml:"system,omitempty"`
	Count  *int   `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertOutputEquals    = "output_equals"
	AssertOutputSaturated = "output_saturated"
	AssertFaultCount      = "fault_count"
	AssertDeterministic   = "deterministic"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
//
// The config path is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos)
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Config != "" && !filepath.IsAbs(scenario.Config) {
		scenario.Config = filepath.Join(filepath.Dir(path), scenario.Config)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Config == "" {
		return fmt.Errorf("config is required")
	}
	if info, err := os.Stat(s.Config); err != nil || !info.IsDir() {
		return fmt.Errorf("config directory not found: %s", s.Config)
	}

	if s.Step < 0 || math.IsNaN(s.Step) || math.IsInf(s.Step, 0) {
		return fmt.Errorf("step must be a positive number, got %v", s.Step)
	}

	if len(s.Ticks) == 0 {
		return fmt.Errorf("ticks list is required and must be non-empty")
	}
	for i, step := range s.Ticks {
		if step.Repeat < 0 {
			return fmt.Errorf("ticks[%d]: repeat must be non-negative", i)
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOutputEquals:
		if a.Variable == "" {
			return fmt.Errorf("assertions[%d]: variable is required for output_equals", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for output_equals", index)
		}
		if a.Tolerance < 0 {
			return fmt.Errorf("assertions[%d]: tolerance must be non-negative", index)
		}
	case AssertOutputSaturated:
		if a.Variable == "" {
			return fmt.Errorf("assertions[%d]: variable is required for output_saturated", index)
		}
	case AssertFaultCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for fault_count", index)
		}
	case AssertDeterministic:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
