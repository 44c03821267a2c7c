package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/aircore/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TickTrace
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical
// JSON serialization. Faults are reduced to CODE@system so golden files do
// not depend on message wording.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, tt := range s.Trace {
		faults := make([]any, len(tt.Faults))
		for j, key := range faultKeys(tt.Faults) {
			faults[j] = key
		}
		outputs := tt.Outputs
		if outputs == nil {
			outputs = map[string]ir.Value{}
		}
		traceList[i] = map[string]any{
			"tick":    tt.Tick,
			"dt":      ir.FormatReal(tt.DT),
			"outputs": outputs,
			"faults":  faults,
		}
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
}

// MarshalTrace renders a result's trace as canonical JSON.
func MarshalTrace(name string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{ScenarioName: name, Trace: result.Trace}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) error {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
