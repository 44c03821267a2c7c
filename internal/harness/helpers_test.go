package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	chargingDir  = "../../testdata/configs/charging"
	aircraftDir  = "../../testdata/configs/aircraft"
	scenariosDir = "../../testdata/scenarios"
)

func intPtr(n int) *int { return &n }

// chargingScenario returns a scenario over the charging config that charges
// at rate for ticks ticks.
func chargingScenario(name string, rate float64, ticks int, assertions ...Assertion) *Scenario {
	if len(assertions) == 0 {
		assertions = []Assertion{{Type: AssertFaultCount, Count: intPtr(0)}}
	}
	return &Scenario{
		Name:        name,
		Description: "charging at a constant rate",
		Config:      chargingDir,
		Ticks: []TickStep{
			{Inputs: map[string]any{"elec.charge_rate": rate}, Repeat: ticks},
		},
		Assertions: assertions,
	}
}

// writeScenario writes content as a scenario file in a temp dir next to a
// copy-free config reference.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
