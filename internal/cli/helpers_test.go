package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const (
	chargingDir  = "../../testdata/configs/charging"
	aircraftDir  = "../../testdata/configs/aircraft"
	scenariosDir = "../../testdata/scenarios"
)

// badConfig has two systems writing the same variables.
const badConfig = `
package bad

step: 0.5

variable: {
	"a.rate": {type: "real", source: "host"}
	"a.level": {type: "real"}
	"a.sat": {type: "bool"}
}

system: one: {
	model: "electrical_bus"
	ports: {charge_rate: "a.rate", level: "a.level", saturated: "a.sat"}
}

system: two: {
	model: "electrical_bus"
	ports: {charge_rate: "a.rate", level: "a.level", saturated: "a.sat"}
}
`

// writeConfigDir writes content as the single CUE file of a temp package.
func writeConfigDir(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.cue"), []byte(content), 0o644))
	return dir
}

// execute runs cmd with args and returns its standard output. Diagnostics
// and engine logs go to a separate buffer so JSON output stays parseable.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// recordScenario records a scenario into db under id.
func recordScenario(t *testing.T, db, scenario, id string) string {
	t.Helper()
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    db,
		NewID:       func() string { return id },
	}
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	require.NoError(t, runScenarioFile(opts, scenario, cmd))
	return buf.String()
}
