package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aircore/internal/systems"
	"github.com/roach88/aircore/internal/testutil"
)

func TestLoadDirCharging(t *testing.T) {
	cfg, err := LoadDir(filepath.Join("..", "..", "testdata", "configs", "charging"), systems.Default())
	require.NoError(t, err)

	assert.Equal(t, "charging", cfg.Name)
	assert.Equal(t, 0.5, cfg.Step)

	want := testutil.ChargingConfig()
	require.Len(t, cfg.Systems, len(want.Systems))
	for i := range want.Systems {
		assert.Equal(t, want.Systems[i].Name, cfg.Systems[i].Name)
		assert.Equal(t, want.Systems[i].Ports, cfg.Systems[i].Ports)
	}
	assert.Empty(t, Validate(cfg, systems.Default()))
}

func TestLoadDirAircraft(t *testing.T) {
	cfg, err := LoadDir(filepath.Join("..", "..", "testdata", "configs", "aircraft"), systems.Default())
	require.NoError(t, err)

	want := testutil.AircraftConfig()
	require.Len(t, cfg.Variables, len(want.Variables))
	for i := range want.Variables {
		assert.Equal(t, want.Variables[i].Name, cfg.Variables[i].Name)
		assert.Equal(t, want.Variables[i].Kind, cfg.Variables[i].Kind)
		assert.Equal(t, want.Variables[i].Source, cfg.Variables[i].Source)
	}
	require.Len(t, cfg.Systems, len(want.Systems))
	for i := range want.Systems {
		assert.Equal(t, want.Systems[i].Ports, cfg.Systems[i].Ports, want.Systems[i].Name)
		assert.Equal(t, want.Systems[i].Params, cfg.Systems[i].Params, want.Systems[i].Name)
	}
	assert.Empty(t, Validate(cfg, systems.Default()))
}

func TestLoadDirNamesFromDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bench")
	require.NoError(t, os.Mkdir(dir, 0755))
	src := "package bench\n\nvariable: x: {type: \"real\"}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bench.cue"), []byte(src), 0644))

	cfg, err := LoadDir(dir, systems.Default())
	require.NoError(t, err)
	assert.Equal(t, "bench", cfg.Name)
}

func TestLoadDirMissing(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "nope"), systems.Default())
	require.Error(t, err)
}
