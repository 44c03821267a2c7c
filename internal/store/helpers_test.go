package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/aircore/internal/engine"
	"github.com/roach88/aircore/internal/ir"
	"github.com/roach88/aircore/internal/systems"
	"github.com/roach88/aircore/internal/testutil"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func quietEngine(t *testing.T, cfg *ir.Config, catalog engine.Catalog) *engine.Engine {
	t.Helper()
	eng, err := engine.New(cfg, catalog, engine.WithLogger(quietLogger()))
	require.NoError(t, err)
	return eng
}

func chargingRecording(t *testing.T, s *Store, id string) *Recording {
	t.Helper()
	seq, err := s.NextSeq(context.Background())
	require.NoError(t, err)
	rec := &Recording{ID: id, Name: "charging", Config: testutil.ChargingConfig(), Step: 0.5, Seq: seq}
	require.NoError(t, s.WriteRecording(context.Background(), rec))
	return rec
}

// funcModel adapts a function to systems.Model.
type funcModel func(dt float64, sio systems.IO) error

func (f funcModel) Update(dt float64, sio systems.IO) error { return f(dt, sio) }

// counterRegistry registers a "counter" model with one real output. Each
// instance counts its updates and hands the count to step.
func counterRegistry(t *testing.T, step func(n int, sio systems.IO) error) *systems.Registry {
	t.Helper()
	r := systems.Default()
	require.NoError(t, r.Register(systems.ModelSpec{
		Name:   "counter",
		Ports:  []systems.PortSpec{{Name: "count", Dir: ir.DirOut, Kind: ir.KindReal}},
		Params: map[string]float64{},
		New: func(systems.Params) (systems.Model, error) {
			n := 0
			return funcModel(func(dt float64, sio systems.IO) error {
				n++
				return step(n, sio)
			}), nil
		},
	}))
	return r
}

func counterConfig() *ir.Config {
	return &ir.Config{
		Name:      "counter",
		Variables: []ir.VariableDecl{{Name: "count", Kind: ir.KindReal, Source: ir.SourceSystem}},
		Systems: []ir.SystemDecl{{
			Name:  "c",
			Model: "counter",
			Ports: []ir.PortBinding{{Port: "count", Variable: "count", Dir: ir.DirOut, Kind: ir.KindReal}},
		}},
	}
}

func degradeOn(tick int) func(int, systems.IO) error {
	return func(n int, sio systems.IO) error {
		if n == tick {
			return fmt.Errorf("%w: tick %d", systems.ErrDegraded, n)
		}
		sio.SetReal("count", float64(n))
		return nil
	}
}
