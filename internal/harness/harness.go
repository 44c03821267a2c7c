package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/roach88/aircore/internal/compiler"
	"github.com/roach88/aircore/internal/engine"
	"github.com/roach88/aircore/internal/ir"
	"github.com/roach88/aircore/internal/store"
	"github.com/roach88/aircore/internal/systems"
)

// Option configures a harness run.
type Option func(*harness)

// WithCatalog sets the model catalog. The default is systems.Default().
func WithCatalog(c compiler.Catalog) Option {
	return func(h *harness) {
		h.catalog = c
	}
}

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(h *harness) {
		h.logger = l
	}
}

// WithStore records the primary run into st instead of a throwaway
// in-memory database. Reruns for determinism checks stay in memory.
func WithStore(st *store.Store) Option {
	return func(h *harness) {
		h.store = st
	}
}

// WithRecordingID sets the recording id. The default is a fresh UUIDv7.
func WithRecordingID(id string) Option {
	return func(h *harness) {
		h.recordingID = id
	}
}

type harness struct {
	catalog     compiler.Catalog
	logger      *slog.Logger
	store       *store.Store
	recordingID string
}

// execution is one recorded pass over a scenario.
type execution struct {
	cfg       *ir.Config
	store     *store.Store
	owned     bool
	recording *store.Recording
	trace     []TickTrace
	stopped   error
}

func (ex *execution) close() {
	if ex.owned {
		ex.store.Close()
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation unless
// WithStore is given. Every
// tick is recorded, and the trace is read back from the recording so that
// assertions see exactly what a replay would compare against.
//
// Execution flow:
// 1. Load, compile and validate the configuration
// 2. Record the input schedule against a fresh engine
// 3. Read the trace back from the store
// 4. Evaluate assertions
//
// Errors are returned for scenarios that cannot run at all (bad config,
// unknown inputs); failed assertions are reported in the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &harness{
		catalog: systems.Default(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	ctx := context.Background()
	id := h.recordingID
	if id == "" {
		id = uuid.Must(uuid.NewV7()).String()
	}
	ex, err := h.execute(ctx, scenario, h.store, id)
	if err != nil {
		return nil, err
	}
	defer ex.close()

	result := NewResult()
	result.Trace = ex.trace
	result.Config = ex.cfg
	result.RecordingID = id
	if ex.stopped != nil {
		result.Stopped = ex.stopped.Error()
	}

	actx := &AssertionContext{
		Config: ex.cfg,
		Rerun: func() ([]TickTrace, error) {
			again, err := h.execute(ctx, scenario, nil, scenario.Name)
			if err != nil {
				return nil, err
			}
			defer again.close()
			return again.trace, nil
		},
		Replay: func() (*store.ReplayResult, error) {
			return store.Replay(ctx, ex.store, ex.recording.ID, h.catalog, engine.WithLogger(h.logger))
		},
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// execute records one pass into st, or into a fresh in-memory store when st
// is nil.
func (h *harness) execute(ctx context.Context, scenario *Scenario, st *store.Store, id string) (*execution, error) {
	cfg, err := compiler.LoadDir(scenario.Config, h.catalog)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verrs := compiler.Validate(cfg, h.catalog); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, v := range verrs {
			errs[i] = v
		}
		return nil, fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}

	dt := scenario.Step
	if dt == 0 {
		dt = cfg.Step
	}
	if dt == 0 {
		return nil, fmt.Errorf("scenario %s: no step: set step in the scenario or the config", scenario.Name)
	}

	eng, err := engine.New(cfg, h.catalog, engine.WithLogger(h.logger), engine.WithFixedStep(dt))
	if err != nil {
		return nil, err
	}
	defer eng.Stop()

	ex := &execution{cfg: cfg, store: st}
	if st == nil {
		ex.store, err = store.OpenMemory()
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		ex.owned = true
	}

	if err := h.record(ctx, ex, eng, scenario, id, dt); err != nil {
		ex.close()
		return nil, err
	}
	return ex, nil
}

func (h *harness) record(ctx context.Context, ex *execution, eng *engine.Engine, scenario *Scenario, id string, dt float64) error {
	rec, err := ex.store.Record(ctx, id, eng)
	if err != nil {
		return err
	}
	ex.recording = rec.Recording()

run:
	for i, step := range scenario.Ticks {
		for _, name := range slices.Sorted(maps.Keys(step.Inputs)) {
			id := ir.NormalizeID(name)
			decl, ok := eng.Variable(id)
			if !ok {
				return fmt.Errorf("ticks[%d]: %w", i, ir.NewUnknownVariable(ir.ClassProtocol, id))
			}
			v, err := convertValue(decl, step.Inputs[name])
			if err != nil {
				return fmt.Errorf("ticks[%d]: %w", i, err)
			}
			if err := rec.Stage(id, v); err != nil {
				return fmt.Errorf("ticks[%d]: %w", i, err)
			}
		}
		for range step.Count() {
			if _, err := rec.Tick(ctx, dt); err != nil {
				if ir.IsSimulationFault(err) {
					ex.stopped = err
					break run
				}
				return fmt.Errorf("ticks[%d]: %w", i, err)
			}
		}
	}

	records, err := ex.store.ReadTicks(ctx, ex.recording)
	if err != nil {
		return err
	}
	ex.trace = traceFromRecords(records)
	return nil
}
