package store

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/roach88/aircore/internal/engine"
	"github.com/roach88/aircore/internal/ir"
)

// Recorder drives an engine and writes every tick it runs to the store.
// Inputs must go through Stage so they are captured with the tick that
// consumes them.
type Recorder struct {
	store  *Store
	rec    *Recording
	eng    *engine.Engine
	inputs map[string]ir.Value
	ticks  uint64
}

// Record starts a recording with the given id for eng. The recording header
// is written immediately. Every run needs its own id: an id already in the
// store returns ErrConflict.
func (s *Store) Record(ctx context.Context, id string, eng *engine.Engine) (*Recorder, error) {
	_, err := s.ReadRecording(ctx, id)
	switch {
	case err == nil:
		return nil, fmt.Errorf("record %s: recording already exists: %w", id, ErrConflict)
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	seq, err := s.NextSeq(ctx)
	if err != nil {
		return nil, err
	}
	rec := &Recording{
		ID:     id,
		Name:   eng.Config().Name,
		Config: eng.Config(),
		Step:   eng.FixedStep(),
		Seq:    seq,
	}
	if err := s.WriteRecording(ctx, rec); err != nil {
		return nil, err
	}
	return &Recorder{
		store:  s,
		rec:    rec,
		eng:    eng,
		inputs: make(map[string]ir.Value),
	}, nil
}

// Recording returns the header written by Record.
func (r *Recorder) Recording() *Recording { return r.rec }

// Engine returns the recorded engine.
func (r *Recorder) Engine() *engine.Engine { return r.eng }

// Ticks returns the number of ticks recorded so far.
func (r *Recorder) Ticks() uint64 { return r.ticks }

// Stage queues a host input on the engine and captures it for the next tick.
func (r *Recorder) Stage(id string, v ir.Value) error {
	if err := r.eng.Stage(id, v); err != nil {
		return err
	}
	r.inputs[id] = v
	return nil
}

// Tick advances the engine and records the result.
//
// Protocol errors (a rejected step) and calls on an already stopped engine
// leave nothing recorded. The tick that stops the simulation is recorded
// with its fault and the outputs of the last complete tick.
func (r *Recorder) Tick(ctx context.Context, dt float64) (engine.TickReport, error) {
	if r.eng.State() == engine.StateStopped {
		return r.eng.Tick(dt)
	}

	report, tickErr := r.eng.Tick(dt)
	if tickErr != nil && !ir.IsSimulationFault(tickErr) {
		return report, tickErr
	}

	tr := &TickRecord{
		Tick:    r.ticks + 1,
		DT:      dt,
		Inputs:  maps.Clone(r.inputs),
		Outputs: r.eng.Snapshot(),
	}
	for _, f := range report.Faults() {
		tr.Faults = append(tr.Faults, FaultFrom(f))
	}
	if tickErr != nil {
		tr.Faults = append(tr.Faults, FaultFrom(tickErr))
	}

	if err := r.store.WriteTick(ctx, r.rec.ID, tr); err != nil {
		return report, fmt.Errorf("record tick: %w", err)
	}
	r.ticks++
	clear(r.inputs)
	return report, tickErr
}
