package store

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/aircore/internal/engine"
	"github.com/roach88/aircore/internal/ir"
)

// Divergence describes the first point where a replay differs from its
// recording.
type Divergence struct {
	Tick     uint64
	Variable string // empty when the faults differ
	Recorded ir.Value
	Replayed ir.Value
	Reason   string
}

// String renders the divergence for reports.
func (d *Divergence) String() string {
	if d.Variable == "" {
		return fmt.Sprintf("tick %d: %s", d.Tick, d.Reason)
	}
	return fmt.Sprintf("tick %d: %s recorded %s, replayed %s", d.Tick, d.Variable, d.Recorded, d.Replayed)
}

// ReplayResult is the outcome of replaying one recording.
type ReplayResult struct {
	Recording  *Recording
	Ticks      int
	Divergence *Divergence
}

// OK reports whether every replayed tick matched bit for bit.
func (r *ReplayResult) OK() bool { return r.Divergence == nil }

// Replay re-runs the recorded inputs of recording id against a freshly
// initialized engine and compares every published value and every fault
// with what was recorded. It stops at the first divergence.
//
// The stored configuration is checked against its hash before running.
func Replay(ctx context.Context, s *Store, id string, catalog engine.Catalog, opts ...engine.Option) (*ReplayResult, error) {
	rec, err := s.ReadRecording(ctx, id)
	if err != nil {
		return nil, err
	}
	hash, err := ir.ConfigHash(rec.Config)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", id, err)
	}
	if hash != rec.ConfigHash {
		return nil, fmt.Errorf("replay %s: config hash mismatch: stored %s, computed %s", id, rec.ConfigHash, hash)
	}

	ticks, err := s.ReadTicks(ctx, rec)
	if err != nil {
		return nil, err
	}

	opts = append(opts, engine.WithFixedStep(rec.Step))
	eng, err := engine.New(rec.Config, catalog, opts...)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", id, err)
	}
	defer eng.Stop()

	result := &ReplayResult{Recording: rec}
	for _, tr := range ticks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, name := range slices.Sorted(maps.Keys(tr.Inputs)) {
			if err := eng.Stage(name, tr.Inputs[name]); err != nil {
				return nil, fmt.Errorf("replay %s tick %d: stage %s: %w", id, tr.Tick, name, err)
			}
		}

		report, tickErr := eng.Tick(tr.DT)
		if tickErr != nil && !ir.IsSimulationFault(tickErr) {
			return nil, fmt.Errorf("replay %s tick %d: %w", id, tr.Tick, tickErr)
		}
		result.Ticks++

		var faults []Fault
		for _, f := range report.Faults() {
			faults = append(faults, FaultFrom(f))
		}
		if tickErr != nil {
			faults = append(faults, FaultFrom(tickErr))
		}
		if d := compareFaults(tr, faults); d != nil {
			result.Divergence = d
			return result, nil
		}
		if d := compareOutputs(tr, eng.Snapshot()); d != nil {
			result.Divergence = d
			return result, nil
		}
	}
	return result, nil
}

func compareFaults(tr TickRecord, replayed []Fault) *Divergence {
	same := len(tr.Faults) == len(replayed)
	for i := 0; same && i < len(replayed); i++ {
		same = tr.Faults[i].Code == replayed[i].Code && tr.Faults[i].System == replayed[i].System
	}
	if same {
		return nil
	}
	return &Divergence{
		Tick:   tr.Tick,
		Reason: fmt.Sprintf("faults differ: recorded %s, replayed %s", faultList(tr.Faults), faultList(replayed)),
	}
}

func compareOutputs(tr TickRecord, replayed map[string]ir.Value) *Divergence {
	for _, name := range slices.Sorted(maps.Keys(tr.Outputs)) {
		want := tr.Outputs[name]
		got, ok := replayed[name]
		if !ok || !want.Equal(got) {
			return &Divergence{Tick: tr.Tick, Variable: name, Recorded: want, Replayed: got}
		}
	}
	return nil
}

func faultList(faults []Fault) string {
	if len(faults) == 0 {
		return "none"
	}
	s := ""
	for i, f := range faults {
		if i > 0 {
			s += ", "
		}
		s += string(f.Code)
		if f.System != "" {
			s += "@" + f.System
		}
	}
	return s
}
