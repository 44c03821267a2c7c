package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/aircore/internal/ir"
)

// ErrConflict is returned when a write would replace different data
// already stored under the same key.
var ErrConflict = errors.New("recording conflict")

// WriteRecording inserts a recording header. The configuration is stored as
// canonical JSON and its hash is computed here; rec.ConfigHash is filled in.
// Rewriting a header with the same configuration is a no-op; a different
// configuration under an existing id returns ErrConflict.
func (s *Store) WriteRecording(ctx context.Context, rec *Recording) error {
	if rec.Config == nil {
		return fmt.Errorf("write recording: config is required")
	}
	cfgJSON, err := ir.MarshalConfig(rec.Config)
	if err != nil {
		return fmt.Errorf("write recording: %w", err)
	}
	hash, err := ir.ConfigHash(rec.Config)
	if err != nil {
		return fmt.Errorf("write recording: %w", err)
	}
	rec.ConfigHash = hash

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO recordings (id, name, config_hash, config, step, created_seq)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.Name,
		rec.ConfigHash,
		string(cfgJSON),
		ir.FormatReal(rec.Step),
		rec.Seq,
	)
	if err != nil {
		return fmt.Errorf("write recording: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}

	var stored string
	if err := s.db.GetContext(ctx, &stored, `SELECT config_hash FROM recordings WHERE id = ?`, rec.ID); err != nil {
		return fmt.Errorf("write recording: %w", err)
	}
	if stored != hash {
		return fmt.Errorf("write recording %s: stored config %.12s differs from %.12s: %w", rec.ID, stored, hash, ErrConflict)
	}
	return nil
}

// WriteTick appends one tick to a recording. tr.OutputHash is filled in.
// Rewriting an identical tick is a no-op; a different tick under the same
// number returns ErrConflict.
//
// Note: The recording must exist (foreign key constraint).
func (s *Store) WriteTick(ctx context.Context, recordingID string, tr *TickRecord) error {
	inputs, err := marshalValues(tr.Inputs)
	if err != nil {
		return fmt.Errorf("write tick %d: %w", tr.Tick, err)
	}
	outputs, err := marshalValues(tr.Outputs)
	if err != nil {
		return fmt.Errorf("write tick %d: %w", tr.Tick, err)
	}
	faults, err := marshalFaults(tr.Faults)
	if err != nil {
		return fmt.Errorf("write tick %d: %w", tr.Tick, err)
	}
	hash, err := ir.TickHash(tr.Tick, tr.Outputs)
	if err != nil {
		return fmt.Errorf("write tick %d: %w", tr.Tick, err)
	}
	tr.OutputHash = hash

	dt := ir.FormatReal(tr.DT)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO ticks (recording_id, tick, dt, inputs, outputs, faults, output_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		recordingID,
		int64(tr.Tick),
		dt,
		inputs,
		outputs,
		faults,
		hash,
	)
	if err != nil {
		return fmt.Errorf("write tick %d: %w", tr.Tick, err)
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}

	var stored tickRow
	if err := s.db.GetContext(ctx, &stored, `
		SELECT tick, dt, inputs, outputs, faults, output_hash
		FROM ticks
		WHERE recording_id = ? AND tick = ?
	`, recordingID, int64(tr.Tick)); err != nil {
		return fmt.Errorf("write tick %d: %w", tr.Tick, err)
	}
	if stored.DT != dt || stored.Inputs != inputs || stored.Faults != faults || stored.OutputHash != hash {
		return fmt.Errorf("write tick %d of %s: a different tick is already recorded: %w", tr.Tick, recordingID, ErrConflict)
	}
	return nil
}
