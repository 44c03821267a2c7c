package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/aircore/internal/ir"
)

// ErrNotFound is returned when a recording does not exist.
var ErrNotFound = errors.New("recording not found")

// ReadRecording retrieves a recording header and its configuration.
// Returns ErrNotFound if the id is unknown.
func (s *Store) ReadRecording(ctx context.Context, id string) (*Recording, error) {
	var row recordingRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, name, config_hash, config, step, created_seq
		FROM recordings
		WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read recording %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read recording %s: %w", id, err)
	}
	return row.decode()
}

// LatestRecording returns the recording with the highest sequence number.
func (s *Store) LatestRecording(ctx context.Context) (*Recording, error) {
	var row recordingRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, name, config_hash, config, step, created_seq
		FROM recordings
		ORDER BY created_seq DESC
		LIMIT 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest recording: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest recording: %w", err)
	}
	return row.decode()
}

// ListRecordings returns every recording ordered by sequence.
func (s *Store) ListRecordings(ctx context.Context) ([]*Recording, error) {
	var rows []recordingRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, name, config_hash, config, step, created_seq
		FROM recordings
		ORDER BY created_seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}

	out := make([]*Recording, 0, len(rows))
	for _, row := range rows {
		rec, err := row.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadTicks returns the ticks of rec ordered by tick number.
func (s *Store) ReadTicks(ctx context.Context, rec *Recording) ([]TickRecord, error) {
	var rows []tickRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT recording_id, tick, dt, inputs, outputs, faults, output_hash
		FROM ticks
		WHERE recording_id = ?
		ORDER BY tick ASC
	`, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("read ticks: %w", err)
	}

	kinds := kindsOf(rec.Config)
	out := make([]TickRecord, 0, len(rows))
	for _, row := range rows {
		tr, err := row.decode(kinds)
		if err != nil {
			return nil, fmt.Errorf("read tick %d: %w", row.Tick, err)
		}
		out = append(out, tr)
	}
	return out, nil
}

// CountTicks returns the number of ticks recorded for id.
func (s *Store) CountTicks(ctx context.Context, id string) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM ticks WHERE recording_id = ?`, id); err != nil {
		return 0, fmt.Errorf("count ticks: %w", err)
	}
	return n, nil
}

func (r recordingRow) decode() (*Recording, error) {
	cfg, err := ir.UnmarshalConfig([]byte(r.Config))
	if err != nil {
		return nil, fmt.Errorf("recording %s: %w", r.ID, err)
	}
	cfg.Name = r.Name
	step, err := ir.ParseReal(r.Step)
	if err != nil {
		return nil, fmt.Errorf("recording %s: step: %w", r.ID, err)
	}
	return &Recording{
		ID:         r.ID,
		Name:       r.Name,
		ConfigHash: r.ConfigHash,
		Config:     cfg,
		Step:       step,
		Seq:        r.CreatedSeq,
	}, nil
}

func (r tickRow) decode(kinds map[string]ir.Kind) (TickRecord, error) {
	dt, err := ir.ParseReal(r.DT)
	if err != nil {
		return TickRecord{}, fmt.Errorf("dt: %w", err)
	}
	inputs, err := unmarshalValues(r.Inputs, kinds)
	if err != nil {
		return TickRecord{}, err
	}
	outputs, err := unmarshalValues(r.Outputs, kinds)
	if err != nil {
		return TickRecord{}, err
	}
	faults, err := unmarshalFaults(r.Faults)
	if err != nil {
		return TickRecord{}, err
	}
	return TickRecord{
		Tick:       uint64(r.Tick),
		DT:         dt,
		Inputs:     inputs,
		Outputs:    outputs,
		OutputHash: r.OutputHash,
		Faults:     faults,
	}, nil
}
