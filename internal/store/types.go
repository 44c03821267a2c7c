package store

import "github.com/roach88/aircore/internal/ir"

// Recording identifies one recorded session and the configuration it ran.
type Recording struct {
	ID         string
	Name       string
	ConfigHash string
	Config     *ir.Config

	// Step is the fixed step the session ran with, 0 when the host chose
	// dt per tick.
	Step float64

	// Seq orders recordings (logical clock, never wall time).
	Seq int64
}

// TickRecord is everything needed to reproduce and check one tick.
type TickRecord struct {
	Tick uint64
	DT   float64

	// Inputs are the host inputs staged before the tick.
	Inputs map[string]ir.Value

	// Outputs are the published values after the tick. A tick that stopped
	// the simulation records the values of the last complete tick.
	Outputs map[string]ir.Value

	// OutputHash is the content address of Outputs.
	OutputHash string

	Faults []Fault
}

// Fault is a recorded per-tick error: a degraded update or the simulation
// fault that stopped the session.
type Fault struct {
	Class   ir.ErrorClass `json:"class"`
	Code    ir.ErrorCode  `json:"code"`
	System  string        `json:"system"`
	Message string        `json:"message"`
}

// FaultFrom converts a core error into a Fault.
func FaultFrom(err error) Fault {
	if e, ok := ir.AsError(err); ok {
		return Fault{Class: e.Class, Code: e.Code, System: e.System, Message: e.Message}
	}
	return Fault{Message: err.Error()}
}

type recordingRow struct {
	ID         string `db:"id"`
	Name       string `db:"name"`
	ConfigHash string `db:"config_hash"`
	Config     string `db:"config"`
	Step       string `db:"step"`
	CreatedSeq int64  `db:"created_seq"`
}

type tickRow struct {
	RecordingID string `db:"recording_id"`
	Tick        int64  `db:"tick"`
	DT          string `db:"dt"`
	Inputs      string `db:"inputs"`
	Outputs     string `db:"outputs"`
	Faults      string `db:"faults"`
	OutputHash  string `db:"output_hash"`
}
