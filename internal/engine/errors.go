package engine

import (
	"fmt"

	"github.com/roach88/aircore/internal/ir"
)

// State is the lifecycle state of an Engine.
type State uint8

const (
	StateUninitialized State = iota
	StateReady
	StateTicking
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateTicking:
		return "ticking"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Degraded records one system that held its state during a tick.
type Degraded struct {
	System string
	Err    error
}

// TickReport summarizes one completed tick.
type TickReport struct {
	Tick     uint64
	DT       float64
	Elapsed  float64
	Degraded []Degraded
}

// Faults converts degraded updates into RuntimeFault errors.
func (r TickReport) Faults() []*ir.Error {
	out := make([]*ir.Error, len(r.Degraded))
	for i, d := range r.Degraded {
		out[i] = newDegradedError(d.System, d.Err)
	}
	return out
}

func newDegradedError(system string, cause error) *ir.Error {
	return &ir.Error{
		Class:   ir.ClassRuntime,
		Code:    ir.ErrCodeDegradedUpdate,
		Message: cause.Error(),
		System:  system,
		Err:     cause,
	}
}

func newInvalidStep(dt, fixed float64) *ir.Error {
	msg := fmt.Sprintf("step %s must be finite and positive", ir.FormatReal(dt))
	if fixed > 0 {
		msg = fmt.Sprintf("step %s differs from fixed step %s", ir.FormatReal(dt), ir.FormatReal(fixed))
	}
	return &ir.Error{
		Class:   ir.ClassProtocol,
		Code:    ir.ErrCodeInvalidStep,
		Message: msg,
	}
}

func newStoppedError() *ir.Error {
	return &ir.Error{
		Class:   ir.ClassSimulation,
		Code:    ir.ErrCodeSimulationStopped,
		Message: "simulation is stopped",
	}
}
