package systems

import (
	"fmt"
	"math"

	"github.com/roach88/aircore/internal/ir"
)

// HydraulicCircuitSpec describes a pump-driven circuit whose pressure
// follows demand through a first-order lag.
func HydraulicCircuitSpec() ModelSpec {
	return ModelSpec{
		Name:        "hydraulic_circuit",
		Description: "first-order lag pressure build-up",
		Ports: []PortSpec{
			{Name: "pump_on", Dir: ir.DirIn, Kind: ir.KindBool},
			{Name: "demand", Dir: ir.DirIn, Kind: ir.KindReal},
			{Name: "reservoir", Dir: ir.DirIn, Kind: ir.KindReal, Optional: true},
			{Name: "power", Dir: ir.DirIn, Kind: ir.KindBool, Optional: true},
			{Name: "pressure", Dir: ir.DirOut, Kind: ir.KindReal},
			{Name: "saturated", Dir: ir.DirOut, Kind: ir.KindBool, Optional: true},
			{Name: "cavitating", Dir: ir.DirOut, Kind: ir.KindBool, Optional: true},
		},
		Params: map[string]float64{
			"max_pressure":      3000,
			"time_constant":     0.5,
			"cavitation_level":  2.0,
			"cavitation_factor": 0.4,
		},
		New: newHydraulicCircuit,
	}
}

// HydraulicCircuit tracks pressure with the exact discretization of
// dP/dt = (target - P) / tau, which is stable for any dt.
type HydraulicCircuit struct {
	maxPressure      float64
	tau              float64
	cavitationLevel  float64
	cavitationFactor float64

	pressure float64
}

func newHydraulicCircuit(p Params) (Model, error) {
	h := &HydraulicCircuit{
		maxPressure:      p.Get("max_pressure", 3000),
		tau:              p.Get("time_constant", 0.5),
		cavitationLevel:  p.Get("cavitation_level", 2.0),
		cavitationFactor: p.Get("cavitation_factor", 0.4),
	}
	if h.maxPressure <= 0 {
		return nil, fmt.Errorf("max_pressure must be positive, got %g", h.maxPressure)
	}
	if h.tau < 0 {
		return nil, fmt.Errorf("time_constant must not be negative, got %g", h.tau)
	}
	if h.cavitationFactor < 0 || h.cavitationFactor > 1 {
		return nil, fmt.Errorf("cavitation_factor %g outside [0, 1]", h.cavitationFactor)
	}
	return h, nil
}

// Pressure returns the current circuit pressure.
func (h *HydraulicCircuit) Pressure() float64 { return h.pressure }

// Update implements Model.
func (h *HydraulicCircuit) Update(dt float64, io IO) error {
	demand := io.Real("demand")
	reservoir := io.Real("reservoir")
	if !finite(demand, reservoir) {
		return fmt.Errorf("%w: non-finite demand %g or reservoir %g", ErrDegraded, demand, reservoir)
	}

	pumping := io.Bool("pump_on")
	if io.Bound("power") {
		pumping = pumping && io.Bool("power")
	}

	var target float64
	var saturated, cavitating bool
	if pumping {
		target, saturated = clamp(demand, 0, h.maxPressure)
		if io.Bound("reservoir") && reservoir < h.cavitationLevel {
			target *= h.cavitationFactor
			cavitating = true
		}
	}

	alpha := 1.0
	if h.tau > 0 {
		alpha = 1 - math.Exp(-dt/h.tau)
	}
	h.pressure += (target - h.pressure) * alpha

	io.SetReal("pressure", h.pressure)
	io.SetBool("saturated", saturated)
	io.SetBool("cavitating", cavitating)
	return nil
}
