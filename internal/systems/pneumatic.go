package systems

import (
	"fmt"
	"math"

	"github.com/roach88/aircore/internal/ir"
)

// PneumaticDuctSpec describes a valve-controlled duct between two pressure
// sources.
func PneumaticDuctSpec() ModelSpec {
	return ModelSpec{
		Name:        "pneumatic_duct",
		Description: "orifice flow through a valve",
		Ports: []PortSpec{
			{Name: "upstream", Dir: ir.DirIn, Kind: ir.KindReal},
			{Name: "downstream", Dir: ir.DirIn, Kind: ir.KindReal},
			{Name: "valve_open", Dir: ir.DirIn, Kind: ir.KindBool},
			{Name: "flow", Dir: ir.DirOut, Kind: ir.KindReal},
			{Name: "saturated", Dir: ir.DirOut, Kind: ir.KindBool, Optional: true},
		},
		Params: map[string]float64{
			"conductance":  1.0,
			"max_flow":     50,
			"min_upstream": 1e-6,
		},
		New: newPneumaticDuct,
	}
}

// PneumaticDuct computes Q = k * sqrt(dP / P_up) * P_up. Flow never reverses.
type PneumaticDuct struct {
	conductance float64
	maxFlow     float64
	minUpstream float64

	flow float64
}

func newPneumaticDuct(p Params) (Model, error) {
	d := &PneumaticDuct{
		conductance: p.Get("conductance", 1.0),
		maxFlow:     p.Get("max_flow", 50),
		minUpstream: p.Get("min_upstream", 1e-6),
	}
	if d.conductance < 0 {
		return nil, fmt.Errorf("conductance must not be negative, got %g", d.conductance)
	}
	if d.maxFlow <= 0 {
		return nil, fmt.Errorf("max_flow must be positive, got %g", d.maxFlow)
	}
	if d.minUpstream <= 0 {
		return nil, fmt.Errorf("min_upstream must be positive, got %g", d.minUpstream)
	}
	return d, nil
}

// Flow returns the last computed flow.
func (d *PneumaticDuct) Flow() float64 { return d.flow }

// Update implements Model.
func (d *PneumaticDuct) Update(dt float64, io IO) error {
	if !io.Bool("valve_open") {
		d.flow = 0
		io.SetReal("flow", 0)
		io.SetBool("saturated", false)
		return nil
	}

	up := io.Real("upstream")
	down := io.Real("downstream")
	if !finite(up, down) {
		return fmt.Errorf("%w: non-finite pressure up=%g down=%g", ErrDegraded, up, down)
	}
	if up < d.minUpstream {
		return fmt.Errorf("%w: upstream pressure %g near zero", ErrDegraded, up)
	}

	dp := max(up-down, 0)
	q, saturated := clamp(d.conductance*math.Sqrt(dp/up)*up, 0, d.maxFlow)
	d.flow = q

	io.SetReal("flow", q)
	io.SetBool("saturated", saturated)
	return nil
}
