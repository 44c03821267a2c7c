package systems

import (
	"fmt"

	"github.com/roach88/aircore/internal/ir"
)

// ActuatorSpec describes a flight-control actuator with a linear transfer
// function, travel limits and an optional slew rate.
func ActuatorSpec() ModelSpec {
	return ModelSpec{
		Name:        "actuator",
		Description: "rate-limited linear actuator",
		Ports: []PortSpec{
			{Name: "command", Dir: ir.DirIn, Kind: ir.KindReal},
			{Name: "hydraulic", Dir: ir.DirIn, Kind: ir.KindReal, Optional: true},
			{Name: "position", Dir: ir.DirOut, Kind: ir.KindReal},
			{Name: "saturated", Dir: ir.DirOut, Kind: ir.KindBool, Optional: true},
		},
		Params: map[string]float64{
			"gain":         1,
			"bias":         0,
			"min":          -100,
			"max":          100,
			"rate":         0,
			"initial":      0,
			"min_pressure": 0,
		},
		New: newActuator,
	}
}

// Actuator moves toward clamp(gain*command + bias, min, max) by at most
// rate*dt per step. Without hydraulic pressure it holds position.
type Actuator struct {
	gain, bias  float64
	lo, hi      float64
	rate        float64
	minPressure float64

	position float64
}

func newActuator(p Params) (Model, error) {
	a := &Actuator{
		gain:        p.Get("gain", 1),
		bias:        p.Get("bias", 0),
		lo:          p.Get("min", -100),
		hi:          p.Get("max", 100),
		rate:        p.Get("rate", 0),
		minPressure: p.Get("min_pressure", 0),
		position:    p.Get("initial", 0),
	}
	if a.lo > a.hi {
		return nil, fmt.Errorf("min %g greater than max %g", a.lo, a.hi)
	}
	if a.position < a.lo || a.position > a.hi {
		return nil, fmt.Errorf("initial position %g outside [%g, %g]", a.position, a.lo, a.hi)
	}
	return a, nil
}

// Position returns the current actuator position.
func (a *Actuator) Position() float64 { return a.position }

// Update implements Model.
func (a *Actuator) Update(dt float64, io IO) error {
	command := io.Real("command")
	if !finite(command) {
		return fmt.Errorf("%w: non-finite command %g", ErrDegraded, command)
	}

	if io.Bound("hydraulic") && io.Real("hydraulic") < a.minPressure {
		io.SetReal("position", a.position)
		io.SetBool("saturated", false)
		return nil
	}

	target, saturated := clamp(a.gain*command+a.bias, a.lo, a.hi)
	a.position = TowardsTarget(a.position, target, a.rate, dt)

	io.SetReal("position", a.position)
	io.SetBool("saturated", saturated)
	return nil
}
