package systems

import (
	"fmt"

	"github.com/roach88/aircore/internal/ir"
)

// Generator states, by enum ordinal.
const (
	GeneratorOff = iota
	GeneratorStarting
	GeneratorOnline
)

// GeneratorStates are the labels of the engine generator state output.
var GeneratorStates = []string{"off", "starting", "online"}

// EngineGeneratorSpec describes an engine-driven generator. It comes online
// once engine N2 has crossed the power-up threshold and the output has been
// stable for the stabilization time. Switching it off disconnects the drive
// for the rest of the session.
func EngineGeneratorSpec() ModelSpec {
	return ModelSpec{
		Name:        "engine_generator",
		Description: "N2-driven generator with hysteresis and stabilization",
		Ports: []PortSpec{
			{Name: "n2", Dir: ir.DirIn, Kind: ir.KindReal},
			{Name: "switch_on", Dir: ir.DirIn, Kind: ir.KindBool},
			{Name: "ambient", Dir: ir.DirIn, Kind: ir.KindReal, Optional: true},
			{Name: "state", Dir: ir.DirOut, Kind: ir.KindEnum, Values: GeneratorStates},
			{Name: "potential", Dir: ir.DirOut, Kind: ir.KindReal, Optional: true},
			{Name: "frequency", Dir: ir.DirOut, Kind: ir.KindReal, Optional: true},
			{Name: "oil_temperature", Dir: ir.DirOut, Kind: ir.KindReal, Optional: true},
			{Name: "disconnected", Dir: ir.DirOut, Kind: ir.KindBool, Optional: true},
		},
		Params: map[string]float64{
			"up_threshold":   58,
			"down_threshold": 56,
			"stabilization":  0.5,
			"potential":      115,
			"frequency":      400,
			"ambient":        15,
			"heating_rate":   1.4,
			"cooling_rate":   0.4,
		},
		New: newEngineGenerator,
	}
}

// EngineGenerator applies hysteresis on N2: spinning starts at or above
// up_threshold and stops below down_threshold.
//
// The drive oil heats toward 1.8 degrees per percent N2 above ambient at
// heating_rate and cools toward ambient at cooling_rate (degrees per
// second). A disconnected drive targets ambient.
type EngineGenerator struct {
	up, down  float64
	potential float64
	frequency float64
	ambient   float64
	heating   float64
	cooling   float64

	spinning     bool
	disconnected bool
	oil          float64
	stable       *DelayedTrueGate
}

func newEngineGenerator(p Params) (Model, error) {
	g := &EngineGenerator{
		up:        p.Get("up_threshold", 58),
		down:      p.Get("down_threshold", 56),
		potential: p.Get("potential", 115),
		frequency: p.Get("frequency", 400),
		ambient:   p.Get("ambient", 15),
		heating:   p.Get("heating_rate", 1.4),
		cooling:   p.Get("cooling_rate", 0.4),
		stable:    NewDelayedTrueGate(p.Get("stabilization", 0.5)),
	}
	if g.down > g.up {
		return nil, fmt.Errorf("down_threshold %g above up_threshold %g", g.down, g.up)
	}
	if g.stable.Delay < 0 {
		return nil, fmt.Errorf("stabilization must not be negative, got %g", g.stable.Delay)
	}
	if g.heating < 0 || g.cooling < 0 {
		return nil, fmt.Errorf("heating_rate %g and cooling_rate %g must not be negative", g.heating, g.cooling)
	}
	return g, nil
}

// State returns the current generator state ordinal.
func (g *EngineGenerator) State() int {
	switch {
	case g.stable.Output():
		return GeneratorOnline
	case g.stable.expression:
		return GeneratorStarting
	}
	return GeneratorOff
}

// Disconnected reports whether the drive has been switched off.
func (g *EngineGenerator) Disconnected() bool { return g.disconnected }

// OilTemperature returns the drive oil outlet temperature.
func (g *EngineGenerator) OilTemperature() float64 { return g.oil }

// Update implements Model.
func (g *EngineGenerator) Update(dt float64, io IO) error {
	n2 := io.Real("n2")
	ambient := g.ambient
	if io.Bound("ambient") {
		ambient = io.Real("ambient")
	}
	if !finite(n2, ambient) {
		return fmt.Errorf("%w: non-finite n2 %g or ambient %g", ErrDegraded, n2, ambient)
	}

	if !io.Bool("switch_on") {
		g.disconnected = true
	}
	if g.spinning {
		g.spinning = n2 >= g.down
	} else {
		g.spinning = n2 >= g.up
	}
	g.stable.Update(dt, g.spinning && !g.disconnected)
	g.oil = g.oilTowards(dt, ambient, n2)

	io.SetReal("oil_temperature", g.oil)
	io.SetBool("disconnected", g.disconnected)

	state := g.State()
	io.SetEnum("state", state)
	if state == GeneratorOnline {
		io.SetReal("potential", g.potential)
		io.SetReal("frequency", g.frequency)
	} else {
		io.SetReal("potential", 0)
		io.SetReal("frequency", 0)
	}
	return nil
}

// oilTowards steps the oil temperature toward its target without
// overshooting and never below ambient.
func (g *EngineGenerator) oilTowards(dt, ambient, n2 float64) float64 {
	target := ambient
	if !g.disconnected {
		target += max(n2, 0) * 1.8
	}
	t := g.oil
	if t < target {
		t = min(t+g.heating*dt, target)
	} else {
		t = max(t-g.cooling*dt, target)
	}
	return max(t, ambient)
}
