package systems

import (
	"fmt"

	"github.com/roach88/aircore/internal/ir"
)

// ElectricalBusSpec describes a capacity-limited energy store such as a
// battery bus: charge flows in at charge_rate, load drains it, and the level
// is clamped to [0, capacity].
func ElectricalBusSpec() ModelSpec {
	return ModelSpec{
		Name:        "electrical_bus",
		Description: "capacity-limited charge and discharge",
		Ports: []PortSpec{
			{Name: "charge_rate", Dir: ir.DirIn, Kind: ir.KindReal},
			{Name: "load", Dir: ir.DirIn, Kind: ir.KindReal, Optional: true},
			{Name: "level", Dir: ir.DirOut, Kind: ir.KindReal},
			{Name: "saturated", Dir: ir.DirOut, Kind: ir.KindBool, Optional: true},
			{Name: "powered", Dir: ir.DirOut, Kind: ir.KindBool, Optional: true},
		},
		Params: map[string]float64{
			"capacity":          100,
			"initial":           0,
			"powered_threshold": 0,
		},
		New: newElectricalBus,
	}
}

// ElectricalBus integrates net charge with explicit Euler and clamps at the
// physical limits. Clamping keeps the scheme bounded for any step size.
type ElectricalBus struct {
	capacity  float64
	threshold float64
	level     float64
}

func newElectricalBus(p Params) (Model, error) {
	b := &ElectricalBus{
		capacity:  p.Get("capacity", 100),
		threshold: p.Get("powered_threshold", 0),
		level:     p.Get("initial", 0),
	}
	if b.capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive, got %g", b.capacity)
	}
	if b.level < 0 || b.level > b.capacity {
		return nil, fmt.Errorf("initial level %g outside [0, %g]", b.level, b.capacity)
	}
	return b, nil
}

// Level returns the current charge level.
func (b *ElectricalBus) Level() float64 { return b.level }

// Update implements Model.
func (b *ElectricalBus) Update(dt float64, io IO) error {
	rate := io.Real("charge_rate")
	load := io.Real("load")
	if !finite(rate, load) {
		return fmt.Errorf("%w: non-finite charge rate %g or load %g", ErrDegraded, rate, load)
	}

	next, saturated := clamp(b.level+(rate-load)*dt, 0, b.capacity)
	b.level = next

	io.SetReal("level", next)
	io.SetBool("saturated", saturated)
	io.SetBool("powered", next > b.threshold)
	return nil
}
