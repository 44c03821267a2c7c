package systems

import (
	"fmt"

	"github.com/roach88/aircore/internal/ir"
)

// ContactorSpec describes a switch in a power circuit. When closed it
// conducts the potential of its source; when open its output has none.
// An optional alternate source powers the output when it carries a higher
// potential, so two feeds can be combined on one bus.
func ContactorSpec() ModelSpec {
	return ModelSpec{
		Name:        "contactor",
		Description: "potential routing from source to bus",
		Ports: []PortSpec{
			{Name: "closed", Dir: ir.DirIn, Kind: ir.KindBool},
			{Name: "source", Dir: ir.DirIn, Kind: ir.KindReal},
			{Name: "alternate", Dir: ir.DirIn, Kind: ir.KindReal, Optional: true},
			{Name: "potential", Dir: ir.DirOut, Kind: ir.KindReal},
			{Name: "powered", Dir: ir.DirOut, Kind: ir.KindBool, Optional: true},
		},
		Params: map[string]float64{
			"powered_threshold": 0,
		},
		New: newContactor,
	}
}

// Contactor is stateless: its output follows its inputs every tick.
type Contactor struct {
	threshold float64
}

func newContactor(p Params) (Model, error) {
	c := &Contactor{threshold: p.Get("powered_threshold", 0)}
	if c.threshold < 0 {
		return nil, fmt.Errorf("powered_threshold must not be negative, got %g", c.threshold)
	}
	return c, nil
}

// Update implements Model.
func (c *Contactor) Update(dt float64, io IO) error {
	source := io.Real("source")
	alternate := io.Real("alternate")
	if !finite(source, alternate) {
		return fmt.Errorf("%w: non-finite potential %g or %g", ErrDegraded, source, alternate)
	}

	potential := 0.0
	if io.Bool("closed") {
		potential = max(source, alternate, 0)
	}
	io.SetReal("potential", potential)
	io.SetBool("powered", potential > c.threshold)
	return nil
}
