package systems

import (
	"errors"
	"math"

	"github.com/roach88/aircore/internal/ir"
)

// ErrDegraded is returned (wrapped) by Update when the model could not
// converge for this step. The model must leave its state untouched.
var ErrDegraded = errors.New("degraded update")

// Model is one simulated subsystem.
type Model interface {
	// Update advances the model by dt seconds, reading inputs and writing
	// outputs through io.
	Update(dt float64, io IO) error
}

// IO is a model's view of the variable store, restricted to its ports.
//
// Reads of an unbound optional input return the zero value. Writes to an
// unbound optional output are dropped. Accessing a port the model never
// declared is recorded by the implementation and stops the simulation.
type IO interface {
	Bound(port string) bool
	Real(port string) float64
	Bool(port string) bool
	Enum(port string) int
	SetReal(port string, x float64)
	SetBool(port string, b bool)
	SetEnum(port string, ordinal int)
}

// Params holds a model's numeric parameters after defaults are merged.
type Params map[string]float64

// Get returns the parameter name, or def when absent.
func (p Params) Get(name string, def float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

// PortSpec declares one port of a model kind.
type PortSpec struct {
	Name     string
	Dir      ir.Direction
	Kind     ir.Kind
	Optional bool

	// Values lists enum labels for enum ports, ordinal order.
	Values []string
}

// finite reports whether every x is neither NaN nor infinite.
func finite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// clamp limits x to [lo, hi] and reports whether it had to.
func clamp(x, lo, hi float64) (float64, bool) {
	switch {
	case x > hi:
		return hi, true
	case x < lo:
		return lo, true
	}
	return x, false
}
