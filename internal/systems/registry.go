package systems

import (
	"fmt"
	"math"
	"slices"

	"github.com/roach88/aircore/internal/ir"
)

// Factory builds a model instance from merged parameters.
type Factory func(p Params) (Model, error)

// ModelSpec describes a model kind: its ports, parameter defaults and
// constructor.
type ModelSpec struct {
	Name        string
	Description string
	Ports       []PortSpec
	Params      map[string]float64 // defaults; only these names are accepted
	New         Factory
}

// Port returns the port named name.
func (m ModelSpec) Port(name string) (PortSpec, bool) {
	for _, p := range m.Ports {
		if p.Name == name {
			return p, true
		}
	}
	return PortSpec{}, false
}

// Registry maps model names to their specs. Lookups preserve registration
// order for listings.
type Registry struct {
	specs map[string]ModelSpec
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]ModelSpec)}
}

// Default returns a registry holding every built-in model.
func Default() *Registry {
	r := NewRegistry()
	for _, spec := range []ModelSpec{
		ElectricalBusSpec(),
		HydraulicCircuitSpec(),
		PneumaticDuctSpec(),
		ActuatorSpec(),
		EngineGeneratorSpec(),
		ContactorSpec(),
	} {
		if err := r.Register(spec); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds spec. Names must be unique.
func (r *Registry) Register(spec ModelSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("model spec has no name")
	}
	if spec.New == nil {
		return fmt.Errorf("model %q has no factory", spec.Name)
	}
	if _, dup := r.specs[spec.Name]; dup {
		return fmt.Errorf("model %q already registered", spec.Name)
	}
	r.specs[spec.Name] = spec
	r.order = append(r.order, spec.Name)
	return nil
}

// Lookup returns the spec registered as name.
func (r *Registry) Lookup(name string) (ModelSpec, bool) {
	spec, ok := r.specs[name]
	return spec, ok
}

// Names returns registered model names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// PortOf resolves the direction and kind of a port of model.
func (r *Registry) PortOf(model, port string) (PortSpec, bool) {
	spec, ok := r.specs[model]
	if !ok {
		return PortSpec{}, false
	}
	return spec.Port(port)
}

// Instantiate checks decl against its model spec and constructs the model.
//
// All failures are ConfigErrors: UNKNOWN_MODEL for an unregistered model,
// INVALID_PARAM for unknown or non-finite parameters, unknown ports, ports
// bound in the wrong direction, and unbound required ports.
func (r *Registry) Instantiate(decl ir.SystemDecl) (Model, error) {
	spec, ok := r.specs[decl.Model]
	if !ok {
		return nil, &ir.Error{
			Class:   ir.ClassConfig,
			Code:    ir.ErrCodeUnknownModel,
			Message: fmt.Sprintf("model %q is not registered", decl.Model),
			System:  decl.Name,
		}
	}

	bound := make(map[string]bool, len(decl.Ports))
	for _, b := range decl.Ports {
		p, ok := spec.Port(b.Port)
		if !ok {
			return nil, invalidParam(decl.Name, "model %s has no port %q", spec.Name, b.Port)
		}
		if p.Dir != b.Dir {
			return nil, invalidParam(decl.Name, "port %q is %s, bound as %s", b.Port, p.Dir, b.Dir)
		}
		if b.Feedback && p.Dir != ir.DirIn {
			return nil, invalidParam(decl.Name, "feedback on output port %q", b.Port)
		}
		if bound[b.Port] {
			return nil, invalidParam(decl.Name, "port %q bound twice", b.Port)
		}
		bound[b.Port] = true
	}
	for _, p := range spec.Ports {
		if !p.Optional && !bound[p.Name] {
			return nil, invalidParam(decl.Name, "required port %q is not bound", p.Name)
		}
	}

	params := make(Params, len(spec.Params))
	for k, v := range spec.Params {
		params[k] = v
	}
	for k, v := range decl.Params {
		if _, known := spec.Params[k]; !known {
			return nil, invalidParam(decl.Name, "model %s has no parameter %q", spec.Name, k)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, invalidParam(decl.Name, "parameter %q is not finite", k)
		}
		params[k] = v
	}

	m, err := spec.New(params)
	if err != nil {
		e := invalidParam(decl.Name, "%v", err)
		e.Err = err
		return nil, e
	}
	return m, nil
}

func invalidParam(system, format string, args ...any) *ir.Error {
	return &ir.Error{
		Class:   ir.ClassConfig,
		Code:    ir.ErrCodeInvalidParam,
		Message: fmt.Sprintf(format, args...),
		System:  system,
	}
}
