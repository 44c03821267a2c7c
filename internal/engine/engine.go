package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/roach88/aircore/internal/coupling"
	"github.com/roach88/aircore/internal/ir"
	"github.com/roach88/aircore/internal/systems"
	"github.com/roach88/aircore/internal/vars"
)

// Catalog instantiates models for system declarations.
// Implemented by *systems.Registry.
type Catalog interface {
	Lookup(name string) (systems.ModelSpec, bool)
	Instantiate(decl ir.SystemDecl) (systems.Model, error)
}

// Engine owns one simulation session: the variable store, the coupling
// graph, the model instances and the clock.
//
// INVARIANTS:
//   - systems are updated in graph order; that order never changes
//   - the host only ever sees values from the last complete tick
//   - once Stopped, the engine never mutates state again
//
// Engine is not safe for concurrent use.
type Engine struct {
	cfg     *ir.Config
	vars    *vars.Store
	graph   *coupling.Graph
	systems []*system // update order
	clock   *Clock
	logger  *slog.Logger

	state     State
	fixedStep float64
	fault     error
}

type system struct {
	index int
	name  string
	model systems.Model
	io    portIO
	outs  []vars.Slot
}

// Option configures an Engine.
type Option func(*Engine)

// WithFixedStep locks the step size: Tick rejects any other dt. Zero
// unlocks it. The default is the configuration's step.
func WithFixedStep(dt float64) Option {
	return func(e *Engine) {
		e.fixedStep = dt
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New builds a session for cfg. On success the engine is Ready.
//
// Every failure is a ConfigError and leaves nothing allocated:
// DUPLICATE_DECLARATION, CYCLIC_DEPENDENCY and DUPLICATE_WRITER from the
// coupling graph,
// UNKNOWN_VARIABLE, TYPE_MISMATCH and OWNERSHIP_VIOLATION from the variable
// store, UNKNOWN_MODEL and INVALID_PARAM from the catalog.
func New(cfg *ir.Config, catalog Catalog, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:       cfg,
		clock:     NewClock(),
		logger:    slog.Default(),
		state:     StateUninitialized,
		fixedStep: cfg.Step,
	}
	for _, opt := range opts {
		opt(e)
	}

	graph, err := coupling.Build(cfg.Systems)
	if err != nil {
		return nil, err
	}
	store, err := vars.New(cfg)
	if err != nil {
		return nil, err
	}

	built := make([]*system, len(cfg.Systems))
	for i, decl := range cfg.Systems {
		s, err := newSystem(i, decl, store, catalog)
		if err != nil {
			return nil, err
		}
		built[i] = s
	}

	e.graph = graph
	e.vars = store
	e.systems = make([]*system, 0, len(built))
	for _, idx := range graph.OrderIndex() {
		e.systems = append(e.systems, built[idx])
	}
	e.state = StateReady

	e.logger.Info("engine ready",
		"config", cfg.Name,
		"systems", len(cfg.Systems),
		"variables", len(cfg.Variables),
		"fixed_step", e.fixedStep,
	)
	return e, nil
}

func newSystem(index int, decl ir.SystemDecl, store *vars.Store, catalog Catalog) (*system, error) {
	model, err := catalog.Instantiate(decl)
	if err != nil {
		return nil, err
	}
	spec, _ := catalog.Lookup(decl.Model)

	s := &system{
		index: index,
		name:  decl.Name,
		model: model,
		io: portIO{
			store:    store,
			owner:    index,
			system:   decl.Name,
			bound:    make(map[string]portRef, len(decl.Ports)),
			declared: make(map[string]bool, len(spec.Ports)),
		},
	}
	for _, p := range spec.Ports {
		s.io.declared[p.Name] = true
	}

	for _, b := range decl.Ports {
		slot, _ := store.Lookup(b.Variable)
		v := store.Decl(slot)
		p, _ := spec.Port(b.Port)
		if p.Kind != v.Kind {
			e := ir.NewTypeMismatch(ir.ClassConfig, v.Name, p.Kind, v.Kind)
			e.System = decl.Name
			e.Message = fmt.Sprintf("port %q is %s but variable is %s", b.Port, p.Kind, v.Kind)
			return nil, e
		}
		if p.Kind == ir.KindEnum && !slices.Equal(v.Values, p.Values) {
			e := ir.NewTypeMismatch(ir.ClassConfig, v.Name, p.Kind, v.Kind)
			e.System = decl.Name
			e.Message = fmt.Sprintf("port %q has enum labels %v, variable declares %v", b.Port, p.Values, v.Values)
			return nil, e
		}
		s.io.bound[b.Port] = portRef{slot: slot, dir: b.Dir, feedback: b.Feedback}
		if b.Dir == ir.DirOut {
			s.outs = append(s.outs, slot)
		}
	}
	return s, nil
}

// State returns the lifecycle state.
func (e *Engine) State() State { return e.state }

// Config returns the configuration the engine was built from.
func (e *Engine) Config() *ir.Config { return e.cfg }

// Graph returns the coupling graph.
func (e *Engine) Graph() *coupling.Graph { return e.graph }

// Clock returns the simulation clock.
func (e *Engine) Clock() *Clock { return e.clock }

// FixedStep returns the locked step size, or 0.
func (e *Engine) FixedStep() float64 { return e.fixedStep }

// Fault returns the error that stopped the engine, if any.
func (e *Engine) Fault() error { return e.fault }

// Variable returns the declaration of id.
func (e *Engine) Variable(id string) (ir.VariableDecl, bool) {
	slot, ok := e.vars.Lookup(id)
	if !ok {
		return ir.VariableDecl{}, false
	}
	return e.vars.Decl(slot), true
}

// Stage queues a host input for the next tick.
func (e *Engine) Stage(id string, v ir.Value) error {
	if e.state == StateStopped {
		return e.fault
	}
	return e.vars.Stage(id, v)
}

// Output returns what the host sees for id: the staged input if one is
// pending, otherwise the value published by the last complete tick.
// Outputs stay readable after the engine stops.
func (e *Engine) Output(id string) (ir.Value, error) {
	return e.vars.Published(id)
}

// Snapshot returns every published value keyed by variable name.
func (e *Engine) Snapshot() map[string]ir.Value {
	out := make(map[string]ir.Value, e.vars.Len())
	for i := range e.vars.Len() {
		slot := vars.Slot(i)
		out[e.vars.Decl(slot).Name] = e.vars.PublishedSlot(slot)
	}
	return out
}

// Tick advances the simulation by dt seconds.
//
// INVALID_STEP (ProtocolError) when dt is not finite and positive, or differs
// from the fixed step; the engine is unchanged. A SimulationFault stops the
// engine: nothing from the failed tick is published and later calls return
// the same fault.
func (e *Engine) Tick(dt float64) (TickReport, error) {
	switch e.state {
	case StateStopped:
		return TickReport{}, e.fault
	case StateUninitialized:
		return TickReport{}, newStoppedError()
	}
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt <= 0 || (e.fixedStep > 0 && dt != e.fixedStep) {
		return TickReport{}, newInvalidStep(dt, e.fixedStep)
	}

	e.state = StateTicking
	report := TickReport{Tick: e.clock.Ticks() + 1, DT: dt}

	e.vars.BeginTick()
	if err := e.vars.ApplyStaged(); err != nil {
		return report, e.halt(err)
	}

	for _, s := range e.systems {
		s.io.err = nil
		err := s.update(dt)
		if s.io.err != nil {
			return report, e.halt(s.io.err)
		}
		if err != nil {
			for _, slot := range s.outs {
				e.vars.Hold(s.index, slot)
			}
			report.Degraded = append(report.Degraded, Degraded{System: s.name, Err: err})
			e.logger.Warn("degraded update",
				"tick", report.Tick,
				"system", s.name,
				"error", err,
			)
		}
	}

	e.vars.Publish()
	e.clock.Advance(dt)
	report.Elapsed = e.clock.Elapsed()
	e.state = StateReady
	return report, nil
}

// update runs the model, converting a panic into a degraded update.
func (s *system) update(dt float64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", systems.ErrDegraded, r)
		}
	}()
	return s.model.Update(dt, &s.io)
}

// halt stops the engine on a structural fault.
func (e *Engine) halt(cause error) error {
	e.vars.Rollback()
	e.state = StateStopped

	fault := cause
	if ie, ok := ir.AsError(cause); ok && ie.Class != ir.ClassSimulation {
		fault = ie.WithClass(ir.ClassSimulation)
	}
	e.fault = fault

	e.logger.Error("simulation fault",
		"tick", e.clock.Ticks()+1,
		"error", fault,
	)
	return fault
}

// Stop transitions to Stopped. Later Tick and Stage calls fail with
// SIMULATION_STOPPED.
func (e *Engine) Stop() {
	if e.state == StateStopped {
		return
	}
	e.state = StateStopped
	e.fault = newStoppedError()
	e.logger.Info("engine stopped", "ticks", e.clock.Ticks())
}

// IsDegraded reports whether err came from a model that held its state.
func IsDegraded(err error) bool {
	return errors.Is(err, systems.ErrDegraded)
}
