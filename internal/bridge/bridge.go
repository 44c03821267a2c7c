// Package bridge is the host boundary of the simulation core.
//
// A host initializes a session from a compiled configuration, stages inputs
// before each tick, advances the session and reads published outputs. Every
// call names its session by Handle; sessions are independent and a Bridge
// holds no process-wide state, so several can coexist.
//
// Hosts that exchange every variable as float64 (booleans as 1.0/0.0, enums
// as their ordinal) use SetInputFloat and GetOutputFloat with the bridge's
// variable prefix.
package bridge

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/roach88/aircore/internal/engine"
	"github.com/roach88/aircore/internal/ir"
	"github.com/roach88/aircore/internal/systems"
)

// Bridge manages simulation sessions for a host.
//
// Thread-safety: the session registry is guarded by a mutex. Calls on one
// session must come from one goroutine at a time, the way a host drives its
// update loop.
type Bridge struct {
	mu       sync.Mutex
	sessions map[Handle]*engine.Engine

	handles HandleGenerator
	catalog engine.Catalog
	prefix  string
	logger  *slog.Logger
	engOpts []engine.Option
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithHandleGenerator sets the handle source. The default is UUIDv7.
func WithHandleGenerator(g HandleGenerator) Option {
	return func(b *Bridge) { b.handles = g }
}

// WithCatalog sets the model catalog. The default is systems.Default().
func WithCatalog(c engine.Catalog) Option {
	return func(b *Bridge) { b.catalog = c }
}

// WithPrefix sets the host variable prefix used by the float codec, for
// example "A32NX_".
func WithPrefix(prefix string) Option {
	return func(b *Bridge) { b.prefix = prefix }
}

// WithLogger sets the logger passed to every session.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// WithEngineOptions appends options applied to every new session.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(b *Bridge) { b.engOpts = append(b.engOpts, opts...) }
}

// New creates a Bridge with no open sessions.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		sessions: make(map[Handle]*engine.Engine),
		handles:  UUIDv7Generator{},
		catalog:  systems.Default(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Initialize builds a session for cfg.
//
// Returns a ConfigError (CYCLIC_DEPENDENCY, UNKNOWN_VARIABLE, TYPE_MISMATCH,
// DUPLICATE_WRITER, ...) and allocates no session when cfg is malformed.
func (b *Bridge) Initialize(cfg *ir.Config) (Handle, error) {
	opts := append([]engine.Option{engine.WithLogger(b.logger)}, b.engOpts...)
	e, err := engine.New(cfg, b.catalog, opts...)
	if err != nil {
		return "", err
	}

	h := Handle(b.handles.Generate())
	b.mu.Lock()
	b.sessions[h] = e
	b.mu.Unlock()

	b.logger.Debug("session opened", "handle", string(h), "config", cfg.Name)
	return h, nil
}

func (b *Bridge) session(h Handle) (*engine.Engine, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.sessions[h]
	if !ok {
		return nil, ir.NewInvalidHandle(string(h))
	}
	return e, nil
}

// SetInput stages a host input for the next tick. Reading id before the
// tick returns v.
//
// Errors: TYPE_MISMATCH, UNKNOWN_VARIABLE, OWNERSHIP_VIOLATION (id is not a
// host input), INVALID_HANDLE, or the stored fault of a stopped session.
func (b *Bridge) SetInput(h Handle, id string, v ir.Value) error {
	e, err := b.session(h)
	if err != nil {
		return err
	}
	return e.Stage(ir.NormalizeID(id), v)
}

// Tick advances the session by dt seconds.
func (b *Bridge) Tick(h Handle, dt float64) (engine.TickReport, error) {
	e, err := b.session(h)
	if err != nil {
		return engine.TickReport{}, err
	}
	return e.Tick(dt)
}

// GetOutput returns the published value of id.
func (b *Bridge) GetOutput(h Handle, id string) (ir.Value, error) {
	e, err := b.session(h)
	if err != nil {
		return ir.Value{}, err
	}
	return e.Output(ir.NormalizeID(id))
}

// Shutdown releases the session. Later calls with h return INVALID_HANDLE.
func (b *Bridge) Shutdown(h Handle) error {
	b.mu.Lock()
	e, ok := b.sessions[h]
	delete(b.sessions, h)
	b.mu.Unlock()

	if !ok {
		return ir.NewInvalidHandle(string(h))
	}
	e.Stop()
	b.logger.Debug("session closed", "handle", string(h), "ticks", e.Clock().Ticks())
	return nil
}

// Sessions returns the number of open sessions.
func (b *Bridge) Sessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

// Output is one published variable.
type Output struct {
	Name  string
	Value ir.Value
}

// Outputs lists every published variable in declaration order.
func (b *Bridge) Outputs(h Handle) ([]Output, error) {
	e, err := b.session(h)
	if err != nil {
		return nil, err
	}
	vs := e.Config().Variables
	out := make([]Output, 0, len(vs))
	for _, d := range vs {
		v, err := e.Output(d.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, Output{Name: d.Name, Value: v})
	}
	return out, nil
}

// HostName returns the host-side name of variable id.
func (b *Bridge) HostName(id string) string {
	return b.prefix + id
}

// resolve maps a host-side name to a declared variable.
func (b *Bridge) resolve(e *engine.Engine, name string) (ir.VariableDecl, error) {
	id, ok := strings.CutPrefix(name, b.prefix)
	if !ok {
		return ir.VariableDecl{}, ir.NewUnknownVariable(ir.ClassProtocol, name)
	}
	d, ok := e.Variable(ir.NormalizeID(id))
	if !ok {
		return ir.VariableDecl{}, ir.NewUnknownVariable(ir.ClassProtocol, name)
	}
	return d, nil
}

// SetInputFloat stages a host float for the variable named name (prefix
// included), converting it to the declared kind. A non-finite value, or one
// out of range for an int or enum, is a TYPE_MISMATCH protocol error.
func (b *Bridge) SetInputFloat(h Handle, name string, x float64) error {
	e, err := b.session(h)
	if err != nil {
		return err
	}
	d, err := b.resolve(e, name)
	if err != nil {
		return err
	}
	v, ok := ir.FromFloat(d.Kind, x)
	if !ok {
		return &ir.Error{
			Class:    ir.ClassProtocol,
			Code:     ir.ErrCodeTypeMismatch,
			Message:  fmt.Sprintf("host value %v is not a valid %s", x, d.Kind),
			Variable: d.Name,
		}
	}
	return e.Stage(d.Name, v)
}

// GetOutputFloat returns the published value of name as a host float.
func (b *Bridge) GetOutputFloat(h Handle, name string) (float64, error) {
	e, err := b.session(h)
	if err != nil {
		return 0, err
	}
	d, err := b.resolve(e, name)
	if err != nil {
		return 0, err
	}
	v, err := e.Output(d.Name)
	if err != nil {
		return 0, err
	}
	return v.ToFloat(), nil
}
