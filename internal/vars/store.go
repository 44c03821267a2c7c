package vars

import (
	"fmt"

	"github.com/roach88/aircore/internal/ir"
)

// Slot is the dense index of a variable. Slots are resolved once at setup so
// per-tick code never hashes strings.
type Slot int32

// Store holds every declared variable of one simulation session.
//
// Three buffers are kept per slot:
//   - live: written by systems during the tick in progress
//   - published: the values at the end of the last complete tick
//   - staged: host inputs waiting for the next tick boundary
//
// Ownership is static: each slot has exactly one writer (a system index,
// ir.HostOwner, or ir.NoOwner for constants). The store is not safe for
// concurrent use; the engine drives it from a single goroutine.
type Store struct {
	decls []ir.VariableDecl
	index map[string]Slot
	owner []int

	live      []ir.Value
	published []ir.Value
	dirty     []bool
	writer    []int

	staged    []ir.Value
	hasStaged []bool
	pending   []Slot // staged slots in Stage order, cap len(decls)
}

// New allocates a store for cfg and validates ownership.
//
// Returns a ConfigError when a port references an undeclared variable, when
// a port kind differs from the variable kind, when a system writes a host
// input, or when two systems write the same variable.
func New(cfg *ir.Config) (*Store, error) {
	n := len(cfg.Variables)
	s := &Store{
		decls:     make([]ir.VariableDecl, n),
		index:     make(map[string]Slot, n),
		owner:     make([]int, n),
		live:      make([]ir.Value, n),
		published: make([]ir.Value, n),
		dirty:     make([]bool, n),
		writer:    make([]int, n),
		staged:    make([]ir.Value, n),
		hasStaged: make([]bool, n),
		pending:   make([]Slot, 0, n),
	}
	copy(s.decls, cfg.Variables)

	for i, d := range s.decls {
		if _, dup := s.index[d.Name]; dup {
			return nil, &ir.Error{
				Class:    ir.ClassConfig,
				Code:     ir.ErrCodeDuplicateDeclaration,
				Message:  "variable declared twice",
				Variable: d.Name,
			}
		}
		if d.Kind == ir.KindInvalid {
			return nil, &ir.Error{
				Class:    ir.ClassConfig,
				Code:     ir.ErrCodeTypeMismatch,
				Message:  "variable has no type",
				Variable: d.Name,
			}
		}
		init := d.Initial
		if !init.IsValid() {
			init = ir.Zero(d.Kind)
			s.decls[i].Initial = init
		}
		if !d.Accepts(init) {
			return nil, ir.NewTypeMismatch(ir.ClassConfig, d.Name, d.Kind, init.Kind())
		}
		s.index[d.Name] = Slot(i)
		s.live[i] = init
		s.published[i] = init
		s.writer[i] = ir.NoOwner
		if d.Source == ir.SourceHost {
			s.owner[i] = ir.HostOwner
		} else {
			s.owner[i] = ir.NoOwner
		}
	}

	for si, sys := range cfg.Systems {
		for _, p := range sys.Ports {
			slot, ok := s.index[p.Variable]
			if !ok {
				e := ir.NewUnknownVariable(ir.ClassConfig, p.Variable)
				e.System = sys.Name
				return nil, e
			}
			d := s.decls[slot]
			if p.Kind != ir.KindInvalid && p.Kind != d.Kind {
				e := ir.NewTypeMismatch(ir.ClassConfig, p.Variable, d.Kind, p.Kind)
				e.System = sys.Name
				e.Message = fmt.Sprintf("port %q is %s but variable is %s", p.Port, p.Kind, d.Kind)
				return nil, e
			}
			if p.Dir != ir.DirOut {
				continue
			}
			switch s.owner[slot] {
			case ir.NoOwner:
				s.owner[slot] = si
			case ir.HostOwner:
				return nil, &ir.Error{
					Class:    ir.ClassConfig,
					Code:     ir.ErrCodeOwnershipViolation,
					Message:  "system writes a host input",
					Variable: p.Variable,
					System:   sys.Name,
				}
			default:
				if s.owner[slot] != si {
					return nil, &ir.Error{
						Class:    ir.ClassConfig,
						Code:     ir.ErrCodeDuplicateWriter,
						Message:  fmt.Sprintf("already written by %s", cfg.Systems[s.owner[slot]].Name),
						Variable: p.Variable,
						System:   sys.Name,
					}
				}
			}
		}
	}

	return s, nil
}

// Len returns the number of declared variables.
func (s *Store) Len() int { return len(s.decls) }

// Lookup resolves an identifier to its slot.
func (s *Store) Lookup(id string) (Slot, bool) {
	slot, ok := s.index[id]
	return slot, ok
}

// Decl returns the declaration of slot.
func (s *Store) Decl(slot Slot) ir.VariableDecl { return s.decls[slot] }

// Owner returns the static owner of slot.
func (s *Store) Owner(slot Slot) int { return s.owner[slot] }

// Read returns the live value of id.
func (s *Store) Read(id string) (ir.Value, error) {
	slot, ok := s.index[id]
	if !ok {
		return ir.Value{}, ir.NewUnknownVariable(ir.ClassProtocol, id)
	}
	return s.live[slot], nil
}

// Get returns the live value of slot.
func (s *Store) Get(slot Slot) ir.Value { return s.live[slot] }

// Previous returns the value slot held at the end of the last complete tick.
func (s *Store) Previous(slot Slot) ir.Value { return s.published[slot] }

// Written reports whether slot was written during the current tick.
func (s *Store) Written(slot Slot) bool { return s.dirty[slot] }

// Write stores v into id on behalf of owner.
func (s *Store) Write(owner int, id string, v ir.Value) error {
	slot, ok := s.index[id]
	if !ok {
		return ir.NewUnknownVariable(ir.ClassSimulation, id)
	}
	return s.WriteSlot(owner, slot, v)
}

// WriteSlot stores v into slot on behalf of owner and marks it dirty.
//
// TYPE_MISMATCH when v does not fit the declaration; OWNERSHIP_VIOLATION when
// owner is not the declared writer or another writer already wrote the slot
// this tick. Errors are SimulationFaults: a system breaking either rule
// violates a structural invariant.
func (s *Store) WriteSlot(owner int, slot Slot, v ir.Value) error {
	d := s.decls[slot]
	if !d.Accepts(v) {
		return ir.NewTypeMismatch(ir.ClassSimulation, d.Name, d.Kind, v.Kind())
	}
	if s.owner[slot] != owner {
		return &ir.Error{
			Class:    ir.ClassSimulation,
			Code:     ir.ErrCodeOwnershipViolation,
			Message:  "writer does not own variable",
			Variable: d.Name,
		}
	}
	if s.dirty[slot] && s.writer[slot] != owner {
		return &ir.Error{
			Class:    ir.ClassSimulation,
			Code:     ir.ErrCodeOwnershipViolation,
			Message:  "variable already written this tick by another owner",
			Variable: d.Name,
		}
	}
	s.live[slot] = v
	s.dirty[slot] = true
	s.writer[slot] = owner
	return nil
}

// Stage queues a host input for the next tick boundary.
//
// Protocol errors: UNKNOWN_VARIABLE, TYPE_MISMATCH, or OWNERSHIP_VIOLATION
// when id is not a host input. Staging the same slot twice keeps the last
// value.
func (s *Store) Stage(id string, v ir.Value) error {
	slot, ok := s.index[id]
	if !ok {
		return ir.NewUnknownVariable(ir.ClassProtocol, id)
	}
	d := s.decls[slot]
	if s.owner[slot] != ir.HostOwner {
		return &ir.Error{
			Class:    ir.ClassProtocol,
			Code:     ir.ErrCodeOwnershipViolation,
			Message:  "variable is not a host input",
			Variable: id,
		}
	}
	if !d.Accepts(v) {
		return ir.NewTypeMismatch(ir.ClassProtocol, id, d.Kind, v.Kind())
	}
	if !s.hasStaged[slot] {
		s.pending = append(s.pending, slot)
		s.hasStaged[slot] = true
	}
	s.staged[slot] = v
	return nil
}

// BeginTick clears every written-this-tick flag.
func (s *Store) BeginTick() {
	for i := range s.dirty {
		s.dirty[i] = false
		s.writer[i] = ir.NoOwner
	}
}

// ApplyStaged writes all staged host inputs as the host owner, in staging
// order, and clears the staging area.
func (s *Store) ApplyStaged() error {
	for _, slot := range s.pending {
		if err := s.WriteSlot(ir.HostOwner, slot, s.staged[slot]); err != nil {
			return err
		}
		s.hasStaged[slot] = false
	}
	s.pending = s.pending[:0]
	return nil
}

// Publish exposes the live values as the result of a complete tick.
func (s *Store) Publish() {
	copy(s.published, s.live)
}

// Published returns what the host sees for id: a staged input when one is
// waiting, otherwise the value published by the last complete tick.
func (s *Store) Published(id string) (ir.Value, error) {
	slot, ok := s.index[id]
	if !ok {
		return ir.Value{}, ir.NewUnknownVariable(ir.ClassProtocol, id)
	}
	if s.hasStaged[slot] {
		return s.staged[slot], nil
	}
	return s.published[slot], nil
}

// PublishedSlot returns the published value of slot.
func (s *Store) PublishedSlot(slot Slot) ir.Value { return s.published[slot] }

// Hold restores slot to its published value on behalf of owner. Used when a
// degraded system must keep the outputs of the previous tick.
func (s *Store) Hold(owner int, slot Slot) {
	if s.owner[slot] != owner {
		return
	}
	s.live[slot] = s.published[slot]
}

// Rollback restores live values from the published buffer. Used when a tick
// is abandoned so the live buffer never holds a partial tick.
func (s *Store) Rollback() {
	copy(s.live, s.published)
}
