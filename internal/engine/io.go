package engine

import (
	"fmt"

	"github.com/roach88/aircore/internal/ir"
	"github.com/roach88/aircore/internal/vars"
)

// portRef is a port resolved to its store slot at setup.
type portRef struct {
	slot     vars.Slot
	dir      ir.Direction
	feedback bool
}

// portIO implements systems.IO for one system. Port names resolve through a
// map built once; values move through preallocated store slots.
type portIO struct {
	store  *vars.Store
	owner  int
	system string

	bound    map[string]portRef
	declared map[string]bool // every port the model kind declares

	// err is the first structural violation seen during the current update.
	err error
}

func (p *portIO) Bound(port string) bool {
	_, ok := p.bound[port]
	return ok
}

func (p *portIO) read(port string) ir.Value {
	ref, ok := p.bound[port]
	if !ok {
		if !p.declared[port] {
			p.fail(ir.ErrCodeUnknownVariable, port, "read of undeclared port")
		}
		return ir.Value{}
	}
	if ref.feedback {
		return p.store.Previous(ref.slot)
	}
	return p.store.Get(ref.slot)
}

func (p *portIO) write(port string, v ir.Value) {
	ref, ok := p.bound[port]
	if !ok {
		if !p.declared[port] {
			p.fail(ir.ErrCodeUndeclaredWrite, port, "write to undeclared port")
		}
		return
	}
	if ref.dir != ir.DirOut {
		p.fail(ir.ErrCodeUndeclaredWrite, port, "write to input port")
		return
	}
	if err := p.store.WriteSlot(p.owner, ref.slot, v); err != nil && p.err == nil {
		if e, ok := ir.AsError(err); ok {
			e.System = p.system
		}
		p.err = err
	}
}

func (p *portIO) fail(code ir.ErrorCode, port, msg string) {
	if p.err != nil {
		return
	}
	p.err = &ir.Error{
		Class:   ir.ClassSimulation,
		Code:    code,
		Message: fmt.Sprintf("%s %q", msg, port),
		System:  p.system,
	}
}

func (p *portIO) Real(port string) float64 { return p.read(port).AsReal() }
func (p *portIO) Bool(port string) bool    { return p.read(port).AsBool() }
func (p *portIO) Enum(port string) int     { return p.read(port).Ordinal() }

func (p *portIO) SetReal(port string, x float64)   { p.write(port, ir.Real(x)) }
func (p *portIO) SetBool(port string, b bool)      { p.write(port, ir.Bool(b)) }
func (p *portIO) SetEnum(port string, ordinal int) { p.write(port, ir.Enum(ordinal)) }
