package compiler

import (
	_ "embed"
	"fmt"
	"maps"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/aircore/internal/ir"
	"github.com/roach88/aircore/internal/systems"
)

//go:embed schema.cue
var schemaSource string

// PortCatalog resolves models and their ports. Implemented by
// *systems.Registry.
type PortCatalog interface {
	Lookup(model string) (systems.ModelSpec, bool)
	PortOf(model, port string) (systems.PortSpec, bool)
}

// Compile turns a CUE configuration value into an ir.Config.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is first unified with the embedded schema, so shape errors
// (unknown fields, wrong types) come back as CompileErrors with positions.
// Port directions and kinds are resolved through catalog; an unknown model
// is an UNKNOWN_MODEL ConfigError and an unknown port an INVALID_PARAM one.
//
// Variables and systems keep their declaration order. Identifiers are NFC
// normalized.
func Compile(v cue.Value, catalog PortCatalog) (*ir.Config, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema := v.Context().CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	v = v.Unify(schema)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	cfg := &ir.Config{}

	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		cfg.Name = name
	}

	if stepVal := v.LookupPath(cue.ParsePath("step")); stepVal.Exists() {
		step, err := stepVal.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		cfg.Step = step
	}

	vars, err := parseVariables(v.LookupPath(cue.ParsePath("variable")))
	if err != nil {
		return nil, err
	}
	cfg.Variables = vars

	sys, err := parseSystems(v.LookupPath(cue.ParsePath("system")), catalog)
	if err != nil {
		return nil, err
	}
	cfg.Systems = sys

	return cfg, nil
}

// CompileString compiles configuration source held in memory. filename is
// used for error positions.
func CompileString(src, filename string, catalog PortCatalog) (*ir.Config, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	return Compile(v, catalog)
}

// label returns the unquoted field name at the iterator.
func label(iter *cue.Iterator) string {
	sel := iter.Selector()
	if sel.LabelType() == cue.StringLabel {
		return sel.Unquoted()
	}
	return sel.String()
}

// parseVariables extracts variable declarations in declaration order.
func parseVariables(v cue.Value) ([]ir.VariableDecl, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []ir.VariableDecl
	for iter.Next() {
		name := ir.NormalizeID(label(iter))
		decl, err := parseVariable(name, iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, decl)
	}
	return out, nil
}

func parseVariable(name string, v cue.Value) (ir.VariableDecl, error) {
	decl := ir.VariableDecl{Name: name}
	field := "variable." + name

	typeName, err := v.LookupPath(cue.ParsePath("type")).String()
	if err != nil {
		return decl, formatCUEError(err)
	}
	kind, ok := ir.ParseKind(typeName)
	if !ok {
		return decl, &CompileError{Field: field + ".type", Message: fmt.Sprintf("unknown type %q", typeName), Pos: v.Pos()}
	}
	decl.Kind = kind

	source, err := v.LookupPath(cue.ParsePath("source")).String()
	if err != nil {
		return decl, formatCUEError(err)
	}
	decl.Source = ir.Source(source)

	if valuesVal := v.LookupPath(cue.ParsePath("values")); valuesVal.Exists() {
		list, err := valuesVal.List()
		if err != nil {
			return decl, formatCUEError(err)
		}
		for list.Next() {
			s, err := list.Value().String()
			if err != nil {
				return decl, formatCUEError(err)
			}
			decl.Values = append(decl.Values, s)
		}
	}
	if kind == ir.KindEnum && len(decl.Values) == 0 {
		return decl, &CompileError{Field: field + ".values", Message: "enum variable needs at least one label", Pos: v.Pos()}
	}
	if kind != ir.KindEnum && len(decl.Values) > 0 {
		return decl, &CompileError{Field: field + ".values", Message: "values only apply to enum variables", Pos: v.Pos()}
	}

	for _, opt := range []struct {
		key string
		dst *string
	}{
		{"unit", &decl.Unit},
		{"description", &decl.Description},
	} {
		if ov := v.LookupPath(cue.ParsePath(opt.key)); ov.Exists() {
			s, err := ov.String()
			if err != nil {
				return decl, formatCUEError(err)
			}
			*opt.dst = s
		}
	}

	if initVal := v.LookupPath(cue.ParsePath("initial")); initVal.Exists() {
		init, err := parseInitial(decl, initVal)
		if err != nil {
			return decl, err
		}
		decl.Initial = init
	} else {
		decl.Initial = ir.Zero(kind)
	}

	return decl, nil
}

// parseInitial decodes an initial value for the declared kind. Enum
// initials may be a label or an ordinal.
func parseInitial(decl ir.VariableDecl, v cue.Value) (ir.Value, error) {
	field := "variable." + decl.Name + ".initial"
	mismatch := func() error {
		return &CompileError{Field: field, Message: fmt.Sprintf("initial value is not a %s", decl.Kind), Pos: v.Pos()}
	}

	switch decl.Kind {
	case ir.KindBool:
		b, err := v.Bool()
		if err != nil {
			return ir.Value{}, mismatch()
		}
		return ir.Bool(b), nil
	case ir.KindInt:
		n, err := v.Int64()
		if err != nil {
			return ir.Value{}, mismatch()
		}
		return ir.Int(n), nil
	case ir.KindReal:
		x, err := v.Float64()
		if err != nil {
			return ir.Value{}, mismatch()
		}
		return ir.Real(x), nil
	case ir.KindEnum:
		if s, err := v.String(); err == nil {
			ord := decl.EnumOrdinal(s)
			if ord < 0 {
				return ir.Value{}, &CompileError{Field: field, Message: fmt.Sprintf("%q is not one of %v", s, decl.Values), Pos: v.Pos()}
			}
			return ir.Enum(ord), nil
		}
		n, err := v.Int64()
		if err != nil || n < 0 || int(n) >= len(decl.Values) {
			return ir.Value{}, mismatch()
		}
		return ir.Enum(int(n)), nil
	}
	return ir.Value{}, mismatch()
}

// parseSystems extracts system declarations in declaration order.
func parseSystems(v cue.Value, catalog PortCatalog) ([]ir.SystemDecl, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []ir.SystemDecl
	for iter.Next() {
		name := ir.NormalizeID(label(iter))
		decl, err := parseSystem(name, iter.Value(), catalog)
		if err != nil {
			return nil, err
		}
		out = append(out, decl)
	}
	return out, nil
}

func parseSystem(name string, v cue.Value, catalog PortCatalog) (ir.SystemDecl, error) {
	decl := ir.SystemDecl{Name: name}
	field := "system." + name

	model, err := v.LookupPath(cue.ParsePath("model")).String()
	if err != nil {
		return decl, formatCUEError(err)
	}
	decl.Model = model
	if _, ok := catalog.Lookup(model); !ok {
		return decl, &ir.Error{
			Class:   ir.ClassConfig,
			Code:    ir.ErrCodeUnknownModel,
			Message: fmt.Sprintf("model %q is not registered", model),
			System:  name,
		}
	}

	if paramsVal := v.LookupPath(cue.ParsePath("params")); paramsVal.Exists() {
		iter, err := paramsVal.Fields()
		if err != nil {
			return decl, formatCUEError(err)
		}
		decl.Params = make(map[string]float64)
		for iter.Next() {
			x, err := iter.Value().Float64()
			if err != nil {
				return decl, formatCUEError(err)
			}
			decl.Params[label(iter)] = x
		}
	}

	feedback := make(map[string]bool)
	if fbVal := v.LookupPath(cue.ParsePath("feedback")); fbVal.Exists() {
		list, err := fbVal.List()
		if err != nil {
			return decl, formatCUEError(err)
		}
		for list.Next() {
			port, err := list.Value().String()
			if err != nil {
				return decl, formatCUEError(err)
			}
			feedback[port] = true
		}
	}

	iter, err := v.LookupPath(cue.ParsePath("ports")).Fields()
	if err != nil {
		return decl, formatCUEError(err)
	}
	for iter.Next() {
		port := label(iter)
		variable, err := iter.Value().String()
		if err != nil {
			return decl, formatCUEError(err)
		}

		spec, ok := catalog.PortOf(model, port)
		if !ok {
			return decl, &ir.Error{
				Class:   ir.ClassConfig,
				Code:    ir.ErrCodeInvalidParam,
				Message: fmt.Sprintf("model %s has no port %q", model, port),
				System:  name,
			}
		}

		b := ir.PortBinding{
			Port:     port,
			Variable: ir.NormalizeID(variable),
			Dir:      spec.Dir,
			Kind:     spec.Kind,
		}
		if feedback[port] {
			if spec.Dir != ir.DirIn {
				return decl, &CompileError{Field: field + ".feedback", Message: fmt.Sprintf("port %q is not an input", port), Pos: v.Pos()}
			}
			b.Feedback = true
			delete(feedback, port)
		}
		decl.Ports = append(decl.Ports, b)
	}
	if len(feedback) > 0 {
		port := slices.Sorted(maps.Keys(feedback))[0]
		return decl, &CompileError{Field: field + ".feedback", Message: fmt.Sprintf("port %q is not bound", port), Pos: v.Pos()}
	}

	return decl, nil
}
