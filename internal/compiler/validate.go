package compiler

import (
	"fmt"
	"math"
	"slices"

	"github.com/roach88/aircore/internal/coupling"
	"github.com/roach88/aircore/internal/ir"
	"github.com/roach88/aircore/internal/systems"
)

// Catalog is the model registry used for validation.
type Catalog interface {
	PortCatalog
	Instantiate(decl ir.SystemDecl) (systems.Model, error)
}

// ValidationError represents one configuration problem.
type ValidationError struct {
	Field   string       `json:"field"`
	Message string       `json:"message"`
	Code    ir.ErrorCode `json:"code"`
	Path    []string     `json:"path,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled configuration against the ownership, typing
// and coupling rules. Returns all errors found (does not fail-fast).
//
// The coupling graph is only built once every port resolves and every
// variable has a single writer, so a cycle is reported against a
// configuration that is otherwise sound.
func Validate(cfg *ir.Config, catalog Catalog) []ValidationError {
	var errs []ValidationError

	if cfg.Step < 0 || math.IsNaN(cfg.Step) || math.IsInf(cfg.Step, 0) {
		errs = append(errs, ValidationError{
			Field:   "step",
			Message: fmt.Sprintf("step must be a positive finite number, got %v", cfg.Step),
			Code:    ir.ErrCodeInvalidStep,
		})
	}

	decls := make(map[string]ir.VariableDecl, len(cfg.Variables))
	for _, d := range cfg.Variables {
		field := "variable." + d.Name
		if _, dup := decls[d.Name]; dup {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "variable declared twice",
				Code:    ir.ErrCodeDuplicateDeclaration,
			})
			continue
		}
		decls[d.Name] = d
		errs = append(errs, validateVariable(field, d)...)
	}

	writer := make(map[string]string)
	seen := make(map[string]bool, len(cfg.Systems))
	for _, sys := range cfg.Systems {
		field := "system." + sys.Name
		if seen[sys.Name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "system declared twice",
				Code:    ir.ErrCodeDuplicateDeclaration,
			})
			continue
		}
		seen[sys.Name] = true

		if _, err := catalog.Instantiate(sys); err != nil {
			errs = append(errs, fromError(field, err))
		}

		for _, p := range sys.Ports {
			pfield := field + ".ports." + p.Port
			d, ok := decls[p.Variable]
			if !ok {
				errs = append(errs, ValidationError{
					Field:   pfield,
					Message: fmt.Sprintf("variable %q was never declared", p.Variable),
					Code:    ir.ErrCodeUnknownVariable,
				})
				continue
			}
			if p.Kind != ir.KindInvalid && p.Kind != d.Kind {
				errs = append(errs, ValidationError{
					Field:   pfield,
					Message: fmt.Sprintf("port is %s but variable %s is %s", p.Kind, d.Name, d.Kind),
					Code:    ir.ErrCodeTypeMismatch,
				})
			} else if spec, ok := catalog.PortOf(sys.Model, p.Port); ok && spec.Kind == ir.KindEnum && d.Kind == ir.KindEnum && !slices.Equal(spec.Values, d.Values) {
				errs = append(errs, ValidationError{
					Field:   pfield,
					Message: fmt.Sprintf("port has enum labels %v but variable %s declares %v", spec.Values, d.Name, d.Values),
					Code:    ir.ErrCodeTypeMismatch,
				})
			}
			if p.Dir != ir.DirOut {
				continue
			}
			if d.Source == ir.SourceHost {
				errs = append(errs, ValidationError{
					Field:   pfield,
					Message: fmt.Sprintf("variable %s is a host input", d.Name),
					Code:    ir.ErrCodeOwnershipViolation,
				})
				continue
			}
			if prev, taken := writer[d.Name]; taken && prev != sys.Name {
				errs = append(errs, ValidationError{
					Field:   pfield,
					Message: fmt.Sprintf("variable %s is already written by %s", d.Name, prev),
					Code:    ir.ErrCodeDuplicateWriter,
				})
				continue
			}
			writer[d.Name] = sys.Name
		}
	}

	if len(errs) > 0 {
		return errs
	}

	if _, err := coupling.Build(cfg.Systems); err != nil {
		errs = append(errs, fromError("system", err))
	}
	return errs
}

func validateVariable(field string, d ir.VariableDecl) []ValidationError {
	var errs []ValidationError

	if d.Kind == ir.KindInvalid {
		return []ValidationError{{
			Field:   field + ".type",
			Message: "variable has no type",
			Code:    ir.ErrCodeTypeMismatch,
		}}
	}
	if d.Source != ir.SourceHost && d.Source != ir.SourceSystem {
		errs = append(errs, ValidationError{
			Field:   field + ".source",
			Message: fmt.Sprintf("source must be %q or %q, got %q", ir.SourceSystem, ir.SourceHost, d.Source),
			Code:    ir.ErrCodeInvalidParam,
		})
	}
	if d.Kind == ir.KindEnum {
		labels := make(map[string]bool, len(d.Values))
		for _, l := range d.Values {
			if labels[l] {
				errs = append(errs, ValidationError{
					Field:   field + ".values",
					Message: fmt.Sprintf("label %q declared twice", l),
					Code:    ir.ErrCodeDuplicateDeclaration,
				})
			}
			labels[l] = true
		}
	}
	if d.Initial.IsValid() && !d.Accepts(d.Initial) {
		errs = append(errs, ValidationError{
			Field:   field + ".initial",
			Message: fmt.Sprintf("initial value %s does not fit %s", d.Initial, d.Kind),
			Code:    ir.ErrCodeTypeMismatch,
		})
	}
	if d.Kind == ir.KindReal && d.Initial.IsValid() && d.Initial.Kind() == ir.KindReal {
		if x := d.Initial.AsReal(); math.IsNaN(x) || math.IsInf(x, 0) {
			errs = append(errs, ValidationError{
				Field:   field + ".initial",
				Message: "initial value is not finite",
				Code:    ir.ErrCodeInvalidParam,
			})
		}
	}
	return errs
}

// fromError converts a structured core error into a ValidationError.
func fromError(field string, err error) ValidationError {
	e, ok := ir.AsError(err)
	if !ok {
		return ValidationError{Field: field, Message: err.Error(), Code: ir.ErrCodeInvalidParam}
	}
	return ValidationError{Field: field, Message: e.Message, Code: e.Code, Path: e.Path}
}
