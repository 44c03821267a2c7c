package ir

import (
	"errors"
	"fmt"
)

// ErrorClass groups error codes by how the caller must react.
type ErrorClass string

const (
	// ClassConfig errors are fatal to initialization.
	ClassConfig ErrorClass = "CONFIG_ERROR"

	// ClassRuntime faults are contained within one system for one tick.
	ClassRuntime ErrorClass = "RUNTIME_FAULT"

	// ClassProtocol errors report host misuse and never change core state.
	ClassProtocol ErrorClass = "PROTOCOL_ERROR"

	// ClassSimulation faults violate a structural invariant and stop the session.
	ClassSimulation ErrorClass = "SIMULATION_FAULT"
)

// ErrorCode identifies a specific failure.
type ErrorCode string

const (
	ErrCodeUnknownVariable    ErrorCode = "UNKNOWN_VARIABLE"
	ErrCodeTypeMismatch       ErrorCode = "TYPE_MISMATCH"
	ErrCodeOwnershipViolation ErrorCode = "OWNERSHIP_VIOLATION"
	ErrCodeCyclicDependency   ErrorCode = "CYCLIC_DEPENDENCY"
	ErrCodeDuplicateWriter    ErrorCode = "DUPLICATE_WRITER"
	ErrCodeUnknownModel       ErrorCode = "UNKNOWN_MODEL"
	ErrCodeInvalidParam       ErrorCode = "INVALID_PARAM"
	ErrCodeDegradedUpdate     ErrorCode = "DEGRADED_UPDATE"
	ErrCodeInvalidHandle      ErrorCode = "INVALID_HANDLE"
	ErrCodeInvalidStep        ErrorCode = "INVALID_STEP"
	ErrCodeSimulationStopped  ErrorCode = "SIMULATION_STOPPED"
	ErrCodeUndeclaredWrite    ErrorCode = "UNDECLARED_WRITE"

	// ErrCodeDuplicateDeclaration reports a variable or system name declared twice.
	ErrCodeDuplicateDeclaration ErrorCode = "DUPLICATE_DECLARATION"
)

// Error is the single structured error type of the core.
//
// Class tells the caller whether the session is still usable; Code names the
// failure. Variable and System are filled when the failure is attributable.
type Error struct {
	Class    ErrorClass
	Code     ErrorCode
	Message  string
	Variable string
	System   string

	// Path holds the cycle path for CYCLIC_DEPENDENCY.
	Path []string

	// Err is an optional underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.System != "" && e.Variable != "":
		return fmt.Sprintf("%s: %s (system=%s, variable=%s)", e.Code, e.Message, e.System, e.Variable)
	case e.System != "":
		return fmt.Sprintf("%s: %s (system=%s)", e.Code, e.Message, e.System)
	case e.Variable != "":
		return fmt.Sprintf("%s: %s (variable=%s)", e.Code, e.Message, e.Variable)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Code, so sentinel-style comparisons work:
//
//	errors.Is(err, &ir.Error{Code: ir.ErrCodeInvalidHandle})
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Class == "" || t.Class == e.Class)
}

// WithClass returns a copy of e reclassified. Used when an error raised by a
// lower layer has a different meaning at the boundary that reports it.
func (e *Error) WithClass(c ErrorClass) *Error {
	cp := *e
	cp.Class = c
	return &cp
}

// AsError extracts the *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HasCode reports whether err carries code.
func HasCode(err error, code ErrorCode) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}

// IsConfigError reports whether err is a setup-time configuration error.
func IsConfigError(err error) bool { return hasClass(err, ClassConfig) }

// IsRuntimeFault reports whether err is a contained per-tick fault.
func IsRuntimeFault(err error) bool { return hasClass(err, ClassRuntime) }

// IsProtocolError reports whether err reports host misuse.
func IsProtocolError(err error) bool { return hasClass(err, ClassProtocol) }

// IsSimulationFault reports whether err stopped the simulation.
func IsSimulationFault(err error) bool { return hasClass(err, ClassSimulation) }

func hasClass(err error, c ErrorClass) bool {
	e, ok := AsError(err)
	return ok && e.Class == c
}

// NewUnknownVariable creates an UNKNOWN_VARIABLE error.
func NewUnknownVariable(class ErrorClass, id string) *Error {
	return &Error{
		Class:    class,
		Code:     ErrCodeUnknownVariable,
		Message:  "variable was never declared",
		Variable: id,
	}
}

// NewTypeMismatch creates a TYPE_MISMATCH error.
func NewTypeMismatch(class ErrorClass, id string, want, got Kind) *Error {
	return &Error{
		Class:    class,
		Code:     ErrCodeTypeMismatch,
		Message:  fmt.Sprintf("declared %s, got %s", want, got),
		Variable: id,
	}
}

// NewCycleError creates a CYCLIC_DEPENDENCY configuration error.
func NewCycleError(path []string) *Error {
	return &Error{
		Class:   ClassConfig,
		Code:    ErrCodeCyclicDependency,
		Message: fmt.Sprintf("same-tick dependency cycle: %s", joinPath(path)),
		Path:    path,
	}
}

// NewInvalidHandle creates an INVALID_HANDLE protocol error.
func NewInvalidHandle(handle string) *Error {
	return &Error{
		Class:   ClassProtocol,
		Code:    ErrCodeInvalidHandle,
		Message: fmt.Sprintf("handle %q is not open", handle),
	}
}

func joinPath(path []string) string {
	s := ""
	for i, p := range path {
		if i > 0 {
			s += " -> "
		}
		s += p
	}
	return s
}
