package harness

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/aircore/internal/ir"
	"github.com/roach88/aircore/internal/store"
)

// AssertionError provides detailed context about assertion failures.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("Assertion failed: %s\n  Expected: %s\n  Actual: %s", e.Type, e.Expected, e.Actual)
}

// AssertionContext carries what assertions need beyond the trace.
type AssertionContext struct {
	Config *ir.Config

	// Rerun executes the scenario again from scratch.
	Rerun func() ([]TickTrace, error)

	// Replay re-executes the stored recording.
	Replay func() (*store.ReplayResult, error)
}

// EvaluateAssertions checks all assertions against the result trace.
// Returns a list of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %s", i, a.Type, err.Error()))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertOutputEquals:
		return assertOutputEquals(result, a, actx.Config)
	case AssertOutputSaturated:
		return assertOutputSaturated(result, a, actx.Config)
	case AssertFaultCount:
		return assertFaultCount(result, a)
	case AssertDeterministic:
		return assertDeterministic(result, actx)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// pick returns the tick an assertion targets. Tick 0 means the last one.
func pick(result *Result, tick uint64) (TickTrace, error) {
	if tick == 0 {
		if tt, ok := result.Last(); ok {
			return tt, nil
		}
		return TickTrace{}, fmt.Errorf("trace is empty")
	}
	tt, ok := result.At(tick)
	if !ok {
		return TickTrace{}, fmt.Errorf("tick %d not in trace (%d ticks)", tick, len(result.Trace))
	}
	return tt, nil
}

func lookupOutput(result *Result, a Assertion, cfg *ir.Config) (ir.VariableDecl, ir.Value, TickTrace, error) {
	decl, ok := cfg.Variable(ir.NormalizeID(a.Variable))
	if !ok {
		return ir.VariableDecl{}, ir.Value{}, TickTrace{}, fmt.Errorf("variable %q is not declared", a.Variable)
	}
	tt, err := pick(result, a.Tick)
	if err != nil {
		return decl, ir.Value{}, tt, err
	}
	got, ok := tt.Outputs[decl.Name]
	if !ok {
		return decl, ir.Value{}, tt, fmt.Errorf("variable %q not in outputs of tick %d", decl.Name, tt.Tick)
	}
	return decl, got, tt, nil
}

// assertOutputEquals compares one output against an expected value. Reals
// match within Tolerance; every other kind must match exactly.
func assertOutputEquals(result *Result, a Assertion, cfg *ir.Config) error {
	decl, got, tt, err := lookupOutput(result, a, cfg)
	if err != nil {
		return err
	}
	want, err := convertValue(decl, a.Value)
	if err != nil {
		return err
	}

	match := got.Equal(want)
	if decl.Kind == ir.KindReal {
		match = math.Abs(got.AsReal()-want.AsReal()) <= a.Tolerance
	}
	if match {
		return nil
	}
	return &AssertionError{
		Type:     fmt.Sprintf("output_equals %s at tick %d", decl.Name, tt.Tick),
		Expected: describe(decl, want, a.Tolerance),
		Actual:   describe(decl, got, 0),
	}
}

// assertOutputSaturated checks that a bool saturation flag is set.
func assertOutputSaturated(result *Result, a Assertion, cfg *ir.Config) error {
	decl, got, tt, err := lookupOutput(result, a, cfg)
	if err != nil {
		return err
	}
	if decl.Kind != ir.KindBool {
		return fmt.Errorf("variable %q is %s, saturation flags are bool", decl.Name, decl.Kind)
	}
	if got.AsBool() {
		return nil
	}
	return &AssertionError{
		Type:     fmt.Sprintf("output_saturated %s at tick %d", decl.Name, tt.Tick),
		Expected: "true",
		Actual:   "false",
	}
}

// assertFaultCount counts recorded faults across the whole trace, filtered
// by code and system when given.
func assertFaultCount(result *Result, a Assertion) error {
	n := 0
	for _, tt := range result.Trace {
		for _, f := range tt.Faults {
			if a.Code != "" && string(f.Code) != a.Code {
				continue
			}
			if a.System != "" && f.System != a.System {
				continue
			}
			n++
		}
	}
	if n == *a.Count {
		return nil
	}
	filter := "all"
	if a.Code != "" || a.System != "" {
		filter = strings.TrimSuffix(a.Code+"@"+a.System, "@")
	}
	return &AssertionError{
		Type:     fmt.Sprintf("fault_count (%s)", filter),
		Expected: fmt.Sprintf("%d", *a.Count),
		Actual:   fmt.Sprintf("%d", n),
	}
}

// assertDeterministic runs the scenario a second time and requires the same
// output hash and faults at every tick, then replays the stored recording.
func assertDeterministic(result *Result, actx *AssertionContext) error {
	again, err := actx.Rerun()
	if err != nil {
		return fmt.Errorf("rerun: %w", err)
	}
	if len(again) != len(result.Trace) {
		return &AssertionError{
			Type:     "deterministic tick count",
			Expected: fmt.Sprintf("%d", len(result.Trace)),
			Actual:   fmt.Sprintf("%d", len(again)),
		}
	}
	for i, tt := range result.Trace {
		other := again[i]
		if tt.Hash != other.Hash {
			return &AssertionError{
				Type:     fmt.Sprintf("deterministic outputs at tick %d", tt.Tick),
				Expected: tt.Hash,
				Actual:   other.Hash,
			}
		}
		if !slices.Equal(faultKeys(tt.Faults), faultKeys(other.Faults)) {
			return &AssertionError{
				Type:     fmt.Sprintf("deterministic faults at tick %d", tt.Tick),
				Expected: strings.Join(faultKeys(tt.Faults), ","),
				Actual:   strings.Join(faultKeys(other.Faults), ","),
			}
		}
	}

	rr, err := actx.Replay()
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	if !rr.OK() {
		return &AssertionError{
			Type:     "deterministic replay",
			Expected: "no divergence",
			Actual:   rr.Divergence.String(),
		}
	}
	return nil
}

func faultKeys(faults []store.Fault) []string {
	keys := make([]string, len(faults))
	for i, f := range faults {
		keys[i] = string(f.Code) + "@" + f.System
	}
	return keys
}

func describe(decl ir.VariableDecl, v ir.Value, tolerance float64) string {
	s := v.String()
	if decl.Kind == ir.KindEnum && v.Ordinal() >= 0 && v.Ordinal() < len(decl.Values) {
		s = decl.Values[v.Ordinal()]
	}
	if tolerance > 0 {
		s += " ± " + ir.FormatReal(tolerance)
	}
	return s
}
