package harness

import (
	"fmt"
	"math"

	"github.com/roach88/aircore/internal/ir"
	"github.com/roach88/aircore/internal/store"
)

// TickTrace is one recorded tick as read back from the store.
type TickTrace struct {
	Tick    uint64              `json:"tick"`
	DT      float64             `json:"dt"`
	Outputs map[string]ir.Value `json:"outputs"`
	Faults  []store.Fault       `json:"faults,omitempty"`

	// Hash is the content address of Outputs.
	Hash string `json:"hash"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// Trace holds every recorded tick in order.
	Trace []TickTrace `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Stopped is the simulation fault that ended the run early, if any.
	Stopped string `json:"stopped,omitempty"`

	// RecordingID identifies the recording of the primary run.
	RecordingID string `json:"recording_id"`

	// Config is the compiled configuration the scenario ran.
	Config *ir.Config `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TickTrace{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Last returns the final tick of the trace.
func (r *Result) Last() (TickTrace, bool) {
	if len(r.Trace) == 0 {
		return TickTrace{}, false
	}
	return r.Trace[len(r.Trace)-1], true
}

// At returns the trace entry for tick (1-based).
func (r *Result) At(tick uint64) (TickTrace, bool) {
	if tick == 0 || tick > uint64(len(r.Trace)) {
		return TickTrace{}, false
	}
	return r.Trace[tick-1], true
}

func traceFromRecords(records []store.TickRecord) []TickTrace {
	out := make([]TickTrace, len(records))
	for i, tr := range records {
		out[i] = TickTrace{
			Tick:    tr.Tick,
			DT:      tr.DT,
			Outputs: tr.Outputs,
			Faults:  tr.Faults,
			Hash:    tr.OutputHash,
		}
	}
	return out
}

// convertValue converts a YAML scalar into a Value of decl's kind.
func convertValue(decl ir.VariableDecl, raw any) (ir.Value, error) {
	switch decl.Kind {
	case ir.KindBool:
		if b, ok := raw.(bool); ok {
			return ir.Bool(b), nil
		}
	case ir.KindInt:
		switch x := raw.(type) {
		case int:
			return ir.Int(int64(x)), nil
		case float64:
			if x == math.Trunc(x) {
				return ir.Int(int64(x)), nil
			}
		}
	case ir.KindReal:
		switch x := raw.(type) {
		case int:
			return ir.Real(float64(x)), nil
		case float64:
			return ir.Real(x), nil
		}
	case ir.KindEnum:
		switch x := raw.(type) {
		case string:
			if ord := decl.EnumOrdinal(x); ord >= 0 {
				return ir.Enum(ord), nil
			}
			return ir.Value{}, fmt.Errorf("%s: %q is not one of %v", decl.Name, x, decl.Values)
		case int:
			if x >= 0 && x < len(decl.Values) {
				return ir.Enum(x), nil
			}
		}
	}
	return ir.Value{}, fmt.Errorf("%s: %v (%T) is not a valid %s", decl.Name, raw, raw, decl.Kind)
}
