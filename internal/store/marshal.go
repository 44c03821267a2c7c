package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/aircore/internal/ir"
)

// marshalValues converts a name-to-value map to canonical JSON TEXT.
func marshalValues(values map[string]ir.Value) (string, error) {
	if values == nil {
		values = map[string]ir.Value{}
	}
	data, err := ir.MarshalCanonical(values)
	if err != nil {
		return "", fmt.Errorf("marshal values: %w", err)
	}
	return string(data), nil
}

// marshalFaults converts faults to canonical JSON TEXT. Order is kept.
func marshalFaults(faults []Fault) (string, error) {
	arr := make([]any, len(faults))
	for i, f := range faults {
		arr[i] = map[string]any{
			"class":   string(f.Class),
			"code":    string(f.Code),
			"system":  f.System,
			"message": f.Message,
		}
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal faults: %w", err)
	}
	return string(data), nil
}

// unmarshalValues parses canonical JSON TEXT using each variable's declared
// kind. Names missing from kinds are an error: the record does not belong
// to the configuration.
func unmarshalValues(data string, kinds map[string]ir.Kind) (map[string]ir.Value, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal values: %w", err)
	}

	out := make(map[string]ir.Value, len(raw))
	for name, r := range raw {
		kind, ok := kinds[name]
		if !ok {
			return nil, fmt.Errorf("unmarshal values: variable %q is not declared", name)
		}
		v, err := ir.DecodeValue(kind, r)
		if err != nil {
			return nil, fmt.Errorf("unmarshal values: %s: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

// unmarshalFaults parses JSON TEXT to faults.
func unmarshalFaults(data string) ([]Fault, error) {
	var faults []Fault
	if err := json.Unmarshal([]byte(data), &faults); err != nil {
		return nil, fmt.Errorf("unmarshal faults: %w", err)
	}
	return faults, nil
}

func kindsOf(cfg *ir.Config) map[string]ir.Kind {
	kinds := make(map[string]ir.Kind, len(cfg.Variables))
	for _, v := range cfg.Variables {
		kinds[v.Name] = v.Kind
	}
	return kinds
}
