package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalConfig encodes the semantic content of cfg as canonical JSON.
// Name, units and descriptions are not part of the encoding, so two configs
// that simulate identically marshal (and hash) identically.
func MarshalConfig(cfg *Config) ([]byte, error) {
	data, err := MarshalCanonical(configObject(cfg))
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

func configObject(cfg *Config) map[string]any {
	vars := make([]any, len(cfg.Variables))
	for i, v := range cfg.Variables {
		initial := v.Initial
		if !initial.IsValid() {
			initial = Zero(v.Kind)
		}
		obj := map[string]any{
			"name":    v.Name,
			"kind":    v.Kind.String(),
			"source":  string(v.Source),
			"initial": initial,
		}
		if len(v.Values) > 0 {
			obj["values"] = v.Values
		}
		vars[i] = obj
	}

	systems := make([]any, len(cfg.Systems))
	for i, s := range cfg.Systems {
		params := make(map[string]any, len(s.Params))
		for k, p := range s.Params {
			params[k] = FormatReal(p)
		}
		ports := make([]any, len(s.Ports))
		for j, p := range s.Ports {
			ports[j] = map[string]any{
				"port":     p.Port,
				"variable": p.Variable,
				"dir":      p.Dir.String(),
				"feedback": p.Feedback,
			}
		}
		systems[i] = map[string]any{
			"name":   s.Name,
			"model":  s.Model,
			"params": params,
			"ports":  ports,
		}
	}

	return map[string]any{
		"ir_version": IRVersion,
		"step":       FormatReal(cfg.Step),
		"variables":  vars,
		"systems":    systems,
	}
}

type configRecord struct {
	IRVersion string           `json:"ir_version"`
	Step      string           `json:"step"`
	Variables []variableRecord `json:"variables"`
	Systems   []systemRecord   `json:"systems"`
}

type variableRecord struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Source  string   `json:"source"`
	Initial any      `json:"initial"`
	Values  []string `json:"values"`
}

type systemRecord struct {
	Name   string            `json:"name"`
	Model  string            `json:"model"`
	Params map[string]string `json:"params"`
	Ports  []struct {
		Port     string `json:"port"`
		Variable string `json:"variable"`
		Dir      string `json:"dir"`
		Feedback bool   `json:"feedback"`
	} `json:"ports"`
}

// UnmarshalConfig is the inverse of MarshalConfig. Port kinds are restored
// from the bound variable's declaration.
func UnmarshalConfig(data []byte) (*Config, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var rec configRecord
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if rec.IRVersion != IRVersion {
		return nil, fmt.Errorf("unmarshal config: ir_version %q, want %q", rec.IRVersion, IRVersion)
	}

	step, err := ParseReal(rec.Step)
	if err != nil {
		return nil, fmt.Errorf("unmarshal config: step: %w", err)
	}
	cfg := &Config{Step: step}

	kinds := make(map[string]Kind, len(rec.Variables))
	for _, v := range rec.Variables {
		kind, ok := ParseKind(v.Kind)
		if !ok {
			return nil, fmt.Errorf("unmarshal config: variable %s: unknown kind %q", v.Name, v.Kind)
		}
		initial, err := DecodeValue(kind, v.Initial)
		if err != nil {
			return nil, fmt.Errorf("unmarshal config: variable %s: %w", v.Name, err)
		}
		kinds[v.Name] = kind
		cfg.Variables = append(cfg.Variables, VariableDecl{
			Name:    v.Name,
			Kind:    kind,
			Values:  v.Values,
			Initial: initial,
			Source:  Source(v.Source),
		})
	}

	for _, s := range rec.Systems {
		decl := SystemDecl{Name: s.Name, Model: s.Model}
		if len(s.Params) > 0 {
			decl.Params = make(map[string]float64, len(s.Params))
			for k, raw := range s.Params {
				x, err := ParseReal(raw)
				if err != nil {
					return nil, fmt.Errorf("unmarshal config: system %s param %s: %w", s.Name, k, err)
				}
				decl.Params[k] = x
			}
		}
		for _, p := range s.Ports {
			var dir Direction
			switch p.Dir {
			case "in":
				dir = DirIn
			case "out":
				dir = DirOut
			default:
				return nil, fmt.Errorf("unmarshal config: system %s port %s: unknown direction %q", s.Name, p.Port, p.Dir)
			}
			decl.Ports = append(decl.Ports, PortBinding{
				Port:     p.Port,
				Variable: p.Variable,
				Dir:      dir,
				Kind:     kinds[p.Variable],
				Feedback: p.Feedback,
			})
		}
		cfg.Systems = append(cfg.Systems, decl)
	}

	return cfg, nil
}
