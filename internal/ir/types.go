package ir

// Source identifies who owns writes to a variable.
type Source string

const (
	// SourceHost marks a variable driven by the host through the bridge.
	SourceHost Source = "host"

	// SourceSystem marks a variable written by exactly one system model.
	SourceSystem Source = "system"
)

// HostOwner is the owner index used for host-driven writes.
// System owners are their index in Config.Systems.
const HostOwner = -1

// NoOwner marks a variable nobody writes. Its initial value is constant.
const NoOwner = -2

// VariableDecl declares one slot of the variable store.
type VariableDecl struct {
	Name        string   `json:"name"`
	Kind        Kind     `json:"kind"`
	Values      []string `json:"values,omitempty"` // enum labels, ordinal order
	Initial     Value    `json:"-"`
	Source      Source   `json:"source"`
	Unit        string   `json:"unit,omitempty"`
	Description string   `json:"description,omitempty"`
}

// EnumOrdinal returns the ordinal of label, or -1 when it is not declared.
func (d VariableDecl) EnumOrdinal(label string) int {
	for i, v := range d.Values {
		if v == label {
			return i
		}
	}
	return -1
}

// Accepts reports whether v may be stored in a slot with this declaration.
// Enum ordinals must fall inside the declared label range.
func (d VariableDecl) Accepts(v Value) bool {
	if v.Kind() != d.Kind {
		return false
	}
	if d.Kind == KindEnum {
		return v.Ordinal() >= 0 && v.Ordinal() < len(d.Values)
	}
	return true
}

// Direction is the data direction of a model port.
type Direction uint8

const (
	DirIn Direction = iota + 1
	DirOut
)

// String returns "in" or "out".
func (d Direction) String() string {
	switch d {
	case DirIn:
		return "in"
	case DirOut:
		return "out"
	}
	return "unknown"
}

// PortBinding connects a model port to a variable.
type PortBinding struct {
	Port     string    `json:"port"`
	Variable string    `json:"variable"`
	Dir      Direction `json:"dir"`
	Kind     Kind      `json:"kind"`

	// Feedback reads see the value published at the end of the previous tick
	// and never produce a same-tick coupling edge.
	Feedback bool `json:"feedback,omitempty"`
}

// SystemDecl declares a system instance and its static variable access.
type SystemDecl struct {
	Name   string             `json:"name"`
	Model  string             `json:"model"`
	Params map[string]float64 `json:"params,omitempty"`
	Ports  []PortBinding      `json:"ports"` // declaration order
}

// Reads returns the variables read in the same tick, in port order.
func (s SystemDecl) Reads() []string {
	var out []string
	for _, p := range s.Ports {
		if p.Dir == DirIn && !p.Feedback {
			out = append(out, p.Variable)
		}
	}
	return out
}

// FeedbackReads returns the variables read from the previous tick.
func (s SystemDecl) FeedbackReads() []string {
	var out []string
	for _, p := range s.Ports {
		if p.Dir == DirIn && p.Feedback {
			out = append(out, p.Variable)
		}
	}
	return out
}

// Writes returns the variables this system owns, in port order.
func (s SystemDecl) Writes() []string {
	var out []string
	for _, p := range s.Ports {
		if p.Dir == DirOut {
			out = append(out, p.Variable)
		}
	}
	return out
}

// Config is a compiled, validated system configuration.
//
// Variables and Systems keep declaration order; that order is the
// deterministic tie-break for coupling and for output listings.
type Config struct {
	Name      string         `json:"name"`
	Step      float64        `json:"-"` // fixed step in seconds, 0 = host chooses
	Variables []VariableDecl `json:"variables"`
	Systems   []SystemDecl   `json:"systems"`
}

// Variable returns the declaration named id.
func (c *Config) Variable(id string) (VariableDecl, bool) {
	for _, v := range c.Variables {
		if v.Name == id {
			return v, true
		}
	}
	return VariableDecl{}, false
}

// System returns the declaration named name.
func (c *Config) System(name string) (SystemDecl, bool) {
	for _, s := range c.Systems {
		if s.Name == name {
			return s, true
		}
	}
	return SystemDecl{}, false
}
