package ir

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is the declared type tag of a variable.
type Kind uint8

const (
	// KindInvalid is the zero Kind. No declared variable has it.
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindReal
	KindEnum
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindBool:    "bool",
	KindInt:     "int",
	KindReal:    "real",
	KindEnum:    "enum",
}

// String returns the lowercase name used in configuration files.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind converts a configuration type name into a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "bool":
		return KindBool, true
	case "int":
		return KindInt, true
	case "real":
		return KindReal, true
	case "enum":
		return KindEnum, true
	}
	return KindInvalid, false
}

// Value is a tagged scalar stored in the variable store.
//
// Value is a small comparable struct so it can be copied between the live,
// published and staged buffers without heap allocation. Bool, Int and Enum
// values live in n; Real values live in r.
type Value struct {
	kind Kind
	n    int64
	r    float64
}

// Bool returns a boolean Value.
func Bool(b bool) Value {
	if b {
		return Value{kind: KindBool, n: 1}
	}
	return Value{kind: KindBool}
}

// Int returns an integer Value.
func Int(n int64) Value {
	return Value{kind: KindInt, n: n}
}

// Real returns a real-number Value.
func Real(x float64) Value {
	return Value{kind: KindReal, r: x}
}

// Enum returns an enumerated Value holding the ordinal of a declared label.
func Enum(ordinal int) Value {
	return Value{kind: KindEnum, n: int64(ordinal)}
}

// Zero returns the zero Value of the given kind.
func Zero(k Kind) Value {
	return Value{kind: k}
}

// Kind returns the type tag.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v carries a declared kind.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// AsBool returns the boolean payload. Non-bool kinds report n != 0.
func (v Value) AsBool() bool {
	if v.kind == KindReal {
		return v.r != 0
	}
	return v.n != 0
}

// AsInt returns the integer payload. Reals are truncated toward zero.
func (v Value) AsInt() int64 {
	if v.kind == KindReal {
		return int64(v.r)
	}
	return v.n
}

// AsReal returns the payload as float64 regardless of kind.
func (v Value) AsReal() float64 {
	if v.kind == KindReal {
		return v.r
	}
	return float64(v.n)
}

// Ordinal returns the enum ordinal.
func (v Value) Ordinal() int {
	return int(v.n)
}

// Equal reports bit-for-bit equality, including the kind tag.
// Two NaN reals with identical bits are equal; +0 and -0 are not.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == KindReal {
		return math.Float64bits(v.r) == math.Float64bits(o.r)
	}
	return v.n == o.n
}

// String renders the payload the way canonical records store it.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.n != 0)
	case KindInt:
		return strconv.FormatInt(v.n, 10)
	case KindReal:
		return FormatReal(v.r)
	case KindEnum:
		return "#" + strconv.FormatInt(v.n, 10)
	}
	return "<invalid>"
}

// FormatReal encodes a float64 as the shortest string that parses back to the
// same bits. Records use it instead of JSON numbers.
func FormatReal(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}

// ParseReal is the inverse of FormatReal.
func ParseReal(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// FromFloat converts a host float into a Value of the given kind.
// Hosts exchange every variable as float64: bool is 1.0 or 0.0 and enum is
// the ordinal.
//
// Reports false when x is not finite, or when the rounded value does not fit
// an int64 (int) or a 32-bit ordinal (enum).
func FromFloat(k Kind, x float64) (Value, bool) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return Value{}, false
	}
	switch k {
	case KindBool:
		return Bool(math.Abs(x-1) < 1e-9), true
	case KindInt:
		r := math.Round(x)
		if r < -(1<<63) || r >= 1<<63 {
			return Value{}, false
		}
		return Int(int64(r)), true
	case KindEnum:
		r := math.Round(x)
		if r < math.MinInt32 || r > math.MaxInt32 {
			return Value{}, false
		}
		return Enum(int(r)), true
	case KindReal:
		return Real(x), true
	}
	return Value{}, false
}

// ToFloat is the inverse of FromFloat.
func (v Value) ToFloat() float64 {
	if v.kind == KindBool {
		if v.n != 0 {
			return 1
		}
		return 0
	}
	return v.AsReal()
}
