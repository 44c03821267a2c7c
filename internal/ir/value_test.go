package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Constructors(t *testing.T) {
	assert.Equal(t, KindBool, Bool(true).Kind())
	assert.True(t, Bool(true).AsBool())
	assert.False(t, Bool(false).AsBool())

	assert.Equal(t, KindInt, Int(7).Kind())
	assert.Equal(t, int64(7), Int(7).AsInt())

	assert.Equal(t, KindReal, Real(1.5).Kind())
	assert.Equal(t, 1.5, Real(1.5).AsReal())

	assert.Equal(t, KindEnum, Enum(2).Kind())
	assert.Equal(t, 2, Enum(2).Ordinal())

	assert.False(t, Value{}.IsValid())
	assert.True(t, Zero(KindReal).IsValid())
}

func TestValue_EqualIsBitwise(t *testing.T) {
	assert.True(t, Real(0.3).Equal(Real(0.3)))
	a, b := 0.1, 0.2
	assert.False(t, Real(a+b).Equal(Real(0.3)), "0.1+0.2 differs from 0.3 in the last bit")
	assert.False(t, Real(0).Equal(Real(math.Copysign(0, -1))), "+0 and -0 differ")

	nan := math.NaN()
	assert.True(t, Real(nan).Equal(Real(nan)))

	assert.False(t, Int(1).Equal(Enum(1)), "kind tag participates in equality")
	assert.False(t, Int(1).Equal(Bool(true)))
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, "true", Bool(true).String())
	assert.Equal(t, "-3", Int(-3).String())
	assert.Equal(t, "0.1", Real(0.1).String())
	assert.Equal(t, "#1", Enum(1).String())
	assert.Equal(t, "<invalid>", Value{}.String())
}

func TestFormatRealRoundTrip(t *testing.T) {
	for _, x := range []float64{0, 1, -1, 0.1, 1e-300, 123456.789, math.MaxFloat64, math.SmallestNonzeroFloat64} {
		s := FormatReal(x)
		back, err := ParseReal(s)
		assert.NoError(t, err)
		assert.Equal(t, math.Float64bits(x), math.Float64bits(back), "round trip of %s", s)
	}
}

func TestFromFloat(t *testing.T) {
	conv := func(k Kind, x float64) Value {
		v, ok := FromFloat(k, x)
		require.True(t, ok, "%s from %v", k, x)
		return v
	}
	assert.True(t, conv(KindBool, 1.0).AsBool())
	assert.False(t, conv(KindBool, 0.0).AsBool())
	assert.False(t, conv(KindBool, 0.5).AsBool(), "host bools are exactly 1.0")
	assert.Equal(t, int64(3), conv(KindInt, 2.6).AsInt())
	assert.Equal(t, int64(-2), conv(KindInt, -2.4).AsInt())
	assert.Equal(t, 2, conv(KindEnum, 2.0).Ordinal())
	assert.Equal(t, 2.25, conv(KindReal, 2.25).AsReal())

	assert.Equal(t, 1.0, Bool(true).ToFloat())
	assert.Equal(t, 0.0, Bool(false).ToFloat())
	assert.Equal(t, 2.0, Enum(2).ToFloat())
	assert.Equal(t, -4.5, Real(-4.5).ToFloat())
}

func TestFromFloat_RejectsUnrepresentable(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		x    float64
	}{
		{"int NaN", KindInt, math.NaN()},
		{"int +Inf", KindInt, math.Inf(1)},
		{"int -Inf", KindInt, math.Inf(-1)},
		{"int too large", KindInt, 1e300},
		{"int too small", KindInt, -1e19},
		{"int 2^63", KindInt, 1 << 63},
		{"enum NaN", KindEnum, math.NaN()},
		{"enum too large", KindEnum, 1e12},
		{"bool NaN", KindBool, math.NaN()},
		{"real +Inf", KindReal, math.Inf(1)},
		{"real NaN", KindReal, math.NaN()},
		{"invalid kind", KindInvalid, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := FromFloat(tt.kind, tt.x)
			assert.False(t, ok)
			assert.False(t, v.IsValid())
		})
	}
}

func TestParseKind(t *testing.T) {
	for _, name := range []string{"bool", "int", "real", "enum"} {
		k, ok := ParseKind(name)
		assert.True(t, ok, name)
		assert.Equal(t, name, k.String())
	}
	_, ok := ParseKind("float")
	assert.False(t, ok)
}

func TestVariableDecl_Accepts(t *testing.T) {
	enum := VariableDecl{Name: "gen.state", Kind: KindEnum, Values: []string{"off", "starting", "online"}}
	assert.True(t, enum.Accepts(Enum(0)))
	assert.True(t, enum.Accepts(Enum(2)))
	assert.False(t, enum.Accepts(Enum(3)), "ordinal outside label range")
	assert.False(t, enum.Accepts(Enum(-1)))
	assert.False(t, enum.Accepts(Int(1)))
	assert.Equal(t, 1, enum.EnumOrdinal("starting"))
	assert.Equal(t, -1, enum.EnumOrdinal("failed"))

	real := VariableDecl{Name: "hyd.pressure", Kind: KindReal}
	assert.True(t, real.Accepts(Real(3000)))
	assert.False(t, real.Accepts(Bool(true)))
}

func TestSystemDecl_ReadWriteSets(t *testing.T) {
	s := SystemDecl{
		Name:  "act",
		Model: "actuator",
		Ports: []PortBinding{
			{Port: "command", Variable: "fcc.cmd", Dir: DirIn},
			{Port: "hydraulic", Variable: "hyd.pressure", Dir: DirIn, Feedback: true},
			{Port: "position", Variable: "act.pos", Dir: DirOut},
			{Port: "saturated", Variable: "act.sat", Dir: DirOut},
		},
	}
	assert.Equal(t, []string{"fcc.cmd"}, s.Reads())
	assert.Equal(t, []string{"hyd.pressure"}, s.FeedbackReads())
	assert.Equal(t, []string{"act.pos", "act.sat"}, s.Writes())
}
