package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalConfig_RoundTrip(t *testing.T) {
	cfg := hashFixture()
	cfg.Variables = append(cfg.Variables,
		VariableDecl{Name: "gen.state", Kind: KindEnum, Values: []string{"off", "online"}, Initial: Enum(1), Source: SourceSystem},
		VariableDecl{Name: "gen.switch", Kind: KindBool, Initial: Bool(true), Source: SourceHost},
	)
	cfg.Systems[0].Ports = append(cfg.Systems[0].Ports,
		PortBinding{Port: "powered", Variable: "gen.switch", Dir: DirIn, Kind: KindBool, Feedback: true},
	)

	data, err := MarshalConfig(cfg)
	require.NoError(t, err)

	got, err := UnmarshalConfig(data)
	require.NoError(t, err)

	want := *cfg
	want.Name = ""
	assert.Equal(t, want.Step, got.Step)
	assert.Equal(t, want.Systems, got.Systems)
	require.Len(t, got.Variables, len(want.Variables))
	for i := range want.Variables {
		assert.Equal(t, want.Variables[i].Name, got.Variables[i].Name)
		assert.Equal(t, want.Variables[i].Values, got.Variables[i].Values)
		assert.True(t, want.Variables[i].Initial.Equal(got.Variables[i].Initial), want.Variables[i].Name)
	}

	again, err := MarshalConfig(got)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestMarshalConfig_FillsZeroInitial(t *testing.T) {
	cfg := &Config{Variables: []VariableDecl{{Name: "x", Kind: KindInt, Source: SourceSystem}}}

	data, err := MarshalConfig(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"initial":0`)
}

func TestUnmarshalConfig_RejectsOtherVersion(t *testing.T) {
	_, err := UnmarshalConfig([]byte(`{"ir_version":"0","step":"0","variables":[],"systems":[]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ir_version")
}

func TestConfigHash_IgnoresName(t *testing.T) {
	a := hashFixture()
	b := hashFixture()
	b.Name = "renamed"
	b.Variables[0].Unit = "A"

	ha, err := ConfigHash(a)
	require.NoError(t, err)
	hb, err := ConfigHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}
