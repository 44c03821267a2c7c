package vars

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aircore/internal/ir"
)

func fixtureConfig() *ir.Config {
	return &ir.Config{
		Name: "store-fixture",
		Variables: []ir.VariableDecl{
			{Name: "elec.rate", Kind: ir.KindReal, Source: ir.SourceHost, Initial: ir.Real(0)},
			{Name: "elec.level", Kind: ir.KindReal, Source: ir.SourceSystem},
			{Name: "gen.state", Kind: ir.KindEnum, Values: []string{"off", "starting", "online"}, Source: ir.SourceSystem},
			{Name: "ext.avail", Kind: ir.KindBool, Source: ir.SourceHost, Initial: ir.Bool(true)},
		},
		Systems: []ir.SystemDecl{
			{
				Name:  "bus",
				Model: "electrical_bus",
				Ports: []ir.PortBinding{
					{Port: "charge_rate", Variable: "elec.rate", Dir: ir.DirIn, Kind: ir.KindReal},
					{Port: "level", Variable: "elec.level", Dir: ir.DirOut, Kind: ir.KindReal},
				},
			},
			{
				Name:  "gen",
				Model: "engine_generator",
				Ports: []ir.PortBinding{
					{Port: "state", Variable: "gen.state", Dir: ir.DirOut, Kind: ir.KindEnum},
				},
			},
		},
	}
}

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(fixtureConfig())
	require.NoError(t, err)
	return s
}

func TestNew_InitialValues(t *testing.T) {
	s := newStore(t)
	assert.Equal(t, 4, s.Len())

	v, err := s.Read("ext.avail")
	require.NoError(t, err)
	assert.True(t, v.AsBool())

	v, err = s.Read("elec.level")
	require.NoError(t, err)
	assert.True(t, ir.Real(0).Equal(v), "missing initial defaults to zero of kind")

	slot, ok := s.Lookup("gen.state")
	require.True(t, ok)
	assert.Equal(t, ir.KindEnum, s.Get(slot).Kind())
	assert.Equal(t, 1, s.Owner(slot))
}

func TestNew_UnknownVariable(t *testing.T) {
	cfg := fixtureConfig()
	cfg.Systems[0].Ports = append(cfg.Systems[0].Ports, ir.PortBinding{Port: "load", Variable: "elec.nope", Dir: ir.DirIn})

	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, ir.IsConfigError(err))
	assert.True(t, ir.HasCode(err, ir.ErrCodeUnknownVariable))
}

func TestNew_PortKindMismatch(t *testing.T) {
	cfg := fixtureConfig()
	cfg.Systems[0].Ports[1].Kind = ir.KindBool

	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, ir.HasCode(err, ir.ErrCodeTypeMismatch))
}

func TestNew_DuplicateWriter(t *testing.T) {
	cfg := fixtureConfig()
	cfg.Systems[1].Ports = append(cfg.Systems[1].Ports, ir.PortBinding{Port: "level", Variable: "elec.level", Dir: ir.DirOut})

	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, ir.HasCode(err, ir.ErrCodeDuplicateWriter))
}

func TestNew_SystemWritesHostInput(t *testing.T) {
	cfg := fixtureConfig()
	cfg.Systems[1].Ports = append(cfg.Systems[1].Ports, ir.PortBinding{Port: "x", Variable: "ext.avail", Dir: ir.DirOut})

	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, ir.HasCode(err, ir.ErrCodeOwnershipViolation))
}

func TestNew_InitialTypeMismatch(t *testing.T) {
	cfg := fixtureConfig()
	cfg.Variables[0].Initial = ir.Bool(true)

	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, ir.HasCode(err, ir.ErrCodeTypeMismatch))
}

func TestRead_Unknown(t *testing.T) {
	s := newStore(t)
	_, err := s.Read("nope")
	require.Error(t, err)
	assert.True(t, ir.HasCode(err, ir.ErrCodeUnknownVariable))
}

func TestWrite_TypeMismatch(t *testing.T) {
	s := newStore(t)
	err := s.Write(0, "elec.level", ir.Bool(true))
	require.Error(t, err)
	assert.True(t, ir.HasCode(err, ir.ErrCodeTypeMismatch))
	assert.True(t, ir.IsSimulationFault(err))
}

func TestWrite_EnumOutOfRange(t *testing.T) {
	s := newStore(t)
	err := s.Write(1, "gen.state", ir.Enum(3))
	require.Error(t, err)
	assert.True(t, ir.HasCode(err, ir.ErrCodeTypeMismatch))
}

func TestWrite_OwnershipViolation(t *testing.T) {
	s := newStore(t)
	err := s.Write(1, "elec.level", ir.Real(1))
	require.Error(t, err)
	assert.True(t, ir.HasCode(err, ir.ErrCodeOwnershipViolation))
}

func TestWrite_MarksDirtyUntilBeginTick(t *testing.T) {
	s := newStore(t)
	slot, _ := s.Lookup("elec.level")

	require.NoError(t, s.Write(0, "elec.level", ir.Real(5)))
	assert.True(t, s.Written(slot))

	// Same owner may write again within a tick.
	require.NoError(t, s.WriteSlot(0, slot, ir.Real(6)))
	assert.Equal(t, 6.0, s.Get(slot).AsReal())

	s.BeginTick()
	assert.False(t, s.Written(slot))
	assert.Equal(t, 6.0, s.Get(slot).AsReal(), "BeginTick keeps values")
}

func TestStage_RoundTripBeforeTick(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Stage("elec.rate", ir.Real(12.5)))

	v, err := s.Published("elec.rate")
	require.NoError(t, err)
	assert.True(t, ir.Real(12.5).Equal(v))

	live, err := s.Read("elec.rate")
	require.NoError(t, err)
	assert.True(t, ir.Real(0).Equal(live), "staged values reach live only at tick boundary")
}

func TestStage_Errors(t *testing.T) {
	s := newStore(t)

	err := s.Stage("nope", ir.Real(1))
	assert.True(t, ir.HasCode(err, ir.ErrCodeUnknownVariable))
	assert.True(t, ir.IsProtocolError(err))

	err = s.Stage("elec.rate", ir.Int(1))
	assert.True(t, ir.HasCode(err, ir.ErrCodeTypeMismatch))
	assert.True(t, ir.IsProtocolError(err))

	err = s.Stage("elec.level", ir.Real(1))
	assert.True(t, ir.HasCode(err, ir.ErrCodeOwnershipViolation))
}

func TestApplyStaged_WritesAsHost(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Stage("elec.rate", ir.Real(1)))
	require.NoError(t, s.Stage("elec.rate", ir.Real(2)))
	require.NoError(t, s.Stage("ext.avail", ir.Bool(false)))

	s.BeginTick()
	require.NoError(t, s.ApplyStaged())

	slot, _ := s.Lookup("elec.rate")
	assert.Equal(t, 2.0, s.Get(slot).AsReal(), "last staged value wins")
	assert.True(t, s.Written(slot))

	// Staging area is empty after apply.
	s.BeginTick()
	require.NoError(t, s.ApplyStaged())
	assert.False(t, s.Written(slot))
	assert.Equal(t, 2.0, s.Get(slot).AsReal(), "host inputs latch")
}

func TestPublish_DoubleBuffer(t *testing.T) {
	s := newStore(t)
	slot, _ := s.Lookup("elec.level")

	require.NoError(t, s.WriteSlot(0, slot, ir.Real(10)))
	v, err := s.Published("elec.level")
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.AsReal(), "unpublished writes are invisible to the host")
	assert.Equal(t, 0.0, s.Previous(slot).AsReal())

	s.Publish()
	v, err = s.Published("elec.level")
	require.NoError(t, err)
	assert.Equal(t, 10.0, v.AsReal())
	assert.Equal(t, 10.0, s.PublishedSlot(slot).AsReal())
}

func TestRollback(t *testing.T) {
	s := newStore(t)
	slot, _ := s.Lookup("elec.level")
	require.NoError(t, s.WriteSlot(0, slot, ir.Real(10)))
	s.Rollback()
	assert.Equal(t, 0.0, s.Get(slot).AsReal())
}

func TestStore_NoAllocationsPerTick(t *testing.T) {
	s := newStore(t)
	slot, _ := s.Lookup("elec.level")

	allocs := testing.AllocsPerRun(100, func() {
		s.BeginTick()
		_ = s.Stage("elec.rate", ir.Real(3))
		_ = s.ApplyStaged()
		_ = s.WriteSlot(0, slot, ir.Real(4))
		s.Publish()
	})
	assert.Equal(t, 0.0, allocs)
}

func TestHold_RestoresPublished(t *testing.T) {
	s := newStore(t)
	slot, _ := s.Lookup("elec.level")
	require.NoError(t, s.WriteSlot(0, slot, ir.Real(3)))
	s.Publish()
	require.NoError(t, s.WriteSlot(0, slot, ir.Real(9)))

	s.Hold(1, slot)
	assert.Equal(t, 9.0, s.Get(slot).AsReal(), "only the owner may hold")

	s.Hold(0, slot)
	assert.Equal(t, 3.0, s.Get(slot).AsReal())
}
