package engine

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aircore/internal/ir"
	"github.com/roach88/aircore/internal/systems"
	"github.com/roach88/aircore/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEngine(t *testing.T, cfg *ir.Config, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	e, err := New(cfg, systems.Default(), opts...)
	require.NoError(t, err)
	return e
}

// funcModel adapts a function to systems.Model.
type funcModel func(dt float64, sio systems.IO) error

func (f funcModel) Update(dt float64, sio systems.IO) error { return f(dt, sio) }

// stubRegistry registers a "stub" model with one real input and one real
// output whose behavior is supplied by the test.
func stubRegistry(t *testing.T, update funcModel) *systems.Registry {
	t.Helper()
	r := systems.Default()
	require.NoError(t, r.Register(systems.ModelSpec{
		Name: "stub",
		Ports: []systems.PortSpec{
			{Name: "x", Dir: ir.DirIn, Kind: ir.KindReal},
			{Name: "y", Dir: ir.DirOut, Kind: ir.KindReal},
		},
		Params: map[string]float64{},
		New:    func(systems.Params) (systems.Model, error) { return update, nil },
	}))
	return r
}

// stubConfig chains the charging bus into a stub system.
func stubConfig() *ir.Config {
	cfg := testutil.ChargingConfig()
	cfg.Variables = append(cfg.Variables, ir.VariableDecl{Name: "stub.y", Kind: ir.KindReal, Source: ir.SourceSystem})
	cfg.Systems = append(cfg.Systems, ir.SystemDecl{
		Name:  "stub",
		Model: "stub",
		Ports: []ir.PortBinding{
			{Port: "x", Variable: "elec.level", Dir: ir.DirIn, Kind: ir.KindReal},
			{Port: "y", Variable: "stub.y", Dir: ir.DirOut, Kind: ir.KindReal},
		},
	})
	return cfg
}

func realOutput(t *testing.T, e *Engine, id string) float64 {
	t.Helper()
	v, err := e.Output(id)
	require.NoError(t, err)
	return v.AsReal()
}

func TestNew_Ready(t *testing.T) {
	e := newEngine(t, testutil.AircraftConfig())
	assert.Equal(t, StateReady, e.State())
	assert.Equal(t, []string{"idg", "battery", "green_pump", "bleed", "elevator", "gen_line"}, e.Graph().Order())
	assert.Equal(t, uint64(0), e.Clock().Ticks())
}

func TestNew_ConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ir.Config)
		code   ir.ErrorCode
	}{
		{
			name: "cycle",
			mutate: func(c *ir.Config) {
				// The bus now charges from the actuator it drives.
				c.Systems[0].Ports[0].Variable = "fctl.position"
			},
			code: ir.ErrCodeCyclicDependency,
		},
		{
			name:   "unknown variable",
			mutate: func(c *ir.Config) { c.Systems[1].Ports[0].Variable = "elec.nope" },
			code:   ir.ErrCodeUnknownVariable,
		},
		{
			name:   "unknown model",
			mutate: func(c *ir.Config) { c.Systems[1].Model = "ram_air_turbine" },
			code:   ir.ErrCodeUnknownModel,
		},
		{
			name: "port kind mismatch",
			mutate: func(c *ir.Config) {
				c.Systems[1].Ports[2].Variable = "fctl.position"
				c.Systems[1].Ports[2].Kind = ir.KindInvalid
				c.Systems[1].Ports[1].Variable = "fctl.saturated"
				c.Systems[1].Ports[1].Kind = ir.KindInvalid
			},
			code: ir.ErrCodeTypeMismatch,
		},
		{
			name: "duplicate writer",
			mutate: func(c *ir.Config) {
				c.Systems[1].Ports[1].Variable = "elec.level"
			},
			code: ir.ErrCodeDuplicateWriter,
		},
		{
			name:   "duplicate system name",
			mutate: func(c *ir.Config) { c.Systems[1].Name = "bus" },
			code:   ir.ErrCodeDuplicateDeclaration,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testutil.ChargingConfig()
			tt.mutate(cfg)
			e, err := New(cfg, systems.Default(), WithLogger(quietLogger()))
			require.Error(t, err)
			assert.Nil(t, e, "failed initialization allocates no session")
			assert.True(t, ir.IsConfigError(err), "got %v", err)
			assert.True(t, ir.HasCode(err, tt.code), "got %v", err)
		})
	}
}

// TestNew_EnumLabelsMustMatch tests that an enum port binds only to a
// variable declaring the same labels in the same order.
func TestNew_EnumLabelsMustMatch(t *testing.T) {
	build := func(labels ...string) *ir.Config {
		return testutil.NewConfig("gen").
			Input("eng.n2", ir.Real(0)).
			Input("elec.gen_switch", ir.Bool(true)).
			Enum("elec.gen_state", labels...).
			System("idg", "engine_generator", nil,
				testutil.Bind("n2", "eng.n2"),
				testutil.Bind("switch_on", "elec.gen_switch"),
				testutil.Bind("state", "elec.gen_state"),
			).
			Build()
	}

	for name, labels := range map[string][]string{
		"reordered": {"online", "off", "starting"},
		"extra":     {"off", "starting", "online", "failed"},
		"missing":   {"off", "starting"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := New(build(labels...), systems.Default(), WithLogger(quietLogger()))
			require.Error(t, err)
			assert.True(t, ir.IsConfigError(err))
			assert.True(t, ir.HasCode(err, ir.ErrCodeTypeMismatch), "got %v", err)
		})
	}

	_, err := New(build(systems.GeneratorStates...), systems.Default(), WithLogger(quietLogger()))
	require.NoError(t, err)
}

// TestTick_ChargingScenario tests the reference two-system scenario: after
// five one-second ticks charging at 10/s the bus reads 50 and the actuator
// (gain 0.5) reads 25.
func TestTick_ChargingScenario(t *testing.T) {
	e := newEngine(t, testutil.ChargingConfig())
	require.NoError(t, e.Stage("elec.charge_rate", ir.Real(10)))

	for i := 1; i <= 5; i++ {
		report, err := e.Tick(1)
		require.NoError(t, err)
		assert.Equal(t, uint64(i), report.Tick)
		assert.Empty(t, report.Degraded)
		assert.Equal(t, float64(10*i), realOutput(t, e, "elec.level"))
		assert.Equal(t, float64(5*i), realOutput(t, e, "fctl.position"))
	}

	assert.Equal(t, 50.0, realOutput(t, e, "elec.level"))
	assert.Equal(t, 25.0, realOutput(t, e, "fctl.position"))
	assert.Equal(t, 5.0, e.Clock().Elapsed())
	assert.Equal(t, StateReady, e.State())
}

func TestTick_Saturation(t *testing.T) {
	e := newEngine(t, testutil.ChargingConfig())
	require.NoError(t, e.Stage("elec.charge_rate", ir.Real(60)))

	for range 3 {
		_, err := e.Tick(1)
		require.NoError(t, err)
	}
	assert.Equal(t, 100.0, realOutput(t, e, "elec.level"))
	sat, err := e.Output("elec.saturated")
	require.NoError(t, err)
	assert.True(t, sat.AsBool())
}

func TestTick_InvalidStep(t *testing.T) {
	e := newEngine(t, testutil.ChargingConfig(), WithFixedStep(0.5))

	for _, dt := range []float64{0, -1, math.NaN(), math.Inf(1), 1} {
		_, err := e.Tick(dt)
		require.Error(t, err)
		assert.True(t, ir.IsProtocolError(err))
		assert.True(t, ir.HasCode(err, ir.ErrCodeInvalidStep))
	}
	assert.Equal(t, uint64(0), e.Clock().Ticks())
	assert.Equal(t, StateReady, e.State())

	_, err := e.Tick(0.5)
	require.NoError(t, err)
}

func TestTick_ConfigStepLocks(t *testing.T) {
	cfg := testutil.ChargingConfig()
	cfg.Step = 0.25
	e := newEngine(t, cfg)
	assert.Equal(t, 0.25, e.FixedStep())

	_, err := e.Tick(1)
	assert.True(t, ir.HasCode(err, ir.ErrCodeInvalidStep))

	unlocked := newEngine(t, cfg, WithFixedStep(0))
	_, err = unlocked.Tick(1)
	require.NoError(t, err)
}

// TestTick_Deterministic tests that identical inputs produce bit-identical
// outputs across sessions.
func TestTick_Deterministic(t *testing.T) {
	run := func() []map[string]ir.Value {
		e := newEngine(t, testutil.AircraftConfig())
		var trace []map[string]ir.Value
		for i := range 40 {
			require.NoError(t, e.Stage("eng.n2", ir.Real(float64(i)*2.5)))
			require.NoError(t, e.Stage("fctl.stick", ir.Real(math.Sin(float64(i)/3))))
			require.NoError(t, e.Stage("bleed.valve", ir.Bool(i%7 < 4)))
			_, err := e.Tick(0.1)
			require.NoError(t, err)
			trace = append(trace, e.Snapshot())
		}
		return trace
	}

	a, b := run(), run()
	require.Len(t, b, len(a))
	for i := range a {
		for name, v := range a[i] {
			assert.True(t, v.Equal(b[i][name]), "tick %d %s: %v != %v", i+1, name, v, b[i][name])
		}
	}
}

// TestTick_AircraftGeneratorComesOnline tests the generator and the
// pressure-gated actuator through the full aircraft configuration.
func TestTick_AircraftGeneratorComesOnline(t *testing.T) {
	e := newEngine(t, testutil.AircraftConfig())
	require.NoError(t, e.Stage("eng.n2", ir.Real(70)))
	require.NoError(t, e.Stage("fctl.stick", ir.Real(1)))

	for range 10 {
		_, err := e.Tick(0.25)
		require.NoError(t, err)
	}

	state, err := e.Output("elec.gen_state")
	require.NoError(t, err)
	assert.Equal(t, systems.GeneratorOnline, state.Ordinal())
	assert.Equal(t, 115.0, realOutput(t, e, "elec.gen_potential"))
	assert.Equal(t, 115.0, realOutput(t, e, "elec.ac_potential"))
	assert.Greater(t, realOutput(t, e, "hyd.pressure"), 1000.0)
	assert.Greater(t, realOutput(t, e, "fctl.position"), 0.0)
	assert.Greater(t, realOutput(t, e, "elec.idg_oil"), 15.0)

	// Opening the contactor drops the AC bus but not the generator.
	require.NoError(t, e.Stage("elec.gen_contactor", ir.Bool(false)))
	_, err = e.Tick(0.25)
	require.NoError(t, err)
	assert.Equal(t, 115.0, realOutput(t, e, "elec.gen_potential"))
	assert.Equal(t, 0.0, realOutput(t, e, "elec.ac_potential"))

	// Switching the generator off disconnects it for good.
	require.NoError(t, e.Stage("elec.gen_switch", ir.Bool(false)))
	require.NoError(t, e.Stage("elec.gen_contactor", ir.Bool(true)))
	_, err = e.Tick(0.25)
	require.NoError(t, err)
	require.NoError(t, e.Stage("elec.gen_switch", ir.Bool(true)))
	for range 10 {
		_, err = e.Tick(0.25)
		require.NoError(t, err)
	}
	state, err = e.Output("elec.gen_state")
	require.NoError(t, err)
	assert.Equal(t, systems.GeneratorOff, state.Ordinal())
	assert.Equal(t, 0.0, realOutput(t, e, "elec.ac_potential"))
	disconnected, err := e.Output("elec.idg_disconnected")
	require.NoError(t, err)
	assert.True(t, disconnected.AsBool())
}

// TestTick_DegradedHoldsOutputs tests that a non-converging model keeps its
// previous outputs while the rest of the tick proceeds.
func TestTick_DegradedHoldsOutputs(t *testing.T) {
	e := newEngine(t, testutil.AircraftConfig())
	require.NoError(t, e.Stage("bleed.valve", ir.Bool(true)))
	_, err := e.Tick(0.1)
	require.NoError(t, err)
	flow := realOutput(t, e, "bleed.flow")
	assert.Greater(t, flow, 0.0)

	require.NoError(t, e.Stage("bleed.source", ir.Real(0)))
	require.NoError(t, e.Stage("fctl.stick", ir.Real(0.5)))
	report, err := e.Tick(0.1)
	require.NoError(t, err)

	require.Len(t, report.Degraded, 1)
	assert.Equal(t, "bleed", report.Degraded[0].System)
	assert.True(t, IsDegraded(report.Degraded[0].Err))
	assert.Equal(t, flow, realOutput(t, e, "bleed.flow"))

	faults := report.Faults()
	require.Len(t, faults, 1)
	assert.True(t, ir.IsRuntimeFault(faults[0]))
	assert.Equal(t, ir.ErrCodeDegradedUpdate, faults[0].Code)
	assert.Equal(t, StateReady, e.State())
}

// TestTick_PanicIsContained tests that a panicking model degrades instead
// of aborting the tick.
func TestTick_PanicIsContained(t *testing.T) {
	calls := 0
	r := stubRegistry(t, func(dt float64, sio systems.IO) error {
		calls++
		if calls == 2 {
			sio.SetReal("y", -1)
			panic("divide by zero")
		}
		sio.SetReal("y", sio.Real("x")*2)
		return nil
	})
	e, err := New(stubConfig(), r, WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, e.Stage("elec.charge_rate", ir.Real(10)))

	_, err = e.Tick(1)
	require.NoError(t, err)
	assert.Equal(t, 20.0, realOutput(t, e, "stub.y"))

	report, err := e.Tick(1)
	require.NoError(t, err)
	require.Len(t, report.Degraded, 1)
	assert.Contains(t, report.Degraded[0].Err.Error(), "divide by zero")
	assert.Equal(t, 20.0, realOutput(t, e, "stub.y"), "partial write is discarded")
	assert.Equal(t, 20.0, realOutput(t, e, "elec.level"), "other systems still advance")
}

// TestTick_UndeclaredWriteStops tests escalation of a structural violation.
func TestTick_UndeclaredWriteStops(t *testing.T) {
	r := stubRegistry(t, func(dt float64, sio systems.IO) error {
		sio.SetReal("z", 1)
		return nil
	})
	e, err := New(stubConfig(), r, WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, e.Stage("elec.charge_rate", ir.Real(10)))

	_, err = e.Tick(1)
	require.Error(t, err)
	assert.True(t, ir.IsSimulationFault(err))
	assert.True(t, ir.HasCode(err, ir.ErrCodeUndeclaredWrite))
	assert.Equal(t, StateStopped, e.State())

	// The bus ran before the stub, but nothing from the tick is published.
	assert.Equal(t, 0.0, realOutput(t, e, "elec.level"))
	assert.Equal(t, uint64(0), e.Clock().Ticks())

	_, again := e.Tick(1)
	assert.Same(t, err, again)
	assert.Equal(t, err, e.Stage("elec.charge_rate", ir.Real(1)))
}

// TestTick_TypeMismatchStops tests a model writing the wrong kind.
func TestTick_TypeMismatchStops(t *testing.T) {
	r := stubRegistry(t, func(dt float64, sio systems.IO) error {
		sio.SetBool("y", true)
		return nil
	})
	e, err := New(stubConfig(), r, WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = e.Tick(1)
	require.Error(t, err)
	assert.True(t, ir.IsSimulationFault(err))
	assert.True(t, ir.HasCode(err, ir.ErrCodeTypeMismatch))
	e2, _ := ir.AsError(err)
	assert.Equal(t, "stub", e2.System)
}

func TestStop(t *testing.T) {
	e := newEngine(t, testutil.ChargingConfig())
	e.Stop()
	assert.Equal(t, StateStopped, e.State())

	_, err := e.Tick(1)
	assert.True(t, ir.HasCode(err, ir.ErrCodeSimulationStopped))
	assert.True(t, errors.Is(err, &ir.Error{Code: ir.ErrCodeSimulationStopped}))

	// Published values stay readable.
	_, err = e.Output("elec.level")
	assert.NoError(t, err)
}

func TestStage_ProtocolErrors(t *testing.T) {
	e := newEngine(t, testutil.ChargingConfig())
	assert.True(t, ir.HasCode(e.Stage("nope", ir.Real(1)), ir.ErrCodeUnknownVariable))
	assert.True(t, ir.HasCode(e.Stage("elec.charge_rate", ir.Bool(true)), ir.ErrCodeTypeMismatch))
	assert.Equal(t, StateReady, e.State())
}

func TestTick_NoAllocations(t *testing.T) {
	e := newEngine(t, testutil.AircraftConfig())
	require.NoError(t, e.Stage("eng.n2", ir.Real(80)))

	allocs := testing.AllocsPerRun(200, func() {
		_ = e.Stage("fctl.stick", ir.Real(0.2))
		_, _ = e.Tick(0.05)
	})
	assert.Equal(t, 0.0, allocs)
}
