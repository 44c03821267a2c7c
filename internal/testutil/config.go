// Package testutil provides configuration builders and deterministic
// sources shared by package tests.
package testutil

import (
	"github.com/roach88/aircore/internal/ir"
	"github.com/roach88/aircore/internal/systems"
)

// ConfigBuilder assembles an ir.Config in declaration order. Port
// directions and kinds are resolved from the built-in model registry, the
// same way the compiler resolves them.
type ConfigBuilder struct {
	cfg      ir.Config
	registry *systems.Registry
}

// NewConfig starts a configuration named name.
func NewConfig(name string) *ConfigBuilder {
	return &ConfigBuilder{
		cfg:      ir.Config{Name: name},
		registry: systems.Default(),
	}
}

// Step sets the fixed step.
func (b *ConfigBuilder) Step(dt float64) *ConfigBuilder {
	b.cfg.Step = dt
	return b
}

// Input declares a host-driven variable whose kind and initial value come
// from initial.
func (b *ConfigBuilder) Input(name string, initial ir.Value) *ConfigBuilder {
	b.cfg.Variables = append(b.cfg.Variables, ir.VariableDecl{
		Name:    name,
		Kind:    initial.Kind(),
		Initial: initial,
		Source:  ir.SourceHost,
	})
	return b
}

// Var declares a system-owned variable starting at the zero value of kind.
func (b *ConfigBuilder) Var(name string, kind ir.Kind) *ConfigBuilder {
	b.cfg.Variables = append(b.cfg.Variables, ir.VariableDecl{
		Name:   name,
		Kind:   kind,
		Source: ir.SourceSystem,
	})
	return b
}

// Enum declares a system-owned enum variable.
func (b *ConfigBuilder) Enum(name string, labels ...string) *ConfigBuilder {
	b.cfg.Variables = append(b.cfg.Variables, ir.VariableDecl{
		Name:   name,
		Kind:   ir.KindEnum,
		Values: labels,
		Source: ir.SourceSystem,
	})
	return b
}

// System declares a system instance. Bindings are resolved against the
// model's port declarations.
func (b *ConfigBuilder) System(name, model string, params map[string]float64, ports ...ir.PortBinding) *ConfigBuilder {
	for i, p := range ports {
		if spec, ok := b.registry.PortOf(model, p.Port); ok {
			ports[i].Dir = spec.Dir
			ports[i].Kind = spec.Kind
		}
	}
	b.cfg.Systems = append(b.cfg.Systems, ir.SystemDecl{
		Name:   name,
		Model:  model,
		Params: params,
		Ports:  ports,
	})
	return b
}

// Build returns the configuration.
func (b *ConfigBuilder) Build() *ir.Config {
	cfg := b.cfg
	return &cfg
}

// Bind connects port to variable.
func Bind(port, variable string) ir.PortBinding {
	return ir.PortBinding{Port: port, Variable: variable}
}

// Feedback connects input port to the previous tick's value of variable.
func Feedback(port, variable string) ir.PortBinding {
	return ir.PortBinding{Port: port, Variable: variable, Feedback: true}
}

// ChargingConfig is the two-system reference configuration: an electrical
// bus (capacity 100) charged by the host, feeding an actuator with gain 0.5.
func ChargingConfig() *ir.Config {
	return NewConfig("charging").
		Input("elec.charge_rate", ir.Real(0)).
		Var("elec.level", ir.KindReal).
		Var("elec.saturated", ir.KindBool).
		Var("fctl.position", ir.KindReal).
		Var("fctl.saturated", ir.KindBool).
		System("bus", "electrical_bus", map[string]float64{"capacity": 100},
			Bind("charge_rate", "elec.charge_rate"),
			Bind("level", "elec.level"),
			Bind("saturated", "elec.saturated"),
		).
		System("elevator", "actuator", map[string]float64{"gain": 0.5},
			Bind("command", "elec.level"),
			Bind("position", "fctl.position"),
			Bind("saturated", "fctl.saturated"),
		).
		System("gen_line", "contactor", map[string]float64{"powered_threshold": 100},
			Bind("closed", "elec.gen_contactor"),
			Bind("source", "elec.gen_potential"),
			Bind("potential", "elec.ac_potential"),
			Bind("powered", "elec.ac_powered"),
		).
		Build()
}

// AircraftConfig exercises every built-in model: an engine generator powers
// a hydraulic pump whose pressure drives an actuator, a bleed duct feeds
// off an external source, the battery bus charges from the generator, and a
// contactor routes the generator potential to the AC bus.
func AircraftConfig() *ir.Config {
	return NewConfig("aircraft").
		Input("eng.n2", ir.Real(0)).
		Input("elec.gen_switch", ir.Bool(true)).
		Input("hyd.pump_switch", ir.Bool(true)).
		Input("hyd.demand", ir.Real(3000)).
		Input("hyd.reservoir", ir.Real(10)).
		Input("bleed.source", ir.Real(40)).
		Input("bleed.valve", ir.Bool(false)).
		Input("fctl.stick", ir.Real(0)).
		Input("env.ambient", ir.Real(15)).
		Input("elec.gen_contactor", ir.Bool(true)).
		Enum("elec.gen_state", systems.GeneratorStates...).
		Var("elec.gen_potential", ir.KindReal).
		Var("elec.gen_frequency", ir.KindReal).
		Var("elec.bat_level", ir.KindReal).
		Var("elec.bat_saturated", ir.KindBool).
		Var("elec.dc_powered", ir.KindBool).
		Var("hyd.pressure", ir.KindReal).
		Var("hyd.saturated", ir.KindBool).
		Var("hyd.cavitating", ir.KindBool).
		Var("bleed.flow", ir.KindReal).
		Var("bleed.saturated", ir.KindBool).
		Var("fctl.position", ir.KindReal).
		Var("fctl.saturated", ir.KindBool).
		Var("elec.idg_oil", ir.KindReal).
		Var("elec.idg_disconnected", ir.KindBool).
		Var("elec.ac_potential", ir.KindReal).
		Var("elec.ac_powered", ir.KindBool).
		System("idg", "engine_generator", nil,
			Bind("n2", "eng.n2"),
			Bind("switch_on", "elec.gen_switch"),
			Bind("ambient", "env.ambient"),
			Bind("state", "elec.gen_state"),
			Bind("potential", "elec.gen_potential"),
			Bind("frequency", "elec.gen_frequency"),
			Bind("oil_temperature", "elec.idg_oil"),
			Bind("disconnected", "elec.idg_disconnected"),
		).
		System("battery", "electrical_bus", map[string]float64{"capacity": 50, "powered_threshold": 1},
			Bind("charge_rate", "elec.gen_frequency"),
			Bind("level", "elec.bat_level"),
			Bind("saturated", "elec.bat_saturated"),
			Bind("powered", "elec.dc_powered"),
		).
		System("green_pump", "hydraulic_circuit", map[string]float64{"time_constant": 0.5},
			Bind("pump_on", "hyd.pump_switch"),
			Bind("demand", "hyd.demand"),
			Bind("reservoir", "hyd.reservoir"),
			Feedback("power", "elec.dc_powered"),
			Bind("pressure", "hyd.pressure"),
			Bind("saturated", "hyd.saturated"),
			Bind("cavitating", "hyd.cavitating"),
		).
		System("bleed", "pneumatic_duct", nil,
			Bind("upstream", "bleed.source"),
			Bind("downstream", "hyd.reservoir"),
			Bind("valve_open", "bleed.valve"),
			Bind("flow", "bleed.flow"),
			Bind("saturated", "bleed.saturated"),
		).
		System("elevator", "actuator", map[string]float64{"gain": 20, "rate": 30, "min": -30, "max": 30, "min_pressure": 1000},
			Bind("command", "fctl.stick"),
			Bind("hydraulic", "hyd.pressure"),
			Bind("position", "fctl.position"),
			Bind("saturated", "fctl.saturated"),
		).
		System("gen_line", "contactor", map[string]float64{"powered_threshold": 100},
			Bind("closed", "elec.gen_contactor"),
			Bind("source", "elec.gen_potential"),
			Bind("potential", "elec.ac_potential"),
			Bind("powered", "elec.ac_powered"),
		).
		Build()
}
