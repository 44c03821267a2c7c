// Package harness runs YAML test scenarios against compiled configurations.
//
// A scenario names a CUE configuration directory, an input schedule and a
// list of assertions:
//
//	name: charging_fills
//	description: Bus charges at a constant rate
//	config: ../configs/charging
//	ticks:
//	  - inputs: {elec.charge_rate: 10}
//	    repeat: 4
//	assertions:
//	  - type: output_equals
//	    variable: elec.level
//	    value: 20
//	  - type: deterministic
//
// Every run is recorded into an in-memory store and the trace is read back
// from it, so the "deterministic" assertion can both rerun the schedule and
// replay the recording. Golden traces live under testdata/golden and are
// compared with goldie.
package harness
