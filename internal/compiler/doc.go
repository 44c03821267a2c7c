// Package compiler turns CUE configuration into the ir.Config consumed by
// the engine, and validates it.
//
// A configuration declares variables and systems:
//
//	step: 0.05
//
//	variable: "elec.charge_rate": {type: "real", source: "host", unit: "A"}
//	variable: "elec.level": {type: "real"}
//
//	system: bus: {
//		model:  "electrical_bus"
//		params: capacity: 100
//		ports: {charge_rate: "elec.charge_rate", level: "elec.level"}
//	}
//
// Compile checks shape against an embedded schema and resolves each port's
// direction and kind through the model catalog. Validate then reports every
// ownership, typing and coupling problem at once.
package compiler
