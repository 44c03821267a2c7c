// Package vars implements the variable store: the only channel through which
// system models and the host exchange values.
//
// Systems never hold references to one another. Each system reads and writes
// variables addressed by identifier, and the store enforces that every
// variable has exactly one writer. Identifiers are interned to dense slots at
// setup so that per-tick reads and writes are slice indexing and never
// allocate.
package vars
