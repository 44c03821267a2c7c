// Package systems implements the physical system models driven by the
// simulation loop.
//
// A model is a private state record plus an Update function. Models never
// reference each other: every value crosses through the ports declared in
// the model's ModelSpec, which the engine binds to variables of the store.
//
// Integration schemes are chosen to stay stable for any positive step:
// first-order lags use exact exponential discretization, integrators clamp
// at physical limits and report saturation through a bool output. A model
// that cannot produce a meaningful result returns ErrDegraded and keeps the
// state it had before the call.
package systems
