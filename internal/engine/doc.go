// Package engine implements the fixed-step simulation loop.
//
// ARCHITECTURE:
//
// Single-Threaded Tick:
// Every tick runs to completion on the caller's goroutine. There are no
// background tasks, timers or locks in the core. A tick:
//  1. resets the written-this-tick flags of the variable store
//  2. applies host inputs staged since the last tick
//  3. updates every system in coupling order
//  4. publishes the live buffer so the host sees the new values
//
// Outputs become visible only in step 4, so a tick is all-or-nothing from
// the host's perspective.
//
// Failure Containment:
// A model that cannot converge returns systems.ErrDegraded (or panics); its
// outputs are held at the previous tick's values, the fault is recorded in
// the TickReport, and the tick continues. A model that breaks a structural
// rule (writes an undeclared port or a mismatched type) stops the session:
// the live buffer is rolled back, nothing is published, and every later
// Tick returns the stored fault.
//
// Determinism:
// Systems update in a fixed topological order with declaration-order
// tie-breaks. Identical configurations, inputs and step sizes produce
// bit-for-bit identical outputs.
package engine
