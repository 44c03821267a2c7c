// Package store provides SQLite-backed recordings of simulation sessions.
//
// A recording holds the canonical configuration the session ran and one row
// per tick:
//   - inputs: host inputs staged before the tick
//   - outputs: every published value after the tick
//   - faults: degraded updates and the fault that stopped the session
//
// Values are canonical JSON with reals as shortest round-trip strings, so a
// replay can compare outputs bit for bit. Recordings are ordered by a logical
// sequence number, never by wall-clock time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
