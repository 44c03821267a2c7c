// Package ir provides the canonical intermediate representation for aircore.
//
// This package contains the value model, the compiled system configuration
// and the error taxonomy shared by every other internal package. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Values are plain structs, never interfaces, so per-tick paths do not allocate
//   - Reals are serialized as shortest round-trip strings, never JSON floats
//   - Identifiers are NFC normalized before they are interned
//   - All JSON tags use snake_case
package ir
