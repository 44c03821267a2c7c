package bridge

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Handle identifies one open simulation session.
type Handle string

// HandleGenerator produces session handles.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type HandleGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 handles.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns handles from a fixed sequence so tests and golden
// traces are reproducible. Without explicit tokens it counts:
// "session-1", "session-2", ...
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator that returns tokens in order.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next predetermined handle.
//
// Panics if explicit tokens were given and all have been consumed; a test
// that opens more sessions than it planned for is misconfigured.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.idx++
	if len(g.tokens) == 0 {
		return fmt.Sprintf("session-%d", g.idx)
	}
	if g.idx > len(g.tokens) {
		panic("FixedGenerator: all tokens exhausted")
	}
	return g.tokens[g.idx-1]
}
