package engine

// Clock is the simulation clock: a tick counter plus elapsed simulated
// seconds. Elapsed time is accumulated step by step in tick order so two
// runs with identical steps produce identical bits.
//
// Clock is owned by one Engine and is not safe for concurrent use.
type Clock struct {
	ticks   uint64
	elapsed float64
}

// NewClock creates a clock at tick 0.
func NewClock() *Clock {
	return &Clock{}
}

// Advance records one completed tick of dt seconds and returns the new tick
// count.
func (c *Clock) Advance(dt float64) uint64 {
	c.ticks++
	c.elapsed += dt
	return c.ticks
}

// Ticks returns the number of completed ticks.
func (c *Clock) Ticks() uint64 {
	return c.ticks
}

// Elapsed returns simulated seconds since the session started.
func (c *Clock) Elapsed() float64 {
	return c.elapsed
}
