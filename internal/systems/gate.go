package systems

// DelayedTrueGate outputs true only once its input has been continuously
// true for at least Delay seconds. A false input resets it immediately.
type DelayedTrueGate struct {
	Delay float64

	expression bool
	trueFor    float64
}

// NewDelayedTrueGate returns a gate that reports false until its input has
// stayed true for delay seconds.
func NewDelayedTrueGate(delay float64) *DelayedTrueGate {
	return &DelayedTrueGate{Delay: delay}
}

// Update feeds the input for a step of dt seconds.
func (g *DelayedTrueGate) Update(dt float64, expression bool) {
	if expression && g.expression {
		g.trueFor += dt
	} else {
		g.trueFor = 0
	}
	g.expression = expression
}

// Output returns the gate state.
func (g *DelayedTrueGate) Output() bool {
	return g.expression && g.trueFor >= g.Delay
}

// TowardsTarget moves current toward target by at most rate*dt without
// overshooting. A non-positive rate reaches the target in one step.
func TowardsTarget(current, target, rate, dt float64) float64 {
	if rate <= 0 {
		return target
	}
	limit := rate * dt
	switch {
	case target > current:
		return min(current+limit, target)
	case target < current:
		return max(current-limit, target)
	}
	return current
}
