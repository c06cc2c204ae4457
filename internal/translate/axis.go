package translate

// axisEngine drives one virtual axis toward a target value at a bounded
// rate, in device units per second. Keys set the target and the engine
// ramps; mouse flicks push current directly and let it decay home.
type axisEngine struct {
	current float64
	target  float64
	rate    float64
}

// advance moves current toward target by at most rate*dt, never
// overshooting.
func (a *axisEngine) advance(dt float64) {
	if dt <= 0 || a.current == a.target {
		return
	}

	step := a.rate * dt
	diff := a.target - a.current
	switch {
	case diff > 0 && diff > step:
		a.current += step
	case diff < 0 && -diff > step:
		a.current -= step
	default:
		a.current = a.target
	}
}

func (a *axisEngine) settled() bool {
	return a.current == a.target
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
