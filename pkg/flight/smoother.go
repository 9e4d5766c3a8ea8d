package flight

import "math"

const (
	maxThrottle     = 100.0
	reverseThrottle = -25.0
)

// smooth moves v toward target by a first-order lerp. The factor is capped at 1 so large
// steps land on the target instead of overshooting it.
func smooth(v, target, rate, dt float64) float64 {
	k := math.Min(rate*dt, 1)
	return v + (target-v)*k
}

// applyInputs consumes the gear event, integrates throttle and smooths the control axes.
func (e *Engine) applyInputs(dt float64, c Controls, p *Profile) {
	if c.ToggleGear {
		e.gear = !e.gear
	}

	grounded := e.onGround(p)
	step := p.ThrottleRate * dt

	if c.ThrottleUp {
		e.throttle = math.Min(e.throttle+step, maxThrottle)
	}
	if c.ThrottleDown {
		floor := 0.0
		if grounded {
			floor = reverseThrottle
		}
		e.throttle = math.Max(e.throttle-step, floor)
	}
	// No reverse thrust in the air: ramp back toward idle.
	if !grounded && e.throttle < 0 {
		e.throttle = math.Min(e.throttle+step, 0)
	}

	t := c.target()
	e.axes.Pitch = smooth(e.axes.Pitch, t.Pitch, p.Responsiveness, dt)
	e.axes.Roll = smooth(e.axes.Roll, t.Roll, p.Responsiveness, dt)
	e.axes.Yaw = smooth(e.axes.Yaw, t.Yaw, p.Responsiveness, dt)
}
