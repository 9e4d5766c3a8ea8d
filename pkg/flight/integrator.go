package flight

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Per-axis rotation gains. Roll is the most responsive axis, yaw the least.
const (
	gainPitch = 1.0
	gainYaw   = 0.6
	gainRoll  = 1.8
)

const (
	densityScaleHeight = 500.0
	minAirDensity      = 0.2
	minTurnSpeed       = 20.0
	sideSlipDeadband   = 0.01
)

// airDensity returns the altitude attenuation factor in [0.2, 1].
func airDensity(altitude float64) float64 {
	return mgl64.Clamp(1-altitude/densityScaleHeight, minAirDensity, 1)
}

// Update advances the vehicle by dt seconds (clamped to MaxStep). No-op once crashed.
func (e *Engine) Update(dt float64, c Controls, p *Profile) {
	if e.crashed {
		return
	}
	dt = math.Min(dt, MaxStep)
	if dt <= 0 {
		return
	}

	e.applyInputs(dt, c, p)

	// Body axes from the orientation at the start of the step.
	forward := e.orientation.Rotate(axisForward)
	up := e.orientation.Rotate(axisUp)

	speed := e.velocity.Len()
	altitude := e.position.Y()
	density := airDensity(altitude)

	e.rotate(dt, speed, density, altitude, p)
	e.applyForces(dt, speed, density, forward, up, p)

	if e.velocity.Len() > p.MaxSpeed {
		e.velocity = e.velocity.Normalize().Mul(p.MaxSpeed)
	}

	e.position = e.position.Add(e.velocity.Mul(dt))
}

// rotate composes the control rotation, applies the bank-induced turn and the attitude limits.
func (e *Engine) rotate(dt, speed, density, altitude float64, p *Profile) {
	authority := math.Min(speed/10, 1.5)*density + math.Abs(e.throttle)/200
	rot := dt * p.RotSpeed * authority

	qPitch := mgl64.QuatRotate(e.axes.Pitch*rot*gainPitch, axisRight)
	qYaw := mgl64.QuatRotate(e.axes.Yaw*rot*gainYaw, axisUp)
	qRoll := mgl64.QuatRotate(e.axes.Roll*rot*gainRoll, mgl64.Vec3{0, 0, 1})
	e.orientation = e.orientation.Mul(qPitch).Mul(qYaw).Mul(qRoll).Normalize()

	att := AttitudeOf(e.orientation)

	// Coordinated turn: rate = g·tan(bank) / v.
	if altitude > p.MinAltitude+groundMargin {
		turnSpeed := math.Max(speed, minTurnSpeed)
		att.Yaw += Gravity * math.Tan(att.Roll) / turnSpeed * dt
	}

	// TODO: clamping after free composition snaps at the limit; a stall model would soften this.
	att = att.Clamp(p.MaxPitch, p.MaxRoll)
	e.orientation = att.Quat()
}

// applyForces integrates gravity, thrust, lift, drag and side drag into the velocity.
func (e *Engine) applyForces(dt, speed, density float64, forward, up mgl64.Vec3, p *Profile) {
	e.velocity[1] -= Gravity * dt

	e.thrustForce = (e.throttle / 100) * p.Thrust * density
	e.velocity = e.velocity.Add(forward.Mul(e.thrustForce * dt))

	// Only airflow over the wing from ahead generates lift.
	forwardSpeed := e.velocity.Dot(forward)
	e.liftForce = math.Max(0, forwardSpeed) * p.Lift * density
	e.velocity = e.velocity.Add(up.Mul(e.liftForce * dt))

	e.dragForce = 0
	if speed > 0 {
		drag := speed * speed * p.Drag * density
		if e.gear {
			drag += speed * speed * p.GearDrag
		}
		// Drag may stop the vehicle but never reverse it within one step.
		drag = math.Min(drag, speed/dt)
		e.dragForce = drag
		if l := e.velocity.Len(); l > 0 {
			impulse := math.Min(drag*dt, l)
			e.velocity = e.velocity.Sub(e.velocity.Mul(impulse / l))
		}
	}

	local := e.orientation.Inverse().Rotate(e.velocity)
	if math.Abs(local.X()) > sideSlipDeadband {
		side := -local.X() * speed * p.SideDrag * dt * density
		e.velocity = e.velocity.Add(e.orientation.Rotate(mgl64.Vec3{side, 0, 0}))
	}
}
