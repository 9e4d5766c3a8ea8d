// Package flight is the flight dynamics and collision core.
//
// An Engine owns one vehicle's kinematic state. Each simulation tick the caller invokes Update
// followed by CheckCollisions, then reads the accessors. The engine is not safe for concurrent use;
// exactly one goroutine may drive it.
//
// The engine does not detect numerically diverged state. Callers check Finite after each tick and
// call Reset when it reports false.
package flight

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// MaxStep bounds a single update so frame hitches cannot produce large force impulses.
const MaxStep = 0.1

// groundMargin is the height above MinAltitude still treated as on the ground for throttle and
// bank-turn purposes.
const groundMargin = 0.5

// Engine integrates one vehicle.
type Engine struct {
	position    mgl64.Vec3
	velocity    mgl64.Vec3
	orientation mgl64.Quat
	throttle    float64
	gear        bool
	crashed     bool
	axes        Axes

	liftForce   float64
	dragForce   float64
	thrustForce float64
}

// NewEngine creates an engine resting on the ground at start.
func NewEngine(start mgl64.Vec3, minAltitude float64) *Engine {
	e := &Engine{}
	e.Reset(start, minAltitude)
	return e
}

// Reset reinitialises the full state: start position at ground height, at rest, level,
// throttle idle, gear down, not crashed.
func (e *Engine) Reset(start mgl64.Vec3, minAltitude float64) {
	*e = Engine{
		position:    mgl64.Vec3{start.X(), minAltitude, start.Z()},
		orientation: mgl64.QuatIdent(),
		gear:        true,
	}
}

func (e *Engine) Position() mgl64.Vec3    { return e.position }
func (e *Engine) Velocity() mgl64.Vec3    { return e.velocity }
func (e *Engine) Orientation() mgl64.Quat { return e.orientation }
func (e *Engine) Throttle() float64       { return e.throttle }
func (e *Engine) GearDeployed() bool      { return e.gear }
func (e *Engine) Crashed() bool           { return e.crashed }
func (e *Engine) Axes() Axes              { return e.axes }
func (e *Engine) LiftForce() float64      { return e.liftForce }
func (e *Engine) DragForce() float64      { return e.dragForce }
func (e *Engine) ThrustForce() float64    { return e.thrustForce }

// Attitude returns the current YXZ decomposition of the orientation.
func (e *Engine) Attitude() Attitude { return AttitudeOf(e.orientation) }

// Speed returns |velocity|.
func (e *Engine) Speed() float64 { return e.velocity.Len() }

// Finite reports whether position and velocity hold only finite values.
func (e *Engine) Finite() bool {
	for i := 0; i < 3; i++ {
		if !isFinite(e.position[i]) || !isFinite(e.velocity[i]) {
			return false
		}
	}
	return true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// onGround reports the loose ground check used by throttle limits and the bank turn.
func (e *Engine) onGround(p *Profile) bool {
	return e.position.Y() <= p.MinAltitude+groundMargin
}
