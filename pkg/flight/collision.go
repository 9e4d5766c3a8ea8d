package flight

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	groundFriction   = 0.992 // Per update, not time-scaled
	groundLeveling   = 0.9   // Per update attitude decay while taxiing
	neutralPitchBand = 0.1
	minTiltUp        = 0.5 // worldUp.y below this is more than ~60° from vertical

	obstacleFloor   = -2.0
	obstacleCeiling = 170.0
)

// Footprint is an obstacle as seen by the collision classifier.
type Footprint struct {
	X, Z          float64 // Centre
	HalfWidth     float64 // Along X
	HalfDepth     float64 // Along Z
	Height        float64
	BaseElevation float64
}

// ObstacleIndex exposes the static obstacles near a point. Implementations must be read-only:
// one index may be shared by several engines.
type ObstacleIndex interface {
	// Nearby calls fn for every obstacle registered in the 3x3 cell neighbourhood of (x, z)
	// until fn returns false.
	Nearby(x, z float64, fn func(Footprint) bool)
}

// CheckCollisions classifies ground and obstacle contact after Update. It returns true only on the
// tick the vehicle crashes; onCrash, if non-nil, receives the crash position exactly once.
// idx may be nil when the world has no obstacles.
func (e *Engine) CheckCollisions(p *Profile, idx ObstacleIndex, onCrash func(mgl64.Vec3), kind Kind) bool {
	if e.crashed {
		return false
	}

	if e.position.Y() <= p.MinAltitude {
		if e.hardContact(p) {
			return e.crash(onCrash)
		}
		e.taxi(p)
	}

	if idx != nil && e.hitsObstacle(idx, kind.CollisionRadius()) {
		return e.crash(onCrash)
	}
	return false
}

// hardContact reports whether touching the ground at this moment is a crash.
func (e *Engine) hardContact(p *Profile) bool {
	fallingFast := e.velocity.Y() < p.CrashVelocity
	tilted := e.orientation.Rotate(axisUp).Y() < minTiltUp
	gearUp := !e.gear
	return fallingFast || tilted || gearUp
}

// taxi pins the vehicle to the ground, applies rolling friction and levels the attitude.
func (e *Engine) taxi(p *Profile) {
	e.position[1] = p.MinAltitude
	if e.velocity.Y() < 0 {
		e.velocity[1] = 0
	}
	e.velocity = e.velocity.Mul(groundFriction)

	att := AttitudeOf(e.orientation)
	if math.Abs(e.axes.Pitch) < neutralPitchBand {
		att.Pitch *= groundLeveling
	}
	att.Roll *= groundLeveling
	e.orientation = att.Quat()
}

func (e *Engine) hitsObstacle(idx ObstacleIndex, radius float64) bool {
	px, py, pz := e.position.X(), e.position.Y(), e.position.Z()
	if py <= obstacleFloor || py >= obstacleCeiling {
		return false
	}

	hit := false
	idx.Nearby(px, pz, func(f Footprint) bool {
		if py >= f.BaseElevation+f.Height+radius {
			return true
		}
		if math.Abs(px-f.X) < f.HalfWidth+radius && math.Abs(pz-f.Z) < f.HalfDepth+radius {
			hit = true
			return false
		}
		return true
	})
	return hit
}

func (e *Engine) crash(onCrash func(mgl64.Vec3)) bool {
	e.crashed = true
	if onCrash != nil {
		onCrash(e.position)
	}
	return true
}
