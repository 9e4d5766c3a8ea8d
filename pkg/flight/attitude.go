package flight

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// World basis vectors. Forward is -Z.
var (
	axisForward = mgl64.Vec3{0, 0, -1}
	axisUp      = mgl64.Vec3{0, 1, 0}
	axisRight   = mgl64.Vec3{1, 0, 0}
)

// Attitude is an intrinsic yaw-pitch-roll decomposition (Y, then X, then Z) of an orientation.
type Attitude struct {
	Yaw   float64 `json:"yaw"`   // About Y
	Pitch float64 `json:"pitch"` // About X
	Roll  float64 `json:"roll"`  // About Z
}

// AttitudeOf decomposes q in YXZ order. Near ±90° pitch the roll is folded into yaw.
func AttitudeOf(q mgl64.Quat) Attitude {
	m := q.Normalize().Mat4()
	m23 := m.At(1, 2)

	var a Attitude
	a.Pitch = math.Asin(-mgl64.Clamp(m23, -1, 1))
	if math.Abs(m23) < 0.9999999 {
		a.Yaw = math.Atan2(m.At(0, 2), m.At(2, 2))
		a.Roll = math.Atan2(m.At(1, 0), m.At(1, 1))
	} else {
		a.Yaw = math.Atan2(-m.At(2, 0), m.At(0, 0))
		a.Roll = 0
	}
	return a
}

// Quat rebuilds the orientation from the decomposition. Inverse of AttitudeOf.
func (a Attitude) Quat() mgl64.Quat {
	qy := mgl64.QuatRotate(a.Yaw, axisUp)
	qx := mgl64.QuatRotate(a.Pitch, axisRight)
	qz := mgl64.QuatRotate(a.Roll, mgl64.Vec3{0, 0, 1})
	return qy.Mul(qx).Mul(qz).Normalize()
}

// Clamp limits pitch and roll symmetrically. A zero limit leaves that angle untouched.
func (a Attitude) Clamp(maxPitch, maxRoll float64) Attitude {
	if maxPitch > 0 {
		a.Pitch = mgl64.Clamp(a.Pitch, -maxPitch, maxPitch)
	}
	if maxRoll > 0 {
		a.Roll = mgl64.Clamp(a.Roll, -maxRoll, maxRoll)
	}
	return a
}

// Degrees returns the angles converted to degrees, for display.
func (a Attitude) Degrees() Attitude {
	return Attitude{
		Yaw:   mgl64.RadToDeg(a.Yaw),
		Pitch: mgl64.RadToDeg(a.Pitch),
		Roll:  mgl64.RadToDeg(a.Roll),
	}
}
