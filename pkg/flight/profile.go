package flight

import (
	"errors"
	"fmt"
)

// Gravity is the vertical acceleration applied every update, in m/s².
const Gravity = 9.81

// Kind identifies an airframe class. It selects the obstacle collision radius.
type Kind string

const (
	KindLight    Kind = "light"
	KindAirliner Kind = "airliner"
)

// CollisionRadius returns the obstacle clearance radius in meters for the airframe.
func (k Kind) CollisionRadius() float64 {
	if k == KindAirliner {
		return 5
	}
	return 1
}

// Profile holds the aerodynamic constants of one vehicle type.
// Profiles are shared by every vehicle of that type and must not be mutated after construction.
type Profile struct {
	Kind           Kind    `yaml:"kind" json:"kind"`
	Lift           float64 `yaml:"lift" json:"lift"`
	Drag           float64 `yaml:"drag" json:"drag"`
	SideDrag       float64 `yaml:"side_drag" json:"side_drag"`
	Thrust         float64 `yaml:"thrust" json:"thrust"`
	RotSpeed       float64 `yaml:"rot_speed" json:"rot_speed"`
	MaxSpeed       float64 `yaml:"max_speed" json:"max_speed"`
	MinAltitude    float64 `yaml:"min_altitude" json:"min_altitude"`       // Ground contact height
	CrashVelocity  float64 `yaml:"crash_velocity" json:"crash_velocity"`   // Negative; vertical speed below this crashes
	Responsiveness float64 `yaml:"responsiveness" json:"responsiveness"`   // Control smoothing rate, 1/s
	ThrottleRate   float64 `yaml:"throttle_rate" json:"throttle_rate"`     // Percent per second
	GearDrag       float64 `yaml:"gear_drag" json:"gear_drag"`
	MaxPitch       float64 `yaml:"max_pitch,omitempty" json:"max_pitch"`   // Radians, 0 = unclamped
	MaxRoll        float64 `yaml:"max_roll,omitempty" json:"max_roll"`     // Radians, 0 = unclamped
}

// LightProfile returns the reference light aircraft profile.
func LightProfile() Profile {
	return Profile{
		Kind:           KindLight,
		Lift:           0.35,
		Drag:           0.008,
		SideDrag:       1.0,
		Thrust:         35.0,
		RotSpeed:       1.2,
		MaxSpeed:       180.0,
		MinAltitude:    0.85,
		CrashVelocity:  -18.0,
		Responsiveness: 8.0,
		ThrottleRate:   80.0,
		GearDrag:       0.005,
		MaxPitch:       1.2, // ~70°
		MaxRoll:        1.2,
	}
}

// AirlinerProfile returns the reference airliner profile. Lower lift and rotation speed,
// much higher thrust and top speed.
func AirlinerProfile() Profile {
	return Profile{
		Kind:           KindAirliner,
		Lift:           0.10,
		Drag:           0.0004,
		SideDrag:       0.3,
		Thrust:         55.0,
		RotSpeed:       0.5,
		MaxSpeed:       450.0,
		MinAltitude:    2.0,
		CrashVelocity:  -25.0,
		Responsiveness: 1.2,
		ThrottleRate:   30.0,
		GearDrag:       0.004,
		MaxPitch:       0.6, // ~35°
		MaxRoll:        0.8, // ~45°
	}
}

// ErrInvalidProfile is wrapped by every Validate failure.
var ErrInvalidProfile = errors.New("invalid vehicle profile")

// Validate checks the ranges the engine relies on. The engine itself never validates.
func (p *Profile) Validate() error {
	coeffs := []struct {
		name string
		val  float64
	}{
		{"lift", p.Lift},
		{"drag", p.Drag},
		{"side_drag", p.SideDrag},
		{"thrust", p.Thrust},
		{"rot_speed", p.RotSpeed},
		{"responsiveness", p.Responsiveness},
		{"throttle_rate", p.ThrottleRate},
		{"gear_drag", p.GearDrag},
		{"max_pitch", p.MaxPitch},
		{"max_roll", p.MaxRoll},
	}
	for _, c := range coeffs {
		if !isFinite(c.val) {
			return fmt.Errorf("%w: %s must be finite (got %v)", ErrInvalidProfile, c.name, c.val)
		}
		if c.val < 0 {
			return fmt.Errorf("%w: %s must not be negative (got %v)", ErrInvalidProfile, c.name, c.val)
		}
	}
	for name, v := range map[string]float64{"max_speed": p.MaxSpeed, "min_altitude": p.MinAltitude, "crash_velocity": p.CrashVelocity} {
		if !isFinite(v) {
			return fmt.Errorf("%w: %s must be finite (got %v)", ErrInvalidProfile, name, v)
		}
	}
	if p.MaxSpeed <= 0 {
		return fmt.Errorf("%w: max_speed must be positive (got %v)", ErrInvalidProfile, p.MaxSpeed)
	}
	if p.CrashVelocity >= 0 {
		return fmt.Errorf("%w: crash_velocity must be negative (got %v)", ErrInvalidProfile, p.CrashVelocity)
	}
	switch p.Kind {
	case KindLight, KindAirliner:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidProfile, p.Kind)
	}
	return nil
}
