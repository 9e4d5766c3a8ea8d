// Package sim provides the published vehicle state and flight phase classification.
package sim

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"aerosim/pkg/flight"
)

// Vector is a JSON-friendly world-space vector in meters or m/s.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func vector(v mgl64.Vec3) Vector { return Vector{X: v.X(), Y: v.Y(), Z: v.Z()} }

// Physics holds the force magnitudes of the last update, for debugging.
type Physics struct {
	Velocity Vector  `json:"velocity"`
	Lift     float64 `json:"lift"`
	Drag     float64 `json:"drag"`
	Thrust   float64 `json:"thrust"`
}

// Telemetry represents a snapshot of vehicle state.
type Telemetry struct {
	Tick     uint64    `json:"tick"`
	Time     time.Time `json:"time"`
	FlightID string    `json:"flight_id"`
	Vehicle  string    `json:"vehicle"`
	Kind     string    `json:"kind"`

	Position Vector          `json:"position"`
	Rotation flight.Attitude `json:"rotation"` // Degrees
	Axes     flight.Axes     `json:"axes"`

	Speed             float64 `json:"speed"`               // m/s
	VerticalSpeed     float64 `json:"vertical_speed"`      // m/s, positive up
	Throttle          float64 `json:"throttle"`            // Percent
	Altitude          float64 `json:"altitude"`            // Meters, world Y
	AltitudeAGL       float64 `json:"altitude_agl"`        // Meters above ground contact height
	DistanceFromSpawn float64 `json:"distance_from_spawn"` // Horizontal, meters

	Crashed  bool    `json:"crashed"`
	Gear     bool    `json:"gear"`
	Phase    Phase   `json:"phase"`
	Airborne float64 `json:"airborne_s"` // Seconds since takeoff while flying

	Physics Physics `json:"physics"`
}

// NewTelemetry captures the engine state. Session fields (Tick, FlightID, Vehicle, Phase, Airborne)
// are left for the caller, which may also restamp Time.
func NewTelemetry(e *flight.Engine, p *flight.Profile, spawn mgl64.Vec3) Telemetry {
	pos := e.Position()
	vel := e.Velocity()
	return Telemetry{
		Time:              time.Now(),
		Kind:              string(p.Kind),
		Position:          vector(pos),
		Rotation:          e.Attitude().Degrees(),
		Axes:              e.Axes(),
		Speed:             vel.Len(),
		VerticalSpeed:     vel.Y(),
		Throttle:          e.Throttle(),
		Altitude:          pos.Y(),
		AltitudeAGL:       pos.Y() - p.MinAltitude,
		DistanceFromSpawn: math.Hypot(pos.X()-spawn.X(), pos.Z()-spawn.Z()),
		Crashed:           e.Crashed(),
		Gear:              e.GearDeployed(),
		Physics: Physics{
			Velocity: vector(vel),
			Lift:     e.LiftForce(),
			Drag:     e.DragForce(),
			Thrust:   e.ThrustForce(),
		},
	}
}

// Sink receives every published snapshot. Implementations must not block.
type Sink interface {
	Publish(t *Telemetry)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(t *Telemetry)

func (f SinkFunc) Publish(t *Telemetry) { f(t) }
