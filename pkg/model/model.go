package model

import (
	"fmt"
	"time"
)

// Outcome is how a flight ended.
type Outcome string

const (
	OutcomeActive  Outcome = "active"  // Still flying
	OutcomeCrashed Outcome = "crashed" // Terminal collision
	OutcomeReset   Outcome = "reset"   // Ended by an explicit or automatic reset
	OutcomeStopped Outcome = "stopped" // Session shut down
)

// Flight is one continuous run from spawn to crash, reset or shutdown.
type Flight struct {
	ID        string    `json:"id"` // UUID
	Vehicle   string    `json:"vehicle"`
	Kind      string    `json:"kind"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"` // Zero while active
	Outcome   Outcome   `json:"outcome"`

	// Running statistics, final once EndedAt is set
	MaxAltitude float64 `json:"max_altitude"` // Meters
	MaxSpeed    float64 `json:"max_speed"`    // m/s
	Distance    float64 `json:"distance"`     // Horizontal distance flown, meters
}

// Active reports whether the flight has not ended yet.
func (f *Flight) Active() bool { return f.EndedAt.IsZero() }

// Duration returns the elapsed flight time, measured up to now for active flights.
func (f *Flight) Duration() time.Duration {
	if f.Active() {
		return time.Since(f.StartedAt)
	}
	return f.EndedAt.Sub(f.StartedAt)
}

// EventType classifies a FlightEvent.
type EventType string

const (
	EventSpawn   EventType = "spawn"
	EventTakeoff EventType = "takeoff"
	EventLanding EventType = "landing"
	EventCrash   EventType = "crash"
	EventReset   EventType = "reset"
)

// FlightEvent is a notable transition during a flight.
type FlightEvent struct {
	ID        int64     `json:"id"`
	FlightID  string    `json:"flight_id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Z             float64 `json:"z"`
	Speed         float64 `json:"speed"`          // m/s
	VerticalSpeed float64 `json:"vertical_speed"` // m/s, positive up

	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
}

// NewFlightEvent builds an event with the standard title and summary for the event log.
func NewFlightEvent(flightID, vehicle string, typ EventType, x, y, z, speed, vs float64) *FlightEvent {
	e := &FlightEvent{
		FlightID:      flightID,
		Type:          typ,
		Timestamp:     time.Now(),
		X:             x,
		Y:             y,
		Z:             z,
		Speed:         speed,
		VerticalSpeed: vs,
		Title:         fmt.Sprintf("%s at (%.1f, %.1f, %.1f)", vehicle, x, y, z),
	}
	switch typ {
	case EventCrash, EventLanding:
		e.Summary = fmt.Sprintf("%.1f m/s, vertical %.1f m/s", speed, vs)
	case EventTakeoff:
		e.Summary = fmt.Sprintf("%.1f m/s", speed)
	}
	return e
}
