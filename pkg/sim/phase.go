package sim

import (
	"math"
	"strings"
	"time"
)

// Phase is the coarse flight phase.
type Phase string

const (
	PhaseGrounded Phase = "grounded"
	PhaseFlying   Phase = "flying"
	PhaseCrashed  Phase = "crashed"
)

// Heights above ground contact, in meters, that bound the hysteresis band between grounded and
// flying. Between the two the current phase is kept.
const (
	GroundedBelow = 0.5
	FlyingAbove   = 2.0
)

// PhaseTracker tracks the flight phase across telemetry ticks.
type PhaseTracker struct {
	current        Phase
	candidate      Phase
	confirmations  int
	lastTransition map[Phase]time.Time
}

// NewPhaseTracker creates a tracker in an uninitialized state.
func NewPhaseTracker() *PhaseTracker {
	return &PhaseTracker{
		lastTransition: make(map[Phase]time.Time),
	}
}

// Update evaluates telemetry and returns the current phase.
func (m *PhaseTracker) Update(t *Telemetry) Phase {
	// A crash is latched by the engine, no confirmation needed
	if t.Crashed {
		if m.current != PhaseCrashed {
			m.transition(PhaseCrashed, t.Time)
		}
		return m.current
	}

	// First-tick Initialization: determine fallback from actual height
	if m.current == "" || m.current == PhaseCrashed {
		if t.AltitudeAGL < FlyingAbove {
			m.current = PhaseGrounded
		} else {
			m.current = PhaseFlying
		}
		m.candidate = ""
		m.confirmations = 0
		// Skip hysteresis for initial state
		return m.current
	}

	candidate := m.detectCandidate(t)

	// Hysteresis: Require 2 ticks to confirm state change
	switch {
	case candidate == m.current:
		m.candidate = ""
		m.confirmations = 0
	case candidate == m.candidate:
		m.confirmations++
		if m.confirmations >= 1 { // 0+1 = 2 ticks total (first detect + 1 confirmation)
			m.transition(candidate, t.Time)
		}
	default:
		m.candidate = candidate
		m.confirmations = 0
	}

	return m.current
}

// transition stamps the change with the telemetry clock, not the wall clock.
func (m *PhaseTracker) transition(p Phase, at time.Time) {
	m.current = p
	m.lastTransition[p] = at
	m.candidate = ""
	m.confirmations = 0
}

// Reset returns the tracker to its uninitialized state. Transition times are kept.
func (m *PhaseTracker) Reset() {
	m.current = ""
	m.candidate = ""
	m.confirmations = 0
}

func (m *PhaseTracker) Current() Phase {
	return m.current
}

func (m *PhaseTracker) transitionedAt(p Phase) time.Time {
	if m.lastTransition == nil {
		return time.Time{}
	}
	return m.lastTransition[p]
}

func (m *PhaseTracker) detectCandidate(t *Telemetry) Phase {
	switch {
	case t.AltitudeAGL < GroundedBelow:
		return PhaseGrounded
	case t.AltitudeAGL > FlyingAbove:
		return PhaseFlying
	}
	return m.current
}

// AirborneDuration returns the seconds between the last takeoff and now while flying, or 0.
func (m *PhaseTracker) AirborneDuration(now time.Time) float64 {
	if m.current != PhaseFlying {
		return 0
	}
	takeOff, ok := m.lastTransition[PhaseFlying]
	if !ok || takeOff.IsZero() {
		return 0
	}
	return math.Max(now.Sub(takeOff).Seconds(), 0)
}

// FormatPhase returns a human-readable title for the phase.
func FormatPhase(p Phase) string {
	if p == "" {
		return "Unknown"
	}
	s := string(p)
	return strings.ToUpper(s[0:1]) + s[1:]
}
