// Package session drives one vehicle: it samples input, steps the flight engine at a fixed rate,
// classifies phases, records the flight log and publishes telemetry.
package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"aerosim/pkg/config"
	"aerosim/pkg/flight"
	"aerosim/pkg/input"
	"aerosim/pkg/logging"
	"aerosim/pkg/model"
	"aerosim/pkg/sim"
)

// Options configures a Session.
type Options struct {
	Provider  config.Provider
	Obstacles flight.ObstacleIndex // May be nil for an open field
	Input     input.Source
	Log       FlightLog // May be nil

	Spawn        mgl64.Vec3    // Only X and Z are used
	TickInterval time.Duration // Wall-clock period of Run
	MaxStep      time.Duration // Upper bound for one Tick's dt
}

// Session is the single writer of its engine. Tick and Run must not be called concurrently; every
// other method is safe to call from any goroutine.
type Session struct {
	opts Options
	rec  *Recorder

	engine  *flight.Engine
	vehicle string
	profile flight.Profile
	phase   *sim.PhaseTracker

	tick      uint64
	epoch     time.Time // Telemetry Time is epoch plus simTime
	simTime   time.Duration
	crashedAt time.Duration
	started   bool

	resetRequested atomic.Bool

	mu     sync.RWMutex
	latest sim.Telemetry
	sinks  []sim.Sink
}

// New creates a session. Call Start, or Run, before ticking.
func New(opts Options) *Session {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second / 60
	}
	if opts.MaxStep <= 0 || opts.MaxStep > time.Duration(flight.MaxStep*float64(time.Second)) {
		opts.MaxStep = time.Duration(flight.MaxStep * float64(time.Second))
	}
	return &Session{
		opts:  opts,
		epoch: time.Now(),
		rec:   NewRecorder(opts.Log),
		phase: sim.NewPhaseTracker(),
	}
}

// AddSink registers a telemetry receiver. Sinks are called on the session goroutine.
func (s *Session) AddSink(sink sim.Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// Start spawns the vehicle selected by the provider and opens the first flight.
func (s *Session) Start(ctx context.Context) {
	s.spawn(ctx)
	s.started = true
}

// RequestReset makes the next Tick respawn the vehicle.
func (s *Session) RequestReset() {
	s.resetRequested.Store(true)
}

// Telemetry returns the most recent snapshot.
func (s *Session) Telemetry() sim.Telemetry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Flight returns the current flight record.
func (s *Session) Flight() (model.Flight, bool) {
	return s.rec.Flight()
}

// Events returns the events of the current flight.
func (s *Session) Events() []model.FlightEvent {
	return s.rec.Events()
}

// Tick advances the simulation by dt.
func (s *Session) Tick(ctx context.Context, dt time.Duration) {
	if !s.started {
		s.Start(ctx)
	}
	if dt <= 0 {
		return
	}
	if dt > s.opts.MaxStep {
		dt = s.opts.MaxStep
	}
	s.simTime += dt
	s.tick++

	c := s.opts.Input.Next(dt)

	if reason, ok := s.resetReason(ctx, c); ok {
		s.reset(ctx, reason)
		return
	}

	s.engine.Update(dt.Seconds(), c, &s.profile)
	crashed := s.engine.CheckCollisions(&s.profile, s.opts.Obstacles, func(pos mgl64.Vec3) {
		slog.Warn("Crash", "vehicle", s.vehicle, "x", pos.X(), "y", pos.Y(), "z", pos.Z())
	}, s.profile.Kind)
	if !s.engine.Finite() {
		// Nothing derived from this step is published or recorded.
		s.reset(ctx, "non-finite state")
		return
	}

	tel := s.snapshot()
	prev := s.phase.Current()
	cur := s.phase.Update(&tel)
	tel.Phase = cur
	tel.Airborne = s.phase.AirborneDuration(tel.Time)
	s.rec.Observe(&tel)

	if prev != cur {
		s.onPhaseChange(ctx, prev, cur, &tel)
	}
	if crashed {
		s.crashedAt = s.simTime
	}

	logging.Trace(slog.Default(), "tick", "n", s.tick, "phase", cur, "y", tel.Position.Y, "speed", tel.Speed)
	s.publish(&tel)
}

func (s *Session) onPhaseChange(ctx context.Context, prev, cur sim.Phase, tel *sim.Telemetry) {
	switch {
	case cur == sim.PhaseCrashed:
		s.rec.Event(ctx, model.EventCrash, tel)
		s.rec.End(ctx, model.OutcomeCrashed)
	case prev == sim.PhaseGrounded && cur == sim.PhaseFlying:
		s.rec.Event(ctx, model.EventTakeoff, tel)
	case prev == sim.PhaseFlying && cur == sim.PhaseGrounded:
		s.rec.Event(ctx, model.EventLanding, tel)
	}
}

// resetReason reports whether this tick respawns the vehicle, and why.
func (s *Session) resetReason(ctx context.Context, c flight.Controls) (string, bool) {
	switch {
	case c.Reset:
		return "input", true
	case s.resetRequested.Swap(false):
		return "request", true
	case !s.engine.Finite():
		return "non-finite state", true
	case s.engine.Crashed():
		if delay := s.opts.Provider.AutoReset(ctx); delay > 0 && s.simTime-s.crashedAt >= delay {
			return "auto", true
		}
	}
	return "", false
}

// reset closes the current flight and respawns. The vehicle is re-read so a changed selection
// takes effect here.
func (s *Session) reset(ctx context.Context, reason string) {
	tel := s.Telemetry()
	s.rec.Event(ctx, model.EventReset, &tel)
	s.rec.End(ctx, model.OutcomeReset)
	slog.Info("Session reset", "reason", reason, "vehicle", s.vehicle)
	s.spawn(ctx)
}

func (s *Session) spawn(ctx context.Context) {
	s.vehicle, s.profile = s.opts.Provider.Profile(ctx)
	if s.engine == nil {
		s.engine = flight.NewEngine(s.opts.Spawn, s.profile.MinAltitude)
	} else {
		s.engine.Reset(s.opts.Spawn, s.profile.MinAltitude)
	}
	s.phase.Reset()
	s.crashedAt = 0

	tel := s.snapshot()
	id := s.rec.Begin(ctx, s.vehicle, &tel)
	tel.FlightID = id
	tel.Phase = s.phase.Update(&tel)
	s.publish(&tel)
}

func (s *Session) snapshot() sim.Telemetry {
	tel := sim.NewTelemetry(s.engine, &s.profile, s.opts.Spawn)
	tel.Tick = s.tick
	tel.Time = s.epoch.Add(s.simTime)
	tel.Vehicle = s.vehicle
	if f, ok := s.rec.Flight(); ok {
		tel.FlightID = f.ID
	}
	return tel
}

func (s *Session) publish(tel *sim.Telemetry) {
	s.mu.Lock()
	s.latest = *tel
	sinks := s.sinks
	s.mu.Unlock()

	for _, sink := range sinks {
		sink.Publish(tel)
	}
}

// Stop ends the active flight as stopped.
func (s *Session) Stop(ctx context.Context) {
	s.rec.End(ctx, model.OutcomeStopped)
}

// Run steps the session at the tick interval until ctx is cancelled. dt is measured on the wall
// clock.
func (s *Session) Run(ctx context.Context) error {
	if !s.started {
		s.Start(ctx)
	}

	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			s.Stop(context.WithoutCancel(ctx))
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			s.Tick(ctx, dt)
		}
	}
}
