package session

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"aerosim/pkg/logging"
	"aerosim/pkg/model"
	"aerosim/pkg/sim"
	"aerosim/pkg/store"
)

// FlightLog is the persistence a Recorder needs.
type FlightLog interface {
	store.FlightStore
	store.EventStore
}

// Recorder handles the flight log of one session: the active flight, its running statistics and
// its events. Persistence failures are logged and never stop the simulation.
type Recorder struct {
	mu     sync.RWMutex
	log    FlightLog // May be nil
	flight *model.Flight
	events []model.FlightEvent

	lastX, lastZ float64
}

// NewRecorder creates a recorder. log may be nil to keep the flight log in memory only.
func NewRecorder(log FlightLog) *Recorder {
	return &Recorder{log: log}
}

// Begin starts a new flight and records its spawn event.
func (r *Recorder) Begin(ctx context.Context, vehicle string, tel *sim.Telemetry) string {
	f := &model.Flight{
		ID:        uuid.NewString(),
		Vehicle:   vehicle,
		Kind:      tel.Kind,
		StartedAt: time.Now(),
		Outcome:   model.OutcomeActive,
	}

	r.mu.Lock()
	r.flight = f
	r.events = nil
	r.lastX, r.lastZ = tel.Position.X, tel.Position.Z
	r.mu.Unlock()

	if r.log != nil {
		if err := r.log.CreateFlight(ctx, f); err != nil {
			slog.Error("Recorder: failed to create flight", "id", f.ID, "error", err)
		}
	}
	r.Event(ctx, model.EventSpawn, tel)
	return f.ID
}

// Observe folds one snapshot into the running statistics.
func (r *Recorder) Observe(tel *sim.Telemetry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.flight == nil || !r.flight.Active() {
		return
	}
	f := r.flight
	f.MaxAltitude = math.Max(f.MaxAltitude, tel.AltitudeAGL)
	f.MaxSpeed = math.Max(f.MaxSpeed, tel.Speed)
	f.Distance += math.Hypot(tel.Position.X-r.lastX, tel.Position.Z-r.lastZ)
	r.lastX, r.lastZ = tel.Position.X, tel.Position.Z
}

// Event records an event of the active flight at the snapshot's position.
func (r *Recorder) Event(ctx context.Context, typ model.EventType, tel *sim.Telemetry) {
	r.mu.Lock()
	if r.flight == nil {
		r.mu.Unlock()
		return
	}
	p := tel.Position
	e := model.NewFlightEvent(r.flight.ID, r.flight.Vehicle, typ, p.X, p.Y, p.Z, tel.Speed, tel.VerticalSpeed)
	r.mu.Unlock()

	if r.log != nil {
		if err := r.log.RecordEvent(ctx, e); err != nil {
			slog.Error("Recorder: failed to record event", "type", typ, "error", err)
		}
	}

	r.mu.Lock()
	r.events = append(r.events, *e)
	r.mu.Unlock()

	// Log to events.log
	logging.LogEvent(e)
}

// End closes the active flight with the given outcome. Ending an already ended flight is a no-op.
func (r *Recorder) End(ctx context.Context, outcome model.Outcome) {
	r.mu.Lock()
	f := r.flight
	if f == nil || !f.Active() {
		r.mu.Unlock()
		return
	}
	f.EndedAt = time.Now()
	f.Outcome = outcome
	final := *f
	r.mu.Unlock()

	if r.log != nil {
		if err := r.log.EndFlight(ctx, &final); err != nil {
			slog.Error("Recorder: failed to end flight", "id", final.ID, "error", err)
		}
	}
	slog.Info("Flight ended",
		"id", final.ID,
		"outcome", outcome,
		"duration", final.Duration().Round(time.Millisecond),
		"max_alt", math.Round(final.MaxAltitude),
		"distance", math.Round(final.Distance))
}

// Flight returns a copy of the current flight, or false before the first Begin.
func (r *Recorder) Flight() (model.Flight, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.flight == nil {
		return model.Flight{}, false
	}
	return *r.flight, true
}

// Events returns the current flight's events in order.
func (r *Recorder) Events() []model.FlightEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.FlightEvent, len(r.events))
	copy(out, r.events)
	return out
}
