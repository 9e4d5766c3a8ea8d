package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aerosim/pkg/model"
	"aerosim/pkg/sim"
)

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder(nil)

	_, ok := r.Flight()
	assert.False(t, ok)
	r.Event(ctx, model.EventCrash, &sim.Telemetry{}) // No flight yet, ignored
	r.End(ctx, model.OutcomeCrashed)
	assert.Empty(t, r.Events())

	id := r.Begin(ctx, "light", &sim.Telemetry{Kind: "light", Position: sim.Vector{X: 0, Z: 0}})
	require.NotEmpty(t, id)

	r.Observe(&sim.Telemetry{Position: sim.Vector{X: 3, Z: 4}, AltitudeAGL: 10, Speed: 20})
	r.Observe(&sim.Telemetry{Position: sim.Vector{X: 3, Z: 10}, AltitudeAGL: 5, Speed: 30})

	f, ok := r.Flight()
	require.True(t, ok)
	assert.Equal(t, id, f.ID)
	assert.Equal(t, "light", f.Kind)
	assert.InDelta(t, 11.0, f.Distance, 1e-9)
	assert.Equal(t, 10.0, f.MaxAltitude)
	assert.Equal(t, 30.0, f.MaxSpeed)

	r.Event(ctx, model.EventTakeoff, &sim.Telemetry{Speed: 30, Position: sim.Vector{X: 3, Y: 5, Z: 10}})
	events := r.Events()
	require.Len(t, events, 2)
	assert.Equal(t, model.EventSpawn, events[0].Type)
	assert.Equal(t, "light at (3.0, 5.0, 10.0)", events[1].Title)
	assert.Equal(t, id, events[1].FlightID)

	r.End(ctx, model.OutcomeCrashed)
	r.End(ctx, model.OutcomeReset)
	f, _ = r.Flight()
	assert.Equal(t, model.OutcomeCrashed, f.Outcome, "first outcome wins")

	// Ended flights stop accumulating.
	r.Observe(&sim.Telemetry{Position: sim.Vector{X: 100}, Speed: 99})
	f, _ = r.Flight()
	assert.Equal(t, 30.0, f.MaxSpeed)

	// A new flight starts with a fresh event list.
	next := r.Begin(ctx, "airliner", &sim.Telemetry{Kind: "airliner"})
	assert.NotEqual(t, id, next)
	assert.Len(t, r.Events(), 1)
}
