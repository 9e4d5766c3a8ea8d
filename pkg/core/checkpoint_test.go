package core

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aerosim/pkg/db"
	"aerosim/pkg/model"
	"aerosim/pkg/sim"
	"aerosim/pkg/store"
)

type staticSource struct {
	f  model.Flight
	ok bool
}

func (s *staticSource) Flight() (model.Flight, bool) { return s.f, s.ok }

// countingStore counts checkpoint writes.
type countingStore struct {
	store.FlightStore
	writes int
}

func (c *countingStore) UpdateFlightStats(ctx context.Context, f *model.Flight) (bool, error) {
	c.writes++
	return c.FlightStore.UpdateFlightStats(ctx, f)
}

func TestCheckpointJob(t *testing.T) {
	ctx := context.Background()
	d, err := db.Init(filepath.Join(t.TempDir(), "core.db"))
	require.NoError(t, err)
	defer d.Close()
	st := &countingStore{FlightStore: store.NewSQLiteStore(d)}

	require.NoError(t, st.CreateFlight(ctx, &model.Flight{ID: "f1", Vehicle: "light"}))

	src := &staticSource{}
	job := NewCheckpointJob(st, src, time.Second)
	tel := &sim.Telemetry{Time: time.Now()}

	// Nothing to save before the first flight.
	job.Run(ctx, tel)
	assert.Zero(t, st.writes)

	src.f = model.Flight{ID: "f1", Outcome: model.OutcomeActive, MaxAltitude: 55, MaxSpeed: 40, Distance: 800}
	src.ok = true
	job.Run(ctx, tel)
	assert.Equal(t, 1, st.writes)

	got, err := st.GetFlight(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, 55.0, got.MaxAltitude)
	assert.Equal(t, 800.0, got.Distance)

	// Unchanged stats are skipped.
	job.Run(ctx, tel)
	assert.Equal(t, 1, st.writes)

	src.f.Outcome = model.OutcomeCrashed
	src.f.EndedAt = time.Now()
	src.f.Distance = 900
	job.Run(ctx, tel)
	assert.Equal(t, 1, st.writes, "ended flights are left to the recorder")
}

func TestProgressJob(t *testing.T) {
	j := NewProgressJob(1000)
	assert.Equal(t, "FlightProgress", j.Name())
	tel := &sim.Telemetry{FlightID: "f1"}
	require.True(t, j.ShouldFire(tel))
	j.Run(context.Background(), tel)
	assert.False(t, j.ShouldFire(&sim.Telemetry{FlightID: "f1", Position: sim.Vector{X: 999}}))
	assert.True(t, j.ShouldFire(&sim.Telemetry{FlightID: "f1", Position: sim.Vector{X: 1000}}))
}
