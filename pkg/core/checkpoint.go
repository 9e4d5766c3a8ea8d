package core

import (
	"context"
	"log/slog"
	"time"

	"aerosim/pkg/model"
	"aerosim/pkg/sim"
	"aerosim/pkg/store"
)

// DefaultCheckpointInterval is how often the running flight statistics are saved.
const DefaultCheckpointInterval = 30 * time.Second

// FlightSource exposes the active flight.
type FlightSource interface {
	Flight() (model.Flight, bool)
}

type flightStats struct {
	id       string
	alt      float64
	speed    float64
	distance float64
}

// NewCheckpointJob saves the active flight's running statistics so an unclean shutdown loses at
// most one interval. Unchanged statistics are not written again.
func NewCheckpointJob(st store.FlightStore, src FlightSource, interval time.Duration) *TimeJob {
	var last flightStats
	return NewTimeJob("FlightCheckpoint", interval, func(ctx context.Context, _ sim.Telemetry) {
		f, ok := src.Flight()
		if !ok || !f.Active() {
			return
		}

		cur := flightStats{id: f.ID, alt: f.MaxAltitude, speed: f.MaxSpeed, distance: f.Distance}
		if cur == last {
			return // No change
		}

		updated, err := st.UpdateFlightStats(ctx, &f)
		if err != nil {
			slog.Error("Checkpoint: failed to save flight stats", "id", f.ID, "error", err)
			return
		}
		last = cur
		if updated {
			slog.Debug("Checkpoint: flight saved", "id", f.ID, "distance", f.Distance)
		}
	})
}

// NewProgressJob logs a progress line every threshold meters of ground track.
func NewProgressJob(threshold float64) *DistanceJob {
	return NewDistanceJob("FlightProgress", threshold, func(_ context.Context, t sim.Telemetry) {
		slog.Info("Flight progress",
			"flight", t.FlightID,
			"phase", t.Phase,
			"distance", int(t.DistanceFromSpawn),
			"alt_agl", int(t.AltitudeAGL),
			"speed", int(t.Speed))
	})
}
