package maintenance

import (
	"context"
	"log/slog"
	"time"

	"aerosim/pkg/db"
	"aerosim/pkg/model"
	"aerosim/pkg/store"
)

// DefaultRetention is how long ended flights are kept.
const DefaultRetention = 30 * 24 * time.Hour

// Run executes all maintenance tasks: closing flights left open by an unclean shutdown, and pruning.
// A non-positive retention disables pruning.
// It blocks until completion.
func Run(ctx context.Context, s store.Store, d *db.DB, retention time.Duration) error {
	slog.Info("Starting database maintenance...")

	if n, err := closeDangling(ctx, s); err != nil {
		slog.Error("Closing dangling flights failed", "error", err)
		// We don't stop startup for maintenance failure, but we log it.
	} else if n > 0 {
		slog.Info("Closed dangling flights", "count", n)
	}

	if retention <= 0 {
		return nil
	}
	if n, err := d.PruneFlights(ctx, retention); err != nil {
		slog.Error("Flight pruning failed", "error", err)
	} else {
		slog.Info("Flight pruning completed", "removed", n)
	}

	return nil
}

// closeDangling marks every still-active flight as stopped. Only one session writes at a time,
// so at startup any active row belongs to a previous process.
func closeDangling(ctx context.Context, s store.FlightStore) (int64, error) {
	return s.CloseDanglingFlights(ctx, model.OutcomeStopped, time.Now())
}
