package store

import (
	"context"
	"time"

	"aerosim/pkg/model"
)

// FlightStore handles flight log persistence.
type FlightStore interface {
	CreateFlight(ctx context.Context, f *model.Flight) error
	// EndFlight stores the final outcome and statistics of f.
	EndFlight(ctx context.Context, f *model.Flight) error
	// UpdateFlightStats checkpoints the running statistics of an active flight. Ended flights are
	// left untouched; it reports whether a row changed.
	UpdateFlightStats(ctx context.Context, f *model.Flight) (bool, error)
	// GetFlight returns nil, nil when the flight does not exist.
	GetFlight(ctx context.Context, id string) (*model.Flight, error)
	// ListFlights returns up to limit flights, newest first.
	ListFlights(ctx context.Context, limit int) ([]*model.Flight, error)
	// CloseDanglingFlights ends every flight still marked active, e.g. after an unclean shutdown.
	CloseDanglingFlights(ctx context.Context, outcome model.Outcome, at time.Time) (int64, error)
}

// EventStore handles flight event persistence.
type EventStore interface {
	// RecordEvent appends e and sets its ID.
	RecordEvent(ctx context.Context, e *model.FlightEvent) error
	// ListEvents returns the events of one flight in recording order.
	ListEvents(ctx context.Context, flightID string) ([]*model.FlightEvent, error)
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}
