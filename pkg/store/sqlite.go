package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"aerosim/pkg/db"
	"aerosim/pkg/model"
)

// Store defines the repository interface.
// It composes all sub-interfaces for full store access.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	FlightStore
	EventStore
	StateStore

	// Close closes the store connection.
	Close() error
}

// DefaultListLimit caps ListFlights when the caller passes a non-positive limit.
const DefaultListLimit = 50

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// --- Flights ---

func (s *SQLiteStore) CreateFlight(ctx context.Context, f *model.Flight) error {
	if f.StartedAt.IsZero() {
		f.StartedAt = time.Now()
	}
	if f.Outcome == "" {
		f.Outcome = model.OutcomeActive
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO flights (id, vehicle, kind, started_at, ended_at, outcome, max_altitude, max_speed, distance)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Vehicle, f.Kind, toMillis(f.StartedAt), toMillis(f.EndedAt), string(f.Outcome),
		f.MaxAltitude, f.MaxSpeed, f.Distance)
	return err
}

func (s *SQLiteStore) EndFlight(ctx context.Context, f *model.Flight) error {
	if f.EndedAt.IsZero() {
		f.EndedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE flights SET ended_at = ?, outcome = ?, max_altitude = ?, max_speed = ?, distance = ? WHERE id = ?`,
		toMillis(f.EndedAt), string(f.Outcome), f.MaxAltitude, f.MaxSpeed, f.Distance, f.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		slog.Warn("EndFlight: no such flight", "id", f.ID)
	}
	return nil
}

func (s *SQLiteStore) UpdateFlightStats(ctx context.Context, f *model.Flight) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE flights SET max_altitude = ?, max_speed = ?, distance = ? WHERE id = ? AND (ended_at = 0 OR ended_at IS NULL)`,
		f.MaxAltitude, f.MaxSpeed, f.Distance, f.ID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const flightColumns = `id, vehicle, kind, started_at, ended_at, outcome, max_altitude, max_speed, distance`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlight(r rowScanner) (*model.Flight, error) {
	var f model.Flight
	var started, ended int64
	var vehicle, kind, outcome sql.NullString
	if err := r.Scan(&f.ID, &vehicle, &kind, &started, &ended, &outcome, &f.MaxAltitude, &f.MaxSpeed, &f.Distance); err != nil {
		return nil, err
	}
	f.Vehicle = vehicle.String
	f.Kind = kind.String
	f.Outcome = model.Outcome(outcome.String)
	f.StartedAt = fromMillis(started)
	f.EndedAt = fromMillis(ended)
	return &f, nil
}

func (s *SQLiteStore) GetFlight(ctx context.Context, id string) (*model.Flight, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+flightColumns+` FROM flights WHERE id = ?`, id)
	f, err := scanFlight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found
	}
	return f, err
}

func (s *SQLiteStore) ListFlights(ctx context.Context, limit int) ([]*model.Flight, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+flightColumns+` FROM flights ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Flight
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CloseDanglingFlights(ctx context.Context, outcome model.Outcome, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE flights SET ended_at = ?, outcome = ? WHERE ended_at = 0 OR ended_at IS NULL`,
		toMillis(at), string(outcome))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- Events ---

func (s *SQLiteStore) RecordEvent(ctx context.Context, e *model.FlightEvent) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO flight_events (flight_id, type, ts, x, y, z, speed, vertical_speed, title, summary)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.FlightID, string(e.Type), toMillis(e.Timestamp), e.X, e.Y, e.Z, e.Speed, e.VerticalSpeed, e.Title, e.Summary)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

func (s *SQLiteStore) ListEvents(ctx context.Context, flightID string) ([]*model.FlightEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, flight_id, type, ts, x, y, z, speed, vertical_speed, title, summary
		 FROM flight_events WHERE flight_id = ? ORDER BY id`, flightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.FlightEvent
	for rows.Next() {
		var e model.FlightEvent
		var typ string
		var ts int64
		var title, summary sql.NullString
		if err := rows.Scan(&e.ID, &e.FlightID, &typ, &ts, &e.X, &e.Y, &e.Z, &e.Speed, &e.VerticalSpeed, &title, &summary); err != nil {
			return nil, err
		}
		e.Type = model.EventType(typ)
		e.Timestamp = fromMillis(ts)
		e.Title = title.String
		e.Summary = summary.String
		out = append(out, &e)
	}
	return out, rows.Err()
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("GetState failed", "key", key, "error", err)
		}
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now().UTC().Format("2006-01-02 15:04:05"))
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}
