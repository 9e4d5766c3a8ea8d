// Package db opens the flight log database and keeps its schema current.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Register driver
)

// DB wraps the sql.DB connection.
type DB struct {
	*sql.DB
}

// Applied to every connection the pool opens.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(30000)",
	"synchronous(NORMAL)",
}

// migrations are applied in order; PRAGMA user_version records how many have run. Append only.
// Timestamps are Unix milliseconds, 0 means unset.
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS flights (
			id TEXT PRIMARY KEY,
			vehicle TEXT,
			kind TEXT,
			started_at INTEGER NOT NULL,
			ended_at INTEGER DEFAULT 0,
			outcome TEXT,
			max_altitude REAL DEFAULT 0,
			max_speed REAL DEFAULT 0,
			distance REAL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS flight_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			flight_id TEXT NOT NULL,
			type TEXT,
			ts INTEGER NOT NULL,
			x REAL,
			y REAL,
			z REAL,
			speed REAL,
			vertical_speed REAL,
			title TEXT,
			summary TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_flight_events_flight ON flight_events (flight_id, id)`,
		`CREATE INDEX IF NOT EXISTS idx_flights_started ON flights (started_at)`,
		`CREATE TABLE IF NOT EXISTS persistent_state (
			key TEXT PRIMARY KEY,
			value TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	},
	{
		`CREATE INDEX IF NOT EXISTS idx_flights_ended ON flights (ended_at)`,
	},
}

// SchemaVersion is the user_version a fully migrated database reports.
var SchemaVersion = len(migrations)

// Init creates the directory if needed, opens the database at path and migrates it.
func Init(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}

	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	conn, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	// One writer: the session, the checkpoint job and the API share a single connection, which
	// serializes them instead of surfacing SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	d := &DB{conn}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	if err := d.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return d, nil
}

// Version returns the applied migration count.
func (d *DB) Version(ctx context.Context) (int, error) {
	var v int
	err := d.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v)
	return v, err
}

func (d *DB) migrate(ctx context.Context) error {
	current, err := d.Version(ctx)
	if err != nil {
		return err
	}
	if current > len(migrations) {
		return fmt.Errorf("database schema %d is newer than this build (%d)", current, len(migrations))
	}

	for v := current; v < len(migrations); v++ {
		tx, err := d.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		for _, stmt := range migrations[v] {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("step %d: %w query: %s", v+1, err, stmt)
			}
		}
		// PRAGMA does not take bind parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// PruneFlights removes ended flights, and their events, that ended before now minus olderThan.
// Active flights (ended_at 0) are never pruned. It returns the number of flights removed.
func (d *DB) PruneFlights(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UnixMilli()

	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM flight_events WHERE flight_id IN
			(SELECT id FROM flights WHERE ended_at > 0 AND ended_at < ?)`, cutoff); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM flights WHERE ended_at > 0 AND ended_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}
