package storage

import (
	"context"
	"fmt"
)

// migrate creates the store schema if it doesn't exist.
func (db *DB) migrate() error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	db.logger.Debug("database migrations applied")
	return nil
}

// CreateIndexes builds the pickup lookup indexes. Run once the pickups are loaded;
// the per-stop and per-trip schedule queries depend on them.
func (db *DB) CreateIndexes(ctx context.Context) error {
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	db.logger.Info("indexes built", "count", len(indexes))
	return nil
}

var migrations = []string{
	// Weekly service calendars; days is a Monday-first bitmask
	`CREATE TABLE IF NOT EXISTS service_periods (
		id     INTEGER PRIMARY KEY AUTOINCREMENT,
		days   INTEGER NOT NULL DEFAULT 0,
		start  TEXT NOT NULL,
		finish TEXT NOT NULL
	)`,

	// Single-date overrides (1 = added, 2 = removed)
	`CREATE TABLE IF NOT EXISTS service_exceptions (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		day               TEXT NOT NULL,
		exception_type    INTEGER NOT NULL,
		service_period_id INTEGER NOT NULL REFERENCES service_periods(id)
	)`,

	// Stops; number 0 means no rider-facing number assigned
	`CREATE TABLE IF NOT EXISTS stops (
		id     INTEGER PRIMARY KEY AUTOINCREMENT,
		label  TEXT NOT NULL,
		number INTEGER NOT NULL DEFAULT 0,
		name   TEXT NOT NULL DEFAULT '',
		lat    REAL NOT NULL DEFAULT 0,
		lon    REAL NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS routes (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		label      TEXT NOT NULL DEFAULT '',
		name       TEXT NOT NULL DEFAULT '',
		route_type INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS trips (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		headsign          TEXT NOT NULL DEFAULT '',
		block             INTEGER NOT NULL DEFAULT 0,
		route_id          INTEGER NOT NULL REFERENCES routes(id),
		service_period_id INTEGER NOT NULL REFERENCES service_periods(id)
	)`,

	// Stop visits; arrival/departure are seconds since service-day start
	`CREATE TABLE IF NOT EXISTS pickups (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		arrival   INTEGER NOT NULL,
		departure INTEGER NOT NULL,
		sequence  INTEGER NOT NULL,
		trip_id   INTEGER NOT NULL REFERENCES trips(id),
		stop_id   INTEGER NOT NULL REFERENCES stops(id)
	)`,

	`CREATE TABLE IF NOT EXISTS versions (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		api_version  INTEGER NOT NULL,
		feed_version INTEGER NOT NULL DEFAULT 0
	)`,

	// Feed metadata (imported_at, source)
	`CREATE TABLE IF NOT EXISTS feed_metadata (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_stop_id_pickups ON pickups(stop_id)`,
	`CREATE INDEX IF NOT EXISTS idx_trip_id_pickups ON pickups(trip_id)`,
}
