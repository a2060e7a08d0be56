package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// GetMetadata retrieves a value from the feed_metadata table.
func (db *DB) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM feed_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetMetadata stores a key-value pair in the feed_metadata table.
func (db *DB) SetMetadata(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO feed_metadata (key, value) VALUES (?, ?)`,
		key, value)
	return err
}

// Version returns the most recently recorded version row, or nil if none.
func (db *DB) Version(ctx context.Context) (*Version, error) {
	var v Version
	err := db.QueryRowContext(ctx,
		`SELECT api_version, feed_version FROM versions ORDER BY id DESC LIMIT 1`).
		Scan(&v.APIVersion, &v.FeedVersion)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("version query: %w", err)
	}
	return &v, nil
}

// HasData returns true if the store holds an imported feed.
func (db *DB) HasData(ctx context.Context) bool {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pickups`).Scan(&count)
	return err == nil && count > 0
}

// Counts returns the row count of each entity table.
func (db *DB) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(entityTables))
	for _, table := range entityTables {
		var n int
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

var entityTables = []string{
	"service_periods", "service_exceptions", "stops", "routes", "trips", "pickups",
}

// ServicePeriods returns all service periods in id order.
func (db *DB) ServicePeriods(ctx context.Context) ([]ServicePeriod, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, days, start, finish FROM service_periods ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("service periods query: %w", err)
	}
	defer rows.Close()

	var periods []ServicePeriod
	for rows.Next() {
		var sp ServicePeriod
		if err := rows.Scan(&sp.ID, &sp.Days, &sp.Start, &sp.Finish); err != nil {
			return nil, fmt.Errorf("scan service period: %w", err)
		}
		periods = append(periods, sp)
	}
	return periods, rows.Err()
}

// ServicePeriod returns one service period, or nil if absent.
func (db *DB) ServicePeriod(ctx context.Context, id int64) (*ServicePeriod, error) {
	var sp ServicePeriod
	err := db.QueryRowContext(ctx,
		`SELECT id, days, start, finish FROM service_periods WHERE id = ?`, id).
		Scan(&sp.ID, &sp.Days, &sp.Start, &sp.Finish)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("service period %d: %w", id, err)
	}
	return &sp, nil
}

// ServiceExceptionsOn returns the exceptions recorded for day (YYYYMMDD) in id order.
func (db *DB) ServiceExceptionsOn(ctx context.Context, day string) ([]ServiceException, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, day, exception_type, service_period_id
		FROM service_exceptions
		WHERE day = ?
		ORDER BY id`, day)
	if err != nil {
		return nil, fmt.Errorf("service exceptions query: %w", err)
	}
	defer rows.Close()

	var exceptions []ServiceException
	for rows.Next() {
		var ex ServiceException
		if err := rows.Scan(&ex.ID, &ex.Day, &ex.ExceptionType, &ex.ServicePeriodID); err != nil {
			return nil, fmt.Errorf("scan service exception: %w", err)
		}
		exceptions = append(exceptions, ex)
	}
	return exceptions, rows.Err()
}

const stopColumns = `id, label, number, name, lat, lon`

func scanStop(row interface{ Scan(...any) error }) (*Stop, error) {
	var s Stop
	if err := row.Scan(&s.ID, &s.Label, &s.Number, &s.Name, &s.Lat, &s.Lon); err != nil {
		return nil, err
	}
	return &s, nil
}

func (db *DB) queryStop(ctx context.Context, where string, arg any) (*Stop, error) {
	s, err := scanStop(db.QueryRowContext(ctx,
		`SELECT `+stopColumns+` FROM stops WHERE `+where+` ORDER BY id LIMIT 1`, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stop query: %w", err)
	}
	return s, nil
}

func (db *DB) queryStops(ctx context.Context, query string, args ...any) ([]Stop, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("stops query: %w", err)
	}
	defer rows.Close()

	var stops []Stop
	for rows.Next() {
		s, err := scanStop(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stop: %w", err)
		}
		stops = append(stops, *s)
	}
	return stops, rows.Err()
}

// Stop returns the stop with the given id, or nil if absent.
func (db *DB) Stop(ctx context.Context, id int64) (*Stop, error) {
	return db.queryStop(ctx, `id = ?`, id)
}

// StopByNumber returns the lowest-id stop carrying the rider-facing number, or nil.
func (db *DB) StopByNumber(ctx context.Context, number int) (*Stop, error) {
	if number == 0 {
		return nil, nil
	}
	return db.queryStop(ctx, `number = ?`, number)
}

// StopByLabel returns the stop with the external label, or nil.
func (db *DB) StopByLabel(ctx context.Context, label string) (*Stop, error) {
	return db.queryStop(ctx, `label = ?`, label)
}

// AllStops returns every stop in id order.
func (db *DB) AllStops(ctx context.Context) ([]Stop, error) {
	return db.queryStops(ctx, `SELECT `+stopColumns+` FROM stops ORDER BY id`)
}

// StopsAtIntersection returns stops whose upper-cased name contains "A/B" or "B/A".
// Both names are matched literally after upper-casing.
func (db *DB) StopsAtIntersection(ctx context.Context, a, b string) ([]Stop, error) {
	a, b = strings.ToUpper(a), strings.ToUpper(b)
	return db.queryStops(ctx, `
		SELECT `+stopColumns+` FROM stops
		WHERE instr(UPPER(name), ?) > 0 OR instr(UPPER(name), ?) > 0
		ORDER BY id`, a+"/"+b, b+"/"+a)
}

// StopsByNumber returns stops with the rider-facing number.
func (db *DB) StopsByNumber(ctx context.Context, number int) ([]Stop, error) {
	return db.queryStops(ctx,
		`SELECT `+stopColumns+` FROM stops WHERE number = ? ORDER BY id`, number)
}

// StopsByLabel returns stops whose label equals label, ignoring case.
func (db *DB) StopsByLabel(ctx context.Context, label string) ([]Stop, error) {
	return db.queryStops(ctx,
		`SELECT `+stopColumns+` FROM stops WHERE UPPER(label) = ? ORDER BY id`,
		strings.ToUpper(label))
}

// StopsByName returns stops whose name contains fragment, ignoring case.
func (db *DB) StopsByName(ctx context.Context, fragment string) ([]Stop, error) {
	return db.queryStops(ctx,
		`SELECT `+stopColumns+` FROM stops WHERE instr(UPPER(name), ?) > 0 ORDER BY id`,
		strings.ToUpper(fragment))
}

// StopsInBox returns stops inside a lat/lon bounding box.
// The caller refines distances with Haversine.
func (db *DB) StopsInBox(ctx context.Context, minLat, maxLat, minLon, maxLon float64) ([]Stop, error) {
	return db.queryStops(ctx, `
		SELECT `+stopColumns+` FROM stops
		WHERE lat BETWEEN ? AND ? AND lon BETWEEN ? AND ?
		ORDER BY id`, minLat, maxLat, minLon, maxLon)
}

// UpdateStopNumber sets the rider-facing number of one stop.
// It reports whether a stop with that id existed.
func (db *DB) UpdateStopNumber(ctx context.Context, stopID int64, number int) (bool, error) {
	res, err := db.ExecContext(ctx, `UPDATE stops SET number = ? WHERE id = ?`, number, stopID)
	if err != nil {
		return false, fmt.Errorf("update stop %d: %w", stopID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateStopNumbers applies a batch of number updates in one transaction.
func (db *DB) UpdateStopNumbers(ctx context.Context, updates []StopNumber) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE stops SET number = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("prepare update: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.ExecContext(ctx, u.Number, u.StopID); err != nil {
			return fmt.Errorf("update stop %d: %w", u.StopID, err)
		}
	}
	return tx.Commit()
}

// NumberStats summarizes rider-facing number coverage.
type NumberStats struct {
	Total    int
	Numbered int
}

// StopNumberStats counts stops with and without a rider-facing number.
func (db *DB) StopNumberStats(ctx context.Context) (NumberStats, error) {
	var st NumberStats
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(number <> 0), 0) FROM stops`).
		Scan(&st.Total, &st.Numbered)
	if err != nil {
		return st, fmt.Errorf("stop number stats: %w", err)
	}
	return st, nil
}

// Route returns the route with the given id, or nil.
func (db *DB) Route(ctx context.Context, id int64) (*Route, error) {
	var r Route
	err := db.QueryRowContext(ctx,
		`SELECT id, label, name, route_type FROM routes WHERE id = ?`, id).
		Scan(&r.ID, &r.Label, &r.Name, &r.RouteType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("route %d: %w", id, err)
	}
	return &r, nil
}

// Trip returns the trip with the given id, or nil.
func (db *DB) Trip(ctx context.Context, id int64) (*Trip, error) {
	var t Trip
	err := db.QueryRowContext(ctx, `
		SELECT id, headsign, block, route_id, service_period_id
		FROM trips WHERE id = ?`, id).
		Scan(&t.ID, &t.Headsign, &t.Block, &t.RouteID, &t.ServicePeriodID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("trip %d: %w", id, err)
	}
	return &t, nil
}
