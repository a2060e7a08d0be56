package storage

import (
	"context"
	"database/sql"
	"fmt"
)

const pickupColumns = `p.id, p.arrival, p.departure, p.sequence, p.trip_id, p.stop_id`

func (db *DB) queryPickups(ctx context.Context, query string, args ...any) ([]Pickup, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pickups query: %w", err)
	}
	defer rows.Close()

	var pickups []Pickup
	for rows.Next() {
		var p Pickup
		if err := rows.Scan(&p.ID, &p.Arrival, &p.Departure, &p.Sequence, &p.TripID, &p.StopID); err != nil {
			return nil, fmt.Errorf("scan pickup: %w", err)
		}
		pickups = append(pickups, p)
	}
	return pickups, rows.Err()
}

// PickupsAtStopInWindow returns the stop's pickups on trips of the service period whose
// arrival lies in [from, to], ascending by arrival then id.
func (db *DB) PickupsAtStopInWindow(ctx context.Context, stopID, periodID int64, from, to int) ([]Pickup, error) {
	return db.queryPickups(ctx, `
		SELECT `+pickupColumns+`
		FROM pickups p
		JOIN trips t ON t.id = p.trip_id
		WHERE p.stop_id = ?
		  AND t.service_period_id = ?
		  AND p.arrival BETWEEN ? AND ?
		ORDER BY p.arrival, p.id`,
		stopID, periodID, from, to)
}

// PickupsForStop returns every pickup at the stop, ascending by arrival then id.
func (db *DB) PickupsForStop(ctx context.Context, stopID int64) ([]Pickup, error) {
	return db.queryPickups(ctx, `
		SELECT `+pickupColumns+`
		FROM pickups p
		WHERE p.stop_id = ?
		ORDER BY p.arrival, p.id`, stopID)
}

// PickupsForTrip returns the trip's pickups in sequence order.
func (db *DB) PickupsForTrip(ctx context.Context, tripID int64) ([]Pickup, error) {
	return db.queryPickups(ctx, `
		SELECT `+pickupColumns+`
		FROM pickups p
		WHERE p.trip_id = ?
		ORDER BY p.sequence`, tripID)
}

// PickupsFromTime returns up to limit pickups of the trip arriving at or after threshold,
// in sequence order.
func (db *DB) PickupsFromTime(ctx context.Context, tripID int64, threshold, limit int) ([]Pickup, error) {
	return db.queryPickups(ctx, `
		SELECT `+pickupColumns+`
		FROM pickups p
		WHERE p.trip_id = ? AND p.arrival >= ?
		ORDER BY p.sequence
		LIMIT ?`, tripID, threshold, limit)
}

// PickupsAfterSequence returns up to limit pickups of the trip with a greater sequence.
func (db *DB) PickupsAfterSequence(ctx context.Context, tripID int64, sequence, limit int) ([]Pickup, error) {
	return db.queryPickups(ctx, `
		SELECT `+pickupColumns+`
		FROM pickups p
		WHERE p.trip_id = ? AND p.sequence > ?
		ORDER BY p.sequence
		LIMIT ?`, tripID, sequence, limit)
}

// PickupsInSequenceRange returns the trip's pickups with from < sequence <= to.
func (db *DB) PickupsInSequenceRange(ctx context.Context, tripID int64, from, to int) ([]Pickup, error) {
	return db.queryPickups(ctx, `
		SELECT `+pickupColumns+`
		FROM pickups p
		WHERE p.trip_id = ? AND p.sequence > ? AND p.sequence <= ?
		ORDER BY p.sequence`, tripID, from, to)
}

// PickupByTripSequence returns the trip's pickup at sequence, or nil.
func (db *DB) PickupByTripSequence(ctx context.Context, tripID int64, sequence int) (*Pickup, error) {
	var p Pickup
	err := db.QueryRowContext(ctx, `
		SELECT `+pickupColumns+`
		FROM pickups p
		WHERE p.trip_id = ? AND p.sequence = ?
		ORDER BY p.id LIMIT 1`, tripID, sequence).
		Scan(&p.ID, &p.Arrival, &p.Departure, &p.Sequence, &p.TripID, &p.StopID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pickup query: %w", err)
	}
	return &p, nil
}

// StopVisit is one pickup at a stop joined with its trip's route and service period.
type StopVisit struct {
	RouteID         int64
	RouteLabel      string
	RouteName       string
	Headsign        string
	Arrival         int
	ServicePeriodID int64
	Days            int
}

// StopVisits returns every visit to the stop ordered by route, headsign and arrival.
func (db *DB) StopVisits(ctx context.Context, stopID int64) ([]StopVisit, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT r.id, r.label, r.name, t.headsign, p.arrival, sp.id, sp.days
		FROM pickups p
		JOIN trips t ON t.id = p.trip_id
		JOIN routes r ON r.id = t.route_id
		JOIN service_periods sp ON sp.id = t.service_period_id
		WHERE p.stop_id = ?
		ORDER BY r.name, t.headsign, p.arrival`, stopID)
	if err != nil {
		return nil, fmt.Errorf("stop visits query: %w", err)
	}
	defer rows.Close()

	var visits []StopVisit
	for rows.Next() {
		var v StopVisit
		if err := rows.Scan(&v.RouteID, &v.RouteLabel, &v.RouteName, &v.Headsign, &v.Arrival,
			&v.ServicePeriodID, &v.Days); err != nil {
			return nil, fmt.Errorf("scan stop visit: %w", err)
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}
