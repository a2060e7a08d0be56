package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Inserter adds rows inside a single transaction, reusing one prepared
// statement per table. Generated row ids are returned to the caller.
type Inserter struct {
	tx    *sql.Tx
	stmts map[string]*sql.Stmt
}

// BeginInsert starts a transaction for loading rows.
func (db *DB) BeginInsert(ctx context.Context) (*Inserter, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Inserter{tx: tx, stmts: make(map[string]*sql.Stmt)}, nil
}

const (
	insertServicePeriod    = `INSERT INTO service_periods (days, start, finish) VALUES (?, ?, ?)`
	insertServiceException = `INSERT INTO service_exceptions (day, exception_type, service_period_id) VALUES (?, ?, ?)`
	insertStop             = `INSERT INTO stops (label, number, name, lat, lon) VALUES (?, ?, ?, ?, ?)`
	insertRoute            = `INSERT INTO routes (label, name, route_type) VALUES (?, ?, ?)`
	insertTrip             = `INSERT INTO trips (headsign, block, route_id, service_period_id) VALUES (?, ?, ?, ?)`
	insertPickup           = `INSERT INTO pickups (arrival, departure, sequence, trip_id, stop_id) VALUES (?, ?, ?, ?, ?)`
	insertVersion          = `INSERT INTO versions (api_version, feed_version) VALUES (?, ?)`
)

func (in *Inserter) exec(ctx context.Context, query string, args ...any) (int64, error) {
	stmt, ok := in.stmts[query]
	if !ok {
		var err error
		stmt, err = in.tx.PrepareContext(ctx, query)
		if err != nil {
			return 0, fmt.Errorf("prepare: %w", err)
		}
		in.stmts[query] = stmt
	}
	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (in *Inserter) ServicePeriod(ctx context.Context, sp ServicePeriod) (int64, error) {
	id, err := in.exec(ctx, insertServicePeriod, int(sp.Days), sp.Start, sp.Finish)
	if err != nil {
		return 0, fmt.Errorf("insert service period: %w", err)
	}
	return id, nil
}

func (in *Inserter) ServiceException(ctx context.Context, ex ServiceException) (int64, error) {
	id, err := in.exec(ctx, insertServiceException, ex.Day, ex.ExceptionType, ex.ServicePeriodID)
	if err != nil {
		return 0, fmt.Errorf("insert service exception: %w", err)
	}
	return id, nil
}

func (in *Inserter) Stop(ctx context.Context, s Stop) (int64, error) {
	id, err := in.exec(ctx, insertStop, s.Label, s.Number, s.Name, s.Lat, s.Lon)
	if err != nil {
		return 0, fmt.Errorf("insert stop %s: %w", s.Label, err)
	}
	return id, nil
}

func (in *Inserter) Route(ctx context.Context, r Route) (int64, error) {
	id, err := in.exec(ctx, insertRoute, r.Label, r.Name, r.RouteType)
	if err != nil {
		return 0, fmt.Errorf("insert route %s: %w", r.Name, err)
	}
	return id, nil
}

func (in *Inserter) Trip(ctx context.Context, t Trip) (int64, error) {
	id, err := in.exec(ctx, insertTrip, t.Headsign, t.Block, t.RouteID, t.ServicePeriodID)
	if err != nil {
		return 0, fmt.Errorf("insert trip: %w", err)
	}
	return id, nil
}

func (in *Inserter) Pickup(ctx context.Context, p Pickup) (int64, error) {
	id, err := in.exec(ctx, insertPickup, p.Arrival, p.Departure, p.Sequence, p.TripID, p.StopID)
	if err != nil {
		return 0, fmt.Errorf("insert pickup: %w", err)
	}
	return id, nil
}

func (in *Inserter) Version(ctx context.Context, v Version) error {
	if _, err := in.exec(ctx, insertVersion, v.APIVersion, v.FeedVersion); err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	return nil
}

// SetMetadata stores a key-value pair in the feed_metadata table.
func (in *Inserter) SetMetadata(ctx context.Context, key, value string) error {
	if _, err := in.tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO feed_metadata (key, value) VALUES (?, ?)`, key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Commit closes the prepared statements and commits the transaction.
func (in *Inserter) Commit() error {
	in.closeStmts()
	if err := in.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback abandons the transaction. Safe to defer after Commit.
func (in *Inserter) Rollback() {
	in.closeStmts()
	in.tx.Rollback() // nolint:errcheck
}

func (in *Inserter) closeStmts() {
	for q, stmt := range in.stmts {
		stmt.Close()
		delete(in.stmts, q)
	}
}
