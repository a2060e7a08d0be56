// Package schedule answers read-only schedule questions against an imported store:
// which service period runs today, which stops match a search, and which pickups
// are coming up at a stop or along a trip.
package schedule

import (
	"context"
	"time"

	"transitdb/internal/gtfstime"
	"transitdb/internal/storage"
)

// Engine runs schedule queries. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	db  *storage.DB
	loc *time.Location
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine whose notion of "today" and "now" is taken in loc.
func New(db *storage.DB, loc *time.Location, opts ...Option) *Engine {
	if loc == nil {
		loc = time.Local
	}
	e := &Engine{db: db, loc: loc, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Now returns the current time in the engine's location.
func (e *Engine) Now() time.Time {
	return e.now().In(e.loc)
}

// elapsed returns the seconds since local midnight.
func (e *Engine) elapsed() int {
	return gtfstime.ElapsedSeconds(e.Now())
}

func (e *Engine) Stop(ctx context.Context, id int64) (*storage.Stop, error) {
	return e.db.Stop(ctx, id)
}

func (e *Engine) StopByNumber(ctx context.Context, number int) (*storage.Stop, error) {
	return e.db.StopByNumber(ctx, number)
}

func (e *Engine) AllStops(ctx context.Context) ([]storage.Stop, error) {
	return e.db.AllStops(ctx)
}

func (e *Engine) Trip(ctx context.Context, id int64) (*storage.Trip, error) {
	return e.db.Trip(ctx, id)
}

func (e *Engine) Route(ctx context.Context, id int64) (*storage.Route, error) {
	return e.db.Route(ctx, id)
}

func (e *Engine) ServicePeriods(ctx context.Context) ([]storage.ServicePeriod, error) {
	return e.db.ServicePeriods(ctx)
}

func (e *Engine) ServicePeriod(ctx context.Context, id int64) (*storage.ServicePeriod, error) {
	return e.db.ServicePeriod(ctx, id)
}

func (e *Engine) StopNumberStats(ctx context.Context) (storage.NumberStats, error) {
	return e.db.StopNumberStats(ctx)
}

func (e *Engine) Version(ctx context.Context) (*storage.Version, error) {
	return e.db.Version(ctx)
}
