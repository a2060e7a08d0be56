package schedule

import (
	"context"

	"transitdb/internal/gtfstime"
	"transitdb/internal/storage"
)

// LookBehind is how far before now upcoming pickups are still reported, in seconds.
const LookBehind = 5 * 60

// Window returns the inclusive arrival window [now-LookBehind, now+minutes].
// Times are seconds since local midnight; a window near midnight is not carried
// into the next or previous service day.
func Window(now, minutes int) (from, to int) {
	return now - LookBehind, now + minutes*60
}

// UpcomingPickups returns the stop's pickups in the current service period arriving
// within the look-ahead window, ascending by arrival. With no current period the
// result is empty.
func (e *Engine) UpcomingPickups(ctx context.Context, stopID int64, minutes int) ([]storage.Pickup, error) {
	now := e.Now()
	sp, err := e.ServicePeriodOn(ctx, now)
	if err != nil || sp == nil {
		return nil, err
	}
	from, to := Window(gtfstime.ElapsedSeconds(now), minutes)
	return e.db.PickupsAtStopInWindow(ctx, stopID, sp.ID, from, to)
}

// NextPickups returns up to limit of the trip's pickups in sequence order whose
// arrival is at or after now minus offset seconds.
func (e *Engine) NextPickups(ctx context.Context, tripID int64, limit, offset int) ([]storage.Pickup, error) {
	if limit <= 0 {
		return nil, nil
	}
	return e.db.PickupsFromTime(ctx, tripID, e.elapsed()-offset, limit)
}

// PickupsAfter returns up to limit pickups following p on its trip.
func (e *Engine) PickupsAfter(ctx context.Context, p storage.Pickup, limit int) ([]storage.Pickup, error) {
	return e.db.PickupsAfterSequence(ctx, p.TripID, p.Sequence, limit)
}

// IsLastPickup reports whether no pickup follows p on its trip.
func (e *Engine) IsLastPickup(ctx context.Context, p storage.Pickup) (bool, error) {
	next, err := e.PickupsAfter(ctx, p, 1)
	if err != nil {
		return false, err
	}
	return len(next) == 0, nil
}

// Destinations returns the pickups of the trip with sequence in (sequence, sequence+span].
func (e *Engine) Destinations(ctx context.Context, tripID int64, sequence, span int) ([]storage.Pickup, error) {
	return e.db.PickupsInSequenceRange(ctx, tripID, sequence, sequence+span)
}

// PickupDetail is a pickup with the stop, trip and route it belongs to.
type PickupDetail struct {
	storage.Pickup
	Stop  *storage.Stop
	Trip  *storage.Trip
	Route *storage.Route
	Last  bool
}

// Describe resolves the entities a pickup refers to.
func (e *Engine) Describe(ctx context.Context, p storage.Pickup) (*PickupDetail, error) {
	d := &PickupDetail{Pickup: p}
	var err error
	if d.Stop, err = e.db.Stop(ctx, p.StopID); err != nil {
		return nil, err
	}
	if d.Trip, err = e.db.Trip(ctx, p.TripID); err != nil {
		return nil, err
	}
	if d.Trip != nil {
		if d.Route, err = e.db.Route(ctx, d.Trip.RouteID); err != nil {
			return nil, err
		}
	}
	if d.Last, err = e.IsLastPickup(ctx, p); err != nil {
		return nil, err
	}
	return d, nil
}
