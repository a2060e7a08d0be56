package gtfs

import (
	"context"
	"fmt"
	"strconv"

	"transitdb/internal/gtfstime"
	"transitdb/internal/storage"
)

// handler ingests one record, resolving references through res.
type handler func(ctx context.Context, in *storage.Inserter, res *Resolver, rec record) error

// entityFile describes one feed file and how its records are stored.
type entityFile struct {
	name     string
	entity   string
	required []string
	handle   handler
}

var dayColumns = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// feedFiles lists the feed files in dependency order.
var feedFiles = []entityFile{
	{
		name:     "calendar.txt",
		entity:   ServicePeriods,
		required: append(append([]string{"service_id"}, dayColumns...), "start_date", "end_date"),
		handle:   addServicePeriod,
	},
	{
		name:     "calendar_dates.txt",
		entity:   ServiceExceptions,
		required: []string{"service_id", "date", "exception_type"},
		handle:   addServiceException,
	},
	{
		name:     "stops.txt",
		entity:   Stops,
		required: []string{"stop_id", "stop_name"},
		handle:   addStop,
	},
	{
		name:     "routes.txt",
		entity:   Routes,
		required: []string{"route_id", "route_short_name"},
		handle:   addRoute,
	},
	{
		name:     "trips.txt",
		entity:   Trips,
		required: []string{"route_id", "service_id", "trip_id"},
		handle:   addTrip,
	},
	{
		name:     "stop_times.txt",
		entity:   Pickups,
		required: []string{"trip_id", "arrival_time", "departure_time", "stop_id", "stop_sequence"},
		handle:   addPickup,
	},
}

func addServicePeriod(ctx context.Context, in *storage.Inserter, res *Resolver, rec record) error {
	var flags [7]bool
	for i, col := range dayColumns {
		switch v := rec.get(col); v {
		case "0":
		case "1":
			flags[i] = true
		default:
			return fmt.Errorf("%s: want 0 or 1, got %q", col, v)
		}
	}
	start, err := feedDate(rec, "start_date")
	if err != nil {
		return err
	}
	finish, err := feedDate(rec, "end_date")
	if err != nil {
		return err
	}
	id, err := in.ServicePeriod(ctx, storage.ServicePeriod{
		Days:   gtfstime.FromFlags(flags),
		Start:  start,
		Finish: finish,
	})
	if err != nil {
		return err
	}
	res.Put(ServicePeriods, rec.get("service_id"), id)
	return nil
}

func addServiceException(ctx context.Context, in *storage.Inserter, res *Resolver, rec record) error {
	periodID, err := res.Lookup(ServicePeriods, rec.get("service_id"))
	if err != nil {
		return err
	}
	day, err := feedDate(rec, "date")
	if err != nil {
		return err
	}
	kind, err := intField(rec, "exception_type")
	if err != nil {
		return err
	}
	if kind != storage.ExceptionAdded && kind != storage.ExceptionRemoved {
		return fmt.Errorf("exception_type: want 1 or 2, got %d", kind)
	}
	_, err = in.ServiceException(ctx, storage.ServiceException{
		Day:             day,
		ExceptionType:   kind,
		ServicePeriodID: periodID,
	})
	return err
}

func addStop(ctx context.Context, in *storage.Inserter, res *Resolver, rec record) error {
	number, err := intField(rec, "stop_code")
	if err != nil {
		return err
	}
	lat, err := floatField(rec, "stop_lat")
	if err != nil {
		return err
	}
	lon, err := floatField(rec, "stop_lon")
	if err != nil {
		return err
	}
	label := rec.get("stop_id")
	id, err := in.Stop(ctx, storage.Stop{
		Label:  label,
		Number: number,
		Name:   rec.get("stop_name"),
		Lat:    lat,
		Lon:    lon,
	})
	if err != nil {
		return err
	}
	res.Put(Stops, label, id)
	return nil
}

func addRoute(ctx context.Context, in *storage.Inserter, res *Resolver, rec record) error {
	routeType, err := intField(rec, "route_type")
	if err != nil {
		return err
	}
	name := rec.get("route_short_name")
	if name == "" {
		name = rec.get("route_long_name")
	}
	label := rec.get("route_id")
	id, err := in.Route(ctx, storage.Route{Label: label, Name: name, RouteType: routeType})
	if err != nil {
		return err
	}
	res.Put(Routes, label, id)
	return nil
}

func addTrip(ctx context.Context, in *storage.Inserter, res *Resolver, rec record) error {
	routeID, err := res.Lookup(Routes, rec.get("route_id"))
	if err != nil {
		return err
	}
	periodID, err := res.Lookup(ServicePeriods, rec.get("service_id"))
	if err != nil {
		return err
	}
	block, err := intField(rec, "block_id")
	if err != nil {
		return err
	}
	id, err := in.Trip(ctx, storage.Trip{
		Headsign:        rec.get("trip_headsign"),
		Block:           block,
		RouteID:         routeID,
		ServicePeriodID: periodID,
	})
	if err != nil {
		return err
	}
	res.Put(Trips, rec.get("trip_id"), id)
	return nil
}

func addPickup(ctx context.Context, in *storage.Inserter, res *Resolver, rec record) error {
	tripID, err := res.Lookup(Trips, rec.get("trip_id"))
	if err != nil {
		return err
	}
	stopID, err := res.Lookup(Stops, rec.get("stop_id"))
	if err != nil {
		return err
	}
	arrival, err := gtfstime.ToSeconds(rec.get("arrival_time"))
	if err != nil {
		return fmt.Errorf("arrival_time: %w", err)
	}
	departure, err := gtfstime.ToSeconds(rec.get("departure_time"))
	if err != nil {
		return fmt.Errorf("departure_time: %w", err)
	}
	seq := rec.get("stop_sequence")
	sequence, err := strconv.Atoi(seq)
	if err != nil {
		return fmt.Errorf("stop_sequence: not a number: %q", seq)
	}
	_, err = in.Pickup(ctx, storage.Pickup{
		Arrival:   arrival,
		Departure: departure,
		Sequence:  sequence,
		TripID:    tripID,
		StopID:    stopID,
	})
	return err
}

// intField parses an integer column; an empty value reads as 0.
func intField(rec record, col string) (int, error) {
	v := rec.get(col)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: not a number: %q", col, v)
	}
	return n, nil
}

// floatField parses a decimal column; an empty value reads as 0.
func floatField(rec record, col string) (float64, error) {
	v := rec.get(col)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: not a number: %q", col, v)
	}
	return f, nil
}

func feedDate(rec record, col string) (string, error) {
	d, err := gtfstime.ParseDate(rec.get(col))
	if err != nil {
		return "", fmt.Errorf("%s: %w", col, err)
	}
	return gtfstime.FormatDate(d), nil
}
