package schedule

import (
	"context"
	"sort"

	"transitdb/internal/gtfstime"
)

// RouteService summarizes one route and headsign serving a stop.
type RouteService struct {
	Label    string
	Route    string
	Headsign string
	Arrivals []int
	Days     []string
}

// RoutesAtStop groups the stop's pickups by route and headsign, ordered by route name
// then headsign. With inService set, only trips of the current service period count.
func (e *Engine) RoutesAtStop(ctx context.Context, stopID int64, inService bool) ([]RouteService, error) {
	var currentID int64
	if inService {
		sp, err := e.CurrentServicePeriod(ctx)
		if err != nil {
			return nil, err
		}
		if sp == nil {
			return nil, nil
		}
		currentID = sp.ID
	}

	visits, err := e.db.StopVisits(ctx, stopID)
	if err != nil {
		return nil, err
	}

	var out []RouteService
	var days []gtfstime.Weekdays
	index := make(map[string]int)
	for _, v := range visits {
		if inService && v.ServicePeriodID != currentID {
			continue
		}
		key := v.RouteName + " " + v.Headsign
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, RouteService{Label: v.RouteLabel, Route: v.RouteName, Headsign: v.Headsign})
			days = append(days, 0)
		}
		out[i].Arrivals = append(out[i].Arrivals, v.Arrival)
		days[i] |= gtfstime.Weekdays(v.Days)
	}
	for i := range out {
		sort.Ints(out[i].Arrivals)
		out[i].Days = days[i].Names()
	}
	return out, nil
}
