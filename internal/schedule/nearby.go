package schedule

import (
	"context"
	"sort"

	"transitdb/internal/geo"
	"transitdb/internal/storage"
)

// NearbyStop is a stop and its distance from a query point in whole meters.
type NearbyStop struct {
	Distance int
	Stop     storage.Stop
}

// Nearby returns stops within meters of the point, nearest first. The stop with id
// ignore is left out; pass 0 to keep every stop.
func (e *Engine) Nearby(ctx context.Context, lat, lon, meters float64, ignore int64) ([]NearbyStop, error) {
	b := geo.BoundingBox(lat, lon, meters)
	stops, err := e.db.StopsInBox(ctx, b.MinLat, b.MaxLat, b.MinLon, b.MaxLon)
	if err != nil {
		return nil, err
	}

	var out []NearbyStop
	for _, s := range stops {
		if s.ID == ignore {
			continue
		}
		d := geo.Haversine(lat, lon, s.Lat, s.Lon)
		if d <= meters {
			out = append(out, NearbyStop{Distance: int(d), Stop: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out, nil
}

// Closest returns the stop nearest the point, or nil when there is none.
func (e *Engine) Closest(ctx context.Context, lat, lon float64, ignore int64) (*NearbyStop, error) {
	stops, err := e.db.AllStops(ctx)
	if err != nil {
		return nil, err
	}

	var best *NearbyStop
	var bestDist float64
	for _, s := range stops {
		if s.ID == ignore {
			continue
		}
		d := geo.Haversine(lat, lon, s.Lat, s.Lon)
		if best == nil || d < bestDist {
			best = &NearbyStop{Distance: int(d), Stop: s}
			bestDist = d
		}
	}
	return best, nil
}
