package handler

import (
	"transitdb/internal/gtfstime"
	"transitdb/internal/realtime"
	"transitdb/internal/schedule"
	"transitdb/internal/storage"
)

type stopView struct {
	ID     int64   `json:"id"`
	Label  string  `json:"label"`
	Number int     `json:"number"`
	Name   string  `json:"name"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

func newStopView(s storage.Stop) stopView {
	return stopView{ID: s.ID, Label: s.Label, Number: s.Number, Name: s.Name, Lat: s.Lat, Lon: s.Lon}
}

func newStopViews(stops []storage.Stop) []stopView {
	out := make([]stopView, 0, len(stops))
	for _, s := range stops {
		out = append(out, newStopView(s))
	}
	return out
}

type nearbyView struct {
	Distance int      `json:"distance"`
	Stop     stopView `json:"stop"`
}

func newNearbyViews(stops []schedule.NearbyStop) []nearbyView {
	out := make([]nearbyView, 0, len(stops))
	for _, n := range stops {
		out = append(out, nearbyView{Distance: n.Distance, Stop: newStopView(n.Stop)})
	}
	return out
}

type servicePeriodView struct {
	ID     int64    `json:"id"`
	Start  string   `json:"start"`
	Finish string   `json:"finish"`
	Days   []string `json:"days"`
}

func newServicePeriodView(sp *storage.ServicePeriod) servicePeriodView {
	return servicePeriodView{ID: sp.ID, Start: sp.Start, Finish: sp.Finish, Days: sp.Days.Names()}
}

type routeView struct {
	Route struct {
		Number   string `json:"number"`
		Headsign string `json:"headsign"`
	} `json:"route"`
	Arrivals []int    `json:"arrivals"`
	Days     []string `json:"days"`
}

func newRouteViews(services []schedule.RouteService) []routeView {
	out := make([]routeView, 0, len(services))
	for _, s := range services {
		var v routeView
		v.Route.Number = s.Route
		v.Route.Headsign = s.Headsign
		v.Arrivals = s.Arrivals
		v.Days = s.Days
		out = append(out, v)
	}
	return out
}

type pickupStopView struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

type pickupTripView struct {
	ID       int64  `json:"id"`
	Route    string `json:"route"`
	Headsign string `json:"headsign"`
}

type pickupView struct {
	Stop        pickupStopView `json:"stop"`
	Trip        pickupTripView `json:"trip"`
	Arrival     int            `json:"arrival"`
	ArrivalTime string         `json:"arrival_time"`
	Departure   int            `json:"departure"`
	Sequence    int            `json:"sequence"`
	Minutes     int            `json:"minutes"`
	Last        bool           `json:"last"`
}

// newPickupView flattens a described pickup. now is seconds since local midnight.
func newPickupView(d *schedule.PickupDetail, now int) pickupView {
	v := pickupView{
		Arrival:     d.Arrival,
		ArrivalTime: gtfstime.ToText(d.Arrival),
		Departure:   d.Departure,
		Sequence:    d.Sequence,
		Minutes:     minutesUntil(d.Arrival, now),
		Last:        d.Last,
	}
	if d.Stop != nil {
		v.Stop = pickupStopView{Number: d.Stop.Number, Name: d.Stop.Name}
	}
	if d.Trip != nil {
		v.Trip = pickupTripView{ID: d.Trip.ID, Headsign: d.Trip.Headsign}
	}
	if d.Route != nil {
		v.Trip.Route = d.Route.Name
	}
	return v
}

// minutesUntil returns whole minutes from now until arrival, or 0 once it has passed.
func minutesUntil(arrival, now int) int {
	if arrival <= now {
		return 0
	}
	return (arrival - now) / 60
}

type versionView struct {
	API  int `json:"api"`
	Feed int `json:"feed"`
}

type alertsView struct {
	Alerts []realtime.Alert `json:"alerts"`
}
