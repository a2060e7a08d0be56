package storage

import (
	"time"

	"transitdb/internal/gtfstime"
)

// Exception types from calendar_dates.txt.
const (
	ExceptionAdded   = 1
	ExceptionRemoved = 2
)

// ServicePeriod is a weekly service pattern valid over an inclusive date range.
type ServicePeriod struct {
	ID     int64
	Days   gtfstime.Weekdays
	Start  string // YYYYMMDD, inclusive
	Finish string // YYYYMMDD, inclusive
}

// Covers reports whether day falls inside the period's date range.
func (sp *ServicePeriod) Covers(day time.Time) bool {
	d := gtfstime.FormatDate(day)
	return sp.Start <= d && d <= sp.Finish
}

// RunsOn reports whether the period has service on day: the weekday bit is set
// and the date is in range.
func (sp *ServicePeriod) RunsOn(day time.Time) bool {
	return sp.Days.Has(day.Weekday()) && sp.Covers(day)
}

// ServiceException adds or removes service for one period on one date.
type ServiceException struct {
	ID              int64
	Day             string // YYYYMMDD
	ExceptionType   int
	ServicePeriodID int64
}

type Stop struct {
	ID     int64
	Label  string // stop_id in the feed
	Number int    // rider-facing stop number, 0 when unassigned
	Name   string
	Lat    float64
	Lon    float64
}

type Route struct {
	ID        int64
	Label     string // route_id in the feed
	Name      string
	RouteType int
}

type Trip struct {
	ID              int64
	Headsign        string
	Block           int
	RouteID         int64
	ServicePeriodID int64
}

// Pickup is one scheduled visit of a trip to a stop.
type Pickup struct {
	ID        int64
	Arrival   int // seconds since service-day start
	Departure int
	Sequence  int
	TripID    int64
	StopID    int64
}

// StopNumber pairs a stop with its rider-facing number for batch updates.
type StopNumber struct {
	StopID int64
	Number int
}

// Version describes the API schema and feed the store was built from.
type Version struct {
	APIVersion  int
	FeedVersion int
}
