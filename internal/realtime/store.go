package realtime

import (
	"sync"
)

// Alert is a service alert. RouteIDs and StopIDs hold feed identifiers, which match
// the stored route and stop labels.
type Alert struct {
	ID         string   `json:"id"`
	HeaderText string   `json:"header"`
	DescText   string   `json:"description,omitempty"`
	RouteIDs   []string `json:"routes,omitempty"`
	StopIDs    []string `json:"stops,omitempty"`
	Effect     string   `json:"effect"` // "NO_SERVICE", "REDUCED_SERVICE", "DETOUR", etc.
	Cause      string   `json:"cause"`
}

// Store holds the latest alerts for concurrent readers.
type Store struct {
	mu     sync.RWMutex
	alerts []Alert
}

func NewStore() *Store {
	return &Store{}
}

// SetAlerts replaces all alerts.
func (s *Store) SetAlerts(alerts []Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = alerts
}

// AlertsFor returns alerts naming the stop label or any of the route labels, in
// feed order, each at most once.
func (s *Store) AlertsFor(stopLabel string, routeLabels []string) []Alert {
	routes := make(map[string]bool, len(routeLabels))
	for _, r := range routeLabels {
		routes[r] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Alert
	for _, a := range s.alerts {
		if matches(a, stopLabel, routes) {
			result = append(result, a)
		}
	}
	return result
}

func matches(a Alert, stopLabel string, routes map[string]bool) bool {
	for _, sid := range a.StopIDs {
		if sid == stopLabel {
			return true
		}
	}
	for _, rid := range a.RouteIDs {
		if routes[rid] {
			return true
		}
	}
	return false
}

// AlertsForRoute returns alerts affecting a route label.
func (s *Store) AlertsForRoute(routeLabel string) []Alert {
	return s.AlertsFor("", []string{routeLabel})
}

// AlertsForStop returns alerts affecting a stop label.
func (s *Store) AlertsForStop(stopLabel string) []Alert {
	return s.AlertsFor(stopLabel, nil)
}

// AllAlerts returns all active alerts.
func (s *Store) AllAlerts() []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}
