package handler

import (
	"net/http"
)

// StopAlerts lists realtime alerts naming the stop or any route that serves it.
func (h *Handler) StopAlerts(w http.ResponseWriter, r *http.Request) {
	stop := h.stopByNumber(w, r, "number")
	if stop == nil {
		return
	}
	services, err := h.engine.RoutesAtStop(r.Context(), stop.ID, false)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	routes := make([]string, 0, len(services))
	for _, s := range services {
		routes = append(routes, s.Label)
	}
	writeJSON(w, http.StatusOK, alertsView{Alerts: h.alerts.AlertsFor(stop.Label, routes)})
}

// Alerts lists every active realtime alert.
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, alertsView{Alerts: h.alerts.AllAlerts()})
}

// Version reports the API schema and feed version the store was built with.
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	v, err := h.engine.Version(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if v == nil {
		NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, versionView{API: v.APIVersion, Feed: v.FeedVersion})
}

type healthView struct {
	Status   string `json:"status"`
	Stops    int    `json:"stops"`
	Numbered int    `json:"numbered"`
}

// Healthz reports whether the store holds an imported feed.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.StopNumberStats(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	status, code := "ok", http.StatusOK
	if stats.Total == 0 {
		status, code = "empty", http.StatusServiceUnavailable
	}
	writeJSON(w, code, healthView{Status: status, Stops: stats.Total, Numbered: stats.Numbered})
}
