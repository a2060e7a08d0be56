package handler

import (
	"net/http"
	"strconv"
	"strings"

	"transitdb/internal/schedule"
	"transitdb/internal/storage"
)

// Stops lists every stop.
func (h *Handler) Stops(w http.ResponseWriter, r *http.Request) {
	stops, err := h.engine.AllStops(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newStopViews(stops))
}

// Stop serves one stop by rider-facing number.
func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	stop := h.stopByNumber(w, r, "number")
	if stop == nil {
		return
	}
	writeJSON(w, http.StatusOK, newStopView(*stop))
}

// StopNearby lists stops within ?within= meters of a stop, nearest first,
// leaving out the stop itself.
func (h *Handler) StopNearby(w http.ResponseWriter, r *http.Request) {
	stop := h.stopByNumber(w, r, "number")
	if stop == nil {
		return
	}
	within := queryInt(r, "within", DefaultWithin)
	nearby, err := h.engine.Nearby(r.Context(), stop.Lat, stop.Lon, float64(within), stop.ID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newNearbyViews(nearby))
}

// StopClosest serves the stop nearest to a stop, other than itself.
func (h *Handler) StopClosest(w http.ResponseWriter, r *http.Request) {
	stop := h.stopByNumber(w, r, "number")
	if stop == nil {
		return
	}
	h.closest(w, r, stop.Lat, stop.Lon, stop.ID)
}

// PointNearby lists stops within ?within= meters of a coordinate.
func (h *Handler) PointNearby(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := pathPoint(r)
	if !ok {
		NotFound(w, r)
		return
	}
	within := queryInt(r, "within", DefaultWithin)
	nearby, err := h.engine.Nearby(r.Context(), lat, lon, float64(within), 0)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newNearbyViews(nearby))
}

// PointClosest serves the stop nearest to a coordinate.
func (h *Handler) PointClosest(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := pathPoint(r)
	if !ok {
		NotFound(w, r)
		return
	}
	h.closest(w, r, lat, lon, 0)
}

func (h *Handler) closest(w http.ResponseWriter, r *http.Request, lat, lon float64, ignore int64) {
	best, err := h.engine.Closest(r.Context(), lat, lon, ignore)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if best == nil {
		NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, nearbyView{Distance: best.Distance, Stop: newStopView(best.Stop)})
}

func pathPoint(r *http.Request) (lat, lon float64, ok bool) {
	lat, err := strconv.ParseFloat(r.PathValue("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(r.PathValue("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

// StopRoutes lists every route and headsign serving a stop.
func (h *Handler) StopRoutes(w http.ResponseWriter, r *http.Request) {
	h.stopRoutes(w, r, false)
}

// StopRoutesInService lists the routes serving a stop in the current service period.
func (h *Handler) StopRoutesInService(w http.ResponseWriter, r *http.Request) {
	h.stopRoutes(w, r, true)
}

func (h *Handler) stopRoutes(w http.ResponseWriter, r *http.Request, inService bool) {
	stop := h.stopByNumber(w, r, "number")
	if stop == nil {
		return
	}
	services, err := h.engine.RoutesAtStop(r.Context(), stop.ID, inService)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRouteViews(services))
}

// StopsByName lists stops whose name contains the path segment, ignoring case.
func (h *Handler) StopsByName(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	stops, err := cached(h, h.searches, "name:"+strings.ToUpper(name), func() ([]storage.Stop, error) {
		return h.engine.StopsByName(r.Context(), name)
	})
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newStopViews(stops))
}

// Search classifies ?q= as an intersection, stop number, stop label or name
// fragment and lists the matching stops.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	s, ok := schedule.ParseSearch(q)
	if !ok {
		writeJSON(w, http.StatusOK, newStopViews(nil))
		return
	}
	stops, err := cached(h, h.searches, "search:"+s.Key(), func() ([]storage.Stop, error) {
		return h.engine.SearchStops(r.Context(), q)
	})
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newStopViews(stops))
}
