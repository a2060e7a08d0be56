package handler

import (
	"net/http"

	"transitdb/internal/gtfstime"
	"transitdb/internal/storage"
)

// ServicePeriods lists every service period.
func (h *Handler) ServicePeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.engine.ServicePeriods(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	out := make([]servicePeriodView, 0, len(periods))
	for i := range periods {
		out = append(out, newServicePeriodView(&periods[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// ServicePeriod serves one service period by id, or the one in effect today
// when the id is "current".
func (h *Handler) ServicePeriod(w http.ResponseWriter, r *http.Request) {
	var (
		sp  *storage.ServicePeriod
		err error
	)
	if r.PathValue("id") == "current" {
		sp, err = h.currentServicePeriod(r)
	} else {
		id, ok := pathInt(r, "id")
		if !ok {
			NotFound(w, r)
			return
		}
		sp, err = h.engine.ServicePeriod(r.Context(), int64(id))
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if sp == nil {
		NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, newServicePeriodView(sp))
}

// currentServicePeriod caches today's period under the local date.
func (h *Handler) currentServicePeriod(r *http.Request) (*storage.ServicePeriod, error) {
	day := gtfstime.FormatDate(h.engine.Now())
	return cached(h, h.periods, day, func() (*storage.ServicePeriod, error) {
		return h.engine.CurrentServicePeriod(r.Context())
	})
}
