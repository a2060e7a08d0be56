package handler

import (
	"net/http"

	"transitdb/internal/gtfstime"
	"transitdb/internal/storage"
)

// Arrivals lists pickups at a stop in the current service period arriving within
// ?minutes= of now, including those up to five minutes late.
func (h *Handler) Arrivals(w http.ResponseWriter, r *http.Request) {
	stop := h.stopByNumber(w, r, "stop_number")
	if stop == nil {
		return
	}
	minutes := queryInt(r, "minutes", h.upcomingMinutes)
	if minutes < 0 {
		minutes = h.upcomingMinutes
	}
	pickups, err := h.engine.UpcomingPickups(r.Context(), stop.ID, minutes)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.writePickups(w, r, pickups)
}

// Destinations lists the next ?range= pickups along a trip after a sequence number.
func (h *Handler) Destinations(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathInt(r, "trip_id")
	if !ok {
		NotFound(w, r)
		return
	}
	seq, ok := pathInt(r, "sequence")
	if !ok {
		NotFound(w, r)
		return
	}
	trip, err := h.engine.Trip(r.Context(), int64(tripID))
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if trip == nil {
		NotFound(w, r)
		return
	}
	span := queryInt(r, "range", DefaultRange)
	pickups, err := h.engine.Destinations(r.Context(), trip.ID, seq, span)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.writePickups(w, r, pickups)
}

// NextPickups lists up to ?limit= of a trip's pickups from now minus ?offset= seconds.
func (h *Handler) NextPickups(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathInt(r, "id")
	if !ok {
		NotFound(w, r)
		return
	}
	trip, err := h.engine.Trip(r.Context(), int64(tripID))
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if trip == nil {
		NotFound(w, r)
		return
	}
	limit := queryInt(r, "limit", DefaultNextLimit)
	offset := queryInt(r, "offset", 0)
	pickups, err := h.engine.NextPickups(r.Context(), trip.ID, limit, offset)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.writePickups(w, r, pickups)
}

func (h *Handler) writePickups(w http.ResponseWriter, r *http.Request, pickups []storage.Pickup) {
	now := gtfstime.ElapsedSeconds(h.engine.Now())
	out := make([]pickupView, 0, len(pickups))
	for _, p := range pickups {
		d, err := h.engine.Describe(r.Context(), p)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		out = append(out, newPickupView(d, now))
	}
	writeJSON(w, http.StatusOK, out)
}
