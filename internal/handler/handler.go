// Package handler serves the schedule store as a JSON API.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"transitdb/internal/cache"
	"transitdb/internal/metrics"
	"transitdb/internal/realtime"
	"transitdb/internal/report"
	"transitdb/internal/schedule"
	"transitdb/internal/storage"
)

// Default query parameters.
const (
	DefaultUpcomingMinutes = 15
	DefaultWithin          = 400 // meters
	DefaultRange           = 10  // stops along a trip
	DefaultNextLimit       = 10
)

// Options tunes a Handler. Zero values select the defaults.
type Options struct {
	UpcomingMinutes int
	CacheTTL        time.Duration
	Metrics         *metrics.Collector // optional
}

// Handler holds shared dependencies for all HTTP handlers.
type Handler struct {
	engine  *schedule.Engine
	alerts  *realtime.Store
	logger  *slog.Logger
	metrics *metrics.Collector

	upcomingMinutes int
	searches        *cache.Cache[[]storage.Stop]
	periods         *cache.Cache[*storage.ServicePeriod]
}

// New creates a Handler. alerts may be nil when no realtime feed is configured.
func New(engine *schedule.Engine, alerts *realtime.Store, logger *slog.Logger, opts Options) *Handler {
	if opts.UpcomingMinutes <= 0 {
		opts.UpcomingMinutes = DefaultUpcomingMinutes
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	if alerts == nil {
		alerts = realtime.NewStore()
	}
	return &Handler{
		engine:          engine,
		alerts:          alerts,
		logger:          logger,
		metrics:         opts.Metrics,
		upcomingMinutes: opts.UpcomingMinutes,
		searches:        cache.New[[]storage.Stop](opts.CacheTTL),
		periods:         cache.New[*storage.ServicePeriod](opts.CacheTTL),
	}
}

// Run evicts expired cache entries until ctx is cancelled.
func (h *Handler) Run(ctx context.Context, interval time.Duration) {
	go h.periods.Run(ctx, interval)
	h.searches.Run(ctx, interval)
}

// Register adds every API route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /stops", h.Stops)
	mux.HandleFunc("GET /stops/{$}", h.Stops)
	mux.HandleFunc("GET /stops/{number}", h.Stop)
	mux.HandleFunc("GET /stops/{number}/nearby", h.StopNearby)
	mux.HandleFunc("GET /stops/{number}/nearby/closest", h.StopClosest)
	mux.HandleFunc("GET /stops/{number}/routes", h.StopRoutes)
	mux.HandleFunc("GET /stops/{number}/routes/in_service", h.StopRoutesInService)
	mux.HandleFunc("GET /stops/{number}/alerts", h.StopAlerts)
	mux.HandleFunc("GET /stops_by_name/{name}", h.StopsByName)
	mux.HandleFunc("GET /stops_nearby/{lat}/{lon}", h.PointNearby)
	mux.HandleFunc("GET /stops_nearby/{lat}/{lon}/closest", h.PointClosest)
	mux.HandleFunc("GET /search", h.Search)

	mux.HandleFunc("GET /service_periods", h.ServicePeriods)
	mux.HandleFunc("GET /service_periods/{$}", h.ServicePeriods)
	mux.HandleFunc("GET /service_periods/{id}", h.ServicePeriod)

	mux.HandleFunc("GET /arrivals/{stop_number}", h.Arrivals)
	mux.HandleFunc("GET /destinations/{trip_id}/{sequence}", h.Destinations)
	mux.HandleFunc("GET /trips/{id}/next", h.NextPickups)

	mux.HandleFunc("GET /alerts", h.Alerts)
	mux.HandleFunc("GET /version", h.Version)
	mux.HandleFunc("GET /healthz", h.Healthz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// NotFound writes the JSON body used for every missing entity or route.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found"})
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed", "path", r.URL.Path, "error", err)
	report.ReportError(err, "", map[string]string{"path": r.URL.Path})
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal"})
}

// pathInt parses a numeric path segment. ok is false when it is not a number.
func pathInt(r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(r.PathValue(name))
	return n, err == nil
}

// queryInt returns the integer query parameter, or fallback when absent or malformed.
func queryInt(r *http.Request, name string, fallback int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// stopByNumber resolves the {number} path segment, writing a 404 when there is no
// such stop.
func (h *Handler) stopByNumber(w http.ResponseWriter, r *http.Request, name string) *storage.Stop {
	n, ok := pathInt(r, name)
	if !ok {
		NotFound(w, r)
		return nil
	}
	stop, err := h.engine.StopByNumber(r.Context(), n)
	if err != nil {
		h.serverError(w, r, err)
		return nil
	}
	if stop == nil {
		NotFound(w, r)
		return nil
	}
	return stop
}

// cached loads through c, counting hits and misses.
func cached[V any](h *Handler, c *cache.Cache[V], key string, load func() (V, error)) (V, error) {
	missed := false
	v, err := c.GetOrLoad(key, func() (V, error) {
		missed = true
		return load()
	})
	if h.metrics != nil {
		if missed {
			h.metrics.CacheMisses.Inc()
		} else {
			h.metrics.CacheHits.Inc()
		}
	}
	return v, err
}
