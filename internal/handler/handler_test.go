package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transitdb/internal/metrics"
	"transitdb/internal/realtime"
	"transitdb/internal/schedule"
	"transitdb/internal/storage"
)

// Wednesday 2023-03-08, 08:01 UTC.
var now = time.Date(2023, 3, 8, 8, 1, 0, 0, time.UTC)

type testServer struct {
	mux     *http.ServeMux
	metrics *metrics.Collector
	trip    int64
	period  int64
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := storage.Create(filepath.Join(t.TempDir(), "transit.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	in, err := db.BeginInsert(ctx)
	require.NoError(t, err)
	defer in.Rollback()
	must := func(id int64, err error) int64 {
		t.Helper()
		require.NoError(t, err)
		return id
	}

	ts := &testServer{}
	ts.period = must(in.ServicePeriod(ctx, storage.ServicePeriod{Days: 5, Start: "20230101", Finish: "20231231"}))
	bank := must(in.Stop(ctx, storage.Stop{Label: "AB123", Number: 1234, Name: "BANK/SLATER", Lat: 45.4200, Lon: -75.7000}))
	station := must(in.Stop(ctx, storage.Stop{Label: "CD456", Number: 4321, Name: "SLATER STATION", Lat: 45.4205, Lon: -75.7000}))
	route := must(in.Route(ctx, storage.Route{Label: "R95", Name: "95", RouteType: 3}))
	ts.trip = must(in.Trip(ctx, storage.Trip{Headsign: "Orleans", RouteID: route, ServicePeriodID: ts.period}))
	must(in.Pickup(ctx, storage.Pickup{Arrival: 28800, Departure: 28800, Sequence: 1, TripID: ts.trip, StopID: bank}))
	must(in.Pickup(ctx, storage.Pickup{Arrival: 29400, Departure: 29400, Sequence: 2, TripID: ts.trip, StopID: station}))
	must(in.Pickup(ctx, storage.Pickup{Arrival: 36000, Departure: 36000, Sequence: 3, TripID: ts.trip, StopID: bank}))
	require.NoError(t, in.Version(ctx, storage.Version{APIVersion: 1, FeedVersion: 42}))
	require.NoError(t, in.Commit())

	alerts := realtime.NewStore()
	alerts.SetAlerts([]realtime.Alert{
		{ID: "detour", HeaderText: "Detour", RouteIDs: []string{"R95"}},
		{ID: "elsewhere", HeaderText: "Closed", StopIDs: []string{"ZZ999"}},
	})

	engine := schedule.New(db, time.UTC, schedule.WithClock(func() time.Time { return now }))
	ts.metrics = metrics.NewCollector()
	h := New(engine, alerts, logger, Options{Metrics: ts.metrics})
	ts.mux = http.NewServeMux()
	h.Register(ts.mux)
	return ts
}

func (ts *testServer) get(t *testing.T, path string, v any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if v != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
	}
	if rec.Code == http.StatusNotFound {
		assert.JSONEq(t, `{"error":"not_found"}`, rec.Body.String())
	}
	return rec.Code
}

func TestStopEndpoints(t *testing.T) {
	ts := newTestServer(t)

	var stops []stopView
	require.Equal(t, 200, ts.get(t, "/stops", &stops))
	assert.Len(t, stops, 2)

	var stop stopView
	require.Equal(t, 200, ts.get(t, "/stops/1234", &stop))
	assert.Equal(t, "BANK/SLATER", stop.Name)
	assert.Equal(t, "AB123", stop.Label)

	assert.Equal(t, 404, ts.get(t, "/stops/9999", nil))
	assert.Equal(t, 404, ts.get(t, "/stops/0", nil))
	assert.Equal(t, 404, ts.get(t, "/stops/abc", nil))

	var byName []stopView
	require.Equal(t, 200, ts.get(t, "/stops_by_name/slater", &byName))
	assert.Len(t, byName, 2)
}

func TestSearch(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		query string
		want  []int
	}{
		{"bank and slater", []int{1234}},
		{"slater/bank", []int{1234}},
		{"4321", []int{4321}},
		{"ab123", []int{1234}},
		{"station", []int{4321}},
		{"rideau", []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var stops []stopView
			require.Equal(t, 200, ts.get(t, "/search?q="+url.QueryEscape(tt.query), &stops))
			got := []int{}
			for _, s := range stops {
				got = append(got, s.Number)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearchIsCached(t *testing.T) {
	ts := newTestServer(t)
	var stops []stopView
	ts.get(t, "/search?q=station", &stops)
	ts.get(t, "/search?q=STATION", &stops)

	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.CacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.CacheHits))
}

func TestSearchCacheKeepsInterpretationsApart(t *testing.T) {
	ts := newTestServer(t)

	// Only the lowercase "and" reads as an intersection; the uppercase query is a
	// name search for "SLATER".
	var intersection, name []stopView
	require.Equal(t, 200, ts.get(t, "/search?q="+url.QueryEscape("slater and bank"), &intersection))
	require.Equal(t, 200, ts.get(t, "/search?q="+url.QueryEscape("SLATER AND BANK"), &name))
	assert.Len(t, intersection, 1)
	assert.Len(t, name, 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(ts.metrics.CacheMisses))

	var again []stopView
	require.Equal(t, 200, ts.get(t, "/search?q="+url.QueryEscape("Slater and Bank"), &again))
	assert.Len(t, again, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.CacheHits))
}

func TestNearby(t *testing.T) {
	ts := newTestServer(t)

	var nearby []nearbyView
	require.Equal(t, 200, ts.get(t, "/stops/1234/nearby", &nearby))
	require.Len(t, nearby, 1, "the stop itself is left out")
	assert.Equal(t, 4321, nearby[0].Stop.Number)
	assert.InDelta(t, 55, nearby[0].Distance, 2)

	require.Equal(t, 200, ts.get(t, "/stops/1234/nearby?within=10", &nearby))
	assert.Empty(t, nearby)

	var closest nearbyView
	require.Equal(t, 200, ts.get(t, "/stops/1234/nearby/closest", &closest))
	assert.Equal(t, 4321, closest.Stop.Number)

	require.Equal(t, 200, ts.get(t, "/stops_nearby/45.4200/-75.7000", &nearby))
	require.Len(t, nearby, 2)
	assert.Equal(t, 1234, nearby[0].Stop.Number)
	assert.Zero(t, nearby[0].Distance)

	require.Equal(t, 200, ts.get(t, "/stops_nearby/45.4206/-75.7000/closest", &closest))
	assert.Equal(t, 4321, closest.Stop.Number)

	assert.Equal(t, 404, ts.get(t, "/stops_nearby/north/west", nil))
}

func TestRoutesAndAlerts(t *testing.T) {
	ts := newTestServer(t)

	var routes []routeView
	require.Equal(t, 200, ts.get(t, "/stops/1234/routes", &routes))
	require.Len(t, routes, 1)
	assert.Equal(t, "95", routes[0].Route.Number)
	assert.Equal(t, "Orleans", routes[0].Route.Headsign)
	assert.Equal(t, []int{28800, 36000}, routes[0].Arrivals)
	assert.Equal(t, []string{"mon", "wed"}, routes[0].Days)

	require.Equal(t, 200, ts.get(t, "/stops/1234/routes/in_service", &routes))
	assert.Len(t, routes, 1)

	var alerts alertsView
	require.Equal(t, 200, ts.get(t, "/stops/1234/alerts", &alerts))
	require.Len(t, alerts.Alerts, 1)
	assert.Equal(t, "detour", alerts.Alerts[0].ID)

	require.Equal(t, 200, ts.get(t, "/alerts", &alerts))
	assert.Len(t, alerts.Alerts, 2)
}

func TestServicePeriodEndpoints(t *testing.T) {
	ts := newTestServer(t)

	var periods []servicePeriodView
	require.Equal(t, 200, ts.get(t, "/service_periods", &periods))
	require.Len(t, periods, 1)
	assert.Equal(t, []string{"mon", "wed"}, periods[0].Days)

	var sp servicePeriodView
	require.Equal(t, 200, ts.get(t, "/service_periods/current", &sp))
	assert.Equal(t, ts.period, sp.ID)

	require.Equal(t, 200, ts.get(t, "/service_periods/current", &sp))
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.CacheHits))

	assert.Equal(t, 404, ts.get(t, "/service_periods/999", nil))
	assert.Equal(t, 404, ts.get(t, "/service_periods/tomorrow", nil))
}

func TestArrivals(t *testing.T) {
	ts := newTestServer(t)

	// now is 08:01; the 08:00 pickup is inside the five minute look-behind.
	var pickups []pickupView
	require.Equal(t, 200, ts.get(t, "/arrivals/1234", &pickups))
	require.Len(t, pickups, 1)
	assert.Equal(t, 28800, pickups[0].Arrival)
	assert.Equal(t, "08:00:00", pickups[0].ArrivalTime)
	assert.Zero(t, pickups[0].Minutes)
	assert.Equal(t, "95", pickups[0].Trip.Route)
	assert.Equal(t, 1234, pickups[0].Stop.Number)
	assert.False(t, pickups[0].Last)

	require.Equal(t, 200, ts.get(t, "/arrivals/1234?minutes=120", &pickups))
	require.Len(t, pickups, 2)
	assert.True(t, pickups[1].Last)
	assert.Equal(t, 119, pickups[1].Minutes)

	assert.Equal(t, 404, ts.get(t, "/arrivals/9999", nil))
}

func TestTripEndpoints(t *testing.T) {
	ts := newTestServer(t)
	trip := strconv.FormatInt(ts.trip, 10)

	var pickups []pickupView
	require.Equal(t, 200, ts.get(t, "/destinations/"+trip+"/1", &pickups))
	require.Len(t, pickups, 2)
	assert.Equal(t, 2, pickups[0].Sequence)

	require.Equal(t, 200, ts.get(t, "/destinations/"+trip+"/1?range=1", &pickups))
	assert.Len(t, pickups, 1)

	require.Equal(t, 200, ts.get(t, "/trips/"+trip+"/next?limit=5", &pickups))
	require.Len(t, pickups, 2, "pickups before now are skipped")
	assert.Equal(t, 2, pickups[0].Sequence)

	require.Equal(t, 200, ts.get(t, "/trips/"+trip+"/next?limit=5&offset=120", &pickups))
	assert.Len(t, pickups, 3)

	assert.Equal(t, 404, ts.get(t, "/destinations/999/1", nil))
	assert.Equal(t, 404, ts.get(t, "/trips/999/next", nil))
}

func TestVersionAndHealth(t *testing.T) {
	ts := newTestServer(t)

	var v versionView
	require.Equal(t, 200, ts.get(t, "/version", &v))
	assert.Equal(t, versionView{API: 1, Feed: 42}, v)

	var health healthView
	require.Equal(t, 200, ts.get(t, "/healthz", &health))
	assert.Equal(t, healthView{Status: "ok", Stops: 2, Numbered: 2}, health)
}

func TestMinutesUntil(t *testing.T) {
	tests := []struct {
		name         string
		arrival, now int
		want         int
	}{
		{"30 min from now", 30600, 28800, 30},
		{"exactly now", 28800, 28800, 0},
		{"in the past returns 0", 28000, 28800, 0},
		{"partial minute rounds down", 28889, 28800, 1},
		{"next service day", 90000, 86000, 66},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := minutesUntil(tt.arrival, tt.now); got != tt.want {
				t.Errorf("minutesUntil(%d, %d) = %d, want %d", tt.arrival, tt.now, got, tt.want)
			}
		})
	}
}
