// Package metrics exposes import and request metrics on a private Prometheus registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"transitdb/internal/gtfs"
)

type Collector struct {
	reg *prometheus.Registry

	ImportRows     *prometheus.CounterVec // entity label
	ImportExpected *prometheus.GaugeVec   // entity label
	ImportDuration *prometheus.GaugeVec   // entity label, seconds

	Requests        *prometheus.CounterVec // method, code labels
	RequestDuration prometheus.Histogram

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		ImportRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transitdb_import_rows_total",
			Help: "Feed records ingested, by entity.",
		}, []string{"entity"}),
		ImportExpected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "transitdb_import_expected_rows",
			Help: "Records found in the feed file being ingested, by entity.",
		}, []string{"entity"}),
		ImportDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "transitdb_import_duration_seconds",
			Help: "Time taken to ingest the last feed file, by entity.",
		}, []string{"entity"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transitdb_http_requests_total",
			Help: "HTTP requests served, by method and status code.",
		}, []string{"method", "code"}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transitdb_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transitdb_cache_hits_total",
			Help: "Query cache hits.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transitdb_cache_misses_total",
			Help: "Query cache misses.",
		}),
	}

	reg.MustRegister(
		c.ImportRows, c.ImportExpected, c.ImportDuration,
		c.Requests, c.RequestDuration,
		c.CacheHits, c.CacheMisses,
	)
	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

// ObserveRequest records one served request.
func (c *Collector) ObserveRequest(method string, status int, elapsed time.Duration) {
	c.Requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.RequestDuration.Observe(elapsed.Seconds())
}

// Begin, Step and Finish make the collector a gtfs.Progress.

func (c *Collector) Begin(entity string, total int) {
	c.ImportExpected.WithLabelValues(entity).Set(float64(total))
}

func (c *Collector) Step(ev gtfs.Event) {
	c.ImportRows.WithLabelValues(ev.Entity).Inc()
}

func (c *Collector) Finish(entity string, _ int, elapsed time.Duration) {
	c.ImportDuration.WithLabelValues(entity).Set(elapsed.Seconds())
}

var _ gtfs.Progress = (*Collector)(nil)
