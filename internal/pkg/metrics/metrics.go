package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerMetrics struct {
	Requests       *prometheus.CounterVec
	LatencyMS      *prometheus.HistogramVec
	OrdersCreated  prometheus.Counter
	CatalogLookups *prometheus.CounterVec
	CatalogLatency prometheus.Histogram

	gatherer prometheus.Gatherer
}

// NewServerMetrics registers the service collectors on reg, namespaced by
// service (order_service_http_requests_total and so on).
func NewServerMetrics(reg *prometheus.Registry, service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "method", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route"})
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: service,
		Name:      "orders_created_total",
		Help:      "Orders persisted successfully.",
	})
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: service,
		Name:      "catalog_lookups_total",
		Help:      "Product catalog lookups by outcome.",
	}, []string{"outcome"})
	lookupLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: service,
		Name:      "catalog_lookup_duration_ms",
		Help:      "Product catalog lookup latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})

	reg.MustRegister(requests, latency, created, lookups, lookupLatency)
	return &ServerMetrics{
		Requests:       requests,
		LatencyMS:      latency,
		OrdersCreated:  created,
		CatalogLookups: lookups,
		CatalogLatency: lookupLatency,
		gatherer:       reg,
	}
}

func (m *ServerMetrics) ObserveCatalogLookup(outcome string, elapsed time.Duration) {
	m.CatalogLookups.WithLabelValues(outcome).Inc()
	m.CatalogLatency.Observe(float64(elapsed.Milliseconds()))
}

// Middleware records count and latency per chi route pattern, so path
// parameters do not explode label cardinality.
func (m *ServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.Requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	})
}

func (m *ServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
