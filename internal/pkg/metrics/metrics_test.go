package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := NewServerMetrics(prometheus.NewRegistry(), "test")

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"1", "2", "3"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/"+id, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Requests.WithLabelValues("/orders/{id}", http.MethodGet, "404")))
}

func TestObserveCatalogLookup(t *testing.T) {
	m := NewServerMetrics(prometheus.NewRegistry(), "test")
	m.ObserveCatalogLookup("found", 12*time.Millisecond)
	m.ObserveCatalogLookup("not_found", 3*time.Millisecond)
	m.ObserveCatalogLookup("found", 7*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CatalogLookups.WithLabelValues("found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogLookups.WithLabelValues("not_found")))
}

func TestMetricNamesCarrySinglePrefix(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewServerMetrics(reg, "order_service")
	m.OrdersCreated.Inc()
	m.ObserveCatalogLookup("found", time.Millisecond)
	m.Requests.WithLabelValues("/orders", "GET", "200").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "order_service_orders_created_total")
	assert.Contains(t, names, "order_service_http_requests_total")
	assert.Contains(t, names, "order_service_catalog_lookups_total")
	for _, n := range names {
		assert.NotContains(t, n, "orders_order_service")
	}
}

func TestHandler_ExposesRegistry(t *testing.T) {
	m := NewServerMetrics(prometheus.NewRegistry(), "test")
	m.OrdersCreated.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "test_orders_created_total 1"))
}
