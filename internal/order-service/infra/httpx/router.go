package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/infra/httpx/middlewares"
)

// RouterOption adds cross-cutting pieces that main owns, such as metrics.
type RouterOption func(*routerConfig)

type routerConfig struct {
	instrument     func(http.Handler) http.Handler
	metricsHandler http.Handler
}

// WithMetrics records every request through instrument and serves handler
// on GET /metrics.
func WithMetrics(instrument func(http.Handler) http.Handler, handler http.Handler) RouterOption {
	return func(c *routerConfig) {
		c.instrument = instrument
		c.metricsHandler = handler
	}
}

func NewRouter(handler *Handler, opts ...RouterOption) http.Handler {
	var cfg routerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachRequestContext)
	r.Use(middlewares.Trace)
	r.Use(middlewares.RequestLogger)
	r.Use(middleware.Recoverer)
	if cfg.instrument != nil {
		r.Use(cfg.instrument)
	}

	r.NotFound(handler.RouteNotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	r.Get("/health", handler.Health)
	if cfg.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.metricsHandler)
	}

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", handler.CreateOrder)
		r.Get("/summary", handler.ListSummaries)
		r.Get("/orderNumber/{orderNumber}", handler.GetOrderByNumber)
		r.Get("/customer/{customerId}", handler.ListByCustomer)
		r.Get("/status/{status}", handler.ListByStatus)
		r.Get("/{id}", handler.GetOrderByID)
	})
	return r
}
