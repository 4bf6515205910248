package httpx

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
)

const maxRequestBytes = 1 << 20

// OrderCounter is notified once per persisted order.
type OrderCounter interface {
	Inc()
}

// Handler serves the order endpoints and wraps every response in the
// standard envelope.
type Handler struct {
	orderService ports.OrderService
	health       ports.Pinger
	created      OrderCounter
	now          func() time.Time
}

type HandlerOption func(*Handler)

func WithOrderCounter(c OrderCounter) HandlerOption {
	return func(h *Handler) { h.created = c }
}

func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) { h.now = now }
}

// NewHandler wires the order use cases. health may be nil, in which case
// /health always reports UP.
func NewHandler(svc ports.OrderService, health ports.Pinger, opts ...HandlerOption) *Handler {
	h := &Handler{
		orderService: svc,
		health:       health,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		slog.DebugContext(r.Context(), "rejecting malformed order body", "error", err)
		h.writeError(w, r, domain.MalformedInput(msgBadJSON, err))
		return
	}

	order, err := h.orderService.CreateOrder(r.Context(), req.toDomain())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.created != nil {
		h.created.Inc()
	}

	h.writeJSON(w, r, http.StatusCreated, "Order created successfully", mapOrderToResponse(order))
}

func (h *Handler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.writeAPIError(w, r, apiError{
			status:  http.StatusBadRequest,
			code:    CodeInvalidParameter,
			message: "Parameter 'id' must be a number, got '" + raw + "'",
		})
		return
	}

	order, err := h.orderService.GetOrderByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, "Order fetched successfully", mapOrderToResponse(order))
}

func (h *Handler) GetOrderByNumber(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.GetOrderByNumber(r.Context(), chi.URLParam(r, "orderNumber"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, "Order fetched by order number successfully", mapOrderToResponse(order))
}

func (h *Handler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.ListByCustomer(r.Context(), chi.URLParam(r, "customerId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, "Customer orders fetched successfully", mapOrders(orders))
}

func (h *Handler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.ListByStatus(r.Context(), chi.URLParam(r, "status"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, "Orders fetched by status successfully", mapOrders(orders))
}

func (h *Handler) ListSummaries(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.orderService.ListSummaries(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, "Order summaries fetched successfully", mapSummaries(summaries))
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health.Ping(ctx); err != nil {
			slog.WarnContext(r.Context(), "health check failed", "error", err)
			h.writeAPIError(w, r, apiError{
				status:  http.StatusServiceUnavailable,
				code:    CodeServiceUnavailable,
				message: "Order store is not reachable",
			})
			return
		}
	}
	h.writeJSON(w, r, http.StatusOK, "UP", map[string]string{"status": "UP"})
}

// RouteNotFound and MethodNotAllowed keep router-level failures in the
// error envelope.
func (h *Handler) RouteNotFound(w http.ResponseWriter, r *http.Request) {
	h.writeAPIError(w, r, apiError{
		status:  http.StatusNotFound,
		code:    CodeNotFound,
		message: "No handler found for " + r.Method + " " + r.URL.Path,
	})
}

func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.writeAPIError(w, r, apiError{
		status:  http.StatusMethodNotAllowed,
		code:    CodeMethodNotAllowed,
		message: "Method " + r.Method + " is not supported for " + r.URL.Path,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	writeJSON(w, status, SuccessResponse{
		Timestamp: h.now().UTC(),
		Status:    status,
		Message:   message,
		Data:      data,
		Path:      r.URL.Path,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := classify(err)
	if apiErr.status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "status", apiErr.status, "error", err)
	}
	h.writeAPIError(w, r, apiErr)
}

func (h *Handler) writeAPIError(w http.ResponseWriter, r *http.Request, e apiError) {
	writeJSON(w, e.status, ErrorResponse{
		Timestamp:   h.now().UTC(),
		Status:      e.status,
		Error:       e.code,
		Message:     e.message,
		Path:        r.URL.Path,
		FieldErrors: e.fields,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
