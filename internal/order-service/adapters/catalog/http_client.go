// Package catalog talks to the external Product Catalog Service.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/interceptors/constants"
)

const (
	maxBodyBytes = 1 << 20

	OutcomeFound       = "found"
	OutcomeNotFound    = "not_found"
	OutcomeUnavailable = "unavailable"
)

var _ ports.CatalogClient = (*HTTPClient)(nil)

// Observer receives the outcome and latency of every lookup.
type Observer interface {
	ObserveCatalogLookup(outcome string, elapsed time.Duration)
}

// HTTPClient resolves products with GET {baseURL}/products/{id}. The catalog
// answers with an envelope whose data field holds the product record.
type HTTPClient struct {
	baseURL  string
	client   *http.Client
	timeout  time.Duration
	observer Observer
	tracer   trace.Tracer
}

type Option func(*HTTPClient)

func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.client = c }
}

func WithObserver(o Observer) Option {
	return func(h *HTTPClient) { h.observer = o }
}

func NewHTTPClient(baseURL string, timeout time.Duration, opts ...Option) *HTTPClient {
	h := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		timeout: timeout,
		tracer:  otel.Tracer("github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/catalog"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type envelope struct {
	Status  int            `json:"status"`
	Message string         `json:"message"`
	Data    *productRecord `json:"data"`
}

type productRecord struct {
	ID    int64            `json:"id"`
	Name  string           `json:"name"`
	Price *decimal.Decimal `json:"price"`
}

func (h *HTTPClient) Resolve(ctx context.Context, productID int64) (domain.ProductSnapshot, error) {
	ctx, span := h.tracer.Start(ctx, "catalog.Resolve",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int64("product.id", productID)))
	defer span.End()

	start := time.Now()
	snap, err := h.resolve(ctx, productID)
	outcome := OutcomeFound
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		outcome = OutcomeNotFound
	case err != nil:
		outcome = OutcomeUnavailable
	}
	if h.observer != nil {
		h.observer.ObserveCatalogLookup(outcome, time.Since(start))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		slog.WarnContext(ctx, "catalog lookup failed", "product_id", productID, "outcome", outcome, "error", err)
		return domain.ProductSnapshot{}, err
	}
	slog.DebugContext(ctx, "catalog lookup", "product_id", productID, "name", snap.Name, "price", snap.Price.String())
	return snap, nil
}

func (h *HTTPClient) resolve(ctx context.Context, productID int64) (domain.ProductSnapshot, error) {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	url := h.baseURL + "/products/" + strconv.FormatInt(productID, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.ProductSnapshot{}, domain.CatalogUnavailable(productID, err)
	}
	req.Header.Set("Accept", "application/json")
	if requestID, ok := ctx.Value(constants.ContextKeyRequestID).(string); ok && requestID != "" {
		req.Header.Set(constants.HeaderXRequestId, requestID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := h.client.Do(req)
	if err != nil {
		return domain.ProductSnapshot{}, domain.CatalogUnavailable(productID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ProductSnapshot{}, domain.ProductNotFound(productID)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.ProductSnapshot{}, domain.CatalogUnavailable(productID, fmt.Errorf("catalog returned status %d", resp.StatusCode))
	}

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&env); err != nil {
		return domain.ProductSnapshot{}, domain.CatalogUnavailable(productID, fmt.Errorf("decode catalog response: %w", err))
	}
	if env.Data == nil || env.Data.Price == nil || strings.TrimSpace(env.Data.Name) == "" {
		return domain.ProductSnapshot{}, domain.CatalogUnavailable(productID, errors.New("catalog response missing product name or price"))
	}
	if env.Data.Price.IsNegative() {
		return domain.ProductSnapshot{}, domain.CatalogUnavailable(productID, fmt.Errorf("catalog returned negative price %s", env.Data.Price))
	}

	return domain.ProductSnapshot{
		ProductID: productID,
		Name:      env.Data.Name,
		Price:     *env.Data.Price,
	}, nil
}
