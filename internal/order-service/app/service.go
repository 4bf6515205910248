package app

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
)

const tracerName = "github.com/jcmexdev/ecommerce-orders/internal/order-service/app"

// OrderService runs the order use cases: create (validate, enrich from the
// catalog, build, persist) and the read projections over stored aggregates.
type OrderService struct {
	catalog           ports.CatalogClient
	store             ports.OrderStore
	builder           *domain.Builder
	lookupConcurrency int
	tracer            trace.Tracer
}

type Option func(*OrderService)

// WithLookupConcurrency bounds how many catalog lookups run at once for a
// single order. 1 resolves lines one after another in request order.
func WithLookupConcurrency(n int) Option {
	return func(s *OrderService) {
		if n > 0 {
			s.lookupConcurrency = n
		}
	}
}

func WithBuilder(b *domain.Builder) Option {
	return func(s *OrderService) { s.builder = b }
}

func NewOrderService(catalog ports.CatalogClient, store ports.OrderStore, opts ...Option) *OrderService {
	s := &OrderService{
		catalog:           catalog,
		store:             store,
		builder:           domain.NewBuilder(),
		lookupConcurrency: 1,
		tracer:            otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder is all-or-nothing: a failed lookup, build or save leaves no
// trace in the store.
func (s *OrderService) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder",
		trace.WithAttributes(
			attribute.String("order.customer_id", req.CustomerID),
			attribute.Int("order.lines", len(req.Items)),
		))
	defer span.End()

	if err := ValidateCreateOrder(req); err != nil {
		return nil, fail(span, err)
	}

	slog.InfoContext(ctx, "creating order", "customer_id", req.CustomerID, "lines", len(req.Items))

	snapshots, err := s.resolveSnapshots(ctx, req.Items)
	if err != nil {
		slog.WarnContext(ctx, "order enrichment failed", "customer_id", req.CustomerID, "error", err)
		return nil, fail(span, err)
	}

	order, err := s.builder.Build(req.CustomerID, req.Items, snapshots)
	if err != nil {
		return nil, fail(span, err)
	}

	stored, err := s.store.Save(ctx, order)
	if err != nil {
		slog.ErrorContext(ctx, "saving order failed", "order_number", order.OrderNumber, "error", err)
		return nil, fail(span, err)
	}

	span.SetAttributes(
		attribute.Int64("order.id", stored.ID),
		attribute.String("order.number", stored.OrderNumber),
	)
	slog.InfoContext(ctx, "order created",
		"order_id", stored.ID,
		"order_number", stored.OrderNumber,
		"total_amount", stored.TotalAmount.StringFixed(domain.CurrencyScale),
	)
	return stored, nil
}

// resolveSnapshots returns one snapshot per line, in line order. The first
// failure cancels the outstanding lookups and is returned as is.
func (s *OrderService) resolveSnapshots(ctx context.Context, lines []domain.LineRequest) ([]domain.ProductSnapshot, error) {
	snapshots := make([]domain.ProductSnapshot, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.lookupConcurrency)

	for i, line := range lines {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return domain.CatalogUnavailable(line.ProductID, err)
			}
			snap, err := s.catalog.Resolve(gctx, line.ProductID)
			if err != nil {
				return err
			}
			snapshots[i] = snap
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (s *OrderService) GetOrderByID(ctx context.Context, id int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetOrderByID",
		trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}
	return order, nil
}

func (s *OrderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetOrderByNumber",
		trace.WithAttributes(attribute.String("order.number", orderNumber)))
	defer span.End()

	order, err := s.store.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, fail(span, err)
	}
	return order, nil
}

func (s *OrderService) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListByCustomer",
		trace.WithAttributes(attribute.String("order.customer_id", customerID)))
	defer span.End()

	orders, err := s.store.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, fail(span, err)
	}
	return orders, nil
}

// ListByStatus accepts the raw status token; unknown tokens are a validation error.
func (s *OrderService) ListByStatus(ctx context.Context, token string) ([]domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListByStatus",
		trace.WithAttributes(attribute.String("order.status", token)))
	defer span.End()

	status, err := domain.ParseStatus(token)
	if err != nil {
		return nil, fail(span, err)
	}

	orders, err := s.store.ListByStatus(ctx, status)
	if err != nil {
		return nil, fail(span, err)
	}
	return orders, nil
}

func (s *OrderService) ListSummaries(ctx context.Context) ([]domain.OrderSummary, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListSummaries")
	defer span.End()

	summaries, err := s.store.ListSummaries(ctx)
	if err != nil {
		return nil, fail(span, err)
	}
	return summaries, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, fmt.Sprintf("%s: %v", domain.KindOf(err), err))
	return err
}
