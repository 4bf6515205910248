package ports

import (
	"context"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

// CatalogClient resolves authoritative product data from the external catalog.
// Implementations return domain.ErrProductNotFound when the product does not
// exist and domain.ErrCatalogUnavailable for every other failure.
type CatalogClient interface {
	Resolve(ctx context.Context, productID int64) (domain.ProductSnapshot, error)
}

// OrderStore persists and loads order aggregates as a unit. Every read that
// returns orders returns them with all of their line items.
type OrderStore interface {
	// Save writes the order and its items atomically and returns the stored
	// copy with ids and audit fields assigned.
	Save(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	// ListSummaries returns every order, newest first, without items.
	ListSummaries(ctx context.Context) ([]domain.OrderSummary, error)
}

// OrderService is the use-case surface consumed by the transport adapters.
type OrderService interface {
	CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error)
	GetOrderByID(ctx context.Context, id int64) (*domain.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	ListByStatus(ctx context.Context, token string) ([]domain.Order, error)
	ListSummaries(ctx context.Context) ([]domain.OrderSummary, error)
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
