// Package postgres provides a PostgreSQL-backed Order Store on top of pgxpool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/storage"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    order_number  TEXT           NOT NULL UNIQUE,
    customer_id   TEXT           NOT NULL,
    status        TEXT           NOT NULL,
    total_amount  NUMERIC(19, 2) NOT NULL CHECK (total_amount >= 0),
    created_at    TIMESTAMPTZ    NOT NULL,
    created_by    TEXT           NOT NULL,
    updated_at    TIMESTAMPTZ    NOT NULL,
    updated_by    TEXT           NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_at DESC, id DESC);

CREATE TABLE IF NOT EXISTS order_items (
    id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    order_id      BIGINT         NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    line_no       INTEGER        NOT NULL,
    product_id    BIGINT         NOT NULL,
    product_name  TEXT           NOT NULL,
    price         NUMERIC(19, 2) NOT NULL,
    quantity      INTEGER        NOT NULL CHECK (quantity > 0),
    total_price   NUMERIC(19, 2) NOT NULL,
    UNIQUE (order_id, line_no)
);

CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);
`

const selectOrdersWithItems = `
	SELECT o.id, o.order_number, o.customer_id, o.status, o.total_amount::text,
	       o.created_at, o.created_by, o.updated_at, o.updated_by,
	       i.id, i.product_id, i.product_name, i.price::text, i.quantity, i.total_price::text
	FROM   orders o
	JOIN   order_items i ON i.order_id = o.id
	WHERE  %s
	ORDER  BY o.created_at DESC, o.id DESC, i.line_no`

var _ ports.OrderStore = (*Repository)(nil)

type Repository struct {
	pool     *pgxpool.Pool
	settings storage.Settings
}

// NewRepository wraps an existing pool. Call Migrate once before use.
func NewRepository(pool *pgxpool.Pool, opts ...storage.Option) *Repository {
	return &Repository{pool: pool, settings: storage.Apply(opts...)}
}

// Connect opens a pool for dsn, checks it and applies the schema.
func Connect(ctx context.Context, dsn string, opts ...storage.Option) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	repo := NewRepository(pool, opts...)
	if err := repo.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: apply schema: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) Save(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, domain.StoreUnavailable("save", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stored := *order
	stored.Audit = r.settings.Stamp()
	stored.Items = append([]domain.LineItem(nil), order.Items...)

	err = tx.QueryRow(ctx, `
		INSERT INTO orders
			(order_number, customer_id, status, total_amount, created_at, created_by, updated_at, updated_by)
		VALUES
			($1, $2, $3, $4::numeric, $5, $6, $7, $8)
		RETURNING id`,
		stored.OrderNumber,
		stored.CustomerID,
		string(stored.Status),
		stored.TotalAmount.String(),
		stored.Audit.CreatedAt,
		stored.Audit.CreatedBy,
		stored.Audit.UpdatedAt,
		stored.Audit.UpdatedBy,
	).Scan(&stored.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.OrderNumberConflict(stored.OrderNumber, err)
		}
		return nil, domain.StoreUnavailable("save", fmt.Errorf("postgres: insert order %q: %w", stored.OrderNumber, err))
	}

	batch := &pgx.Batch{}
	for i, it := range stored.Items {
		batch.Queue(`
			INSERT INTO order_items
				(order_id, line_no, product_id, product_name, price, quantity, total_price)
			VALUES
				($1, $2, $3, $4, $5::numeric, $6, $7::numeric)
			RETURNING id`,
			stored.ID, i, it.ProductID, it.ProductName, it.Price.String(), it.Quantity, it.TotalPrice.String())
	}
	results := tx.SendBatch(ctx, batch)
	for i := range stored.Items {
		if err := results.QueryRow().Scan(&stored.Items[i].ID); err != nil {
			_ = results.Close()
			return nil, domain.StoreUnavailable("save", fmt.Errorf("postgres: insert item %d of %q: %w", i, stored.OrderNumber, err))
		}
		stored.Items[i].OrderID = stored.ID
	}
	if err := results.Close(); err != nil {
		return nil, domain.StoreUnavailable("save", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.StoreUnavailable("save", fmt.Errorf("postgres: commit %q: %w", stored.OrderNumber, err))
	}
	return &stored, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	orders, err := r.queryOrders(ctx, "o.id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, domain.OrderNotFound("id=" + strconv.FormatInt(id, 10))
	}
	return &orders[0], nil
}

func (r *Repository) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	orders, err := r.queryOrders(ctx, "o.order_number = $1", orderNumber)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, domain.OrderNotFound("orderNumber=" + orderNumber)
	}
	return &orders[0], nil
}

func (r *Repository) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	return r.queryOrders(ctx, "o.customer_id = $1", customerID)
}

func (r *Repository) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	return r.queryOrders(ctx, "o.status = $1", string(status))
}

func (r *Repository) ListSummaries(ctx context.Context) ([]domain.OrderSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_number, customer_id, status, total_amount::text
		FROM   orders
		ORDER  BY created_at DESC, id DESC`)
	if err != nil {
		return nil, domain.StoreUnavailable("list summaries", err)
	}
	defer rows.Close()

	out := make([]domain.OrderSummary, 0)
	for rows.Next() {
		var (
			s             domain.OrderSummary
			status, total string
		)
		if err := rows.Scan(&s.ID, &s.OrderNumber, &s.CustomerID, &status, &total); err != nil {
			return nil, domain.StoreUnavailable("list summaries", err)
		}
		s.Status = domain.OrderStatus(status)
		if s.TotalAmount, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("postgres: order %d total %q: %w", s.ID, total, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreUnavailable("list summaries", err)
	}
	return out, nil
}

func (r *Repository) queryOrders(ctx context.Context, where string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(selectOrdersWithItems, where), args...)
	if err != nil {
		return nil, domain.StoreUnavailable("read", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var (
			o                    domain.Order
			it                   domain.LineItem
			status, total        string
			itemPrice, itemTotal string
		)
		err := rows.Scan(
			&o.ID, &o.OrderNumber, &o.CustomerID, &status, &total,
			&o.Audit.CreatedAt, &o.Audit.CreatedBy, &o.Audit.UpdatedAt, &o.Audit.UpdatedBy,
			&it.ID, &it.ProductID, &it.ProductName, &itemPrice, &it.Quantity, &itemTotal,
		)
		if err != nil {
			return nil, domain.StoreUnavailable("read", err)
		}

		if n := len(orders); n == 0 || orders[n-1].ID != o.ID {
			o.Status = domain.OrderStatus(status)
			o.Audit.CreatedAt = o.Audit.CreatedAt.UTC()
			o.Audit.UpdatedAt = o.Audit.UpdatedAt.UTC()
			if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
				return nil, fmt.Errorf("postgres: order %d total %q: %w", o.ID, total, err)
			}
			orders = append(orders, o)
		}

		it.OrderID = o.ID
		if it.Price, err = decimal.NewFromString(itemPrice); err != nil {
			return nil, fmt.Errorf("postgres: item %d price %q: %w", it.ID, itemPrice, err)
		}
		if it.TotalPrice, err = decimal.NewFromString(itemTotal); err != nil {
			return nil, fmt.Errorf("postgres: item %d total %q: %w", it.ID, itemTotal, err)
		}
		last := &orders[len(orders)-1]
		last.Items = append(last.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreUnavailable("read", err)
	}
	return orders, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
