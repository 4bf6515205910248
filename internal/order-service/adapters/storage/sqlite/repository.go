// Package sqlite provides a SQLite-backed Order Store.
//
// WAL mode is enabled on Open so that readers never block the writer, and
// foreign keys are switched on so order_items rows cannot outlive their order.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/storage"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
)

// schema is applied on every Open. Idempotent due to IF NOT EXISTS.
const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    order_number    TEXT    NOT NULL UNIQUE,
    customer_id     TEXT    NOT NULL,
    status          TEXT    NOT NULL,
    -- Decimal amounts are stored as TEXT to keep exact currency precision.
    total_amount    TEXT    NOT NULL,
    created_at      TEXT    NOT NULL,
    created_by      TEXT    NOT NULL,
    updated_at      TEXT    NOT NULL,
    updated_by      TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_at DESC, id DESC);

CREATE TABLE IF NOT EXISTS order_items (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id        INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    -- Position of the line in the original request.
    line_no         INTEGER NOT NULL,
    product_id      INTEGER NOT NULL,
    product_name    TEXT    NOT NULL,
    price           TEXT    NOT NULL,
    quantity        INTEGER NOT NULL CHECK (quantity > 0),
    total_price     TEXT    NOT NULL,
    UNIQUE(order_id, line_no)
);

CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);
`

const selectOrdersWithItems = `
		SELECT o.id, o.order_number, o.customer_id, o.status, o.total_amount,
		       o.created_at, o.created_by, o.updated_at, o.updated_by,
		       i.id, i.product_id, i.product_name, i.price, i.quantity, i.total_price
		FROM   orders o
		JOIN   order_items i ON i.order_id = o.id
		WHERE  %s
		ORDER  BY o.created_at DESC, o.id DESC, i.line_no`

var _ ports.OrderStore = (*Repository)(nil)

// Repository is the SQLite implementation of ports.OrderStore.
type Repository struct {
	db       *sql.DB
	settings storage.Settings
}

// Open opens (or creates) the SQLite database at the given path and applies
// the schema. Use ":memory:" for a throwaway database.
//
//	repo, err := sqlite.Open("./data/orders.db")
func Open(path string, opts ...storage.Option) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection, and an in-memory
	// database only lives as long as its one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Repository{db: db, settings: storage.Apply(opts...)}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Save inserts the order and its items in one transaction.
func (r *Repository) Save(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.StoreUnavailable("save", err)
	}
	defer func() { _ = tx.Rollback() }()

	stored := *order
	stored.Audit = r.settings.Stamp()
	stored.Items = append([]domain.LineItem(nil), order.Items...)

	const insertOrder = `
		INSERT INTO orders
			(order_number, customer_id, status, total_amount, created_at, created_by, updated_at, updated_by)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := tx.ExecContext(ctx, insertOrder,
		stored.OrderNumber,
		stored.CustomerID,
		string(stored.Status),
		stored.TotalAmount.String(),
		formatTime(stored.Audit.CreatedAt),
		stored.Audit.CreatedBy,
		formatTime(stored.Audit.UpdatedAt),
		stored.Audit.UpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.OrderNumberConflict(stored.OrderNumber, err)
		}
		return nil, domain.StoreUnavailable("save", fmt.Errorf("sqlite: insert order %q: %w", stored.OrderNumber, err))
	}
	if stored.ID, err = res.LastInsertId(); err != nil {
		return nil, domain.StoreUnavailable("save", err)
	}

	const insertItem = `
		INSERT INTO order_items
			(order_id, line_no, product_id, product_name, price, quantity, total_price)
		VALUES
			(?, ?, ?, ?, ?, ?, ?)`

	for i := range stored.Items {
		it := &stored.Items[i]
		res, err := tx.ExecContext(ctx, insertItem,
			stored.ID, i, it.ProductID, it.ProductName, it.Price.String(), it.Quantity, it.TotalPrice.String())
		if err != nil {
			return nil, domain.StoreUnavailable("save", fmt.Errorf("sqlite: insert item %d of %q: %w", i, stored.OrderNumber, err))
		}
		if it.ID, err = res.LastInsertId(); err != nil {
			return nil, domain.StoreUnavailable("save", err)
		}
		it.OrderID = stored.ID
	}

	if err := tx.Commit(); err != nil {
		return nil, domain.StoreUnavailable("save", fmt.Errorf("sqlite: commit %q: %w", stored.OrderNumber, err))
	}
	return &stored, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	orders, err := r.queryOrders(ctx, "o.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, domain.OrderNotFound("id=" + strconv.FormatInt(id, 10))
	}
	return &orders[0], nil
}

func (r *Repository) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	orders, err := r.queryOrders(ctx, "o.order_number = ?", orderNumber)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, domain.OrderNotFound("orderNumber=" + orderNumber)
	}
	return &orders[0], nil
}

func (r *Repository) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	return r.queryOrders(ctx, "o.customer_id = ?", customerID)
}

func (r *Repository) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	return r.queryOrders(ctx, "o.status = ?", string(status))
}

func (r *Repository) ListSummaries(ctx context.Context) ([]domain.OrderSummary, error) {
	const q = `
		SELECT id, order_number, customer_id, status, total_amount
		FROM   orders
		ORDER  BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, q)
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
			return nil, fmt.Errorf("sqlite: order %d total %q: %w", s.ID, total, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreUnavailable("list summaries", err)
	}
	return out, nil
}

// queryOrders loads every matching order together with its items in a single
// query and folds the joined rows back into aggregates.
func (r *Repository) queryOrders(ctx context.Context, where string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(selectOrdersWithItems, where), args...)
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
			createdAt, updatedAt string
			itemPrice, itemTotal string
		)
		err := rows.Scan(
			&o.ID, &o.OrderNumber, &o.CustomerID, &status, &total,
			&createdAt, &o.Audit.CreatedBy, &updatedAt, &o.Audit.UpdatedBy,
			&it.ID, &it.ProductID, &it.ProductName, &itemPrice, &it.Quantity, &itemTotal,
		)
		if err != nil {
			return nil, domain.StoreUnavailable("read", err)
		}

		if n := len(orders); n == 0 || orders[n-1].ID != o.ID {
			o.Status = domain.OrderStatus(status)
			if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
				return nil, fmt.Errorf("sqlite: order %d total %q: %w", o.ID, total, err)
			}
			if o.Audit.CreatedAt, err = parseTime(createdAt); err != nil {
				return nil, err
			}
			if o.Audit.UpdatedAt, err = parseTime(updatedAt); err != nil {
				return nil, err
			}
			orders = append(orders, o)
		}

		it.OrderID = o.ID
		if it.Price, err = decimal.NewFromString(itemPrice); err != nil {
			return nil, fmt.Errorf("sqlite: item %d price %q: %w", it.ID, itemPrice, err)
		}
		if it.TotalPrice, err = decimal.NewFromString(itemTotal); err != nil {
			return nil, fmt.Errorf("sqlite: item %d total %q: %w", it.ID, itemTotal, err)
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
	var se *moderncsqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
