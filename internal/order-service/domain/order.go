package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyScale is the number of decimal places kept for every monetary amount.
const CurrencyScale = 2

type Order struct {
	ID          int64
	OrderNumber string
	CustomerID  string
	Status      OrderStatus
	TotalAmount decimal.Decimal
	Items       []LineItem
	Audit       Audit
}

// LineItem is a snapshot of a catalog product taken when the order was placed.
// Price and ProductName never follow later catalog changes.
type LineItem struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	ProductName string
	Price       decimal.Decimal
	Quantity    int
	TotalPrice  decimal.Decimal
}

type Audit struct {
	CreatedAt time.Time
	CreatedBy string
	UpdatedAt time.Time
	UpdatedBy string
}

// OrderSummary is the list projection of an order: no items, no audit.
type OrderSummary struct {
	ID          int64
	OrderNumber string
	CustomerID  string
	Status      OrderStatus
	TotalAmount decimal.Decimal
}

func (o *Order) Summary() OrderSummary {
	return OrderSummary{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
	}
}

type OrderStatus string

const (
	StatusCreated   OrderStatus = "CREATED"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusShipped   OrderStatus = "SHIPPED"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusCancelled OrderStatus = "CANCELLED"
)

var knownStatuses = []OrderStatus{
	StatusCreated,
	StatusConfirmed,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// ParseStatus resolves a status token case-insensitively.
func ParseStatus(token string) (OrderStatus, error) {
	want := OrderStatus(strings.ToUpper(strings.TrimSpace(token)))
	for _, s := range knownStatuses {
		if s == want {
			return s, nil
		}
	}
	return "", Validation("Invalid order status", map[string]string{
		"status": "unrecognized order status '" + token + "'",
	})
}

// ProductSnapshot is the catalog view of a product at lookup time.
type ProductSnapshot struct {
	ProductID int64
	Name      string
	Price     decimal.Decimal
}

type LineRequest struct {
	ProductID int64
	Quantity  int
}

type CreateOrderRequest struct {
	CustomerID string
	Items      []LineRequest
}
