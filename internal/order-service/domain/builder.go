package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const orderNumberPrefix = "ORD-"

// OrderNumberPattern matches every number produced by NewOrderNumber.
var OrderNumberPattern = regexp.MustCompile(`^ORD-[0-9a-f]{8}$`)

// NewOrderNumber returns a short random business key. Uniqueness is only
// probabilistic here; the store's unique constraint is the real guard.
func NewOrderNumber() string {
	return orderNumberPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Builder assembles order aggregates from a request and its catalog snapshots.
type Builder struct {
	newNumber func() string
}

func NewBuilder() *Builder {
	return &Builder{newNumber: NewOrderNumber}
}

// NewBuilderWithNumbers lets callers control order number generation.
func NewBuilderWithNumbers(gen func() string) *Builder {
	return &Builder{newNumber: gen}
}

// Build returns a new CREATED order. snapshots must line up one-to-one with
// lines; any gap fails the whole build.
func (b *Builder) Build(customerID string, lines []LineRequest, snapshots []ProductSnapshot) (*Order, error) {
	if len(lines) == 0 {
		return nil, Validation("Input validation failed", map[string]string{
			"items": "Order must contain at least one item",
		})
	}
	if len(snapshots) != len(lines) {
		return nil, &Error{
			Kind:    KindInternal,
			Code:    CodeIncompleteEnrich,
			Message: fmt.Sprintf("got %d product snapshots for %d order lines", len(snapshots), len(lines)),
		}
	}

	items := make([]LineItem, len(lines))
	total := decimal.Zero
	for i, line := range lines {
		snap := snapshots[i]
		if snap.ProductID != line.ProductID {
			return nil, &Error{
				Kind:    KindInternal,
				Code:    CodeIncompleteEnrich,
				Message: fmt.Sprintf("line %d: no snapshot for product id=%d", i, line.ProductID),
			}
		}
		lineTotal := LineTotal(snap.Price, line.Quantity)
		items[i] = LineItem{
			ProductID:   line.ProductID,
			ProductName: snap.Name,
			Price:       snap.Price,
			Quantity:    line.Quantity,
			TotalPrice:  lineTotal,
		}
		total = total.Add(lineTotal)
	}

	return &Order{
		OrderNumber: b.newNumber(),
		CustomerID:  customerID,
		Status:      StatusCreated,
		TotalAmount: total,
		Items:       items,
	}, nil
}

// LineTotal is price * quantity at currency precision.
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity))).Round(CurrencyScale)
}
