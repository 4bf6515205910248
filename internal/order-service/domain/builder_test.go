package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestBuild_SingleLine(t *testing.T) {
	b := NewBuilder()

	order, err := b.Build("CUST1",
		[]LineRequest{{ProductID: 10, Quantity: 2}},
		[]ProductSnapshot{{ProductID: 10, Name: "Widget", Price: dec("19.99")}},
	)
	require.NoError(t, err)

	require.Len(t, order.Items, 1)
	item := order.Items[0]
	assert.Equal(t, int64(10), item.ProductID)
	assert.Equal(t, "Widget", item.ProductName)
	assert.True(t, dec("19.99").Equal(item.Price))
	assert.Equal(t, 2, item.Quantity)
	assert.True(t, dec("39.98").Equal(item.TotalPrice), "got %s", item.TotalPrice)
	assert.True(t, dec("39.98").Equal(order.TotalAmount), "got %s", order.TotalAmount)
	assert.Equal(t, StatusCreated, order.Status)
	assert.Equal(t, "CUST1", order.CustomerID)
	assert.Regexp(t, OrderNumberPattern, order.OrderNumber)
	assert.Zero(t, order.ID)
}

func TestBuild_TotalIsSumOfLines(t *testing.T) {
	b := NewBuilderWithNumbers(func() string { return "ORD-00000001" })

	lines := []LineRequest{
		{ProductID: 1, Quantity: 3},
		{ProductID: 2, Quantity: 1},
		{ProductID: 1, Quantity: 7},
	}
	snaps := []ProductSnapshot{
		{ProductID: 1, Name: "Bolt", Price: dec("0.10")},
		{ProductID: 2, Name: "Drill", Price: dec("149.50")},
		{ProductID: 1, Name: "Bolt", Price: dec("0.10")},
	}

	order, err := b.Build("CUST9", lines, snaps)
	require.NoError(t, err)

	assert.Equal(t, "ORD-00000001", order.OrderNumber)
	require.Len(t, order.Items, 3)

	sum := decimal.Zero
	for i, it := range order.Items {
		assert.Equal(t, lines[i].ProductID, it.ProductID, "line order must follow the request")
		assert.True(t, it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))).Equal(it.TotalPrice))
		sum = sum.Add(it.TotalPrice)
	}
	assert.True(t, sum.Equal(order.TotalAmount))
	assert.True(t, dec("150.50").Equal(order.TotalAmount), "got %s", order.TotalAmount)
}

func TestBuild_IncompleteEnrichment(t *testing.T) {
	b := NewBuilder()
	lines := []LineRequest{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 1}}

	t.Run("missing snapshot", func(t *testing.T) {
		order, err := b.Build("C", lines, []ProductSnapshot{{ProductID: 1, Price: dec("1")}})
		assert.Nil(t, order)
		assert.True(t, errors.Is(err, ErrIncompleteEnrichment))
	})

	t.Run("snapshot for another product", func(t *testing.T) {
		order, err := b.Build("C", lines, []ProductSnapshot{
			{ProductID: 1, Price: dec("1")},
			{ProductID: 3, Price: dec("1")},
		})
		assert.Nil(t, order)
		assert.True(t, errors.Is(err, ErrIncompleteEnrichment))
		assert.Equal(t, KindInternal, KindOf(err))
	})
}

func TestBuild_NoLines(t *testing.T) {
	_, err := NewBuilder().Build("C", nil, nil)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestLineTotal_RoundsToCurrencyPrecision(t *testing.T) {
	assert.Equal(t, "3.00", LineTotal(dec("0.999"), 3).StringFixed(2))
	assert.Equal(t, "2.99", LineTotal(dec("0.995"), 3).StringFixed(2))
}

func TestNewOrderNumber_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 200)
	for i := 0; i < 200; i++ {
		n := NewOrderNumber()
		require.Regexp(t, OrderNumberPattern, n)
		_, dup := seen[n]
		require.False(t, dup, "duplicate order number %s", n)
		seen[n] = struct{}{}
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("created")
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, s)

	s, err = ParseStatus("SHIPPED")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, s)

	_, err = ParseStatus("LOST")
	require.Error(t, err)
	var de *Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, KindValidation, de.Kind)
	assert.Contains(t, de.Fields, "status")
}
