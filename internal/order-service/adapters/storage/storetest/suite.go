// Package storetest is the behavioural contract every ports.OrderStore
// implementation is tested against.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
)

// Factory returns an empty store that stamps audit times with now.
type Factory func(t *testing.T, now func() time.Time) ports.OrderStore

// StepClock advances by one second on every call.
type StepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func NewStepClock() *StepClock {
	return &StepClock{cur: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

// NewOrder builds an unsaved order whose totals satisfy the aggregate invariants.
func NewOrder(number, customerID string, lines ...domain.LineItem) *domain.Order {
	if len(lines) == 0 {
		lines = []domain.LineItem{{ProductID: 10, ProductName: "Widget", Price: decimal.RequireFromString("19.99"), Quantity: 2}}
	}
	total := decimal.Zero
	items := make([]domain.LineItem, len(lines))
	for i, l := range lines {
		l.TotalPrice = domain.LineTotal(l.Price, l.Quantity)
		total = total.Add(l.TotalPrice)
		items[i] = l
	}
	return &domain.Order{
		OrderNumber: number,
		CustomerID:  customerID,
		Status:      domain.StatusCreated,
		TotalAmount: total,
		Items:       items,
	}
}

func Run(t *testing.T, newStore Factory) {
	t.Run("SaveAssignsIdentityAndAudit", func(t *testing.T) { testSave(t, newStore) })
	t.Run("GetByID", func(t *testing.T) { testGetByID(t, newStore) })
	t.Run("GetByOrderNumber", func(t *testing.T) { testGetByOrderNumber(t, newStore) })
	t.Run("DuplicateOrderNumber", func(t *testing.T) { testDuplicate(t, newStore) })
	t.Run("ConcurrentDuplicate", func(t *testing.T) { testConcurrentDuplicate(t, newStore) })
	t.Run("ListByCustomer", func(t *testing.T) { testListByCustomer(t, newStore) })
	t.Run("ListByStatus", func(t *testing.T) { testListByStatus(t, newStore) })
	t.Run("ListSummariesNewestFirst", func(t *testing.T) { testListSummaries(t, newStore) })
	t.Run("RepeatedReadsAreIdentical", func(t *testing.T) { testRepeatedReads(t, newStore) })
}

func testSave(t *testing.T, newStore Factory) {
	clock := NewStepClock()
	store := newStore(t, clock.Now)
	ctx := context.Background()

	in := NewOrder("ORD-aaaa0001", "CUST1",
		domain.LineItem{ProductID: 10, ProductName: "Widget", Price: decimal.RequireFromString("19.99"), Quantity: 2},
		domain.LineItem{ProductID: 11, ProductName: "Gadget", Price: decimal.RequireFromString("5.25"), Quantity: 3},
	)

	stored, err := store.Save(ctx, in)
	require.NoError(t, err)

	assert.Greater(t, stored.ID, int64(0))
	assert.Equal(t, "ORD-aaaa0001", stored.OrderNumber)
	assert.False(t, stored.Audit.CreatedAt.IsZero())
	assert.True(t, stored.Audit.CreatedAt.Equal(stored.Audit.UpdatedAt))
	assert.NotEmpty(t, stored.Audit.CreatedBy)
	assert.Equal(t, stored.Audit.CreatedBy, stored.Audit.UpdatedBy)

	require.Len(t, stored.Items, 2)
	for i, it := range stored.Items {
		assert.Greater(t, it.ID, int64(0))
		assert.Equal(t, stored.ID, it.OrderID)
		assert.Equal(t, in.Items[i].ProductID, it.ProductID)
	}
	assert.True(t, decimal.RequireFromString("55.73").Equal(stored.TotalAmount), "got %s", stored.TotalAmount)
}

func testGetByID(t *testing.T, newStore Factory) {
	store := newStore(t, NewStepClock().Now)
	ctx := context.Background()

	stored, err := store.Save(ctx, NewOrder("ORD-aaaa0002", "CUST1"))
	require.NoError(t, err)

	got, err := store.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	AssertSameOrder(t, stored, got)

	_, err = store.GetByID(ctx, stored.ID+1000)
	assert.True(t, errors.Is(err, domain.ErrOrderNotFound), "got %v", err)
}

func testGetByOrderNumber(t *testing.T, newStore Factory) {
	store := newStore(t, NewStepClock().Now)
	ctx := context.Background()

	stored, err := store.Save(ctx, NewOrder("ORD-aaaa0003", "CUST1"))
	require.NoError(t, err)

	got, err := store.GetByOrderNumber(ctx, "ORD-aaaa0003")
	require.NoError(t, err)
	AssertSameOrder(t, stored, got)

	_, err = store.GetByOrderNumber(ctx, "ORD-missing0")
	assert.True(t, errors.Is(err, domain.ErrOrderNotFound), "got %v", err)
}

func testDuplicate(t *testing.T, newStore Factory) {
	store := newStore(t, NewStepClock().Now)
	ctx := context.Background()

	first, err := store.Save(ctx, NewOrder("ORD-dup00001", "CUST1"))
	require.NoError(t, err)

	_, err = store.Save(ctx, NewOrder("ORD-dup00001", "CUST2"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOrderNumberConflict), "got %v", err)

	summaries, err := store.ListSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, first.ID, summaries[0].ID)

	orders, err := store.ListByCustomer(ctx, "CUST2")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func testConcurrentDuplicate(t *testing.T, newStore Factory) {
	store := newStore(t, NewStepClock().Now)
	ctx := context.Background()

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Save(ctx, NewOrder("ORD-race0001", fmt.Sprintf("CUST%d", i)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrOrderNumberConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, writers-1, conflicts)
}

func testListByCustomer(t *testing.T, newStore Factory) {
	store := newStore(t, NewStepClock().Now)
	ctx := context.Background()

	a, err := store.Save(ctx, NewOrder("ORD-cust0001", "CUST1"))
	require.NoError(t, err)
	_, err = store.Save(ctx, NewOrder("ORD-cust0002", "CUST2"))
	require.NoError(t, err)
	b, err := store.Save(ctx, NewOrder("ORD-cust0003", "CUST1",
		domain.LineItem{ProductID: 1, ProductName: "A", Price: decimal.RequireFromString("1.00"), Quantity: 1},
		domain.LineItem{ProductID: 2, ProductName: "B", Price: decimal.RequireFromString("2.00"), Quantity: 2},
	))
	require.NoError(t, err)

	orders, err := store.ListByCustomer(ctx, "CUST1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	AssertSameOrder(t, b, &orders[0])
	AssertSameOrder(t, a, &orders[1])

	none, err := store.ListByCustomer(ctx, "NOBODY")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testListByStatus(t *testing.T, newStore Factory) {
	store := newStore(t, NewStepClock().Now)
	ctx := context.Background()

	_, err := store.Save(ctx, NewOrder("ORD-stat0001", "CUST1"))
	require.NoError(t, err)
	_, err = store.Save(ctx, NewOrder("ORD-stat0002", "CUST2"))
	require.NoError(t, err)

	created, err := store.ListByStatus(ctx, domain.StatusCreated)
	require.NoError(t, err)
	require.Len(t, created, 2)
	for _, o := range created {
		assert.NotEmpty(t, o.Items, "orders are always loaded with their items")
	}

	shipped, err := store.ListByStatus(ctx, domain.StatusShipped)
	require.NoError(t, err)
	assert.Empty(t, shipped)
}

func testListSummaries(t *testing.T, newStore Factory) {
	store := newStore(t, NewStepClock().Now)
	ctx := context.Background()

	var numbers []string
	for i := 1; i <= 3; i++ {
		o, err := store.Save(ctx, NewOrder(fmt.Sprintf("ORD-summ000%d", i), fmt.Sprintf("CUST%d", i)))
		require.NoError(t, err)
		numbers = append(numbers, o.OrderNumber)
	}

	summaries, err := store.ListSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, numbers[2], summaries[0].OrderNumber)
	assert.Equal(t, numbers[1], summaries[1].OrderNumber)
	assert.Equal(t, numbers[0], summaries[2].OrderNumber)
	assert.Equal(t, domain.StatusCreated, summaries[0].Status)
	assert.True(t, decimal.RequireFromString("39.98").Equal(summaries[0].TotalAmount))
}

func testRepeatedReads(t *testing.T, newStore Factory) {
	store := newStore(t, NewStepClock().Now)
	ctx := context.Background()

	stored, err := store.Save(ctx, NewOrder("ORD-read0001", "CUST1",
		domain.LineItem{ProductID: 3, ProductName: "C", Price: decimal.RequireFromString("0.33"), Quantity: 3},
		domain.LineItem{ProductID: 4, ProductName: "D", Price: decimal.RequireFromString("12.10"), Quantity: 1},
	))
	require.NoError(t, err)

	first, err := store.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := store.GetByID(ctx, stored.ID)
		require.NoError(t, err)
		AssertSameOrder(t, first, again)

		byNumber, err := store.GetByOrderNumber(ctx, stored.OrderNumber)
		require.NoError(t, err)
		AssertSameOrder(t, first, byNumber)
	}
}

// AssertSameOrder compares two aggregates field by field, using decimal and
// time equality rather than struct identity.
func AssertSameOrder(t *testing.T, want, got *domain.Order) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.OrderNumber, got.OrderNumber)
	assert.Equal(t, want.CustomerID, got.CustomerID)
	assert.Equal(t, want.Status, got.Status)
	assert.True(t, want.TotalAmount.Equal(got.TotalAmount), "total: want %s got %s", want.TotalAmount, got.TotalAmount)
	assert.True(t, want.Audit.CreatedAt.Equal(got.Audit.CreatedAt), "created_at: want %s got %s", want.Audit.CreatedAt, got.Audit.CreatedAt)
	assert.True(t, want.Audit.UpdatedAt.Equal(got.Audit.UpdatedAt))
	assert.Equal(t, want.Audit.CreatedBy, got.Audit.CreatedBy)
	assert.Equal(t, want.Audit.UpdatedBy, got.Audit.UpdatedBy)

	require.Len(t, got.Items, len(want.Items))
	for i := range want.Items {
		w, g := want.Items[i], got.Items[i]
		assert.Equal(t, w.ID, g.ID)
		assert.Equal(t, w.OrderID, g.OrderID)
		assert.Equal(t, w.ProductID, g.ProductID)
		assert.Equal(t, w.ProductName, g.ProductName)
		assert.Equal(t, w.Quantity, g.Quantity)
		assert.True(t, w.Price.Equal(g.Price), "price: want %s got %s", w.Price, g.Price)
		assert.True(t, w.TotalPrice.Equal(g.TotalPrice))
	}
}
