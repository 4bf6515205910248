package cached

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/storage"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/storage/memory"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/storage/storetest"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/cache"
)

// countingStore records how many single-order reads reach the backing store.
type countingStore struct {
	ports.OrderStore
	reads int
}

func (c *countingStore) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	c.reads++
	return c.OrderStore.GetByID(ctx, id)
}

func (c *countingStore) GetByOrderNumber(ctx context.Context, n string) (*domain.Order, error) {
	c.reads++
	return c.OrderStore.GetByOrderNumber(ctx, n)
}

type brokenCache struct{ cache.Cache }

func (brokenCache) Get(context.Context, string) (string, error) { return "", errors.New("connection refused") }
func (brokenCache) Set(context.Context, string, interface{}, time.Duration) error {
	return errors.New("connection refused")
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T, now func() time.Time) ports.OrderStore {
		return NewStore(memory.NewStore(storage.WithClock(now)), cache.NewMemory("order", 100, time.Minute), time.Minute)
	})
}

func TestSave_PrimesBothKeys(t *testing.T) {
	backing := &countingStore{OrderStore: memory.NewStore()}
	s := NewStore(backing, cache.NewMemory("order", 100, time.Minute), time.Minute)
	ctx := context.Background()

	stored, err := s.Save(ctx, storetest.NewOrder("ORD-cach0001", "CUST1"))
	require.NoError(t, err)

	byID, err := s.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	byNumber, err := s.GetByOrderNumber(ctx, stored.OrderNumber)
	require.NoError(t, err)

	assert.Zero(t, backing.reads)
	storetest.AssertSameOrder(t, stored, byID)
	storetest.AssertSameOrder(t, stored, byNumber)
}

func TestGetByID_ReadThrough(t *testing.T) {
	inner := memory.NewStore()
	stored, err := inner.Save(context.Background(), storetest.NewOrder("ORD-cach0002", "CUST1"))
	require.NoError(t, err)

	backing := &countingStore{OrderStore: inner}
	s := NewStore(backing, cache.NewMemory("order", 100, time.Minute), time.Minute)

	for i := 0; i < 3; i++ {
		got, err := s.GetByID(context.Background(), stored.ID)
		require.NoError(t, err)
		storetest.AssertSameOrder(t, stored, got)
	}
	assert.Equal(t, 1, backing.reads)
}

func TestNotFoundIsNotCached(t *testing.T) {
	backing := &countingStore{OrderStore: memory.NewStore()}
	s := NewStore(backing, cache.NewMemory("order", 100, time.Minute), time.Minute)

	for i := 0; i < 2; i++ {
		_, err := s.GetByOrderNumber(context.Background(), "ORD-nope0000")
		assert.True(t, errors.Is(err, domain.ErrOrderNotFound))
	}
	assert.Equal(t, 2, backing.reads)
}

func TestCacheFailureFallsBackToStore(t *testing.T) {
	s := NewStore(memory.NewStore(), brokenCache{cache.NewMemory("order", 100, time.Minute)}, time.Minute)
	ctx := context.Background()

	stored, err := s.Save(ctx, storetest.NewOrder("ORD-cach0003", "CUST1"))
	require.NoError(t, err)

	got, err := s.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	storetest.AssertSameOrder(t, stored, got)
}
