// Package cached puts a read-through cache in front of an Order Store.
//
// Stored orders are never mutated in place, so an aggregate cached under its
// id or order number stays valid until it expires; no invalidation is needed.
package cached

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/cache"
)

const (
	opByID     = "order:v1:id"
	opByNumber = "order:v1:number"
)

var _ ports.OrderStore = (*Store)(nil)

// Store caches single-order reads. List reads go straight to the wrapped store.
type Store struct {
	ports.OrderStore
	cache cache.Cache
	ttl   time.Duration
}

func NewStore(next ports.OrderStore, c cache.Cache, ttl time.Duration) *Store {
	return &Store{OrderStore: next, cache: c, ttl: ttl}
}

func (s *Store) Save(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	stored, err := s.OrderStore.Save(ctx, order)
	if err != nil {
		return nil, err
	}
	s.put(ctx, stored)
	return stored, nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	key := s.cache.GenerateKey(opByID, strconv.FormatInt(id, 10))
	if o, ok := s.get(ctx, key); ok {
		return o, nil
	}

	o, err := s.OrderStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.put(ctx, o)
	return o, nil
}

func (s *Store) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	key := s.cache.GenerateKey(opByNumber, orderNumber)
	if o, ok := s.get(ctx, key); ok {
		return o, nil
	}

	o, err := s.OrderStore.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	s.put(ctx, o)
	return o, nil
}

// Ping checks the wrapped store only; the cache is optional for serving.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.OrderStore.(ports.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) (*domain.Order, bool) {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "order cache read failed", "key", key, "error", err)
		return nil, false
	}
	if raw == "" {
		return nil, false
	}

	var o domain.Order
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		slog.WarnContext(ctx, "order cache entry unreadable", "key", key, "error", err)
		return nil, false
	}
	return &o, true
}

func (s *Store) put(ctx context.Context, o *domain.Order) {
	raw, err := json.Marshal(o)
	if err != nil {
		slog.WarnContext(ctx, "order cache encode failed", "order_id", o.ID, "error", err)
		return
	}
	keys := []string{
		s.cache.GenerateKey(opByID, strconv.FormatInt(o.ID, 10)),
		s.cache.GenerateKey(opByNumber, o.OrderNumber),
	}
	for _, key := range keys {
		if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
			slog.WarnContext(ctx, "order cache write failed", "key", key, "error", err)
		}
	}
}
