// Package memory is an in-process Order Store for local development and tests.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/storage"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
)

var _ ports.OrderStore = (*Store)(nil)

type Store struct {
	mu        sync.RWMutex
	settings  storage.Settings
	lastOrder int64
	lastItem  int64
	byID      map[int64]*domain.Order
	byNumber  map[string]int64
}

func NewStore(opts ...storage.Option) *Store {
	return &Store{
		settings: storage.Apply(opts...),
		byID:     make(map[int64]*domain.Order),
		byNumber: make(map[string]int64),
	}
}

func (s *Store) Save(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byNumber[order.OrderNumber]; exists {
		return nil, domain.OrderNumberConflict(order.OrderNumber, nil)
	}

	stored := clone(order)
	s.lastOrder++
	stored.ID = s.lastOrder
	stored.Audit = s.settings.Stamp()
	for i := range stored.Items {
		s.lastItem++
		stored.Items[i].ID = s.lastItem
		stored.Items[i].OrderID = stored.ID
	}

	s.byID[stored.ID] = stored
	s.byNumber[stored.OrderNumber] = stored.ID
	return clone(stored), nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.byID[id]
	if !ok {
		return nil, domain.OrderNotFound("id=" + strconv.FormatInt(id, 10))
	}
	return clone(o), nil
}

func (s *Store) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byNumber[orderNumber]
	if !ok {
		return nil, domain.OrderNotFound("orderNumber=" + orderNumber)
	}
	return clone(s.byID[id]), nil
}

func (s *Store) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	return s.filter(func(o *domain.Order) bool { return o.CustomerID == customerID }), nil
}

func (s *Store) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	return s.filter(func(o *domain.Order) bool { return o.Status == status }), nil
}

// ListSummaries projects straight from the stored aggregates; items are never copied.
func (s *Store) ListSummaries(ctx context.Context) ([]domain.OrderSummary, error) {
	s.mu.RLock()
	type entry struct {
		summary   domain.OrderSummary
		createdAt time.Time
	}
	entries := make([]entry, 0, len(s.byID))
	for _, o := range s.byID {
		entries = append(entries, entry{summary: o.Summary(), createdAt: o.Audit.CreatedAt})
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.createdAt.Equal(b.createdAt) {
			return a.createdAt.After(b.createdAt)
		}
		return a.summary.ID > b.summary.ID
	})

	out := make([]domain.OrderSummary, len(entries))
	for i, e := range entries {
		out[i] = e.summary
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) filter(keep func(*domain.Order) bool) []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Order, 0)
	for _, o := range s.byID {
		if keep(o) {
			out = append(out, *clone(o))
		}
	}
	storage.SortNewestFirst(out)
	return out
}

func clone(o *domain.Order) *domain.Order {
	c := *o
	c.Items = append([]domain.LineItem(nil), o.Items...)
	return &c
}
