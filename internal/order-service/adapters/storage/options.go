// Package storage holds what the Order Store implementations share: audit
// stamping settings and the canonical ordering of list reads.
package storage

import (
	"sort"
	"time"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

// DefaultAuditor is stamped into created_by / updated_by when no caller identity exists.
const DefaultAuditor = "SYSTEM"

type Settings struct {
	Now     func() time.Time
	Auditor string
}

type Option func(*Settings)

// WithClock replaces the clock used for audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Settings) { s.Now = now }
}

func WithAuditor(name string) Option {
	return func(s *Settings) {
		if name != "" {
			s.Auditor = name
		}
	}
}

func Apply(opts ...Option) Settings {
	s := Settings{
		Now:     time.Now,
		Auditor: DefaultAuditor,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Stamp returns the audit block for an aggregate written now. Timestamps are
// kept at microsecond precision, the coarsest of the supported databases.
func (s Settings) Stamp() domain.Audit {
	now := s.Now().UTC().Truncate(time.Microsecond)
	return domain.Audit{
		CreatedAt: now,
		CreatedBy: s.Auditor,
		UpdatedAt: now,
		UpdatedBy: s.Auditor,
	}
}

// SortNewestFirst orders by creation time descending, ties broken by id descending.
func SortNewestFirst(orders []domain.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i].Audit.CreatedAt, orders[j].Audit.CreatedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return orders[i].ID > orders[j].ID
	})
}
