package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMemorySize bounds the in-process cache when no size is configured.
const DefaultMemorySize = 10000

// Memory is an in-process Cache used when no Redis is configured and in
// tests. Entries share the TTL given to NewMemory; the least recently used
// entry is evicted once size is reached.
type Memory struct {
	lru         *expirable.LRU[string, string]
	serviceName string
}

func NewMemory(serviceName string, size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = DefaultMemorySize
	}
	return &Memory{
		lru:         expirable.NewLRU[string, string](size, nil, ttl),
		serviceName: serviceName,
	}
}

// Set stores value under key. The per-call ttl is ignored in favour of the
// cache-wide TTL.
func (m *Memory) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		s = fmt.Sprint(v)
	}
	m.lru.Add(key, s)
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.lru.Get(key)
	if !ok {
		return "", nil
	}
	return v, nil
}

func (m *Memory) GenerateKey(operation, key string) string {
	return fmt.Sprintf("%s:%s:%s", m.serviceName, operation, key)
}

// Len reports the number of entries currently held.
func (m *Memory) Len() int {
	return m.lru.Len()
}
