package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fromMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(fromMap(nil))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr())
	assert.Equal(t, ":9090", cfg.GRPCAddr())
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "./data/orders.db", cfg.SQLitePath)
	assert.Equal(t, "SYSTEM", cfg.Auditor)
	assert.Equal(t, "http://localhost:8081/api/v1", cfg.CatalogBaseURL)
	assert.Equal(t, 3*time.Second, cfg.CatalogTimeout)
	assert.Equal(t, 1, cfg.CatalogLookupConcurrency)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 10*time.Minute, cfg.OrderCacheTTL)
	assert.Equal(t, 10000, cfg.OrderCacheSize)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "order-service", cfg.ServiceName)
	assert.False(t, cfg.TracingDisabled)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(fromMap(map[string]string{
		"HTTP_PORT":                  "9000",
		"STORE_DRIVER":               "Postgres",
		"DATABASE_URL":               "postgres://orders@localhost/orders",
		"CATALOG_TIMEOUT":            "750ms",
		"CATALOG_LOOKUP_CONCURRENCY": "4",
		"REDIS_ADDR":                 "redis:6379",
		"ORDER_CACHE_SIZE":           "250",
		"LOG_LEVEL":                  "debug",
		"OTEL_SDK_DISABLED":          "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr())
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 750*time.Millisecond, cfg.CatalogTimeout)
	assert.Equal(t, 4, cfg.CatalogLookupConcurrency)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 250, cfg.OrderCacheSize)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.True(t, cfg.TracingDisabled)
}

func TestLoad_ReportsEveryInvalidValue(t *testing.T) {
	_, err := load(fromMap(map[string]string{
		"STORE_DRIVER":               "postgres",
		"CATALOG_TIMEOUT":            "soon",
		"CATALOG_LOOKUP_CONCURRENCY": "0",
		"LOG_LEVEL":                  "loud",
	}))
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "DATABASE_URL")
	assert.Contains(t, msg, "CATALOG_TIMEOUT")
	assert.Contains(t, msg, "CATALOG_LOOKUP_CONCURRENCY")
	assert.Contains(t, msg, "LOG_LEVEL")
}

func TestLoad_UnknownDriver(t *testing.T) {
	_, err := load(fromMap(map[string]string{"STORE_DRIVER": "mongo"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongo")
}
