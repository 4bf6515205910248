// Package config loads the order-service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jcmexdev/ecommerce-orders/internal/pkg/telemetry"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	HTTPPort string
	GRPCPort string

	StoreDriver string
	SQLitePath  string
	DatabaseURL string
	Auditor     string

	CatalogBaseURL           string
	CatalogTimeout           time.Duration
	CatalogLookupConcurrency int

	RedisAddr      string
	OrderCacheTTL  time.Duration
	OrderCacheSize int

	LogLevel         slog.Level
	ServiceName      string
	Environment      string
	OTLPEndpoint     string
	TracingDisabled  bool
	TraceSampleRatio float64
	ShutdownTimeout  time.Duration
}

// Load reads every setting, falling back to defaults for unset variables.
// All invalid values are reported together.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	env := func(key, fallback string) string {
		if value := strings.TrimSpace(getenv(key)); value != "" {
			return value
		}
		return fallback
	}

	var errs []error
	duration := func(key, fallback string) time.Duration {
		raw := env(key, fallback)
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", key, raw))
			return 0
		}
		return d
	}
	positiveInt := func(key, fallback string) int {
		raw := env(key, fallback)
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			errs = append(errs, fmt.Errorf("%s: must be a positive integer, got %q", key, raw))
			return 0
		}
		return n
	}
	boolean := func(key string) bool {
		raw := env(key, "false")
		b, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid boolean %q", key, raw))
		}
		return b
	}

	ratio := func(key, fallback string) float64 {
		raw := env(key, fallback)
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f < 0 || f > 1 {
			errs = append(errs, fmt.Errorf("%s: must be a number in [0,1], got %q", key, raw))
			return 0
		}
		return f
	}

	cfg := Config{
		HTTPPort:                 env("HTTP_PORT", "8080"),
		GRPCPort:                 env("GRPC_PORT", "9090"),
		StoreDriver:              strings.ToLower(env("STORE_DRIVER", DriverSQLite)),
		SQLitePath:               env("SQLITE_PATH", "./data/orders.db"),
		DatabaseURL:              env("DATABASE_URL", ""),
		Auditor:                  env("AUDITOR", "SYSTEM"),
		CatalogBaseURL:           env("CATALOG_BASE_URL", "http://localhost:8081/api/v1"),
		CatalogTimeout:           duration("CATALOG_TIMEOUT", "3s"),
		CatalogLookupConcurrency: positiveInt("CATALOG_LOOKUP_CONCURRENCY", "1"),
		RedisAddr:                env("REDIS_ADDR", ""),
		OrderCacheTTL:            duration("ORDER_CACHE_TTL", "10m"),
		OrderCacheSize:           positiveInt("ORDER_CACHE_SIZE", "10000"),
		ServiceName:              env("OTEL_SERVICE_NAME", "order-service"),
		Environment:              env("DEPLOYMENT_ENVIRONMENT", "development"),
		OTLPEndpoint:             env("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TracingDisabled:          boolean("OTEL_SDK_DISABLED"),
		TraceSampleRatio:         ratio("OTEL_TRACES_SAMPLER_ARG", "1"),
		ShutdownTimeout:          duration("SHUTDOWN_TIMEOUT", "10s"),
	}

	level, err := telemetry.ParseLevel(env("LOG_LEVEL", "info"))
	if err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	cfg.LogLevel = level

	switch cfg.StoreDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL: required when STORE_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER: unknown driver %q (want memory, sqlite or postgres)", cfg.StoreDriver))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c Config) HTTPAddr() string { return ":" + c.HTTPPort }

func (c Config) GRPCAddr() string { return ":" + c.GRPCPort }
