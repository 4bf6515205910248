package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/catalog"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/storage"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/storage/cached"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/storage/memory"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/storage/postgres"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/storage/sqlite"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/app"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/config"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/infra/httpx"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/cache"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/interceptors"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/metrics"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	telemetry.InitLogger(cfg.LogLevel, cfg.ServiceName)

	if err := run(cfg); err != nil {
		slog.Error("order service stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.SetupTracer(ctx, telemetry.TracerConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
		Disabled:    cfg.TracingDisabled,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	orderCache, closeCache := openCache(ctx, cfg)
	defer closeCache()
	cachedStore := cached.NewStore(store, orderCache, cfg.OrderCacheTTL)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	serverMetrics := metrics.NewServerMetrics(registry, "order_service")

	catalogClient := catalog.NewHTTPClient(cfg.CatalogBaseURL, cfg.CatalogTimeout,
		catalog.WithObserver(serverMetrics))
	orderService := app.NewOrderService(catalogClient, cachedStore,
		app.WithLookupConcurrency(cfg.CatalogLookupConcurrency))

	handler := httpx.NewHandler(orderService, cachedStore, httpx.WithOrderCounter(serverMetrics.OrdersCreated))
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           httpx.NewRouter(handler, httpx.WithMetrics(serverMetrics.Middleware, serverMetrics.Handler())),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(interceptors.RequestIDServerInterceptor()),
	)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr(), err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("order service HTTP running", "addr", httpServer.Addr, "store", cfg.StoreDriver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		slog.Info("order service gRPC health running", "addr", cfg.GRPCAddr())
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return watchHealth(gctx, store, healthServer)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down order service")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		return err
	})

	return g.Wait()
}

// watchHealth keeps the gRPC health status in line with store reachability.
func watchHealth(ctx context.Context, store ports.Pinger, hs *health.Server) error {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		status := healthpb.HealthCheckResponse_SERVING
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := store.Ping(pingCtx); err != nil && ctx.Err() == nil {
			slog.WarnContext(ctx, "order store unreachable", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		cancel()
		hs.SetServingStatus("", status)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

type pingingStore interface {
	ports.OrderStore
	ports.Pinger
}

func openStore(ctx context.Context, cfg config.Config) (pingingStore, func(), error) {
	opts := []storage.Option{storage.WithAuditor(cfg.Auditor)}

	switch cfg.StoreDriver {
	case config.DriverMemory:
		return memory.NewStore(opts...), func() {}, nil
	case config.DriverPostgres:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		repo, err := postgres.Connect(connectCtx, cfg.DatabaseURL, opts...)
		if err != nil {
			return nil, nil, err
		}
		return repo, closer("postgres", repo), nil
	default:
		if cfg.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
				return nil, nil, fmt.Errorf("sqlite: create data dir: %w", err)
			}
		}
		repo, err := sqlite.Open(cfg.SQLitePath, opts...)
		if err != nil {
			return nil, nil, err
		}
		return repo, closer("sqlite", repo), nil
	}
}

// openCache prefers Redis and falls back to an in-process cache when Redis
// is not configured or not reachable at startup.
func openCache(ctx context.Context, cfg config.Config) (cache.Cache, func()) {
	if cfg.RedisAddr == "" {
		return cache.NewMemory("order", cfg.OrderCacheSize, cfg.OrderCacheTTL), func() {}
	}

	rc := cache.NewRedisCache(cfg.RedisAddr, "order")
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		slog.Warn("redis unreachable, using in-process order cache", "addr", cfg.RedisAddr, "error", err)
		_ = rc.Close()
		return cache.NewMemory("order", cfg.OrderCacheSize, cfg.OrderCacheTTL), func() {}
	}
	return rc, closer("redis", rc)
}

func closer(name string, c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			slog.Error("close failed", "resource", name, "error", err)
		}
	}
}
