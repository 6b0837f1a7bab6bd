package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"loyalty-service/internal/config"
	hrest "loyalty-service/internal/handler/rest"
	"loyalty-service/internal/metrics"
	"loyalty-service/internal/pub"
	"loyalty-service/internal/repository"
	"loyalty-service/internal/router"
	"loyalty-service/internal/service"
	"loyalty-service/internal/usecase"
	"loyalty-service/shared/utils/cache"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

const (
	healthCheckInterval = 10 * time.Second
	shutdownTimeout     = 15 * time.Second
)

// NewLoyaltyServer wires the ledger and serves HTTP and gRPC health until ctx
// is cancelled or either listener fails.
func NewLoyaltyServer(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) error {
	if err := cfg.Catalog.Validate(); err != nil {
		return fmt.Errorf("invalid ledger catalog: %w", err)
	}

	// --- DB connection ---
	dbpool, err := config.ConnectDB(ctx, logger)
	if err != nil {
		return err
	}
	defer dbpool.Close()

	// --- Redis client ---
	ledgerCache := cache.NewCache([]string{cfg.RedisAddr}, cfg.RedisPass, false)
	rdb := ledgerCache.Client()
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, caches will miss", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	// --- Metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	ledgerMetrics := metrics.New(reg)

	// --- Event publishers ---
	kafkaWriter := pub.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	publisher := pub.Multi{
		pub.NewKafkaPublisher(kafkaWriter),
		pub.NewRedisPublisher(rdb, cfg.EventChannel),
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("failed to close publishers", zap.Error(err))
		}
	}()
	logger.Info("event publishers initialized",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic),
		zap.String("channel", cfg.EventChannel),
	)

	// --- Repositories ---
	ledgerRepo := repository.NewLedgerRepo(dbpool)
	catalogRepo := repository.NewCatalogRepo(dbpool)

	if err := service.NewCatalogSeeder(catalogRepo, cfg.Catalog, logger).SeedCatalog(ctx); err != nil {
		return err
	}

	// --- Usecases ---
	resolver := usecase.NewAccountResolver(cfg.Catalog, ledgerCache, logger)
	engine := usecase.NewTransferEngine(usecase.NewProjectUnitsConverter(logger), ledgerMetrics, logger)
	clearer := usecase.NewBlockedAmountClearer(resolver, logger)
	ledgerUC := usecase.NewLedgerUsecase(ledgerRepo, resolver, engine, clearer, ledgerCache, cfg.CacheTTL, publisher, ledgerMetrics, logger)

	// --- HTTP ---
	var triggerLimiter func(http.Handler) http.Handler
	if cfg.TriggerRateLimit > 0 {
		triggerLimiter = router.RateLimiter(rdb, cfg.TriggerRateLimit, cfg.TriggerRateWindow, cfg.TriggerRateBlock, "loyalty:ratelimit:triggers", logger)
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.SetupRoutes(hrest.NewLedgerRestHandler(ledgerUC, logger), reg, triggerLimiter, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// --- gRPC health ---
	grpcServer := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle: 5 * time.Minute,
			Time:              2 * time.Minute,
			Timeout:           20 * time.Second,
		}),
	)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("gRPC health server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		watchHealth(gctx, ledgerRepo, healthServer, logger)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down loyalty service")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
		grpcServer.GracefulStop()
		return nil
	})

	return g.Wait()
}

// watchHealth mirrors database reachability into the gRPC health status.
func watchHealth(ctx context.Context, repo repository.LedgerRepository, hs *health.Server, logger *zap.Logger) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	last := grpc_health_v1.HealthCheckResponse_UNKNOWN
	for {
		status := grpc_health_v1.HealthCheckResponse_SERVING
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := repo.Ping(pingCtx); err != nil {
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			if ctx.Err() == nil {
				logger.Warn("database ping failed", zap.Error(err))
			}
		}
		cancel()

		if status != last {
			hs.SetServingStatus("", status)
			last = status
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
