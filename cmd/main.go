package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"marketplace/voucherhub/internal/config"
	"marketplace/voucherhub/internal/handler"
	"marketplace/voucherhub/internal/metrics"
	"marketplace/voucherhub/internal/model"
	"marketplace/voucherhub/internal/repository"
	"marketplace/voucherhub/internal/service"
	jwtpkg "marketplace/voucherhub/pkg/jwt"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Initialize logger
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	// 3. Connect to PostgreSQL
	db, err := config.NewPostgresDB(cfg.Database.Postgres)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}

	// 4. Auto-migrate if enabled
	if cfg.Database.Postgres.AutoMigrate {
		if err := model.AutoMigrate(db); err != nil {
			logger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		logger.Info("database migration completed")
	}

	// 5. Initialize cache (Redis or in-memory)
	var cache repository.Cache
	switch cfg.Cache.Backend {
	case "redis":
		redisClient, err := config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		cache = repository.NewRedisCache(redisClient)
		logger.Info("using Redis cache")
	case "memory":
		cache = repository.NewMemoryCache()
		logger.Info("using in-memory cache")
	default:
		logger.Fatal("unknown cache backend", zap.String("backend", cfg.Cache.Backend))
	}

	// 6. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(registry)

	// 7. Initialize services
	store := repository.NewPGStore(db)
	opts := service.Options{
		Cache:               cache,
		Logger:              logger,
		Metrics:             recorder,
		ClaimExpiry:         cfg.Voucher.ClaimExpiry,
		CacheTTL:            cfg.Cache.TTL,
		InvalidationTimeout: cfg.Cache.InvalidationTimeout,
		ListLimit:           cfg.Voucher.ListPageSize,
	}
	resolver := service.NewCodeResolver(store.Vouchers())
	voucherService := service.NewVoucherService(store, service.NewCodeGenerator(), opts)
	claimService := service.NewClaimService(store, opts)
	redemptionService := service.NewRedemptionService(store, opts)
	scanService := service.NewScanService(store, resolver, opts)

	// 8. Initialize handlers
	jwtManager := jwtpkg.NewManager(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)
	voucherHandler := handler.NewVoucherHandler(voucherService, claimService, redemptionService, scanService, resolver)
	businessHandler := handler.NewBusinessHandler(voucherService, redemptionService, scanService)
	adminHandler := handler.NewAdminHandler(voucherService)

	// 9. Setup router
	router := handler.SetupRouter(cfg, logger, jwtManager, registry, voucherHandler, businessHandler, adminHandler)

	// 10. Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 11. Start expiry sweep
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		runExpirySweep(sweepCtx, logger, voucherService, cfg.Voucher.ExpirySweepInterval)
	}()

	// 12. Start server with graceful shutdown
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// 13. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	stopSweep()
	<-sweepDone

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exited gracefully")
}

// runExpirySweep expires overdue vouchers every interval until ctx is done.
// A non-positive interval disables the sweep.
func runExpirySweep(ctx context.Context, logger *zap.Logger, vouchers service.VoucherService, interval time.Duration) {
	if interval <= 0 {
		logger.Info("expiry sweep disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := vouchers.ExpireOverdue(ctx); err != nil && ctx.Err() == nil {
				logger.Error("expiry sweep failed", zap.Error(err))
			}
		}
	}
}
