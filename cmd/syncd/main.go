package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-sync/internal/auth"
	"github.com/spec-kit/ticket-sync/internal/backend"
	"github.com/spec-kit/ticket-sync/internal/config"
	"github.com/spec-kit/ticket-sync/internal/coordinator"
	"github.com/spec-kit/ticket-sync/internal/events"
	"github.com/spec-kit/ticket-sync/internal/observability"
	"github.com/spec-kit/ticket-sync/internal/persistence"
	"github.com/spec-kit/ticket-sync/internal/refdata"
	"github.com/spec-kit/ticket-sync/internal/sla"
	"github.com/spec-kit/ticket-sync/internal/store"
	"github.com/spec-kit/ticket-sync/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	identity, err := auth.IdentityFromToken(cfg.Backend.AuthToken)
	if err != nil {
		logger.Warn("no usable session identity, dashboard is unscoped", zap.Error(err))
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	apiClient := backend.NewClient(cfg.Backend, logger)
	slaClient := sla.NewClient(cfg.SLA, logger)

	refCache := refdata.NewCache()
	snapshot := refdata.NewSnapshot(redis, cfg.Redis.SnapshotTTL())
	if err := refCache.Load(ctx, apiClient, snapshot, logger); err != nil {
		logger.Fatal("failed to load reference data", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	ticketStore := store.NewStore(store.Dependencies{
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		ListLimit:      cfg.Backend.ListPageSize,
		DashboardLimit: cfg.Backend.DashboardPageSize,
	})

	coord := coordinator.NewCoordinator(coordinator.Dependencies{
		Backend:  apiClient,
		SLA:      slaClient,
		Store:    ticketStore,
		RefData:  refCache,
		Identity: identity,
		Logger:   logger,
		Metrics:  metrics,
	})

	unsubscribe := dispatcher.Subscribe("", func(event events.Event) {
		logger.Debug("store changed", zap.String("event", string(event.Type)))
	})
	defer unsubscribe()

	refresh := worker.NewRefreshWorker(coord, cfg.Refresh.Interval(), cfg.Backend.DashboardPageSize, logger)
	go refresh.Run(ctx)

	logger.Info("ticket sync running",
		zap.String("backend", cfg.Backend.BaseURL),
		zap.String("env", cfg.App.Env))

	waitForShutdown(logger)
	cancel()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
