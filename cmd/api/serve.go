package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/repair-service/internal/api/http"
	"github.com/spec-kit/repair-service/internal/api/http/handlers"
	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/observability"
	"github.com/spec-kit/repair-service/internal/persistence"
	"github.com/spec-kit/repair-service/internal/service"
	"github.com/spec-kit/repair-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func runServe(ctx context.Context) error {
	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.close()
	cfg, logger := rt.cfg, rt.logger

	deps := map[string]handlers.Pinger{}
	if rt.pg != nil {
		deps["postgres"] = rt.pg
		if cfg.Postgres.RunMigrations {
			if err := rt.migrate(ctx); err != nil {
				logger.Error("failed to run migrations", zap.Error(err))
				return err
			}
		}
	}

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	worker.CountEvents(dispatcher, metrics)

	var reportCache service.ReportCache
	if rt.redis != nil {
		deps["redis"] = rt.redis
		reportCache = persistence.NewCache(rt.redis.Client, cfg.App.Name+":reports:")
		events.NewRedisForwarder(rt.redis.Client, cfg.Events.RedisChannel, logger).Register(dispatcher)
	}

	services := service.NewServices(*cfg, rt.store, dispatcher, reportCache, logger)
	worker.StartNotificationWorker(services.Notifications)

	if cfg.Seed.AdminPassword != "" {
		if err := seedAdmin(ctx, rt, cfg.Seed.AdminUsername, cfg.Seed.AdminFullName, cfg.Seed.AdminPassword); err != nil {
			logger.Error("failed to seed admin", zap.Error(err))
		}
	}

	auditWriter := worker.NewAuditWriter(services.Audit, logger, 1024)
	auditWriter.Start()

	app := httptransport.NewServer(httptransport.ServerConfig{
		Name:         cfg.App.Name,
		Version:      cfg.App.Version,
		Development:  cfg.App.Development(),
		Timeout:      cfg.App.RequestTimeout(),
		Store:        rt.store,
		Services:     services,
		Dependencies: deps,
		Audit:        auditWriter,
		Metrics:      metrics,
		Logger:       logger,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		errCh <- app.Listen(cfg.App.Addr())
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("fiber listen", zap.Error(err))
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := auditWriter.Stop(shutdownCtx); err != nil {
		logger.Warn("audit writer did not drain", zap.Error(err))
	}
	return nil
}
