package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/config"
	"github.com/spec-kit/repair-service/internal/observability"
	"github.com/spec-kit/repair-service/internal/persistence"
	"github.com/spec-kit/repair-service/internal/repository"
	"github.com/spec-kit/repair-service/internal/repository/memory"
)

// resources holds the connections and settings shared by every command.
type resources struct {
	cfg    *config.Config
	logger *zap.Logger
	store  repository.Store
	pg     *persistence.Postgres
	redis  *persistence.Redis
}

func bootstrap(ctx context.Context) (*resources, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	rt := &resources{cfg: cfg, logger: logger}
	if cfg.Postgres.DSN == "" {
		logger.Warn("POSTGRES_DSN not set, using in-memory store")
		rt.store = memory.NewStore()
	} else {
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			_ = logger.Sync()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		rt.pg = pg
		rt.store = repository.NewPostgresStore(pg.PoolHandle())
	}
	if cfg.Redis.Enabled {
		rt.redis = persistence.NewRedis(cfg.Redis, logger)
	}
	return rt, nil
}

func (rt *resources) migrate(ctx context.Context) error {
	if rt.pg == nil {
		return errors.New("migrations need POSTGRES_DSN")
	}
	return persistence.RunMigrations(ctx, rt.pg.PoolHandle(), rt.logger)
}

func (rt *resources) close() {
	rt.redis.Close()
	if rt.pg != nil {
		rt.pg.Close()
	}
	_ = rt.logger.Sync()
}

func runMigrate(ctx context.Context) error {
	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	if err := rt.migrate(ctx); err != nil {
		return err
	}
	rt.logger.Info("migrations applied")
	return nil
}
