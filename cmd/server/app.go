package main

import (
	"context"
	"fmt"

	"anoa.com/mentorconnect/internal/bootstrap"
	"anoa.com/mentorconnect/internal/config"
	"anoa.com/mentorconnect/pkg/database"
	"anoa.com/mentorconnect/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app holds the process-wide dependencies every subcommand needs.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	db    *gorm.DB
	redis *redis.Client
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(log)

	db, err := database.Connect(database.Options{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Name:            cfg.Database.Name,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogSQL:          cfg.Database.LogSQL,
	})
	if err != nil {
		return nil, err
	}

	rdb, err := database.ConnectRedis(ctx, database.RedisOptions{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}
	if rdb == nil {
		log.Warn("redis address not configured, realtime updates and send cooldown are disabled")
	}

	return &app{cfg: cfg, log: log, db: db, redis: rdb}, nil
}

func (a *app) migrate(ctx context.Context) error {
	if err := bootstrap.Migrate(a.db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if a.cfg.IsDevelopment() {
		if err := bootstrap.SeedDevelopment(ctx, a.db, a.log); err != nil {
			return fmt.Errorf("failed to seed development data: %w", err)
		}
	}
	return nil
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("failed to close redis", zap.Error(err))
		}
	}
	if err := database.Close(a.db); err != nil {
		a.log.Warn("failed to close database", zap.Error(err))
	}
	_ = a.log.Sync()
}
