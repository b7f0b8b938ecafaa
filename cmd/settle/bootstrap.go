package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/coursehub-backend/internal/app"
	"github.com/angelmondragon/coursehub-backend/pkg/config"
	"github.com/angelmondragon/coursehub-backend/pkg/db"
	"github.com/angelmondragon/coursehub-backend/pkg/logger"
	"github.com/angelmondragon/coursehub-backend/pkg/redis"
)

type environment struct {
	cfg   *config.Config
	logg  *logger.Logger
	db    *db.Client
	stack *app.SettlementStack
	close func()
}

func loadConfig() (*config.Config, *logger.Logger, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logg := logger.New(logger.Options{
		ServiceName: "settle",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	return cfg, logg, nil
}

// bootstrap connects to the database and, when configured, to redis so CLI
// runs share the period lock with the api and cron-worker.
func bootstrap(ctx context.Context) (*environment, error) {
	cfg, logg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	closers := []func() error{dbClient.Close}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" || cfg.Redis.Address != "" {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			_ = dbClient.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		closers = append(closers, redisClient.Close)
	} else {
		logg.Warn(ctx, "redis not configured, settlement runs are not locked across processes")
	}

	stack, err := app.NewSettlementStack(app.StackParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Redis:      redisClient,
		Registerer: prometheus.NewRegistry(),
	})
	if err != nil {
		for _, closeFn := range closers {
			_ = closeFn()
		}
		return nil, err
	}

	return &environment{
		cfg:   cfg,
		logg:  logg,
		db:    dbClient,
		stack: stack,
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				if err := closers[i](); err != nil {
					logg.Error(ctx, "error closing resource", err)
				}
			}
		},
	}, nil
}
