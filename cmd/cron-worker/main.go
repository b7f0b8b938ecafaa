package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/coursehub-backend/internal/app"
	"github.com/angelmondragon/coursehub-backend/internal/cron"
	"github.com/angelmondragon/coursehub-backend/pkg/config"
	"github.com/angelmondragon/coursehub-backend/pkg/db"
	"github.com/angelmondragon/coursehub-backend/pkg/env"
	"github.com/angelmondragon/coursehub-backend/pkg/logger"
	"github.com/angelmondragon/coursehub-backend/pkg/metrics"
	"github.com/angelmondragon/coursehub-backend/pkg/migrate"
	"github.com/angelmondragon/coursehub-backend/pkg/redis"
)

const serviceName = "cron-worker"

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg := logger.New(logger.Options{ServiceName: serviceName})
	if err := run(ctx, logg, *once); err != nil {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}
}

// run builds the settlement stack and either drives a single cycle or loops
// on the configured interval until ctx is cancelled.
func run(ctx context.Context, logg *logger.Logger, once bool) error {
	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer closeWith(ctx, logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer closeWith(ctx, logg, "redis", redisClient.Close)

	stack, err := app.NewSettlementStack(app.StackParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Redis:      redisClient,
		Registerer: prometheus.DefaultRegisterer,
	})
	if err != nil {
		return fmt.Errorf("settlement stack: %w", err)
	}

	job, err := cron.NewMonthlySettlementJob(cron.MonthlySettlementJobParams{Logger: logg, Runner: stack.Service})
	if err != nil {
		return err
	}
	lock, err := cron.NewRedisLock(redisClient, cron.MonthlySettlementJobName, cfg.Settlement.LockTTL)
	if err != nil {
		return err
	}
	registry, err := cron.NewRegistry(job)
	if err != nil {
		return err
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Settlement.CronInterval,
	})
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceName,
		"instance":    env.InstanceID(),
		"interval":    cfg.Settlement.CronInterval.String(),
	})

	if once {
		logg.Info(ctx, "running single cron cycle")
		if err := service.RunOnce(ctx); err != nil && !errors.Is(err, cron.ErrLocked) {
			return err
		}
		return nil
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
	return nil
}

func closeWith(ctx context.Context, logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(ctx, "error closing "+name, err)
	}
}
