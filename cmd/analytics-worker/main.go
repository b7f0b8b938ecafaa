package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/coursehub-backend/internal/analytics/router"
	"github.com/angelmondragon/coursehub-backend/internal/analytics/worker"
	"github.com/angelmondragon/coursehub-backend/internal/analytics/writer"
	"github.com/angelmondragon/coursehub-backend/internal/invoices"
	"github.com/angelmondragon/coursehub-backend/pkg/bigquery"
	"github.com/angelmondragon/coursehub-backend/pkg/config"
	"github.com/angelmondragon/coursehub-backend/pkg/db"
	"github.com/angelmondragon/coursehub-backend/pkg/env"
	"github.com/angelmondragon/coursehub-backend/pkg/logger"
	"github.com/angelmondragon/coursehub-backend/pkg/outbox"
	"github.com/angelmondragon/coursehub-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/coursehub-backend/pkg/pubsub"
	"github.com/angelmondragon/coursehub-backend/pkg/redis"
)

const serviceName = "analytics-worker"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg := logger.New(logger.Options{ServiceName: serviceName})
	if err := run(ctx, logg); err != nil {
		logg.Error(ctx, "analytics worker stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, logg *logger.Logger) error {
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

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer closeWith(ctx, logg, "redis", redisClient.Close)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}
	defer closeWith(ctx, logg, "pubsub", pubsubClient.Close)

	if err := pubsubClient.EnsureSubscription(ctx, cfg.PubSub.AnalyticsSubscription); err != nil {
		return fmt.Errorf("analytics subscription: %w", err)
	}
	subscription := pubsubClient.AnalyticsSubscription()
	if subscription == nil {
		return errors.New("analytics subscription not configured")
	}

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		return fmt.Errorf("bigquery: %w", err)
	}
	defer closeWith(ctx, logg, "bigquery", bqClient.Close)

	tables := writer.Config{
		SettlementEventsTable: cfg.BigQuery.SettlementEventsTable,
		InvoiceFactsTable:     cfg.BigQuery.InvoiceFactsTable,
	}
	if err := bqClient.EnsureTables(ctx, writer.TableSpecs(tables)...); err != nil {
		return fmt.Errorf("bigquery tables: %w", err)
	}
	sink, err := writer.New(bqClient, tables)
	if err != nil {
		return fmt.Errorf("analytics writer: %w", err)
	}

	// Invoices are only read here, so the emitter stays idle.
	conn := dbClient.DB()
	invoiceRepo, err := invoices.NewRepository(conn, dbClient, outbox.NewService(outbox.NewRepository(conn), logg))
	if err != nil {
		return fmt.Errorf("invoice repository: %w", err)
	}
	routes, err := router.NewRouter(sink, invoiceRepo, logg)
	if err != nil {
		return fmt.Errorf("analytics router: %w", err)
	}

	ledger, err := idempotency.NewLedger(redisClient, cfg.Eventing.IdempotencyTTL)
	if err != nil {
		return fmt.Errorf("idempotency ledger: %w", err)
	}
	service, err := worker.NewService(subscription, routes, ledger, logg)
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"serviceKind":  serviceName,
		"instance":     env.InstanceID(),
		"subscription": cfg.PubSub.AnalyticsSubscription,
	})
	logg.Info(ctx, "analytics worker ready")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "analytics worker shutting down gracefully")
	return nil
}

func closeWith(ctx context.Context, logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(ctx, "error closing "+name, err)
	}
}
