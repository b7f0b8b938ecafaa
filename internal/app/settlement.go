package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/coursehub-backend/internal/feeschedules"
	"github.com/angelmondragon/coursehub-backend/internal/invoices"
	"github.com/angelmondragon/coursehub-backend/internal/sales"
	"github.com/angelmondragon/coursehub-backend/internal/settlement"
	"github.com/angelmondragon/coursehub-backend/internal/settlementruns"
	"github.com/angelmondragon/coursehub-backend/internal/tenants"
	"github.com/angelmondragon/coursehub-backend/pkg/config"
	"github.com/angelmondragon/coursehub-backend/pkg/db"
	"github.com/angelmondragon/coursehub-backend/pkg/logger"
	"github.com/angelmondragon/coursehub-backend/pkg/metrics"
	"github.com/angelmondragon/coursehub-backend/pkg/outbox"
	"github.com/angelmondragon/coursehub-backend/pkg/redis"
)

// SettlementStack is the settlement engine wired to its stores. api,
// cron-worker and settle all build it the same way.
type SettlementStack struct {
	Service      *settlement.Service
	FeeSchedules *feeschedules.Service
	Invoices     *invoices.Repository
	Runs         *settlementruns.Repository
	Tenants      *tenants.Repository
	Sales        *sales.Repository
}

type StackParams struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client
	// Redis is optional; without it runs of the same period are not
	// serialized across processes.
	Redis      *redis.Client
	Registerer prometheus.Registerer
}

func NewSettlementStack(p StackParams) (*SettlementStack, error) {
	if p.Config == nil || p.Logger == nil || p.DB == nil {
		return nil, fmt.Errorf("config, logger and db are required")
	}
	loc, err := p.Config.Settlement.Location()
	if err != nil {
		return nil, err
	}

	conn := p.DB.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), p.Logger)

	invoiceRepo, err := invoices.NewRepository(conn, p.DB, emitter)
	if err != nil {
		return nil, fmt.Errorf("invoice repository: %w", err)
	}
	feeService, err := feeschedules.NewService(feeschedules.ServiceParams{
		Logger:     p.Logger,
		Repository: feeschedules.NewRepository(conn),
		Tx:         p.DB,
		Outbox:     emitter,
	})
	if err != nil {
		return nil, fmt.Errorf("fee schedule service: %w", err)
	}

	stack := &SettlementStack{
		FeeSchedules: feeService,
		Invoices:     invoiceRepo,
		Runs:         settlementruns.NewRepository(conn),
		Tenants:      tenants.NewRepository(conn),
		Sales:        sales.NewRepository(conn),
	}

	params := settlement.ServiceParams{
		Logger:    p.Logger,
		Schedules: feeService,
		Tenants:   stack.Tenants,
		Sales:     stack.Sales,
		Invoices:  invoiceRepo,
		Location:  loc,
		Runs:      stack.Runs,
		Metrics:   metrics.NewSettlementMetrics(p.Registerer),
	}
	if p.Redis != nil {
		guard, err := settlement.NewPeriodLock(p.Redis, p.Config.Settlement.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("settlement lock: %w", err)
		}
		params.Guard = guard
	}

	stack.Service, err = settlement.NewService(params)
	if err != nil {
		return nil, fmt.Errorf("settlement service: %w", err)
	}
	return stack, nil
}
