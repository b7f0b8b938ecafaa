package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/coursehub-backend/internal/settlement"
	"github.com/angelmondragon/coursehub-backend/pkg/logger"
)

// MonthlySettlementJobName is also the metric label of the job.
const MonthlySettlementJobName = "monthly-settlement"

const cronTrigger = "cron"

type settlementRunner interface {
	Run(ctx context.Context, period settlement.Period) (*settlement.RunSummary, error)
	Location() *time.Location
}

type MonthlySettlementJobParams struct {
	Logger *logger.Logger
	Runner settlementRunner
}

// MonthlySettlementJob settles the calendar month before the cycle time.
// Every cycle re-runs the same month until the calendar turns; the invoice
// upsert makes repeats harmless.
type MonthlySettlementJob struct {
	logg   *logger.Logger
	runner settlementRunner
}

func NewMonthlySettlementJob(params MonthlySettlementJobParams) (*MonthlySettlementJob, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Runner == nil {
		return nil, errors.New("settlement runner required")
	}
	return &MonthlySettlementJob{logg: params.Logger, runner: params.Runner}, nil
}

func (j *MonthlySettlementJob) Name() string {
	return MonthlySettlementJobName
}

func (j *MonthlySettlementJob) Run(ctx context.Context, now time.Time) error {
	period := settlement.PeriodContaining(now, j.runner.Location()).Previous()
	ctx = settlement.WithTrigger(ctx, cronTrigger)
	ctx = j.logg.WithField(ctx, "period", period.ID())

	summary, err := j.runner.Run(ctx, period)
	if err != nil {
		if errors.Is(err, settlement.ErrRunInProgress) {
			j.logg.Warn(ctx, "settlement for period already in progress elsewhere")
			return nil
		}
		return fmt.Errorf("settle %s: %w", period, err)
	}
	j.logg.Info(j.logg.WithField(ctx, "invoice_count", summary.InvoiceCount), "monthly settlement finished")
	return nil
}
