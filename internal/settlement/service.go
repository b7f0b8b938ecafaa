package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/coursehub-backend/internal/fees"
	"github.com/angelmondragon/coursehub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/coursehub-backend/pkg/errors"
	"github.com/angelmondragon/coursehub-backend/pkg/logger"
	"github.com/angelmondragon/coursehub-backend/pkg/metrics"
)

// Tenant is the slice of tenant data the engine needs.
type Tenant struct {
	ID   string
	Name string
}

// FeeScheduleProvider returns the current schedule, or nil when none was ever saved.
type FeeScheduleProvider interface {
	Current(ctx context.Context) (*fees.Schedule, error)
}

type TenantDirectory interface {
	ListActive(ctx context.Context) ([]Tenant, error)
}

// SaleSource lists a tenant's sales created within [start, end].
type SaleSource interface {
	ListSales(ctx context.Context, tenantID string, start, end time.Time) ([]fees.Sale, error)
}

// BulkSaleSource is implemented by sources that can load every tenant in one query.
type BulkSaleSource interface {
	ListSalesForTenants(ctx context.Context, tenantIDs []string, start, end time.Time) ([]fees.Sale, error)
}

// InvoiceBatch is everything one run commits.
type InvoiceBatch struct {
	RunID    uuid.UUID
	Period   Period
	Invoices []Invoice
}

// InvoiceStore persists invoices keyed by (tenant, year, month). UpsertBatch
// must be atomic: either every invoice in the batch is visible or none is.
type InvoiceStore interface {
	UpsertBatch(ctx context.Context, batch InvoiceBatch) error
	ListByPeriod(ctx context.Context, year, month int) ([]Invoice, error)
}

// RunRecorder keeps the audit trail of finished runs.
type RunRecorder interface {
	Record(ctx context.Context, summary RunSummary) error
}

// RunSummary describes one orchestrator pass.
type RunSummary struct {
	RunID         uuid.UUID                `json:"runId"`
	Period        Period                   `json:"period"`
	State         enums.SettlementRunState `json:"state"`
	TriggeredBy   string                   `json:"triggeredBy"`
	FeeScheduleID *uuid.UUID               `json:"feeScheduleId,omitempty"`
	TenantCount   int                      `json:"tenantCount"`
	SaleCount     int                      `json:"saleCount"`
	InvoiceCount  int                      `json:"invoiceCount"`
	Totals        Totals                   `json:"totals"`
	Error         string                   `json:"error,omitempty"`
	StartedAt     time.Time                `json:"startedAt"`
	FinishedAt    time.Time                `json:"finishedAt"`
}

// Result is what the trigger surface shows an operator.
type Result struct {
	Success      bool           `json:"success"`
	Message      string         `json:"message"`
	InvoiceCount int            `json:"invoiceCount"`
	RunID        string         `json:"runId,omitempty"`
	Code         pkgerrors.Code `json:"code,omitempty"`
	Retryable    bool           `json:"retryable,omitempty"`
}

type ServiceParams struct {
	Logger    *logger.Logger
	Schedules FeeScheduleProvider
	Tenants   TenantDirectory
	Sales     SaleSource
	Invoices  InvoiceStore
	Location  *time.Location
	Runs      RunRecorder
	Guard     RunGuard
	Metrics   *metrics.SettlementMetrics
	Clock     func() time.Time
}

// Service is the settlement orchestrator.
type Service struct {
	logg      *logger.Logger
	schedules FeeScheduleProvider
	tenants   TenantDirectory
	sales     SaleSource
	invoices  InvoiceStore
	loc       *time.Location
	runs      RunRecorder
	guard     RunGuard
	metrics   *metrics.SettlementMetrics
	now       func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Schedules == nil {
		return nil, fmt.Errorf("fee schedule provider required")
	}
	if params.Tenants == nil {
		return nil, fmt.Errorf("tenant directory required")
	}
	if params.Sales == nil {
		return nil, fmt.Errorf("sale source required")
	}
	if params.Invoices == nil {
		return nil, fmt.Errorf("invoice store required")
	}
	if params.Location == nil {
		return nil, fmt.Errorf("settlement timezone required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		logg:      params.Logger,
		schedules: params.Schedules,
		tenants:   params.Tenants,
		sales:     params.Sales,
		invoices:  params.Invoices,
		loc:       params.Location,
		runs:      params.Runs,
		guard:     params.Guard,
		metrics:   params.Metrics,
		now:       clock,
	}, nil
}

// Location returns the reference timezone for month boundaries.
func (s *Service) Location() *time.Location {
	return s.loc
}

// GenerateMonthlyInvoices runs settlement for year/month and reports the
// outcome as an operator-facing result. It never returns partial success.
func (s *Service) GenerateMonthlyInvoices(ctx context.Context, year, month int) Result {
	period := Period{Year: year, Month: month}
	summary, err := s.Run(ctx, period)
	if err != nil {
		appErr := pkgerrors.As(err)
		result := Result{
			Success:   false,
			Message:   appErr.Message(),
			Code:      appErr.Code(),
			Retryable: IsRetryable(err),
		}
		if summary != nil {
			result.RunID = summary.RunID.String()
		}
		return result
	}

	message := fmt.Sprintf("generated %d invoices for %s", summary.InvoiceCount, period)
	if summary.InvoiceCount == 0 {
		message = fmt.Sprintf("no sales found for %s; no invoices generated", period)
	}
	return Result{
		Success:      true,
		Message:      message,
		InvoiceCount: summary.InvoiceCount,
		RunID:        summary.RunID.String(),
	}
}

// Run drives one settlement pass through
// not_started -> loading_inputs -> aggregating -> committing -> committed|failed.
// Errors are *pkgerrors.Error values that wrap the package sentinels.
func (s *Service) Run(ctx context.Context, period Period) (*RunSummary, error) {
	if _, err := NewPeriod(period.Year, period.Month); err != nil {
		return nil, classify(err, period)
	}
	start, end, err := period.Bounds(s.loc)
	if err != nil {
		return nil, classify(err, period)
	}

	summary := &RunSummary{
		RunID:       uuid.New(),
		Period:      period,
		State:       enums.SettlementRunNotStarted,
		TriggeredBy: TriggeredBy(ctx),
		StartedAt:   s.now(),
	}
	ctx = s.logg.WithSettlementRun(ctx, summary.RunID.String(), period.ID())

	if s.guard != nil {
		release, ok, err := s.guard.Acquire(ctx, period)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "could not acquire the settlement lock")
		}
		if !ok {
			s.logg.Warn(ctx, "settlement already running for period")
			return nil, classify(ErrRunInProgress, period)
		}
		defer func() {
			if relErr := release(ctx); relErr != nil {
				s.logg.Error(ctx, "failed to release settlement lock", relErr)
			}
		}()
	}

	s.logg.Info(s.logg.WithField(ctx, "triggered_by", summary.TriggeredBy), "settlement run starting")
	runErr := s.execute(ctx, summary, start, end)
	summary.FinishedAt = s.now()

	if runErr != nil {
		s.transition(ctx, summary, enums.SettlementRunFailed)
		appErr := classify(runErr, period)
		summary.Error = appErr.Message()
		s.logg.Error(s.logg.WithField(ctx, "code", appErr.Code()), "settlement run failed", runErr)
		s.finish(ctx, summary)
		return summary, appErr
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"invoice_count": summary.InvoiceCount,
		"sale_count":    summary.SaleCount,
		"tenant_count":  summary.TenantCount,
		"net_total":     summary.Totals.NetToTenants.String(),
	}), "settlement run committed")
	s.finish(ctx, summary)
	return summary, nil
}

func (s *Service) execute(ctx context.Context, summary *RunSummary, start, end time.Time) error {
	s.transition(ctx, summary, enums.SettlementRunLoadingInputs)

	schedule, err := s.schedules.Current(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFeeScheduleLoad, err)
	}
	if schedule == nil {
		return ErrMissingFeeSchedule
	}
	if err := schedule.Validate(); err != nil {
		return err
	}
	if schedule.ID != uuid.Nil {
		id := schedule.ID
		summary.FeeScheduleID = &id
	}

	tenants, err := s.tenants.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTenantLoad, err)
	}
	summary.TenantCount = len(tenants)

	sales, err := s.loadSales(ctx, tenants, start, end)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSaleLoad, err)
	}
	summary.SaleCount = len(sales)

	s.transition(ctx, summary, enums.SettlementRunAggregating)
	byTenant, err := Aggregate(sales, *schedule, summary.Period, s.loc, s.now())
	if err != nil {
		return err
	}
	invoices := SortedInvoices(byTenant)
	summary.Totals = SumInvoices(invoices)

	s.transition(ctx, summary, enums.SettlementRunCommitting)
	if len(invoices) > 0 {
		batch := InvoiceBatch{RunID: summary.RunID, Period: summary.Period, Invoices: invoices}
		if err := s.invoices.UpsertBatch(ctx, batch); err != nil {
			return fmt.Errorf("%w: %w", ErrCommit, err)
		}
	}
	summary.InvoiceCount = len(invoices)

	s.transition(ctx, summary, enums.SettlementRunCommitted)
	return nil
}

// loadSales snapshots the period's sales of the active tenants. Sales that
// belong to tenants outside the active set are dropped.
func (s *Service) loadSales(ctx context.Context, tenants []Tenant, start, end time.Time) ([]fees.Sale, error) {
	if len(tenants) == 0 {
		return nil, nil
	}
	active := make(map[string]struct{}, len(tenants))
	ids := make([]string, 0, len(tenants))
	for _, t := range tenants {
		if _, dup := active[t.ID]; dup {
			continue
		}
		active[t.ID] = struct{}{}
		ids = append(ids, t.ID)
	}

	var loaded []fees.Sale
	if bulk, ok := s.sales.(BulkSaleSource); ok {
		rows, err := bulk.ListSalesForTenants(ctx, ids, start, end)
		if err != nil {
			return nil, err
		}
		loaded = rows
	} else {
		for _, id := range ids {
			rows, err := s.sales.ListSales(ctx, id, start, end)
			if err != nil {
				return nil, fmt.Errorf("tenant %s: %w", id, err)
			}
			loaded = append(loaded, rows...)
		}
	}

	snapshot := make([]fees.Sale, 0, len(loaded))
	dropped := 0
	for _, sale := range loaded {
		if _, ok := active[sale.TenantID]; !ok {
			dropped++
			continue
		}
		snapshot = append(snapshot, sale)
	}
	if dropped > 0 {
		s.logg.Warn(s.logg.WithField(ctx, "dropped_sales", dropped), "ignored sales of inactive tenants")
	}
	return snapshot, nil
}

func (s *Service) transition(ctx context.Context, summary *RunSummary, next enums.SettlementRunState) {
	if !summary.State.CanTransitionTo(next) {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"from": summary.State,
			"to":   next,
		}), "ignored illegal settlement state transition")
		return
	}
	summary.State = next
	s.logg.Info(s.logg.WithField(ctx, "state", next), "settlement state changed")
}

func (s *Service) finish(ctx context.Context, summary *RunSummary) {
	if s.metrics != nil {
		s.metrics.ObserveRun(summary.State.String(), summary.FinishedAt.Sub(summary.StartedAt))
		if summary.State == enums.SettlementRunCommitted {
			s.metrics.AddInvoices(summary.InvoiceCount)
		}
	}
	if s.runs == nil {
		return
	}
	if err := s.runs.Record(ctx, *summary); err != nil {
		s.logg.Error(ctx, "failed to record settlement run", err)
	}
}

// ListInvoices reads back the committed invoices of a period.
func (s *Service) ListInvoices(ctx context.Context, period Period) ([]Invoice, error) {
	if _, err := NewPeriod(period.Year, period.Month); err != nil {
		return nil, classify(err, period)
	}
	invoices, err := s.invoices.ListByPeriod(ctx, period.Year, period.Month)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("could not load invoices for %s", period))
	}
	return invoices, nil
}

type triggerKey struct{}

// WithTrigger records who started a run, e.g. "cron" or "admin:<user id>".
func WithTrigger(ctx context.Context, by string) context.Context {
	return context.WithValue(ctx, triggerKey{}, by)
}

// TriggeredBy returns the trigger stored by WithTrigger, defaulting to "system".
func TriggeredBy(ctx context.Context) string {
	if by, ok := ctx.Value(triggerKey{}).(string); ok && by != "" {
		return by
	}
	return "system"
}

// IsRetryable reports whether re-running the same period may succeed without
// operator changes.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrCommit) || errors.Is(err, ErrSaleLoad) ||
		errors.Is(err, ErrTenantLoad) || errors.Is(err, ErrFeeScheduleLoad) ||
		errors.Is(err, ErrRunInProgress)
}
