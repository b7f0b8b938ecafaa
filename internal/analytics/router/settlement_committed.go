package router

import (
	"context"
	"fmt"
	"math/big"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/coursehub-backend/internal/analytics/types"
	"github.com/angelmondragon/coursehub-backend/internal/settlement"
	"github.com/angelmondragon/coursehub-backend/pkg/logger"
	"github.com/angelmondragon/coursehub-backend/pkg/outbox/payloads"
)

// BigQuery NUMERIC keeps nine fractional digits.
const numericScale = 9

type settlementCommittedHandler struct {
	writer   Writer
	invoices InvoiceSource
	logg     *logger.Logger
}

// Handle writes the invoice facts first and the event row last, so an event
// row in BigQuery means its facts landed too.
func (h *settlementCommittedHandler) Handle(ctx context.Context, envelope types.Envelope, event *payloads.SettlementCommittedEvent) error {
	period, err := settlement.NewPeriod(event.Year, event.Month)
	if err != nil {
		return fmt.Errorf("settlement_committed period: %w", err)
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type":    envelope.EventType,
		"run_id":        event.RunID.String(),
		"period":        period.ID(),
		"invoice_count": event.InvoiceCount,
	})

	invoices, err := h.invoices.ListByPeriod(logCtx, period.Year, period.Month)
	if err != nil {
		h.logg.Error(logCtx, "failed to load committed invoices", err)
		return err
	}
	facts := buildInvoiceFacts(envelope, *event, period, invoices)
	if len(facts) != event.InvoiceCount {
		h.logg.Warn(h.logg.WithField(logCtx, "fact_count", len(facts)), "invoice facts differ from committed count")
	}

	if err := h.writer.InsertInvoiceFacts(logCtx, facts); err != nil {
		h.logg.Error(logCtx, "failed to insert invoice facts", err)
		return err
	}

	row, err := buildSettlementEventRow(envelope)
	if err != nil {
		return err
	}
	row.PeriodID = cbigquery.NullString{StringVal: period.ID(), Valid: true}
	row.InvoiceCount = cbigquery.NullInt64{Int64: int64(event.InvoiceCount), Valid: true}
	if net, err := decimal.NewFromString(event.NetTotal); err == nil {
		row.NetTotal = numeric(net)
	}

	if err := h.writer.InsertSettlementEvent(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert settlement event row", err)
		return err
	}

	h.logg.Info(h.logg.WithField(logCtx, "fact_count", len(facts)), "settlement_committed ingested")
	return nil
}

// buildInvoiceFacts keeps only the invoices this run wrote. A later run that
// overwrote an invoice first owns its facts.
func buildInvoiceFacts(envelope types.Envelope, event payloads.SettlementCommittedEvent, period settlement.Period, invoices []settlement.Invoice) []types.InvoiceFactRow {
	facts := make([]types.InvoiceFactRow, 0, len(event.TenantIDs))
	for _, inv := range invoices {
		if inv.SettlementRunID != event.RunID {
			continue
		}
		facts = append(facts, types.InvoiceFactRow{
			EventID:       envelope.EventID,
			RunID:         event.RunID.String(),
			TenantID:      inv.TenantID,
			PeriodID:      period.ID(),
			Year:          int64(period.Year),
			Month:         int64(period.Month),
			Status:        string(inv.Status),
			SaleCount:     int64(len(inv.SaleRecordIDs)),
			Revenue:       numeric(inv.TotalRevenue),
			Taxes:         numeric(inv.TotalTaxes),
			ProcessorFees: numeric(inv.TotalProcessorFees),
			PlatformFees:  numeric(inv.TotalPlatformFees),
			NetToTransfer: numeric(inv.NetAmountToTransfer),
			FeeScheduleID: inv.FeeSchedule.ID.String(),
			GeneratedAt:   inv.GeneratedAt.UTC(),
			CommittedAt:   event.CommittedAt.UTC(),
		})
	}
	return facts
}

func numeric(d decimal.Decimal) *big.Rat {
	return d.Round(numericScale).Rat()
}
