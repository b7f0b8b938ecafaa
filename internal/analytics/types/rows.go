package types

import (
	"math/big"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// SettlementEventRow mirrors the settlement_events BigQuery schema. One row
// per consumed event; settlement-only columns are null for other events.
type SettlementEventRow struct {
	EventID       string               `bigquery:"event_id"`
	EventType     string               `bigquery:"event_type"`
	AggregateType string               `bigquery:"aggregate_type"`
	AggregateID   string               `bigquery:"aggregate_id"`
	OccurredAt    time.Time            `bigquery:"occurred_at"`
	PeriodID      cbigquery.NullString `bigquery:"period_id"`
	InvoiceCount  cbigquery.NullInt64  `bigquery:"invoice_count"`
	NetTotal      *big.Rat             `bigquery:"net_total"`
	Payload       cbigquery.NullJSON   `bigquery:"payload"`
}

// InvoiceFactRow mirrors the invoice_facts BigQuery schema: one row per tenant
// invoice of a committed settlement run.
type InvoiceFactRow struct {
	EventID       string    `bigquery:"event_id"`
	RunID         string    `bigquery:"run_id"`
	TenantID      string    `bigquery:"tenant_id"`
	PeriodID      string    `bigquery:"period_id"`
	Year          int64     `bigquery:"year"`
	Month         int64     `bigquery:"month"`
	Status        string    `bigquery:"status"`
	SaleCount     int64     `bigquery:"sale_count"`
	Revenue       *big.Rat  `bigquery:"revenue"`
	Taxes         *big.Rat  `bigquery:"taxes"`
	ProcessorFees *big.Rat  `bigquery:"processor_fees"`
	PlatformFees  *big.Rat  `bigquery:"platform_fees"`
	NetToTransfer *big.Rat  `bigquery:"net_to_transfer"`
	FeeScheduleID string    `bigquery:"fee_schedule_id"`
	GeneratedAt   time.Time `bigquery:"generated_at"`
	CommittedAt   time.Time `bigquery:"committed_at"`
}
