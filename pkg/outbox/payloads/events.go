package payloads

import (
	"time"

	"github.com/google/uuid"
)

// SettlementCommittedEvent is emitted in the same transaction that upserts a
// period's invoices.
type SettlementCommittedEvent struct {
	RunID        uuid.UUID `json:"runId"`
	Year         int       `json:"year"`
	Month        int       `json:"month"`
	TenantIDs    []string  `json:"tenantIds"`
	InvoiceCount int       `json:"invoiceCount"`
	NetTotal     string    `json:"netTotal"`
	CommittedAt  time.Time `json:"committedAt"`
}

// FeeScheduleSavedEvent announces a new fee schedule version.
type FeeScheduleSavedEvent struct {
	FeeScheduleID uuid.UUID `json:"feeScheduleId"`
	EffectiveAt   time.Time `json:"effectiveAt"`
	CreatedBy     string    `json:"createdBy,omitempty"`
}
