package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/coursehub-backend/pkg/enums"
)

// SettlementRun is the audit row of one orchestrator pass, committed or failed.
type SettlementRun struct {
	ID            uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	Year          int                      `gorm:"column:year;not null"`
	Month         int                      `gorm:"column:month;not null"`
	State         enums.SettlementRunState `gorm:"column:state;not null"`
	InvoiceCount  int                      `gorm:"column:invoice_count;not null;default:0"`
	TenantCount   int                      `gorm:"column:tenant_count;not null;default:0"`
	SaleCount     int                      `gorm:"column:sale_count;not null;default:0"`
	FeeScheduleID *uuid.UUID               `gorm:"column:fee_schedule_id;type:uuid"`
	ErrorMessage  *string                  `gorm:"column:error_message"`
	TriggeredBy   string                   `gorm:"column:triggered_by;not null"`
	StartedAt     time.Time                `gorm:"column:started_at;not null"`
	FinishedAt    time.Time                `gorm:"column:finished_at;not null"`
}
