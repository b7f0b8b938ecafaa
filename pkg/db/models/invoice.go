package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	dbtypes "github.com/angelmondragon/coursehub-backend/pkg/db/types"
	"github.com/angelmondragon/coursehub-backend/pkg/enums"
)

// Invoice is the monthly settlement statement of one tenant. The primary key
// (tenant_id, id) with id = "YYYY-MM" makes re-runs overwrite instead of append.
type Invoice struct {
	ID                  string               `gorm:"column:id;primaryKey"`
	TenantID            string               `gorm:"column:tenant_id;primaryKey"`
	Year                int                  `gorm:"column:year;not null"`
	Month               int                  `gorm:"column:month;not null"`
	TotalRevenue        decimal.Decimal      `gorm:"column:total_revenue;type:numeric(20,8);not null"`
	TotalTaxes          decimal.Decimal      `gorm:"column:total_taxes;type:numeric(20,8);not null"`
	TotalProcessorFees  decimal.Decimal      `gorm:"column:total_processor_fees;type:numeric(20,8);not null"`
	TotalPlatformFees   decimal.Decimal      `gorm:"column:total_platform_fees;type:numeric(20,8);not null"`
	NetAmountToTransfer decimal.Decimal      `gorm:"column:net_amount_to_transfer;type:numeric(20,8);not null"`
	Status              enums.InvoiceStatus  `gorm:"column:status;not null"`
	GeneratedAt         time.Time            `gorm:"column:generated_at;not null"`
	SaleRecordIDs       pq.StringArray       `gorm:"column:sale_record_ids;type:text[];not null"`
	FeeScheduleID       uuid.UUID            `gorm:"column:fee_schedule_id;type:uuid;not null"`
	FeeSchedule         dbtypes.JSONDocument `gorm:"column:fee_schedule;type:jsonb;not null"`
	SettlementRunID     uuid.UUID            `gorm:"column:settlement_run_id;type:uuid;not null"`
}
