package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeSchedule is one saved version of the platform fee structure. Rows are
// append-only; the newest effective_at is the current schedule.
type FeeSchedule struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CardPercentage     decimal.Decimal `gorm:"column:card_percentage;type:numeric(9,4);not null"`
	CardFixed          decimal.Decimal `gorm:"column:card_fixed;type:numeric(20,8);not null"`
	BoletoFixed        decimal.Decimal `gorm:"column:boleto_fixed;type:numeric(20,8);not null"`
	PixPercentage      decimal.Decimal `gorm:"column:pix_percentage;type:numeric(9,4);not null"`
	PlatformPercentage decimal.Decimal `gorm:"column:platform_percentage;type:numeric(9,4);not null"`
	PlatformFixed      decimal.Decimal `gorm:"column:platform_fixed;type:numeric(20,8);not null"`
	TaxPercentage      decimal.Decimal `gorm:"column:tax_percentage;type:numeric(9,4);not null"`
	CreatedBy          *string         `gorm:"column:created_by"`
	EffectiveAt        time.Time       `gorm:"column:effective_at;not null"`
}
