package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleRecord is one completed course payment, written by the payment webhook producer.
type SaleRecord struct {
	ID            string          `gorm:"column:id;primaryKey"`
	TenantID      string          `gorm:"column:tenant_id;not null;index:idx_sale_records_tenant_created,priority:1"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(20,8);not null"`
	PaymentMethod string          `gorm:"column:payment_method;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;not null;index:idx_sale_records_tenant_created,priority:2"`
}
