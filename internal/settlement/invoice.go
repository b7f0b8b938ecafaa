package settlement

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/coursehub-backend/internal/fees"
	"github.com/angelmondragon/coursehub-backend/pkg/enums"
)

// Invoice is one tenant's settlement statement for one month.
type Invoice struct {
	ID                  string              `json:"id"`
	TenantID            string              `json:"tenantId"`
	Year                int                 `json:"year"`
	Month               int                 `json:"month"`
	TotalRevenue        decimal.Decimal     `json:"totalRevenue"`
	TotalTaxes          decimal.Decimal     `json:"totalTaxes"`
	TotalProcessorFees  decimal.Decimal     `json:"totalProcessorFees"`
	TotalPlatformFees   decimal.Decimal     `json:"totalPlatformFees"`
	NetAmountToTransfer decimal.Decimal     `json:"netAmountToTransfer"`
	Status              enums.InvoiceStatus `json:"status"`
	GeneratedAt         time.Time           `json:"generatedAt"`
	SaleRecordIDs       []string            `json:"saleRecordIds"`
	FeeSchedule         fees.Schedule       `json:"feeSchedule"`
	// SettlementRunID is the run that last wrote the invoice. Zero until stored.
	SettlementRunID     uuid.UUID           `json:"settlementRunId"`
}

func (inv *Invoice) add(saleID string, b fees.Breakdown, amount decimal.Decimal) {
	inv.TotalRevenue = inv.TotalRevenue.Add(amount)
	inv.TotalTaxes = inv.TotalTaxes.Add(b.TaxWithheld)
	inv.TotalProcessorFees = inv.TotalProcessorFees.Add(b.ProcessorFee)
	inv.TotalPlatformFees = inv.TotalPlatformFees.Add(b.PlatformFee)
	inv.NetAmountToTransfer = inv.NetAmountToTransfer.Add(b.NetToTenant)
	inv.SaleRecordIDs = append(inv.SaleRecordIDs, saleID)
}

// Totals sums money fields across invoices.
type Totals struct {
	Revenue       decimal.Decimal `json:"revenue"`
	Taxes         decimal.Decimal `json:"taxes"`
	ProcessorFees decimal.Decimal `json:"processorFees"`
	PlatformFees  decimal.Decimal `json:"platformFees"`
	NetToTenants  decimal.Decimal `json:"netToTenants"`
}

// SumInvoices totals the invoices of one run.
func SumInvoices(invoices []Invoice) Totals {
	totals := Totals{
		Revenue:       decimal.Zero,
		Taxes:         decimal.Zero,
		ProcessorFees: decimal.Zero,
		PlatformFees:  decimal.Zero,
		NetToTenants:  decimal.Zero,
	}
	for _, inv := range invoices {
		totals.Revenue = totals.Revenue.Add(inv.TotalRevenue)
		totals.Taxes = totals.Taxes.Add(inv.TotalTaxes)
		totals.ProcessorFees = totals.ProcessorFees.Add(inv.TotalProcessorFees)
		totals.PlatformFees = totals.PlatformFees.Add(inv.TotalPlatformFees)
		totals.NetToTenants = totals.NetToTenants.Add(inv.NetAmountToTransfer)
	}
	return totals
}

// SortedInvoices flattens the aggregate ordered by tenant id.
func SortedInvoices(byTenant map[string]Invoice) []Invoice {
	out := make([]Invoice, 0, len(byTenant))
	for _, inv := range byTenant {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TenantID < out[j].TenantID
	})
	return out
}
