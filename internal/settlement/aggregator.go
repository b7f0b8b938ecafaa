package settlement

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/angelmondragon/coursehub-backend/internal/fees"
	"github.com/angelmondragon/coursehub-backend/pkg/enums"
)

var ErrUnattributedSale = errors.New("sale has no tenant")

// TenantError ties a calculation failure to the tenant whose invoice it voids.
type TenantError struct {
	TenantID string
	Err      error
}

func (e *TenantError) Error() string {
	return fmt.Sprintf("tenant %s: %v", e.TenantID, e.Err)
}

func (e *TenantError) Unwrap() error {
	return e.Err
}

// Aggregate builds one pending invoice per tenant from the sales created
// inside period (inclusive bounds in loc). Tenants without sales in the period
// get no invoice. A sale that fails fee calculation fails its whole tenant;
// every failing tenant is reported and no invoices are returned.
func Aggregate(sales []fees.Sale, schedule fees.Schedule, period Period, loc *time.Location, now time.Time) (map[string]Invoice, error) {
	start, end, err := period.Bounds(loc)
	if err != nil {
		return nil, err
	}

	invoices := make(map[string]Invoice)
	failed := make(map[string]error)

	for _, sale := range sales {
		if sale.CreatedAt.Before(start) || sale.CreatedAt.After(end) {
			continue
		}
		if sale.TenantID == "" {
			failed[""] = fmt.Errorf("%w: sale %s", ErrUnattributedSale, sale.ID)
			continue
		}
		if _, bad := failed[sale.TenantID]; bad {
			continue
		}

		breakdown, err := fees.ComputeBreakdown(sale, schedule)
		if err != nil {
			failed[sale.TenantID] = err
			delete(invoices, sale.TenantID)
			continue
		}

		inv, ok := invoices[sale.TenantID]
		if !ok {
			inv = newInvoice(sale.TenantID, period, schedule, now)
		}
		inv.add(sale.ID, breakdown, sale.Amount)
		invoices[sale.TenantID] = inv
	}

	if len(failed) > 0 {
		return nil, tenantErrors(failed)
	}
	return invoices, nil
}

func newInvoice(tenantID string, period Period, schedule fees.Schedule, now time.Time) Invoice {
	return Invoice{
		ID:                  period.ID(),
		TenantID:            tenantID,
		Year:                period.Year,
		Month:               period.Month,
		TotalRevenue:        decimal.Zero,
		TotalTaxes:          decimal.Zero,
		TotalProcessorFees:  decimal.Zero,
		TotalPlatformFees:   decimal.Zero,
		NetAmountToTransfer: decimal.Zero,
		Status:              enums.InvoiceStatusPending,
		GeneratedAt:         now,
		SaleRecordIDs:       []string{},
		FeeSchedule:         schedule,
	}
}

// tenantErrors combines failures in tenant order so messages are stable.
func tenantErrors(failed map[string]error) error {
	ids := make([]string, 0, len(failed))
	for id := range failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var combined error
	for _, id := range ids {
		if id == "" {
			combined = multierr.Append(combined, failed[id])
			continue
		}
		combined = multierr.Append(combined, &TenantError{TenantID: id, Err: failed[id]})
	}
	return combined
}
