package settlement

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/coursehub-backend/internal/fees"
	"github.com/angelmondragon/coursehub-backend/pkg/enums"
)

func testSchedule() fees.Schedule {
	return fees.Schedule{
		CardPercentage:     decimal.RequireFromString("3.99"),
		CardFixed:          decimal.RequireFromString("0.39"),
		BoletoFixed:        decimal.RequireFromString("3.45"),
		PixPercentage:      decimal.RequireFromString("0.99"),
		PlatformPercentage: decimal.RequireFromString("9"),
		PlatformFixed:      decimal.Zero,
		TaxPercentage:      decimal.RequireFromString("6"),
	}
}

func sale(id, tenant, amount string, method enums.PaymentMethod, at time.Time) fees.Sale {
	return fees.Sale{
		ID:            id,
		TenantID:      tenant,
		Amount:        decimal.RequireFromString(amount),
		PaymentMethod: method,
		CreatedAt:     at,
	}
}

var january = Period{Year: 2026, Month: 1}

func TestAggregateGroupsByTenantAndSums(t *testing.T) {
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	mid := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	sales := []fees.Sale{
		sale("s1", "tenant-a", "100", enums.PaymentMethodCard, mid),
		sale("s2", "tenant-b", "100", enums.PaymentMethodPix, mid),
		sale("s3", "tenant-a", "100", enums.PaymentMethodBoleto, mid.Add(time.Hour)),
		sale("s4", "tenant-a", "0", enums.PaymentMethodFree, mid.Add(2*time.Hour)),
	}

	got, err := Aggregate(sales, testSchedule(), january, time.UTC, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 invoices, got %d", len(got))
	}

	a := got["tenant-a"]
	if a.ID != "2026-01" || a.Year != 2026 || a.Month != 1 {
		t.Fatalf("unexpected invoice identity %+v", a)
	}
	if !reflect.DeepEqual(a.SaleRecordIDs, []string{"s1", "s3", "s4"}) {
		t.Fatalf("expected encounter order, got %v", a.SaleRecordIDs)
	}
	if a.Status != enums.InvoiceStatusPending || !a.GeneratedAt.Equal(now) {
		t.Fatalf("unexpected status/generatedAt %s %s", a.Status, a.GeneratedAt)
	}
	// card 81.772054 + boleto 82.4005 + free 0
	if !a.NetAmountToTransfer.Equal(decimal.RequireFromString("164.172554")) {
		t.Fatalf("unexpected net %s", a.NetAmountToTransfer)
	}
	if !a.TotalRevenue.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("unexpected revenue %s", a.TotalRevenue)
	}
	sum := a.TotalTaxes.Add(a.TotalProcessorFees).Add(a.TotalPlatformFees).Add(a.NetAmountToTransfer)
	if !sum.Equal(a.TotalRevenue) {
		t.Fatalf("invoice components %s do not add up to revenue %s", sum, a.TotalRevenue)
	}

	b := got["tenant-b"]
	if !b.TotalProcessorFees.Equal(decimal.RequireFromString("0.9306")) {
		t.Fatalf("unexpected pix processor fee %s", b.TotalProcessorFees)
	}
}

func TestAggregateFiltersByInclusiveMonthBounds(t *testing.T) {
	loc := mustLocation(t, "America/Sao_Paulo")
	start, end, err := january.Bounds(loc)
	if err != nil {
		t.Fatalf("bounds: %v", err)
	}
	sales := []fees.Sale{
		sale("before", "tenant-a", "10", enums.PaymentMethodPix, start.Add(-time.Nanosecond)),
		sale("first", "tenant-a", "10", enums.PaymentMethodPix, start),
		sale("last", "tenant-a", "10", enums.PaymentMethodPix, end),
		sale("after", "tenant-a", "10", enums.PaymentMethodPix, end.Add(time.Nanosecond)),
		// 2026-02-01T01:00Z is still January 31st in Sao Paulo
		sale("late-utc", "tenant-a", "10", enums.PaymentMethodPix, time.Date(2026, 2, 1, 1, 0, 0, 0, time.UTC)),
	}

	got, err := Aggregate(sales, testSchedule(), january, loc, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := got["tenant-a"].SaleRecordIDs
	if !reflect.DeepEqual(ids, []string{"first", "last", "late-utc"}) {
		t.Fatalf("unexpected included sales %v", ids)
	}
}

func TestAggregateSkipsTenantsWithoutSales(t *testing.T) {
	outside := time.Date(2025, 12, 31, 12, 0, 0, 0, time.UTC)
	sales := []fees.Sale{
		sale("s1", "tenant-a", "50", enums.PaymentMethodCard, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)),
		sale("s2", "tenant-quiet", "50", enums.PaymentMethodCard, outside),
	}

	got, err := Aggregate(sales, testSchedule(), january, time.UTC, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got["tenant-quiet"]; ok {
		t.Fatal("tenant without sales in the period must not get an invoice")
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 invoice, got %d", len(got))
	}

	empty, err := Aggregate(nil, testSchedule(), january, time.UTC, time.Now())
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected no invoices for no sales, got %d (%v)", len(empty), err)
	}
}

func TestAggregateIsDeterministic(t *testing.T) {
	at := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	sales := []fees.Sale{
		sale("s1", "tenant-a", "19.90", enums.PaymentMethodCard, at),
		sale("s2", "tenant-b", "297", enums.PaymentMethodBoleto, at),
		sale("s3", "tenant-a", "47.5", enums.PaymentMethodPix, at),
	}

	first, err := Aggregate(sales, testSchedule(), january, time.UTC, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := Aggregate(sales, testSchedule(), january, time.UTC, time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	for tenant, inv := range first {
		other := second[tenant]
		other.GeneratedAt = inv.GeneratedAt
		if !reflect.DeepEqual(inv, other) {
			t.Fatalf("tenant %s diverged:\n%+v\n%+v", tenant, inv, other)
		}
	}
}

func TestAggregateFailsWholeTenantOnBadSale(t *testing.T) {
	at := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	sales := []fees.Sale{
		sale("ok-1", "tenant-a", "100", enums.PaymentMethodCard, at),
		sale("bad", "tenant-a", "-10", enums.PaymentMethodCard, at),
		sale("ok-2", "tenant-b", "100", enums.PaymentMethodCard, at),
		sale("weird", "tenant-c", "10", enums.PaymentMethod("paypal"), at),
	}

	got, err := Aggregate(sales, testSchedule(), january, time.UTC, time.Now())
	if err == nil {
		t.Fatal("expected aggregate to fail")
	}
	if got != nil {
		t.Fatalf("expected no invoices on failure, got %d", len(got))
	}
	if !errors.Is(err, fees.ErrInvalidSaleAmount) {
		t.Fatalf("expected ErrInvalidSaleAmount in %v", err)
	}
	if !errors.Is(err, fees.ErrUnsupportedPaymentMethod) {
		t.Fatalf("expected ErrUnsupportedPaymentMethod in %v", err)
	}

	var tenantErr *TenantError
	if !errors.As(err, &tenantErr) || tenantErr.TenantID != "tenant-a" {
		t.Fatalf("expected first tenant error for tenant-a, got %v", err)
	}
	if !strings.Contains(err.Error(), "tenant-c") {
		t.Fatalf("expected every failing tenant to be reported: %v", err)
	}
}

func TestAggregateRejectsUnattributedSales(t *testing.T) {
	at := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	_, err := Aggregate([]fees.Sale{sale("orphan", "", "10", enums.PaymentMethodPix, at)}, testSchedule(), january, time.UTC, time.Now())
	if !errors.Is(err, ErrUnattributedSale) {
		t.Fatalf("expected ErrUnattributedSale, got %v", err)
	}
}

func TestSortedInvoicesAndTotals(t *testing.T) {
	at := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	byTenant, err := Aggregate([]fees.Sale{
		sale("s1", "tenant-c", "100", enums.PaymentMethodCard, at),
		sale("s2", "tenant-a", "100", enums.PaymentMethodCard, at),
		sale("s3", "tenant-b", "100", enums.PaymentMethodCard, at),
	}, testSchedule(), january, time.UTC, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sorted := SortedInvoices(byTenant)
	var order []string
	for _, inv := range sorted {
		order = append(order, inv.TenantID)
	}
	if !reflect.DeepEqual(order, []string{"tenant-a", "tenant-b", "tenant-c"}) {
		t.Fatalf("unexpected order %v", order)
	}

	totals := SumInvoices(sorted)
	if !totals.Revenue.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("unexpected revenue %s", totals.Revenue)
	}
	if !totals.NetToTenants.Equal(decimal.RequireFromString("245.316162")) {
		t.Fatalf("unexpected net %s", totals.NetToTenants)
	}
}
