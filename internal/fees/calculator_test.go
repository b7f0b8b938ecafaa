package fees

import (
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/coursehub-backend/pkg/enums"
)

func dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", value, err)
	}
	return d
}

func referenceSchedule(t *testing.T) Schedule {
	t.Helper()
	return Schedule{
		CardPercentage:     dec(t, "3.99"),
		CardFixed:          dec(t, "0.39"),
		BoletoFixed:        dec(t, "3.45"),
		PixPercentage:      dec(t, "0.99"),
		PlatformPercentage: dec(t, "9"),
		PlatformFixed:      dec(t, "0"),
		TaxPercentage:      dec(t, "6"),
	}
}

func assertDecimal(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("%s: expected %s, got %s", field, want, got)
	}
}

func TestComputeBreakdownCardWorkedExample(t *testing.T) {
	sale := Sale{ID: "sale-1", TenantID: "tenant-a", Amount: dec(t, "100"), PaymentMethod: enums.PaymentMethodCard}

	got, err := ComputeBreakdown(sale, referenceSchedule(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertDecimal(t, "taxWithheld", got.TaxWithheld, "6.00")
	assertDecimal(t, "processorFee", got.ProcessorFee, "4.1406")
	assertDecimal(t, "platformFee", got.PlatformFee, "8.087346")
	assertDecimal(t, "netToTenant", got.NetToTenant, "81.772054")
	assertDecimal(t, "total", got.Total(), "100")
}

func TestComputeBreakdownByMethod(t *testing.T) {
	schedule := referenceSchedule(t)
	tests := []struct {
		name      string
		amount    string
		method    enums.PaymentMethod
		processor string
		net       string
	}{
		// afterTax 94, boleto flat 3.45, afterProcessor 90.55, platform 8.1495
		{name: "boleto", amount: "100", method: enums.PaymentMethodBoleto, processor: "3.45", net: "82.4005"},
		// afterTax 94, pix 0.9306, afterProcessor 93.0694, platform 8.376246
		{name: "pix", amount: "100", method: enums.PaymentMethodPix, processor: "0.9306", net: "84.693154"},
		// afterTax 1.88, afterProcessor -1.57, platform -0.1413
		{name: "boleto below fixed fee", amount: "2", method: enums.PaymentMethodBoleto, processor: "3.45", net: "-1.4287"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sale := Sale{ID: tt.name, Amount: dec(t, tt.amount), PaymentMethod: tt.method}
			got, err := ComputeBreakdown(sale, schedule)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertDecimal(t, "processorFee", got.ProcessorFee, tt.processor)
			assertDecimal(t, "netToTenant", got.NetToTenant, tt.net)
			assertDecimal(t, "total", got.Total(), tt.amount)
		})
	}
}

func TestComputeBreakdownConservesAmount(t *testing.T) {
	schedule := Schedule{
		CardPercentage:     dec(t, "4.49"),
		CardFixed:          dec(t, "0.4"),
		BoletoFixed:        dec(t, "1.99"),
		PixPercentage:      dec(t, "1.19"),
		PlatformPercentage: dec(t, "12.5"),
		PlatformFixed:      dec(t, "0.75"),
		TaxPercentage:      dec(t, "11.33"),
	}
	amounts := []string{"0.01", "1", "19.9", "97.03", "497", "1234.5678", "999999.99"}
	methods := []enums.PaymentMethod{enums.PaymentMethodCard, enums.PaymentMethodBoleto, enums.PaymentMethodPix}

	for _, amount := range amounts {
		for _, method := range methods {
			sale := Sale{ID: amount + "-" + method.String(), Amount: dec(t, amount), PaymentMethod: method}
			got, err := ComputeBreakdown(sale, schedule)
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", sale.ID, err)
			}
			if !got.Total().Equal(sale.Amount) {
				t.Fatalf("%s: components sum to %s, want %s", sale.ID, got.Total(), sale.Amount)
			}
		}
	}
}

func TestComputeBreakdownZeroAmountIsAllZero(t *testing.T) {
	for _, method := range []enums.PaymentMethod{enums.PaymentMethodFree, enums.PaymentMethodCard, enums.PaymentMethodBoleto} {
		got, err := ComputeBreakdown(Sale{ID: "enrollment", Amount: decimal.Zero, PaymentMethod: method}, referenceSchedule(t))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", method, err)
		}
		for name, v := range map[string]decimal.Decimal{
			"taxWithheld":  got.TaxWithheld,
			"processorFee": got.ProcessorFee,
			"platformFee":  got.PlatformFee,
			"netToTenant":  got.NetToTenant,
		} {
			if !v.IsZero() {
				t.Fatalf("%s: expected zero %s, got %s", method, name, v)
			}
		}
	}
}

func TestComputeBreakdownRejectsInvalidInput(t *testing.T) {
	schedule := referenceSchedule(t)
	tests := []struct {
		name string
		sale Sale
		want error
	}{
		{name: "negative amount", sale: Sale{ID: "s", Amount: dec(t, "-10"), PaymentMethod: enums.PaymentMethodCard}, want: ErrInvalidSaleAmount},
		{name: "paid free sale", sale: Sale{ID: "s", Amount: dec(t, "5"), PaymentMethod: enums.PaymentMethodFree}, want: ErrInvalidSaleAmount},
		{name: "unknown method", sale: Sale{ID: "s", Amount: dec(t, "50"), PaymentMethod: "paypal"}, want: ErrUnsupportedPaymentMethod},
		{name: "empty method", sale: Sale{ID: "s", Amount: dec(t, "50")}, want: ErrUnsupportedPaymentMethod},
		{name: "unknown method on zero amount", sale: Sale{ID: "s", Amount: decimal.Zero, PaymentMethod: "voucher"}, want: ErrUnsupportedPaymentMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeBreakdown(tt.sale, schedule)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !got.Total().IsZero() {
				t.Fatalf("expected empty breakdown on error, got %+v", got)
			}
		})
	}
}

func TestComputeBreakdownIsSafeForConcurrentUse(t *testing.T) {
	schedule := referenceSchedule(t)
	sale := Sale{ID: "sale-1", Amount: dec(t, "100"), PaymentMethod: enums.PaymentMethodCard}

	var wg sync.WaitGroup
	results := make([]Breakdown, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = ComputeBreakdown(sale, schedule)
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if !got.NetToTenant.Equal(dec(t, "81.772054")) {
			t.Fatalf("result %d diverged: %s", i, got.NetToTenant)
		}
	}
}
