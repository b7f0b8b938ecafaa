package fees

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/coursehub-backend/pkg/enums"
)

var (
	ErrInvalidSaleAmount        = errors.New("invalid sale amount")
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")
)

// Sale is an immutable snapshot of one completed payment.
type Sale struct {
	ID            string              `json:"id"`
	TenantID      string              `json:"tenantId"`
	Amount        decimal.Decimal     `json:"amount"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// Breakdown splits a sale amount into withheld tax, processor fee, platform
// fee and the tenant's share.
type Breakdown struct {
	TaxWithheld  decimal.Decimal `json:"taxWithheld"`
	ProcessorFee decimal.Decimal `json:"processorFee"`
	PlatformFee  decimal.Decimal `json:"platformFee"`
	NetToTenant  decimal.Decimal `json:"netToTenant"`
}

// Total adds the four components back together; it equals the sale amount.
func (b Breakdown) Total() decimal.Decimal {
	return b.TaxWithheld.Add(b.ProcessorFee).Add(b.PlatformFee).Add(b.NetToTenant)
}

func zeroBreakdown() Breakdown {
	return Breakdown{
		TaxWithheld:  decimal.Zero,
		ProcessorFee: decimal.Zero,
		PlatformFee:  decimal.Zero,
		NetToTenant:  decimal.Zero,
	}
}

// ComputeBreakdown applies the fee stages in order: tax on the gross amount,
// the payment method's processor fee on what remains, then the platform
// commission on the remainder. Each stage compounds on the previous one.
func ComputeBreakdown(sale Sale, schedule Schedule) (Breakdown, error) {
	if sale.Amount.IsNegative() {
		return Breakdown{}, fmt.Errorf("%w: sale %s has amount %s", ErrInvalidSaleAmount, sale.ID, sale.Amount)
	}
	if !sale.PaymentMethod.IsValid() {
		return Breakdown{}, fmt.Errorf("%w: sale %s uses %q", ErrUnsupportedPaymentMethod, sale.ID, sale.PaymentMethod)
	}
	if sale.Amount.IsZero() {
		return zeroBreakdown(), nil
	}
	if !sale.PaymentMethod.IsPaid() {
		return Breakdown{}, fmt.Errorf("%w: free sale %s has amount %s", ErrInvalidSaleAmount, sale.ID, sale.Amount)
	}

	tax := sale.Amount.Mul(percent(schedule.TaxPercentage))
	afterTax := sale.Amount.Sub(tax)

	var processor decimal.Decimal
	switch sale.PaymentMethod {
	case enums.PaymentMethodCard:
		processor = afterTax.Mul(percent(schedule.CardPercentage)).Add(schedule.CardFixed)
	case enums.PaymentMethodBoleto:
		processor = schedule.BoletoFixed
	case enums.PaymentMethodPix:
		processor = afterTax.Mul(percent(schedule.PixPercentage))
	default:
		return Breakdown{}, fmt.Errorf("%w: sale %s uses %q", ErrUnsupportedPaymentMethod, sale.ID, sale.PaymentMethod)
	}
	afterProcessor := afterTax.Sub(processor)

	platform := afterProcessor.Mul(percent(schedule.PlatformPercentage)).Add(schedule.PlatformFixed)

	return Breakdown{
		TaxWithheld:  tax,
		ProcessorFee: processor,
		PlatformFee:  platform,
		NetToTenant:  afterProcessor.Sub(platform),
	}, nil
}

// percent converts a 0-100 rate into a multiplier without rounding.
func percent(rate decimal.Decimal) decimal.Decimal {
	return rate.Shift(-2)
}
