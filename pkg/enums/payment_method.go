package enums

// PaymentMethod is how a student paid for a course. Each paid method has its
// own processor rate in the fee schedule; free sales carry no fees at all.
type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodBoleto PaymentMethod = "boleto"
	PaymentMethodPix    PaymentMethod = "pix"
	PaymentMethodFree   PaymentMethod = "free"
)

var paymentMethods = newSet("payment method",
	PaymentMethodCard,
	PaymentMethodBoleto,
	PaymentMethodPix,
	PaymentMethodFree,
)

func (p PaymentMethod) String() string { return string(p) }

// IsValid is case sensitive; stored sales always use the lower-case form.
func (p PaymentMethod) IsValid() bool { return paymentMethods.has(p) }

// IsPaid is false only for free enrollments.
func (p PaymentMethod) IsPaid() bool { return p.IsValid() && p != PaymentMethodFree }

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return paymentMethods.parse(value)
}
