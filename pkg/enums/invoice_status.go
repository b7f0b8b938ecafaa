package enums

// InvoiceStatus tracks whether a tenant payout has been confirmed.
// Regenerating an invoice puts it back to pending.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
)

var invoiceStatuses = newSet("invoice status", InvoiceStatusPending, InvoiceStatusPaid)

func (s InvoiceStatus) String() string { return string(s) }

func (s InvoiceStatus) IsValid() bool { return invoiceStatuses.has(s) }

func ParseInvoiceStatus(value string) (InvoiceStatus, error) {
	return invoiceStatuses.parse(value)
}
