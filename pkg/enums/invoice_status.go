package enums

// InvoiceStatus tracks settlement. paid is terminal.
type InvoiceStatus string

const (
	InvoiceStatusUnpaid InvoiceStatus = "unpaid"
	InvoiceStatusPaid   InvoiceStatus = "paid"
)

var invoiceStatuses = []InvoiceStatus{InvoiceStatusUnpaid, InvoiceStatusPaid}

func (s InvoiceStatus) String() string { return string(s) }
func (s InvoiceStatus) IsValid() bool  { return known(s, invoiceStatuses) }

func ParseInvoiceStatus(raw string) (InvoiceStatus, error) {
	return parse("invoice status", raw, invoiceStatuses)
}
