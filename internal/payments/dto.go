package payments

import (
	"time"

	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Intent is returned to the payer so the checkout widget can be opened.
type Intent struct {
	InvoiceID   uuid.UUID      `json:"invoice_id"`
	IntentRef   string         `json:"intent_ref"`
	AmountMinor int64          `json:"amount_minor"`
	Amount      string         `json:"amount"`
	Currency    enums.Currency `json:"currency"`
	KeyID       string         `json:"key_id"`
	Receipt     string         `json:"receipt"`
	ExpiresAt   time.Time      `json:"expires_at"`
	Reused      bool           `json:"reused"`
}

// ConfirmInput is the provider's out-of-band confirmation.
type ConfirmInput struct {
	IntentRef  string
	PaymentRef string
	Signature  string
}

// Confirmation describes the invoice after a verified confirmation.
type Confirmation struct {
	InvoiceID        uuid.UUID           `json:"invoice_id"`
	InvoiceNumber    string              `json:"invoice_number"`
	Status           enums.InvoiceStatus `json:"status"`
	PaymentRef       string              `json:"payment_ref"`
	PaidAt           time.Time           `json:"paid_at"`
	AlreadyConfirmed bool                `json:"already_confirmed"`
}

// formatMinor renders a minor-unit amount in major units, e.g. 20050 -> "200.50".
func formatMinor(amountMinor int64, currency enums.Currency) string {
	exp := currency.MinorUnitExponent()
	return decimal.New(amountMinor, -exp).StringFixed(exp)
}
