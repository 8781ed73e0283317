package invoices

import (
	"time"

	"github.com/angelmondragon/tradelink-backend/pkg/db/models"
	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	"github.com/angelmondragon/tradelink-backend/pkg/pagination"
	"github.com/google/uuid"
)

// InvoiceDTO is the invoice payload returned to clients.
type InvoiceDTO struct {
	ID            uuid.UUID           `json:"id"`
	OrderID       uuid.UUID           `json:"order_id"`
	InvoiceNumber string              `json:"invoice_number"`
	AmountMinor   int64               `json:"amount_minor"`
	Currency      enums.Currency      `json:"currency"`
	IssuedBy      uuid.UUID           `json:"issued_by"`
	IssuedTo      uuid.UUID           `json:"issued_to"`
	Status        enums.InvoiceStatus `json:"status"`
	PaymentRef    *string             `json:"payment_ref,omitempty"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// ListInvoicesInput scopes the listing to the caller's side of the trade.
type ListInvoicesInput struct {
	RequesterID uuid.UUID
	Role        enums.Role
	Status      *enums.InvoiceStatus
	pagination.Params
}

// InvoiceList is a page of invoices.
type InvoiceList = pagination.Page[InvoiceDTO]

// ToDTO converts the model to its client payload.
func ToDTO(inv models.Invoice) InvoiceDTO {
	return InvoiceDTO{
		ID:            inv.ID,
		OrderID:       inv.OrderID,
		InvoiceNumber: inv.InvoiceNumber,
		AmountMinor:   inv.AmountMinor,
		Currency:      inv.Currency,
		IssuedBy:      inv.IssuedBy,
		IssuedTo:      inv.IssuedTo,
		Status:        inv.Status,
		PaymentRef:    inv.PaymentRef,
		PaidAt:        inv.PaidAt,
		CreatedAt:     inv.CreatedAt,
	}
}
