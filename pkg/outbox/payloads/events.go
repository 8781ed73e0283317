package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradelink-backend/pkg/enums"
)

// OrderPlacedEvent is emitted once an order and its line items commit.
type OrderPlacedEvent struct {
	OrderID      uuid.UUID      `json:"order_id"`
	RetailerID   uuid.UUID      `json:"retailer_id"`
	WholesalerID uuid.UUID      `json:"wholesaler_id"`
	TotalMinor   int64          `json:"total_minor"`
	Currency     enums.Currency `json:"currency"`
	ItemCount    int            `json:"item_count"`
}

// OrderStatusChangedEvent is emitted when the wholesaler moves an order.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	RetailerID     uuid.UUID         `json:"retailer_id"`
	WholesalerID   uuid.UUID         `json:"wholesaler_id"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	Status         enums.OrderStatus `json:"status"`
}

// InvoiceIssuedEvent is emitted when an invoice is created for an order.
type InvoiceIssuedEvent struct {
	InvoiceID     uuid.UUID      `json:"invoice_id"`
	OrderID       uuid.UUID      `json:"order_id"`
	InvoiceNumber string         `json:"invoice_number"`
	IssuedBy      uuid.UUID      `json:"issued_by"`
	IssuedTo      uuid.UUID      `json:"issued_to"`
	AmountMinor   int64          `json:"amount_minor"`
	Currency      enums.Currency `json:"currency"`
}

// InvoicePaidEvent is emitted on the first verified payment confirmation.
type InvoicePaidEvent struct {
	InvoiceID     uuid.UUID      `json:"invoice_id"`
	OrderID       uuid.UUID      `json:"order_id"`
	InvoiceNumber string         `json:"invoice_number"`
	IssuedBy      uuid.UUID      `json:"issued_by"`
	IssuedTo      uuid.UUID      `json:"issued_to"`
	AmountMinor   int64          `json:"amount_minor"`
	Currency      enums.Currency `json:"currency"`
	PaymentRef    string         `json:"payment_ref"`
	PaidAt        time.Time      `json:"paid_at"`
}
