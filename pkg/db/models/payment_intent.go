package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradelink-backend/pkg/enums"
)

// PaymentIntent records every provider intent created for an invoice, including
// superseded ones, so a late confirmation can still be matched to its invoice.
type PaymentIntent struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceID   uuid.UUID      `gorm:"column:invoice_id;type:uuid;not null"`
	IntentRef   string         `gorm:"column:intent_ref;not null"`
	AmountMinor int64          `gorm:"column:amount_minor;not null"`
	Currency    enums.Currency `gorm:"column:currency;type:text;not null"`
	ExpiresAt   time.Time      `gorm:"column:expires_at;not null"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (PaymentIntent) TableName() string { return "payment_intents" }
