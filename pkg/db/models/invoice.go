package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradelink-backend/pkg/enums"
)

// Invoice bills exactly one order. AmountMinor is copied from the order total
// at issuance and status only moves from unpaid to paid.
type Invoice struct {
	ID                     uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID                uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	InvoiceNumber          string              `gorm:"column:invoice_number;not null"`
	AmountMinor            int64               `gorm:"column:amount_minor;not null"`
	Currency               enums.Currency      `gorm:"column:currency;type:text;not null;default:'INR'"`
	IssuedBy               uuid.UUID           `gorm:"column:issued_by;type:uuid;not null"`
	IssuedTo               uuid.UUID           `gorm:"column:issued_to;type:uuid;not null"`
	Status                 enums.InvoiceStatus `gorm:"column:status;type:invoice_status;not null;default:'unpaid'"`
	PaymentIntentRef       *string             `gorm:"column:payment_intent_ref"`
	PaymentIntentExpiresAt *time.Time          `gorm:"column:payment_intent_expires_at"`
	PaymentRef             *string             `gorm:"column:payment_ref"`
	PaidAt                 *time.Time          `gorm:"column:paid_at"`
	CreatedAt              time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Invoice) TableName() string { return "invoices" }

// HasLiveIntent reports whether a provider intent exists and has not expired at now.
func (i *Invoice) HasLiveIntent(now time.Time) bool {
	if i == nil || i.PaymentIntentRef == nil || *i.PaymentIntentRef == "" {
		return false
	}
	if i.PaymentIntentExpiresAt == nil {
		return false
	}
	return now.Before(*i.PaymentIntentExpiresAt)
}
