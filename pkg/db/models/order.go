package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradelink-backend/pkg/enums"
)

// Order is placed by a retailer against a single wholesaler. TotalMinor is
// fixed at creation.
type Order struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	RetailerID   uuid.UUID         `gorm:"column:retailer_id;type:uuid;not null"`
	WholesalerID uuid.UUID         `gorm:"column:wholesaler_id;type:uuid;not null"`
	Status       enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	TotalMinor   int64             `gorm:"column:total_minor;not null"`
	Currency     enums.Currency    `gorm:"column:currency;type:text;not null;default:'INR'"`
	Notes        *string           `gorm:"column:notes"`
	Items        []OrderLineItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }
