package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradelink-backend/pkg/enums"
)

// Product is a wholesaler-owned stock keeping unit. Stock is mutated only
// through the inventory ledger.
type Product struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	WholesalerID   uuid.UUID      `gorm:"column:wholesaler_id;type:uuid;not null"`
	Name           string         `gorm:"column:name;not null"`
	SKU            *string        `gorm:"column:sku"`
	UnitPriceMinor int64          `gorm:"column:unit_price_minor;not null"`
	Currency       enums.Currency `gorm:"column:currency;type:text;not null;default:'INR'"`
	Stock          int            `gorm:"column:stock;not null;default:0"`
	MOQ            int            `gorm:"column:moq;not null;default:1"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }
