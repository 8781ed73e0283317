package orders

import (
	"context"

	"github.com/angelmondragon/tradelink-backend/internal/inventory"
	"github.com/angelmondragon/tradelink-backend/pkg/outbox"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type database interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// StockLedger reserves and releases product stock.
type StockLedger interface {
	Reserve(ctx context.Context, db *gorm.DB, wholesalerID, productID uuid.UUID, qty int) (*inventory.Reservation, error)
	Release(ctx context.Context, db *gorm.DB, productID uuid.UUID, qty int) error
	ReleaseAll(ctx context.Context, db *gorm.DB, reservations []inventory.Reservation) error
}
