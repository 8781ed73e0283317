package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/tradelink-backend/pkg/db/models"
	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradelink-backend/pkg/errors"
	"github.com/angelmondragon/tradelink-backend/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// Reservation is a successful stock decrement. It carries the catalog data the
// caller snapshots onto order line items.
type Reservation struct {
	ProductID      uuid.UUID
	WholesalerID   uuid.UUID
	ProductName    string
	Qty            int
	UnitPriceMinor int64
	Currency       enums.Currency
}

// Ledger owns every mutation of products.stock. Callers pass the handle to run
// against so reservations can join an existing transaction.
type Ledger struct {
	metrics *metrics.InventoryMetrics
	now     func() time.Time
}

// NewLedger builds a ledger. A nil metrics collector is fine.
func NewLedger(m *metrics.InventoryMetrics) *Ledger {
	return &Ledger{
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Reserve decrements stock for productID by qty. The product must belong to
// wholesalerID; stock is never touched otherwise. The decrement is a single
// conditional UPDATE so concurrent reservations can never drive stock negative.
func (l *Ledger) Reserve(ctx context.Context, db *gorm.DB, wholesalerID, productID uuid.UUID, qty int) (*Reservation, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if wholesalerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wholesaler id is required")
	}
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"product_id": productID, "requested": qty})
	}

	product, err := findProduct(ctx, db, productID)
	if err != nil {
		l.observe(reservationResult(err))
		return nil, err
	}
	if product.WholesalerID != wholesalerID {
		l.observe(metrics.ReservationWrongWholesaler)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product does not belong to wholesaler").
			WithDetails(map[string]any{"product_id": productID, "wholesaler_id": wholesalerID})
	}
	if qty < product.MOQ {
		l.observe(metrics.ReservationMOQNotMet)
		return nil, pkgerrors.New(pkgerrors.CodeMinimumQuantityNotMet, "quantity below minimum order quantity").
			WithDetails(map[string]any{"product_id": productID, "requested": qty, "moq": product.MOQ})
	}

	result := db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND wholesaler_id = ? AND stock >= ?", productID, wholesalerID, qty).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock - ?", qty),
			"updated_at": l.now(),
		})
	if result.Error != nil {
		l.observe(metrics.ReservationError)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, result.Error, "reserve stock")
	}
	if result.RowsAffected == 0 {
		l.observe(metrics.ReservationInsufficientStock)
		available := product.Stock
		if latest, lerr := findProduct(ctx, db, productID); lerr == nil {
			available = latest.Stock
		}
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(map[string]any{"product_id": productID, "requested": qty, "available": available})
	}

	l.observe(metrics.ReservationReserved)
	return &Reservation{
		ProductID:      product.ID,
		WholesalerID:   product.WholesalerID,
		ProductName:    product.Name,
		Qty:            qty,
		UnitPriceMinor: product.UnitPriceMinor,
		Currency:       product.Currency,
	}, nil
}

// Release returns qty units to productID. It is the compensating action for
// Reserve and also backs order cancellation.
func (l *Ledger) Release(ctx context.Context, db *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	result := db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock + ?", qty),
			"updated_at": l.now(),
		})
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, result.Error, "release stock")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": productID})
	}
	l.observe(metrics.ReservationReleased)
	return nil
}

// ReleaseAll releases every reservation and returns the combined failures.
func (l *Ledger) ReleaseAll(ctx context.Context, db *gorm.DB, reservations []Reservation) error {
	var errs error
	for _, r := range reservations {
		errs = multierr.Append(errs, l.Release(ctx, db, r.ProductID, r.Qty))
	}
	return errs
}

func (l *Ledger) observe(result string) {
	if l == nil {
		return
	}
	l.metrics.ObserveReservation(result)
}

func findProduct(ctx context.Context, db *gorm.DB, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := db.WithContext(ctx).Where("id = ?", productID).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": productID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return &product, nil
}

func reservationResult(err error) string {
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return metrics.ReservationNotFound
	}
	return metrics.ReservationError
}
