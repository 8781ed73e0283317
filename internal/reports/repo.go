package reports

import (
	"context"

	"github.com/angelmondragon/tradelink-backend/pkg/db/models"
	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type orderTotals struct {
	OrderCount      int64
	CancelledCount  int64
	GrossSalesMinor int64
}

type invoiceTotals struct {
	PaidCount        int64
	PaidMinor        int64
	UnpaidCount      int64
	OutstandingMinor int64
}

type customerRow struct {
	RetailerID uuid.UUID
	OrderCount int64
	SpendMinor int64
}

// Repository runs the read-only aggregate queries behind the reports.
type Repository interface {
	OrderTotals(ctx context.Context, wholesalerID uuid.UUID, currency enums.Currency, r Range) (orderTotals, error)
	InvoiceTotals(ctx context.Context, wholesalerID uuid.UUID, currency enums.Currency, r Range) (invoiceTotals, error)
	Customers(ctx context.Context, wholesalerID uuid.UUID, currency enums.Currency, limit int) ([]customerRow, error)
	Products(ctx context.Context, wholesalerID uuid.UUID) ([]models.Product, error)
	RecentProducts(ctx context.Context, wholesalerID uuid.UUID, limit int) ([]models.Product, error)
	CountOrders(ctx context.Context, wholesalerID uuid.UUID, status *enums.OrderStatus) (int64, error)
	CountProducts(ctx context.Context, wholesalerID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reports repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func withRange(query *gorm.DB, column string, r Range) *gorm.DB {
	if !r.Start.IsZero() {
		query = query.Where(column+" >= ?", r.Start.UTC())
	}
	if !r.End.IsZero() {
		query = query.Where(column+" < ?", r.End.UTC())
	}
	return query
}

func (r *repository) OrderTotals(ctx context.Context, wholesalerID uuid.UUID, currency enums.Currency, rng Range) (orderTotals, error) {
	var totals orderTotals
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select(`COUNT(CASE WHEN status <> ? THEN 1 END) AS order_count,
COUNT(CASE WHEN status = ? THEN 1 END) AS cancelled_count,
COALESCE(SUM(CASE WHEN status <> ? THEN total_minor ELSE 0 END), 0) AS gross_sales_minor`,
			enums.OrderStatusCancelled, enums.OrderStatusCancelled, enums.OrderStatusCancelled).
		Where("wholesaler_id = ? AND currency = ?", wholesalerID, currency)
	err := withRange(query, "created_at", rng).Scan(&totals).Error
	return totals, err
}

func (r *repository) InvoiceTotals(ctx context.Context, wholesalerID uuid.UUID, currency enums.Currency, rng Range) (invoiceTotals, error) {
	var totals invoiceTotals
	query := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Select(`COUNT(CASE WHEN status = ? THEN 1 END) AS paid_count,
COALESCE(SUM(CASE WHEN status = ? THEN amount_minor ELSE 0 END), 0) AS paid_minor,
COUNT(CASE WHEN status = ? THEN 1 END) AS unpaid_count,
COALESCE(SUM(CASE WHEN status = ? THEN amount_minor ELSE 0 END), 0) AS outstanding_minor`,
			enums.InvoiceStatusPaid, enums.InvoiceStatusPaid, enums.InvoiceStatusUnpaid, enums.InvoiceStatusUnpaid).
		Where("issued_by = ? AND currency = ?", wholesalerID, currency)
	err := withRange(query, "created_at", rng).Scan(&totals).Error
	return totals, err
}

func (r *repository) Customers(ctx context.Context, wholesalerID uuid.UUID, currency enums.Currency, limit int) ([]customerRow, error) {
	var rows []customerRow
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("retailer_id, COUNT(*) AS order_count, COALESCE(SUM(total_minor), 0) AS spend_minor").
		Where("wholesaler_id = ? AND currency = ? AND status <> ?", wholesalerID, currency, enums.OrderStatusCancelled).
		Group("retailer_id").
		Order("spend_minor DESC, retailer_id").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *repository) Products(ctx context.Context, wholesalerID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("wholesaler_id = ?", wholesalerID).
		Order("stock ASC, name ASC").
		Find(&products).Error
	return products, err
}

func (r *repository) RecentProducts(ctx context.Context, wholesalerID uuid.UUID, limit int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("wholesaler_id = ?", wholesalerID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&products).Error
	return products, err
}

func (r *repository) CountOrders(ctx context.Context, wholesalerID uuid.UUID, status *enums.OrderStatus) (int64, error) {
	var n int64
	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("wholesaler_id = ?", wholesalerID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	err := query.Count(&n).Error
	return n, err
}

func (r *repository) CountProducts(ctx context.Context, wholesalerID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("wholesaler_id = ?", wholesalerID).Count(&n).Error
	return n, err
}
