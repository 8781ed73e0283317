package invoices

import (
	"context"

	"github.com/angelmondragon/tradelink-backend/pkg/db"
	"github.com/angelmondragon/tradelink-backend/pkg/db/models"
	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	"github.com/angelmondragon/tradelink-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	orderUniqueConstraint = db.UniqueConstraint{
		Name:   "invoices_order_id_key",
		Table:  "invoices",
		Column: "order_id",
	}
	numberUniqueConstraint = db.UniqueConstraint{
		Name:   "invoices_invoice_number_key",
		Table:  "invoices",
		Column: "invoice_number",
	}
)

// Repository defines invoice persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, invoice *models.Invoice) error
	FindByID(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter listFilter) ([]models.Invoice, error)
}

type listFilter struct {
	IssuedTo *uuid.UUID
	IssuedBy *uuid.UUID
	Status   *enums.InvoiceStatus
	Limit    int
	Cursor   *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an invoice repository bound to conn.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *repository) FindByID(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).Where("id = ?", invoiceID).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, filter listFilter) ([]models.Invoice, error) {
	query := r.db.WithContext(ctx).Model(&models.Invoice{})
	if filter.IssuedTo != nil {
		query = query.Where("issued_to = ?", *filter.IssuedTo)
	}
	if filter.IssuedBy != nil {
		query = query.Where("issued_by = ?", *filter.IssuedBy)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var invoices []models.Invoice
	err := query.Scopes(pagination.Keyset(filter.Cursor, filter.Limit)).Find(&invoices).Error
	return invoices, err
}
