package payments

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/tradelink-backend/pkg/db/models"
	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the invoice reads and conditional writes the reconciler
// relies on. Every state change is keyed on the current status so concurrent
// writers cannot both succeed.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error)
	FindInvoiceByIntentRef(ctx context.Context, intentRef string) (*models.Invoice, error)
	AttachIntent(ctx context.Context, invoiceID uuid.UUID, intentRef string, expiresAt, now time.Time) (int64, error)
	RecordIntent(ctx context.Context, intent *models.PaymentIntent) error
	MarkPaid(ctx context.Context, invoiceID uuid.UUID, paymentRef string, paidAt time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payment repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).Where("id = ?", invoiceID).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// FindInvoiceByIntentRef resolves an intent reference through the intent
// history first, so superseded intents still match, then through the
// invoice's current reference.
func (r *repository) FindInvoiceByIntentRef(ctx context.Context, intentRef string) (*models.Invoice, error) {
	var intent models.PaymentIntent
	err := r.db.WithContext(ctx).Where("intent_ref = ?", intentRef).First(&intent).Error
	switch {
	case err == nil:
		return r.FindInvoice(ctx, intent.InvoiceID)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	var invoice models.Invoice
	if err := r.db.WithContext(ctx).Where("payment_intent_ref = ?", intentRef).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) AttachIntent(ctx context.Context, invoiceID uuid.UUID, intentRef string, expiresAt, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ? AND status = ?", invoiceID, enums.InvoiceStatusUnpaid).
		Updates(map[string]any{
			"payment_intent_ref":        intentRef,
			"payment_intent_expires_at": expiresAt,
			"updated_at":                now,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) RecordIntent(ctx context.Context, intent *models.PaymentIntent) error {
	return r.db.WithContext(ctx).Create(intent).Error
}

// MarkPaid settles the invoice only while it is still unpaid.
func (r *repository) MarkPaid(ctx context.Context, invoiceID uuid.UUID, paymentRef string, paidAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ? AND status = ?", invoiceID, enums.InvoiceStatusUnpaid).
		Updates(map[string]any{
			"status":      enums.InvoiceStatusPaid,
			"payment_ref": paymentRef,
			"paid_at":     paidAt,
			"updated_at":  paidAt,
		})
	return result.RowsAffected, result.Error
}
