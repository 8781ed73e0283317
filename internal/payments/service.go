package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/tradelink-backend/pkg/db/models"
	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradelink-backend/pkg/errors"
	"github.com/angelmondragon/tradelink-backend/pkg/logger"
	"github.com/angelmondragon/tradelink-backend/pkg/metrics"
	"github.com/angelmondragon/tradelink-backend/pkg/outbox"
	"github.com/angelmondragon/tradelink-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/tradelink-backend/pkg/razorpay"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultIntentTTL       = 30 * time.Minute
	defaultProviderTimeout = 10 * time.Second
)

// Result labels for payment metrics.
const (
	resultCreated          = "created"
	resultReused           = "reused"
	resultAlreadyPaid      = "already_paid"
	resultProviderError    = "provider_error"
	resultConfirmed        = "confirmed"
	resultReplayed         = "replayed"
	resultNotFound         = "not_found"
	resultSignatureInvalid = "signature_invalid"
	resultDuplicatePayment = "duplicate_payment"
)

// Service reconciles invoices with the payment gateway.
type Service interface {
	CreateIntent(ctx context.Context, invoiceID, requesterID uuid.UUID) (*Intent, error)
	Confirm(ctx context.Context, input ConfirmInput) (*Confirmation, error)
}

// Config carries the gateway secret and timings. SigningSecret is shared only
// with the gateway and never leaves the server.
type Config struct {
	SigningSecret   string
	IntentTTL       time.Duration
	ProviderTimeout time.Duration
}

// ServiceParams wires the reconciler.
type ServiceParams struct {
	Config     Config
	Tx         txRunner
	Repository Repository
	Provider   Provider
	Outbox     outboxPublisher
	Metrics    *metrics.PaymentMetrics
	Logger     *logger.Logger
}

type service struct {
	cfg      Config
	tx       txRunner
	repo     Repository
	provider Provider
	outbox   outboxPublisher
	metrics  *metrics.PaymentMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService validates the dependencies and builds the reconciler.
func NewService(params ServiceParams) (Service, error) {
	if strings.TrimSpace(params.Config.SigningSecret) == "" {
		return nil, fmt.Errorf("payment signing secret required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("payment provider required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg := params.Config
	if cfg.IntentTTL <= 0 {
		cfg.IntentTTL = defaultIntentTTL
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = defaultProviderTimeout
	}
	return &service{
		cfg:      cfg,
		tx:       params.Tx,
		repo:     params.Repository,
		provider: params.Provider,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// CreateIntent returns the invoice's live intent when one exists, otherwise
// asks the gateway for a new one that supersedes any expired reference.
func (s *service) CreateIntent(ctx context.Context, invoiceID, requesterID uuid.UUID) (*Intent, error) {
	if invoiceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id is required")
	}
	ctx = s.logg.WithInvoiceID(ctx, invoiceID.String())

	invoice, err := s.loadInvoice(ctx, s.repo, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.IssuedTo != requesterID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the billed retailer can pay this invoice")
	}
	if invoice.Status == enums.InvoiceStatusPaid {
		s.metrics.ObserveIntent(resultAlreadyPaid)
		return nil, alreadyPaid(invoice.ID)
	}
	if invoice.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice amount must be positive").
			WithDetails(map[string]any{"invoice_id": invoice.ID})
	}

	now := s.now()
	if invoice.HasLiveIntent(now) {
		s.metrics.ObserveIntent(resultReused)
		return s.intentFor(invoice, *invoice.PaymentIntentRef, *invoice.PaymentIntentExpiresAt, true), nil
	}

	order, err := s.createProviderOrder(ctx, invoice)
	if err != nil {
		s.metrics.ObserveIntent(resultProviderError)
		return nil, err
	}

	expiresAt := now.Add(s.cfg.IntentTTL)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.AttachIntent(ctx, invoice.ID, order.ID, expiresAt, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attach payment intent")
		}
		if rows == 0 {
			current, err := s.loadInvoice(ctx, repo, invoice.ID)
			if err != nil {
				return err
			}
			if current.Status == enums.InvoiceStatusPaid {
				return alreadyPaid(invoice.ID)
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "invoice changed while creating payment intent")
		}
		if err := repo.RecordIntent(ctx, &models.PaymentIntent{
			ID:          uuid.New(),
			InvoiceID:   invoice.ID,
			IntentRef:   order.ID,
			AmountMinor: invoice.AmountMinor,
			Currency:    invoice.Currency,
			ExpiresAt:   expiresAt,
			CreatedAt:   now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payment intent")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			s.metrics.ObserveIntent(resultAlreadyPaid)
		}
		return nil, err
	}

	s.metrics.ObserveIntent(resultCreated)
	ctx = s.logg.WithField(ctx, "intent_ref", order.ID)
	if invoice.PaymentIntentRef != nil {
		ctx = s.logg.WithField(ctx, "superseded_intent_ref", *invoice.PaymentIntentRef)
	}
	s.logg.Info(ctx, "payment intent created")

	return s.intentFor(invoice, order.ID, expiresAt, false), nil
}

func (s *service) createProviderOrder(ctx context.Context, invoice *models.Invoice) (*razorpay.Order, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()

	order, err := s.provider.CreateOrder(callCtx, razorpay.OrderParams{
		AmountMinor: invoice.AmountMinor,
		Currency:    invoice.Currency.String(),
		Receipt:     invoice.InvoiceNumber,
		Notes: map[string]string{
			"invoice_id": invoice.ID.String(),
			"order_id":   invoice.OrderID.String(),
		},
	})
	if err != nil {
		s.logg.Error(ctx, "payment provider create order failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment provider unavailable").
			WithDetails(map[string]any{"invoice_id": invoice.ID})
	}
	if order == nil || strings.TrimSpace(order.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment provider returned no intent reference")
	}
	if order.AmountMinor != 0 && order.AmountMinor != invoice.AmountMinor {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment provider amount mismatch").
			WithDetails(map[string]any{"invoice_id": invoice.ID, "expected": invoice.AmountMinor, "received": order.AmountMinor})
	}
	return order, nil
}

func (s *service) intentFor(invoice *models.Invoice, ref string, expiresAt time.Time, reused bool) *Intent {
	return &Intent{
		InvoiceID:   invoice.ID,
		IntentRef:   ref,
		AmountMinor: invoice.AmountMinor,
		Amount:      formatMinor(invoice.AmountMinor, invoice.Currency),
		Currency:    invoice.Currency,
		KeyID:       s.provider.KeyID(),
		Receipt:     invoice.InvoiceNumber,
		ExpiresAt:   expiresAt,
		Reused:      reused,
	}
}

// Confirm verifies a gateway confirmation and settles the invoice. The HMAC
// match is the only evidence of authenticity. Replays of an applied
// confirmation succeed without changing state.
func (s *service) Confirm(ctx context.Context, input ConfirmInput) (*Confirmation, error) {
	intentRef := strings.TrimSpace(input.IntentRef)
	paymentRef := strings.TrimSpace(input.PaymentRef)
	if intentRef == "" || paymentRef == "" || strings.TrimSpace(input.Signature) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent reference, payment reference and signature are required")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"intent_ref": intentRef, "payment_ref": paymentRef})

	invoice, err := s.repo.FindInvoiceByIntentRef(ctx, intentRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.ObserveConfirmation(resultNotFound)
			s.logg.Warn(ctx, "payment confirmation for unknown intent")
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found").
				WithDetails(map[string]any{"intent_ref": intentRef})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load invoice by intent")
	}
	ctx = s.logg.WithInvoiceID(ctx, invoice.ID.String())

	if !VerifySignature(s.cfg.SigningSecret, intentRef, paymentRef, input.Signature) {
		s.metrics.ObserveConfirmation(resultSignatureInvalid)
		s.metrics.IncSignatureMismatch()
		s.logg.Audit(ctx, "payment.signature_invalid", map[string]any{
			"invoice_status": invoice.Status,
		})
		return nil, pkgerrors.New(pkgerrors.CodeSignatureInvalid, "payment signature invalid")
	}

	if invoice.Status == enums.InvoiceStatusPaid {
		return s.settled(ctx, invoice, paymentRef)
	}

	paidAt := s.now()
	var settled *models.Invoice
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.MarkPaid(ctx, invoice.ID, paymentRef, paidAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark invoice paid")
		}
		if rows == 0 {
			current, err := s.loadInvoice(ctx, repo, invoice.ID)
			if err != nil {
				return err
			}
			settled = current
			return nil
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInvoicePaid,
			AggregateType: enums.AggregateInvoice,
			AggregateID:   invoice.ID,
			Actor:         &outbox.ActorRef{UserID: invoice.IssuedTo, Role: string(enums.RoleRetailer)},
			Data: payloads.InvoicePaidEvent{
				InvoiceID:     invoice.ID,
				OrderID:       invoice.OrderID,
				InvoiceNumber: invoice.InvoiceNumber,
				IssuedBy:      invoice.IssuedBy,
				IssuedTo:      invoice.IssuedTo,
				AmountMinor:   invoice.AmountMinor,
				Currency:      invoice.Currency,
				PaymentRef:    paymentRef,
				PaidAt:        paidAt,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit invoice paid event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if settled != nil {
		// Lost the race to a concurrent confirmation.
		return s.settled(ctx, settled, paymentRef)
	}

	s.metrics.ObserveConfirmation(resultConfirmed)
	s.logg.Info(ctx, "invoice paid")
	return &Confirmation{
		InvoiceID:     invoice.ID,
		InvoiceNumber: invoice.InvoiceNumber,
		Status:        enums.InvoiceStatusPaid,
		PaymentRef:    paymentRef,
		PaidAt:        paidAt,
	}, nil
}

// settled handles a verified confirmation for an invoice that is already
// paid. The same payment is a replay; a different payment is a second capture
// that needs manual follow-up.
func (s *service) settled(ctx context.Context, invoice *models.Invoice, paymentRef string) (*Confirmation, error) {
	if invoice.Status != enums.InvoiceStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "invoice could not be settled")
	}
	if invoice.PaymentRef == nil || *invoice.PaymentRef != paymentRef {
		s.metrics.ObserveConfirmation(resultDuplicatePayment)
		s.logg.Audit(ctx, "payment.duplicate_capture", map[string]any{
			"settled_payment_ref": invoice.PaymentRef,
		})
		return nil, alreadyPaid(invoice.ID)
	}

	s.metrics.ObserveConfirmation(resultReplayed)
	s.logg.Info(ctx, "payment confirmation replayed")
	confirmation := &Confirmation{
		InvoiceID:        invoice.ID,
		InvoiceNumber:    invoice.InvoiceNumber,
		Status:           invoice.Status,
		PaymentRef:       paymentRef,
		AlreadyConfirmed: true,
	}
	if invoice.PaidAt != nil {
		confirmation.PaidAt = *invoice.PaidAt
	}
	return confirmation, nil
}

func (s *service) loadInvoice(ctx context.Context, repo Repository, invoiceID uuid.UUID) (*models.Invoice, error) {
	invoice, err := repo.FindInvoice(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found").
				WithDetails(map[string]any{"invoice_id": invoiceID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load invoice")
	}
	return invoice, nil
}

func alreadyPaid(invoiceID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "invoice already paid").
		WithDetails(map[string]any{"reason": pkgerrors.ReasonAlreadyPaid, "invoice_id": invoiceID})
}
