package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/tradelink-backend/pkg/db/models"
	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradelink-backend/pkg/errors"
	"github.com/angelmondragon/tradelink-backend/pkg/logger"
	"github.com/angelmondragon/tradelink-backend/pkg/outbox"
	"github.com/angelmondragon/tradelink-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/tradelink-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxNumberAttempts = 5

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// NumberGenerator produces candidate invoice numbers.
type NumberGenerator func(now time.Time) (string, error)

// Service issues and reads invoices.
type Service interface {
	Issue(ctx context.Context, orderID, requesterID uuid.UUID) (*InvoiceDTO, error)
	GetInvoice(ctx context.Context, invoiceID, requesterID uuid.UUID) (*InvoiceDTO, error)
	ListInvoices(ctx context.Context, input ListInvoicesInput) (*InvoiceList, error)
}

type service struct {
	tx      txRunner
	repo    Repository
	outbox  outboxPublisher
	numbers NumberGenerator
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the invoice issuer. A nil generator uses NewInvoiceNumber.
func NewService(tx txRunner, repo Repository, publisher outboxPublisher, numbers NumberGenerator, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if numbers == nil {
		numbers = NewInvoiceNumber
	}
	return &service{
		tx:      tx,
		repo:    repo,
		outbox:  publisher,
		numbers: numbers,
		logg:    logg,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Issue(ctx context.Context, orderID, requesterID uuid.UUID) (*InvoiceDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
				WithDetails(map[string]any{"order_id": orderID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.WholesalerID != requesterID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the order's wholesaler can issue an invoice")
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cancelled orders cannot be invoiced").
			WithDetails(map[string]any{"order_id": orderID, "status": order.Status})
	}

	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		invoice, err := s.insert(ctx, order)
		switch {
		case err == nil:
			ctx = s.logg.WithFields(ctx, map[string]any{
				"invoice_id":     invoice.ID.String(),
				"invoice_number": invoice.InvoiceNumber,
			})
			s.logg.Info(ctx, "invoice issued")
			dto := ToDTO(*invoice)
			return &dto, nil
		case orderUniqueConstraint.Violated(err):
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already invoiced").
				WithDetails(map[string]any{"reason": pkgerrors.ReasonAlreadyInvoiced, "order_id": orderID})
		case numberUniqueConstraint.Violated(err):
			s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "invoice number collision, regenerating")
			continue
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create invoice")
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "could not allocate a unique invoice number")
}

func (s *service) insert(ctx context.Context, order *models.Order) (*models.Invoice, error) {
	now := s.now()
	number, err := s.numbers(now)
	if err != nil {
		return nil, err
	}
	invoice := &models.Invoice{
		ID:            uuid.New(),
		OrderID:       order.ID,
		InvoiceNumber: number,
		AmountMinor:   order.TotalMinor,
		Currency:      order.Currency,
		IssuedBy:      order.WholesalerID,
		IssuedTo:      order.RetailerID,
		Status:        enums.InvoiceStatusUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, invoice); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInvoiceIssued,
			AggregateType: enums.AggregateInvoice,
			AggregateID:   invoice.ID,
			Actor:         &outbox.ActorRef{UserID: order.WholesalerID, Role: string(enums.RoleWholesaler)},
			Data: payloads.InvoiceIssuedEvent{
				InvoiceID:     invoice.ID,
				OrderID:       invoice.OrderID,
				InvoiceNumber: invoice.InvoiceNumber,
				IssuedBy:      invoice.IssuedBy,
				IssuedTo:      invoice.IssuedTo,
				AmountMinor:   invoice.AmountMinor,
				Currency:      invoice.Currency,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *service) GetInvoice(ctx context.Context, invoiceID, requesterID uuid.UUID) (*InvoiceDTO, error) {
	if invoiceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id is required")
	}
	invoice, err := s.repo.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found").
				WithDetails(map[string]any{"invoice_id": invoiceID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load invoice")
	}
	if invoice.IssuedBy != requesterID && invoice.IssuedTo != requesterID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "invoice belongs to other parties")
	}
	dto := ToDTO(*invoice)
	return &dto, nil
}

func (s *service) ListInvoices(ctx context.Context, input ListInvoicesInput) (*InvoiceList, error) {
	filter := listFilter{Limit: input.Limit, Status: input.Status}
	switch input.Role {
	case enums.RoleRetailer:
		filter.IssuedTo = &input.RequesterID
	case enums.RoleWholesaler:
		filter.IssuedBy = &input.RequesterID
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown invoice status")
	}

	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter.Cursor = cursor

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list invoices")
	}
	dtos := make([]InvoiceDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, ToDTO(row))
	}
	page := pagination.Trim(dtos, input.Limit, func(i InvoiceDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: i.CreatedAt, ID: i.ID}
	})
	return &page, nil
}
