package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/angelmondragon/tradelink-backend/internal/inventory"
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

// Service manages the order lifecycle from placement to delivery.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error)
	GetOrder(ctx context.Context, orderID, requesterID uuid.UUID) (*OrderDTO, error)
	ListOrders(ctx context.Context, input ListOrdersInput) (*OrderList, error)
}

type service struct {
	db     database
	repo   Repository
	ledger StockLedger
	outbox outboxPublisher
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires the order lifecycle dependencies.
func NewService(db database, repo Repository, ledger StockLedger, publisher outboxPublisher, logg *logger.Logger) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database required")
	}
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		db:     db,
		repo:   repo,
		ledger: ledger,
		outbox: publisher,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*OrderDTO, error) {
	if err := validatePlaceOrder(input); err != nil {
		return nil, err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"retailer_id":   input.RetailerID.String(),
		"wholesaler_id": input.WholesalerID.String(),
	})

	root := s.db.DB()
	reservations := make([]inventory.Reservation, 0, len(input.Items))
	for _, item := range input.Items {
		res, err := s.ledger.Reserve(ctx, root, input.WholesalerID, item.ProductID, item.Qty)
		if err == nil && len(reservations) > 0 && res.Currency != reservations[0].Currency {
			reservations = append(reservations, *res)
			err = pkgerrors.New(pkgerrors.CodeValidation, "order items must share one currency").
				WithDetails(map[string]any{"product_id": item.ProductID, "currency": res.Currency})
		}
		if err != nil {
			s.compensate(ctx, root, reservations)
			return nil, err
		}
		reservations = append(reservations, *res)
	}

	now := s.now()
	order := models.Order{
		ID:           uuid.New(),
		RetailerID:   input.RetailerID,
		WholesalerID: input.WholesalerID,
		Status:       enums.OrderStatusPending,
		Currency:     reservations[0].Currency,
		Notes:        normalizeNotes(input.Notes),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for i, res := range reservations {
		unitPrice := res.UnitPriceMinor
		if override := input.Items[i].UnitPriceMinor; override != nil {
			unitPrice = *override
		}
		lineTotal, ok := mulMinor(unitPrice, res.Qty)
		if ok {
			order.TotalMinor, ok = addMinor(order.TotalMinor, lineTotal)
		}
		if !ok {
			s.compensate(ctx, root, reservations)
			return nil, amountOutOfRange(i, res.ProductID)
		}
		order.Items = append(order.Items, models.OrderLineItem{
			ID:             uuid.New(),
			OrderID:        order.ID,
			ProductID:      res.ProductID,
			ProductName:    res.ProductName,
			Qty:            res.Qty,
			UnitPriceMinor: unitPrice,
			LineTotalMinor: lineTotal,
			CreatedAt:      now.Add(time.Duration(i) * time.Microsecond),
		})
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrder(ctx, &order); err != nil {
			return err
		}
		if err := repo.CreateLineItems(ctx, order.Items); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.RetailerID, Role: string(enums.RoleRetailer)},
			Data: payloads.OrderPlacedEvent{
				OrderID:      order.ID,
				RetailerID:   order.RetailerID,
				WholesalerID: order.WholesalerID,
				TotalMinor:   order.TotalMinor,
				Currency:     order.Currency,
				ItemCount:    len(order.Items),
			},
		})
	})
	if err != nil {
		s.compensate(ctx, root, reservations)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist order")
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "order placed")

	dto := toOrderDTO(order)
	return &dto, nil
}

func (s *service) compensate(ctx context.Context, db *gorm.DB, reservations []inventory.Reservation) {
	if len(reservations) == 0 {
		return
	}
	if err := s.ledger.ReleaseAll(ctx, db, reservations); err != nil {
		s.logg.Error(ctx, "release reserved stock", err)
	}
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error) {
	next, err := enums.ParseOrderStatus(strings.TrimSpace(input.Status))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown order status").
			WithDetails(map[string]any{"status": input.Status})
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	ctx = s.logg.WithOrderID(ctx, input.OrderID.String())

	var updated *models.Order
	var previous enums.OrderStatus
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.WholesalerID != input.RequesterID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the order's wholesaler can change its status")
		}
		if !order.Status.CanTransitionTo(next) {
			return transitionConflict(order.Status, next)
		}
		if next == enums.OrderStatusCancelled {
			if err := ensureNotInvoiced(ctx, repo, order.ID); err != nil {
				return err
			}
		}

		now := s.now()
		rows, err := repo.TransitionStatus(ctx, order.ID, order.Status, next, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}

		if next == enums.OrderStatusCancelled {
			for _, item := range order.Items {
				if err := s.ledger.Release(ctx, tx, item.ProductID, item.Qty); err != nil {
					return err
				}
			}
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.RequesterID, Role: string(enums.RoleWholesaler)},
			Data: payloads.OrderStatusChangedEvent{
				OrderID:        order.ID,
				RetailerID:     order.RetailerID,
				WholesalerID:   order.WholesalerID,
				PreviousStatus: order.Status,
				Status:         next,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order status event")
		}

		previous = order.Status
		order.Status = next
		order.UpdatedAt = now
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"from": previous, "to": next})
	s.logg.Info(ctx, "order status updated")

	dto := toOrderDTO(*updated)
	return &dto, nil
}

// ensureNotInvoiced blocks cancelling an order that already has an invoice,
// paid or not, so stock never returns to the shelf while it is billed.
func ensureNotInvoiced(ctx context.Context, repo Repository, orderID uuid.UUID) error {
	status, err := repo.InvoiceStatus(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order invoice")
	}
	if status == nil {
		return nil
	}
	reason := pkgerrors.ReasonAlreadyInvoiced
	if *status == enums.InvoiceStatusPaid {
		reason = pkgerrors.ReasonAlreadyPaid
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "invoiced orders cannot be cancelled").
		WithDetails(map[string]any{"reason": reason, "order_id": orderID, "invoice_status": *status})
}

func transitionConflict(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition not allowed").
		WithDetails(map[string]any{
			"from":    from,
			"to":      to,
			"allowed": from.NextStatuses(),
		})
}

func (s *service) GetOrder(ctx context.Context, orderID, requesterID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if order.RetailerID != requesterID && order.WholesalerID != requesterID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to other parties")
	}
	dto := toOrderDTO(*order)
	return &dto, nil
}

func (s *service) ListOrders(ctx context.Context, input ListOrdersInput) (*OrderList, error) {
	filter := listFilter{Limit: input.Limit, Status: input.Status}
	switch input.Role {
	case enums.RoleRetailer:
		filter.RetailerID = &input.RequesterID
	case enums.RoleWholesaler:
		filter.WholesalerID = &input.RequesterID
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}

	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter.Cursor = cursor

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	dtos := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, toOrderDTO(row))
	}
	page := pagination.Trim(dtos, input.Limit, func(o OrderDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &page, nil
}

func (s *service) load(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
				WithDetails(map[string]any{"order_id": orderID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

func validatePlaceOrder(input PlaceOrderInput) error {
	if input.RetailerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "retailer id is required")
	}
	if input.WholesalerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "wholesaler id is required")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id is required").
				WithDetails(map[string]any{"item": i})
		}
		if item.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"item": i, "product_id": item.ProductID})
		}
		if item.UnitPriceMinor == nil {
			continue
		}
		if *item.UnitPriceMinor < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "unit price must be non-negative").
				WithDetails(map[string]any{"item": i, "product_id": item.ProductID})
		}
		if _, ok := mulMinor(*item.UnitPriceMinor, item.Qty); !ok {
			return amountOutOfRange(i, item.ProductID)
		}
	}
	return nil
}

// mulMinor and addMinor report false instead of wrapping past MaxInt64.
// Both expect non-negative inputs.
func mulMinor(unitPrice int64, qty int) (int64, bool) {
	if qty > 0 && unitPrice > math.MaxInt64/int64(qty) {
		return 0, false
	}
	return unitPrice * int64(qty), true
}

func addMinor(a, b int64) (int64, bool) {
	if a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}

func amountOutOfRange(item int, productID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "order amount out of range").
		WithDetails(map[string]any{"item": item, "product_id": productID})
}

func normalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
