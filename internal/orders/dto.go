package orders

import (
	"time"

	"github.com/angelmondragon/tradelink-backend/pkg/db/models"
	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	"github.com/angelmondragon/tradelink-backend/pkg/pagination"
	"github.com/google/uuid"
)

// PlaceOrderItem is one requested product. UnitPriceMinor overrides the
// catalog price when set.
type PlaceOrderItem struct {
	ProductID      uuid.UUID
	Qty            int
	UnitPriceMinor *int64
}

// PlaceOrderInput carries a retailer's order request.
type PlaceOrderInput struct {
	RetailerID   uuid.UUID
	WholesalerID uuid.UUID
	Items        []PlaceOrderItem
	Notes        *string
}

// UpdateStatusInput carries a wholesaler's status change.
type UpdateStatusInput struct {
	OrderID     uuid.UUID
	RequesterID uuid.UUID
	Status      string
}

// ListOrdersInput scopes the order listing to the caller's side of the trade.
type ListOrdersInput struct {
	RequesterID uuid.UUID
	Role        enums.Role
	Status      *enums.OrderStatus
	pagination.Params
}

// OrderDTO is the order payload returned to clients.
type OrderDTO struct {
	ID           uuid.UUID           `json:"id"`
	RetailerID   uuid.UUID           `json:"retailer_id"`
	WholesalerID uuid.UUID           `json:"wholesaler_id"`
	Status       enums.OrderStatus   `json:"status"`
	NextStatuses []enums.OrderStatus `json:"next_statuses"`
	TotalMinor   int64               `json:"total_minor"`
	Currency     enums.Currency      `json:"currency"`
	Notes        *string             `json:"notes,omitempty"`
	Items        []LineItemDTO       `json:"items,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// LineItemDTO exposes an order line with its price snapshot.
type LineItemDTO struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	Qty            int       `json:"qty"`
	UnitPriceMinor int64     `json:"unit_price_minor"`
	LineTotalMinor int64     `json:"line_total_minor"`
}

// OrderList is a page of orders.
type OrderList = pagination.Page[OrderDTO]

func toOrderDTO(order models.Order) OrderDTO {
	dto := OrderDTO{
		ID:           order.ID,
		RetailerID:   order.RetailerID,
		WholesalerID: order.WholesalerID,
		Status:       order.Status,
		NextStatuses: order.Status.NextStatuses(),
		TotalMinor:   order.TotalMinor,
		Currency:     order.Currency,
		Notes:        order.Notes,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, LineItemDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			Qty:            item.Qty,
			UnitPriceMinor: item.UnitPriceMinor,
			LineTotalMinor: item.LineTotalMinor,
		})
	}
	return dto
}
