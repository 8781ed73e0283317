package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradelink-backend/api/validators"
	"github.com/angelmondragon/tradelink-backend/internal/orders"
	"github.com/angelmondragon/tradelink-backend/pkg/auth"
	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradelink-backend/pkg/errors"
	"github.com/angelmondragon/tradelink-backend/pkg/logger"
)

type placeOrderItemRequest struct {
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	Qty            int       `json:"qty" validate:"gt=0"`
	UnitPriceMinor *int64    `json:"unit_price_minor,omitempty" validate:"omitempty,gte=0,lte=1000000000000"`
}

type placeOrderRequest struct {
	WholesalerID uuid.UUID               `json:"wholesaler_id" validate:"required"`
	Items        []placeOrderItemRequest `json:"items" validate:"required,min=1,dive"`
	Notes        *string                 `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// PlaceOrder reserves stock and records a pending order for the calling retailer.
func PlaceOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return withCaller("orders", svc != nil, logg, func(r *http.Request, caller auth.Principal) (int, any, error) {
		var body placeOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return 0, nil, err
		}
		input := orders.PlaceOrderInput{
			RetailerID:   caller.UserID,
			WholesalerID: body.WholesalerID,
			Items:        make([]orders.PlaceOrderItem, len(body.Items)),
		}
		for i, item := range body.Items {
			input.Items[i] = orders.PlaceOrderItem{ProductID: item.ProductID, Qty: item.Qty, UnitPriceMinor: item.UnitPriceMinor}
		}
		if body.Notes != nil {
			if notes := validators.SanitizeString(*body.Notes, 1000); notes != "" {
				input.Notes = &notes
			}
		}
		order, err := svc.PlaceOrder(r.Context(), input)
		return http.StatusCreated, order, err
	})
}

// ListOrders pages through the caller's orders from their side of the trade.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return withCaller("orders", svc != nil, logg, func(r *http.Request, caller auth.Principal) (int, any, error) {
		params, err := pageParams(r)
		if err != nil {
			return 0, nil, err
		}
		input := orders.ListOrdersInput{RequesterID: caller.UserID, Role: caller.Role, Params: params}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				return 0, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
			}
			input.Status = &status
		}
		list, err := svc.ListOrders(r.Context(), input)
		return http.StatusOK, list, err
	})
}

// GetOrder returns an order to either party of the trade.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return withCaller("orders", svc != nil, logg, func(r *http.Request, caller auth.Principal) (int, any, error) {
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			return 0, nil, err
		}
		order, err := svc.GetOrder(r.Context(), orderID, caller.UserID)
		return http.StatusOK, order, err
	})
}

// UpdateOrderStatus moves an order along its lifecycle on the wholesaler's behalf.
func UpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return withCaller("orders", svc != nil, logg, func(r *http.Request, caller auth.Principal) (int, any, error) {
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			return 0, nil, err
		}
		var body updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return 0, nil, err
		}
		order, err := svc.UpdateStatus(r.Context(), orders.UpdateStatusInput{
			OrderID:     orderID,
			RequesterID: caller.UserID,
			Status:      strings.TrimSpace(body.Status),
		})
		return http.StatusOK, order, err
	})
}
