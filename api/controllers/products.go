package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/tradelink-backend/api/responses"
	"github.com/angelmondragon/tradelink-backend/api/validators"
	"github.com/angelmondragon/tradelink-backend/internal/inventory"
	"github.com/angelmondragon/tradelink-backend/pkg/auth"
	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradelink-backend/pkg/errors"
	"github.com/angelmondragon/tradelink-backend/pkg/logger"
)

type createProductRequest struct {
	Name           string  `json:"name" validate:"required,min=1,max=200"`
	SKU            *string `json:"sku,omitempty" validate:"omitempty,max=64"`
	UnitPriceMinor int64   `json:"unit_price_minor" validate:"gte=0"`
	Currency       string  `json:"currency,omitempty" validate:"omitempty,currency"`
	Stock          int     `json:"stock" validate:"gte=0"`
	MOQ            int     `json:"moq,omitempty" validate:"gte=0"`
}

type restockRequest struct {
	Qty int `json:"qty" validate:"gt=0"`
}

// CreateProduct adds a product to the calling wholesaler's catalog.
func CreateProduct(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return withCaller("products", svc != nil, logg, func(r *http.Request, caller auth.Principal) (int, any, error) {
		var body createProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return 0, nil, err
		}
		input := inventory.CreateProductInput{
			Name:           validators.SanitizeString(body.Name, 200),
			SKU:            body.SKU,
			UnitPriceMinor: body.UnitPriceMinor,
			Stock:          body.Stock,
			MOQ:            body.MOQ,
		}
		if raw := strings.TrimSpace(body.Currency); raw != "" {
			// validated by the currency tag
			input.Currency = enums.Currency(strings.ToUpper(raw))
		}
		product, err := svc.CreateProduct(r.Context(), caller.UserID, input)
		return http.StatusCreated, product, err
	})
}

// ListProducts returns the wholesaler's own catalog, or for retailers the
// products of every wholesaler unless wholesaler_id narrows it.
func ListProducts(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return withCaller("products", svc != nil, logg, func(r *http.Request, caller auth.Principal) (int, any, error) {
		params, err := pageParams(r)
		if err != nil {
			return 0, nil, err
		}
		wholesalerID, err := validators.ParseQueryUUID(r, "wholesaler_id")
		if err != nil {
			return 0, nil, err
		}
		inStock, err := validators.ParseQueryBool(r, "in_stock")
		if err != nil {
			return 0, nil, err
		}
		list, err := svc.ListProducts(r.Context(), inventory.ListProductsInput{
			RequesterID:  caller.UserID,
			Role:         caller.Role,
			WholesalerID: wholesalerID,
			InStockOnly:  inStock,
			Params:       params,
		})
		return http.StatusOK, list, err
	})
}

func GetProduct(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}
		productID, err := validators.ParseURLUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// RestockProduct adds stock to one of the wholesaler's products.
func RestockProduct(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return withCaller("products", svc != nil, logg, func(r *http.Request, caller auth.Principal) (int, any, error) {
		productID, err := validators.ParseURLUUID(r, "productId")
		if err != nil {
			return 0, nil, err
		}
		var body restockRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return 0, nil, err
		}
		product, err := svc.Restock(r.Context(), productID, caller.UserID, body.Qty)
		return http.StatusOK, product, err
	})
}
