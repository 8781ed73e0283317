package inventory

import (
	"time"

	"github.com/angelmondragon/tradelink-backend/pkg/db/models"
	"github.com/angelmondragon/tradelink-backend/pkg/pagination"
	"github.com/google/uuid"
)

// ProductDTO is the product payload returned to clients.
type ProductDTO struct {
	ID             uuid.UUID `json:"id"`
	WholesalerID   uuid.UUID `json:"wholesaler_id"`
	Name           string    `json:"name"`
	SKU            *string   `json:"sku,omitempty"`
	UnitPriceMinor int64     `json:"unit_price_minor"`
	Currency       string    `json:"currency"`
	Stock          int       `json:"stock"`
	MOQ            int       `json:"moq"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ProductList is a page of products.
type ProductList = pagination.Page[ProductDTO]

func toProductDTO(p models.Product) ProductDTO {
	return ProductDTO{
		ID:             p.ID,
		WholesalerID:   p.WholesalerID,
		Name:           p.Name,
		SKU:            p.SKU,
		UnitPriceMinor: p.UnitPriceMinor,
		Currency:       p.Currency.String(),
		Stock:          p.Stock,
		MOQ:            p.MOQ,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
