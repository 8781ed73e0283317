package inventory

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
	"github.com/angelmondragon/tradelink-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes wholesaler product management.
type Service interface {
	CreateProduct(ctx context.Context, wholesalerID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	Restock(ctx context.Context, productID, requesterID uuid.UUID, qty int) (*ProductDTO, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductList, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name           string
	SKU            *string
	UnitPriceMinor int64
	Currency       enums.Currency
	Stock          int
	MOQ            int
}

// ListProductsInput filters the product listing. Wholesalers always see their
// own catalog; retailers may narrow to one wholesaler.
type ListProductsInput struct {
	RequesterID  uuid.UUID
	Role         enums.Role
	WholesalerID *uuid.UUID
	InStockOnly  bool
	pagination.Params
}

type service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService wires the product service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo: repo,
		logg: logg,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) CreateProduct(ctx context.Context, wholesalerID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	if wholesalerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wholesaler id is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.UnitPriceMinor < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be non-negative")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be non-negative")
	}
	moq := input.MOQ
	if moq == 0 {
		moq = 1
	}
	if moq < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "moq must be at least 1")
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyINR
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency").
			WithDetails(map[string]any{"currency": currency})
	}

	var sku *string
	if input.SKU != nil {
		if trimmed := strings.TrimSpace(*input.SKU); trimmed != "" {
			sku = &trimmed
		}
	}

	now := s.now()
	product := &models.Product{
		ID:             uuid.New(),
		WholesalerID:   wholesalerID,
		Name:           name,
		SKU:            sku,
		UnitPriceMinor: input.UnitPriceMinor,
		Currency:       currency,
		Stock:          input.Stock,
		MOQ:            moq,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}

	ctx = s.logg.WithField(ctx, "product_id", product.ID.String())
	s.logg.Info(ctx, "product created")

	dto := toProductDTO(*product)
	return &dto, nil
}

func (s *service) Restock(ctx context.Context, productID, requesterID uuid.UUID, qty int) (*ProductDTO, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	product, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.WholesalerID != requesterID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another wholesaler")
	}

	rows, err := s.repo.AddStock(ctx, productID, qty, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restock product")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	updated, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"product_id": productID.String(), "qty": qty})
	s.logg.Info(ctx, "product restocked")

	dto := toProductDTO(*updated)
	return &dto, nil
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	dto := toProductDTO(*product)
	return &dto, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductList, error) {
	filter := listFilter{
		InStockOnly: input.InStockOnly,
		Limit:       input.Limit,
	}
	switch input.Role {
	case enums.RoleWholesaler:
		owner := input.RequesterID
		filter.WholesalerID = &owner
	case enums.RoleRetailer:
		filter.WholesalerID = input.WholesalerID
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted")
	}

	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter.Cursor = cursor

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}

	dtos := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, toProductDTO(row))
	}
	page := pagination.Trim(dtos, input.Limit, func(p ProductDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return &page, nil
}

func (s *service) load(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": productID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return product, nil
}
