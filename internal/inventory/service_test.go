package inventory

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/tradelink-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradelink-backend/pkg/errors"
	"github.com/angelmondragon/tradelink-backend/pkg/logger"
	"github.com/angelmondragon/tradelink-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (Service, Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return svc, repo
}

func TestCreateProductDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	sku := "  RICE-5 "

	product, err := svc.CreateProduct(context.Background(), uuid.New(), CreateProductInput{
		Name:           "Basmati 5kg",
		SKU:            &sku,
		UnitPriceMinor: 45000,
		Stock:          40,
	})
	require.NoError(t, err)
	require.Equal(t, 1, product.MOQ)
	require.Equal(t, "INR", product.Currency)
	require.Equal(t, "RICE-5", *product.SKU)
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	wholesaler := uuid.New()

	cases := []CreateProductInput{
		{Name: "", UnitPriceMinor: 1},
		{Name: "Oil", UnitPriceMinor: -1},
		{Name: "Oil", UnitPriceMinor: 1, Stock: -1},
		{Name: "Oil", UnitPriceMinor: 1, MOQ: -2},
		{Name: "Oil", UnitPriceMinor: 1, Currency: enums.Currency("EUR")},
	}
	for _, input := range cases {
		_, err := svc.CreateProduct(ctx, wholesaler, input)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "input %+v", input)
	}
}

func TestRestock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	wholesaler := uuid.New()

	product, err := svc.CreateProduct(ctx, wholesaler, CreateProductInput{Name: "Ghee 1L", UnitPriceMinor: 60000, Stock: 2})
	require.NoError(t, err)

	updated, err := svc.Restock(ctx, product.ID, wholesaler, 8)
	require.NoError(t, err)
	require.Equal(t, 10, updated.Stock)

	_, err = svc.Restock(ctx, product.ID, uuid.New(), 1)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.Restock(ctx, product.ID, wholesaler, 0)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Restock(ctx, uuid.New(), wholesaler, 1)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListProductsScopesByRole(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mine := uuid.New()
	other := uuid.New()

	for i := 0; i < 3; i++ {
		_, err := svc.CreateProduct(ctx, mine, CreateProductInput{Name: "Tea", UnitPriceMinor: 100, Stock: i})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}
	_, err := svc.CreateProduct(ctx, other, CreateProductInput{Name: "Coffee", UnitPriceMinor: 100, Stock: 1})
	require.NoError(t, err)

	own, err := svc.ListProducts(ctx, ListProductsInput{RequesterID: mine, Role: enums.RoleWholesaler, Params: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, own.Items, 2)
	require.NotEmpty(t, own.NextCursor)

	rest, err := svc.ListProducts(ctx, ListProductsInput{RequesterID: mine, Role: enums.RoleWholesaler, Params: pagination.Params{Limit: 2, Cursor: own.NextCursor}})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	require.Empty(t, rest.NextCursor)

	all, err := svc.ListProducts(ctx, ListProductsInput{RequesterID: uuid.New(), Role: enums.RoleRetailer})
	require.NoError(t, err)
	require.Len(t, all.Items, 4)

	inStock, err := svc.ListProducts(ctx, ListProductsInput{RequesterID: uuid.New(), Role: enums.RoleRetailer, WholesalerID: &mine, InStockOnly: true})
	require.NoError(t, err)
	require.Len(t, inStock.Items, 2)

	_, err = svc.ListProducts(ctx, ListProductsInput{RequesterID: mine, Role: enums.RoleWholesaler, Params: pagination.Params{Cursor: "%%%"}})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
