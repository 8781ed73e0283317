package reports

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/tradelink-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tradelink-backend/pkg/db/models"
	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradelink-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	conn       *gorm.DB
	svc        Service
	wholesaler uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), enums.CurrencyINR)
	require.NoError(t, err)
	return &fixture{conn: conn, svc: svc, wholesaler: uuid.New()}
}

func (f *fixture) order(t *testing.T, retailer uuid.UUID, status enums.OrderStatus, total int64, createdAt time.Time) models.Order {
	t.Helper()
	o := models.Order{
		ID:           uuid.New(),
		RetailerID:   retailer,
		WholesalerID: f.wholesaler,
		Status:       status,
		TotalMinor:   total,
		Currency:     enums.CurrencyINR,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	require.NoError(t, f.conn.Omit("Items").Create(&o).Error)
	return o
}

func (f *fixture) invoice(t *testing.T, order models.Order, status enums.InvoiceStatus) {
	t.Helper()
	inv := models.Invoice{
		ID:            uuid.New(),
		OrderID:       order.ID,
		InvoiceNumber: "INV-" + order.ID.String(),
		AmountMinor:   order.TotalMinor,
		Currency:      enums.CurrencyINR,
		IssuedBy:      order.WholesalerID,
		IssuedTo:      order.RetailerID,
		Status:        status,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.CreatedAt,
	}
	require.NoError(t, f.conn.Create(&inv).Error)
}

func (f *fixture) product(t *testing.T, name string, stock, moq int, price int64, createdAt time.Time) models.Product {
	t.Helper()
	p := models.Product{
		ID:             uuid.New(),
		WholesalerID:   f.wholesaler,
		Name:           name,
		UnitPriceMinor: price,
		Currency:       enums.CurrencyINR,
		Stock:          stock,
		MOQ:            moq,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
	require.NoError(t, f.conn.Create(&p).Error)
	return p
}

func TestSalesSummaryExcludesCancelledOrders(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	retailer := uuid.New()

	paid := f.order(t, retailer, enums.OrderStatusDelivered, 10000, now)
	unpaid := f.order(t, retailer, enums.OrderStatusConfirmed, 5001, now)
	f.order(t, retailer, enums.OrderStatusCancelled, 99999, now)
	f.invoice(t, paid, enums.InvoiceStatusPaid)
	f.invoice(t, unpaid, enums.InvoiceStatusUnpaid)

	// Another wholesaler's order never leaks in.
	other := models.Order{ID: uuid.New(), RetailerID: retailer, WholesalerID: uuid.New(), Status: enums.OrderStatusConfirmed, TotalMinor: 7, Currency: enums.CurrencyINR, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.conn.Omit("Items").Create(&other).Error)

	summary, err := f.svc.SalesSummary(context.Background(), f.wholesaler, Range{})
	require.NoError(t, err)
	require.Equal(t, int64(2), summary.OrderCount)
	require.Equal(t, int64(1), summary.CancelledCount)
	require.Equal(t, int64(15001), summary.GrossSalesMinor)
	require.Equal(t, "150.01", summary.GrossSales)
	require.Equal(t, int64(7501), summary.AverageOrderValueMinor)
	require.Equal(t, "75.01", summary.AverageOrderValue)
	require.Equal(t, int64(1), summary.PaidInvoiceCount)
	require.Equal(t, int64(10000), summary.PaidInvoiceMinor)
	require.Equal(t, int64(5001), summary.OutstandingMinor)
}

func TestSalesSummaryRange(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	retailer := uuid.New()
	f.order(t, retailer, enums.OrderStatusConfirmed, 100, now.Add(-48*time.Hour))
	f.order(t, retailer, enums.OrderStatusConfirmed, 300, now.Add(-time.Hour))

	summary, err := f.svc.SalesSummary(context.Background(), f.wholesaler, Range{Start: now.Add(-24 * time.Hour), End: now})
	require.NoError(t, err)
	require.Equal(t, int64(1), summary.OrderCount)
	require.Equal(t, int64(300), summary.GrossSalesMinor)
	require.NotNil(t, summary.Start)

	_, err = f.svc.SalesSummary(context.Background(), f.wholesaler, Range{Start: now, End: now.Add(-time.Hour)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSalesSummaryEmpty(t *testing.T) {
	f := newFixture(t)

	summary, err := f.svc.SalesSummary(context.Background(), f.wholesaler, Range{})
	require.NoError(t, err)
	require.Zero(t, summary.OrderCount)
	require.Equal(t, "0.00", summary.AverageOrderValue)
}

func TestCustomersRankedBySpend(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	big, small := uuid.New(), uuid.New()
	f.order(t, big, enums.OrderStatusConfirmed, 4000, now)
	f.order(t, big, enums.OrderStatusShipped, 1000, now)
	f.order(t, small, enums.OrderStatusPending, 200, now)
	f.order(t, small, enums.OrderStatusCancelled, 100000, now)

	customers, err := f.svc.Customers(context.Background(), f.wholesaler, 0)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	require.Equal(t, big, customers[0].RetailerID)
	require.Equal(t, int64(2), customers[0].OrderCount)
	require.Equal(t, int64(5000), customers[0].SpendMinor)
	require.Equal(t, "50.00", customers[0].Spend)
	require.Equal(t, small, customers[1].RetailerID)
	require.Equal(t, int64(200), customers[1].SpendMinor)
}

func TestInventorySnapshotFlagsLowStock(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	f.product(t, "Rice 25kg", 100, 2, 150000, now)
	f.product(t, "Ghee 1L", 3, 5, 60000, now)
	f.product(t, "Salt 1kg", 8, 1, 2000, now)

	snapshot, err := f.svc.InventorySnapshot(context.Background(), f.wholesaler, 10)
	require.NoError(t, err)
	require.Len(t, snapshot.Items, 3)
	require.Equal(t, "Ghee 1L", snapshot.Items[0].Name)
	require.True(t, snapshot.Items[0].LowStock)
	require.True(t, snapshot.Items[1].LowStock)
	require.False(t, snapshot.Items[2].LowStock)
	require.Equal(t, 2, snapshot.LowStockCount)
	require.Equal(t, int64(100*150000+3*60000+8*2000), snapshot.TotalValueMinor)
}

func TestOverview(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	retailer := uuid.New()
	f.order(t, retailer, enums.OrderStatusPending, 100, now)
	confirmed := f.order(t, retailer, enums.OrderStatusConfirmed, 250, now)
	f.invoice(t, confirmed, enums.InvoiceStatusUnpaid)
	for i := 0; i < 7; i++ {
		f.product(t, "SKU", 10, 1, 100, now.Add(time.Duration(i)*time.Minute))
	}
	newest := f.product(t, "Newest", 1, 1, 100, now.Add(time.Hour))

	overview, err := f.svc.Overview(context.Background(), f.wholesaler)
	require.NoError(t, err)
	require.Equal(t, int64(2), overview.TotalOrders)
	require.Equal(t, int64(1), overview.PendingOrders)
	require.Equal(t, int64(1), overview.UnpaidInvoices)
	require.Equal(t, int64(250), overview.OutstandingMinor)
	require.Equal(t, int64(8), overview.ProductCount)
	require.Len(t, overview.RecentProducts, 5)
	require.Equal(t, newest.ID, overview.RecentProducts[0].ID)
}

func TestReportsRequireWholesaler(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Overview(context.Background(), uuid.Nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
