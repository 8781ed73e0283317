package reports

import (
	"context"
	"fmt"

	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradelink-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultCustomerLimit     = 20
	maxCustomerLimit         = 100
	defaultLowStockThreshold = 10
	recentProductLimit       = 5
)

// Service provides read-only wholesaler reports over orders, invoices and stock.
type Service interface {
	SalesSummary(ctx context.Context, wholesalerID uuid.UUID, r Range) (*SalesSummary, error)
	Customers(ctx context.Context, wholesalerID uuid.UUID, limit int) ([]CustomerSummary, error)
	InventorySnapshot(ctx context.Context, wholesalerID uuid.UUID, lowStockThreshold int) (*InventorySnapshot, error)
	Overview(ctx context.Context, wholesalerID uuid.UUID) (*Overview, error)
}

type service struct {
	repo     Repository
	currency enums.Currency
}

// NewService builds the reports service. Amounts are reported in currency.
func NewService(repo Repository, currency enums.Currency) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	if !currency.IsValid() {
		currency = enums.CurrencyINR
	}
	return &service{repo: repo, currency: currency}, nil
}

func (s *service) SalesSummary(ctx context.Context, wholesalerID uuid.UUID, r Range) (*SalesSummary, error) {
	if err := validateRequest(wholesalerID, r); err != nil {
		return nil, err
	}

	orders, err := s.repo.OrderTotals(ctx, wholesalerID, s.currency, r)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sales totals")
	}
	invoices, err := s.repo.InvoiceTotals(ctx, wholesalerID, s.currency, r)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "invoice totals")
	}

	average := averageMinor(orders.GrossSalesMinor, orders.OrderCount)
	summary := &SalesSummary{
		Currency:               s.currency,
		OrderCount:             orders.OrderCount,
		CancelledCount:         orders.CancelledCount,
		GrossSalesMinor:        orders.GrossSalesMinor,
		GrossSales:             s.format(decimal.NewFromInt(orders.GrossSalesMinor)),
		AverageOrderValueMinor: average.IntPart(),
		AverageOrderValue:      s.format(average),
		PaidInvoiceCount:       invoices.PaidCount,
		PaidInvoiceMinor:       invoices.PaidMinor,
		OutstandingMinor:       invoices.OutstandingMinor,
	}
	if !r.Start.IsZero() {
		start := r.Start.UTC()
		summary.Start = &start
	}
	if !r.End.IsZero() {
		end := r.End.UTC()
		summary.End = &end
	}
	return summary, nil
}

func (s *service) Customers(ctx context.Context, wholesalerID uuid.UUID, limit int) ([]CustomerSummary, error) {
	if wholesalerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wholesaler id required")
	}
	switch {
	case limit <= 0:
		limit = defaultCustomerLimit
	case limit > maxCustomerLimit:
		limit = maxCustomerLimit
	}

	rows, err := s.repo.Customers(ctx, wholesalerID, s.currency, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "customer totals")
	}
	out := make([]CustomerSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, CustomerSummary{
			RetailerID: row.RetailerID,
			OrderCount: row.OrderCount,
			SpendMinor: row.SpendMinor,
			Spend:      s.format(decimal.NewFromInt(row.SpendMinor)),
		})
	}
	return out, nil
}

// InventorySnapshot flags a product as low stock when it cannot fill one
// minimum-quantity order or has fallen to the threshold.
func (s *service) InventorySnapshot(ctx context.Context, wholesalerID uuid.UUID, lowStockThreshold int) (*InventorySnapshot, error) {
	if wholesalerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wholesaler id required")
	}
	if lowStockThreshold <= 0 {
		lowStockThreshold = defaultLowStockThreshold
	}

	products, err := s.repo.Products(ctx, wholesalerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}

	snapshot := &InventorySnapshot{Items: make([]InventoryItem, 0, len(products))}
	total := decimal.Zero
	for _, p := range products {
		value := decimal.NewFromInt(p.UnitPriceMinor).Mul(decimal.NewFromInt(int64(p.Stock)))
		item := InventoryItem{
			ProductID:       p.ID,
			Name:            p.Name,
			SKU:             p.SKU,
			Stock:           p.Stock,
			MOQ:             p.MOQ,
			UnitPriceMinor:  p.UnitPriceMinor,
			StockValueMinor: value.IntPart(),
			LowStock:        p.Stock < p.MOQ || p.Stock <= lowStockThreshold,
		}
		if item.LowStock {
			snapshot.LowStockCount++
		}
		total = total.Add(value)
		snapshot.Items = append(snapshot.Items, item)
	}
	snapshot.TotalValueMinor = total.IntPart()
	snapshot.TotalValue = s.format(total)
	return snapshot, nil
}

func (s *service) Overview(ctx context.Context, wholesalerID uuid.UUID) (*Overview, error) {
	if wholesalerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wholesaler id required")
	}

	total, err := s.repo.CountOrders(ctx, wholesalerID, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count orders")
	}
	pendingStatus := enums.OrderStatusPending
	pending, err := s.repo.CountOrders(ctx, wholesalerID, &pendingStatus)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count pending orders")
	}
	invoices, err := s.repo.InvoiceTotals(ctx, wholesalerID, s.currency, Range{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "invoice totals")
	}
	productCount, err := s.repo.CountProducts(ctx, wholesalerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count products")
	}
	recent, err := s.repo.RecentProducts(ctx, wholesalerID, recentProductLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recent products")
	}

	overview := &Overview{
		TotalOrders:      total,
		PendingOrders:    pending,
		UnpaidInvoices:   invoices.UnpaidCount,
		OutstandingMinor: invoices.OutstandingMinor,
		ProductCount:     productCount,
		RecentProducts:   make([]ProductSummary, 0, len(recent)),
	}
	for _, p := range recent {
		overview.RecentProducts = append(overview.RecentProducts, ProductSummary{
			ID:        p.ID,
			Name:      p.Name,
			Stock:     p.Stock,
			CreatedAt: p.CreatedAt,
		})
	}
	return overview, nil
}

func validateRequest(wholesalerID uuid.UUID, r Range) error {
	if wholesalerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "wholesaler id required")
	}
	if !r.Start.IsZero() && !r.End.IsZero() && !r.End.After(r.Start) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end must be after start")
	}
	return nil
}

// averageMinor rounds half away from zero to a whole minor unit.
func averageMinor(total, count int64) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(total).Div(decimal.NewFromInt(count)).Round(0)
}

func (s *service) format(minor decimal.Decimal) string {
	exp := s.currency.MinorUnitExponent()
	return minor.Shift(-exp).StringFixed(exp)
}
