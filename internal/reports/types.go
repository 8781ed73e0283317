package reports

import (
	"time"

	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	"github.com/google/uuid"
)

// Range bounds a report by order creation time. Zero values leave that side open.
type Range struct {
	Start time.Time
	End   time.Time
}

// SalesSummary aggregates a wholesaler's non-cancelled orders and the
// invoices raised against them.
type SalesSummary struct {
	Start                  *time.Time     `json:"start,omitempty"`
	End                    *time.Time     `json:"end,omitempty"`
	Currency               enums.Currency `json:"currency"`
	OrderCount             int64          `json:"order_count"`
	CancelledCount         int64          `json:"cancelled_count"`
	GrossSalesMinor        int64          `json:"gross_sales_minor"`
	GrossSales             string         `json:"gross_sales"`
	AverageOrderValueMinor int64          `json:"average_order_value_minor"`
	AverageOrderValue      string         `json:"average_order_value"`
	PaidInvoiceCount       int64          `json:"paid_invoice_count"`
	PaidInvoiceMinor       int64          `json:"paid_invoice_minor"`
	OutstandingMinor       int64          `json:"outstanding_minor"`
}

// CustomerSummary is one retailer's purchasing from the wholesaler.
type CustomerSummary struct {
	RetailerID uuid.UUID `json:"retailer_id"`
	OrderCount int64     `json:"order_count"`
	SpendMinor int64     `json:"spend_minor"`
	Spend      string    `json:"spend"`
}

// InventoryItem is a product's current stock position.
type InventoryItem struct {
	ProductID       uuid.UUID `json:"product_id"`
	Name            string    `json:"name"`
	SKU             *string   `json:"sku,omitempty"`
	Stock           int       `json:"stock"`
	MOQ             int       `json:"moq"`
	UnitPriceMinor  int64     `json:"unit_price_minor"`
	StockValueMinor int64     `json:"stock_value_minor"`
	LowStock        bool      `json:"low_stock"`
}

// InventorySnapshot lists every product, lowest stock first.
type InventorySnapshot struct {
	Items           []InventoryItem `json:"items"`
	LowStockCount   int             `json:"low_stock_count"`
	TotalValueMinor int64           `json:"total_value_minor"`
	TotalValue      string          `json:"total_value"`
}

// ProductSummary is a compact product row for dashboards.
type ProductSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"created_at"`
}

// Overview is the wholesaler dashboard headline.
type Overview struct {
	TotalOrders      int64            `json:"total_orders"`
	PendingOrders    int64            `json:"pending_orders"`
	UnpaidInvoices   int64            `json:"unpaid_invoices"`
	OutstandingMinor int64            `json:"outstanding_minor"`
	ProductCount     int64            `json:"product_count"`
	RecentProducts   []ProductSummary `json:"recent_products"`
}
