package controllers

import (
	"net/http"

	"github.com/angelmondragon/tradelink-backend/api/validators"
	"github.com/angelmondragon/tradelink-backend/internal/reports"
	"github.com/angelmondragon/tradelink-backend/pkg/auth"
	"github.com/angelmondragon/tradelink-backend/pkg/logger"
)

// SalesReport summarises the wholesaler's sales in the optional [from, to) window.
func SalesReport(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return withCaller("reports", svc != nil, logg, func(r *http.Request, caller auth.Principal) (int, any, error) {
		from, err := validators.ParseQueryTime(r, "from")
		if err != nil {
			return 0, nil, err
		}
		to, err := validators.ParseQueryTime(r, "to")
		if err != nil {
			return 0, nil, err
		}
		summary, err := svc.SalesSummary(r.Context(), caller.UserID, reports.Range{Start: from, End: to})
		return http.StatusOK, summary, err
	})
}

func CustomersReport(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return withCaller("reports", svc != nil, logg, func(r *http.Request, caller auth.Principal) (int, any, error) {
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			return 0, nil, err
		}
		customers, err := svc.Customers(r.Context(), caller.UserID, limit)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, map[string]any{"customers": customers}, nil
	})
}

// InventoryReport flags products at or below ?low_stock_threshold (default 10).
func InventoryReport(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return withCaller("reports", svc != nil, logg, func(r *http.Request, caller auth.Principal) (int, any, error) {
		threshold, err := validators.ParseQueryInt(r, "low_stock_threshold", 10, 1, 1_000_000)
		if err != nil {
			return 0, nil, err
		}
		snapshot, err := svc.InventorySnapshot(r.Context(), caller.UserID, threshold)
		return http.StatusOK, snapshot, err
	})
}

func OverviewReport(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return withCaller("reports", svc != nil, logg, func(r *http.Request, caller auth.Principal) (int, any, error) {
		overview, err := svc.Overview(r.Context(), caller.UserID)
		return http.StatusOK, overview, err
	})
}
