package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/tradelink-backend/api/validators"
	"github.com/angelmondragon/tradelink-backend/internal/invoices"
	"github.com/angelmondragon/tradelink-backend/pkg/auth"
	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradelink-backend/pkg/errors"
	"github.com/angelmondragon/tradelink-backend/pkg/logger"
)

// IssueInvoice bills the retailer for an order. Only one invoice exists per order.
func IssueInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return withCaller("invoices", svc != nil, logg, func(r *http.Request, caller auth.Principal) (int, any, error) {
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			return 0, nil, err
		}
		invoice, err := svc.Issue(r.Context(), orderID, caller.UserID)
		return http.StatusCreated, invoice, err
	})
}

// ListInvoices pages through invoices the caller issued (wholesaler) or
// received (retailer), optionally filtered by ?status.
func ListInvoices(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return withCaller("invoices", svc != nil, logg, func(r *http.Request, caller auth.Principal) (int, any, error) {
		params, err := pageParams(r)
		if err != nil {
			return 0, nil, err
		}
		input := invoices.ListInvoicesInput{RequesterID: caller.UserID, Role: caller.Role, Params: params}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseInvoiceStatus(raw)
			if err != nil {
				return 0, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
			}
			input.Status = &status
		}
		list, err := svc.ListInvoices(r.Context(), input)
		return http.StatusOK, list, err
	})
}

func GetInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return withCaller("invoices", svc != nil, logg, func(r *http.Request, caller auth.Principal) (int, any, error) {
		invoiceID, err := validators.ParseURLUUID(r, "invoiceId")
		if err != nil {
			return 0, nil, err
		}
		invoice, err := svc.GetInvoice(r.Context(), invoiceID, caller.UserID)
		return http.StatusOK, invoice, err
	})
}
