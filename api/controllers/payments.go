package controllers

import (
	"net/http"

	"github.com/angelmondragon/tradelink-backend/api/responses"
	"github.com/angelmondragon/tradelink-backend/api/validators"
	"github.com/angelmondragon/tradelink-backend/internal/payments"
	"github.com/angelmondragon/tradelink-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/tradelink-backend/pkg/errors"
	"github.com/angelmondragon/tradelink-backend/pkg/logger"
)

type confirmPaymentRequest struct {
	IntentRef  string `json:"intent_ref" validate:"required,max=128"`
	PaymentRef string `json:"payment_ref" validate:"required,max=128"`
	Signature  string `json:"signature" validate:"required,max=256"`
}

// CreatePaymentIntent opens (or reuses) a gateway intent for an unpaid invoice.
func CreatePaymentIntent(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return withCaller("payments", svc != nil, logg, func(r *http.Request, caller auth.Principal) (int, any, error) {
		invoiceID, err := validators.ParseURLUUID(r, "invoiceId")
		if err != nil {
			return 0, nil, err
		}
		intent, err := svc.CreateIntent(r.Context(), invoiceID, caller.UserID)
		if err != nil {
			return 0, nil, err
		}
		if intent.Reused {
			return http.StatusOK, intent, nil
		}
		return http.StatusCreated, intent, nil
	})
}

// ConfirmPayment accepts the gateway's signed confirmation. The route is
// unauthenticated; the HMAC signature is the only authenticity check.
func ConfirmPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var body confirmPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		confirmation, err := svc.Confirm(r.Context(), payments.ConfirmInput{
			IntentRef:  validators.SanitizeString(body.IntentRef, 128),
			PaymentRef: validators.SanitizeString(body.PaymentRef, 128),
			Signature:  validators.SanitizeString(body.Signature, 256),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, confirmation)
	}
}
