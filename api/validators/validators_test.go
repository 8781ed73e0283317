package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/tradelink-backend/pkg/errors"
)

type sampleBody struct {
	Name string `json:"name" validate:"required,min=3"`
	Qty  int    `json:"qty" validate:"gt=0"`
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ab","qty":0}`))
	var body sampleBody
	err := DecodeJSONBody(req, &body)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	require.Equal(t, "must be at least 3", details["name"])
	require.Equal(t, "must be greater than 0", details["qty"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"rice","qty":1,"admin":true}`))
	var body sampleBody
	require.True(t, pkgerrors.IsCode(DecodeJSONBody(req, &body), pkgerrors.CodeValidation))
}

func TestParseQueryHelpers(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/?limit=5&wholesaler_id="+id.String()+"&from=2026-01-02&to=2026-01-03T04:05:06Z&unread=true", nil)

	limit, err := ParseQueryInt(req, "limit", 25, 1, 100)
	require.NoError(t, err)
	require.Equal(t, 5, limit)

	parsed, err := ParseQueryUUID(req, "wholesaler_id")
	require.NoError(t, err)
	require.Equal(t, id, *parsed)

	missing, err := ParseQueryUUID(req, "absent")
	require.NoError(t, err)
	require.Nil(t, missing)

	from, err := ParseQueryTime(req, "from")
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), from)

	to, err := ParseQueryTime(req, "to")
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 1, 3, 4, 5, 6, 0, time.UTC), to)

	unread, err := ParseQueryBool(req, "unread")
	require.NoError(t, err)
	require.True(t, unread)
}

func TestParseQueryRejectsBadValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500&id=nope&from=yesterday&flag=maybe", nil)

	_, err := ParseQueryInt(req, "limit", 25, 1, 100)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = ParseQueryUUID(req, "id")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = ParseQueryTime(req, "from")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = ParseQueryBool(req, "flag")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseURLUUID(t *testing.T) {
	id := uuid.New()
	rc := chi.NewRouteContext()
	rc.URLParams.Add("orderId", id.String())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	got, err := ParseURLUUID(req, "orderId")
	require.NoError(t, err)
	require.Equal(t, id, got)

	_, err = ParseURLUUID(req, "invoiceId")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

type orderBody struct {
	Currency string     `json:"currency,omitempty" validate:"omitempty,currency"`
	Items    []lineBody `json:"items" validate:"required,min=1,dive"`
}

type lineBody struct {
	Qty int `json:"qty" validate:"gt=0"`
}

func TestDecodeJSONBodyNestedAndCustomTags(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"currency":"eur","items":[{"qty":2},{"qty":0}]}`))
	var body orderBody
	err := DecodeJSONBody(req, &body)

	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	require.Equal(t, "must be a supported currency code", details["currency"])
	require.Equal(t, "must be greater than 0", details["items[1].qty"])

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"currency":"inr","items":[{"qty":1}]}`))
	require.NoError(t, DecodeJSONBody(req, &orderBody{}))
}

func TestDecodeJSONBodyRejectsEmptyAndTrailingInput(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	err := DecodeJSONBody(req, &sampleBody{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Equal(t, "request body required", pkgerrors.As(err).Message())

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"rice","qty":1}{"name":"dal","qty":1}`))
	err = DecodeJSONBody(req, &sampleBody{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyRejectsOversizedBody(t *testing.T) {
	huge := `{"name":"` + strings.Repeat("a", MaxBodyBytes) + `","qty":1}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(huge))
	err := DecodeJSONBody(req, &sampleBody{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Equal(t, "request body too large", pkgerrors.As(err).Message())
}

func TestSanitizeString(t *testing.T) {
	require.Equal(t, "Basmati Rice", SanitizeString("  Basmati Rice \n", 0))
	require.Equal(t, "ab", SanitizeString("a\x00b", 10))
	require.Equal(t, "घी", SanitizeString("घी 1L", 2))
}
