// Package razorpay is a thin REST client for the Razorpay Orders API.
package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/tradelink-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/tradelink-backend/pkg/errors"
	"github.com/angelmondragon/tradelink-backend/pkg/logger"
)

const ordersPath = "/v1/orders"

var (
	errKeyIDRequired     = errors.New("razorpay key id is required")
	errKeySecretRequired = errors.New("razorpay key secret is required")
	errLoggerRequired    = errors.New("razorpay logger is required")
)

// Doer is the subset of *http.Client the provider needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// OrderParams describes a provider order (what the rest of the codebase calls
// a payment intent).
type OrderParams struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// Order is the provider response for a created order.
type Order struct {
	ID          string `json:"id"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
	Status      string `json:"status"`
	CreatedAt   int64  `json:"created_at"`
}

type createOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type apiErrorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
		Reason      string `json:"reason"`
	} `json:"error"`
}

// Client calls Razorpay with basic auth and a per-request timeout.
type Client struct {
	http      Doer
	baseURL   string
	keyID     string
	keySecret string
	timeout   time.Duration
	logger    *logger.Logger
}

// NewClient validates credentials and builds the client. A nil doer falls back
// to an *http.Client bounded by the configured provider timeout.
func NewClient(ctx context.Context, cfg config.PaymentsConfig, doer Doer, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errKeySecretRequired
	}
	timeout := cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if doer == nil {
		doer = &http.Client{Timeout: timeout}
	}

	c := &Client{
		http:      doer,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		keyID:     keyID,
		keySecret: keySecret,
		timeout:   timeout,
		logger:    logg,
	}
	logg.Info(ctx, "razorpay client initialized")
	return c, nil
}

// KeyID returns the public key the checkout widget needs.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

// CreateOrder registers an order with the provider.
func (c *Client) CreateOrder(ctx context.Context, params OrderParams) (*Order, error) {
	if params.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	body, err := json.Marshal(createOrderRequest{
		Amount:   params.AmountMinor,
		Currency: params.Currency,
		Receipt:  params.Receipt,
		Notes:    params.Notes,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode razorpay order")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ordersPath, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build razorpay request")
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	c.log(ctx, "request", "create_order", map[string]any{
		"receipt":  params.Receipt,
		"amount":   params.AmountMinor,
		"currency": params.Currency,
	})

	resp, err := c.http.Do(req)
	if err != nil {
		c.log(ctx, "error", "create_order", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "razorpay create order failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read razorpay response")
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		mapped := mapStatusError(resp.StatusCode, raw)
		c.log(ctx, "error", "create_order", map[string]any{"status": resp.StatusCode, "error": mapped.Error()})
		return nil, mapped
	}

	var order Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode razorpay order")
	}
	if order.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay order missing id")
	}

	c.log(ctx, "response", "create_order", map[string]any{"order_id": order.ID, "status": order.Status})
	return &order, nil
}

// SigningSecret returns the secret the checkout signature is keyed with.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.keySecret
}

func mapStatusError(status int, raw []byte) error {
	var body apiErrorBody
	_ = json.Unmarshal(raw, &body)
	desc := strings.TrimSpace(body.Error.Description)
	if desc == "" {
		desc = http.StatusText(status)
	}
	cause := fmt.Errorf("razorpay status %d: %s (%s)", status, desc, body.Error.Code)
	return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "razorpay create order failed").
		WithDetails(map[string]any{"provider_status": status, "provider_code": body.Error.Code})
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"provider":  "razorpay",
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("razorpay %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("razorpay %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"secret", "signature", "token", "card", "email", "phone"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
