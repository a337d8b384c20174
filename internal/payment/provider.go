// Package payment hides each external payment backend behind one Provider
// interface and selects providers from a closed set of names.
package payment

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/mavi-pizzeria/api/internal/apperr"
	"github.com/shopspring/decimal"
)

// StatusUnknown is reported by providers that cannot look a payment up.
const StatusUnknown = "UNKNOWN"

var (
	ErrProviderNotConfigured = apperr.FatalConfig("payment provider not configured")
	ErrUnknownProvider       = apperr.Validation("unknown payment provider")
	ErrProviderFailed        = apperr.Provider("payment provider error")
	ErrInvalidSignature      = apperr.Validation("invalid webhook signature")
	ErrInvalidWebhook        = apperr.Validation("invalid webhook payload")
	ErrInvalidAmount         = apperr.Validation("invalid payment amount")
)

// CreateRequest describes the payment to open with a provider.
type CreateRequest struct {
	OrderID       uuid.UUID
	OrderNumber   string
	Amount        decimal.Decimal
	CustomerEmail string
}

// CreateResult is what the client needs to continue. PaymentURL is empty when
// no redirect is involved.
type CreateResult struct {
	PaymentURL    string
	TransactionID string
}

// Webhook is an inbound provider callback as received over HTTP.
type Webhook struct {
	Payload   []byte
	Signature string
	Header    http.Header
	Query     url.Values
}

// WebhookResult is the provider's verdict on a callback. Ignored is set for
// well-formed events that carry no payment outcome.
type WebhookResult struct {
	Ignored       bool
	Status        string
	OrderID       uuid.UUID
	TransactionID string
}

type StatusResult struct {
	Status string
}

// Provider is implemented by every payment backend.
type Provider interface {
	CreatePayment(ctx context.Context, req CreateRequest) (CreateResult, error)
	ProcessWebhook(ctx context.Context, wh Webhook) (WebhookResult, error)
	GetStatus(ctx context.Context, transactionID string) (StatusResult, error)
}

// toCents converts a euro amount to integer cents, rounding half away from zero.
func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
