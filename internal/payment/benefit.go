package payment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/mavi-pizzeria/api/internal/enum"
)

// Benefit simulates a lunch-benefit wallet (ePassi, Lounasseteli). The
// customer is sent to the storefront's simulated payment page, which posts
// the outcome back to the webhook.
type Benefit struct {
	slug        string
	prefix      string
	customerURL string
}

func NewEpassi(customerURL string) *Benefit {
	return &Benefit{slug: "epassi", prefix: "EP", customerURL: strings.TrimRight(customerURL, "/")}
}

func NewLounasseteli(customerURL string) *Benefit {
	return &Benefit{slug: "lounasseteli", prefix: "LS", customerURL: strings.TrimRight(customerURL, "/")}
}

func (b *Benefit) CreatePayment(_ context.Context, req CreateRequest) (CreateResult, error) {
	if !req.Amount.IsPositive() {
		return CreateResult{}, ErrInvalidAmount
	}
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return CreateResult{}, fmt.Errorf("generating transaction id: %w", err)
	}
	txID := b.prefix + "-" + strings.ToUpper(hex.EncodeToString(buf))

	q := url.Values{
		"orderId":       {req.OrderID.String()},
		"provider":      {b.slug},
		"amount":        {req.Amount.StringFixed(2)},
		"transactionId": {txID},
	}
	return CreateResult{
		PaymentURL:    b.customerURL + "/mock-payment?" + q.Encode(),
		TransactionID: txID,
	}, nil
}

// ProcessWebhook accepts the simulated page's callback. Every well-formed
// callback settles the payment.
func (b *Benefit) ProcessWebhook(_ context.Context, wh Webhook) (WebhookResult, error) {
	var body struct {
		OrderID       string `json:"orderId"`
		TransactionID string `json:"transactionId"`
	}
	if err := json.Unmarshal(wh.Payload, &body); err != nil {
		return WebhookResult{}, ErrInvalidWebhook
	}
	orderID, err := uuid.Parse(body.OrderID)
	if err != nil {
		return WebhookResult{}, ErrInvalidWebhook
	}
	return WebhookResult{
		Status:        enum.PaymentStatusCompleted,
		OrderID:       orderID,
		TransactionID: body.TransactionID,
	}, nil
}

func (b *Benefit) GetStatus(context.Context, string) (StatusResult, error) {
	return StatusResult{Status: enum.PaymentStatusCompleted}, nil
}
