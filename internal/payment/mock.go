package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mavi-pizzeria/api/internal/enum"
)

// Mock stands in for every online provider in development.
type Mock struct {
	customerURL string
	now         func() time.Time
}

func NewMock(customerURL string) *Mock {
	return &Mock{customerURL: strings.TrimRight(customerURL, "/"), now: time.Now}
}

func (m *Mock) CreatePayment(_ context.Context, req CreateRequest) (CreateResult, error) {
	provider := "mock"
	q := url.Values{
		"orderId":  {req.OrderID.String()},
		"amount":   {req.Amount.StringFixed(2)},
		"provider": {provider},
		"redirect": {"true"},
	}
	return CreateResult{
		PaymentURL:    m.customerURL + "/mock-payment?" + q.Encode(),
		TransactionID: fmt.Sprintf("MOCK-%s-%s-%d", provider, req.OrderID, m.now().UnixMilli()),
	}, nil
}

// ProcessWebhook settles on {"status":"success"} and fails on anything else.
func (m *Mock) ProcessWebhook(_ context.Context, wh Webhook) (WebhookResult, error) {
	var body struct {
		OrderID       string `json:"orderId"`
		TransactionID string `json:"transactionId"`
		Status        string `json:"status"`
	}
	if err := json.Unmarshal(wh.Payload, &body); err != nil {
		return WebhookResult{}, ErrInvalidWebhook
	}
	orderID, err := uuid.Parse(body.OrderID)
	if err != nil {
		return WebhookResult{}, ErrInvalidWebhook
	}
	status := enum.PaymentStatusFailed
	if body.Status == "success" {
		status = enum.PaymentStatusCompleted
	}
	return WebhookResult{Status: status, OrderID: orderID, TransactionID: body.TransactionID}, nil
}

func (m *Mock) GetStatus(context.Context, string) (StatusResult, error) {
	return StatusResult{Status: StatusUnknown}, nil
}
