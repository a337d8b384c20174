package payment

import (
	"context"

	"github.com/mavi-pizzeria/api/internal/enum"
)

// Cash is paid on delivery or pickup. It has no redirect and no callbacks.
type Cash struct{}

func (Cash) CreatePayment(_ context.Context, req CreateRequest) (CreateResult, error) {
	return CreateResult{TransactionID: "CASH-" + req.OrderID.String()}, nil
}

func (Cash) ProcessWebhook(context.Context, Webhook) (WebhookResult, error) {
	return WebhookResult{Ignored: true}, nil
}

func (Cash) GetStatus(context.Context, string) (StatusResult, error) {
	return StatusResult{Status: enum.PaymentStatusPending}, nil
}
