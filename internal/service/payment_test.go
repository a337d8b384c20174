package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/mavi-pizzeria/api/internal/apperr"
	"github.com/mavi-pizzeria/api/internal/enum"
	"github.com/mavi-pizzeria/api/internal/payment"
)

func TestInitiate_Card(t *testing.T) {
	h := newHarness()
	h.card.createRes = payment.CreateResult{PaymentURL: "https://checkout.stripe.com/c/pay/cs_1", TransactionID: "cs_1"}
	d := h.placeOrder(enum.PaymentMethodCard, nil)

	got, err := h.payments.Initiate(context.Background(), d.ID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PaymentURL == nil || *got.PaymentURL != "https://checkout.stripe.com/c/pay/cs_1" {
		t.Errorf("payment url: got %v", got.PaymentURL)
	}
	if got.Provider != "STRIPE" || got.TransactionID != "cs_1" {
		t.Errorf("result: got %+v", got)
	}
	pay, _ := h.store.GetPaymentByOrder(context.Background(), d.ID)
	if pay.TransactionID.String != "cs_1" {
		t.Errorf("stored transaction: got %q", pay.TransactionID.String)
	}
}

func TestInitiate_Cash(t *testing.T) {
	h := newHarness()
	d := h.placeOrder(enum.PaymentMethodCash, nil)

	got, err := h.payments.Initiate(context.Background(), d.ID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PaymentURL != nil {
		t.Errorf("payment url: got %q, want nil", *got.PaymentURL)
	}
	if got.Message != cashPaymentMessage {
		t.Errorf("message: got %q", got.Message)
	}
	if h.card.creates != 0 {
		t.Errorf("card provider called %d times", h.card.creates)
	}
	if s := h.store.paymentStatus(d.ID); s != enum.PaymentStatusPending {
		t.Errorf("payment status: got %s, want PENDING", s)
	}
}

func TestInitiate_Errors(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	if _, err := h.payments.Initiate(ctx, uuid.New(), nil); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("missing order: got %v", err)
	}

	paid := h.placeOrder(enum.PaymentMethodCard, nil)
	if _, err := h.lifecycle.ConfirmPayment(ctx, paid.ID, "cs_x"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := h.payments.Initiate(ctx, paid.ID, nil); !errors.Is(err, ErrOrderAlreadyPaid) {
		t.Errorf("paid order: got %v, want ErrOrderAlreadyPaid", err)
	}

	bank := h.placeOrder(enum.PaymentMethodVerkkomaksu, nil)
	_, err := h.payments.Initiate(ctx, bank.ID, nil)
	if !errors.Is(err, payment.ErrProviderNotConfigured) {
		t.Errorf("unconfigured: got %v", err)
	}
	if apperr.KindOf(err).Status() != 500 {
		t.Errorf("unconfigured status: got %d, want 500", apperr.KindOf(err).Status())
	}

	owner, stranger := uuid.New(), uuid.New()
	owned := h.placeOrder(enum.PaymentMethodCard, &owner)
	if _, err := h.payments.Initiate(ctx, owned.ID, &stranger); !errors.Is(err, ErrNotOrderOwner) {
		t.Errorf("stranger: got %v", err)
	}
}

func TestInitiate_ProviderFailureIsTyped(t *testing.T) {
	h := newHarness()
	h.card.createErr = apperr.Wrap(payment.ErrProviderFailed, errors.New("stripe: 401 invalid api key"))
	d := h.placeOrder(enum.PaymentMethodCard, nil)

	_, err := h.payments.Initiate(context.Background(), d.ID, nil)
	if !errors.Is(err, payment.ErrProviderFailed) {
		t.Fatalf("error: got %v, want ErrProviderFailed", err)
	}
	if apperr.KindOf(err) != apperr.KindProvider {
		t.Errorf("kind: got %v, want provider", apperr.KindOf(err))
	}
}

func TestHandleWebhook_CompletedConfirmsOnce(t *testing.T) {
	h := newHarness()
	d := h.placeOrder(enum.PaymentMethodCard, nil)
	h.card.webhookRes = payment.WebhookResult{Status: enum.PaymentStatusCompleted, OrderID: d.ID, TransactionID: "cs_9"}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := h.payments.HandleWebhook(ctx, "stripe", payment.Webhook{Payload: []byte(`{}`)}); err != nil {
			t.Fatalf("webhook %d: %v", i, err)
		}
	}
	h.drain()

	if s := h.store.orderStatus(d.ID); s != enum.OrderStatusConfirmed {
		t.Errorf("order status: got %s", s)
	}
	if s := h.store.paymentStatus(d.ID); s != enum.PaymentStatusCompleted {
		t.Errorf("payment status: got %s", s)
	}
	if h.printer.count() != 1 {
		t.Errorf("print jobs: got %d, want 1", h.printer.count())
	}
}

func TestHandleWebhook_Failed(t *testing.T) {
	h := newHarness()
	d := h.placeOrder(enum.PaymentMethodCard, nil)
	h.card.webhookRes = payment.WebhookResult{Status: enum.PaymentStatusFailed, OrderID: d.ID}

	if err := h.payments.HandleWebhook(context.Background(), "STRIPE", payment.Webhook{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s := h.store.paymentStatus(d.ID); s != enum.PaymentStatusFailed {
		t.Errorf("payment status: got %s, want FAILED", s)
	}
	if s := h.store.orderStatus(d.ID); s != enum.OrderStatusPending {
		t.Errorf("order status: got %s, want PENDING", s)
	}
}

func TestHandleWebhook_Rejections(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	if err := h.payments.HandleWebhook(ctx, "paypal", payment.Webhook{}); !errors.Is(err, payment.ErrUnknownProvider) {
		t.Errorf("unknown provider: got %v", err)
	}
	if err := h.payments.HandleWebhook(ctx, "verkkomaksu", payment.Webhook{}); !errors.Is(err, payment.ErrProviderNotConfigured) {
		t.Errorf("unconfigured: got %v", err)
	}
	h.card.webhookErr = payment.ErrInvalidSignature
	if err := h.payments.HandleWebhook(ctx, "stripe", payment.Webhook{}); !errors.Is(err, payment.ErrInvalidSignature) {
		t.Errorf("bad signature: got %v", err)
	}
}

func TestHandleWebhook_MockProvider(t *testing.T) {
	h := newHarness()
	h.registry.MockAll = true
	d := h.placeOrder(enum.PaymentMethodCard, nil)
	body := []byte(`{"orderId":"` + d.ID.String() + `","transactionId":"MOCK-1","status":"success"}`)

	if err := h.payments.HandleWebhook(context.Background(), "mock", payment.Webhook{Payload: body}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.drain()
	if s := h.store.orderStatus(d.ID); s != enum.OrderStatusConfirmed {
		t.Errorf("order status: got %s, want CONFIRMED", s)
	}
}

func TestHandleWebhook_WrongProviderLeavesOrderPending(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		provider string
		body     string
	}{
		{"epassi callback for a card order", enum.PaymentMethodCard, "epassi", `{"orderId":"%s"}`},
		{"mock callback for a cash order", enum.PaymentMethodCash, "mock", `{"orderId":"%s","status":"success"}`},
		{"mock callback for a card order", enum.PaymentMethodCard, "mock", `{"orderId":"%s","status":"success"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			d := h.placeOrder(tt.method, nil)
			body := []byte(fmt.Sprintf(tt.body, d.ID))

			err := h.payments.HandleWebhook(context.Background(), tt.provider, payment.Webhook{Payload: body})
			if !errors.Is(err, ErrProviderMismatch) {
				t.Fatalf("error: got %v, want ErrProviderMismatch", err)
			}
			if apperr.KindOf(err).Status() != 409 {
				t.Errorf("status: got %d, want 409", apperr.KindOf(err).Status())
			}
			h.drain()
			if s := h.store.orderStatus(d.ID); s != enum.OrderStatusPending {
				t.Errorf("order status: got %s, want PENDING", s)
			}
			if s := h.store.paymentStatus(d.ID); s != enum.PaymentStatusPending {
				t.Errorf("payment status: got %s, want PENDING", s)
			}
			if h.printer.count() != 0 {
				t.Errorf("print jobs: got %d, want 0", h.printer.count())
			}
		})
	}
}

func TestHandleWebhook_UnknownOrder(t *testing.T) {
	h := newHarness()
	body := []byte(`{"orderId":"` + uuid.New().String() + `"}`)

	err := h.payments.HandleWebhook(context.Background(), "epassi", payment.Webhook{Payload: body})
	if !errors.Is(err, ErrPaymentNotFound) {
		t.Errorf("error: got %v, want ErrPaymentNotFound", err)
	}
}

func TestStatus(t *testing.T) {
	h := newHarness()
	d := h.placeOrder(enum.PaymentMethodCash, nil)

	got, err := h.payments.Status(context.Background(), d.ID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != enum.PaymentStatusPending || got.Amount != d.Total {
		t.Errorf("status: got %+v", got)
	}
	if _, err := h.payments.Status(context.Background(), uuid.New(), nil); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("missing: got %v", err)
	}
}
