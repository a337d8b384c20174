package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mavi-pizzeria/api/internal/apperr"
	"github.com/mavi-pizzeria/api/internal/enum"
	"github.com/sony/gobreaker"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
)

// CheckoutSessions defines the Stripe calls needed by Card.
// Satisfied by *session.Client; narrow interface for testability.
type CheckoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// CardConfig configures hosted card checkout.
type CardConfig struct {
	SecretKey     string
	WebhookSecret string
	CustomerURL   string
	// Sessions overrides the live Stripe client.
	Sessions CheckoutSessions
}

// Card creates hosted Stripe checkout sessions.
type Card struct {
	cfg      CardConfig
	sessions CheckoutSessions
	cb       *gobreaker.CircuitBreaker
}

func NewCard(cfg CardConfig) *Card {
	sessions := cfg.Sessions
	if sessions == nil {
		sessions = &session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: cfg.SecretKey}
	}
	cfg.CustomerURL = strings.TrimRight(cfg.CustomerURL, "/")
	return &Card{cfg: cfg, sessions: sessions, cb: newBreaker("payment-stripe")}
}

func (c *Card) CreatePayment(ctx context.Context, req CreateRequest) (CreateResult, error) {
	cents := toCents(req.Amount)
	if cents <= 0 {
		return CreateResult{}, ErrInvalidAmount
	}
	orderID := req.OrderID.String()

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String("eur"),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Order #" + displayNumber(req)),
				},
				UnitAmount: stripe.Int64(cents),
			},
			Quantity: stripe.Int64(1),
		}},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(c.cfg.CustomerURL + "/track/" + orderID + "?payment=success&session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(c.cfg.CustomerURL + "/checkout?canceled=true&order_id=" + orderID),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.AddMetadata("orderId", orderID)
	params.Context = ctx

	sess, err := execute(c.cb, func() (*stripe.CheckoutSession, error) {
		return c.sessions.New(params)
	})
	if err != nil {
		return CreateResult{}, apperr.Wrap(ErrProviderFailed, fmt.Errorf("stripe gateway: %w", err))
	}
	return CreateResult{PaymentURL: sess.URL, TransactionID: sess.ID}, nil
}

func (c *Card) ProcessWebhook(_ context.Context, wh Webhook) (WebhookResult, error) {
	if c.cfg.WebhookSecret == "" {
		return WebhookResult{}, fmt.Errorf("stripe webhook secret: %w", ErrProviderNotConfigured)
	}
	sig := wh.Signature
	if sig == "" && wh.Header != nil {
		sig = wh.Header.Get("Stripe-Signature")
	}
	event, err := webhook.ConstructEventWithOptions(wh.Payload, sig, c.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return WebhookResult{}, apperr.Wrap(ErrInvalidSignature, err)
	}

	var status string
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		status = enum.PaymentStatusCompleted
	case "checkout.session.async_payment_failed", "checkout.session.expired":
		status = enum.PaymentStatusFailed
	default:
		return WebhookResult{Ignored: true}, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return WebhookResult{}, apperr.Wrap(ErrInvalidWebhook, err)
	}
	orderID, err := uuid.Parse(sess.Metadata["orderId"])
	if err != nil {
		return WebhookResult{}, fmt.Errorf("session metadata orderId: %w", ErrInvalidWebhook)
	}
	if status == enum.PaymentStatusCompleted && event.Type == "checkout.session.completed" &&
		sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		// Delayed methods settle later through async_payment_succeeded.
		return WebhookResult{Ignored: true}, nil
	}
	return WebhookResult{Status: status, OrderID: orderID, TransactionID: sess.ID}, nil
}

func (c *Card) GetStatus(ctx context.Context, transactionID string) (StatusResult, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := execute(c.cb, func() (*stripe.CheckoutSession, error) {
		return c.sessions.Get(transactionID, params)
	})
	if err != nil {
		return StatusResult{}, apperr.Wrap(ErrProviderFailed, fmt.Errorf("stripe gateway: %w", err))
	}
	if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		return StatusResult{Status: enum.PaymentStatusCompleted}, nil
	}
	return StatusResult{Status: enum.PaymentStatusPending}, nil
}
