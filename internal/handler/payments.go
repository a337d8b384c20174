package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mavi-pizzeria/api/internal/apperr"
	"github.com/mavi-pizzeria/api/internal/middleware"
	"github.com/mavi-pizzeria/api/internal/payment"
	"github.com/mavi-pizzeria/api/internal/service"
)

// maxWebhookBytes bounds provider callback bodies.
const maxWebhookBytes = 256 << 10

// PaymentFlow starts payments and applies provider callbacks.
// Satisfied by *service.PaymentService.
type PaymentFlow interface {
	Initiate(ctx context.Context, orderID uuid.UUID, requester *uuid.UUID) (*service.Initiated, error)
	HandleWebhook(ctx context.Context, providerName string, wh payment.Webhook) error
	Status(ctx context.Context, orderID uuid.UUID, requester *uuid.UUID) (*service.PaymentDetail, error)
}

// PaymentHandler handles payment endpoints.
type PaymentHandler struct {
	payments  PaymentFlow
	jwtSecret string
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(payments PaymentFlow, jwtSecret string) *PaymentHandler {
	return &PaymentHandler{payments: payments, jwtSecret: jwtSecret}
}

// RegisterRoutes registers payment endpoints; mount at /payments. Webhooks
// are authenticated by the provider's signature, not by a session.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhook/{provider}", h.Webhook)
	r.Get("/webhook/{provider}", h.Webhook)
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(h.jwtSecret))
		r.Post("/initiate", h.Initiate)
		r.Get("/{orderId}", h.Status)
	})
}

type initiatePaymentRequest struct {
	OrderID string `json:"order_id" validate:"required,uuid"`
}

// Initiate starts the payment of an order with the provider chosen at
// checkout.
func (h *PaymentHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req initiatePaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		apperr.WriteError(w, r, errInvalidID)
		return
	}

	res, err := h.payments.Initiate(r.Context(), orderID, requesterID(r))
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteData(w, http.StatusOK, res)
}

// Status returns the stored payment of an order.
func (h *PaymentHandler) Status(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "orderId")
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	res, err := h.payments.Status(r.Context(), orderID, requesterID(r))
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteData(w, http.StatusOK, res)
}

// Webhook hands the raw callback to the named provider. Bank gateways call
// back with GET and signed query parameters, card gateways POST a signed
// body.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		apperr.WriteError(w, r, errInvalidBody)
		return
	}

	sig := r.Header.Get("Stripe-Signature")
	if sig == "" {
		sig = r.Header.Get("x-webhook-signature")
	}

	wh := payment.Webhook{
		Payload:   body,
		Signature: sig,
		Header:    r.Header,
		Query:     r.URL.Query(),
	}
	if err := h.payments.HandleWebhook(r.Context(), chi.URLParam(r, "provider"), wh); err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteMessage(w, http.StatusOK, "Webhook processed")
}
