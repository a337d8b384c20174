package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mavi-pizzeria/api/internal/apperr"
	"github.com/mavi-pizzeria/api/internal/service"
)

var errWebhookUnauthorized = apperr.Unauthorized("Unauthorized webhook call")

// StatusChanger moves orders. Satisfied by *service.Lifecycle.
type StatusChanger interface {
	ChangeStatus(ctx context.Context, id uuid.UUID, status string) (*service.OrderDetail, error)
}

// WebhookHandler accepts order status updates from trusted back-office
// integrations that share a secret.
type WebhookHandler struct {
	lifecycle StatusChanger
	secret    string
}

// NewWebhookHandler creates a new WebhookHandler. An empty secret rejects
// every call.
func NewWebhookHandler(lifecycle StatusChanger, secret string) *WebhookHandler {
	return &WebhookHandler{lifecycle: lifecycle, secret: secret}
}

// RegisterRoutes registers webhook endpoints; mount at /webhooks.
func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/order-status", h.OrderStatus)
}

type orderStatusWebhookRequest struct {
	OrderID string `json:"order_id" validate:"required,uuid"`
	Status  string `json:"status" validate:"required"`
	Secret  string `json:"secret"`
}

// OrderStatus applies a status change with the same rules staff are held to.
func (h *WebhookHandler) OrderStatus(w http.ResponseWriter, r *http.Request) {
	var req orderStatusWebhookRequest
	if err := decodeJSON(r, &req); err != nil {
		// Do not reveal the body shape to unauthenticated callers.
		if !h.authorized(req.Secret) {
			apperr.WriteError(w, r, errWebhookUnauthorized)
			return
		}
		apperr.WriteError(w, r, err)
		return
	}
	if !h.authorized(req.Secret) {
		apperr.WriteError(w, r, errWebhookUnauthorized)
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		apperr.WriteError(w, r, errInvalidID)
		return
	}

	order, err := h.lifecycle.ChangeStatus(r.Context(), orderID, strings.ToUpper(req.Status))
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteData(w, http.StatusOK, order)
}

func (h *WebhookHandler) authorized(secret string) bool {
	return h.secret != "" && subtle.ConstantTimeCompare([]byte(secret), []byte(h.secret)) == 1
}
