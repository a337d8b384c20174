package handler_test

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mavi-pizzeria/api/internal/enum"
	"github.com/mavi-pizzeria/api/internal/handler"
	"github.com/mavi-pizzeria/api/internal/service"
)

const testWebhookSecret = "webhook-secret"

func setupWebhookRouter(lc *mockLifecycle, secret string) *chi.Mux {
	h := handler.NewWebhookHandler(lc, secret)
	r := chi.NewRouter()
	r.Route("/webhooks", h.RegisterRoutes)
	return r
}

func TestOrderStatusWebhook(t *testing.T) {
	lc := newMockLifecycle()
	d := lc.add(nil, enum.OrderStatusPending)
	r := setupWebhookRouter(lc, testWebhookSecret)

	rr := doJSON(t, r, http.MethodPost, "/webhooks/order-status", map[string]string{
		"order_id": d.ID.String(),
		"status":   "confirmed",
		"secret":   testWebhookSecret,
	}, "")
	assertStatus(t, rr, http.StatusOK)

	if len(lc.changed) != 1 || lc.changed[0] != enum.OrderStatusConfirmed {
		t.Errorf("changes: got %v, want [CONFIRMED]", lc.changed)
	}
}

func TestOrderStatusWebhook_WrongSecret(t *testing.T) {
	lc := newMockLifecycle()
	d := lc.add(nil, enum.OrderStatusPending)
	r := setupWebhookRouter(lc, testWebhookSecret)

	rr := doJSON(t, r, http.MethodPost, "/webhooks/order-status", map[string]string{
		"order_id": d.ID.String(),
		"status":   "CONFIRMED",
		"secret":   "guess",
	}, "")
	assertStatus(t, rr, http.StatusUnauthorized)
	assertMessage(t, rr, "Unauthorized webhook call")
	if len(lc.changed) != 0 {
		t.Error("status must not change")
	}
}

func TestOrderStatusWebhook_DisabledWithoutSecret(t *testing.T) {
	lc := newMockLifecycle()
	d := lc.add(nil, enum.OrderStatusPending)
	r := setupWebhookRouter(lc, "")

	rr := doJSON(t, r, http.MethodPost, "/webhooks/order-status", map[string]string{
		"order_id": d.ID.String(),
		"status":   "CONFIRMED",
		"secret":   "",
	}, "")
	assertStatus(t, rr, http.StatusUnauthorized)
}

func TestOrderStatusWebhook_MissingFieldsUnauthenticated(t *testing.T) {
	r := setupWebhookRouter(newMockLifecycle(), testWebhookSecret)
	rr := doJSON(t, r, http.MethodPost, "/webhooks/order-status", map[string]string{}, "")
	assertStatus(t, rr, http.StatusUnauthorized)
}

func TestOrderStatusWebhook_MissingFields(t *testing.T) {
	r := setupWebhookRouter(newMockLifecycle(), testWebhookSecret)
	rr := doJSON(t, r, http.MethodPost, "/webhooks/order-status", map[string]string{
		"secret": testWebhookSecret,
	}, "")
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestOrderStatusWebhook_InvalidTransition(t *testing.T) {
	lc := newMockLifecycle()
	d := lc.add(nil, enum.OrderStatusCompleted)
	lc.changeErr = service.ErrInvalidTransition
	r := setupWebhookRouter(lc, testWebhookSecret)

	rr := doJSON(t, r, http.MethodPost, "/webhooks/order-status", map[string]string{
		"order_id": d.ID.String(),
		"status":   "PENDING",
		"secret":   testWebhookSecret,
	}, "")
	assertStatus(t, rr, http.StatusConflict)
}

func TestOrderStatusWebhook_UnknownOrder(t *testing.T) {
	r := setupWebhookRouter(newMockLifecycle(), testWebhookSecret)
	rr := doJSON(t, r, http.MethodPost, "/webhooks/order-status", map[string]string{
		"order_id": uuid.New().String(),
		"status":   "READY",
		"secret":   testWebhookSecret,
	}, "")
	assertStatus(t, rr, http.StatusNotFound)
}
