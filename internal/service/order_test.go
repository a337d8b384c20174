package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mavi-pizzeria/api/internal/enum"
	"github.com/mavi-pizzeria/api/internal/events"
	"github.com/mavi-pizzeria/api/internal/ws"
)

func TestCreateOrder_PickupTotals(t *testing.T) {
	h := newHarness()
	pid := h.store.addProduct("Margherita", "12.90")
	cheese := h.store.addRule(pid, "Extra Cheese", enum.CustomizationExtra, "2.50")

	d, err := h.orders.CreateOrder(context.Background(), CreateOrderRequest{
		Items: []CartItem{{
			ProductID:      pid,
			Quantity:       2,
			Customizations: []CustomizationRequest{{IngredientID: cheese, Action: enum.CustomizationExtra}},
		}},
		DeliveryType:  enum.DeliveryTypePickup,
		PaymentMethod: enum.PaymentMethodCard,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.Subtotal != "30.80" || d.Tax != "4.31" || d.DeliveryFee != "0.00" || d.Total != "35.11" {
		t.Errorf("totals: got %s/%s/%s/%s, want 30.80/4.31/0.00/35.11",
			d.Subtotal, d.Tax, d.DeliveryFee, d.Total)
	}
	if d.Status != enum.OrderStatusPending {
		t.Errorf("status: got %s, want PENDING", d.Status)
	}
	if d.Payment == nil || d.Payment.Status != enum.PaymentStatusPending || d.Payment.Provider != "STRIPE" {
		t.Errorf("payment: got %+v, want PENDING STRIPE", d.Payment)
	}
	if d.Payment.Amount != "35.11" || d.Payment.Currency != "EUR" {
		t.Errorf("payment amount: got %s %s", d.Payment.Amount, d.Payment.Currency)
	}
	if len(d.Items) != 1 || d.Items[0].UnitPrice != "15.40" || d.Items[0].TotalPrice != "30.80" {
		t.Errorf("items: got %+v", d.Items)
	}
	if len(d.Items[0].Customizations) != 1 || d.Items[0].Customizations[0].Price != "2.50" {
		t.Errorf("customizations: got %+v", d.Items[0].Customizations)
	}
	if d.DeliveryAddress != nil {
		t.Errorf("pickup order should have no address, got %+v", d.DeliveryAddress)
	}
	if !regexp.MustCompile(`^ORD-\d{8}-\d{4}$`).MatchString(d.OrderNumber) {
		t.Errorf("order number: got %q", d.OrderNumber)
	}
	if d.EstimatedDeliveryTime == nil {
		t.Error("estimated delivery time not set")
	}
	if h.tx.commits != 1 {
		t.Errorf("commits: got %d, want 1", h.tx.commits)
	}
}

func TestCreateOrder_DeliveryAddsFee(t *testing.T) {
	h := newHarness()
	pid := h.store.addProduct("Margherita", "10.00")

	d, err := h.orders.CreateOrder(context.Background(), CreateOrderRequest{
		Items:         []CartItem{{ProductID: pid, Quantity: 1}},
		DeliveryType:  enum.DeliveryTypeDelivery,
		Address:       &AddressInput{Street: "Mannerheimintie 1", PostalCode: "00100", City: "Helsinki"},
		PaymentMethod: enum.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Subtotal != "10.00" || d.Tax != "1.40" || d.DeliveryFee != "5.00" || d.Total != "16.40" {
		t.Errorf("totals: got %s/%s/%s/%s", d.Subtotal, d.Tax, d.DeliveryFee, d.Total)
	}
	if d.DeliveryAddress == nil || d.DeliveryAddress.City != "Helsinki" {
		t.Errorf("address: got %+v", d.DeliveryAddress)
	}
}

func TestCreateOrder_CashMakesNoProviderCall(t *testing.T) {
	h := newHarness()
	d := h.placeOrder(enum.PaymentMethodCash, nil)

	if d.Payment.Status != enum.PaymentStatusPending || d.Payment.Provider != "CASH" {
		t.Errorf("payment: got %+v, want PENDING CASH", d.Payment)
	}
	if d.Status != enum.OrderStatusPending {
		t.Errorf("status: got %s, want PENDING", d.Status)
	}
	if h.card.creates != 0 {
		t.Errorf("provider calls: got %d, want 0", h.card.creates)
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	h := newHarness()
	pid := h.store.addProduct("Margherita", "12.90")
	items := []CartItem{{ProductID: pid, Quantity: 1}}

	tests := []struct {
		name string
		req  CreateOrderRequest
		want error
	}{
		{"bad delivery type", CreateOrderRequest{Items: items, DeliveryType: "DRONE", PaymentMethod: enum.PaymentMethodCash}, ErrInvalidDeliveryType},
		{"bad method", CreateOrderRequest{Items: items, DeliveryType: enum.DeliveryTypePickup, PaymentMethod: "BITCOIN"}, ErrInvalidPaymentMethod},
		{"delivery without address", CreateOrderRequest{Items: items, DeliveryType: enum.DeliveryTypeDelivery, PaymentMethod: enum.PaymentMethodCash}, ErrAddressRequired},
		{"partial address", CreateOrderRequest{Items: items, DeliveryType: enum.DeliveryTypeDelivery, PaymentMethod: enum.PaymentMethodCash, Address: &AddressInput{Street: "x"}}, ErrAddressRequired},
		{"empty cart", CreateOrderRequest{DeliveryType: enum.DeliveryTypePickup, PaymentMethod: enum.PaymentMethodCash}, ErrEmptyItems},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.orders.CreateOrder(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error: got %v, want %v", err, tt.want)
			}
		})
	}
	if len(h.store.orders) != 0 {
		t.Errorf("orders written: got %d, want 0", len(h.store.orders))
	}
}

func TestCreateOrder_InvalidCustomizationCreatesNothing(t *testing.T) {
	h := newHarness()
	pid := h.store.addProduct("Margherita", "12.90")

	_, err := h.orders.CreateOrder(context.Background(), CreateOrderRequest{
		Items: []CartItem{{
			ProductID:      pid,
			Quantity:       1,
			Customizations: []CustomizationRequest{{IngredientID: uuid.New(), Action: enum.CustomizationAdd}},
		}},
		DeliveryType:  enum.DeliveryTypePickup,
		PaymentMethod: enum.PaymentMethodCard,
	})
	if !errors.Is(err, ErrInvalidCustomization) {
		t.Fatalf("error: got %v, want ErrInvalidCustomization", err)
	}
	if len(h.store.orders) != 0 || len(h.store.payments) != 0 {
		t.Errorf("nothing should be written, got %d orders", len(h.store.orders))
	}
}

func TestCreateOrder_RetriesOrderNumberConflict(t *testing.T) {
	h := newHarness()
	conflict := &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key"}
	h.store.createOrderErrs = []error{conflict, conflict}

	d := h.placeOrder(enum.PaymentMethodCash, nil)
	if d == nil {
		t.Fatal("expected order after retries")
	}
	if len(h.store.orderNumbers) != 3 {
		t.Errorf("attempts: got %d, want 3", len(h.store.orderNumbers))
	}
}

func TestCreateOrder_GivesUpAfterMaxRetries(t *testing.T) {
	h := newHarness()
	pid := h.store.addProduct("Margherita", "12.90")
	conflict := &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key"}
	h.store.createOrderErrs = []error{conflict, conflict, conflict, nil}

	_, err := h.orders.CreateOrder(context.Background(), CreateOrderRequest{
		Items:         []CartItem{{ProductID: pid, Quantity: 1}},
		DeliveryType:  enum.DeliveryTypePickup,
		PaymentMethod: enum.PaymentMethodCash,
	})
	if !isOrderNumberConflict(err) {
		t.Fatalf("error: got %v, want order number conflict", err)
	}
	if len(h.store.orderNumbers) != maxOrderNumberRetries {
		t.Errorf("attempts: got %d, want %d", len(h.store.orderNumbers), maxOrderNumberRetries)
	}
}

func TestCreateOrder_OtherUniqueViolationNotRetried(t *testing.T) {
	h := newHarness()
	pid := h.store.addProduct("Margherita", "12.90")
	h.store.createOrderErrs = []error{&pgconn.PgError{Code: "23505", ConstraintName: "payments_order_id_key"}}

	_, err := h.orders.CreateOrder(context.Background(), CreateOrderRequest{
		Items:         []CartItem{{ProductID: pid, Quantity: 1}},
		DeliveryType:  enum.DeliveryTypePickup,
		PaymentMethod: enum.PaymentMethodCash,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(h.store.orderNumbers) != 1 {
		t.Errorf("attempts: got %d, want 1", len(h.store.orderNumbers))
	}
}

func TestCreateOrder_NotifiesStaffAndPublishes(t *testing.T) {
	h := newHarness()
	h.placeOrder(enum.PaymentMethodCash, nil)
	h.drain()

	if got := h.emitter.rooms(ws.EventAdminNewOrder); len(got) != 1 || got[0] != ws.AdminRoom {
		t.Errorf("admin:newOrder rooms: got %v", got)
	}
	if got := h.publisher.types(); len(got) != 1 || got[0] != events.TypeOrderCreated {
		t.Errorf("events: got %v", got)
	}
}
