package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mavi-pizzeria/api/internal/apperr"
	"github.com/mavi-pizzeria/api/internal/enum"
)

func TestValidate_UsesRulePrice(t *testing.T) {
	store := newMemStore()
	pid := store.addProduct("Margherita", "12.90")
	cheese := store.addRule(pid, "Extra Cheese", enum.CustomizationExtra, "2.50")
	v := NewOrderValidator(store)

	priced, err := v.Validate(context.Background(), []CartItem{{
		ProductID:      pid,
		Quantity:       2,
		Customizations: []CustomizationRequest{{IngredientID: cheese, Action: enum.CustomizationExtra}},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(priced) != 1 {
		t.Fatalf("items: got %d, want 1", len(priced))
	}
	line := priced[0].Line()
	if got := line.UnitPrice().StringFixed(2); got != "15.40" {
		t.Errorf("unit price: got %s, want 15.40", got)
	}
	if got := line.Total().StringFixed(2); got != "30.80" {
		t.Errorf("line total: got %s, want 30.80", got)
	}
	if priced[0].Customizations[0].IngredientName != "Extra Cheese" {
		t.Errorf("ingredient name: got %q", priced[0].Customizations[0].IngredientName)
	}
}

func TestValidate_CustomizationMustMatchRuleExactly(t *testing.T) {
	store := newMemStore()
	pid := store.addProduct("Margherita", "12.90")
	cheese := store.addRule(pid, "Extra Cheese", enum.CustomizationExtra, "2.50")
	v := NewOrderValidator(store)

	tests := []struct {
		name string
		req  CustomizationRequest
	}{
		{"wrong action", CustomizationRequest{IngredientID: cheese, Action: enum.CustomizationAdd}},
		{"unknown ingredient", CustomizationRequest{IngredientID: uuid.New(), Action: enum.CustomizationExtra}},
		{"bogus action", CustomizationRequest{IngredientID: cheese, Action: "DOUBLE"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(context.Background(), []CartItem{{
				ProductID:      pid,
				Quantity:       1,
				Customizations: []CustomizationRequest{tt.req},
			}})
			if !errors.Is(err, ErrInvalidCustomization) {
				t.Fatalf("error: got %v, want ErrInvalidCustomization", err)
			}
			if !strings.Contains(err.Error(), "Margherita") {
				t.Errorf("error should name the product: %v", err)
			}
			if apperr.KindOf(err) != apperr.KindValidation {
				t.Errorf("kind: got %v, want validation", apperr.KindOf(err))
			}
		})
	}
}

func TestValidate_ProductUnavailable(t *testing.T) {
	store := newMemStore()
	off := store.addProduct("Kebab", "11.00")
	p := store.products[off]
	p.IsAvailable = false
	store.products[off] = p

	hidden := store.addProduct("Calzone", "13.00")
	p = store.products[hidden]
	p.CategoryActive = false
	store.products[hidden] = p

	v := NewOrderValidator(store)
	for _, id := range []uuid.UUID{off, hidden, uuid.New()} {
		_, err := v.Validate(context.Background(), []CartItem{{ProductID: id, Quantity: 1}})
		if !errors.Is(err, ErrProductUnavailable) {
			t.Errorf("product %s: got %v, want ErrProductUnavailable", id, err)
		}
	}
}

func TestValidate_RejectsEmptyCartAndBadQuantity(t *testing.T) {
	store := newMemStore()
	pid := store.addProduct("Margherita", "12.90")
	v := NewOrderValidator(store)

	if _, err := v.Validate(context.Background(), nil); !errors.Is(err, ErrEmptyItems) {
		t.Errorf("empty: got %v, want ErrEmptyItems", err)
	}
	_, err := v.Validate(context.Background(), []CartItem{{ProductID: pid, Quantity: 0}})
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("quantity: got %v, want ErrInvalidQuantity", err)
	}
}
