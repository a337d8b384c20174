package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mavi-pizzeria/api/internal/apperr"
	"github.com/mavi-pizzeria/api/internal/database"
	"github.com/mavi-pizzeria/api/internal/enum"
	"github.com/mavi-pizzeria/api/internal/pricing"
	"github.com/shopspring/decimal"
)

// Errors returned by the order validator.
var (
	ErrEmptyItems           = apperr.Validation("items are required")
	ErrInvalidQuantity      = apperr.Validation("quantity must be at least 1")
	ErrProductUnavailable   = apperr.Validation("product is not available")
	ErrInvalidCustomization = apperr.Validation("invalid customization")
)

// CatalogReader defines the DB methods needed to price a cart.
// Satisfied by *database.Queries; narrow interface for testability.
type CatalogReader interface {
	GetProductForOrder(ctx context.Context, id uuid.UUID) (database.GetProductForOrderRow, error)
	ListProductCustomizations(ctx context.Context, productID uuid.UUID) ([]database.ListProductCustomizationsRow, error)
}

// CartItem is one raw cart line as submitted by the client.
type CartItem struct {
	ProductID           uuid.UUID
	Quantity            int32
	Customizations      []CustomizationRequest
	SpecialInstructions string
}

// CustomizationRequest names a rule by ingredient and action. Prices are
// never taken from the client.
type CustomizationRequest struct {
	IngredientID uuid.UUID
	Action       string
}

// PricedItem is a cart line priced against the live catalog.
type PricedItem struct {
	ProductID           uuid.UUID
	ProductName         string
	Quantity            int32
	BasePrice           decimal.Decimal
	Customizations      []PricedCustomization
	SpecialInstructions string
}

type PricedCustomization struct {
	IngredientID   uuid.UUID
	IngredientName string
	Action         string
	Price          decimal.Decimal
}

// Line converts the item for the pricing engine.
func (p PricedItem) Line() pricing.Line {
	mods := make([]decimal.Decimal, len(p.Customizations))
	for i, c := range p.Customizations {
		mods[i] = c.Price
	}
	return pricing.Line{BasePrice: p.BasePrice, Modifiers: mods, Quantity: p.Quantity}
}

// OrderValidator re-prices a cart from the catalog. It only reads.
type OrderValidator struct {
	catalog CatalogReader
}

func NewOrderValidator(catalog CatalogReader) *OrderValidator {
	return &OrderValidator{catalog: catalog}
}

// Validate prices every line. A product that is missing, unavailable or in an
// inactive category fails with ErrProductUnavailable; a customization that
// does not exactly match one of the product's (ingredient, action) rules
// fails with ErrInvalidCustomization.
func (v *OrderValidator) Validate(ctx context.Context, items []CartItem) ([]PricedItem, error) {
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}

	priced := make([]PricedItem, 0, len(items))
	for i, item := range items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}

		product, err := v.catalog.GetProductForOrder(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, productUnavailable(item.ProductID.String())
			}
			return nil, fmt.Errorf("item[%d]: get product: %w", i, err)
		}
		if !product.IsAvailable || !product.CategoryActive {
			return nil, productUnavailable(product.Name)
		}

		var custs []PricedCustomization
		if len(item.Customizations) > 0 {
			rules, err := v.catalog.ListProductCustomizations(ctx, product.ID)
			if err != nil {
				return nil, fmt.Errorf("item[%d]: list customizations: %w", i, err)
			}
			for _, req := range item.Customizations {
				rule, ok := findRule(rules, req)
				if !ok {
					return nil, &apperr.Error{
						Kind: apperr.KindValidation,
						Msg:  "invalid customization for product " + product.Name,
						Err:  ErrInvalidCustomization,
					}
				}
				custs = append(custs, PricedCustomization{
					IngredientID:   rule.IngredientID,
					IngredientName: rule.IngredientName,
					Action:         rule.Action,
					Price:          database.Decimal(rule.Price),
				})
			}
		}

		priced = append(priced, PricedItem{
			ProductID:           product.ID,
			ProductName:         product.Name,
			Quantity:            item.Quantity,
			BasePrice:           database.Decimal(product.Price),
			Customizations:      custs,
			SpecialInstructions: item.SpecialInstructions,
		})
	}
	return priced, nil
}

func findRule(rules []database.ListProductCustomizationsRow, req CustomizationRequest) (database.ListProductCustomizationsRow, bool) {
	if !enum.IsCustomizationAction(req.Action) {
		return database.ListProductCustomizationsRow{}, false
	}
	for _, r := range rules {
		if r.IngredientID == req.IngredientID && r.Action == req.Action {
			return r, true
		}
	}
	return database.ListProductCustomizationsRow{}, false
}

func productUnavailable(name string) error {
	return &apperr.Error{
		Kind: apperr.KindValidation,
		Msg:  "product " + name + " is not available",
		Err:  ErrProductUnavailable,
	}
}
