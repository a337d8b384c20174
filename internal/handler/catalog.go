package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mavi-pizzeria/api/internal/apperr"
	"github.com/mavi-pizzeria/api/internal/cache"
	"github.com/mavi-pizzeria/api/internal/database"
	"github.com/mavi-pizzeria/api/internal/logger"
	"go.uber.org/zap"
)

var (
	errCategoryNotFound    = apperr.NotFound("category not found")
	errProductNotFound     = apperr.NotFound("product not found")
	errIngredientNotFound  = apperr.NotFound("ingredient not found")
	errRuleNotFound        = apperr.NotFound("customization rule not found")
	errProductUnavailable  = apperr.Validation("Product is not available")
	errCategoryHasProducts = apperr.Validation("cannot delete category with products")
)

// --- Response types ---

type categoryResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  *string   `json:"description"`
	ImageURL     *string   `json:"image_url"`
	SortOrder    int32     `json:"sort_order"`
	IsActive     bool      `json:"is_active"`
	ProductCount *int64    `json:"product_count,omitempty"`
}

type productResponse struct {
	ID              uuid.UUID `json:"id"`
	CategoryID      uuid.UUID `json:"category_id"`
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	Description     *string   `json:"description"`
	Price           string    `json:"price"`
	ImageURL        *string   `json:"image_url"`
	IsAvailable     bool      `json:"is_available"`
	IsCustomizable  bool      `json:"is_customizable"`
	PreparationTime int32     `json:"preparation_time"`
	Allergens       []string  `json:"allergens"`
	SortOrder       int32     `json:"sort_order"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ingredientResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Price       string    `json:"price"`
	IsAvailable bool      `json:"is_available"`
}

type customizationResponse struct {
	ID                  uuid.UUID `json:"id"`
	IngredientID        uuid.UUID `json:"ingredient_id"`
	IngredientName      string    `json:"ingredient_name,omitempty"`
	Action              string    `json:"action"`
	Price               string    `json:"price"`
	IsDefault           bool      `json:"is_default"`
	IngredientAvailable *bool     `json:"ingredient_available,omitempty"`
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func money(n pgtype.Numeric) string {
	return database.Decimal(n).StringFixed(2)
}

func toCategoryResponse(c database.Category) categoryResponse {
	return categoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: textPtr(c.Description),
		ImageURL:    textPtr(c.ImageUrl),
		SortOrder:   c.SortOrder,
		IsActive:    c.IsActive,
	}
}

func toCategoryCountResponse(row database.ListCategoriesRow) categoryResponse {
	resp := toCategoryResponse(row.Category)
	count := row.ProductCount
	resp.ProductCount = &count
	return resp
}

func toProductResponse(p database.Product) productResponse {
	allergens := p.Allergens
	if allergens == nil {
		allergens = []string{}
	}
	return productResponse{
		ID:              p.ID,
		CategoryID:      p.CategoryID,
		Name:            p.Name,
		Slug:            p.Slug,
		Description:     textPtr(p.Description),
		Price:           money(p.Price),
		ImageURL:        textPtr(p.ImageUrl),
		IsAvailable:     p.IsAvailable,
		IsCustomizable:  p.IsCustomizable,
		PreparationTime: p.PreparationTime,
		Allergens:       allergens,
		SortOrder:       p.SortOrder,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func toIngredientResponse(i database.Ingredient) ingredientResponse {
	return ingredientResponse{
		ID:          i.ID,
		Name:        i.Name,
		Price:       money(i.Price),
		IsAvailable: i.IsAvailable,
	}
}

func toCustomizationResponse(row database.ListProductCustomizationsRow) customizationResponse {
	available := row.IngredientAvailable
	return customizationResponse{
		ID:                  row.ID,
		IngredientID:        row.IngredientID,
		IngredientName:      row.IngredientName,
		Action:              row.Action,
		Price:               money(row.Price),
		IsDefault:           row.IsDefault,
		IngredientAvailable: &available,
	}
}

// --- Cache helpers ---

// cachedJSON serves key from c or fills it from load. Cache failures are
// logged and never fail the request.
func cachedJSON[T any](ctx context.Context, c cache.Cache, key string, load func(context.Context) (T, error)) (T, error) {
	var v T
	hit, err := c.Get(ctx, key, &v)
	if err != nil {
		logger.Warn(ctx, "menu cache read failed", zap.String("key", key), zap.Error(err))
	} else if hit {
		return v, nil
	}

	v, err = load(ctx)
	if err != nil {
		return v, err
	}
	if err := c.Set(ctx, key, v); err != nil {
		logger.Warn(ctx, "menu cache write failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}

// invalidateMenu drops cached menu responses after a catalog write.
func invalidateMenu(ctx context.Context, c cache.Cache) {
	if err := c.Invalidate(ctx); err != nil {
		logger.Warn(ctx, "menu cache invalidation failed", zap.Error(err))
	}
}
