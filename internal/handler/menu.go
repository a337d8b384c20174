package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mavi-pizzeria/api/internal/apperr"
	"github.com/mavi-pizzeria/api/internal/cache"
	"github.com/mavi-pizzeria/api/internal/database"
)

// menuProductLimit caps the products loaded for the full menu view.
const menuProductLimit = 500

// MenuStore defines the database methods needed by the public menu.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListCategories(ctx context.Context, onlyActive bool) ([]database.ListCategoriesRow, error)
	ListProducts(ctx context.Context, arg database.ListProductsParams) ([]database.Product, error)
	CountProducts(ctx context.Context, arg database.CountProductsParams) (int64, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	ListProductCustomizations(ctx context.Context, productID uuid.UUID) ([]database.ListProductCustomizationsRow, error)
	ListIngredients(ctx context.Context, onlyAvailable bool) ([]database.Ingredient, error)
}

// MenuHandler serves the public, read-only catalog.
type MenuHandler struct {
	store MenuStore
	cache cache.Cache
}

// NewMenuHandler creates a new MenuHandler. A nil cache disables caching.
func NewMenuHandler(store MenuStore, c cache.Cache) *MenuHandler {
	if c == nil {
		c = cache.Noop{}
	}
	return &MenuHandler{store: store, cache: c}
}

// RegisterRoutes registers public menu endpoints; mount at /menu.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Menu)
	r.Get("/categories", h.Categories)
	r.Get("/products", h.Products)
	r.Get("/products/{id}", h.Product)
	r.Get("/ingredients", h.Ingredients)
}

// --- Response types ---

type menuCategory struct {
	categoryResponse
	Products []productResponse `json:"products"`
}

type productListResponse struct {
	Products   []productResponse `json:"products"`
	Pagination pagination        `json:"pagination"`
}

type productDetailResponse struct {
	productResponse
	DefaultIngredients []customizationResponse `json:"default_ingredients"`
	Customizations     []customizationResponse `json:"customizations"`
}

// --- Handlers ---

// Menu returns active categories, each with its available products.
func (h *MenuHandler) Menu(w http.ResponseWriter, r *http.Request) {
	menu, err := cachedJSON(r.Context(), h.cache, "full", h.loadMenu)
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteData(w, http.StatusOK, menu)
}

func (h *MenuHandler) loadMenu(ctx context.Context) ([]menuCategory, error) {
	categories, err := h.store.ListCategories(ctx, true)
	if err != nil {
		return nil, err
	}
	products, err := h.store.ListProducts(ctx, database.ListProductsParams{
		OnlyAvailable: true,
		Limit:         menuProductLimit,
	})
	if err != nil {
		return nil, err
	}

	byCategory := make(map[uuid.UUID][]productResponse, len(categories))
	for _, p := range products {
		byCategory[p.CategoryID] = append(byCategory[p.CategoryID], toProductResponse(p))
	}

	menu := make([]menuCategory, len(categories))
	for i, c := range categories {
		items := byCategory[c.ID]
		if items == nil {
			items = []productResponse{}
		}
		menu[i] = menuCategory{categoryResponse: toCategoryResponse(c.Category), Products: items}
	}
	return menu, nil
}

// Categories returns active categories with their available product count.
func (h *MenuHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := cachedJSON(r.Context(), h.cache, "categories", func(ctx context.Context) ([]categoryResponse, error) {
		rows, err := h.store.ListCategories(ctx, true)
		if err != nil {
			return nil, err
		}
		resp := make([]categoryResponse, len(rows))
		for i, row := range rows {
			resp[i] = toCategoryCountResponse(row)
		}
		return resp, nil
	})
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteData(w, http.StatusOK, categories)
}

// Products lists available products, filtered by ?category_id and ?search.
func (h *MenuHandler) Products(w http.ResponseWriter, r *http.Request) {
	var categoryID pgtype.UUID
	if v := r.URL.Query().Get("category_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			apperr.WriteError(w, r, apperr.Validation("invalid category_id"))
			return
		}
		categoryID = pgtype.UUID{Bytes: id, Valid: true}
	}
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	p := parsePage(r)

	key := fmt.Sprintf("products:%s:%s:%d:%d", r.URL.Query().Get("category_id"), strings.ToLower(search), p.Page, p.Limit)
	resp, err := cachedJSON(r.Context(), h.cache, key, func(ctx context.Context) (productListResponse, error) {
		products, err := h.store.ListProducts(ctx, database.ListProductsParams{
			CategoryID:    categoryID,
			Search:        database.Text(search),
			OnlyAvailable: true,
			Limit:         p.Limit,
			Offset:        p.Offset(),
		})
		if err != nil {
			return productListResponse{}, err
		}
		total, err := h.store.CountProducts(ctx, database.CountProductsParams{
			CategoryID:    categoryID,
			Search:        database.Text(search),
			OnlyAvailable: true,
		})
		if err != nil {
			return productListResponse{}, err
		}

		out := productListResponse{
			Products:   make([]productResponse, len(products)),
			Pagination: p.Result(total),
		}
		for i, prod := range products {
			out.Products[i] = toProductResponse(prod)
		}
		return out, nil
	})
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteData(w, http.StatusOK, resp)
}

// Product returns one available product with its customization rules.
func (h *MenuHandler) Product(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	resp, err := cachedJSON(r.Context(), h.cache, "product:"+id.String(), func(ctx context.Context) (productDetailResponse, error) {
		product, err := h.store.GetProduct(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return productDetailResponse{}, errProductNotFound
			}
			return productDetailResponse{}, err
		}
		if !product.IsAvailable {
			return productDetailResponse{}, errProductUnavailable
		}

		rules, err := h.store.ListProductCustomizations(ctx, id)
		if err != nil {
			return productDetailResponse{}, err
		}
		out := productDetailResponse{
			productResponse:    toProductResponse(product),
			DefaultIngredients: []customizationResponse{},
			Customizations:     []customizationResponse{},
		}
		for _, rule := range rules {
			c := toCustomizationResponse(rule)
			if rule.IsDefault {
				out.DefaultIngredients = append(out.DefaultIngredients, c)
			}
			if rule.IngredientAvailable {
				out.Customizations = append(out.Customizations, c)
			}
		}
		return out, nil
	})
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteData(w, http.StatusOK, resp)
}

// Ingredients returns available ingredients.
func (h *MenuHandler) Ingredients(w http.ResponseWriter, r *http.Request) {
	resp, err := cachedJSON(r.Context(), h.cache, "ingredients", func(ctx context.Context) ([]ingredientResponse, error) {
		ingredients, err := h.store.ListIngredients(ctx, true)
		if err != nil {
			return nil, err
		}
		out := make([]ingredientResponse, len(ingredients))
		for i, ing := range ingredients {
			out[i] = toIngredientResponse(ing)
		}
		return out, nil
	})
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteData(w, http.StatusOK, resp)
}
