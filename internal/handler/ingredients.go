package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mavi-pizzeria/api/internal/apperr"
	"github.com/mavi-pizzeria/api/internal/cache"
	"github.com/mavi-pizzeria/api/internal/database"
)

var errIngredientExists = apperr.Conflict("ingredient already exists")

// IngredientStore defines the database methods needed by ingredient handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type IngredientStore interface {
	ListIngredients(ctx context.Context, onlyAvailable bool) ([]database.Ingredient, error)
	GetIngredient(ctx context.Context, id uuid.UUID) (database.Ingredient, error)
	CreateIngredient(ctx context.Context, arg database.CreateIngredientParams) (database.Ingredient, error)
	UpdateIngredient(ctx context.Context, arg database.UpdateIngredientParams) (database.Ingredient, error)
}

// IngredientHandler handles ingredient endpoints.
type IngredientHandler struct {
	store IngredientStore
	cache cache.Cache
}

// NewIngredientHandler creates a new IngredientHandler. Writes invalidate c.
func NewIngredientHandler(store IngredientStore, c cache.Cache) *IngredientHandler {
	if c == nil {
		c = cache.Noop{}
	}
	return &IngredientHandler{store: store, cache: c}
}

// RegisterRoutes registers ingredient endpoints on the given Chi router.
// Expected to be mounted behind RequireAdmin at /admin/ingredients.
func (h *IngredientHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
}

type ingredientRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Price       string `json:"price" validate:"required"`
	IsAvailable *bool  `json:"is_available"`
}

// List returns all ingredients, unavailable ones included.
func (h *IngredientHandler) List(w http.ResponseWriter, r *http.Request) {
	ingredients, err := h.store.ListIngredients(r.Context(), false)
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	resp := make([]ingredientResponse, len(ingredients))
	for i, ing := range ingredients {
		resp[i] = toIngredientResponse(ing)
	}
	apperr.WriteData(w, http.StatusOK, resp)
}

func (h *IngredientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	ing, err := h.store.GetIngredient(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apperr.WriteError(w, r, errIngredientNotFound)
			return
		}
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteData(w, http.StatusOK, toIngredientResponse(ing))
}

func (h *IngredientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ingredientRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	price, err := parseMoney(req.Price)
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	ing, err := h.store.CreateIngredient(r.Context(), database.CreateIngredientParams{
		Name:        req.Name,
		Price:       database.Numeric(price),
		IsAvailable: req.IsAvailable == nil || *req.IsAvailable,
	})
	if err != nil {
		if isUniqueViolation(err) {
			apperr.WriteError(w, r, errIngredientExists)
			return
		}
		apperr.WriteError(w, r, err)
		return
	}

	invalidateMenu(r.Context(), h.cache)
	apperr.WriteData(w, http.StatusCreated, toIngredientResponse(ing))
}

// Update replaces an ingredient. Marking it unavailable hides it from the
// public menu.
func (h *IngredientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	var req ingredientRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	price, err := parseMoney(req.Price)
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	ing, err := h.store.UpdateIngredient(r.Context(), database.UpdateIngredientParams{
		ID:          id,
		Name:        req.Name,
		Price:       database.Numeric(price),
		IsAvailable: req.IsAvailable == nil || *req.IsAvailable,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apperr.WriteError(w, r, errIngredientNotFound)
			return
		}
		if isUniqueViolation(err) {
			apperr.WriteError(w, r, errIngredientExists)
			return
		}
		apperr.WriteError(w, r, err)
		return
	}

	invalidateMenu(r.Context(), h.cache)
	apperr.WriteData(w, http.StatusOK, toIngredientResponse(ing))
}
