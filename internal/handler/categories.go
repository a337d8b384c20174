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
	"github.com/mavi-pizzeria/api/internal/middleware"
)

var errSlugTaken = apperr.Conflict("slug already exists")

// CategoryStore defines the database methods needed by category handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CategoryStore interface {
	ListCategories(ctx context.Context, onlyActive bool) ([]database.ListCategoriesRow, error)
	GetCategory(ctx context.Context, id uuid.UUID) (database.Category, error)
	CreateCategory(ctx context.Context, arg database.CreateCategoryParams) (database.Category, error)
	UpdateCategory(ctx context.Context, arg database.UpdateCategoryParams) (database.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) (int64, error)
	CountProductsByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
}

// CategoryHandler handles category CRUD endpoints.
type CategoryHandler struct {
	store CategoryStore
	cache cache.Cache
}

// NewCategoryHandler creates a new CategoryHandler. Writes invalidate c.
func NewCategoryHandler(store CategoryStore, c cache.Cache) *CategoryHandler {
	if c == nil {
		c = cache.Noop{}
	}
	return &CategoryHandler{store: store, cache: c}
}

// RegisterRoutes registers category CRUD endpoints on the given Chi router.
// Expected to be mounted behind RequireAdmin at /admin/categories.
func (h *CategoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.With(middleware.RequireManager).Delete("/{id}", h.Delete)
}

// --- Request types ---

type categoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
	SortOrder   int32  `json:"sort_order" validate:"gte=0"`
	IsActive    *bool  `json:"is_active"`
}

func (req categoryRequest) active() bool {
	return req.IsActive == nil || *req.IsActive
}

// --- Handlers ---

// List returns every category, inactive ones included, with product counts.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListCategories(r.Context(), false)
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	resp := make([]categoryResponse, len(rows))
	for i, row := range rows {
		resp[i] = toCategoryCountResponse(row)
	}
	apperr.WriteData(w, http.StatusOK, resp)
}

// Get returns a single category.
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	category, err := h.store.GetCategory(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apperr.WriteError(w, r, errCategoryNotFound)
			return
		}
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteData(w, http.StatusOK, toCategoryResponse(category))
}

// Create adds a category. The slug is derived from the name.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	category, err := h.store.CreateCategory(r.Context(), database.CreateCategoryParams{
		Name:        req.Name,
		Slug:        slugify(req.Name),
		Description: database.Text(req.Description),
		ImageUrl:    database.Text(req.ImageURL),
		SortOrder:   req.SortOrder,
		IsActive:    req.active(),
	})
	if err != nil {
		if isUniqueViolation(err) {
			apperr.WriteError(w, r, errSlugTaken)
			return
		}
		apperr.WriteError(w, r, err)
		return
	}

	invalidateMenu(r.Context(), h.cache)
	apperr.WriteData(w, http.StatusCreated, toCategoryResponse(category))
}

// Update replaces a category's fields.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	category, err := h.store.UpdateCategory(r.Context(), database.UpdateCategoryParams{
		ID:          id,
		Name:        req.Name,
		Slug:        slugify(req.Name),
		Description: database.Text(req.Description),
		ImageUrl:    database.Text(req.ImageURL),
		SortOrder:   req.SortOrder,
		IsActive:    req.active(),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apperr.WriteError(w, r, errCategoryNotFound)
			return
		}
		if isUniqueViolation(err) {
			apperr.WriteError(w, r, errSlugTaken)
			return
		}
		apperr.WriteError(w, r, err)
		return
	}

	invalidateMenu(r.Context(), h.cache)
	apperr.WriteData(w, http.StatusOK, toCategoryResponse(category))
}

// Delete removes an empty category. Categories that still hold products are
// refused.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	count, err := h.store.CountProductsByCategory(r.Context(), id)
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	if count > 0 {
		apperr.WriteError(w, r, errCategoryHasProducts)
		return
	}

	n, err := h.store.DeleteCategory(r.Context(), id)
	if err != nil {
		if isForeignKeyViolation(err) {
			apperr.WriteError(w, r, errCategoryHasProducts)
			return
		}
		apperr.WriteError(w, r, err)
		return
	}
	if n == 0 {
		apperr.WriteError(w, r, errCategoryNotFound)
		return
	}

	invalidateMenu(r.Context(), h.cache)
	apperr.WriteMessage(w, http.StatusOK, "Category deleted")
}
