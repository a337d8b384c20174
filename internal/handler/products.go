package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mavi-pizzeria/api/internal/apperr"
	"github.com/mavi-pizzeria/api/internal/cache"
	"github.com/mavi-pizzeria/api/internal/database"
	"github.com/mavi-pizzeria/api/internal/enum"
	"github.com/mavi-pizzeria/api/internal/middleware"
)

var (
	errUnknownCategory   = apperr.Validation("category does not exist")
	errUnknownIngredient = apperr.Validation("ingredient does not exist")
	errProductHasOrders  = apperr.Conflict("product has orders, mark it unavailable instead")
	errRuleExists        = apperr.Conflict("customization rule already exists")
)

// ProductStore defines the database methods needed by product handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ProductStore interface {
	ListProducts(ctx context.Context, arg database.ListProductsParams) ([]database.Product, error)
	CountProducts(ctx context.Context, arg database.CountProductsParams) (int64, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) (int64, error)
	ListProductCustomizations(ctx context.Context, productID uuid.UUID) ([]database.ListProductCustomizationsRow, error)
	CreateProductCustomization(ctx context.Context, arg database.CreateProductCustomizationParams) (database.ProductCustomization, error)
	DeleteProductCustomization(ctx context.Context, arg database.DeleteProductCustomizationParams) (int64, error)
}

// ProductHandler handles product CRUD and customization rule endpoints.
type ProductHandler struct {
	store ProductStore
	cache cache.Cache
}

// NewProductHandler creates a new ProductHandler. Writes invalidate c.
func NewProductHandler(store ProductStore, c cache.Cache) *ProductHandler {
	if c == nil {
		c = cache.Noop{}
	}
	return &ProductHandler{store: store, cache: c}
}

// RegisterRoutes registers product endpoints on the given Chi router.
// Expected to be mounted behind RequireAdmin at /admin/products.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.With(middleware.RequireManager).Delete("/", h.Delete)
		r.Get("/customizations", h.ListRules)
		r.Post("/customizations", h.AddRule)
		r.Delete("/customizations/{ruleId}", h.RemoveRule)
	})
}

// --- Request / Response types ---

type productRequest struct {
	CategoryID      string   `json:"category_id" validate:"required,uuid"`
	Name            string   `json:"name" validate:"required,max=150"`
	Description     string   `json:"description" validate:"max=1000"`
	Price           string   `json:"price" validate:"required"`
	ImageURL        string   `json:"image_url" validate:"omitempty,url"`
	IsAvailable     *bool    `json:"is_available"`
	IsCustomizable  bool     `json:"is_customizable"`
	PreparationTime int32    `json:"preparation_time" validate:"gte=0,lte=240"`
	Allergens       []string `json:"allergens" validate:"dive,required,max=50"`
	SortOrder       int32    `json:"sort_order" validate:"gte=0"`
}

type ruleRequest struct {
	IngredientID string `json:"ingredient_id" validate:"required,uuid"`
	Action       string `json:"action" validate:"required,oneof=ADD REMOVE EXTRA"`
	Price        string `json:"price"`
	IsDefault    bool   `json:"is_default"`
}

type adminProductResponse struct {
	productResponse
	Customizations []customizationResponse `json:"customizations"`
}

// productFields is a validated productRequest ready for the store.
type productFields struct {
	categoryID uuid.UUID
	price      pgtype.Numeric
	available  bool
	allergens  []string
}

func (req productRequest) fields() (productFields, error) {
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		return productFields{}, errInvalidID
	}
	price, err := parseMoney(req.Price)
	if err != nil {
		return productFields{}, err
	}
	allergens := req.Allergens
	if allergens == nil {
		allergens = []string{}
	}
	return productFields{
		categoryID: categoryID,
		price:      database.Numeric(price),
		available:  req.IsAvailable == nil || *req.IsAvailable,
		allergens:  allergens,
	}, nil
}

// --- Product handlers ---

// List returns products regardless of availability, filtered by
// ?category_id and ?search.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	var categoryID pgtype.UUID
	if v := r.URL.Query().Get("category_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			apperr.WriteError(w, r, apperr.Validation("invalid category_id"))
			return
		}
		categoryID = pgtype.UUID{Bytes: id, Valid: true}
	}
	search := database.Text(strings.TrimSpace(r.URL.Query().Get("search")))
	p := parsePage(r)

	products, err := h.store.ListProducts(r.Context(), database.ListProductsParams{
		CategoryID: categoryID,
		Search:     search,
		Limit:      p.Limit,
		Offset:     p.Offset(),
	})
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	total, err := h.store.CountProducts(r.Context(), database.CountProductsParams{
		CategoryID: categoryID,
		Search:     search,
	})
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	resp := productListResponse{
		Products:   make([]productResponse, len(products)),
		Pagination: p.Result(total),
	}
	for i, prod := range products {
		resp.Products[i] = toProductResponse(prod)
	}
	apperr.WriteData(w, http.StatusOK, resp)
}

// Get returns a product with all of its customization rules.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apperr.WriteError(w, r, errProductNotFound)
			return
		}
		apperr.WriteError(w, r, err)
		return
	}
	rules, err := h.listRules(r.Context(), id)
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteData(w, http.StatusOK, adminProductResponse{
		productResponse: toProductResponse(product),
		Customizations:  rules,
	})
}

// Create adds a product. The slug is derived from the name.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	f, err := req.fields()
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	product, err := h.store.CreateProduct(r.Context(), database.CreateProductParams{
		CategoryID:      f.categoryID,
		Name:            req.Name,
		Slug:            slugify(req.Name),
		Description:     database.Text(req.Description),
		Price:           f.price,
		ImageUrl:        database.Text(req.ImageURL),
		IsAvailable:     f.available,
		IsCustomizable:  req.IsCustomizable,
		PreparationTime: req.PreparationTime,
		Allergens:       f.allergens,
		SortOrder:       req.SortOrder,
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	invalidateMenu(r.Context(), h.cache)
	apperr.WriteData(w, http.StatusCreated, toProductResponse(product))
}

// Update replaces a product's fields.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	f, err := req.fields()
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	product, err := h.store.UpdateProduct(r.Context(), database.UpdateProductParams{
		ID:              id,
		CategoryID:      f.categoryID,
		Name:            req.Name,
		Slug:            slugify(req.Name),
		Description:     database.Text(req.Description),
		Price:           f.price,
		ImageUrl:        database.Text(req.ImageURL),
		IsAvailable:     f.available,
		IsCustomizable:  req.IsCustomizable,
		PreparationTime: req.PreparationTime,
		Allergens:       f.allergens,
		SortOrder:       req.SortOrder,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apperr.WriteError(w, r, errProductNotFound)
			return
		}
		h.writeStoreError(w, r, err)
		return
	}

	invalidateMenu(r.Context(), h.cache)
	apperr.WriteData(w, http.StatusOK, toProductResponse(product))
}

// Delete removes a product that was never ordered.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	n, err := h.store.DeleteProduct(r.Context(), id)
	if err != nil {
		if isForeignKeyViolation(err) {
			apperr.WriteError(w, r, errProductHasOrders)
			return
		}
		apperr.WriteError(w, r, err)
		return
	}
	if n == 0 {
		apperr.WriteError(w, r, errProductNotFound)
		return
	}

	invalidateMenu(r.Context(), h.cache)
	apperr.WriteMessage(w, http.StatusOK, "Product deleted")
}

// --- Customization rule handlers ---

// ListRules returns the product's customization rules.
func (h *ProductHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	rules, err := h.listRules(r.Context(), id)
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteData(w, http.StatusOK, rules)
}

// AddRule allows one (ingredient, action) pair on the product.
func (h *ProductHandler) AddRule(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "id")
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	var req ruleRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	ingredientID, err := uuid.Parse(req.IngredientID)
	if err != nil {
		apperr.WriteError(w, r, errInvalidID)
		return
	}
	price := "0"
	if req.Price != "" {
		price = req.Price
	}
	amount, err := parseMoney(price)
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	if req.Action == enum.CustomizationRemove && !amount.IsZero() {
		apperr.WriteError(w, r, apperr.Validation("REMOVE rules cannot carry a price"))
		return
	}

	rule, err := h.store.CreateProductCustomization(r.Context(), database.CreateProductCustomizationParams{
		ProductID:    productID,
		IngredientID: ingredientID,
		Action:       req.Action,
		Price:        database.Numeric(amount),
		IsDefault:    req.IsDefault,
	})
	if err != nil {
		if isUniqueViolation(err) {
			apperr.WriteError(w, r, errRuleExists)
			return
		}
		if isForeignKeyViolation(err) {
			apperr.WriteError(w, r, ruleReferenceError(err))
			return
		}
		apperr.WriteError(w, r, err)
		return
	}

	invalidateMenu(r.Context(), h.cache)
	apperr.WriteData(w, http.StatusCreated, customizationResponse{
		ID:           rule.ID,
		IngredientID: rule.IngredientID,
		Action:       rule.Action,
		Price:        money(rule.Price),
		IsDefault:    rule.IsDefault,
	})
}

// RemoveRule deletes one customization rule from the product.
func (h *ProductHandler) RemoveRule(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "id")
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	ruleID, err := uuidParam(r, "ruleId")
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	n, err := h.store.DeleteProductCustomization(r.Context(), database.DeleteProductCustomizationParams{
		ID:        ruleID,
		ProductID: productID,
	})
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	if n == 0 {
		apperr.WriteError(w, r, errRuleNotFound)
		return
	}

	invalidateMenu(r.Context(), h.cache)
	apperr.WriteMessage(w, http.StatusOK, "Customization rule removed")
}

// --- Helpers ---

func (h *ProductHandler) listRules(ctx context.Context, productID uuid.UUID) ([]customizationResponse, error) {
	rows, err := h.store.ListProductCustomizations(ctx, productID)
	if err != nil {
		return nil, err
	}
	rules := make([]customizationResponse, len(rows))
	for i, row := range rows {
		rules[i] = toCustomizationResponse(row)
	}
	return rules, nil
}

func (h *ProductHandler) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case isUniqueViolation(err):
		apperr.WriteError(w, r, errSlugTaken)
	case isForeignKeyViolation(err):
		apperr.WriteError(w, r, errUnknownCategory)
	default:
		apperr.WriteError(w, r, err)
	}
}

// ruleReferenceError names the missing side of a rule's foreign keys.
func ruleReferenceError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.Contains(pgErr.ConstraintName, "product_id") {
		return errProductNotFound
	}
	return errUnknownIngredient
}
