package handler_test

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mavi-pizzeria/api/internal/database"
)

// --- Mock catalog store ---

// mockCatalogStore backs the menu, category, product and ingredient handlers.
type mockCatalogStore struct {
	categories  map[uuid.UUID]database.Category
	products    map[uuid.UUID]database.Product
	ingredients map[uuid.UUID]database.Ingredient
	rules       map[uuid.UUID]database.ProductCustomization
	ordered     map[uuid.UUID]bool // products referenced by order items
	calls       map[string]int
}

func newMockCatalogStore() *mockCatalogStore {
	return &mockCatalogStore{
		categories:  make(map[uuid.UUID]database.Category),
		products:    make(map[uuid.UUID]database.Product),
		ingredients: make(map[uuid.UUID]database.Ingredient),
		rules:       make(map[uuid.UUID]database.ProductCustomization),
		ordered:     make(map[uuid.UUID]bool),
		calls:       make(map[string]int),
	}
}

func (m *mockCatalogStore) addCategory(name string, active bool) database.Category {
	c := database.Category{ID: uuid.New(), Name: name, Slug: strings.ToLower(name), IsActive: active}
	m.categories[c.ID] = c
	return c
}

func (m *mockCatalogStore) addProduct(categoryID uuid.UUID, name, price string, available bool) database.Product {
	p := database.Product{
		ID:          uuid.New(),
		CategoryID:  categoryID,
		Name:        name,
		Slug:        strings.ToLower(name),
		Price:       numeric(price),
		IsAvailable: available,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.products[p.ID] = p
	return p
}

func (m *mockCatalogStore) addIngredient(name, price string, available bool) database.Ingredient {
	i := database.Ingredient{ID: uuid.New(), Name: name, Price: numeric(price), IsAvailable: available}
	m.ingredients[i.ID] = i
	return i
}

func (m *mockCatalogStore) addRule(productID, ingredientID uuid.UUID, action, price string, isDefault bool) database.ProductCustomization {
	r := database.ProductCustomization{
		ID:           uuid.New(),
		ProductID:    productID,
		IngredientID: ingredientID,
		Action:       action,
		Price:        numeric(price),
		IsDefault:    isDefault,
	}
	m.rules[r.ID] = r
	return r
}

func (m *mockCatalogStore) slugTaken(slug string, except uuid.UUID) bool {
	for _, p := range m.products {
		if p.Slug == slug && p.ID != except {
			return true
		}
	}
	return false
}

// Categories

func (m *mockCatalogStore) ListCategories(_ context.Context, onlyActive bool) ([]database.ListCategoriesRow, error) {
	m.calls["ListCategories"]++
	var rows []database.ListCategoriesRow
	for _, c := range m.categories {
		if onlyActive && !c.IsActive {
			continue
		}
		var count int64
		for _, p := range m.products {
			if p.CategoryID == c.ID && (!onlyActive || p.IsAvailable) {
				count++
			}
		}
		rows = append(rows, database.ListCategoriesRow{Category: c, ProductCount: count})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows, nil
}

func (m *mockCatalogStore) GetCategory(_ context.Context, id uuid.UUID) (database.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return database.Category{}, pgx.ErrNoRows
	}
	return c, nil
}

func (m *mockCatalogStore) CreateCategory(_ context.Context, arg database.CreateCategoryParams) (database.Category, error) {
	for _, c := range m.categories {
		if c.Slug == arg.Slug {
			return database.Category{}, &pgconn.PgError{Code: "23505"}
		}
	}
	c := database.Category{
		ID:          uuid.New(),
		Name:        arg.Name,
		Slug:        arg.Slug,
		Description: arg.Description,
		ImageUrl:    arg.ImageUrl,
		SortOrder:   arg.SortOrder,
		IsActive:    arg.IsActive,
	}
	m.categories[c.ID] = c
	return c, nil
}

func (m *mockCatalogStore) UpdateCategory(_ context.Context, arg database.UpdateCategoryParams) (database.Category, error) {
	c, ok := m.categories[arg.ID]
	if !ok {
		return database.Category{}, pgx.ErrNoRows
	}
	c.Name, c.Slug, c.Description, c.ImageUrl = arg.Name, arg.Slug, arg.Description, arg.ImageUrl
	c.SortOrder, c.IsActive = arg.SortOrder, arg.IsActive
	m.categories[c.ID] = c
	return c, nil
}

func (m *mockCatalogStore) DeleteCategory(_ context.Context, id uuid.UUID) (int64, error) {
	if _, ok := m.categories[id]; !ok {
		return 0, nil
	}
	delete(m.categories, id)
	return 1, nil
}

func (m *mockCatalogStore) CountProductsByCategory(_ context.Context, categoryID uuid.UUID) (int64, error) {
	var n int64
	for _, p := range m.products {
		if p.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

// Products

func (m *mockCatalogStore) filterProducts(categoryID *uuid.UUID, search string, onlyAvailable bool) []database.Product {
	var out []database.Product
	for _, p := range m.products {
		if categoryID != nil && p.CategoryID != *categoryID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(search)) {
			continue
		}
		if onlyAvailable && !p.IsAvailable {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *mockCatalogStore) ListProducts(_ context.Context, arg database.ListProductsParams) ([]database.Product, error) {
	m.calls["ListProducts"]++
	var cat *uuid.UUID
	if arg.CategoryID.Valid {
		id := uuid.UUID(arg.CategoryID.Bytes)
		cat = &id
	}
	all := m.filterProducts(cat, arg.Search.String, arg.OnlyAvailable)
	start := min(int(arg.Offset), len(all))
	end := min(start+int(arg.Limit), len(all))
	return all[start:end], nil
}

func (m *mockCatalogStore) CountProducts(_ context.Context, arg database.CountProductsParams) (int64, error) {
	var cat *uuid.UUID
	if arg.CategoryID.Valid {
		id := uuid.UUID(arg.CategoryID.Bytes)
		cat = &id
	}
	return int64(len(m.filterProducts(cat, arg.Search.String, arg.OnlyAvailable))), nil
}

func (m *mockCatalogStore) GetProduct(_ context.Context, id uuid.UUID) (database.Product, error) {
	m.calls["GetProduct"]++
	p, ok := m.products[id]
	if !ok {
		return database.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockCatalogStore) CreateProduct(_ context.Context, arg database.CreateProductParams) (database.Product, error) {
	if _, ok := m.categories[arg.CategoryID]; !ok {
		return database.Product{}, &pgconn.PgError{Code: "23503", ConstraintName: "products_category_id_fkey"}
	}
	if m.slugTaken(arg.Slug, uuid.Nil) {
		return database.Product{}, &pgconn.PgError{Code: "23505", ConstraintName: "products_slug_key"}
	}
	p := database.Product{
		ID:              uuid.New(),
		CategoryID:      arg.CategoryID,
		Name:            arg.Name,
		Slug:            arg.Slug,
		Description:     arg.Description,
		Price:           arg.Price,
		ImageUrl:        arg.ImageUrl,
		IsAvailable:     arg.IsAvailable,
		IsCustomizable:  arg.IsCustomizable,
		PreparationTime: arg.PreparationTime,
		Allergens:       arg.Allergens,
		SortOrder:       arg.SortOrder,
	}
	m.products[p.ID] = p
	return p, nil
}

func (m *mockCatalogStore) UpdateProduct(_ context.Context, arg database.UpdateProductParams) (database.Product, error) {
	p, ok := m.products[arg.ID]
	if !ok {
		return database.Product{}, pgx.ErrNoRows
	}
	if _, ok := m.categories[arg.CategoryID]; !ok {
		return database.Product{}, &pgconn.PgError{Code: "23503", ConstraintName: "products_category_id_fkey"}
	}
	if m.slugTaken(arg.Slug, arg.ID) {
		return database.Product{}, &pgconn.PgError{Code: "23505", ConstraintName: "products_slug_key"}
	}
	p.CategoryID, p.Name, p.Slug, p.Description = arg.CategoryID, arg.Name, arg.Slug, arg.Description
	p.Price, p.ImageUrl, p.IsAvailable, p.IsCustomizable = arg.Price, arg.ImageUrl, arg.IsAvailable, arg.IsCustomizable
	p.PreparationTime, p.Allergens, p.SortOrder = arg.PreparationTime, arg.Allergens, arg.SortOrder
	m.products[p.ID] = p
	return p, nil
}

func (m *mockCatalogStore) DeleteProduct(_ context.Context, id uuid.UUID) (int64, error) {
	if m.ordered[id] {
		return 0, &pgconn.PgError{Code: "23503", ConstraintName: "order_items_product_id_fkey"}
	}
	if _, ok := m.products[id]; !ok {
		return 0, nil
	}
	delete(m.products, id)
	return 1, nil
}

// Customization rules

func (m *mockCatalogStore) ListProductCustomizations(_ context.Context, productID uuid.UUID) ([]database.ListProductCustomizationsRow, error) {
	var rows []database.ListProductCustomizationsRow
	for _, r := range m.rules {
		if r.ProductID != productID {
			continue
		}
		ing := m.ingredients[r.IngredientID]
		rows = append(rows, database.ListProductCustomizationsRow{
			ID:                  r.ID,
			ProductID:           r.ProductID,
			IngredientID:        r.IngredientID,
			IngredientName:      ing.Name,
			Action:              r.Action,
			Price:               r.Price,
			IsDefault:           r.IsDefault,
			IngredientAvailable: ing.IsAvailable,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Action != rows[j].Action {
			return rows[i].Action < rows[j].Action
		}
		return rows[i].IngredientName < rows[j].IngredientName
	})
	return rows, nil
}

func (m *mockCatalogStore) CreateProductCustomization(_ context.Context, arg database.CreateProductCustomizationParams) (database.ProductCustomization, error) {
	if _, ok := m.products[arg.ProductID]; !ok {
		return database.ProductCustomization{}, &pgconn.PgError{Code: "23503", ConstraintName: "product_customizations_product_id_fkey"}
	}
	if _, ok := m.ingredients[arg.IngredientID]; !ok {
		return database.ProductCustomization{}, &pgconn.PgError{Code: "23503", ConstraintName: "product_customizations_ingredient_id_fkey"}
	}
	for _, r := range m.rules {
		if r.ProductID == arg.ProductID && r.IngredientID == arg.IngredientID && r.Action == arg.Action {
			return database.ProductCustomization{}, &pgconn.PgError{Code: "23505", ConstraintName: "product_customizations_rule_key"}
		}
	}
	return m.addRule(arg.ProductID, arg.IngredientID, arg.Action, database.Decimal(arg.Price).String(), arg.IsDefault), nil
}

func (m *mockCatalogStore) DeleteProductCustomization(_ context.Context, arg database.DeleteProductCustomizationParams) (int64, error) {
	r, ok := m.rules[arg.ID]
	if !ok || r.ProductID != arg.ProductID {
		return 0, nil
	}
	delete(m.rules, arg.ID)
	return 1, nil
}

// Ingredients

func (m *mockCatalogStore) ListIngredients(_ context.Context, onlyAvailable bool) ([]database.Ingredient, error) {
	var out []database.Ingredient
	for _, i := range m.ingredients {
		if onlyAvailable && !i.IsAvailable {
			continue
		}
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out, nil
}

func (m *mockCatalogStore) GetIngredient(_ context.Context, id uuid.UUID) (database.Ingredient, error) {
	i, ok := m.ingredients[id]
	if !ok {
		return database.Ingredient{}, pgx.ErrNoRows
	}
	return i, nil
}

func (m *mockCatalogStore) CreateIngredient(_ context.Context, arg database.CreateIngredientParams) (database.Ingredient, error) {
	for _, i := range m.ingredients {
		if i.Name == arg.Name {
			return database.Ingredient{}, &pgconn.PgError{Code: "23505", ConstraintName: "ingredients_name_key"}
		}
	}
	i := database.Ingredient{ID: uuid.New(), Name: arg.Name, Price: arg.Price, IsAvailable: arg.IsAvailable}
	m.ingredients[i.ID] = i
	return i, nil
}

func (m *mockCatalogStore) UpdateIngredient(_ context.Context, arg database.UpdateIngredientParams) (database.Ingredient, error) {
	i, ok := m.ingredients[arg.ID]
	if !ok {
		return database.Ingredient{}, pgx.ErrNoRows
	}
	i.Name, i.Price, i.IsAvailable = arg.Name, arg.Price, arg.IsAvailable
	m.ingredients[i.ID] = i
	return i, nil
}

// --- Fake cache ---

// memCache is an in-memory cache.Cache holding JSON, like the Redis one.
type memCache struct {
	entries     map[string][]byte
	invalidated int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string, dest any) (bool, error) {
	data, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *memCache) Set(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = data
	return nil
}

func (c *memCache) Invalidate(context.Context) error {
	c.entries = make(map[string][]byte)
	c.invalidated++
	return nil
}
