package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// --- Categories ---

const categoryColumns = `id, name, slug, description, image_url, sort_order, is_active, created_at, updated_at`

func scanCategory(row rowScanner) (Category, error) {
	var i Category
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Slug,
		&i.Description,
		&i.ImageUrl,
		&i.SortOrder,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listCategories = `-- name: ListCategories :many
SELECT c.id, c.name, c.slug, c.description, c.image_url, c.sort_order, c.is_active, c.created_at, c.updated_at,
       (SELECT count(*) FROM products p
         WHERE p.category_id = c.id AND (NOT $1::boolean OR p.is_available)) AS product_count
FROM categories c
WHERE NOT $1::boolean OR c.is_active
ORDER BY c.sort_order, c.name
`

type ListCategoriesRow struct {
	Category
	ProductCount int64 `json:"product_count"`
}

// ListCategories returns categories with their product count. When onlyActive
// is set, inactive categories and unavailable products are excluded.
func (q *Queries) ListCategories(ctx context.Context, onlyActive bool) ([]ListCategoriesRow, error) {
	rows, err := q.db.Query(ctx, listCategories, onlyActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListCategoriesRow{}
	for rows.Next() {
		var i ListCategoriesRow
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Slug,
			&i.Description,
			&i.ImageUrl,
			&i.SortOrder,
			&i.IsActive,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.ProductCount,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getCategory = `-- name: GetCategory :one
SELECT ` + categoryColumns + ` FROM categories WHERE id = $1
`

func (q *Queries) GetCategory(ctx context.Context, id uuid.UUID) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, getCategory, id))
}

const createCategory = `-- name: CreateCategory :one
INSERT INTO categories (name, slug, description, image_url, sort_order, is_active)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + categoryColumns

type CreateCategoryParams struct {
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Description pgtype.Text `json:"description"`
	ImageUrl    pgtype.Text `json:"image_url"`
	SortOrder   int32       `json:"sort_order"`
	IsActive    bool        `json:"is_active"`
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, createCategory,
		arg.Name,
		arg.Slug,
		arg.Description,
		arg.ImageUrl,
		arg.SortOrder,
		arg.IsActive,
	)
	return scanCategory(row)
}

const updateCategory = `-- name: UpdateCategory :one
UPDATE categories
SET name = $2, slug = $3, description = $4, image_url = $5, sort_order = $6, is_active = $7, updated_at = now()
WHERE id = $1
RETURNING ` + categoryColumns

type UpdateCategoryParams struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Description pgtype.Text `json:"description"`
	ImageUrl    pgtype.Text `json:"image_url"`
	SortOrder   int32       `json:"sort_order"`
	IsActive    bool        `json:"is_active"`
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, updateCategory,
		arg.ID,
		arg.Name,
		arg.Slug,
		arg.Description,
		arg.ImageUrl,
		arg.SortOrder,
		arg.IsActive,
	)
	return scanCategory(row)
}

const deleteCategory = `-- name: DeleteCategory :execrows
DELETE FROM categories WHERE id = $1
`

func (q *Queries) DeleteCategory(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteCategory, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const countProductsByCategory = `-- name: CountProductsByCategory :one
SELECT count(*) FROM products WHERE category_id = $1
`

func (q *Queries) CountProductsByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countProductsByCategory, categoryID).Scan(&count)
	return count, err
}

// --- Products ---

const productColumns = `id, category_id, name, slug, description, price, image_url, is_available, is_customizable, preparation_time, allergens, sort_order, created_at, updated_at`

func scanProduct(row rowScanner) (Product, error) {
	var i Product
	err := row.Scan(
		&i.ID,
		&i.CategoryID,
		&i.Name,
		&i.Slug,
		&i.Description,
		&i.Price,
		&i.ImageUrl,
		&i.IsAvailable,
		&i.IsCustomizable,
		&i.PreparationTime,
		&i.Allergens,
		&i.SortOrder,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const productFilter = `
WHERE ($1::uuid IS NULL OR category_id = $1)
  AND ($2::text IS NULL OR name ILIKE '%' || $2 || '%' OR description ILIKE '%' || $2 || '%')
  AND (NOT $3::boolean OR is_available)`

const listProducts = `-- name: ListProducts :many
SELECT ` + productColumns + ` FROM products` + productFilter + `
ORDER BY sort_order, name
LIMIT $4 OFFSET $5
`

type ListProductsParams struct {
	CategoryID    pgtype.UUID `json:"category_id"`
	Search        pgtype.Text `json:"search"`
	OnlyAvailable bool        `json:"only_available"`
	Limit         int32       `json:"limit"`
	Offset        int32       `json:"offset"`
}

func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts,
		arg.CategoryID,
		arg.Search,
		arg.OnlyAvailable,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Product{}
	for rows.Next() {
		i, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countProducts = `-- name: CountProducts :one
SELECT count(*) FROM products` + productFilter

type CountProductsParams struct {
	CategoryID    pgtype.UUID `json:"category_id"`
	Search        pgtype.Text `json:"search"`
	OnlyAvailable bool        `json:"only_available"`
}

func (q *Queries) CountProducts(ctx context.Context, arg CountProductsParams) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countProducts, arg.CategoryID, arg.Search, arg.OnlyAvailable).Scan(&count)
	return count, err
}

const getProduct = `-- name: GetProduct :one
SELECT ` + productColumns + ` FROM products WHERE id = $1
`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, id))
}

const getProductForOrder = `-- name: GetProductForOrder :one
SELECT p.id, p.name, p.price, p.is_available, p.is_customizable, c.is_active AS category_active
FROM products p
JOIN categories c ON c.id = p.category_id
WHERE p.id = $1
`

type GetProductForOrderRow struct {
	ID             uuid.UUID      `json:"id"`
	Name           string         `json:"name"`
	Price          pgtype.Numeric `json:"price"`
	IsAvailable    bool           `json:"is_available"`
	IsCustomizable bool           `json:"is_customizable"`
	CategoryActive bool           `json:"category_active"`
}

func (q *Queries) GetProductForOrder(ctx context.Context, id uuid.UUID) (GetProductForOrderRow, error) {
	var i GetProductForOrderRow
	err := q.db.QueryRow(ctx, getProductForOrder, id).Scan(
		&i.ID,
		&i.Name,
		&i.Price,
		&i.IsAvailable,
		&i.IsCustomizable,
		&i.CategoryActive,
	)
	return i, err
}

const createProduct = `-- name: CreateProduct :one
INSERT INTO products (category_id, name, slug, description, price, image_url,
                      is_available, is_customizable, preparation_time, allergens, sort_order)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + productColumns

type CreateProductParams struct {
	CategoryID      uuid.UUID      `json:"category_id"`
	Name            string         `json:"name"`
	Slug            string         `json:"slug"`
	Description     pgtype.Text    `json:"description"`
	Price           pgtype.Numeric `json:"price"`
	ImageUrl        pgtype.Text    `json:"image_url"`
	IsAvailable     bool           `json:"is_available"`
	IsCustomizable  bool           `json:"is_customizable"`
	PreparationTime int32          `json:"preparation_time"`
	Allergens       []string       `json:"allergens"`
	SortOrder       int32          `json:"sort_order"`
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, createProduct,
		arg.CategoryID,
		arg.Name,
		arg.Slug,
		arg.Description,
		arg.Price,
		arg.ImageUrl,
		arg.IsAvailable,
		arg.IsCustomizable,
		arg.PreparationTime,
		arg.Allergens,
		arg.SortOrder,
	)
	return scanProduct(row)
}

const updateProduct = `-- name: UpdateProduct :one
UPDATE products
SET category_id = $2, name = $3, slug = $4, description = $5, price = $6, image_url = $7,
    is_available = $8, is_customizable = $9, preparation_time = $10, allergens = $11,
    sort_order = $12, updated_at = now()
WHERE id = $1
RETURNING ` + productColumns

type UpdateProductParams struct {
	ID              uuid.UUID      `json:"id"`
	CategoryID      uuid.UUID      `json:"category_id"`
	Name            string         `json:"name"`
	Slug            string         `json:"slug"`
	Description     pgtype.Text    `json:"description"`
	Price           pgtype.Numeric `json:"price"`
	ImageUrl        pgtype.Text    `json:"image_url"`
	IsAvailable     bool           `json:"is_available"`
	IsCustomizable  bool           `json:"is_customizable"`
	PreparationTime int32          `json:"preparation_time"`
	Allergens       []string       `json:"allergens"`
	SortOrder       int32          `json:"sort_order"`
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, updateProduct,
		arg.ID,
		arg.CategoryID,
		arg.Name,
		arg.Slug,
		arg.Description,
		arg.Price,
		arg.ImageUrl,
		arg.IsAvailable,
		arg.IsCustomizable,
		arg.PreparationTime,
		arg.Allergens,
		arg.SortOrder,
	)
	return scanProduct(row)
}

const deleteProduct = `-- name: DeleteProduct :execrows
DELETE FROM products WHERE id = $1
`

func (q *Queries) DeleteProduct(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteProduct, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// --- Ingredients ---

const ingredientColumns = `id, name, price, is_available, created_at, updated_at`

func scanIngredient(row rowScanner) (Ingredient, error) {
	var i Ingredient
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Price,
		&i.IsAvailable,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listIngredients = `-- name: ListIngredients :many
SELECT ` + ingredientColumns + ` FROM ingredients
WHERE NOT $1::boolean OR is_available
ORDER BY name
`

func (q *Queries) ListIngredients(ctx context.Context, onlyAvailable bool) ([]Ingredient, error) {
	rows, err := q.db.Query(ctx, listIngredients, onlyAvailable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Ingredient{}
	for rows.Next() {
		i, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getIngredient = `-- name: GetIngredient :one
SELECT ` + ingredientColumns + ` FROM ingredients WHERE id = $1
`

func (q *Queries) GetIngredient(ctx context.Context, id uuid.UUID) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, getIngredient, id))
}

const createIngredient = `-- name: CreateIngredient :one
INSERT INTO ingredients (name, price, is_available)
VALUES ($1, $2, $3)
RETURNING ` + ingredientColumns

type CreateIngredientParams struct {
	Name        string         `json:"name"`
	Price       pgtype.Numeric `json:"price"`
	IsAvailable bool           `json:"is_available"`
}

func (q *Queries) CreateIngredient(ctx context.Context, arg CreateIngredientParams) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, createIngredient, arg.Name, arg.Price, arg.IsAvailable))
}

const updateIngredient = `-- name: UpdateIngredient :one
UPDATE ingredients
SET name = $2, price = $3, is_available = $4, updated_at = now()
WHERE id = $1
RETURNING ` + ingredientColumns

type UpdateIngredientParams struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Price       pgtype.Numeric `json:"price"`
	IsAvailable bool           `json:"is_available"`
}

func (q *Queries) UpdateIngredient(ctx context.Context, arg UpdateIngredientParams) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, updateIngredient, arg.ID, arg.Name, arg.Price, arg.IsAvailable))
}

// --- Customization rules ---

const listProductCustomizations = `-- name: ListProductCustomizations :many
SELECT pc.id, pc.product_id, pc.ingredient_id, i.name AS ingredient_name, pc.action, pc.price,
       pc.is_default, i.is_available AS ingredient_available
FROM product_customizations pc
JOIN ingredients i ON i.id = pc.ingredient_id
WHERE pc.product_id = $1
ORDER BY pc.action, i.name
`

type ListProductCustomizationsRow struct {
	ID                  uuid.UUID      `json:"id"`
	ProductID           uuid.UUID      `json:"product_id"`
	IngredientID        uuid.UUID      `json:"ingredient_id"`
	IngredientName      string         `json:"ingredient_name"`
	Action              string         `json:"action"`
	Price               pgtype.Numeric `json:"price"`
	IsDefault           bool           `json:"is_default"`
	IngredientAvailable bool           `json:"ingredient_available"`
}

func (q *Queries) ListProductCustomizations(ctx context.Context, productID uuid.UUID) ([]ListProductCustomizationsRow, error) {
	rows, err := q.db.Query(ctx, listProductCustomizations, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListProductCustomizationsRow{}
	for rows.Next() {
		var i ListProductCustomizationsRow
		if err := rows.Scan(
			&i.ID,
			&i.ProductID,
			&i.IngredientID,
			&i.IngredientName,
			&i.Action,
			&i.Price,
			&i.IsDefault,
			&i.IngredientAvailable,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createProductCustomization = `-- name: CreateProductCustomization :one
INSERT INTO product_customizations (product_id, ingredient_id, action, price, is_default)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, product_id, ingredient_id, action, price, is_default, created_at
`

type CreateProductCustomizationParams struct {
	ProductID    uuid.UUID      `json:"product_id"`
	IngredientID uuid.UUID      `json:"ingredient_id"`
	Action       string         `json:"action"`
	Price        pgtype.Numeric `json:"price"`
	IsDefault    bool           `json:"is_default"`
}

func (q *Queries) CreateProductCustomization(ctx context.Context, arg CreateProductCustomizationParams) (ProductCustomization, error) {
	var i ProductCustomization
	err := q.db.QueryRow(ctx, createProductCustomization,
		arg.ProductID,
		arg.IngredientID,
		arg.Action,
		arg.Price,
		arg.IsDefault,
	).Scan(
		&i.ID,
		&i.ProductID,
		&i.IngredientID,
		&i.Action,
		&i.Price,
		&i.IsDefault,
		&i.CreatedAt,
	)
	return i, err
}

const deleteProductCustomization = `-- name: DeleteProductCustomization :execrows
DELETE FROM product_customizations WHERE id = $1 AND product_id = $2
`

type DeleteProductCustomizationParams struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
}

func (q *Queries) DeleteProductCustomization(ctx context.Context, arg DeleteProductCustomizationParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteProductCustomization, arg.ID, arg.ProductID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
