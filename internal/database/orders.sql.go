package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, user_id, status, delivery_type, delivery_street, delivery_postal_code,
       delivery_city, delivery_instructions, customer_name, customer_email, customer_phone,
       payment_method, subtotal, tax, delivery_fee, total, customer_notes, estimated_delivery_time,
       created_at, updated_at`

func scanOrder(row rowScanner) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.OrderNumber,
		&i.UserID,
		&i.Status,
		&i.DeliveryType,
		&i.DeliveryStreet,
		&i.DeliveryPostalCode,
		&i.DeliveryCity,
		&i.DeliveryInstructions,
		&i.CustomerName,
		&i.CustomerEmail,
		&i.CustomerPhone,
		&i.PaymentMethod,
		&i.Subtotal,
		&i.Tax,
		&i.DeliveryFee,
		&i.Total,
		&i.CustomerNotes,
		&i.EstimatedDeliveryTime,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
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

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (order_number, user_id, delivery_type, delivery_street, delivery_postal_code,
                    delivery_city, delivery_instructions, customer_name, customer_email, customer_phone,
                    payment_method, subtotal, tax, delivery_fee, total, customer_notes,
                    estimated_delivery_time)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	OrderNumber           string             `json:"order_number"`
	UserID                pgtype.UUID        `json:"user_id"`
	DeliveryType          string             `json:"delivery_type"`
	DeliveryStreet        pgtype.Text        `json:"delivery_street"`
	DeliveryPostalCode    pgtype.Text        `json:"delivery_postal_code"`
	DeliveryCity          pgtype.Text        `json:"delivery_city"`
	DeliveryInstructions  pgtype.Text        `json:"delivery_instructions"`
	CustomerName          pgtype.Text        `json:"customer_name"`
	CustomerEmail         pgtype.Text        `json:"customer_email"`
	CustomerPhone         pgtype.Text        `json:"customer_phone"`
	PaymentMethod         string             `json:"payment_method"`
	Subtotal              pgtype.Numeric     `json:"subtotal"`
	Tax                   pgtype.Numeric     `json:"tax"`
	DeliveryFee           pgtype.Numeric     `json:"delivery_fee"`
	Total                 pgtype.Numeric     `json:"total"`
	CustomerNotes         pgtype.Text        `json:"customer_notes"`
	EstimatedDeliveryTime pgtype.Timestamptz `json:"estimated_delivery_time"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.OrderNumber,
		arg.UserID,
		arg.DeliveryType,
		arg.DeliveryStreet,
		arg.DeliveryPostalCode,
		arg.DeliveryCity,
		arg.DeliveryInstructions,
		arg.CustomerName,
		arg.CustomerEmail,
		arg.CustomerPhone,
		arg.PaymentMethod,
		arg.Subtotal,
		arg.Tax,
		arg.DeliveryFee,
		arg.Total,
		arg.CustomerNotes,
		arg.EstimatedDeliveryTime,
	)
	return scanOrder(row)
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, total_price, special_instructions)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, order_id, product_id, product_name, quantity, unit_price, total_price, special_instructions, created_at
`

type CreateOrderItemParams struct {
	OrderID             uuid.UUID      `json:"order_id"`
	ProductID           uuid.UUID      `json:"product_id"`
	ProductName         string         `json:"product_name"`
	Quantity            int32          `json:"quantity"`
	UnitPrice           pgtype.Numeric `json:"unit_price"`
	TotalPrice          pgtype.Numeric `json:"total_price"`
	SpecialInstructions pgtype.Text    `json:"special_instructions"`
}

func scanOrderItem(row rowScanner) (OrderItem, error) {
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.ProductID,
		&i.ProductName,
		&i.Quantity,
		&i.UnitPrice,
		&i.TotalPrice,
		&i.SpecialInstructions,
		&i.CreatedAt,
	)
	return i, err
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.ProductID,
		arg.ProductName,
		arg.Quantity,
		arg.UnitPrice,
		arg.TotalPrice,
		arg.SpecialInstructions,
	)
	return scanOrderItem(row)
}

const createOrderItemCustomization = `-- name: CreateOrderItemCustomization :one
INSERT INTO order_item_customizations (order_item_id, ingredient_id, ingredient_name, action, price)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_item_id, ingredient_id, ingredient_name, action, price
`

type CreateOrderItemCustomizationParams struct {
	OrderItemID    uuid.UUID      `json:"order_item_id"`
	IngredientID   uuid.UUID      `json:"ingredient_id"`
	IngredientName string         `json:"ingredient_name"`
	Action         string         `json:"action"`
	Price          pgtype.Numeric `json:"price"`
}

func (q *Queries) CreateOrderItemCustomization(ctx context.Context, arg CreateOrderItemCustomizationParams) (OrderItemCustomization, error) {
	var i OrderItemCustomization
	err := q.db.QueryRow(ctx, createOrderItemCustomization,
		arg.OrderItemID,
		arg.IngredientID,
		arg.IngredientName,
		arg.Action,
		arg.Price,
	).Scan(
		&i.ID,
		&i.OrderItemID,
		&i.IngredientID,
		&i.IngredientName,
		&i.Action,
		&i.Price,
	)
	return i, err
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const listOrderItemsByOrder = `-- name: ListOrderItemsByOrder :many
SELECT id, order_id, product_id, product_name, quantity, unit_price, total_price, special_instructions, created_at
FROM order_items
WHERE order_id = $1
ORDER BY created_at, id
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		i, err := scanOrderItem(rows)
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

const listOrderItemCustomizationsByOrder = `-- name: ListOrderItemCustomizationsByOrder :many
SELECT c.id, c.order_item_id, c.ingredient_id, c.ingredient_name, c.action, c.price
FROM order_item_customizations c
JOIN order_items oi ON oi.id = c.order_item_id
WHERE oi.order_id = $1
ORDER BY c.ingredient_name
`

func (q *Queries) ListOrderItemCustomizationsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItemCustomization, error) {
	rows, err := q.db.Query(ctx, listOrderItemCustomizationsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItemCustomization{}
	for rows.Next() {
		var i OrderItemCustomization
		if err := rows.Scan(
			&i.ID,
			&i.OrderItemID,
			&i.IngredientID,
			&i.IngredientName,
			&i.Action,
			&i.Price,
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

const listOrdersByUser = `-- name: ListOrdersByUser :many
SELECT ` + orderColumns + ` FROM orders
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

type ListOrdersByUserParams struct {
	UserID pgtype.UUID `json:"user_id"`
	Limit  int32       `json:"limit"`
	Offset int32       `json:"offset"`
}

func (q *Queries) ListOrdersByUser(ctx context.Context, arg ListOrdersByUserParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByUser, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const countOrdersByUser = `-- name: CountOrdersByUser :one
SELECT count(*) FROM orders WHERE user_id = $1
`

func (q *Queries) CountOrdersByUser(ctx context.Context, userID pgtype.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countOrdersByUser, userID).Scan(&count)
	return count, err
}

const orderFilter = `
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::text IS NULL OR payment_method = $2)
  AND ($3::timestamptz IS NULL OR created_at >= $3)
  AND ($4::timestamptz IS NULL OR created_at < $4)`

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + ` FROM orders` + orderFilter + `
ORDER BY created_at DESC
LIMIT $5 OFFSET $6
`

type ListOrdersParams struct {
	Status        pgtype.Text        `json:"status"`
	PaymentMethod pgtype.Text        `json:"payment_method"`
	StartDate     pgtype.Timestamptz `json:"start_date"`
	EndDate       pgtype.Timestamptz `json:"end_date"`
	Limit         int32              `json:"limit"`
	Offset        int32              `json:"offset"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.Status,
		arg.PaymentMethod,
		arg.StartDate,
		arg.EndDate,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const countOrders = `-- name: CountOrders :one
SELECT count(*) FROM orders` + orderFilter

type CountOrdersParams struct {
	Status        pgtype.Text        `json:"status"`
	PaymentMethod pgtype.Text        `json:"payment_method"`
	StartDate     pgtype.Timestamptz `json:"start_date"`
	EndDate       pgtype.Timestamptz `json:"end_date"`
}

func (q *Queries) CountOrders(ctx context.Context, arg CountOrdersParams) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countOrders, arg.Status, arg.PaymentMethod, arg.StartDate, arg.EndDate).Scan(&count)
	return count, err
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3
RETURNING ` + orderColumns

// UpdateOrderStatusParams carries a compare-and-set: the row is only updated
// while its status still equals Status_2.
type UpdateOrderStatusParams struct {
	ID       uuid.UUID `json:"id"`
	Status   string    `json:"status"`
	Status_2 string    `json:"status_2"`
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.Status_2))
}

const getOrderStats = `-- name: GetOrderStats :one
SELECT count(*) AS total_orders,
       count(*) FILTER (WHERE status = 'PENDING') AS pending_orders,
       count(*) FILTER (WHERE status IN ('DELIVERED', 'COMPLETED')) AS completed_orders,
       count(*) FILTER (WHERE status = 'CANCELLED') AS cancelled_orders,
       COALESCE(sum(total) FILTER (WHERE status <> 'CANCELLED'), 0)::numeric(12,2) AS total_revenue
FROM orders
`

type GetOrderStatsRow struct {
	TotalOrders     int64          `json:"total_orders"`
	PendingOrders   int64          `json:"pending_orders"`
	CompletedOrders int64          `json:"completed_orders"`
	CancelledOrders int64          `json:"cancelled_orders"`
	TotalRevenue    pgtype.Numeric `json:"total_revenue"`
}

func (q *Queries) GetOrderStats(ctx context.Context) (GetOrderStatsRow, error) {
	var i GetOrderStatsRow
	err := q.db.QueryRow(ctx, getOrderStats).Scan(
		&i.TotalOrders,
		&i.PendingOrders,
		&i.CompletedOrders,
		&i.CancelledOrders,
		&i.TotalRevenue,
	)
	return i, err
}
