package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID             uuid.UUID   `json:"id"`
	Email          string      `json:"email"`
	HashedPassword string      `json:"hashed_password"`
	FirstName      string      `json:"first_name"`
	LastName       string      `json:"last_name"`
	Phone          pgtype.Text `json:"phone"`
	IsActive       bool        `json:"is_active"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type Admin struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"hashed_password"`
	FullName       string    `json:"full_name"`
	Role           string    `json:"role"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Category struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Description pgtype.Text `json:"description"`
	ImageUrl    pgtype.Text `json:"image_url"`
	SortOrder   int32       `json:"sort_order"`
	IsActive    bool        `json:"is_active"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type Product struct {
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
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type Ingredient struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Price       pgtype.Numeric `json:"price"`
	IsAvailable bool           `json:"is_available"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type ProductCustomization struct {
	ID           uuid.UUID      `json:"id"`
	ProductID    uuid.UUID      `json:"product_id"`
	IngredientID uuid.UUID      `json:"ingredient_id"`
	Action       string         `json:"action"`
	Price        pgtype.Numeric `json:"price"`
	IsDefault    bool           `json:"is_default"`
	CreatedAt    time.Time      `json:"created_at"`
}

type Order struct {
	ID                    uuid.UUID          `json:"id"`
	OrderNumber           string             `json:"order_number"`
	UserID                pgtype.UUID        `json:"user_id"`
	Status                string             `json:"status"`
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
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

type OrderItem struct {
	ID                  uuid.UUID      `json:"id"`
	OrderID             uuid.UUID      `json:"order_id"`
	ProductID           uuid.UUID      `json:"product_id"`
	ProductName         string         `json:"product_name"`
	Quantity            int32          `json:"quantity"`
	UnitPrice           pgtype.Numeric `json:"unit_price"`
	TotalPrice          pgtype.Numeric `json:"total_price"`
	SpecialInstructions pgtype.Text    `json:"special_instructions"`
	CreatedAt           time.Time      `json:"created_at"`
}

type OrderItemCustomization struct {
	ID             uuid.UUID      `json:"id"`
	OrderItemID    uuid.UUID      `json:"order_item_id"`
	IngredientID   uuid.UUID      `json:"ingredient_id"`
	IngredientName string         `json:"ingredient_name"`
	Action         string         `json:"action"`
	Price          pgtype.Numeric `json:"price"`
}

type Payment struct {
	ID            uuid.UUID      `json:"id"`
	OrderID       uuid.UUID      `json:"order_id"`
	Provider      string         `json:"provider"`
	TransactionID pgtype.Text    `json:"transaction_id"`
	Status        string         `json:"status"`
	Amount        pgtype.Numeric `json:"amount"`
	Currency      string         `json:"currency"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type PrintJob struct {
	ID          uuid.UUID   `json:"id"`
	OrderID     pgtype.UUID `json:"order_id"`
	StoreID     string      `json:"store_id"`
	Status      string      `json:"status"`
	Content     []byte      `json:"content"`
	PrinterName pgtype.Text `json:"printer_name"`
	Attempts    int32       `json:"attempts"`
	LastError   pgtype.Text `json:"last_error"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
