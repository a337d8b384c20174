package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mavi-pizzeria/api/internal/apperr"
	"github.com/mavi-pizzeria/api/internal/database"
	"github.com/mavi-pizzeria/api/internal/printjob"
	"github.com/shopspring/decimal"
)

const (
	fallbackProductName    = "Tuote"
	fallbackIngredientName = "Lisuke"
)

var ErrOrderNotFound = apperr.NotFound("order not found")

// DetailStore defines the DB methods needed to load a full order.
// Satisfied by *database.Queries; narrow interface for testability.
type DetailStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListOrderItemCustomizationsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItemCustomization, error)
	GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (database.Payment, error)
}

// --- Views ---

// OrderDetail is the full formatted order sent to clients and staff.
type OrderDetail struct {
	ID                    uuid.UUID      `json:"id"`
	OrderNumber           string         `json:"order_number"`
	UserID                *uuid.UUID     `json:"user_id"`
	Status                string         `json:"status"`
	DeliveryType          string         `json:"delivery_type"`
	DeliveryAddress       *Address       `json:"delivery_address"`
	CustomerName          *string        `json:"customer_name"`
	CustomerEmail         *string        `json:"customer_email"`
	CustomerPhone         *string        `json:"customer_phone"`
	PaymentMethod         string         `json:"payment_method"`
	Subtotal              string         `json:"subtotal"`
	Tax                   string         `json:"tax"`
	DeliveryFee           string         `json:"delivery_fee"`
	Total                 string         `json:"total"`
	CustomerNotes         *string        `json:"customer_notes"`
	EstimatedDeliveryTime *time.Time     `json:"estimated_delivery_time"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	Items                 []OrderItem    `json:"items"`
	Payment               *PaymentDetail `json:"payment"`
}

type Address struct {
	Street       string  `json:"street"`
	PostalCode   string  `json:"postal_code"`
	City         string  `json:"city"`
	Instructions *string `json:"instructions"`
}

type OrderItem struct {
	ID                  uuid.UUID            `json:"id"`
	ProductID           uuid.UUID            `json:"product_id"`
	ProductName         string               `json:"product_name"`
	Quantity            int32                `json:"quantity"`
	UnitPrice           string               `json:"unit_price"`
	TotalPrice          string               `json:"total_price"`
	SpecialInstructions *string              `json:"special_instructions"`
	Customizations      []OrderCustomization `json:"customizations"`
}

type OrderCustomization struct {
	ID           uuid.UUID `json:"id"`
	IngredientID uuid.UUID `json:"ingredient_id"`
	Name         string    `json:"name"`
	Action       string    `json:"action"`
	Price        string    `json:"price"`
}

type PaymentDetail struct {
	ID            uuid.UUID `json:"id"`
	Provider      string    `json:"provider"`
	TransactionID *string   `json:"transaction_id"`
	Status        string    `json:"status"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
}

// StatusChange is what customers see when an order moves.
type StatusChange struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Status      string    `json:"status"`
}

// IsOwnedBy reports whether the order belongs to userID.
func (d *OrderDetail) IsOwnedBy(userID uuid.UUID) bool {
	return d.UserID != nil && *d.UserID == userID
}

// --- Loading ---

// LoadOrderDetail reads an order with its items, customizations and payment.
func LoadOrderDetail(ctx context.Context, store DetailStore, id uuid.UUID) (*OrderDetail, error) {
	order, err := store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	items, err := store.ListOrderItemsByOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	custs, err := store.ListOrderItemCustomizationsByOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list order item customizations: %w", err)
	}

	var pay *database.Payment
	p, err := store.GetPaymentByOrder(ctx, id)
	switch {
	case err == nil:
		pay = &p
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return nil, fmt.Errorf("get payment: %w", err)
	}

	return buildOrderDetail(order, items, custs, pay), nil
}

func buildOrderDetail(o database.Order, items []database.OrderItem, custs []database.OrderItemCustomization, pay *database.Payment) *OrderDetail {
	d := &OrderDetail{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		Status:        o.Status,
		DeliveryType:  o.DeliveryType,
		CustomerName:  textPtr(o.CustomerName),
		CustomerEmail: textPtr(o.CustomerEmail),
		CustomerPhone: textPtr(o.CustomerPhone),
		PaymentMethod: o.PaymentMethod,
		Subtotal:      database.Decimal(o.Subtotal).StringFixed(2),
		Tax:           database.Decimal(o.Tax).StringFixed(2),
		DeliveryFee:   database.Decimal(o.DeliveryFee).StringFixed(2),
		Total:         database.Decimal(o.Total).StringFixed(2),
		CustomerNotes: textPtr(o.CustomerNotes),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		Items:         make([]OrderItem, 0, len(items)),
	}
	if o.UserID.Valid {
		uid := uuid.UUID(o.UserID.Bytes)
		d.UserID = &uid
	}
	if o.EstimatedDeliveryTime.Valid {
		t := o.EstimatedDeliveryTime.Time
		d.EstimatedDeliveryTime = &t
	}
	if o.DeliveryStreet.Valid {
		d.DeliveryAddress = &Address{
			Street:       o.DeliveryStreet.String,
			PostalCode:   o.DeliveryPostalCode.String,
			City:         o.DeliveryCity.String,
			Instructions: textPtr(o.DeliveryInstructions),
		}
	}

	byItem := make(map[uuid.UUID][]OrderCustomization)
	for _, c := range custs {
		name := c.IngredientName
		if name == "" {
			name = fallbackIngredientName
		}
		byItem[c.OrderItemID] = append(byItem[c.OrderItemID], OrderCustomization{
			ID:           c.ID,
			IngredientID: c.IngredientID,
			Name:         name,
			Action:       c.Action,
			Price:        database.Decimal(c.Price).StringFixed(2),
		})
	}
	for _, it := range items {
		name := it.ProductName
		if name == "" {
			name = fallbackProductName
		}
		itemCusts := byItem[it.ID]
		if itemCusts == nil {
			itemCusts = []OrderCustomization{}
		}
		d.Items = append(d.Items, OrderItem{
			ID:                  it.ID,
			ProductID:           it.ProductID,
			ProductName:         name,
			Quantity:            it.Quantity,
			UnitPrice:           database.Decimal(it.UnitPrice).StringFixed(2),
			TotalPrice:          database.Decimal(it.TotalPrice).StringFixed(2),
			SpecialInstructions: textPtr(it.SpecialInstructions),
			Customizations:      itemCusts,
		})
	}

	if pay != nil {
		d.Payment = &PaymentDetail{
			ID:            pay.ID,
			Provider:      pay.Provider,
			TransactionID: textPtr(pay.TransactionID),
			Status:        pay.Status,
			Amount:        database.Decimal(pay.Amount).StringFixed(2),
			Currency:      pay.Currency,
		}
	}
	return d
}

// StatusChange returns the customer-facing notification for d.
func (d *OrderDetail) StatusChange() StatusChange {
	return StatusChange{OrderID: d.ID, OrderNumber: d.OrderNumber, Status: d.Status}
}

// PrintOrder converts d into the receipt snapshot.
func (d *OrderDetail) PrintOrder() printjob.Order {
	o := printjob.Order{
		ID:            d.ID,
		Number:        d.OrderNumber,
		DeliveryType:  d.DeliveryType,
		PaymentMethod: d.PaymentMethod,
		Subtotal:      parseMoney(d.Subtotal),
		DeliveryFee:   parseMoney(d.DeliveryFee),
		Total:         parseMoney(d.Total),
		CustomerName:  deref(d.CustomerName),
		CustomerPhone: deref(d.CustomerPhone),
		Notes:         deref(d.CustomerNotes),
	}
	if a := d.DeliveryAddress; a != nil {
		o.Address = strings.TrimSpace(fmt.Sprintf("%s, %s %s", a.Street, a.PostalCode, a.City))
	}
	for _, it := range d.Items {
		pi := printjob.Item{Quantity: it.Quantity, Name: it.ProductName, Total: parseMoney(it.TotalPrice)}
		for _, c := range it.Customizations {
			pi.Customizations = append(pi.Customizations, printjob.Customization{Name: c.Name, Price: parseMoney(c.Price)})
		}
		o.Items = append(o.Items, pi)
	}
	return o
}

// --- Helpers ---

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// parseMoney reads a StringFixed amount back. Malformed input is zero.
func parseMoney(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
