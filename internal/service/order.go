package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mavi-pizzeria/api/internal/apperr"
	"github.com/mavi-pizzeria/api/internal/database"
	"github.com/mavi-pizzeria/api/internal/enum"
	"github.com/mavi-pizzeria/api/internal/events"
	"github.com/mavi-pizzeria/api/internal/payment"
	"github.com/mavi-pizzeria/api/internal/pricing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	instrumentationName = "github.com/mavi-pizzeria/api/internal/service"

	maxOrderNumberRetries = 3
	estimatedPrepTime     = 45 * time.Minute
	currencyEUR           = "EUR"
)

// Errors returned by the order service.
var (
	ErrInvalidDeliveryType  = apperr.Validation("delivery_type must be DELIVERY or PICKUP")
	ErrInvalidPaymentMethod = apperr.Validation("invalid payment_method")
	ErrAddressRequired      = apperr.Validation("delivery address is required for DELIVERY orders")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order services.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	DetailStore
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	CreateOrderItemCustomization(ctx context.Context, arg database.CreateOrderItemCustomizationParams) (database.OrderItemCustomization, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	SetPaymentTransaction(ctx context.Context, arg database.SetPaymentTransactionParams) (database.Payment, error)
	CompletePayment(ctx context.Context, arg database.CompletePaymentParams) (database.Payment, error)
	FailPayment(ctx context.Context, arg database.FailPaymentParams) (database.Payment, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// ProviderResolver maps payment methods and names to providers.
// Satisfied by *payment.Registry.
type ProviderResolver interface {
	Resolve(method string) (payment.Name, error)
	Get(name payment.Name) (payment.Provider, error)
}

// CreateOrderRequest is the input for placing an order. UserID is nil for
// guest checkout.
type CreateOrderRequest struct {
	UserID        *uuid.UUID
	Items         []CartItem
	DeliveryType  string
	Address       *AddressInput
	PaymentMethod string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Notes         string
}

type AddressInput struct {
	Street       string
	PostalCode   string
	City         string
	Instructions string
}

// OrderService places orders.
type OrderService struct {
	pool      TxBeginner
	newStore  NewOrderStore
	validator *OrderValidator
	providers ProviderResolver
	notifier  *Notifier
	publisher events.Publisher
	tasks     *Tasks
	now       func() time.Time
	created   metric.Int64Counter
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	pool TxBeginner,
	newStore NewOrderStore,
	validator *OrderValidator,
	providers ProviderResolver,
	notifier *Notifier,
	publisher events.Publisher,
	tasks *Tasks,
) *OrderService {
	created, _ := otel.Meter(instrumentationName).Int64Counter("orders_created_total",
		metric.WithDescription("Orders placed by payment method"))
	return &OrderService{
		pool:      pool,
		newStore:  newStore,
		validator: validator,
		providers: providers,
		notifier:  notifier,
		publisher: publisher,
		tasks:     tasks,
		now:       time.Now,
		created:   created,
	}
}

// CreateOrder re-prices the cart, then writes the order, its item snapshots
// and a PENDING payment in one transaction. Retries up to
// maxOrderNumberRetries times when the random order number collides.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderDetail, error) {
	// --- Validate order-level fields ---
	if !enum.IsDeliveryType(req.DeliveryType) {
		return nil, ErrInvalidDeliveryType
	}
	if !enum.IsPaymentMethod(req.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}
	if req.DeliveryType == enum.DeliveryTypeDelivery && !req.Address.complete() {
		return nil, ErrAddressRequired
	}
	if req.DeliveryType == enum.DeliveryTypePickup {
		req.Address = nil
	}
	providerName, err := s.providers.Resolve(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	// --- Price against the live catalog ---
	priced, err := s.validator.Validate(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	lines := make([]pricing.Line, len(priced))
	for i, p := range priced {
		lines[i] = p.Line()
	}
	totals := pricing.ComputeTotals(lines, pricing.DeliveryFeeFor(req.DeliveryType))

	var (
		detail  *OrderDetail
		lastErr error
	)
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		detail, err = s.createOrderTx(ctx, req, priced, totals, providerName)
		if err == nil {
			break
		}
		if !isOrderNumberConflict(err) {
			return nil, err
		}
		lastErr = err
	}
	if detail == nil {
		return nil, lastErr
	}

	s.created.Add(ctx, 1, metric.WithAttributes(attribute.String("payment_method", detail.PaymentMethod)))
	s.notifier.NewOrder(detail)
	s.publish(ctx, events.OrderEvent{
		Type:          events.TypeOrderCreated,
		OrderID:       detail.ID.String(),
		OrderNumber:   detail.OrderNumber,
		Status:        detail.Status,
		PaymentMethod: detail.PaymentMethod,
		Total:         detail.Total,
		OccurredAt:    s.now(),
	})
	return detail, nil
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}

// createOrderTx executes the full order creation in a single transaction.
func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest, priced []PricedItem, totals pricing.Totals, providerName payment.Name) (*OrderDetail, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	now := s.now()

	params := database.CreateOrderParams{
		OrderNumber:           generateOrderNumber(now),
		DeliveryType:          req.DeliveryType,
		CustomerName:          database.Text(req.CustomerName),
		CustomerEmail:         database.Text(req.CustomerEmail),
		CustomerPhone:         database.Text(req.CustomerPhone),
		PaymentMethod:         req.PaymentMethod,
		Subtotal:              database.Numeric(totals.Subtotal),
		Tax:                   database.Numeric(totals.Tax),
		DeliveryFee:           database.Numeric(totals.DeliveryFee),
		Total:                 database.Numeric(totals.Total),
		CustomerNotes:         database.Text(req.Notes),
		EstimatedDeliveryTime: pgtype.Timestamptz{Time: now.Add(estimatedPrepTime), Valid: true},
	}
	if req.UserID != nil {
		params.UserID = pgtype.UUID{Bytes: *req.UserID, Valid: true}
	}
	if a := req.Address; a != nil {
		params.DeliveryStreet = database.Text(a.Street)
		params.DeliveryPostalCode = database.Text(a.PostalCode)
		params.DeliveryCity = database.Text(a.City)
		params.DeliveryInstructions = database.Text(a.Instructions)
	}

	order, err := store.CreateOrder(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Insert item and customization snapshots ---
	var (
		items []database.OrderItem
		custs []database.OrderItemCustomization
	)
	for i, p := range priced {
		line := p.Line()
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:             order.ID,
			ProductID:           p.ProductID,
			ProductName:         p.ProductName,
			Quantity:            p.Quantity,
			UnitPrice:           database.Numeric(line.UnitPrice()),
			TotalPrice:          database.Numeric(line.Total()),
			SpecialInstructions: database.Text(p.SpecialInstructions),
		})
		if err != nil {
			return nil, fmt.Errorf("item[%d]: create order item: %w", i, err)
		}
		items = append(items, item)

		for j, c := range p.Customizations {
			cust, err := store.CreateOrderItemCustomization(ctx, database.CreateOrderItemCustomizationParams{
				OrderItemID:    item.ID,
				IngredientID:   c.IngredientID,
				IngredientName: c.IngredientName,
				Action:         c.Action,
				Price:          database.Numeric(c.Price),
			})
			if err != nil {
				return nil, fmt.Errorf("item[%d].customizations[%d]: create: %w", i, j, err)
			}
			custs = append(custs, cust)
		}
	}

	pay, err := store.CreatePayment(ctx, database.CreatePaymentParams{
		OrderID:  order.ID,
		Provider: string(providerName),
		Status:   enum.PaymentStatusPending,
		Amount:   database.Numeric(totals.Total),
		Currency: currencyEUR,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return buildOrderDetail(order, items, custs, &pay), nil
}

// publish sends an order event without holding up the caller.
func (s *OrderService) publish(ctx context.Context, ev events.OrderEvent) {
	publishEvent(ctx, s.tasks, s.publisher, ev)
}

// --- Helpers ---

func publishEvent(ctx context.Context, tasks *Tasks, pub events.Publisher, ev events.OrderEvent) {
	if pub == nil {
		return
	}
	tasks.Go(ctx, "publish "+ev.Type, func(ctx context.Context) error {
		return pub.PublishOrderEvent(ctx, ev)
	})
}

// generateOrderNumber returns ORD-YYYYMMDD-NNNN with a random suffix.
func generateOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%04d", now.Format("20060102"), rand.IntN(10000))
}

func (a *AddressInput) complete() bool {
	return a != nil && a.Street != "" && a.PostalCode != "" && a.City != ""
}
