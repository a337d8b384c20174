package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mavi-pizzeria/api/internal/database"
	"github.com/mavi-pizzeria/api/internal/enum"
	"github.com/mavi-pizzeria/api/internal/logger"
	"github.com/mavi-pizzeria/api/internal/payment"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const cashPaymentMessage = "Cash payment - pay on delivery"

// Initiated is returned to the client after opening a payment. PaymentURL is
// nil when there is nothing to redirect to.
type Initiated struct {
	PaymentURL    *string `json:"payment_url"`
	TransactionID string  `json:"transaction_id"`
	Provider      string  `json:"provider"`
	Message       string  `json:"message,omitempty"`
}

// PaymentService opens payments with providers and applies their webhooks.
type PaymentService struct {
	store     OrderStore
	providers ProviderResolver
	lifecycle *Lifecycle
	webhooks  metric.Int64Counter
}

func NewPaymentService(store OrderStore, providers ProviderResolver, lifecycle *Lifecycle) *PaymentService {
	webhooks, _ := otel.Meter(instrumentationName).Int64Counter("payment_webhooks_total",
		metric.WithDescription("Payment webhooks by provider and outcome"))
	return &PaymentService{
		store:     store,
		providers: providers,
		lifecycle: lifecycle,
		webhooks:  webhooks,
	}
}

// Initiate opens a payment for an order with the provider its payment method
// maps to, and records the provider's transaction id.
func (s *PaymentService) Initiate(ctx context.Context, orderID uuid.UUID, requester *uuid.UUID) (*Initiated, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if requester != nil && order.UserID.Valid && uuid.UUID(order.UserID.Bytes) != *requester {
		return nil, ErrNotOrderOwner
	}

	pay, err := s.store.GetPaymentByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if pay.Status == enum.PaymentStatusCompleted {
		return nil, ErrOrderAlreadyPaid
	}

	name, err := s.providers.Resolve(order.PaymentMethod)
	if err != nil {
		return nil, err
	}
	provider, err := s.providers.Get(name)
	if err != nil {
		return nil, err
	}

	res, err := provider.CreatePayment(ctx, payment.CreateRequest{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Amount:        database.Decimal(order.Total),
		CustomerEmail: order.CustomerEmail.String,
	})
	if err != nil {
		logger.Error(ctx, "create payment failed",
			zap.String("order_id", order.ID.String()),
			zap.String("provider", string(name)),
			zap.Error(err))
		return nil, err
	}

	if _, err := s.store.SetPaymentTransaction(ctx, database.SetPaymentTransactionParams{
		OrderID:       order.ID,
		TransactionID: database.Text(res.TransactionID),
	}); err != nil {
		return nil, fmt.Errorf("set payment transaction: %w", err)
	}

	out := &Initiated{TransactionID: res.TransactionID, Provider: string(name)}
	if res.PaymentURL != "" {
		url := res.PaymentURL
		out.PaymentURL = &url
	}
	if name == payment.NameCash {
		out.Message = cashPaymentMessage
	}
	return out, nil
}

// HandleWebhook verifies a provider callback and applies its outcome.
// COMPLETED confirms the order once; FAILED marks the payment failed. The
// provider must be the one the order's payment was opened with.
func (s *PaymentService) HandleWebhook(ctx context.Context, providerName string, wh payment.Webhook) error {
	name, err := payment.ParseName(providerName)
	if err != nil {
		return err
	}
	provider, err := s.providers.Get(name)
	if err != nil {
		return err
	}

	res, err := provider.ProcessWebhook(ctx, wh)
	if err != nil {
		s.countWebhook(ctx, name, "rejected")
		logger.Warn(ctx, "payment webhook rejected", zap.String("provider", string(name)), zap.Error(err))
		return err
	}
	if res.Ignored {
		s.countWebhook(ctx, name, "ignored")
		return nil
	}

	// A callback only settles payments opened with the same provider.
	pay, err := s.store.GetPaymentByOrder(ctx, res.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.countWebhook(ctx, name, "rejected")
			return ErrPaymentNotFound
		}
		return fmt.Errorf("get payment: %w", err)
	}
	if pay.Provider != string(name) {
		s.countWebhook(ctx, name, "rejected")
		logger.Warn(ctx, "payment webhook from wrong provider",
			zap.String("provider", string(name)),
			zap.String("stored_provider", pay.Provider),
			zap.String("order_id", res.OrderID.String()))
		return ErrProviderMismatch
	}
	s.countWebhook(ctx, name, res.Status)

	switch res.Status {
	case enum.PaymentStatusCompleted:
		confirmed, err := s.lifecycle.ConfirmPayment(ctx, res.OrderID, res.TransactionID)
		if err != nil {
			return err
		}
		logger.Info(ctx, "payment completed",
			zap.String("provider", string(name)),
			zap.String("order_id", res.OrderID.String()),
			zap.Bool("order_confirmed", confirmed))
	case enum.PaymentStatusFailed:
		return s.lifecycle.FailPayment(ctx, res.OrderID, res.TransactionID)
	}
	return nil
}

// Status returns the stored payment of an order.
func (s *PaymentService) Status(ctx context.Context, orderID uuid.UUID, requester *uuid.UUID) (*PaymentDetail, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if requester != nil && order.UserID.Valid && uuid.UUID(order.UserID.Bytes) != *requester {
		return nil, ErrNotOrderOwner
	}

	pay, err := s.store.GetPaymentByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return &PaymentDetail{
		ID:            pay.ID,
		Provider:      pay.Provider,
		TransactionID: textPtr(pay.TransactionID),
		Status:        pay.Status,
		Amount:        database.Decimal(pay.Amount).StringFixed(2),
		Currency:      pay.Currency,
	}, nil
}

func (s *PaymentService) countWebhook(ctx context.Context, name payment.Name, outcome string) {
	s.webhooks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", string(name)),
		attribute.String("outcome", outcome)))
}
