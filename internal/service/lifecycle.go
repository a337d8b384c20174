package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mavi-pizzeria/api/internal/apperr"
	"github.com/mavi-pizzeria/api/internal/database"
	"github.com/mavi-pizzeria/api/internal/enum"
	"github.com/mavi-pizzeria/api/internal/events"
	"github.com/mavi-pizzeria/api/internal/logger"
	"github.com/mavi-pizzeria/api/internal/printjob"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Errors returned by the lifecycle controller.
var (
	ErrInvalidStatus     = apperr.Validation("invalid order status")
	ErrInvalidTransition = apperr.Conflict("order status transition not allowed")
	ErrStatusChanged     = apperr.Conflict("order status changed, please retry")
	ErrPaymentNotFound   = apperr.NotFound("payment not found")
	ErrOrderAlreadyPaid  = apperr.Conflict("Order already paid")
	ErrProviderMismatch  = apperr.Conflict("payment provider does not match order")
	ErrNotOrderOwner     = apperr.Forbidden("not your order")
)

// Printer files receipts for orders. Satisfied by *printjob.Queue.
type Printer interface {
	Enqueue(ctx context.Context, o printjob.Order) (printjob.Job, error)
}

// Lifecycle owns order status transitions and their side effects: real-time
// broadcast, the confirmation print job and order events.
type Lifecycle struct {
	pool        TxBeginner
	store       OrderStore
	newStore    NewOrderStore
	notifier    *Notifier
	printer     Printer
	publisher   events.Publisher
	tasks       *Tasks
	now         func() time.Time
	transitions metric.Int64Counter
}

func NewLifecycle(
	pool TxBeginner,
	store OrderStore,
	newStore NewOrderStore,
	notifier *Notifier,
	printer Printer,
	publisher events.Publisher,
	tasks *Tasks,
) *Lifecycle {
	transitions, _ := otel.Meter(instrumentationName).Int64Counter("order_status_transitions_total",
		metric.WithDescription("Order status transitions by target status"))
	return &Lifecycle{
		pool:        pool,
		store:       store,
		newStore:    newStore,
		notifier:    notifier,
		printer:     printer,
		publisher:   publisher,
		tasks:       tasks,
		now:         time.Now,
		transitions: transitions,
	}
}

// Get loads an order for a caller. A non-nil requester that does not own an
// owned order gets ErrNotOrderOwner; guests can read guest orders by id.
func (l *Lifecycle) Get(ctx context.Context, id uuid.UUID, requester *uuid.UUID) (*OrderDetail, error) {
	d, err := LoadOrderDetail(ctx, l.store, id)
	if err != nil {
		return nil, err
	}
	if requester != nil && d.UserID != nil && !d.IsOwnedBy(*requester) {
		return nil, ErrNotOrderOwner
	}
	return d, nil
}

// CanTransition reports whether an order may move from one status to
// another: forward along the flow, or to CANCELLED from a live status.
func CanTransition(from, to string) bool {
	if enum.IsTerminalOrderStatus(from) {
		return false
	}
	if to == enum.OrderStatusCancelled {
		return true
	}
	fromRank, toRank := enum.StatusRank(from), enum.StatusRank(to)
	return fromRank >= 0 && toRank > fromRank
}

// ChangeStatus applies a staff or webhook status update. The write is a
// compare-and-set on the status that was read, so a concurrent change makes
// this call fail with ErrStatusChanged instead of overwriting it.
func (l *Lifecycle) ChangeStatus(ctx context.Context, id uuid.UUID, status string) (*OrderDetail, error) {
	if !enum.IsOrderStatus(status) {
		return nil, ErrInvalidStatus
	}

	order, err := l.store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status == status {
		return LoadOrderDetail(ctx, l.store, id)
	}
	if !CanTransition(order.Status, status) {
		return nil, &apperr.Error{
			Kind: apperr.KindConflict,
			Msg:  fmt.Sprintf("cannot change order status from %s to %s", order.Status, status),
			Err:  ErrInvalidTransition,
		}
	}

	_, err = l.store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:       id,
		Status:   status,
		Status_2: order.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusChanged
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	d, err := LoadOrderDetail(ctx, l.store, id)
	if err != nil {
		return nil, err
	}
	l.afterTransition(ctx, d, order.Status)
	return d, nil
}

// ConfirmPayment marks the order's payment COMPLETED and moves a PENDING
// order to CONFIRMED in one transaction. Repeated webhooks are no-ops: the
// payment update only matches a payment that is not yet completed.
func (l *Lifecycle) ConfirmPayment(ctx context.Context, orderID uuid.UUID, transactionID string) (bool, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := l.newStore(tx)

	_, err = store.CompletePayment(ctx, database.CompletePaymentParams{
		OrderID:       orderID,
		TransactionID: database.Text(transactionID),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("complete payment: %w", err)
	}

	confirmed := true
	_, err = store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:       orderID,
		Status:   enum.OrderStatusConfirmed,
		Status_2: enum.OrderStatusPending,
	})
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("confirm order: %w", err)
		}
		// Staff already moved or cancelled the order; the payment still counts.
		confirmed = false
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	if !confirmed {
		return false, nil
	}

	d, err := LoadOrderDetail(ctx, l.store, orderID)
	if err != nil {
		return true, err
	}
	l.afterTransition(ctx, d, enum.OrderStatusPending)
	return true, nil
}

// FailPayment marks a PENDING payment FAILED. The order keeps its status so
// the customer can retry.
func (l *Lifecycle) FailPayment(ctx context.Context, orderID uuid.UUID, transactionID string) error {
	_, err := l.store.FailPayment(ctx, database.FailPaymentParams{
		OrderID:       orderID,
		TransactionID: database.Text(transactionID),
	})
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("fail payment: %w", err)
	}
	return nil
}

// Reprint files a new print job for an existing order. Earlier jobs are left
// untouched.
func (l *Lifecycle) Reprint(ctx context.Context, id uuid.UUID) (printjob.Job, error) {
	d, err := LoadOrderDetail(ctx, l.store, id)
	if err != nil {
		return printjob.Job{}, err
	}
	return l.printer.Enqueue(ctx, d.PrintOrder())
}

// afterTransition runs the side effects of a committed status change. None
// of them can fail the caller.
func (l *Lifecycle) afterTransition(ctx context.Context, d *OrderDetail, previous string) {
	l.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", d.Status)))

	if d.Status == enum.OrderStatusConfirmed {
		l.notifier.Confirmed(d)
		l.print(ctx, d)
	} else {
		l.notifier.StatusChanged(d)
	}

	publishEvent(ctx, l.tasks, l.publisher, events.OrderEvent{
		Type:           events.TypeOrderStatusChanged,
		OrderID:        d.ID.String(),
		OrderNumber:    d.OrderNumber,
		Status:         d.Status,
		PreviousStatus: previous,
		PaymentMethod:  d.PaymentMethod,
		Total:          d.Total,
		OccurredAt:     l.now(),
	})
}

func (l *Lifecycle) print(ctx context.Context, d *OrderDetail) {
	if l.printer == nil {
		return
	}
	snapshot := d.PrintOrder()
	l.tasks.Go(ctx, "print order "+d.OrderNumber, func(ctx context.Context) error {
		job, err := l.printer.Enqueue(ctx, snapshot)
		if err != nil {
			return fmt.Errorf("order %s: %w", d.ID, err)
		}
		logger.Info(ctx, "print job created",
			zap.String("order_id", d.ID.String()),
			zap.String("print_job_id", job.ID.String()))
		return nil
	})
}
