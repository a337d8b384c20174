package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const paymentColumns = `id, order_id, provider, transaction_id, status, amount, currency, created_at, updated_at`

func scanPayment(row rowScanner) (Payment, error) {
	var i Payment
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.Provider,
		&i.TransactionID,
		&i.Status,
		&i.Amount,
		&i.Currency,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createPayment = `-- name: CreatePayment :one
INSERT INTO payments (order_id, provider, status, amount, currency)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + paymentColumns

type CreatePaymentParams struct {
	OrderID  uuid.UUID      `json:"order_id"`
	Provider string         `json:"provider"`
	Status   string         `json:"status"`
	Amount   pgtype.Numeric `json:"amount"`
	Currency string         `json:"currency"`
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, createPayment,
		arg.OrderID,
		arg.Provider,
		arg.Status,
		arg.Amount,
		arg.Currency,
	)
	return scanPayment(row)
}

const getPaymentByOrder = `-- name: GetPaymentByOrder :one
SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1
`

func (q *Queries) GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getPaymentByOrder, orderID))
}

const setPaymentTransaction = `-- name: SetPaymentTransaction :one
UPDATE payments
SET transaction_id = $2, updated_at = now()
WHERE order_id = $1
RETURNING ` + paymentColumns

type SetPaymentTransactionParams struct {
	OrderID       uuid.UUID   `json:"order_id"`
	TransactionID pgtype.Text `json:"transaction_id"`
}

func (q *Queries) SetPaymentTransaction(ctx context.Context, arg SetPaymentTransactionParams) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, setPaymentTransaction, arg.OrderID, arg.TransactionID))
}

const completePayment = `-- name: CompletePayment :one
UPDATE payments
SET status = 'COMPLETED', transaction_id = COALESCE($2, transaction_id), updated_at = now()
WHERE order_id = $1 AND status <> 'COMPLETED'
RETURNING ` + paymentColumns

// CompletePaymentParams marks a payment COMPLETED. Returns pgx.ErrNoRows when
// the payment is missing or was already completed.
type CompletePaymentParams struct {
	OrderID       uuid.UUID   `json:"order_id"`
	TransactionID pgtype.Text `json:"transaction_id"`
}

func (q *Queries) CompletePayment(ctx context.Context, arg CompletePaymentParams) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, completePayment, arg.OrderID, arg.TransactionID))
}

const failPayment = `-- name: FailPayment :one
UPDATE payments
SET status = 'FAILED', transaction_id = COALESCE($2, transaction_id), updated_at = now()
WHERE order_id = $1 AND status = 'PENDING'
RETURNING ` + paymentColumns

type FailPaymentParams struct {
	OrderID       uuid.UUID   `json:"order_id"`
	TransactionID pgtype.Text `json:"transaction_id"`
}

func (q *Queries) FailPayment(ctx context.Context, arg FailPaymentParams) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, failPayment, arg.OrderID, arg.TransactionID))
}
