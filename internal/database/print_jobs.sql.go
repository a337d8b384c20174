package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const printJobColumns = `id, order_id, store_id, status, content, printer_name, attempts, last_error, created_at, updated_at`

func scanPrintJob(row rowScanner) (PrintJob, error) {
	var i PrintJob
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.StoreID,
		&i.Status,
		&i.Content,
		&i.PrinterName,
		&i.Attempts,
		&i.LastError,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createPrintJob = `-- name: CreatePrintJob :one
INSERT INTO print_jobs (order_id, store_id, content)
VALUES ($1, $2, $3)
RETURNING ` + printJobColumns

type CreatePrintJobParams struct {
	OrderID pgtype.UUID `json:"order_id"`
	StoreID string      `json:"store_id"`
	Content []byte      `json:"content"`
}

func (q *Queries) CreatePrintJob(ctx context.Context, arg CreatePrintJobParams) (PrintJob, error) {
	return scanPrintJob(q.db.QueryRow(ctx, createPrintJob, arg.OrderID, arg.StoreID, arg.Content))
}

const listPendingPrintJobs = `-- name: ListPendingPrintJobs :many
SELECT pj.id, pj.order_id, pj.store_id, pj.status, pj.content, pj.printer_name, pj.attempts,
       pj.last_error, pj.created_at, pj.updated_at,
       o.order_number, o.created_at AS order_created_at
FROM print_jobs pj
LEFT JOIN orders o ON o.id = pj.order_id
WHERE pj.status = 'PENDING'
  AND ($1::text IS NULL OR pj.store_id = $1)
ORDER BY pj.created_at ASC, pj.id
`

type ListPendingPrintJobsRow struct {
	PrintJob
	OrderNumber    pgtype.Text        `json:"order_number"`
	OrderCreatedAt pgtype.Timestamptz `json:"order_created_at"`
}

func (q *Queries) ListPendingPrintJobs(ctx context.Context, storeID pgtype.Text) ([]ListPendingPrintJobsRow, error) {
	rows, err := q.db.Query(ctx, listPendingPrintJobs, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListPendingPrintJobsRow{}
	for rows.Next() {
		var i ListPendingPrintJobsRow
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.StoreID,
			&i.Status,
			&i.Content,
			&i.PrinterName,
			&i.Attempts,
			&i.LastError,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.OrderNumber,
			&i.OrderCreatedAt,
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

const getPrintJob = `-- name: GetPrintJob :one
SELECT ` + printJobColumns + ` FROM print_jobs WHERE id = $1
`

func (q *Queries) GetPrintJob(ctx context.Context, id uuid.UUID) (PrintJob, error) {
	return scanPrintJob(q.db.QueryRow(ctx, getPrintJob, id))
}

const claimPrintJob = `-- name: ClaimPrintJob :one
UPDATE print_jobs
SET status = 'PROCESSING', printer_name = $2, attempts = attempts + 1, updated_at = now()
WHERE id = $1 AND status = 'PENDING'
RETURNING ` + printJobColumns

// ClaimPrintJobParams moves a PENDING job to PROCESSING in one statement.
// Returns pgx.ErrNoRows when the job is missing or no longer PENDING.
type ClaimPrintJobParams struct {
	ID          uuid.UUID   `json:"id"`
	PrinterName pgtype.Text `json:"printer_name"`
}

func (q *Queries) ClaimPrintJob(ctx context.Context, arg ClaimPrintJobParams) (PrintJob, error) {
	return scanPrintJob(q.db.QueryRow(ctx, claimPrintJob, arg.ID, arg.PrinterName))
}

const updatePrintJobStatus = `-- name: UpdatePrintJobStatus :one
UPDATE print_jobs
SET status = $2, last_error = $3, updated_at = now()
WHERE id = $1
RETURNING ` + printJobColumns

type UpdatePrintJobStatusParams struct {
	ID        uuid.UUID   `json:"id"`
	Status    string      `json:"status"`
	LastError pgtype.Text `json:"last_error"`
}

func (q *Queries) UpdatePrintJobStatus(ctx context.Context, arg UpdatePrintJobStatusParams) (PrintJob, error) {
	return scanPrintJob(q.db.QueryRow(ctx, updatePrintJobStatus, arg.ID, arg.Status, arg.LastError))
}

const reclaimStalePrintJobs = `-- name: ReclaimStalePrintJobs :many
UPDATE print_jobs
SET status = 'PENDING', printer_name = NULL, updated_at = now()
WHERE status = 'PROCESSING' AND updated_at < $1
RETURNING ` + printJobColumns

func (q *Queries) ReclaimStalePrintJobs(ctx context.Context, before time.Time) ([]PrintJob, error) {
	rows, err := q.db.Query(ctx, reclaimStalePrintJobs, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []PrintJob{}
	for rows.Next() {
		i, err := scanPrintJob(rows)
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
