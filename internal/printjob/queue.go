package printjob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mavi-pizzeria/api/internal/apperr"
	"github.com/mavi-pizzeria/api/internal/database"
	"github.com/mavi-pizzeria/api/internal/enum"
	"github.com/mavi-pizzeria/api/internal/ws"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/mavi-pizzeria/api/internal/printjob"

var (
	ErrJobNotFound         = apperr.NotFound("print job not found")
	ErrAlreadyClaimed      = apperr.Conflict("print job already claimed or processed")
	ErrInvalidJobStatus    = apperr.Validation("status must be COMPLETED or FAILED")
	ErrPrinterNameRequired = apperr.Validation("printer_name is required")
)

// Store defines the DB methods needed by Queue.
// Satisfied by *database.Queries; narrow interface for testability.
type Store interface {
	CreatePrintJob(ctx context.Context, arg database.CreatePrintJobParams) (database.PrintJob, error)
	ListPendingPrintJobs(ctx context.Context, storeID pgtype.Text) ([]database.ListPendingPrintJobsRow, error)
	GetPrintJob(ctx context.Context, id uuid.UUID) (database.PrintJob, error)
	ClaimPrintJob(ctx context.Context, arg database.ClaimPrintJobParams) (database.PrintJob, error)
	UpdatePrintJobStatus(ctx context.Context, arg database.UpdatePrintJobStatusParams) (database.PrintJob, error)
	ReclaimStalePrintJobs(ctx context.Context, before time.Time) ([]database.PrintJob, error)
}

// Emitter delivers real-time events. Satisfied by *ws.Hub.
type Emitter interface {
	Emit(room, event string, payload any)
}

// Job is the API view of a print job.
type Job struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     *uuid.UUID      `json:"order_id"`
	StoreID     string          `json:"store_id"`
	Status      string          `json:"status"`
	Content     json.RawMessage `json:"content"`
	PrinterName *string         `json:"printer_name"`
	Attempts    int32           `json:"attempts"`
	LastError   *string         `json:"last_error"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Order       *JobOrder       `json:"order,omitempty"`
}

type JobOrder struct {
	OrderNumber string    `json:"order_number"`
	CreatedAt   time.Time `json:"created_at"`
}

// Queue is the durable work list between the server and printer agents.
// Claims are a single conditional UPDATE, so concurrent agents cannot both
// win the same job.
type Queue struct {
	store   Store
	emitter Emitter
	shop    Shop
	storeID string
	now     func() time.Time
	tracer  trace.Tracer

	enqueued metric.Int64Counter
	claims   metric.Int64Counter
}

// NewQueue creates a Queue that files new jobs under storeID.
func NewQueue(store Store, emitter Emitter, shop Shop, storeID string) *Queue {
	meter := otel.Meter(instrumentationName)
	enqueued, _ := meter.Int64Counter("print_jobs_enqueued_total",
		metric.WithDescription("Print jobs created"))
	claims, _ := meter.Int64Counter("print_job_claims_total",
		metric.WithDescription("Print job claim attempts by result"))

	return &Queue{
		store:    store,
		emitter:  emitter,
		shop:     shop,
		storeID:  storeID,
		now:      time.Now,
		tracer:   otel.Tracer(instrumentationName),
		enqueued: enqueued,
		claims:   claims,
	}
}

// Enqueue builds a receipt for o and files it as a PENDING job. Printer
// agents and staff are notified.
func (q *Queue) Enqueue(ctx context.Context, o Order) (Job, error) {
	ctx, span := q.tracer.Start(ctx, "printjob.Enqueue",
		trace.WithAttributes(attribute.String("order.number", o.Number)))
	defer span.End()

	receipt := BuildReceipt(q.shop, o, q.now())
	content, err := json.Marshal(receipt)
	if err != nil {
		return Job{}, fmt.Errorf("encoding receipt: %w", err)
	}

	var orderID pgtype.UUID
	if o.ID != uuid.Nil {
		orderID = pgtype.UUID{Bytes: o.ID, Valid: true}
	}
	row, err := q.store.CreatePrintJob(ctx, database.CreatePrintJobParams{
		OrderID: orderID,
		StoreID: q.storeID,
		Content: content,
	})
	if err != nil {
		span.RecordError(err)
		return Job{}, fmt.Errorf("creating print job: %w", err)
	}

	job := toJob(row)
	q.enqueued.Add(ctx, 1)
	q.emitter.Emit(ws.PrinterRoom(job.StoreID), ws.EventPrintJobCreated, job)
	q.emitter.Emit(ws.AdminRoom, ws.EventPrintJobCreated, job)
	return job, nil
}

// ListPending returns PENDING jobs oldest first. An empty storeID lists
// every store.
func (q *Queue) ListPending(ctx context.Context, storeID string) ([]Job, error) {
	rows, err := q.store.ListPendingPrintJobs(ctx, database.Text(storeID))
	if err != nil {
		return nil, fmt.Errorf("listing pending print jobs: %w", err)
	}
	jobs := make([]Job, len(rows))
	for i, r := range rows {
		jobs[i] = toJob(r.PrintJob)
		if r.OrderNumber.Valid {
			jobs[i].Order = &JobOrder{OrderNumber: r.OrderNumber.String, CreatedAt: r.OrderCreatedAt.Time}
		}
	}
	return jobs, nil
}

func (q *Queue) Get(ctx context.Context, id uuid.UUID) (Job, error) {
	row, err := q.store.GetPrintJob(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, ErrJobNotFound
		}
		return Job{}, fmt.Errorf("getting print job: %w", err)
	}
	return toJob(row), nil
}

// Claim moves a PENDING job to PROCESSING for printerName and bumps its
// attempt counter. A job that is no longer PENDING yields ErrAlreadyClaimed.
func (q *Queue) Claim(ctx context.Context, id uuid.UUID, printerName string) (Job, error) {
	ctx, span := q.tracer.Start(ctx, "printjob.Claim",
		trace.WithAttributes(attribute.String("print_job.id", id.String())))
	defer span.End()

	if strings.TrimSpace(printerName) == "" {
		return Job{}, ErrPrinterNameRequired
	}
	row, err := q.store.ClaimPrintJob(ctx, database.ClaimPrintJobParams{
		ID:          id,
		PrinterName: database.Text(printerName),
	})
	if err == nil {
		q.claims.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "claimed")))
		return toJob(row), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		span.RecordError(err)
		return Job{}, fmt.Errorf("claiming print job: %w", err)
	}

	// The conditional update matched nothing: missing, or lost the race.
	if _, err := q.Get(ctx, id); err != nil {
		q.claims.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "not_found")))
		return Job{}, err
	}
	q.claims.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "conflict")))
	return Job{}, ErrAlreadyClaimed
}

// ReportStatus records the agent's outcome. The previous status is not
// checked, so a late COMPLETED may overwrite FAILED.
func (q *Queue) ReportStatus(ctx context.Context, id uuid.UUID, status, errText string) (Job, error) {
	if status != enum.PrintJobStatusCompleted && status != enum.PrintJobStatusFailed {
		return Job{}, ErrInvalidJobStatus
	}
	row, err := q.store.UpdatePrintJobStatus(ctx, database.UpdatePrintJobStatusParams{
		ID:        id,
		Status:    status,
		LastError: database.Text(errText),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, ErrJobNotFound
		}
		return Job{}, fmt.Errorf("updating print job status: %w", err)
	}
	return toJob(row), nil
}

// Reclaim returns PROCESSING jobs untouched for longer than olderThan to
// PENDING and announces them again.
func (q *Queue) Reclaim(ctx context.Context, olderThan time.Duration) ([]Job, error) {
	rows, err := q.store.ReclaimStalePrintJobs(ctx, q.now().Add(-olderThan))
	if err != nil {
		return nil, fmt.Errorf("reclaiming print jobs: %w", err)
	}
	jobs := make([]Job, len(rows))
	for i, r := range rows {
		jobs[i] = toJob(r)
		q.emitter.Emit(ws.PrinterRoom(jobs[i].StoreID), ws.EventPrintJobCreated, jobs[i])
	}
	return jobs, nil
}

// Preview renders the receipt for o without storing anything.
func (q *Queue) Preview(o Order) string {
	return PreviewText(BuildReceipt(q.shop, o, q.now()))
}

// --- Helpers ---

func toJob(r database.PrintJob) Job {
	j := Job{
		ID:        r.ID,
		StoreID:   r.StoreID,
		Status:    r.Status,
		Content:   json.RawMessage(r.Content),
		Attempts:  r.Attempts,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.OrderID.Valid {
		id := uuid.UUID(r.OrderID.Bytes)
		j.OrderID = &id
	}
	if r.PrinterName.Valid {
		j.PrinterName = &r.PrinterName.String
	}
	if r.LastError.Valid {
		j.LastError = &r.LastError.String
	}
	if len(j.Content) == 0 {
		j.Content = json.RawMessage("null")
	}
	return j
}
