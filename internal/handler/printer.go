package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mavi-pizzeria/api/internal/apperr"
	"github.com/mavi-pizzeria/api/internal/logger"
	"github.com/mavi-pizzeria/api/internal/middleware"
	"github.com/mavi-pizzeria/api/internal/printjob"
	"github.com/mavi-pizzeria/api/internal/ws"
	"go.uber.org/zap"
)

// PrintQueue is the queue surface used by printer agents and staff.
// Satisfied by *printjob.Queue.
type PrintQueue interface {
	Enqueue(ctx context.Context, o printjob.Order) (printjob.Job, error)
	ListPending(ctx context.Context, storeID string) ([]printjob.Job, error)
	Get(ctx context.Context, id uuid.UUID) (printjob.Job, error)
	Claim(ctx context.Context, id uuid.UUID, printerName string) (printjob.Job, error)
	ReportStatus(ctx context.Context, id uuid.UUID, status, errText string) (printjob.Job, error)
	Preview(o printjob.Order) string
}

// PrinterRegistry holds the printers agents report and the staff selection.
// Satisfied by *printjob.Printers.
type PrinterRegistry interface {
	Available() []string
	Selected() string
	Select(name string)
}

// PrinterHandler serves the printer agent API and the admin print settings.
type PrinterHandler struct {
	queue    PrintQueue
	printers PrinterRegistry
	emitter  printjob.Emitter
	apiKey   string
	storeID  string
}

// NewPrinterHandler creates a new PrinterHandler. apiKey gates the agent
// routes; storeID is the room printer config updates go to.
func NewPrinterHandler(queue PrintQueue, printers PrinterRegistry, emitter printjob.Emitter, apiKey, storeID string) *PrinterHandler {
	return &PrinterHandler{queue: queue, printers: printers, emitter: emitter, apiKey: apiKey, storeID: storeID}
}

// RegisterRoutes registers the agent endpoints; mount at /printer.
func (h *PrinterHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAPIKey(h.apiKey))
		r.Get("/jobs/pending", h.Pending)
		r.Get("/jobs/{id}", h.GetJob)
		r.Post("/jobs/{id}/claim", h.Claim)
		r.Post("/jobs/{id}/status", h.ReportStatus)
	})
}

// RegisterAdminRoutes registers staff print settings; mount at /admin/print
// behind Authenticate and RequireAdmin.
func (h *PrinterHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/list", h.List)
	r.Get("/preview", h.Preview)
	r.Post("/test", h.Test)
	r.With(middleware.RequireManager).Post("/set", h.Set)
}

// --- Request / Response types ---

type claimJobRequest struct {
	PrinterName string `json:"printer_name" validate:"required,max=255"`
}

type jobStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Error  string `json:"error" validate:"max=2000"`
}

type setPrinterRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type printerListResponse struct {
	Printers []string `json:"printers"`
	Selected string   `json:"selected"`
}

type printerConfigUpdate struct {
	PrinterName string `json:"printer_name"`
}

// --- Agent handlers ---

// Pending lists PENDING jobs oldest first, optionally for one store.
func (h *PrinterHandler) Pending(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.queue.ListPending(r.Context(), r.URL.Query().Get("store_id"))
	if err != nil {
		logger.Error(r.Context(), "list pending print jobs", zap.Error(err))
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteData(w, http.StatusOK, jobs)
}

func (h *PrinterHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	job, err := h.queue.Get(r.Context(), id)
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteData(w, http.StatusOK, job)
}

// Claim hands the job to the calling agent. Losers of a race get 409.
func (h *PrinterHandler) Claim(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	var req claimJobRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	printerName := strings.TrimSpace(req.PrinterName)
	if printerName == "" {
		apperr.WriteError(w, r, printjob.ErrPrinterNameRequired)
		return
	}

	job, err := h.queue.Claim(r.Context(), id, printerName)
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	logger.Info(r.Context(), "print job claimed",
		zap.String("job_id", job.ID.String()),
		zap.String("printer", printerName),
		zap.Int32("attempts", job.Attempts))
	apperr.WriteData(w, http.StatusOK, job)
}

// ReportStatus records the printer outcome, COMPLETED or FAILED.
func (h *PrinterHandler) ReportStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	var req jobStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	job, err := h.queue.ReportStatus(r.Context(), id, strings.ToUpper(req.Status), req.Error)
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	if req.Error != "" {
		logger.Warn(r.Context(), "print job failed",
			zap.String("job_id", job.ID.String()),
			zap.String("error", req.Error))
	}
	apperr.WriteData(w, http.StatusOK, job)
}

// --- Admin handlers ---

// List returns printers reported by connected agents.
func (h *PrinterHandler) List(w http.ResponseWriter, r *http.Request) {
	apperr.WriteData(w, http.StatusOK, printerListResponse{
		Printers: h.printers.Available(),
		Selected: h.printers.Selected(),
	})
}

// Preview renders a sample receipt as plain text.
func (h *PrinterHandler) Preview(w http.ResponseWriter, r *http.Request) {
	apperr.WriteData(w, http.StatusOK, h.queue.Preview(printjob.SampleOrder()))
}

// Set stores the staff printer choice and pushes it to the agents.
func (h *PrinterHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req setPrinterRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		apperr.WriteError(w, r, apperr.Validation("name is required"))
		return
	}

	h.printers.Select(name)
	h.emitter.Emit(ws.PrinterRoom(h.storeID), ws.EventPrinterConfigUpdate, printerConfigUpdate{PrinterName: name})
	apperr.WriteMessage(w, http.StatusOK, "Printer preference sent to agent: "+name)
}

// Test enqueues a sample receipt.
func (h *PrinterHandler) Test(w http.ResponseWriter, r *http.Request) {
	job, err := h.queue.Enqueue(r.Context(), printjob.SampleOrder())
	if err != nil {
		logger.Error(r.Context(), "enqueue test print", zap.Error(err))
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteData(w, http.StatusCreated, job)
}
