package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mavi-pizzeria/api/internal/apperr"
	"github.com/mavi-pizzeria/api/internal/database"
	"github.com/mavi-pizzeria/api/internal/middleware"
)

// CustomerStore defines the database methods needed by the admin customer
// handlers. Satisfied by *database.Queries; narrow interface for testability.
type CustomerStore interface {
	ListCustomers(ctx context.Context, arg database.ListCustomersParams) ([]database.ListCustomersRow, error)
	CountCustomers(ctx context.Context, search pgtype.Text) (int64, error)
	SetUserActive(ctx context.Context, arg database.SetUserActiveParams) (database.User, error)
}

// CustomerHandler lets staff browse and (de)activate customer accounts.
type CustomerHandler struct {
	store CustomerStore
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(store CustomerStore) *CustomerHandler {
	return &CustomerHandler{store: store}
}

// RegisterRoutes registers customer admin endpoints on the given Chi router.
// Expected to be mounted behind RequireAdmin at /admin/users.
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.With(middleware.RequireManager).Patch("/{id}/status", h.SetStatus)
}

// --- Request / Response types ---

type setCustomerStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

type customerResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Phone       *string    `json:"phone"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   *time.Time `json:"created_at"`
	OrderCount  int64      `json:"order_count"`
	LastOrderAt *time.Time `json:"last_order_at"`
}

type customerListResponse struct {
	Customers  []customerResponse `json:"customers"`
	Pagination pagination         `json:"pagination"`
}

func toCustomerResponse(c database.ListCustomersRow) customerResponse {
	resp := customerResponse{
		ID:         c.ID.String(),
		Email:      c.Email,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		IsActive:   c.IsActive,
		OrderCount: c.OrderCount,
	}
	if c.Phone.Valid {
		resp.Phone = &c.Phone.String
	}
	if c.CreatedAt.Valid {
		resp.CreatedAt = &c.CreatedAt.Time
	}
	if c.LastOrderAt.Valid {
		resp.LastOrderAt = &c.LastOrderAt.Time
	}
	return resp
}

// --- Handlers ---

// List returns customers newest first, optionally filtered by ?search on
// name or email.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	p := parsePage(r)
	search := database.Text(strings.TrimSpace(r.URL.Query().Get("search")))

	rows, err := h.store.ListCustomers(r.Context(), database.ListCustomersParams{
		Search: search,
		Limit:  p.Limit,
		Offset: p.Offset(),
	})
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	total, err := h.store.CountCustomers(r.Context(), search)
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	resp := customerListResponse{
		Customers:  make([]customerResponse, len(rows)),
		Pagination: p.Result(total),
	}
	for i, row := range rows {
		resp.Customers[i] = toCustomerResponse(row)
	}
	apperr.WriteData(w, http.StatusOK, resp)
}

// SetStatus activates or deactivates a customer account.
func (h *CustomerHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	var req setCustomerStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	user, err := h.store.SetUserActive(r.Context(), database.SetUserActiveParams{
		ID:       id,
		IsActive: *req.IsActive,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apperr.WriteError(w, r, errUserNotFound)
			return
		}
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteData(w, http.StatusOK, toUserResponse(user))
}
