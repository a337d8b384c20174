package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mavi-pizzeria/api/internal/apperr"
	"github.com/mavi-pizzeria/api/internal/database"
	"github.com/mavi-pizzeria/api/internal/middleware"
)

// UserStore defines the database methods needed by profile handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type UserStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	UpdateUserProfile(ctx context.Context, arg database.UpdateUserProfileParams) (database.User, error)
}

// UserHandler serves the signed-in customer's own profile.
type UserHandler struct {
	store UserStore
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{store: store}
}

// RegisterRoutes registers profile endpoints. Expected to be mounted behind
// Authenticate at /users.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/profile", h.Profile)
	r.Put("/profile", h.UpdateProfile)
}

type updateProfileRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Phone     string `json:"phone" validate:"omitempty,max=30"`
}

// Profile returns the caller's profile.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	user, err := h.store.GetUserByID(r.Context(), claims.UserID)
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

// UpdateProfile replaces the caller's name and phone. Email is immutable.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	user, err := h.store.UpdateUserProfile(r.Context(), database.UpdateUserProfileParams{
		ID:        claims.UserID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     database.Text(req.Phone),
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
