package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mavi-pizzeria/api/internal/apperr"
	"github.com/mavi-pizzeria/api/internal/auth"
	"github.com/mavi-pizzeria/api/internal/database"
	"github.com/mavi-pizzeria/api/internal/enum"
	"github.com/mavi-pizzeria/api/internal/middleware"
	"golang.org/x/crypto/bcrypt"
)

var (
	errInvalidCredentials = apperr.Unauthorized("invalid credentials")
	errInvalidRefresh     = apperr.Unauthorized("invalid refresh token")
	errAccountDisabled    = apperr.Forbidden("account is deactivated")
	errEmailTaken         = apperr.Conflict("email already registered")
	errUserNotFound       = apperr.NotFound("user not found")
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetUserByEmail(ctx context.Context, email string) (database.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	GetAdminByEmail(ctx context.Context, email string) (database.Admin, error)
	GetAdminByID(ctx context.Context, id uuid.UUID) (database.Admin, error)
}

// TokenConfig carries signing secrets and lifetimes.
type TokenConfig struct {
	Secret        string
	TTL           time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

// AuthHandler handles customer and staff authentication endpoints.
type AuthHandler struct {
	store  AuthStore
	tokens TokenConfig
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, tokens TokenConfig) *AuthHandler {
	return &AuthHandler{store: store, tokens: tokens}
}

// RegisterRoutes registers customer auth endpoints; mount at /auth.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)
	r.With(middleware.Authenticate(h.tokens.Secret)).Get("/me", h.Me)
}

// RegisterAdminRoutes registers staff auth endpoints; mount at /admin/auth.
func (h *AuthHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/login", h.AdminLogin)
	r.With(middleware.Authenticate(h.tokens.Secret), middleware.RequireAdmin).Get("/verify", h.AdminVerify)
}

// --- Request / Response types ---

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Phone     string `json:"phone" validate:"omitempty,max=30"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	User         userResponse `json:"user"`
}

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     *string   `json:"phone"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type adminResponse struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Role     string    `json:"role"`
}

type adminTokenResponse struct {
	AccessToken string        `json:"access_token"`
	Admin       adminResponse `json:"admin"`
}

func toUserResponse(u database.User) userResponse {
	resp := userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
	if u.Phone.Valid {
		resp.Phone = &u.Phone.String
	}
	return resp
}

func toAdminResponse(a database.Admin) adminResponse {
	return adminResponse{ID: a.ID, Email: a.Email, FullName: a.FullName, Role: a.Role}
}

// --- Customer handlers ---

// Register creates a customer account and signs it in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	user, err := h.store.CreateUser(r.Context(), database.CreateUserParams{
		Email:          req.Email,
		HashedPassword: string(hashed),
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Phone:          database.Text(req.Phone),
	})
	if err != nil {
		if isUniqueViolation(err) {
			apperr.WriteError(w, r, errEmailTaken)
			return
		}
		apperr.WriteError(w, r, err)
		return
	}

	h.respondWithTokens(w, r, http.StatusCreated, user)
}

// Login handles email + password authentication.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apperr.WriteError(w, r, errInvalidCredentials)
			return
		}
		apperr.WriteError(w, r, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		apperr.WriteError(w, r, errInvalidCredentials)
		return
	}
	if !user.IsActive {
		apperr.WriteError(w, r, errAccountDisabled)
		return
	}

	h.respondWithTokens(w, r, http.StatusOK, user)
}

// Refresh exchanges a valid refresh token for a new access + refresh token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	userID, err := auth.ValidateRefreshToken(h.tokens.RefreshSecret, req.RefreshToken)
	if err != nil {
		apperr.WriteError(w, r, errInvalidRefresh)
		return
	}

	user, err := h.store.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apperr.WriteError(w, r, errInvalidRefresh)
			return
		}
		apperr.WriteError(w, r, err)
		return
	}
	if !user.IsActive {
		apperr.WriteError(w, r, errAccountDisabled)
		return
	}

	h.respondWithTokens(w, r, http.StatusOK, user)
}

// Me returns the signed-in customer.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
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

// --- Staff handlers ---

// AdminLogin authenticates staff. The token carries the admin role.
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	admin, err := h.store.GetAdminByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apperr.WriteError(w, r, errInvalidCredentials)
			return
		}
		apperr.WriteError(w, r, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.HashedPassword), []byte(req.Password)); err != nil {
		apperr.WriteError(w, r, errInvalidCredentials)
		return
	}
	if !admin.IsActive {
		apperr.WriteError(w, r, errAccountDisabled)
		return
	}

	token, err := auth.GenerateToken(h.tokens.Secret, h.tokens.TTL, admin.ID, admin.Email, enum.RoleAdmin, admin.Role)
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteData(w, http.StatusOK, adminTokenResponse{AccessToken: token, Admin: toAdminResponse(admin)})
}

// AdminVerify confirms a staff token still maps to an active admin.
func (h *AuthHandler) AdminVerify(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	admin, err := h.store.GetAdminByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apperr.WriteError(w, r, errUserNotFound)
			return
		}
		apperr.WriteError(w, r, err)
		return
	}
	if !admin.IsActive {
		apperr.WriteError(w, r, errAccountDisabled)
		return
	}
	apperr.WriteData(w, http.StatusOK, toAdminResponse(admin))
}

// --- Helpers ---

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, r *http.Request, status int, user database.User) {
	accessToken, err := auth.GenerateToken(h.tokens.Secret, h.tokens.TTL, user.ID, user.Email, enum.RoleCustomer, "")
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	refreshToken, err := auth.GenerateRefreshToken(h.tokens.RefreshSecret, h.tokens.RefreshTTL, user.ID)
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	apperr.WriteData(w, status, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         toUserResponse(user),
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
