package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mavi-pizzeria/api/internal/auth"
	"github.com/mavi-pizzeria/api/internal/database"
	"github.com/mavi-pizzeria/api/internal/enum"
	"github.com/mavi-pizzeria/api/internal/handler"
)

// --- Mock store ---

type mockAuthStore struct {
	userByEmail  map[string]database.User
	userByID     map[uuid.UUID]database.User
	adminByEmail map[string]database.Admin
	adminByID    map[uuid.UUID]database.Admin
}

func newMockAuthStore() *mockAuthStore {
	return &mockAuthStore{
		userByEmail:  make(map[string]database.User),
		userByID:     make(map[uuid.UUID]database.User),
		adminByEmail: make(map[string]database.Admin),
		adminByID:    make(map[uuid.UUID]database.Admin),
	}
}

func (m *mockAuthStore) addUser(u database.User) {
	m.userByEmail[u.Email] = u
	m.userByID[u.ID] = u
}

func (m *mockAuthStore) addAdmin(a database.Admin) {
	m.adminByEmail[a.Email] = a
	m.adminByID[a.ID] = a
}

func (m *mockAuthStore) GetUserByEmail(_ context.Context, email string) (database.User, error) {
	u, ok := m.userByEmail[email]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthStore) GetUserByID(_ context.Context, id uuid.UUID) (database.User, error) {
	u, ok := m.userByID[id]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthStore) CreateUser(_ context.Context, arg database.CreateUserParams) (database.User, error) {
	if _, ok := m.userByEmail[arg.Email]; ok {
		return database.User{}, &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	}
	u := database.User{
		ID:             uuid.New(),
		Email:          arg.Email,
		HashedPassword: arg.HashedPassword,
		FirstName:      arg.FirstName,
		LastName:       arg.LastName,
		Phone:          arg.Phone,
		IsActive:       true,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	m.addUser(u)
	return u, nil
}

func (m *mockAuthStore) GetAdminByEmail(_ context.Context, email string) (database.Admin, error) {
	a, ok := m.adminByEmail[email]
	if !ok {
		return database.Admin{}, pgx.ErrNoRows
	}
	return a, nil
}

func (m *mockAuthStore) GetAdminByID(_ context.Context, id uuid.UUID) (database.Admin, error) {
	a, ok := m.adminByID[id]
	if !ok {
		return database.Admin{}, pgx.ErrNoRows
	}
	return a, nil
}

// --- Helpers ---

func makeTestUser(t *testing.T) database.User {
	t.Helper()
	return database.User{
		ID:             uuid.New(),
		Email:          "matti@example.com",
		HashedPassword: hashPassword(t, "correct-password"),
		FirstName:      "Matti",
		LastName:       "Virtanen",
		Phone:          text("+358401234567"),
		IsActive:       true,
	}
}

func makeTestAdmin(t *testing.T, role string) database.Admin {
	t.Helper()
	return database.Admin{
		ID:             uuid.New(),
		Email:          "staff@example.com",
		HashedPassword: hashPassword(t, "staff-password"),
		FullName:       "Kaisa Staff",
		Role:           role,
		IsActive:       true,
	}
}

func setupAuthRouter(store *mockAuthStore) *chi.Mux {
	h := handler.NewAuthHandler(store, handler.TokenConfig{
		Secret:        testSecret,
		TTL:           time.Hour,
		RefreshSecret: testRefreshSecret,
		RefreshTTL:    24 * time.Hour,
	})
	r := chi.NewRouter()
	r.Route("/auth", h.RegisterRoutes)
	r.Route("/admin/auth", h.RegisterAdminRoutes)
	return r
}

// --- Register tests ---

func TestRegister_Success(t *testing.T) {
	store := newMockAuthStore()
	r := setupAuthRouter(store)

	rr := postJSON(t, r, "/auth/register", map[string]string{
		"email":      "uusi@example.com",
		"password":   "salasana123",
		"first_name": "Uusi",
		"last_name":  "Asiakas",
	})
	assertStatus(t, rr, http.StatusCreated)

	data := decodeData(t, rr)
	if data["access_token"] == nil || data["access_token"] == "" {
		t.Error("expected non-empty access_token")
	}
	if data["refresh_token"] == nil || data["refresh_token"] == "" {
		t.Error("expected non-empty refresh_token")
	}
	user := data["user"].(map[string]interface{})
	if user["email"] != "uusi@example.com" {
		t.Errorf("user email: got %v, want uusi@example.com", user["email"])
	}
	if _, ok := user["hashed_password"]; ok {
		t.Error("response leaks hashed_password")
	}

	stored := store.userByEmail["uusi@example.com"]
	if stored.HashedPassword == "salasana123" {
		t.Error("password stored in plain text")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	store := newMockAuthStore()
	store.addUser(makeTestUser(t))
	r := setupAuthRouter(store)

	rr := postJSON(t, r, "/auth/register", map[string]string{
		"email":      "matti@example.com",
		"password":   "salasana123",
		"first_name": "Matti",
		"last_name":  "Toinen",
	})
	assertStatus(t, rr, http.StatusConflict)
	assertMessage(t, rr, "email already registered")
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]string
		msg  string
	}{
		{"missing email", map[string]string{"password": "salasana123", "first_name": "A", "last_name": "B"}, "email is required"},
		{"bad email", map[string]string{"email": "nope", "password": "salasana123", "first_name": "A", "last_name": "B"}, "email must be a valid email"},
		{"short password", map[string]string{"email": "a@b.fi", "password": "short", "first_name": "A", "last_name": "B"}, "password must be at least 8"},
		{"missing name", map[string]string{"email": "a@b.fi", "password": "salasana123", "last_name": "B"}, "first_name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupAuthRouter(newMockAuthStore())
			rr := postJSON(t, r, "/auth/register", tt.body)
			assertStatus(t, rr, http.StatusBadRequest)
			assertMessage(t, rr, tt.msg)
		})
	}
}

// --- Login tests ---

func TestLogin_ValidCredentials(t *testing.T) {
	store := newMockAuthStore()
	user := makeTestUser(t)
	store.addUser(user)
	r := setupAuthRouter(store)

	rr := postJSON(t, r, "/auth/login", map[string]string{
		"email":    "matti@example.com",
		"password": "correct-password",
	})
	assertStatus(t, rr, http.StatusOK)

	data := decodeData(t, rr)
	accessToken, ok := data["access_token"].(string)
	if !ok || accessToken == "" {
		t.Fatal("expected non-empty access_token string")
	}

	claims, err := auth.ValidateToken(testSecret, accessToken)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("claims user ID: got %v, want %v", claims.UserID, user.ID)
	}
	if claims.Role != enum.RoleCustomer {
		t.Errorf("claims role: got %q, want %q", claims.Role, enum.RoleCustomer)
	}

	userResp := data["user"].(map[string]interface{})
	if userResp["phone"] != "+358401234567" {
		t.Errorf("user phone: got %v", userResp["phone"])
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	store := newMockAuthStore()
	store.addUser(makeTestUser(t))
	r := setupAuthRouter(store)

	rr := postJSON(t, r, "/auth/login", map[string]string{
		"email":    "matti@example.com",
		"password": "wrong-password",
	})
	assertStatus(t, rr, http.StatusUnauthorized)
	assertMessage(t, rr, "invalid credentials")
}

func TestLogin_UserNotFound(t *testing.T) {
	r := setupAuthRouter(newMockAuthStore())

	rr := postJSON(t, r, "/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "password",
	})
	assertStatus(t, rr, http.StatusUnauthorized)
}

func TestLogin_Deactivated(t *testing.T) {
	store := newMockAuthStore()
	user := makeTestUser(t)
	user.IsActive = false
	store.addUser(user)
	r := setupAuthRouter(store)

	rr := postJSON(t, r, "/auth/login", map[string]string{
		"email":    "matti@example.com",
		"password": "correct-password",
	})
	assertStatus(t, rr, http.StatusForbidden)
	assertMessage(t, rr, "account is deactivated")
}

func TestLogin_MissingFields(t *testing.T) {
	r := setupAuthRouter(newMockAuthStore())

	rr := postJSON(t, r, "/auth/login", map[string]string{
		"email": "matti@example.com",
	})
	assertStatus(t, rr, http.StatusBadRequest)
}

// --- Refresh tests ---

func TestRefresh_ValidToken(t *testing.T) {
	store := newMockAuthStore()
	user := makeTestUser(t)
	store.addUser(user)
	r := setupAuthRouter(store)

	refreshToken, err := auth.GenerateRefreshToken(testRefreshSecret, time.Hour, user.ID)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	rr := postJSON(t, r, "/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	})
	assertStatus(t, rr, http.StatusOK)

	data := decodeData(t, rr)
	if data["access_token"] == nil || data["access_token"] == "" {
		t.Error("expected non-empty access_token")
	}
	if data["refresh_token"] == nil || data["refresh_token"] == "" {
		t.Error("expected non-empty refresh_token")
	}
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	store := newMockAuthStore()
	user := makeTestUser(t)
	store.addUser(user)
	r := setupAuthRouter(store)

	rr := postJSON(t, r, "/auth/refresh", map[string]string{
		"refresh_token": customerToken(t, user.ID),
	})
	assertStatus(t, rr, http.StatusUnauthorized)
}

func TestRefresh_UserDeleted(t *testing.T) {
	store := newMockAuthStore()
	refreshToken, err := auth.GenerateRefreshToken(testRefreshSecret, time.Hour, uuid.New())
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}
	r := setupAuthRouter(store)

	rr := postJSON(t, r, "/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	})
	assertStatus(t, rr, http.StatusUnauthorized)
}

func TestRefresh_MissingField(t *testing.T) {
	r := setupAuthRouter(newMockAuthStore())
	rr := postJSON(t, r, "/auth/refresh", map[string]string{})
	assertStatus(t, rr, http.StatusBadRequest)
}

// --- Me tests ---

func TestMe(t *testing.T) {
	store := newMockAuthStore()
	user := makeTestUser(t)
	store.addUser(user)
	r := setupAuthRouter(store)

	rr := doJSON(t, r, http.MethodGet, "/auth/me", nil, customerToken(t, user.ID))
	assertStatus(t, rr, http.StatusOK)

	data := decodeData(t, rr)
	if data["id"] != user.ID.String() {
		t.Errorf("id: got %v, want %s", data["id"], user.ID)
	}
}

func TestMe_NoToken(t *testing.T) {
	r := setupAuthRouter(newMockAuthStore())
	rr := doJSON(t, r, http.MethodGet, "/auth/me", nil, "")
	assertStatus(t, rr, http.StatusUnauthorized)
}

// --- Admin auth tests ---

func TestAdminLogin(t *testing.T) {
	store := newMockAuthStore()
	admin := makeTestAdmin(t, enum.AdminRoleManager)
	store.addAdmin(admin)
	r := setupAuthRouter(store)

	rr := postJSON(t, r, "/admin/auth/login", map[string]string{
		"email":    "staff@example.com",
		"password": "staff-password",
	})
	assertStatus(t, rr, http.StatusOK)

	data := decodeData(t, rr)
	claims, err := auth.ValidateToken(testSecret, data["access_token"].(string))
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if !claims.IsAdmin() {
		t.Error("expected admin claims")
	}
	if claims.AdminRole != enum.AdminRoleManager {
		t.Errorf("admin role: got %q, want %q", claims.AdminRole, enum.AdminRoleManager)
	}
}

func TestAdminLogin_CustomerCredentialsRejected(t *testing.T) {
	store := newMockAuthStore()
	store.addUser(makeTestUser(t))
	r := setupAuthRouter(store)

	rr := postJSON(t, r, "/admin/auth/login", map[string]string{
		"email":    "matti@example.com",
		"password": "correct-password",
	})
	assertStatus(t, rr, http.StatusUnauthorized)
}

func TestAdminVerify(t *testing.T) {
	store := newMockAuthStore()
	admin := makeTestAdmin(t, enum.AdminRoleStaff)
	store.addAdmin(admin)
	r := setupAuthRouter(store)

	rr := doJSON(t, r, http.MethodGet, "/admin/auth/verify", nil, adminToken(t, admin.ID, enum.AdminRoleStaff))
	assertStatus(t, rr, http.StatusOK)
	data := decodeData(t, rr)
	if data["role"] != enum.AdminRoleStaff {
		t.Errorf("role: got %v, want %s", data["role"], enum.AdminRoleStaff)
	}
}

func TestAdminVerify_CustomerForbidden(t *testing.T) {
	r := setupAuthRouter(newMockAuthStore())
	rr := doJSON(t, r, http.MethodGet, "/admin/auth/verify", nil, customerToken(t, uuid.New()))
	assertStatus(t, rr, http.StatusForbidden)
}
