package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mavi-pizzeria/api/internal/auth"
	"github.com/mavi-pizzeria/api/internal/database"
	"github.com/mavi-pizzeria/api/internal/enum"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret        = "test-secret"
	testRefreshSecret = "test-refresh-secret"
)

// --- Helpers ---

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(h)
}

func customerToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	tok, err := auth.GenerateToken(testSecret, time.Hour, userID, "asiakas@example.com", enum.RoleCustomer, "")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return tok
}

func adminToken(t *testing.T, adminID uuid.UUID, adminRole string) string {
	t.Helper()
	tok, err := auth.GenerateToken(testSecret, time.Hour, adminID, "staff@example.com", enum.RoleAdmin, adminRole)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return tok
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("marshal request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, router, http.MethodPost, path, body, "")
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

// decodeData returns the envelope's data object.
func decodeData(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	resp := decodeResponse(t, rr)
	if resp["success"] != true {
		t.Fatalf("success: got %v, want true; body: %v", resp["success"], resp)
	}
	data, ok := resp["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("data: got %T, want object", resp["data"])
	}
	return data
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, want, rr.Body.String())
	}
}

func assertMessage(t *testing.T, rr *httptest.ResponseRecorder, want string) {
	t.Helper()
	resp := decodeResponse(t, rr)
	if resp["success"] != false {
		t.Errorf("success: got %v, want false", resp["success"])
	}
	if resp["message"] != want {
		t.Errorf("message: got %v, want %q", resp["message"], want)
	}
}

func numeric(s string) pgtype.Numeric {
	return database.Numeric(decimal.RequireFromString(s))
}

func text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: true}
}
