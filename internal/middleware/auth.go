package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/mavi-pizzeria/api/internal/apperr"
	"github.com/mavi-pizzeria/api/internal/auth"
	"github.com/mavi-pizzeria/api/internal/enum"
)

type contextKey string

const claimsKey contextKey = "claims"

// APIKeyHeader carries the printer agent's shared secret.
const APIKeyHeader = "x-api-key"

var (
	errMissingAuth   = apperr.Unauthorized("missing authorization header")
	errInvalidFormat = apperr.Unauthorized("invalid authorization format")
	errInvalidToken  = apperr.Unauthorized("invalid token")
	errNotAuthed     = apperr.Unauthorized("not authenticated")
	errAdminOnly     = apperr.Forbidden("admin access required")
	errInsufficient  = apperr.Forbidden("insufficient permissions")
	errInvalidAPIKey = apperr.Unauthorized("invalid API key")
)

func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				apperr.WriteError(w, r, errMissingAuth)
				return
			}

			claims, err := parseBearer(jwtSecret, header)
			if err != nil {
				apperr.WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches claims when a valid bearer token is present and
// otherwise lets the request through as a guest.
func OptionalAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if header := r.Header.Get("Authorization"); header != "" {
				if claims, err := parseBearer(jwtSecret, header); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), claimsKey, claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			apperr.WriteError(w, r, errNotAuthed)
			return
		}
		if !claims.IsAdmin() {
			apperr.WriteError(w, r, errAdminOnly)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits staff whose admin role is one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				apperr.WriteError(w, r, errNotAuthed)
				return
			}

			if claims.IsAdmin() {
				for _, role := range roles {
					if claims.AdminRole == role {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			apperr.WriteError(w, r, errInsufficient)
		})
	}
}

// RequireManager is RequireRole for OWNER and MANAGER.
func RequireManager(next http.Handler) http.Handler {
	return RequireRole(enum.AdminRoleOwner, enum.AdminRoleManager)(next)
}

// RequireAPIKey checks the x-api-key header in constant time.
func RequireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(APIKeyHeader)
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				apperr.WriteError(w, r, errInvalidAPIKey)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// WithClaims returns ctx carrying claims. Handler tests use it to skip token
// issuance.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func parseBearer(secret, header string) (*auth.Claims, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, errInvalidFormat
	}
	claims, err := auth.ValidateToken(secret, parts[1])
	if err != nil {
		return nil, errInvalidToken
	}
	return claims, nil
}
