package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/lukema95/xbit-wallet/pkg/errors"
)

// Context keys
type contextKey string

const adminKey contextKey = "admin"

// WithAdmin marks the context as carrying administrator privilege.
func WithAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, adminKey, true)
}

// IsAdmin reports whether the context carries administrator privilege.
func IsAdmin(ctx context.Context) bool {
	v, ok := ctx.Value(adminKey).(bool)
	return ok && v
}

// AdminAuthMiddleware authenticates the administrator identity that owns the
// DKIM record and account registries. The bearer token is compared against a
// bcrypt hash so the plaintext token never lives in configuration.
type AdminAuthMiddleware struct {
	tokenHash string
}

// NewAdminAuthMiddleware creates a new administrator authentication
// middleware from a bcrypt token hash.
func NewAdminAuthMiddleware(tokenHash string) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{tokenHash: tokenHash}
}

// Authenticate validates the Authorization: Bearer token and marks the
// request context as administrative on success.
func (m *AdminAuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.writeError(w, apperrors.NewWithDetail(
				apperrors.ErrCodeUnauthorized,
				"Missing Authorization header",
				"",
				http.StatusUnauthorized,
			))
			return
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			m.writeError(w, apperrors.NewWithDetail(
				apperrors.ErrCodeUnauthorized,
				"Invalid Authorization header",
				"Expected: Bearer <token>",
				http.StatusUnauthorized,
			))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(m.tokenHash), []byte(token)); err != nil {
			m.writeError(w, apperrors.ErrNotAuthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context())))
	})
}

func (m *AdminAuthMiddleware) writeError(w http.ResponseWriter, appErr *apperrors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"error": appErr})
}
