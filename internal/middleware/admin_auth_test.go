package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func adminHandler(t *testing.T, gotAdmin *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotAdmin = IsAdmin(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAdminAuthMiddleware(t *testing.T) {
	token := "super-secret-admin-token"
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
	require.NoError(t, err)
	mw := NewAdminAuthMiddleware(string(hash))

	t.Run("valid_token_marks_context_admin", func(t *testing.T) {
		var isAdmin bool
		req := httptest.NewRequest(http.MethodPost, "/v1/dkim-records", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		mw.Authenticate(adminHandler(t, &isAdmin)).ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, isAdmin)
	})

	t.Run("wrong_token_rejected", func(t *testing.T) {
		var isAdmin bool
		req := httptest.NewRequest(http.MethodPost, "/v1/dkim-records", nil)
		req.Header.Set("Authorization", "Bearer wrong-token")
		rec := httptest.NewRecorder()

		mw.Authenticate(adminHandler(t, &isAdmin)).ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.False(t, isAdmin)
	})

	t.Run("missing_header_rejected", func(t *testing.T) {
		var isAdmin bool
		req := httptest.NewRequest(http.MethodPost, "/v1/dkim-records", nil)
		rec := httptest.NewRecorder()

		mw.Authenticate(adminHandler(t, &isAdmin)).ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed_header_rejected", func(t *testing.T) {
		var isAdmin bool
		req := httptest.NewRequest(http.MethodPost, "/v1/dkim-records", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()

		mw.Authenticate(adminHandler(t, &isAdmin)).ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestIsAdmin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.False(t, IsAdmin(req.Context()))
	require.True(t, IsAdmin(WithAdmin(req.Context())))
}
