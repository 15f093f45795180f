package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/lukema95/xbit-wallet/internal/logger"
)

// RequestID attaches a unique request ID to each incoming request. The ID is
// stored in context for log enrichment and echoed in the X-Request-ID
// response header for client correlation. An ID supplied by an upstream
// proxy is kept.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := logger.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
