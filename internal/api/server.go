package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lukema95/xbit-wallet/internal/config"
	"github.com/lukema95/xbit-wallet/internal/crypto"
	"github.com/lukema95/xbit-wallet/internal/email"
	"github.com/lukema95/xbit-wallet/internal/logger"
	"github.com/lukema95/xbit-wallet/internal/middleware"
	"github.com/lukema95/xbit-wallet/internal/recovery"
	apperrors "github.com/lukema95/xbit-wallet/pkg/errors"
)

// Server represents the HTTP server
type Server struct {
	config          *config.Config
	recoveryService RecoveryService
	registryService RegistryService
	adminAuth       *middleware.AdminAuthMiddleware
	rateLimiter     *middleware.RateLimiter
	httpServer      *http.Server
}

// NewServer creates a new API server
func NewServer(
	cfg *config.Config,
	recoveryService RecoveryService,
	registryService RegistryService,
	adminAuth *middleware.AdminAuthMiddleware,
	rateLimiter *middleware.RateLimiter,
) *Server {
	return &Server{
		config:          cfg,
		recoveryService: recoveryService,
		registryService: registryService,
		adminAuth:       adminAuth,
		rateLimiter:     rateLimiter,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Health check and metrics (no auth required)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	// Recovery submission. Unauthenticated: authorization comes from the
	// DKIM signature itself. Rate limited per source IP.
	mux.Handle("/v1/recovery",
		s.rateLimiter.Limit(http.HandlerFunc(s.handleRecovery)))

	// Registry routes. Reads are public, writes require the admin token.
	mux.Handle("/v1/dkim-records",
		s.adminForWrites(http.HandlerFunc(s.handleDKIMRecords)))
	mux.Handle("/v1/dkim-records/",
		s.adminForWrites(http.HandlerFunc(s.handleDKIMRecordOperations)))

	mux.Handle("/v1/accounts",
		s.adminForWrites(http.HandlerFunc(s.handleAccounts)))
	mux.Handle("/v1/accounts/",
		s.adminForWrites(http.HandlerFunc(s.handleAccountOperations)))

	s.httpServer = &http.Server{
		Addr: fmt.Sprintf(":%d", s.config.Port),
		// Chain middleware: RequestID -> Logging -> Routes
		Handler:      middleware.RequestID(s.loggingMiddleware(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info(context.Background(), "starting server", "port", s.config.Port)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// adminForWrites requires the admin bearer token for every method except GET
func (s *Server) adminForWrites(next http.Handler) http.Handler {
	protected := s.adminAuth.Authenticate(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info(r.Context(), "request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start).String(),
		)
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, err *apperrors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	json.NewEncoder(w).Encode(err)
}

// mapError converts pipeline errors into API errors. Sentinel errors from
// the email, crypto and recovery packages get stable codes so senders can
// diagnose why a signature or email was rejected.
func mapError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.IsAppError(err); ok {
		return appErr
	}

	switch {
	case errors.Is(err, email.ErrMalformedEmail):
		return apperrors.MalformedEmail(err.Error())
	case errors.Is(err, email.ErrBodyHashMismatch):
		return apperrors.NewWithDetail(apperrors.ErrCodeBodyHashMismatch,
			"Body hash does not match the signed body hash", err.Error(), http.StatusBadRequest)
	case errors.Is(err, email.ErrHeaderLengthMismatch):
		return apperrors.NewWithDetail(apperrors.ErrCodeHeaderLengthMismatch,
			"Signed header length prefix does not match payload", err.Error(), http.StatusBadRequest)
	case errors.Is(err, email.ErrUnrecognizedHeaderField):
		return apperrors.NewWithDetail(apperrors.ErrCodeUnrecognizedHeaderField,
			"Signed header carries an unrecognized field", err.Error(), http.StatusBadRequest)
	case errors.Is(err, crypto.ErrUnsupportedAlgorithm):
		return apperrors.NewWithDetail(apperrors.ErrCodeUnsupportedAlgorithm,
			"Unsupported signature algorithm", err.Error(), http.StatusBadRequest)
	case errors.Is(err, crypto.ErrInvalidSignature):
		return apperrors.InvalidSignature(err.Error())
	case errors.Is(err, recovery.ErrInvalidReceiver):
		return apperrors.NewWithDetail(apperrors.ErrCodeInvalidReceiver,
			"Email is not addressed to the recovery mailbox", err.Error(), http.StatusBadRequest)
	case errors.Is(err, recovery.ErrInvalidSubject):
		return apperrors.NewWithDetail(apperrors.ErrCodeInvalidSubject,
			"Subject does not authorize a recovery for this account", err.Error(), http.StatusConflict)
	case errors.Is(err, recovery.ErrAccountNotFound):
		return apperrors.NewWithDetail(apperrors.ErrCodeAccountNotFound,
			"No account registered for the sender address", err.Error(), http.StatusNotFound)
	case errors.Is(err, recovery.ErrRecordNotFound):
		return apperrors.NewWithDetail(apperrors.ErrCodeRecordNotFound,
			"No DKIM record for the sender domain", err.Error(), http.StatusNotFound)
	default:
		return apperrors.NewWithDetail(apperrors.ErrCodeInternalError,
			"Internal server error", err.Error(), http.StatusInternalServerError)
	}
}
