package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an application-level error with HTTP status code
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	StatusCode int    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common error codes
const (
	ErrCodeUnauthorized            = "unauthorized"
	ErrCodeNotAuthorized           = "not_authorized"
	ErrCodeForbidden               = "forbidden"
	ErrCodeNotFound                = "not_found"
	ErrCodeBadRequest              = "bad_request"
	ErrCodeInternalError           = "internal_error"
	ErrCodeRateLimited             = "rate_limited"
	ErrCodeMalformedEmail          = "malformed_email"
	ErrCodeBodyHashMismatch        = "body_hash_mismatch"
	ErrCodeHeaderLengthMismatch    = "header_length_mismatch"
	ErrCodeUnrecognizedHeaderField = "unrecognized_header_field"
	ErrCodeUnsupportedAlgorithm    = "unsupported_algorithm"
	ErrCodeRecordAlreadyExists     = "record_already_exists"
	ErrCodeRecordNotFound          = "record_not_found"
	ErrCodeAccountNotFound         = "account_not_found"
	ErrCodeInvalidReceiver         = "invalid_receiver"
	ErrCodeInvalidSubject          = "invalid_subject"
	ErrCodeInvalidSignature        = "invalid_signature"
	ErrCodeRelayFailed             = "relay_failed"
)

// Predefined errors
var (
	ErrUnauthorized = &AppError{
		Code:       ErrCodeUnauthorized,
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrNotAuthorized = &AppError{
		Code:       ErrCodeNotAuthorized,
		Message:    "Administrator privilege required",
		StatusCode: http.StatusForbidden,
	}

	ErrForbidden = &AppError{
		Code:       ErrCodeForbidden,
		Message:    "Access denied",
		StatusCode: http.StatusForbidden,
	}

	ErrNotFound = &AppError{
		Code:       ErrCodeNotFound,
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &AppError{
		Code:       ErrCodeBadRequest,
		Message:    "Invalid request parameters",
		StatusCode: http.StatusBadRequest,
	}

	ErrInternalError = &AppError{
		Code:       ErrCodeInternalError,
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}
)

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewWithDetail creates a new AppError with additional detail
func NewWithDetail(code, message, detail string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Detail:     detail,
		StatusCode: statusCode,
	}
}

// MalformedEmail creates a malformed email error
func MalformedEmail(detail string) *AppError {
	return &AppError{
		Code:       ErrCodeMalformedEmail,
		Message:    "Malformed email message",
		Detail:     detail,
		StatusCode: http.StatusBadRequest,
	}
}

// RecordAlreadyExists creates a duplicate DKIM record error
func RecordAlreadyExists(domain string) *AppError {
	return &AppError{
		Code:       ErrCodeRecordAlreadyExists,
		Message:    "DKIM record already exists",
		Detail:     fmt.Sprintf("domain: %s", domain),
		StatusCode: http.StatusConflict,
	}
}

// RecordNotFound creates a missing DKIM record error
func RecordNotFound(domain string) *AppError {
	return &AppError{
		Code:       ErrCodeRecordNotFound,
		Message:    "DKIM record not found",
		Detail:     fmt.Sprintf("domain: %s", domain),
		StatusCode: http.StatusNotFound,
	}
}

// AccountNotFound creates a missing account error
func AccountNotFound(email string) *AppError {
	return &AppError{
		Code:       ErrCodeAccountNotFound,
		Message:    "Account not registered for recovery",
		Detail:     fmt.Sprintf("email: %s", email),
		StatusCode: http.StatusNotFound,
	}
}

// InvalidSignature creates an invalid signature error
func InvalidSignature(detail string) *AppError {
	return &AppError{
		Code:       ErrCodeInvalidSignature,
		Message:    "DKIM signature verification failed",
		Detail:     detail,
		StatusCode: http.StatusUnauthorized,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
