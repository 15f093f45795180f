package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/lukema95/xbit-wallet/pkg/errors"
	"github.com/lukema95/xbit-wallet/pkg/types"
)

// DKIMRecordRequest registers a trusted RSA public key for a domain
type DKIMRecordRequest struct {
	Domain   string `json:"domain"`
	Exponent string `json:"exponent"` // base64, big-endian
	Modulus  string `json:"modulus"`  // base64, big-endian
}

// DKIMRecordResponse represents a DKIM record in API responses
type DKIMRecordResponse struct {
	Domain    string    `json:"domain"`
	Exponent  string    `json:"exponent"`
	Modulus   string    `json:"modulus"`
	CreatedAt time.Time `json:"created_at"`
}

func convertRecordToResponse(record *types.DKIMRecord) DKIMRecordResponse {
	return DKIMRecordResponse{
		Domain:    record.Domain,
		Exponent:  base64.StdEncoding.EncodeToString(record.Exponent),
		Modulus:   base64.StdEncoding.EncodeToString(record.Modulus),
		CreatedAt: record.CreatedAt,
	}
}

// handleDKIMRecords handles POST /v1/dkim-records
func (s *Server) handleDKIMRecords(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSetDKIMRecord(w, r)
	default:
		s.writeError(w, apperrors.New(
			apperrors.ErrCodeBadRequest,
			"Method not allowed",
			http.StatusMethodNotAllowed,
		))
	}
}

// handleDKIMRecordOperations routes /v1/dkim-records/{domain}
func (s *Server) handleDKIMRecordOperations(w http.ResponseWriter, r *http.Request) {
	domain := strings.TrimPrefix(r.URL.Path, "/v1/dkim-records/")
	if domain == "" || strings.Contains(domain, "/") {
		s.writeError(w, apperrors.ErrNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetDKIMRecord(w, r, domain)
	case http.MethodDelete:
		s.handleDeleteDKIMRecord(w, r, domain)
	default:
		s.writeError(w, apperrors.New(
			apperrors.ErrCodeBadRequest,
			"Method not allowed",
			http.StatusMethodNotAllowed,
		))
	}
}

func (s *Server) handleSetDKIMRecord(w http.ResponseWriter, r *http.Request) {
	var req DKIMRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperrors.NewWithDetail(
			apperrors.ErrCodeBadRequest,
			"Invalid request body",
			err.Error(),
			http.StatusBadRequest,
		))
		return
	}

	exponent, err := base64.StdEncoding.DecodeString(req.Exponent)
	if err != nil {
		s.writeError(w, apperrors.NewWithDetail(
			apperrors.ErrCodeBadRequest,
			"Invalid DKIM record",
			"exponent must be base64-encoded",
			http.StatusBadRequest,
		))
		return
	}
	modulus, err := base64.StdEncoding.DecodeString(req.Modulus)
	if err != nil {
		s.writeError(w, apperrors.NewWithDetail(
			apperrors.ErrCodeBadRequest,
			"Invalid DKIM record",
			"modulus must be base64-encoded",
			http.StatusBadRequest,
		))
		return
	}

	record, err := s.registryService.SetRecord(r.Context(), req.Domain, exponent, modulus)
	if err != nil {
		s.writeError(w, mapError(err))
		return
	}

	s.writeJSON(w, http.StatusCreated, convertRecordToResponse(record))
}

func (s *Server) handleGetDKIMRecord(w http.ResponseWriter, r *http.Request, domain string) {
	record, err := s.registryService.GetRecord(r.Context(), domain)
	if err != nil {
		s.writeError(w, mapError(err))
		return
	}

	s.writeJSON(w, http.StatusOK, convertRecordToResponse(record))
}

func (s *Server) handleDeleteDKIMRecord(w http.ResponseWriter, r *http.Request, domain string) {
	if err := s.registryService.RemoveRecord(r.Context(), domain); err != nil {
		s.writeError(w, mapError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
