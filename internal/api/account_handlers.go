package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	apperrors "github.com/lukema95/xbit-wallet/pkg/errors"
	"github.com/lukema95/xbit-wallet/pkg/types"
)

// AccountInfoRequest binds an email address to a recoverable account
type AccountInfoRequest struct {
	Email   string `json:"email"`
	Account string `json:"account"`
}

// AccountInfoResponse represents an account registration in API responses
type AccountInfoResponse struct {
	Email     string    `json:"email"`
	Account   string    `json:"account"`
	Nonce     uint64    `json:"nonce"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func convertAccountToResponse(info *types.AccountInfo) AccountInfoResponse {
	return AccountInfoResponse{
		Email:     info.Email,
		Account:   info.Account.Hex(),
		Nonce:     info.Nonce,
		CreatedAt: info.CreatedAt,
		UpdatedAt: info.UpdatedAt,
	}
}

// handleAccounts handles PUT /v1/accounts
func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		s.handleSetAccountInfo(w, r)
	default:
		s.writeError(w, apperrors.New(
			apperrors.ErrCodeBadRequest,
			"Method not allowed",
			http.StatusMethodNotAllowed,
		))
	}
}

// handleAccountOperations routes /v1/accounts/{email}
func (s *Server) handleAccountOperations(w http.ResponseWriter, r *http.Request) {
	// Email addresses are URL-escaped in the path
	escaped := strings.TrimPrefix(r.URL.Path, "/v1/accounts/")
	email, err := url.PathUnescape(escaped)
	if err != nil || email == "" || strings.Contains(email, "/") {
		s.writeError(w, apperrors.ErrNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetAccountInfo(w, r, email)
	case http.MethodDelete:
		s.handleDeleteAccountInfo(w, r, email)
	default:
		s.writeError(w, apperrors.New(
			apperrors.ErrCodeBadRequest,
			"Method not allowed",
			http.StatusMethodNotAllowed,
		))
	}
}

func (s *Server) handleSetAccountInfo(w http.ResponseWriter, r *http.Request) {
	var req AccountInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperrors.NewWithDetail(
			apperrors.ErrCodeBadRequest,
			"Invalid request body",
			err.Error(),
			http.StatusBadRequest,
		))
		return
	}

	if !common.IsHexAddress(req.Account) {
		s.writeError(w, apperrors.NewWithDetail(
			apperrors.ErrCodeBadRequest,
			"Invalid account info",
			"account must be a hex-encoded address",
			http.StatusBadRequest,
		))
		return
	}

	info, err := s.registryService.SetAccountInfo(r.Context(), req.Email, common.HexToAddress(req.Account))
	if err != nil {
		s.writeError(w, mapError(err))
		return
	}

	s.writeJSON(w, http.StatusOK, convertAccountToResponse(info))
}

func (s *Server) handleGetAccountInfo(w http.ResponseWriter, r *http.Request, email string) {
	info, err := s.registryService.GetAccountInfo(r.Context(), email)
	if err != nil {
		s.writeError(w, mapError(err))
		return
	}

	s.writeJSON(w, http.StatusOK, convertAccountToResponse(info))
}

func (s *Server) handleDeleteAccountInfo(w http.ResponseWriter, r *http.Request, email string) {
	if err := s.registryService.RemoveAccountInfo(r.Context(), email); err != nil {
		s.writeError(w, mapError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
