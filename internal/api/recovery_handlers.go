package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lukema95/xbit-wallet/internal/recovery"
	apperrors "github.com/lukema95/xbit-wallet/pkg/errors"
)

// RecoveryRequest submits a recovery attempt. Either the full raw email is
// supplied, or a pre-extracted canonical header plus its signature.
type RecoveryRequest struct {
	// RawEmail is the base64-encoded raw message, headers and body
	RawEmail string `json:"raw_email,omitempty"`

	// Header and Signature carry a pre-extracted candidate
	Header    string `json:"header,omitempty"`    // base64, length-prefixed canonical header
	Signature string `json:"signature,omitempty"` // base64, raw RSA signature
	HashAlgo  string `json:"hash_algo,omitempty"`

	NewOwner string `json:"new_owner"`
}

// RecoveryResponse describes a committed recovery
type RecoveryResponse struct {
	Email    string `json:"email"`
	Account  string `json:"account"`
	NewOwner string `json:"new_owner"`
	Nonce    uint64 `json:"nonce"`
}

// handleRecovery handles POST /v1/recovery
func (s *Server) handleRecovery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, apperrors.New(
			apperrors.ErrCodeBadRequest,
			"Method not allowed",
			http.StatusMethodNotAllowed,
		))
		return
	}

	var req RecoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperrors.NewWithDetail(
			apperrors.ErrCodeBadRequest,
			"Invalid request body",
			err.Error(),
			http.StatusBadRequest,
		))
		return
	}

	if !common.IsHexAddress(req.NewOwner) {
		s.writeError(w, apperrors.NewWithDetail(
			apperrors.ErrCodeBadRequest,
			"Invalid new owner address",
			"new_owner must be a hex-encoded address",
			http.StatusBadRequest,
		))
		return
	}
	newOwner := common.HexToAddress(req.NewOwner)

	var (
		result *recovery.Result
		err    error
	)
	switch {
	case req.RawEmail != "":
		var raw []byte
		raw, err = base64.StdEncoding.DecodeString(req.RawEmail)
		if err != nil {
			s.writeError(w, apperrors.NewWithDetail(
				apperrors.ErrCodeBadRequest,
				"Invalid raw email",
				"raw_email must be base64-encoded",
				http.StatusBadRequest,
			))
			return
		}
		result, err = s.recoveryService.RecoverFromEmail(r.Context(), raw, newOwner)

	case req.Header != "" && req.Signature != "":
		var header, signature []byte
		header, err = base64.StdEncoding.DecodeString(req.Header)
		if err == nil {
			signature, err = base64.StdEncoding.DecodeString(req.Signature)
		}
		if err != nil {
			s.writeError(w, apperrors.NewWithDetail(
				apperrors.ErrCodeBadRequest,
				"Invalid recovery candidate",
				"header and signature must be base64-encoded",
				http.StatusBadRequest,
			))
			return
		}
		result, err = s.recoveryService.RecoverFromHeader(r.Context(), &recovery.Request{
			Header:    header,
			Signature: signature,
			HashAlgo:  req.HashAlgo,
			NewOwner:  newOwner,
		})

	default:
		s.writeError(w, apperrors.NewWithDetail(
			apperrors.ErrCodeBadRequest,
			"Invalid request body",
			"either raw_email or header and signature are required",
			http.StatusBadRequest,
		))
		return
	}

	if err != nil {
		s.writeError(w, mapError(err))
		return
	}

	s.writeJSON(w, http.StatusOK, RecoveryResponse{
		Email:    result.Email,
		Account:  result.Account.Hex(),
		NewOwner: result.NewOwner.Hex(),
		Nonce:    result.Nonce,
	})
}
