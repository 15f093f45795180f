package app

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/lukema95/xbit-wallet/internal/email"
	"github.com/lukema95/xbit-wallet/internal/logger"
	"github.com/lukema95/xbit-wallet/internal/recovery"
)

// RecoveryService drives the full pipeline from raw email bytes to a
// committed owner replacement: extract the signed header candidates, then
// run each through the authorization engine until one commits.
type RecoveryService struct {
	engine *recovery.Engine
}

// NewRecoveryService creates a new recovery service
func NewRecoveryService(engine *recovery.Engine) *RecoveryService {
	return &RecoveryService{engine: engine}
}

// RecoverFromEmail verifies a raw email and, on success, replaces the owner
// of the account bound to the sender address. A message can carry several
// DKIM signatures; candidates are tried in header order and the first one to
// authorize wins. When none does, the errors of all candidates are returned
// so the sender can see which signature failed and why.
func (s *RecoveryService) RecoverFromEmail(ctx context.Context, raw []byte, newOwner common.Address) (*recovery.Result, error) {
	attemptID := uuid.New().String()
	log := logger.FromContext(ctx).With("attempt_id", attemptID)

	extracted, err := email.ExtractSignedHeaders(raw)
	if err != nil {
		log.Warn("recovery email rejected", "error", err)
		return nil, err
	}

	var attemptErrs []error
	for _, cand := range extracted {
		if cand.Err != nil {
			log.Warn("dkim signature candidate rejected", "error", cand.Err)
			attemptErrs = append(attemptErrs, cand.Err)
			continue
		}
		sh := cand.SignedHeader
		result, err := s.engine.Recover(ctx, &recovery.Request{
			Header:    sh.Header,
			Signature: sh.Signature,
			HashAlgo:  sh.HashAlgo,
			NewOwner:  newOwner,
		})
		if err != nil {
			log.Warn("recovery attempt failed",
				"domain", sh.Domain,
				"selector", sh.Selector,
				"error", err,
			)
			attemptErrs = append(attemptErrs, err)
			continue
		}
		log.Info("recovery committed",
			"domain", sh.Domain,
			"account", result.Account.Hex(),
			"new_owner", result.NewOwner.Hex(),
			"nonce", result.Nonce,
		)
		return result, nil
	}
	return nil, errors.Join(attemptErrs...)
}

// RecoverFromHeader verifies an already-extracted canonical header against a
// supplied signature, for callers that performed extraction themselves.
func (s *RecoveryService) RecoverFromHeader(ctx context.Context, req *recovery.Request) (*recovery.Result, error) {
	return s.engine.Recover(ctx, req)
}
