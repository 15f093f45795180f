package app

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lukema95/xbit-wallet/internal/middleware"
	apperrors "github.com/lukema95/xbit-wallet/pkg/errors"
	"github.com/lukema95/xbit-wallet/pkg/types"
)

// dkimRecordRepo is the storage surface the registry service needs for DKIM
// records.
type dkimRecordRepo interface {
	Create(ctx context.Context, record *types.DKIMRecord) (bool, error)
	GetByDomain(ctx context.Context, domain string) (*types.DKIMRecord, error)
	Delete(ctx context.Context, domain string) (bool, error)
}

// accountRepo is the storage surface the registry service needs for account
// registrations.
type accountRepo interface {
	Upsert(ctx context.Context, info *types.AccountInfo) error
	GetByEmail(ctx context.Context, email string) (*types.AccountInfo, error)
	Delete(ctx context.Context, email string) (bool, error)
}

// RegistryService administers the two trust registries: domain DKIM keys and
// email-to-account bindings. All mutating operations require the caller to
// carry administrator privilege in the request context.
type RegistryService struct {
	records  dkimRecordRepo
	accounts accountRepo
}

// NewRegistryService creates a new registry service
func NewRegistryService(records dkimRecordRepo, accounts accountRepo) *RegistryService {
	return &RegistryService{records: records, accounts: accounts}
}

// SetRecord registers the trusted RSA public key for a signing domain.
// Records are append-only per domain: re-setting an existing domain fails
// and key rotation requires an explicit removal first.
func (s *RegistryService) SetRecord(ctx context.Context, domain string, exponent, modulus []byte) (*types.DKIMRecord, error) {
	if !middleware.IsAdmin(ctx) {
		return nil, apperrors.ErrNotAuthorized
	}
	if domain == "" {
		return nil, apperrors.NewWithDetail(apperrors.ErrCodeBadRequest, "Invalid DKIM record", "domain is required", 400)
	}
	// A record exists iff its exponent is non-empty, so an empty exponent
	// can never be stored.
	if len(exponent) == 0 || len(modulus) == 0 {
		return nil, apperrors.NewWithDetail(apperrors.ErrCodeBadRequest, "Invalid DKIM record", "exponent and modulus are required", 400)
	}

	record := &types.DKIMRecord{Domain: domain, Exponent: exponent, Modulus: modulus}
	created, err := s.records.Create(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to set dkim record: %w", err)
	}
	if !created {
		return nil, apperrors.RecordAlreadyExists(domain)
	}
	return record, nil
}

// GetRecord returns the trusted key for a domain
func (s *RegistryService) GetRecord(ctx context.Context, domain string) (*types.DKIMRecord, error) {
	record, err := s.records.GetByDomain(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to get dkim record: %w", err)
	}
	if record == nil {
		return nil, apperrors.RecordNotFound(domain)
	}
	return record, nil
}

// RemoveRecord deletes the trusted key for a domain
func (s *RegistryService) RemoveRecord(ctx context.Context, domain string) error {
	if !middleware.IsAdmin(ctx) {
		return apperrors.ErrNotAuthorized
	}

	deleted, err := s.records.Delete(ctx, domain)
	if err != nil {
		return fmt.Errorf("failed to remove dkim record: %w", err)
	}
	if !deleted {
		return apperrors.RecordNotFound(domain)
	}
	return nil
}

// SetAccountInfo binds an email address to a recoverable account. The nonce
// starts at zero and is only ever advanced by the recovery engine.
func (s *RegistryService) SetAccountInfo(ctx context.Context, email string, account common.Address) (*types.AccountInfo, error) {
	if !middleware.IsAdmin(ctx) {
		return nil, apperrors.ErrNotAuthorized
	}
	if email == "" {
		return nil, apperrors.NewWithDetail(apperrors.ErrCodeBadRequest, "Invalid account info", "email is required", 400)
	}
	if account == (common.Address{}) {
		return nil, apperrors.NewWithDetail(apperrors.ErrCodeBadRequest, "Invalid account info", "account must not be the zero address", 400)
	}

	info := &types.AccountInfo{Email: email, Account: account, Nonce: 0}
	if err := s.accounts.Upsert(ctx, info); err != nil {
		return nil, fmt.Errorf("failed to set account info: %w", err)
	}
	return info, nil
}

// GetAccountInfo returns the registration for an email address
func (s *RegistryService) GetAccountInfo(ctx context.Context, email string) (*types.AccountInfo, error) {
	info, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get account info: %w", err)
	}
	if info == nil {
		return nil, apperrors.AccountNotFound(email)
	}
	return info, nil
}

// RemoveAccountInfo deletes the registration for an email address
func (s *RegistryService) RemoveAccountInfo(ctx context.Context, email string) error {
	if !middleware.IsAdmin(ctx) {
		return apperrors.ErrNotAuthorized
	}

	deleted, err := s.accounts.Delete(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to remove account info: %w", err)
	}
	if !deleted {
		return apperrors.AccountNotFound(email)
	}
	return nil
}
