package api

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lukema95/xbit-wallet/internal/recovery"
	"github.com/lukema95/xbit-wallet/pkg/types"
)

// RecoveryService is the subset of app.RecoveryService used by the API layer.
// It is an interface to allow handler-level unit tests without a database.
type RecoveryService interface {
	RecoverFromEmail(ctx context.Context, raw []byte, newOwner common.Address) (*recovery.Result, error)
	RecoverFromHeader(ctx context.Context, req *recovery.Request) (*recovery.Result, error)
}

// RegistryService is the subset of app.RegistryService used by the API layer
type RegistryService interface {
	SetRecord(ctx context.Context, domain string, exponent, modulus []byte) (*types.DKIMRecord, error)
	GetRecord(ctx context.Context, domain string) (*types.DKIMRecord, error)
	RemoveRecord(ctx context.Context, domain string) error

	SetAccountInfo(ctx context.Context, email string, account common.Address) (*types.AccountInfo, error)
	GetAccountInfo(ctx context.Context, email string) (*types.AccountInfo, error)
	RemoveAccountInfo(ctx context.Context, email string) error
}
