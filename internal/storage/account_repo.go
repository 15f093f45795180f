package storage

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"

	"github.com/lukema95/xbit-wallet/pkg/types"
)

// AccountRepository handles recoverable account data operations
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// Upsert creates or replaces the account bound to an email address. The
// nonce resets to zero on replacement, matching a fresh registration.
func (r *AccountRepository) Upsert(ctx context.Context, info *types.AccountInfo) error {
	query := `
		INSERT INTO accounts (email, account, nonce)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE
		SET account = EXCLUDED.account, nonce = EXCLUDED.nonce, updated_at = NOW()
		RETURNING created_at, updated_at
	`

	err := r.store.pool.QueryRow(ctx, query,
		info.Email,
		info.Account.Hex(),
		info.Nonce,
	).Scan(&info.CreatedAt, &info.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}

	return nil
}

// GetByEmail retrieves the account info registered for an email address
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*types.AccountInfo, error) {
	query := `
		SELECT email, account, nonce, created_at, updated_at
		FROM accounts
		WHERE email = $1
	`

	var info types.AccountInfo
	var account string
	err := r.store.pool.QueryRow(ctx, query, email).Scan(
		&info.Email,
		&account,
		&info.Nonce,
		&info.CreatedAt,
		&info.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	info.Account = common.HexToAddress(account)

	return &info, nil
}

// Delete removes the account info for an email. Returns false if no entry
// existed.
func (r *AccountRepository) Delete(ctx context.Context, email string) (bool, error) {
	tag, err := r.store.pool.Exec(ctx, `DELETE FROM accounts WHERE email = $1`, email)
	if err != nil {
		return false, fmt.Errorf("failed to delete account: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// AdvanceNonce increments the account nonce, but only when the stored nonce
// still equals expected. The compare-and-set is what serializes two
// concurrent recovery attempts for the same email: the loser sees false.
func (r *AccountRepository) AdvanceNonce(ctx context.Context, email string, expected uint64) (bool, error) {
	query := `
		UPDATE accounts
		SET nonce = nonce + 1, updated_at = NOW()
		WHERE email = $1 AND nonce = $2
	`

	tag, err := r.store.pool.Exec(ctx, query, email, expected)
	if err != nil {
		return false, fmt.Errorf("failed to advance account nonce: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
