package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lukema95/xbit-wallet/pkg/types"
)

// DKIMRecordRepository handles trusted DKIM public key data operations
type DKIMRecordRepository struct {
	store *Store
}

// NewDKIMRecordRepository creates a new DKIMRecordRepository
func NewDKIMRecordRepository(store *Store) *DKIMRecordRepository {
	return &DKIMRecordRepository{store: store}
}

// Create inserts a new DKIM record. Returns false if a record for the domain
// already exists; entries are append-only per domain.
func (r *DKIMRecordRepository) Create(ctx context.Context, record *types.DKIMRecord) (bool, error) {
	query := `
		INSERT INTO dkim_records (domain, exponent, modulus)
		VALUES ($1, $2, $3)
		ON CONFLICT (domain) DO NOTHING
	`

	tag, err := r.store.pool.Exec(ctx, query, record.Domain, record.Exponent, record.Modulus)
	if err != nil {
		return false, fmt.Errorf("failed to create dkim record: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// GetByDomain retrieves the DKIM record for a signing domain
func (r *DKIMRecordRepository) GetByDomain(ctx context.Context, domain string) (*types.DKIMRecord, error) {
	query := `
		SELECT domain, exponent, modulus, created_at
		FROM dkim_records
		WHERE domain = $1
	`

	var record types.DKIMRecord
	err := r.store.pool.QueryRow(ctx, query, domain).Scan(
		&record.Domain,
		&record.Exponent,
		&record.Modulus,
		&record.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dkim record by domain: %w", err)
	}

	return &record, nil
}

// Delete removes the DKIM record for a domain. Returns false if no record
// existed.
func (r *DKIMRecordRepository) Delete(ctx context.Context, domain string) (bool, error) {
	tag, err := r.store.pool.Exec(ctx, `DELETE FROM dkim_records WHERE domain = $1`, domain)
	if err != nil {
		return false, fmt.Errorf("failed to delete dkim record: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
