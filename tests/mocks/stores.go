// Package mocks provides in-memory implementations for testing.
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lukema95/xbit-wallet/pkg/types"
)

// DKIMRecordStore is an in-memory DKIM record registry. It satisfies both
// the recovery engine's read interface and the registry service's repository
// interface.
type DKIMRecordStore struct {
	mu      sync.Mutex
	records map[string]*types.DKIMRecord
}

// NewDKIMRecordStore creates an empty in-memory record store
func NewDKIMRecordStore() *DKIMRecordStore {
	return &DKIMRecordStore{records: make(map[string]*types.DKIMRecord)}
}

// Create stores a record unless the domain already has one
func (s *DKIMRecordStore) Create(ctx context.Context, record *types.DKIMRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.Domain]; ok {
		return false, nil
	}
	record.CreatedAt = time.Now()
	s.records[record.Domain] = record
	return true, nil
}

// GetByDomain returns the record for a domain, or nil when absent
func (s *DKIMRecordStore) GetByDomain(ctx context.Context, domain string) (*types.DKIMRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[domain]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

// Delete removes the record for a domain
func (s *DKIMRecordStore) Delete(ctx context.Context, domain string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[domain]; !ok {
		return false, nil
	}
	delete(s.records, domain)
	return true, nil
}

// AccountStore is an in-memory account registry with the same
// compare-and-set nonce semantics as the PostgreSQL repository.
type AccountStore struct {
	mu       sync.Mutex
	accounts map[string]*types.AccountInfo
}

// NewAccountStore creates an empty in-memory account store
func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[string]*types.AccountInfo)}
}

// Upsert stores or replaces the registration for an email
func (s *AccountStore) Upsert(ctx context.Context, info *types.AccountInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if existing, ok := s.accounts[info.Email]; ok {
		info.CreatedAt = existing.CreatedAt
	} else {
		info.CreatedAt = now
	}
	info.UpdatedAt = now
	copied := *info
	s.accounts[info.Email] = &copied
	return nil
}

// GetByEmail returns the registration for an email, or nil when absent
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*types.AccountInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.accounts[email]
	if !ok {
		return nil, nil
	}
	copied := *info
	return &copied, nil
}

// Delete removes the registration for an email
func (s *AccountStore) Delete(ctx context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[email]; !ok {
		return false, nil
	}
	delete(s.accounts, email)
	return true, nil
}

// AdvanceNonce increments the nonce only when it still equals expected
func (s *AccountStore) AdvanceNonce(ctx context.Context, email string, expected uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.accounts[email]
	if !ok || info.Nonce != expected {
		return false, nil
	}
	info.Nonce++
	info.UpdatedAt = time.Now()
	return true, nil
}

// RecoverCall records one invocation of the account recoverer
type RecoverCall struct {
	Account  common.Address
	NewOwner common.Address
}

// Recoverer is an account recoverer that records calls and returns a
// configurable error.
type Recoverer struct {
	mu    sync.Mutex
	Calls []RecoverCall
	Err   error
}

// NewRecoverer creates a recorder that always succeeds
func NewRecoverer() *Recoverer {
	return &Recoverer{}
}

// Recover records the call and returns the configured error
func (r *Recoverer) Recover(ctx context.Context, account, newOwner common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, RecoverCall{Account: account, NewOwner: newOwner})
	return r.Err
}
