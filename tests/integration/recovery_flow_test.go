//go:build integration

// Package integration contains integration tests that verify the complete
// recovery flow against a real PostgreSQL database.
//
// Run with: go test -v -tags=integration ./tests/integration/...
//
// Requirements:
// - PostgreSQL running with the schema migrated (POSTGRES_DSN env var)
package integration

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lukema95/xbit-wallet/internal/app"
	"github.com/lukema95/xbit-wallet/internal/recovery"
	"github.com/lukema95/xbit-wallet/internal/storage"
	"github.com/lukema95/xbit-wallet/pkg/types"
	"github.com/lukema95/xbit-wallet/tests/fixtures"
	"github.com/lukema95/xbit-wallet/tests/mocks"
)

const testReceiver = "recovery@wallet.example"

func setupStore(t *testing.T) *storage.Store {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	store, err := storage.New(dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func uniqueDomain() string {
	return fmt.Sprintf("it-%d.example", time.Now().UnixNano())
}

func TestRecoveryFlow(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	records := storage.NewDKIMRecordRepository(store)
	accounts := storage.NewAccountRepository(store)
	recoverer := mocks.NewRecoverer()
	engine := recovery.NewEngine(testReceiver, records, accounts, recoverer)
	svc := app.NewRecoveryService(engine)

	domain := uniqueDomain()
	sender := fmt.Sprintf("alice@%s", domain)
	subject := recovery.ExpectedSubject(fixtures.TestAccount(), 0)
	em := fixtures.NewTestEmail(fmt.Sprintf("Alice <%s>", sender), testReceiver, subject)
	em.Domain = domain

	created, err := records.Create(ctx, &types.DKIMRecord{
		Domain:   domain,
		Exponent: em.Exponent(),
		Modulus:  em.Modulus(),
	})
	require.NoError(t, err)
	require.True(t, created)
	t.Cleanup(func() { records.Delete(ctx, domain) })

	require.NoError(t, accounts.Upsert(ctx, &types.AccountInfo{
		Email:   sender,
		Account: fixtures.TestAccount(),
	}))
	t.Cleanup(func() { accounts.Delete(ctx, sender) })

	result, err := svc.RecoverFromEmail(ctx, em.Raw(), fixtures.TestOwner())
	require.NoError(t, err)
	require.Equal(t, fixtures.TestAccount(), result.Account)
	require.Equal(t, uint64(1), result.Nonce)
	require.Len(t, recoverer.Calls, 1)

	// The nonce advanced in the database
	info, err := accounts.GetByEmail(ctx, sender)
	require.NoError(t, err)
	require.Equal(t, uint64(1), info.Nonce)

	// The same email cannot authorize a second recovery
	_, err = svc.RecoverFromEmail(ctx, em.Raw(), fixtures.TestOwner())
	require.ErrorIs(t, err, recovery.ErrInvalidSubject)
	require.Len(t, recoverer.Calls, 1)
}

func TestConcurrentRecoveryAttempts(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	accounts := storage.NewAccountRepository(store)

	email := fmt.Sprintf("race-%d@example.com", time.Now().UnixNano())
	require.NoError(t, accounts.Upsert(ctx, &types.AccountInfo{
		Email:   email,
		Account: fixtures.TestAccount(),
	}))
	t.Cleanup(func() { accounts.Delete(ctx, email) })

	// Many concurrent compare-and-set attempts for the same expected
	// nonce: exactly one may win.
	var wg sync.WaitGroup
	wins := make(chan bool, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			advanced, err := accounts.AdvanceNonce(ctx, email, 0)
			require.NoError(t, err)
			wins <- advanced
		}()
	}
	wg.Wait()
	close(wins)

	var winners int
	for w := range wins {
		if w {
			winners++
		}
	}
	require.Equal(t, 1, winners)

	info, err := accounts.GetByEmail(ctx, email)
	require.NoError(t, err)
	require.Equal(t, uint64(1), info.Nonce)
}
