package recovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lukema95/xbit-wallet/internal/crypto"
	"github.com/lukema95/xbit-wallet/internal/email"
	"github.com/lukema95/xbit-wallet/pkg/types"
	"github.com/lukema95/xbit-wallet/tests/fixtures"
	"github.com/lukema95/xbit-wallet/tests/mocks"
)

const testReceiver = "recovery@wallet.example"

// setupEngine registers the fixture email's key and sender account, then
// extracts the signed header into an engine request.
func setupEngine(t *testing.T, em *fixtures.TestEmail, nonce uint64) (*Engine, *Request, *mocks.AccountStore, *mocks.Recoverer) {
	t.Helper()
	ctx := context.Background()

	records := mocks.NewDKIMRecordStore()
	_, err := records.Create(ctx, &types.DKIMRecord{
		Domain:   em.Domain,
		Exponent: em.Exponent(),
		Modulus:  em.Modulus(),
	})
	require.NoError(t, err)

	accounts := mocks.NewAccountStore()
	require.NoError(t, accounts.Upsert(ctx, &types.AccountInfo{
		Email:   em.SenderAddress(),
		Account: fixtures.TestAccount(),
		Nonce:   nonce,
	}))

	recoverer := mocks.NewRecoverer()
	engine := NewEngine(testReceiver, records, accounts, recoverer)

	results, err := email.ExtractSignedHeaders(em.Raw())
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	sh := results[0].SignedHeader

	return engine, &Request{
		Header:    sh.Header,
		Signature: sh.Signature,
		HashAlgo:  sh.HashAlgo,
		NewOwner:  fixtures.TestOwner(),
	}, accounts, recoverer
}

func signedEmail(nonce uint64) *fixtures.TestEmail {
	subject := ExpectedSubject(fixtures.TestAccount(), nonce)
	return fixtures.NewTestEmail("Alice <alice@example.com>", testReceiver, subject)
}

func TestEngineRecover(t *testing.T) {
	ctx := context.Background()
	em := signedEmail(0)
	engine, req, accounts, recoverer := setupEngine(t, em, 0)

	result, err := engine.Recover(ctx, req)
	require.NoError(t, err)
	require.Equal(t, em.SenderAddress(), result.Email)
	require.Equal(t, fixtures.TestAccount(), result.Account)
	require.Equal(t, fixtures.TestOwner(), result.NewOwner)
	require.Equal(t, uint64(1), result.Nonce)

	// The recoverer was invoked for the registered account
	require.Len(t, recoverer.Calls, 1)
	require.Equal(t, fixtures.TestAccount(), recoverer.Calls[0].Account)
	require.Equal(t, fixtures.TestOwner(), recoverer.Calls[0].NewOwner)

	// The stored nonce advanced
	info, err := accounts.GetByEmail(ctx, em.SenderAddress())
	require.NoError(t, err)
	require.Equal(t, uint64(1), info.Nonce)
}

func TestEngineRecoverReplay(t *testing.T) {
	ctx := context.Background()
	engine, req, _, recoverer := setupEngine(t, signedEmail(0), 0)

	_, err := engine.Recover(ctx, req)
	require.NoError(t, err)

	// The same email authorizes exactly one recovery: the advanced nonce
	// invalidates the subject binding.
	_, err = engine.Recover(ctx, req)
	require.ErrorIs(t, err, ErrInvalidSubject)
	require.Len(t, recoverer.Calls, 1)
}

func TestEngineRecoverWrongReceiver(t *testing.T) {
	em := signedEmail(0)
	em.To = "someone-else@wallet.example"
	// Receiver binding is checked before the account lookup, so the
	// subject no longer matching does not mask the receiver error.
	engine, req, _, _ := setupEngine(t, em, 0)

	_, err := engine.Recover(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidReceiver)
}

func TestEngineRecoverUnknownSender(t *testing.T) {
	ctx := context.Background()
	em := signedEmail(0)
	engine, req, accounts, _ := setupEngine(t, em, 0)
	_, err := accounts.Delete(ctx, em.SenderAddress())
	require.NoError(t, err)

	_, err = engine.Recover(ctx, req)
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestEngineRecoverStaleSubject(t *testing.T) {
	// Email signed for nonce 0, but the registry is already at nonce 1
	engine, req, _, recoverer := setupEngine(t, signedEmail(0), 1)

	_, err := engine.Recover(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidSubject)
	require.Empty(t, recoverer.Calls)
}

func TestEngineRecoverMissingRecord(t *testing.T) {
	ctx := context.Background()
	em := signedEmail(0)
	_, req, _, _ := setupEngine(t, em, 0)

	// Same request against registries where the sender domain has no
	// trusted key.
	accounts := mocks.NewAccountStore()
	require.NoError(t, accounts.Upsert(ctx, &types.AccountInfo{
		Email:   em.SenderAddress(),
		Account: fixtures.TestAccount(),
	}))
	engine := NewEngine(testReceiver, mocks.NewDKIMRecordStore(), accounts, mocks.NewRecoverer())

	_, err := engine.Recover(ctx, req)
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestEngineRecoverWrongKey(t *testing.T) {
	ctx := context.Background()
	em := signedEmail(0)
	engine, req, _, recoverer := setupEngine(t, em, 0)

	// Replace the registered key with one from a different signer
	other := fixtures.NewTestEmail("Eve <eve@example.com>", testReceiver, "x")
	records := mocks.NewDKIMRecordStore()
	_, err := records.Create(ctx, &types.DKIMRecord{
		Domain:   em.Domain,
		Exponent: other.Exponent(),
		Modulus:  other.Modulus(),
	})
	require.NoError(t, err)

	accounts := mocks.NewAccountStore()
	require.NoError(t, accounts.Upsert(ctx, &types.AccountInfo{
		Email:   em.SenderAddress(),
		Account: fixtures.TestAccount(),
	}))
	engine = NewEngine(testReceiver, records, accounts, recoverer)

	_, err = engine.Recover(ctx, req)
	require.ErrorIs(t, err, crypto.ErrInvalidSignature)
	require.Empty(t, recoverer.Calls)
}

func TestEngineRecoverCorruptSignature(t *testing.T) {
	em := signedEmail(0)
	em.CorruptSignature = true
	engine, req, _, _ := setupEngine(t, em, 0)

	_, err := engine.Recover(context.Background(), req)
	require.ErrorIs(t, err, crypto.ErrInvalidSignature)
}

func TestEngineRecoverSHA1Unsupported(t *testing.T) {
	em := signedEmail(0)
	em.HashAlgo = "sha1"
	engine, req, accounts, _ := setupEngine(t, em, 0)

	_, err := engine.Recover(context.Background(), req)
	require.ErrorIs(t, err, crypto.ErrUnsupportedAlgorithm)

	// Failed verification leaves the nonce untouched
	info, err := accounts.GetByEmail(context.Background(), em.SenderAddress())
	require.NoError(t, err)
	require.Equal(t, uint64(0), info.Nonce)
}

func TestEngineRecoverRelayFailureSpendsNonce(t *testing.T) {
	ctx := context.Background()
	em := signedEmail(0)
	engine, req, accounts, recoverer := setupEngine(t, em, 0)
	recoverer.Err = context.DeadlineExceeded

	_, err := engine.Recover(ctx, req)
	require.Error(t, err)

	// The authorization was consumed even though the relay failed: the
	// email must not be replayable.
	info, err := accounts.GetByEmail(ctx, em.SenderAddress())
	require.NoError(t, err)
	require.Equal(t, uint64(1), info.Nonce)
}

func TestEngineRecoverTamperedHeader(t *testing.T) {
	engine, req, _, _ := setupEngine(t, signedEmail(0), 0)

	req.Header[len(req.Header)-1] ^= 0x01
	_, err := engine.Recover(context.Background(), req)
	require.Error(t, err)
}
