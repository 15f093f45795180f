package app

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lukema95/xbit-wallet/internal/email"
	"github.com/lukema95/xbit-wallet/internal/recovery"
	"github.com/lukema95/xbit-wallet/pkg/types"
	"github.com/lukema95/xbit-wallet/tests/fixtures"
	"github.com/lukema95/xbit-wallet/tests/mocks"
)

const testReceiver = "recovery@wallet.example"

func recoverySetup(t *testing.T, em *fixtures.TestEmail) (*RecoveryService, *mocks.AccountStore, *mocks.Recoverer) {
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
	}))

	recoverer := mocks.NewRecoverer()
	engine := recovery.NewEngine(testReceiver, records, accounts, recoverer)
	return NewRecoveryService(engine), accounts, recoverer
}

func TestRecoverFromEmail(t *testing.T) {
	ctx := context.Background()
	subject := recovery.ExpectedSubject(fixtures.TestAccount(), 0)
	em := fixtures.NewTestEmail("Alice <alice@example.com>", testReceiver, subject)
	svc, accounts, recoverer := recoverySetup(t, em)

	result, err := svc.RecoverFromEmail(ctx, em.Raw(), fixtures.TestOwner())
	require.NoError(t, err)
	require.Equal(t, fixtures.TestAccount(), result.Account)
	require.Equal(t, uint64(1), result.Nonce)
	require.Len(t, recoverer.Calls, 1)

	info, err := accounts.GetByEmail(ctx, em.SenderAddress())
	require.NoError(t, err)
	require.Equal(t, uint64(1), info.Nonce)
}

func TestRecoverFromEmailReplay(t *testing.T) {
	ctx := context.Background()
	subject := recovery.ExpectedSubject(fixtures.TestAccount(), 0)
	em := fixtures.NewTestEmail("Alice <alice@example.com>", testReceiver, subject)
	svc, _, _ := recoverySetup(t, em)

	_, err := svc.RecoverFromEmail(ctx, em.Raw(), fixtures.TestOwner())
	require.NoError(t, err)

	_, err = svc.RecoverFromEmail(ctx, em.Raw(), fixtures.TestOwner())
	require.ErrorIs(t, err, recovery.ErrInvalidSubject)
}

func TestRecoverFromEmailSecondCandidateWins(t *testing.T) {
	ctx := context.Background()
	subject := recovery.ExpectedSubject(fixtures.TestAccount(), 0)
	em := fixtures.NewTestEmail("Alice <alice@example.com>", testReceiver, subject)
	svc, _, recoverer := recoverySetup(t, em)

	// Prepend a vendor signature with a wrong body hash. Its candidate
	// fails extraction; the genuine signature still authorizes.
	raw := string(em.Raw())
	bogus := "X-Vendor-DKIM-Signature: v=1; a=rsa-sha256; c=relaxed/relaxed; d=other.test; s=s2; bh=aGFzaA==; b=c2ln\r\n"
	i := strings.Index(raw, "DKIM-Signature:")
	raw = raw[:i] + bogus + raw[i:]

	result, err := svc.RecoverFromEmail(ctx, []byte(raw), fixtures.TestOwner())
	require.NoError(t, err)
	require.Equal(t, fixtures.TestAccount(), result.Account)
	require.Len(t, recoverer.Calls, 1)
}

func TestRecoverFromEmailAllCandidatesFail(t *testing.T) {
	ctx := context.Background()
	em := fixtures.NewTestEmail("Alice <alice@example.com>", testReceiver, "not-the-subject")
	svc, _, recoverer := recoverySetup(t, em)

	_, err := svc.RecoverFromEmail(ctx, em.Raw(), fixtures.TestOwner())
	require.ErrorIs(t, err, recovery.ErrInvalidSubject)
	require.Empty(t, recoverer.Calls)
}

func TestRecoverFromEmailMalformed(t *testing.T) {
	svc, _, _ := recoverySetup(t, fixtures.NewTestEmail("a <a@example.com>", testReceiver, "s"))

	_, err := svc.RecoverFromEmail(context.Background(), []byte("not an email"), fixtures.TestOwner())
	require.ErrorIs(t, err, email.ErrMalformedEmail)
}

func TestRecoverFromHeader(t *testing.T) {
	ctx := context.Background()
	subject := recovery.ExpectedSubject(fixtures.TestAccount(), 0)
	em := fixtures.NewTestEmail("Alice <alice@example.com>", testReceiver, subject)
	svc, _, _ := recoverySetup(t, em)

	results, err := email.ExtractSignedHeaders(em.Raw())
	require.NoError(t, err)
	require.NoError(t, results[0].Err)
	sh := results[0].SignedHeader

	result, err := svc.RecoverFromHeader(ctx, &recovery.Request{
		Header:    sh.Header,
		Signature: sh.Signature,
		HashAlgo:  sh.HashAlgo,
		NewOwner:  fixtures.TestOwner(),
	})
	require.NoError(t, err)
	require.Equal(t, uint64(1), result.Nonce)
}
