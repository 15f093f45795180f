// Package recovery implements the authorization engine that turns a verified
// DKIM-signed email into an owner replacement on a recoverable wallet
// account.
package recovery

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lukema95/xbit-wallet/internal/crypto"
	"github.com/lukema95/xbit-wallet/internal/email"
	"github.com/lukema95/xbit-wallet/internal/logger"
	"github.com/lukema95/xbit-wallet/pkg/types"
)

// Authorization failures. Every failure leaves all state untouched.
var (
	ErrInvalidReceiver = errors.New("recovery: email not addressed to the configured receiver")
	ErrAccountNotFound = errors.New("recovery: no account registered for sender email")
	ErrInvalidSubject  = errors.New("recovery: subject does not match the expected recovery subject")
	ErrRecordNotFound  = errors.New("recovery: no dkim record for sender domain")
)

var (
	metricAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xbit_recovery_attempts_total",
			Help: "Recovery attempts by outcome.",
		},
		[]string{"outcome"},
	)
	metricVerifyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "xbit_recovery_verify_duration_seconds",
			Help:    "Duration of signature verification within a recovery attempt.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)
)

// DKIMRecordStore resolves a signing domain to its trusted RSA public key.
type DKIMRecordStore interface {
	GetByDomain(ctx context.Context, domain string) (*types.DKIMRecord, error)
}

// AccountStore resolves and advances recoverable account registrations. The
// engine only ever writes through AdvanceNonce.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*types.AccountInfo, error)
	AdvanceNonce(ctx context.Context, email string, expected uint64) (bool, error)
}

// AccountRecoverer invokes the owner-replacement capability of a recoverable
// account. Implementations submit the on-chain recover(newOwner) call.
type AccountRecoverer interface {
	Recover(ctx context.Context, account, newOwner common.Address) error
}

// Engine orchestrates a single recovery attempt: parse, bind, verify, commit.
type Engine struct {
	receiver  string
	records   DKIMRecordStore
	accounts  AccountStore
	recoverer AccountRecoverer
}

// NewEngine creates a recovery engine. receiver is the single mailbox every
// recovery email must be addressed to.
func NewEngine(receiver string, records DKIMRecordStore, accounts AccountStore, recoverer AccountRecoverer) *Engine {
	return &Engine{
		receiver:  receiver,
		records:   records,
		accounts:  accounts,
		recoverer: recoverer,
	}
}

// Request carries one verification candidate: the length-prefixed canonical
// header bytes, the raw RSA signature, the digest algorithm declared by the
// signature, and the owner to install on success.
type Request struct {
	Header    []byte
	Signature []byte
	HashAlgo  string
	NewOwner  common.Address
}

// Result describes a committed recovery.
type Result struct {
	Email    string         `json:"email"`
	Account  common.Address `json:"account"`
	NewOwner common.Address `json:"new_owner"`
	Nonce    uint64         `json:"nonce"` // nonce after the increment
}

// Recover runs the full authorization pipeline. All failures before the
// commit step are atomic no-ops. On commit the nonce is advanced first and
// is not rolled back even if the owner-replacement call fails: the
// authorization token must never be replayable.
func (e *Engine) Recover(ctx context.Context, req *Request) (res *Result, rerr error) {
	defer func() {
		metricAttempts.WithLabelValues(outcome(rerr)).Inc()
	}()

	fields, err := email.ParseSignedHeader(req.Header)
	if err != nil {
		return nil, err
	}

	sender, err := fields.SenderAddress()
	if err != nil {
		return nil, err
	}

	if fields.To != e.receiver {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidReceiver, fields.To)
	}

	info, err := e.accounts.GetByEmail(ctx, sender)
	if err != nil {
		return nil, fmt.Errorf("looking up account: %w", err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, sender)
	}

	expected := ExpectedSubject(info.Account, info.Nonce)
	if fields.Subject != expected {
		return nil, fmt.Errorf("%w: account %s nonce %d", ErrInvalidSubject, info.Account.Hex(), info.Nonce)
	}

	domain, err := fields.SenderDomain()
	if err != nil {
		return nil, err
	}
	record, err := e.records.GetByDomain(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("looking up dkim record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, domain)
	}

	var digest []byte
	if req.HashAlgo == types.HashAlgoSHA256 {
		sum := sha256.Sum256(fields.Serialize())
		digest = sum[:]
	}

	start := time.Now()
	err = crypto.VerifyRSASignature(req.HashAlgo, digest, req.Signature, record.Exponent, record.Modulus)
	metricVerifyDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	// Commit. The compare-and-set on the nonce serializes concurrent
	// attempts for the same email: whichever advances first invalidates the
	// other's subject binding.
	advanced, err := e.accounts.AdvanceNonce(ctx, sender, info.Nonce)
	if err != nil {
		return nil, fmt.Errorf("advancing nonce: %w", err)
	}
	if !advanced {
		return nil, fmt.Errorf("%w: nonce already advanced", ErrInvalidSubject)
	}

	logger.Info(ctx, "recovery authorized",
		"email", sender,
		"account", info.Account.Hex(),
		"new_owner", req.NewOwner.Hex(),
		"nonce", info.Nonce+1,
	)

	if err := e.recoverer.Recover(ctx, info.Account, req.NewOwner); err != nil {
		// The nonce stays advanced: the email that authorized this attempt
		// is spent either way.
		return nil, fmt.Errorf("invoking account recovery: %w", err)
	}

	return &Result{
		Email:    sender,
		Account:  info.Account,
		NewOwner: req.NewOwner,
		Nonce:    info.Nonce + 1,
	}, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "pass"
	case errors.Is(err, ErrInvalidReceiver):
		return "invalid_receiver"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrInvalidSubject):
		return "invalid_subject"
	case errors.Is(err, ErrRecordNotFound):
		return "record_not_found"
	case errors.Is(err, crypto.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, crypto.ErrUnsupportedAlgorithm):
		return "unsupported_algorithm"
	case errors.Is(err, email.ErrHeaderLengthMismatch), errors.Is(err, email.ErrUnrecognizedHeaderField), errors.Is(err, email.ErrMalformedEmail):
		return "parse_error"
	default:
		return "error"
	}
}
