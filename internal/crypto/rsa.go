// Package crypto implements the signature-recovery check used to verify DKIM
// RSA signatures against registry-supplied public key material.
package crypto

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/lukema95/xbit-wallet/pkg/types"
)

var (
	// ErrUnsupportedAlgorithm is returned for any digest algorithm other
	// than SHA-256. The RSA-SHA1 path is deliberately not implemented.
	ErrUnsupportedAlgorithm = errors.New("crypto: unsupported digest algorithm")

	// ErrInvalidSignature is returned when signature recovery fails or the
	// recovered value does not end in the expected digest.
	ErrInvalidSignature = errors.New("crypto: invalid rsa signature")
)

// digestLen maps a supported algorithm to its digest size in bytes.
func digestLen(algo string) (int, error) {
	switch algo {
	case types.HashAlgoSHA256:
		return 32, nil
	case types.HashAlgoSHA1:
		// Kept unimplemented on purpose. Accepting SHA-1 here would widen
		// the set of signatures the deployed registries were never meant
		// to accept.
		return 0, fmt.Errorf("%w: rsa-sha1 is not implemented", ErrUnsupportedAlgorithm)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algo)
	}
}

// VerifyRSASignature recovers sig^e mod n and accepts the signature when the
// trailing digest-length bytes of the recovered value equal digest.
//
// This is intentionally NOT full PKCS#1 v1.5 verification: the padding bytes
// and the ASN.1 DigestInfo prefix preceding the hash are not checked, so the
// padding is malleable. The weaker check matches the acceptance behavior of
// the deployed recovery contracts and must not be strengthened here without
// changing those semantics.
func VerifyRSASignature(algo string, digest, sig, exponent, modulus []byte) error {
	dlen, err := digestLen(algo)
	if err != nil {
		return err
	}
	if len(digest) != dlen {
		return fmt.Errorf("%w: digest is %d bytes, want %d", ErrInvalidSignature, len(digest), dlen)
	}
	if len(sig) == 0 || len(exponent) == 0 || len(modulus) == 0 {
		return fmt.Errorf("%w: empty signature or key material", ErrInvalidSignature)
	}

	n := new(big.Int).SetBytes(modulus)
	e := new(big.Int).SetBytes(exponent)
	s := new(big.Int).SetBytes(sig)

	if n.Sign() == 0 || e.Sign() == 0 {
		return fmt.Errorf("%w: degenerate public key", ErrInvalidSignature)
	}
	if s.Sign() == 0 {
		return fmt.Errorf("%w: zero signature", ErrInvalidSignature)
	}
	if s.Cmp(n) >= 0 {
		return fmt.Errorf("%w: signature not below modulus", ErrInvalidSignature)
	}

	recovered := new(big.Int).Exp(s, e, n).Bytes()
	if len(recovered) < dlen {
		return fmt.Errorf("%w: recovered value shorter than digest", ErrInvalidSignature)
	}
	if !bytes.Equal(recovered[len(recovered)-dlen:], digest) {
		return fmt.Errorf("%w: recovered digest mismatch", ErrInvalidSignature)
	}
	return nil
}
