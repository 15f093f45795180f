// Package fixtures provides test data factories for creating test objects.
package fixtures

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// TestDomain and TestSelector are the default signing identity of fixture
// emails.
const (
	TestDomain   = "example.com"
	TestSelector = "sel1"
)

// TestEmail builds a DKIM-signed recovery email whose signature verifies
// against the key pair generated for it. Fields can be overridden before
// calling Raw to produce malformed or mismatching variants.
type TestEmail struct {
	Key      *rsa.PrivateKey
	Domain   string
	Selector string
	HashAlgo string // "sha256" or "sha1"

	From        string // full from value, e.g. "Alice <alice@example.com>"
	To          string
	Subject     string
	MessageID   string
	Date        string
	MIMEVersion string
	Body        string

	// CorruptBody appends bytes to the body after the body hash is
	// computed, producing a body hash mismatch.
	CorruptBody bool

	// CorruptSignature flips a byte of the signature after signing
	CorruptSignature bool

	// ExtraHeader, when non-empty, is inserted verbatim as an additional
	// raw header line (without CRLF).
	ExtraHeader string
}

// NewTestEmail creates a signed test email with default values and a fresh
// 2048-bit RSA key.
func NewTestEmail(from, to, subject string) *TestEmail {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(fmt.Sprintf("fixtures: generate rsa key: %v", err))
	}
	return &TestEmail{
		Key:         key,
		Domain:      TestDomain,
		Selector:    TestSelector,
		HashAlgo:    "sha256",
		From:        from,
		To:          to,
		Subject:     subject,
		MessageID:   "<20260301120000.1@example.com>",
		Date:        "Sun, 1 Mar 2026 12:00:00 +0000",
		MIMEVersion: "1.0",
		Body:        "Recovery request.\r\n",
	}
}

// Exponent returns the big-endian public exponent bytes
func (e *TestEmail) Exponent() []byte {
	return big.NewInt(int64(e.Key.PublicKey.E)).Bytes()
}

// Modulus returns the big-endian modulus bytes
func (e *TestEmail) Modulus() []byte {
	return e.Key.PublicKey.N.Bytes()
}

// SenderAddress returns the bare address inside the from value
func (e *TestEmail) SenderAddress() string {
	if i := strings.IndexByte(e.From, '<'); i >= 0 {
		j := strings.IndexByte(e.From[i:], '>')
		return e.From[i+1 : i+j]
	}
	return e.From
}

// Raw assembles and signs the message. The signature covers the canonical
// header fields in the layout the verifier reconstructs, so a fixture email
// round-trips through extraction and verification.
func (e *TestEmail) Raw() []byte {
	bodyHash := e.bodyHash()

	sigValue := fmt.Sprintf(
		"v=1; a=rsa-%s; c=relaxed/relaxed; d=%s; s=%s; h=to:subject:message-id:date:from:mime-version; bh=%s; b=",
		e.HashAlgo, e.Domain, e.Selector, base64.StdEncoding.EncodeToString(bodyHash),
	)

	// The signed bytes: each canonical field as name:value, CRLF separated,
	// no trailing CRLF, with the signature field's b= value empty.
	serialized := strings.Join([]string{
		"to:" + e.To,
		"subject:" + e.Subject,
		"message-id:" + e.MessageID,
		"date:" + e.Date,
		"from:" + e.From,
		"mime-version:" + e.MIMEVersion,
		"dkim-signature:" + sigValue,
	}, "\r\n")

	sig := e.sign([]byte(serialized))
	if e.CorruptSignature {
		sig[len(sig)/2] ^= 0xff
	}

	body := e.Body
	if e.CorruptBody {
		body += "tampered\r\n"
	}

	var b strings.Builder
	b.WriteString("To: " + e.To + "\r\n")
	b.WriteString("Subject: " + e.Subject + "\r\n")
	b.WriteString("Message-ID: " + e.MessageID + "\r\n")
	b.WriteString("Date: " + e.Date + "\r\n")
	b.WriteString("From: " + e.From + "\r\n")
	b.WriteString("MIME-Version: " + e.MIMEVersion + "\r\n")
	if e.ExtraHeader != "" {
		b.WriteString(e.ExtraHeader + "\r\n")
	}
	b.WriteString("DKIM-Signature: " + sigValue + base64.StdEncoding.EncodeToString(sig) + "\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func (e *TestEmail) bodyHash() []byte {
	// Relaxed body canonicalization of fixture bodies is the identity: no
	// trailing empty lines, no whitespace runs.
	switch e.HashAlgo {
	case "sha1":
		sum := sha1.Sum([]byte(e.Body))
		return sum[:]
	default:
		sum := sha256.Sum256([]byte(e.Body))
		return sum[:]
	}
}

func (e *TestEmail) sign(data []byte) []byte {
	var (
		sig []byte
		err error
	)
	switch e.HashAlgo {
	case "sha1":
		sum := sha1.Sum(data)
		sig, err = rsa.SignPKCS1v15(rand.Reader, e.Key, crypto.SHA1, sum[:])
	default:
		sum := sha256.Sum256(data)
		sig, err = rsa.SignPKCS1v15(rand.Reader, e.Key, crypto.SHA256, sum[:])
	}
	if err != nil {
		panic(fmt.Sprintf("fixtures: sign: %v", err))
	}
	return sig
}

// TestAccount returns a deterministic non-zero account address
func TestAccount() common.Address {
	return common.HexToAddress("0x00000000000000000000000000000000deadbeef")
}

// TestOwner returns a deterministic new owner address
func TestOwner() common.Address {
	return common.HexToAddress("0x000000000000000000000000000000000000cafe")
}
