package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// HashAlgo constants for DKIM signature digests
const (
	HashAlgoSHA256 = "sha256"
	HashAlgoSHA1   = "sha1"
)

// RelayerBackend constants
const (
	RelayerBackendLocal  = "local"
	RelayerBackendAWSKMS = "aws-kms"
	RelayerBackendVault  = "vault"
)

// DKIMRecord is the trusted RSA public key for a signing domain.
// A record exists for a domain iff Exponent is non-empty.
type DKIMRecord struct {
	Domain    string    `json:"domain"`
	Exponent  []byte    `json:"exponent"`
	Modulus   []byte    `json:"modulus"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountInfo binds an email address to a recoverable wallet account and its
// recovery nonce. The nonce advances exactly once per successful recovery.
type AccountInfo struct {
	Email     string         `json:"email"`
	Account   common.Address `json:"account"`
	Nonce     uint64         `json:"nonce"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
