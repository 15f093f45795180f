package recovery

import (
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// ExpectedSubject derives the one-time recovery subject for an account and
// nonce: the lowercase 0x-prefixed hex of keccak256(account || nonce), with
// the nonce encoded as a 32-byte big-endian integer. The result is always 66
// characters. A successful recovery advances the nonce, so a given subject
// authorizes at most one recovery.
func ExpectedSubject(account common.Address, nonce uint64) string {
	var n [32]byte
	n[24] = byte(nonce >> 56)
	n[25] = byte(nonce >> 48)
	n[26] = byte(nonce >> 40)
	n[27] = byte(nonce >> 32)
	n[28] = byte(nonce >> 24)
	n[29] = byte(nonce >> 16)
	n[30] = byte(nonce >> 8)
	n[31] = byte(nonce)
	sum := ethcrypto.Keccak256(account.Bytes(), n[:])
	return "0x" + hex.EncodeToString(sum)
}
