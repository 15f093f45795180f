package recovery

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestExpectedSubject(t *testing.T) {
	account := common.HexToAddress("0x1111111111111111111111111111111111111111")

	subject := ExpectedSubject(account, 0)
	require.Len(t, subject, 66)
	require.True(t, strings.HasPrefix(subject, "0x"))
	require.Equal(t, strings.ToLower(subject), subject)

	// Deterministic for the same inputs
	require.Equal(t, subject, ExpectedSubject(account, 0))

	// Changes with the nonce and the account
	require.NotEqual(t, subject, ExpectedSubject(account, 1))
	other := common.HexToAddress("0x2222222222222222222222222222222222222222")
	require.NotEqual(t, subject, ExpectedSubject(other, 0))
}

func TestExpectedSubjectEncoding(t *testing.T) {
	account := common.HexToAddress("0x00000000000000000000000000000000deadbeef")

	// keccak256 over the 20 account bytes followed by the nonce as a
	// 32-byte big-endian integer.
	var nonce [32]byte
	nonce[31] = 7
	sum := ethcrypto.Keccak256(account.Bytes(), nonce[:])
	require.Equal(t, "0x"+common.Bytes2Hex(sum), ExpectedSubject(account, 7))
}

func TestExpectedSubjectLargeNonce(t *testing.T) {
	account := common.HexToAddress("0x1111111111111111111111111111111111111111")

	var nonce [32]byte
	for i := 0; i < 8; i++ {
		nonce[24+i] = 0xff
	}
	sum := ethcrypto.Keccak256(account.Bytes(), nonce[:])
	require.Equal(t, "0x"+common.Bytes2Hex(sum), ExpectedSubject(account, ^uint64(0)))
}
