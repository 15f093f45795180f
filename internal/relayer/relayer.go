// Package relayer submits recovery transactions on behalf of verified
// email owners. The relayer holds a funded signing key, sealed at rest by
// a KeyProvider, and calls the account's recover function on chain once
// the recovery engine has accepted a request.
package relayer

import (
	"context"
	"crypto/ecdsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/lukema95/xbit-wallet/internal/logger"
)

// recoverGasLimit covers a recover(address) call with ownership rotation
const recoverGasLimit = uint64(200_000)

const accountABI = `[{"inputs":[{"internalType":"address","name":"newOwner","type":"address"}],"name":"recover","outputs":[],"stateMutability":"nonpayable","type":"function"}]`

// ChainClient is the subset of the Ethereum client the relayer needs
type ChainClient interface {
	ChainID() *big.Int
	PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
}

// Relayer signs and broadcasts recovery transactions
type Relayer struct {
	client     ChainClient
	key        *ecdsa.PrivateKey
	from       common.Address
	accountABI abi.ABI
}

// New creates a relayer by unsealing the base64-encoded sealed signing key
// with the given provider.
func New(ctx context.Context, client ChainClient, provider KeyProvider, sealedKeyB64 string) (*Relayer, error) {
	if sealedKeyB64 == "" {
		return nil, fmt.Errorf("sealed relayer key is required")
	}

	sealed, err := base64.StdEncoding.DecodeString(sealedKeyB64)
	if err != nil {
		return nil, fmt.Errorf("sealed relayer key must be base64-encoded: %w", err)
	}

	keyBytes, err := provider.Unseal(ctx, sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to unseal relayer key: %w", err)
	}

	key, err := ethcrypto.ToECDSA(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("unsealed relayer key is not a valid secp256k1 key: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(accountABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse account ABI: %w", err)
	}

	r := &Relayer{
		client:     client,
		key:        key,
		from:       ethcrypto.PubkeyToAddress(key.PublicKey),
		accountABI: parsed,
	}

	logger.Info(ctx, "relayer initialized",
		"relayer_address", r.from.Hex(),
		"key_backend", provider.Provider(),
		"chain_id", client.ChainID().String())

	return r, nil
}

// Address returns the relayer's signing address
func (r *Relayer) Address() common.Address {
	return r.from
}

// Recover calls recover(newOwner) on the account contract. The transaction
// is signed with the relayer key and broadcast; the caller decides how to
// react to broadcast failures.
func (r *Relayer) Recover(ctx context.Context, account common.Address, newOwner common.Address) error {
	calldata, err := r.accountABI.Pack("recover", newOwner)
	if err != nil {
		return fmt.Errorf("failed to encode recover calldata: %w", err)
	}

	nonce, err := r.client.PendingNonceAt(ctx, r.from)
	if err != nil {
		return fmt.Errorf("failed to fetch relayer nonce: %w", err)
	}

	gasPrice, err := r.client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch gas price: %w", err)
	}

	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &account,
		Value:    big.NewInt(0),
		Gas:      recoverGasLimit,
		GasPrice: gasPrice,
		Data:     calldata,
	})

	signer := ethtypes.LatestSignerForChainID(r.client.ChainID())
	signed, err := ethtypes.SignTx(tx, signer, r.key)
	if err != nil {
		return fmt.Errorf("failed to sign recovery transaction: %w", err)
	}

	if err := r.client.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("failed to broadcast recovery transaction: %w", err)
	}

	logger.Info(ctx, "recovery transaction broadcast",
		"tx_hash", signed.Hash().Hex(),
		"account", account.Hex(),
		"new_owner", newOwner.Hex())

	return nil
}
