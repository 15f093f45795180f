package relayer

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	vault "github.com/hashicorp/vault/api"

	"github.com/lukema95/xbit-wallet/pkg/types"
)

// KeyProvider seals and unseals the relayer's signing key. The plaintext key
// exists only in process memory; at rest it lives sealed by one of the
// supported backends.
type KeyProvider interface {
	// Seal encrypts key material
	Seal(ctx context.Context, data []byte) ([]byte, error)

	// Unseal decrypts key material
	Unseal(ctx context.Context, sealed []byte) ([]byte, error)

	// Provider returns the backend name (e.g. "local", "aws-kms", "vault")
	Provider() string
}

// ProviderConfig contains configuration for key providers
type ProviderConfig struct {
	// Backend selects the provider: local, aws-kms or vault
	Backend string

	// Local backend config
	LocalMasterKeyHex string

	// AWS KMS config
	AWSKMSKeyID  string
	AWSKMSRegion string

	// Vault config
	VaultAddress    string
	VaultToken      string
	VaultTransitKey string
}

// NewKeyProvider creates a KeyProvider based on the configuration
func NewKeyProvider(cfg *ProviderConfig) (KeyProvider, error) {
	switch cfg.Backend {
	case types.RelayerBackendLocal, "":
		return NewLocalProvider(cfg.LocalMasterKeyHex)
	case types.RelayerBackendAWSKMS:
		return NewAWSKMSProvider(cfg.AWSKMSKeyID, cfg.AWSKMSRegion)
	case types.RelayerBackendVault:
		return NewVaultProvider(cfg.VaultAddress, cfg.VaultToken, cfg.VaultTransitKey)
	default:
		return nil, fmt.Errorf("unsupported relayer key backend: %s", cfg.Backend)
	}
}

// LocalProvider seals the relayer key with AES-GCM under a master key from
// configuration. Suitable for development and simple self-hosted setups.
type LocalProvider struct {
	masterKey []byte
}

// NewLocalProvider creates a new local key provider from a hex-encoded
// 32-byte master key.
func NewLocalProvider(masterKeyHex string) (*LocalProvider, error) {
	if masterKeyHex == "" {
		return nil, fmt.Errorf("master key is required for local key provider")
	}

	masterKey, err := hex.DecodeString(masterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("master key must be hex-encoded: %w", err)
	}
	if len(masterKey) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes, got %d", len(masterKey))
	}

	return &LocalProvider{masterKey: masterKey}, nil
}

// Seal encrypts data using AES-GCM with the local master key
func (p *LocalProvider) Seal(ctx context.Context, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(p.masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, data, nil), nil
}

// Unseal decrypts data using AES-GCM with the local master key
func (p *LocalProvider) Unseal(ctx context.Context, sealed []byte) ([]byte, error) {
	block, err := aes.NewCipher(p.masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("sealed key too short")
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to unseal key: %w", err)
	}

	return plaintext, nil
}

// Provider returns the backend name
func (p *LocalProvider) Provider() string {
	return types.RelayerBackendLocal
}

// AWSKMSProvider seals the relayer key with AWS KMS
type AWSKMSProvider struct {
	keyID  string
	client *kms.Client
}

// NewAWSKMSProvider creates a new AWS KMS provider. Credentials come from
// the default chain: env vars, shared config, IAM role.
func NewAWSKMSProvider(keyID, region string) (*AWSKMSProvider, error) {
	if keyID == "" {
		return nil, fmt.Errorf("AWS KMS key ID is required")
	}
	if region == "" {
		return nil, fmt.Errorf("AWS region is required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSKMSProvider{
		keyID:  keyID,
		client: kms.NewFromConfig(cfg),
	}, nil
}

// Seal encrypts data using AWS KMS
func (p *AWSKMSProvider) Seal(ctx context.Context, data []byte) ([]byte, error) {
	output, err := p.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:     aws.String(p.keyID),
		Plaintext: data,
	})
	if err != nil {
		return nil, fmt.Errorf("AWS KMS encrypt failed: %w", err)
	}
	return output.CiphertextBlob, nil
}

// Unseal decrypts data using AWS KMS
func (p *AWSKMSProvider) Unseal(ctx context.Context, sealed []byte) ([]byte, error) {
	output, err := p.client.Decrypt(ctx, &kms.DecryptInput{
		KeyId:          aws.String(p.keyID),
		CiphertextBlob: sealed,
	})
	if err != nil {
		return nil, fmt.Errorf("AWS KMS decrypt failed: %w", err)
	}
	return output.Plaintext, nil
}

// Provider returns the backend name
func (p *AWSKMSProvider) Provider() string {
	return types.RelayerBackendAWSKMS
}

// VaultProvider seals the relayer key with the HashiCorp Vault Transit
// engine
type VaultProvider struct {
	transitKey string
	client     *vault.Client
}

// NewVaultProvider creates a new Vault provider
func NewVaultProvider(address, token, transitKey string) (*VaultProvider, error) {
	if address == "" {
		return nil, fmt.Errorf("Vault address is required")
	}
	if token == "" {
		return nil, fmt.Errorf("Vault token is required")
	}
	if transitKey == "" {
		return nil, fmt.Errorf("Vault transit key name is required")
	}

	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	client.SetToken(token)

	return &VaultProvider{
		transitKey: transitKey,
		client:     client,
	}, nil
}

// Seal encrypts data using the Vault Transit engine
func (p *VaultProvider) Seal(ctx context.Context, data []byte) ([]byte, error) {
	path := fmt.Sprintf("transit/encrypt/%s", p.transitKey)
	secret, err := p.client.Logical().WriteWithContext(ctx, path, map[string]interface{}{
		"plaintext": base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return nil, fmt.Errorf("Vault Transit encrypt failed: %w", err)
	}

	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("Vault Transit encrypt returned empty response")
	}

	ciphertext, ok := secret.Data["ciphertext"].(string)
	if !ok {
		return nil, fmt.Errorf("Vault Transit encrypt: ciphertext not found in response")
	}

	return []byte(ciphertext), nil
}

// Unseal decrypts data using the Vault Transit engine
func (p *VaultProvider) Unseal(ctx context.Context, sealed []byte) ([]byte, error) {
	path := fmt.Sprintf("transit/decrypt/%s", p.transitKey)
	secret, err := p.client.Logical().WriteWithContext(ctx, path, map[string]interface{}{
		"ciphertext": string(sealed),
	})
	if err != nil {
		return nil, fmt.Errorf("Vault Transit decrypt failed: %w", err)
	}

	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("Vault Transit decrypt returned empty response")
	}

	plaintextB64, ok := secret.Data["plaintext"].(string)
	if !ok {
		return nil, fmt.Errorf("Vault Transit decrypt: plaintext not found in response")
	}

	plaintext, err := base64.StdEncoding.DecodeString(plaintextB64)
	if err != nil {
		return nil, fmt.Errorf("Vault Transit decrypt: failed to decode plaintext: %w", err)
	}

	return plaintext, nil
}

// Provider returns the backend name
func (p *VaultProvider) Provider() string {
	return types.RelayerBackendVault
}

// Ensure providers implement KeyProvider
var (
	_ KeyProvider = (*LocalProvider)(nil)
	_ KeyProvider = (*AWSKMSProvider)(nil)
	_ KeyProvider = (*VaultProvider)(nil)
)
