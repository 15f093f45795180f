package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds infrastructure-level configuration for the recovery service.
// The trusted DKIM keys and recoverable accounts live in the database, not here.
type Config struct {
	// Database
	PostgresDSN string

	// Recovery
	ReceiverEmail string // the single mailbox recovery emails must be addressed to

	// Admin API
	AdminTokenHash string // bcrypt hash of the administrator bearer token

	// Chain
	EthRPCURL string

	// Relayer key backend
	RelayerBackend       string // local, aws-kms or vault
	RelayerSealedKey     string // base64 sealed secp256k1 key, decrypted by the backend
	RelayerLocalKeyHex   string // master key for the local backend
	RelayerAWSKMSKeyID   string
	RelayerAWSKMSRegion  string
	RelayerVaultAddress  string
	RelayerVaultToken    string
	RelayerVaultTransit  string

	// Server
	Port             int
	RateLimitRPS     int
	RateLimitBurst   int
	RateLimitEnabled bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		PostgresDSN:         getEnv("POSTGRES_DSN", ""),
		ReceiverEmail:       getEnv("RECEIVER_EMAIL", ""),
		AdminTokenHash:      getEnv("ADMIN_TOKEN_HASH", ""),
		EthRPCURL:           getEnv("ETH_RPC_URL", ""),
		RelayerBackend:      getEnv("RELAYER_BACKEND", "local"),
		RelayerSealedKey:    getEnv("RELAYER_SEALED_KEY", ""),
		RelayerLocalKeyHex:  getEnv("RELAYER_LOCAL_MASTER_KEY", ""),
		RelayerAWSKMSKeyID:  getEnv("RELAYER_AWS_KMS_KEY_ID", ""),
		RelayerAWSKMSRegion: getEnv("RELAYER_AWS_KMS_REGION", ""),
		RelayerVaultAddress: getEnv("RELAYER_VAULT_ADDR", ""),
		RelayerVaultToken:   getEnv("RELAYER_VAULT_TOKEN", ""),
		RelayerVaultTransit: getEnv("RELAYER_VAULT_TRANSIT_KEY", ""),
		Port:                getEnvInt("PORT", 8080),
		RateLimitRPS:        getEnvInt("RATE_LIMIT_RPS", 5),
		RateLimitBurst:      getEnvInt("RATE_LIMIT_BURST", 10),
		RateLimitEnabled:    getEnvBool("RATE_LIMIT_ENABLED", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required")
	}

	if c.ReceiverEmail == "" {
		return fmt.Errorf("RECEIVER_EMAIL is required")
	}

	if c.AdminTokenHash == "" {
		return fmt.Errorf("ADMIN_TOKEN_HASH is required")
	}

	switch c.RelayerBackend {
	case "local":
		if c.RelayerLocalKeyHex == "" {
			return fmt.Errorf("RELAYER_LOCAL_MASTER_KEY is required when RELAYER_BACKEND is 'local'")
		}
	case "aws-kms":
		if c.RelayerAWSKMSKeyID == "" {
			return fmt.Errorf("RELAYER_AWS_KMS_KEY_ID is required when RELAYER_BACKEND is 'aws-kms'")
		}
	case "vault":
		if c.RelayerVaultAddress == "" || c.RelayerVaultTransit == "" {
			return fmt.Errorf("RELAYER_VAULT_ADDR and RELAYER_VAULT_TRANSIT_KEY are required when RELAYER_BACKEND is 'vault'")
		}
	default:
		return fmt.Errorf("RELAYER_BACKEND must be 'local', 'aws-kms' or 'vault', got: %s", c.RelayerBackend)
	}

	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	valueStr = strings.ToLower(valueStr)
	return valueStr == "true" || valueStr == "1" || valueStr == "yes"
}
