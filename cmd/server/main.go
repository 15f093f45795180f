package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lukema95/xbit-wallet/internal/api"
	"github.com/lukema95/xbit-wallet/internal/app"
	"github.com/lukema95/xbit-wallet/internal/config"
	"github.com/lukema95/xbit-wallet/internal/eth"
	"github.com/lukema95/xbit-wallet/internal/logger"
	"github.com/lukema95/xbit-wallet/internal/middleware"
	"github.com/lukema95/xbit-wallet/internal/recovery"
	"github.com/lukema95/xbit-wallet/internal/relayer"
	"github.com/lukema95/xbit-wallet/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Initialize database
	store, err := storage.New(cfg.PostgresDSN)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	slog.Info("connected to database")

	// Initialize chain client
	chainClient, err := eth.NewClient(cfg.EthRPCURL)
	if err != nil {
		slog.Error("failed to connect to ethereum node", "error", err)
		os.Exit(1)
	}
	defer chainClient.Close()

	slog.Info("connected to ethereum node", "chain_id", chainClient.ChainID().String())

	// Initialize relayer with the sealed signing key
	keyProvider, err := relayer.NewKeyProvider(&relayer.ProviderConfig{
		Backend:           cfg.RelayerBackend,
		LocalMasterKeyHex: cfg.RelayerLocalKeyHex,
		AWSKMSKeyID:       cfg.RelayerAWSKMSKeyID,
		AWSKMSRegion:      cfg.RelayerAWSKMSRegion,
		VaultAddress:      cfg.RelayerVaultAddress,
		VaultToken:        cfg.RelayerVaultToken,
		VaultTransitKey:   cfg.RelayerVaultTransit,
	})
	if err != nil {
		slog.Error("failed to initialize relayer key provider", "error", err)
		os.Exit(1)
	}

	rly, err := relayer.New(context.Background(), chainClient, keyProvider, cfg.RelayerSealedKey)
	if err != nil {
		slog.Error("failed to initialize relayer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories and the recovery engine
	recordRepo := storage.NewDKIMRecordRepository(store)
	accountRepo := storage.NewAccountRepository(store)
	engine := recovery.NewEngine(cfg.ReceiverEmail, recordRepo, accountRepo, rly)

	// Initialize application services
	recoveryService := app.NewRecoveryService(engine)
	registryService := app.NewRegistryService(recordRepo, accountRepo)

	// Initialize middleware
	adminAuth := middleware.NewAdminAuthMiddleware(cfg.AdminTokenHash)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.RateLimitEnabled)

	// Initialize API server
	server := api.NewServer(cfg, recoveryService, registryService, adminAuth, rateLimiter)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Wait for either server error or shutdown signal
	select {
	case err := <-serverErrors:
		slog.Error("server error", "error", err)
		os.Exit(1)

	case sig := <-shutdown:
		slog.Info("received shutdown signal", "signal", sig.String())

		// Create a context with timeout for shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("error during shutdown", "error", err)
			slog.Warn("forcing shutdown")
		}

		slog.Info("server stopped")
	}
}
