package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/openlabour/labour-engine/internal/api"
	"github.com/openlabour/labour-engine/internal/cache"
	"github.com/openlabour/labour-engine/internal/config"
	"github.com/openlabour/labour-engine/internal/market"
	"github.com/openlabour/labour-engine/internal/pinning"
	"github.com/openlabour/labour-engine/internal/program"
	"github.com/openlabour/labour-engine/internal/reconcile"
	"github.com/openlabour/labour-engine/internal/storage"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting labour-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"cluster", cfg.Solana.Cluster,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Run database migrations
	slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
	if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize the prepared-transaction ledger
	repo, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
		DSN: cfg.Database.DSN,
	})
	if err != nil {
		slog.Error("failed to create database repository", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected successfully")

	// Optional snapshot cache
	var snapshots *cache.Cache
	if cfg.Redis.Address != "" {
		snapshots, err = cache.New(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		slog.Info("snapshot cache enabled", "addr", cfg.Redis.Address, "ttl", cfg.Redis.TTL)
	} else {
		slog.Info("snapshot cache disabled")
	}

	// Chain read client
	programID, err := solana.PublicKeyFromBase58(cfg.Solana.ProgramID)
	if err != nil {
		slog.Error("invalid program id", "error", err, "program_id", cfg.Solana.ProgramID)
		os.Exit(1)
	}
	chain := program.NewClient(cfg.Solana.RPCURL, programID, commitmentFor(cfg.Solana.Commitment))

	if err := chain.Health(initCtx); err != nil {
		slog.Warn("rpc node not healthy at startup", "error", err, "rpc_url", cfg.Solana.RPCURL)
	}

	// Metadata pinning
	pins := pinning.New(cfg.Pinning.JWT, cfg.Pinning.Gateway)

	// Marketplace service
	svc := market.NewService(chain, pins, repo, snapshots, cfg.Solana.TokenDecimals)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start reconciliation worker
	reconciler := reconcile.NewReconciler(chain, repo, snapshots, cfg.Reconcile.Interval, cfg.Reconcile.Expiry)
	reconciler.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, svc)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if snapshots != nil {
		if err := snapshots.Close(); err != nil {
			slog.Error("cache close error", "error", err)
		}
	}
	if err := repo.Close(); err != nil {
		slog.Error("repository close error", "error", err)
	}

	slog.Info("labour-engine stopped")
}

// commitmentFor maps the configured commitment level onto the RPC type.
// Config validation has already rejected anything else.
func commitmentFor(level string) rpc.CommitmentType {
	switch level {
	case "processed":
		return rpc.CommitmentProcessed
	case "finalized":
		return rpc.CommitmentFinalized
	default:
		return rpc.CommitmentConfirmed
	}
}
