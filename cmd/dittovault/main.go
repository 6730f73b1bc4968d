package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/dittovault/internal/logger"
	"github.com/marmos91/dittovault/pkg/config"
	"github.com/marmos91/dittovault/pkg/sweep"
	"github.com/marmos91/dittovault/pkg/vault"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Log level override (DEBUG, INFO, WARN, ERROR)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// CLI flag beats file and environment.
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err := setupLogging(&cfg.Logging); err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	fmt.Println("DittoVault - Deduplicated File Vault")
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Build the stores from configuration.
	metadataStore, err := config.CreateMetadataStore(ctx, &cfg.Metadata)
	if err != nil {
		log.Fatalf("Failed to create metadata store: %v", err)
	}
	defer func() {
		if err := metadataStore.Close(); err != nil {
			logger.Error("Metadata store close error: %v", err)
		}
	}()
	logger.Info("Metadata store: %s", cfg.Metadata.Type)

	blobStore, err := config.CreateBlobStore(ctx, &cfg.Blob)
	if err != nil {
		log.Fatalf("Failed to create blob store: %v", err)
	}
	logger.Info("Blob store: %s", cfg.Blob.Type)

	service, err := vault.NewService(vault.ServiceConfig{
		Store: metadataStore,
		Blobs: blobStore,
	})
	if err != nil {
		log.Fatalf("Failed to create vault service: %v", err)
	}

	// Start the retention sweeper.
	sweeper := sweep.NewSweeper(service, vault.RealClock{}, sweep.Config{
		Enabled:   cfg.Trash.SweepEnabled,
		Interval:  cfg.Trash.SweepInterval,
		Retention: cfg.Trash.Retention,
		DryRun:    cfg.Trash.DryRun,
	})
	sweeper.Start()

	logger.Info("Vault is running (retention=%s, sweep_interval=%s). Press Ctrl+C to stop.",
		cfg.Trash.Retention, cfg.Trash.SweepInterval)

	// Wait for interrupt signal.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received, initiating graceful shutdown...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := sweeper.Stop(shutdownCtx); err != nil {
		logger.Error("Sweeper shutdown error: %v", err)
		os.Exit(1)
	}

	logger.Info("Vault stopped gracefully")
}

// setupLogging applies the logging configuration to the process logger.
func setupLogging(cfg *config.LoggingConfig) error {
	logger.SetLevel(cfg.Level)

	switch cfg.Output {
	case "", "stdout":
		// Default output.
	case "stderr":
		logger.SetOutput(os.Stderr)
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file %q: %w", cfg.Output, err)
		}
		logger.SetOutput(f)
	}
	return nil
}
