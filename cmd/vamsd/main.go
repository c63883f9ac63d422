package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vams/mailrisk/internal/core"
	"github.com/vams/mailrisk/internal/di"
	"github.com/vams/mailrisk/internal/ports"
)

func main() {
	// Load .env if present; configuration falls back to real env vars
	_ = godotenv.Load()

	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	transport ports.Transport,
	history core.SenderHistoryRepository,
) error {
	defer logger.Sync()

	// Start the transport
	if err := transport.Start(); err != nil {
		logger.Fatal("Failed to start transport", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	// Stop the transport
	if err := transport.Stop(); err != nil {
		logger.Error("Failed to stop transport", zap.Error(err))
	}

	// Close the history store if it holds a connection
	if closer, ok := history.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close history store", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}
