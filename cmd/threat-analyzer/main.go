package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mikey/threat-analyzer/internal/core"
	"github.com/mikey/threat-analyzer/internal/di"
	"github.com/mikey/threat-analyzer/internal/ports"
)

func main() {
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

// run starts the configured listener and blocks until SIGINT or SIGTERM
func run(
	logger *zap.Logger,
	listener ports.Listener,
	store core.VerdictRepository,
) error {
	defer logger.Sync()

	if err := listener.Start(); err != nil {
		logger.Error("Failed to start listener", zap.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	if err := listener.Stop(); err != nil {
		logger.Error("Failed to stop listener", zap.Error(err))
	}

	if stopper, ok := store.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	logger.Info("Shutdown complete")
	return nil
}
