package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/threat-alert-engine/internal/core"
	"github.com/mikey/threat-alert-engine/internal/di"
	"github.com/mikey/threat-alert-engine/internal/ports"
	"go.uber.org/zap"
)

func main() {
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	eventIntake ports.EventIntake,
	repo core.AssessmentRepository,
) error {
	defer logger.Sync()

	if err := eventIntake.Start(); err != nil {
		logger.Error("Failed to start intake", zap.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	if err := eventIntake.Stop(); err != nil {
		logger.Error("Failed to stop intake", zap.Error(err))
	}

	if stopper, ok := repo.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	logger.Info("Shutdown complete")
	return nil
}
