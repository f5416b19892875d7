package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mikey/threat-alert-engine/internal/adapters/intake"
	"github.com/mikey/threat-alert-engine/internal/core"
	"github.com/mikey/threat-alert-engine/internal/di"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(flags *di.CLIFlags, logger *zap.Logger, svc *core.AlertService, cli *intake.CLIIntake) error {
	defer logger.Sync()

	var input io.Reader = os.Stdin
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		input = file
		logger.Debug("Reading event from file", zap.String("file", flags.InputFile))
	} else {
		logger.Debug("Reading event from stdin")
	}

	event, err := intake.ReadEvent(input)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if flags.Output == "json" {
		record, err := svc.Assess(ctx, event)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	}

	_, err = cli.ProcessEvent(ctx, event)
	return err
}
