package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/mikey/threat-analyzer/internal/adapters/filter"
	"github.com/mikey/threat-analyzer/internal/di"
)

func main() {
	flags, err := di.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}
	defer di.Close(container)

	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(flags *di.CLIFlags, logger *zap.Logger, cli *filter.CliFilter) error {
	defer logger.Sync()
	ctx := context.Background()

	if flags.Mode == "url" {
		_, err := cli.ProcessURL(ctx, flags.URL)
		return err
	}

	raw, err := readInput(flags.InputFile, logger)
	if err != nil {
		return err
	}

	switch flags.Mode {
	case "pdf":
		_, err = cli.ProcessPDF(ctx, raw)
	default:
		_, err = cli.ProcessEmail(ctx, raw)
	}
	return err
}

// readInput reads the named file, or stdin when name is empty
func readInput(name string, logger *zap.Logger) ([]byte, error) {
	if name == "" {
		logger.Info("Reading input from stdin")
		return io.ReadAll(os.Stdin)
	}

	logger.Info("Reading input from file", zap.String("file", name))
	raw, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return raw, nil
}
