package di

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/threat-analyzer/internal/adapters/filter"
	"github.com/mikey/threat-analyzer/internal/config"
	"github.com/mikey/threat-analyzer/internal/factory"
	"github.com/mikey/threat-analyzer/internal/logging"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	Mode       string
	InputFile  string
	URL        string
	Verbose    bool
	JSONLog    bool
	JSONOutput bool
	ConfigFile string
}

// ParseFlags parses the process command line
func ParseFlags() (*CLIFlags, error) {
	return parseFlags(flag.CommandLine, os.Args[1:])
}

// parseFlags registers the CLI flags on fs and parses args
func parseFlags(fs *flag.FlagSet, args []string) (*CLIFlags, error) {
	flags := &CLIFlags{}

	fs.StringVar(&flags.Mode, "mode", "email", "What to analyze (email, pdf, url)")
	fs.StringVar(&flags.InputFile, "file", "", "Input file (use stdin if not specified)")
	fs.StringVar(&flags.URL, "url", "", "URL to analyze in url mode")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose output and debug logging")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.BoolVar(&flags.JSONOutput, "json", false, "Print the result as JSON")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch flags.Mode {
	case "email", "pdf":
	case "url":
		if flags.URL == "" && fs.NArg() > 0 {
			flags.URL = fs.Arg(0)
		}
		if flags.URL == "" {
			return nil, fmt.Errorf("url mode requires -url")
		}
	default:
		return nil, fmt.Errorf("unsupported mode: %s", flags.Mode)
	}
	return flags, nil
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.Load(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			applyCLIFlags(cfg, flags)
			return cfg, nil
		}
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	if err := provideAnalysis(container); err != nil {
		return nil, err
	}

	// Register CLI filter
	if err := container.Provide(func(f *factory.ListenerFactory) *filter.CliFilter {
		return f.CreateCliFilter()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration for a one-shot run: no
// verdict store and no metrics
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()
	v.Set("store.type", "none")
	v.Set("metrics.enabled", false)

	cfg := config.NewFromViper(v)
	applyCLIFlags(cfg, flags)
	return cfg
}

func applyCLIFlags(cfg *config.Config, flags *CLIFlags) {
	v := cfg.GetViper()
	v.Set("server.type", "cli")
	v.Set("cli.verbose", flags.Verbose)
	v.Set("cli.json", flags.JSONOutput)
}
