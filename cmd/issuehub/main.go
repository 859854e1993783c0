package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/devlopersumit/issuehub/internal/app"
	"github.com/devlopersumit/issuehub/internal/config"
	"github.com/devlopersumit/issuehub/internal/observability"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issuehub",
		Short: "Discover open source issues and curated bounties",
	}
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	cmd.AddCommand(
		newServeCommand(),
		newSearchCommand(),
		newBountiesCommand(),
		newRateLimitCommand(),
		newCacheCommand(),
		newMCPCommand(),
	)
	return cmd
}

// loadConfig reads .env, the optional defaults file and the environment
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openApp builds the components for a one-shot command. Logs go to logOut so
// command output stays clean.
func openApp(logOut io.Writer) (*app.App, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	logger := observability.NewLoggerTo(logOut, cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a, logger, nil
}
