// Package main is the gateway server binary.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"graphgate/internal/app"
	"graphgate/internal/config"
	"graphgate/internal/domain"
)

// Exit codes. Configuration failures get their own code so supervisors can
// tell "fix the environment" apart from runtime faults.
const (
	exitOK     = 0
	exitFault  = 1
	exitConfig = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}

	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return exitCodeFor(err)
	}
	return exitOK
}

// exitCodeFor maps a top-level failure onto the process exit code. A wrapped
// configuration error still exits with the configuration code.
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	var cfgErr *domain.ConfigError
	if errors.As(err, &cfgErr) {
		return exitConfig
	}
	return exitFault
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "graphgate",
		Short:         "Graph API gateway over PostgreSQL with per-request row-level security",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newCheckConfigCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Validate configuration, open the pool, and serve until terminated",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
			slog.SetDefault(logger)
			cfg.LogSummary(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			a, err := app.New(ctx, app.Deps{Cfg: cfg, Logger: logger})
			if err != nil {
				return err
			}
			return a.Server.Run(ctx)
		},
	}
}

func newCheckConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate the environment and print the redacted configuration",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
			cfg.LogSummary(logger)
			fmt.Println("configuration OK")
			return nil
		},
	}
}
