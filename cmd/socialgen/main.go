package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/nvandessel/socialgen/internal/config"
	"github.com/nvandessel/socialgen/internal/logging"
	"github.com/spf13/cobra"
)

// Set via -ldflags at release time.
var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "socialgen",
		Short: "Synthetic social network dataset generator",
		Long: `socialgen generates synthetic social networks: a directed follow graph
plus a chronological post stream per user, written as JSON for
information-diffusion simulations.

Runs are reproducible: the same seed and parameters produce a
byte-identical dataset.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.socialgen/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug, or trace")

	rootCmd.AddCommand(
		newVersionCmd(),
		newGenerateCmd(),
		newValidateCmd(),
		newStatsCmd(),
		newGraphCmd(),
		newLoadCmd(),
		newRunsCmd(),
		newArchiveCmd(),
		newConfigCmd(),
	)

	return rootCmd
}

// loadConfig loads configuration for cmd: defaults, then the config file,
// then environment variables, then the --log-level flag.
func loadConfig(cmd *cobra.Command) (*config.SocialgenConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, nil
}

// newLogger returns the operational logger for cmd, writing to its stderr.
func newLogger(cmd *cobra.Command, cfg *config.SocialgenConfig) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
}

// signalContext returns a context cancelled on SIGINT (and SIGTERM where
// supported). The returned cancel func must be called to release the handler.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// valueOrDefault returns v, or def when v is empty.
func valueOrDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
