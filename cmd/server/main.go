package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"fitness-pay-backend/internal/config"
	"fitness-pay-backend/internal/logging"
)

var envFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "fitpay",
		Short:         "Payment order relay for the fitness plan checkout",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(signCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and installs the process logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	logging.New(os.Stdout, cfg.LogLevel)
	warnConfigFallbacks(cfg)
	return cfg, nil
}

func warnConfigFallbacks(cfg *config.Config) {
	if cfg.RejectedSignMode != "" {
		slog.Warn("unknown SIGN_MODE, falling back to append", "value", cfg.RejectedSignMode)
	}
}
