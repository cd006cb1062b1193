package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Temutjin2k/dispatch-ops/config"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Delivery dispatch operations service",
	Long: `dispatch runs the delivery operations backend: orders and their lifecycle,
drivers, earnings, issues, live manager feed and the daily overview.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml); DISPATCH_* env vars override it")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, tokenCmd)
}

// loadConfig reads the configuration and builds the logger for it.
func loadConfig(ctx context.Context) (*config.Config, logger.Logger, error) {
	cfg, err := config.NewConfig(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to configure application: %w", err)
	}

	log := logger.InitLogger(cfg.ServiceName, cfg.Log.Level)
	config.PrintConfig(ctx, log, cfg)
	return cfg, log, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
