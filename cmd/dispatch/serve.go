package main

import (
	"github.com/Temutjin2k/dispatch-ops/internal/app"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the manager feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, log, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		if err := cfg.RequireAuth(); err != nil {
			return err
		}

		// Creating application
		application, err := app.NewApplication(ctx, cfg, log)
		if err != nil {
			log.Error(ctx, "failed to init application", err)
			return err
		}

		// Running the apllication
		if err := application.Run(ctx); err != nil {
			log.Error(ctx, "failed to run application", err)
			return err
		}
		return nil
	},
}
