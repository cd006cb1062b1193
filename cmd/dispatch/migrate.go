package main

import (
	"github.com/Temutjin2k/dispatch-ops/internal/app"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	wrap "github.com/Temutjin2k/dispatch-ops/pkg/logger/wrapper"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := wrap.WithAction(cmd.Context(), types.ActionMigrate)

		cfg, log, err := loadConfig(ctx)
		if err != nil {
			return err
		}

		applied, err := app.Migrate(ctx, cfg.Database)
		if err != nil {
			log.Error(ctx, "migration failed", err, "applied", applied)
			return err
		}

		log.Info(ctx, "migrations applied", "driver", cfg.Database.Driver, "versions", applied)
		return nil
	},
}
