package main

import (
	"github.com/Temutjin2k/dispatch-ops/internal/app"
	"github.com/Temutjin2k/dispatch-ops/internal/seed"
	"github.com/spf13/cobra"
)

var seedOpts seed.Options

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with fake drivers and orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, log, err := loadConfig(ctx)
		if err != nil {
			return err
		}

		storage, err := app.OpenStorage(ctx, cfg.Database, log)
		if err != nil {
			return err
		}
		defer storage.Close()

		services, err := app.NewServices(ctx, cfg, storage, nil, nil, log)
		if err != nil {
			return err
		}

		_, err = seed.New(services.Drivers, services.Orders, log).Run(ctx, seedOpts)
		return err
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedOpts.Drivers, "drivers", 10, "number of drivers to create")
	seedCmd.Flags().IntVar(&seedOpts.Online, "online", 5, "how many of the new drivers go online")
	seedCmd.Flags().IntVar(&seedOpts.Orders, "orders", 20, "number of orders to create")
}
