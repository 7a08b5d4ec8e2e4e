// cmd/exchange/serve.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mmss/internal/app"
	"mmss/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the exchange HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		rt, err := app.Start(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.Shutdown(context.Background())

		stores, closeStores, err := app.OpenStores(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer closeStores()

		services, err := app.ServicesFor(ctx, cfg, stores, rt.Logger, rt.Metrics)
		if err != nil {
			return err
		}

		rt.Logger.Info("exchange starting",
			"driver", cfg.Database.Driver,
			"directories", cfg.Directory.Mode,
			"shift_capacity", cfg.Policy.ShiftCapacity,
			"loan_period_days", cfg.Policy.LoanPeriodDays,
		)
		router := app.Router(services, rt.Metrics, cfg.Directory.Mode == config.DirectoryLocal)
		return app.Serve(ctx, ":"+cfg.Port, router, rt.Logger)
	},
}
