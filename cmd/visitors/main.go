// cmd/visitors/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mmss/internal/app"
	"mmss/internal/config"
	"mmss/internal/httpapi"
	"mmss/internal/visitors"
)

var (
	configFile string
	port       string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "visitors",
	Short:        "Serve the visitor directory",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
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

		svc := visitors.NewService(stores.Visitors, stores.Events, visitors.WithLogger(rt.Logger))
		router := httpapi.NewRouter()
		router.Mount("/visitors", visitors.NewHandler(svc).Routes())
		router.Method(http.MethodGet, "/metrics", rt.Metrics.Handler())

		if port == "" {
			port = cfg.Port
		}
		return app.Serve(ctx, ":"+port, router, rt.Logger)
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "", "config file (YAML)")
	rootCmd.Flags().StringVar(&port, "port", "8083", "listen port; empty uses the configured port")
}
