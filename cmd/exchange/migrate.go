// cmd/exchange/migrate.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mmss/internal/config"
	"mmss/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if cfg.Database.Driver == storage.DriverMemory {
			return fmt.Errorf("nothing to migrate: database.driver is %s", storage.DriverMemory)
		}

		db, err := storage.Open(cmd.Context(), cfg.Database.Driver, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := storage.Migrate(cmd.Context(), db); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema applied to %s database\n", cfg.Database.Driver)
		return nil
	},
}
