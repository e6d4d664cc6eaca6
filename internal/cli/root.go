// Package cli implements foodctl, the operator tool for FoodConnect stores.
package cli

import (
	"context"

	"foodconnect/internal/app"
	"foodconnect/internal/config"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DSN        string
	SQLitePath string
}

// NewRootCommand creates the root command for foodctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "foodctl",
		Short: "FoodConnect operator tool",
		Long: `Manage a FoodConnect store: apply the schema, load demo data and repair
accounts written without a status.

Without --dsn or --sqlite-path the store is chosen from the same environment
variables the server reads (DB_DRIVER, DATABASE_URL, SQLITE_PATH, ...).`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "PostgreSQL connection string")
	cmd.PersistentFlags().StringVar(&opts.SQLitePath, "sqlite-path", "", "path to a SQLite database file")
	cmd.MarkFlagsMutuallyExclusive("dsn", "sqlite-path")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewBackfillCommand(opts))
	cmd.AddCommand(NewStatesCommand())

	return cmd
}

// storeConfig prefers explicit flags over the environment
func (o *RootOptions) storeConfig() (*config.Config, error) {
	switch {
	case o.DSN != "":
		return &config.Config{DBDriver: config.DriverPostgres, DB: &config.DBConfig{DSN: o.DSN}}, nil
	case o.SQLitePath != "":
		return &config.Config{DBDriver: config.DriverSQLite, SQLitePath: o.SQLitePath}, nil
	}
	return config.LoadStore()
}

func (o *RootOptions) openStore(ctx context.Context) (*app.Store, error) {
	cfg, err := o.storeConfig()
	if err != nil {
		return nil, err
	}
	return app.OpenStore(ctx, cfg)
}
