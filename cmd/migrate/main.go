// Command migrate runs schema operations against the main and auth stores.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"agora/internal/config"
	"agora/internal/database"

	"github.com/spf13/cobra"
)

var storeFlag string

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply and inspect schema migrations",
	Long: `Operate on the schema of the main and auth stores.

Examples:
  # Apply pending SQL migrations to both stores
  migrate up

  # Show what the configured DB_SCHEMA_MODE would do
  migrate status

  # Revert the newest auth migration
  migrate --store auth down 1`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "all", "store to operate on: main, auth or all")
	rootCmd.AddCommand(upCmd, autoCmd, statusCmd, downCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending SQL migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return eachStore(cmd, func(ctx context.Context, _ *config.Config, store *database.Store) error {
			if err := database.RunMigrations(ctx, store); err != nil {
				return err
			}
			cmd.Printf("[%s] sql migrations applied\n", store.Name())
			return nil
		})
	},
}

var autoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Create or update tables from the models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return eachStore(cmd, func(ctx context.Context, cfg *config.Config, store *database.Store) error {
			cfg.DBSchemaMode = database.SchemaModeAuto
			if err := database.ApplySchema(ctx, store, cfg); err != nil {
				return err
			}
			cmd.Printf("[%s] automigrate applied\n", store.Name())
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the schema plan and pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return eachStore(cmd, func(ctx context.Context, cfg *config.Config, store *database.Store) error {
			status, err := database.GetSchemaStatus(ctx, store, cfg)
			if err != nil {
				return err
			}
			cmd.Printf("[%s] mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d\n",
				status.Store, status.Mode, status.Environment, status.RunSQL, status.RunAuto,
				len(status.AppliedVersions), len(status.PendingMigrations))
			for _, m := range status.PendingMigrations {
				cmd.Printf("[%s] pending: %s\n", status.Store, m.String())
			}
			return nil
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down <version>",
	Short: "Revert the newest applied migration of one store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if storeFlag != database.StoreMain && storeFlag != database.StoreAuth {
			return fmt.Errorf("down needs --store main or --store auth")
		}
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return eachStore(cmd, func(ctx context.Context, _ *config.Config, store *database.Store) error {
			if err := database.RollbackMigration(ctx, store, version); err != nil {
				return err
			}
			cmd.Printf("[%s] rolled back migration %06d\n", store.Name(), version)
			return nil
		})
	},
}

// eachStore opens the stores and runs fn on those selected by --store.
func eachStore(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, store *database.Store) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	stores, err := database.OpenStores(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = stores.Close() }()

	targets, err := selectStores(stores, storeFlag)
	if err != nil {
		return err
	}
	for _, store := range targets {
		if err := fn(cmd.Context(), cfg, store); err != nil {
			return fmt.Errorf("%s store: %w", store.Name(), err)
		}
	}
	return nil
}

func selectStores(stores *database.Stores, name string) ([]*database.Store, error) {
	switch name {
	case "all", "":
		return []*database.Store{stores.Main, stores.Auth}, nil
	case database.StoreMain:
		return []*database.Store{stores.Main}, nil
	case database.StoreAuth:
		return []*database.Store{stores.Auth}, nil
	default:
		return nil, fmt.Errorf("unknown store %q", name)
	}
}
