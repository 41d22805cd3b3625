package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pitchside/server/internal/jobs"
	"github.com/pitchside/server/internal/storage/postgres"
)

type migrateOptions struct {
	path  string
	steps int
}

func newMigrateCommand(flags *globalFlags) *cobra.Command {
	opts := &migrateOptions{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Apply or roll back schema migrations.

Migrations are compiled into the binary. Pass --path to run them from a
directory instead.

Examples:
  server migrate up
  server migrate down --steps 1
  server migrate version`,
	}
	cmd.PersistentFlags().StringVar(&opts.path, "path", "", "directory of migration files (default: embedded)")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if err := postgres.MigrateUp(cfg.Database.URL, opts.path); err != nil {
				return err
			}
			if cfg.Jobs.Enabled {
				if err := migrateJobQueue(cmd.Context(), cfg.Database.URL, cfg.Database.MaxConnections); err != nil {
					return err
				}
			}
			return printVersion(cmd, cfg.Database.URL, opts.path)
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if err := postgres.MigrateDown(cfg.Database.URL, opts.path, opts.steps); err != nil {
				return err
			}
			return printVersion(cmd, cfg.Database.URL, opts.path)
		},
	}
	down.Flags().IntVar(&opts.steps, "steps", 1, "number of migrations to roll back")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			return printVersion(cmd, cfg.Database.URL, opts.path)
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

func migrateJobQueue(ctx context.Context, databaseURL string, maxConns int) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pool, err := postgres.Open(ctx, databaseURL, maxConns)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()
	return jobs.Migrate(ctx, pool)
}

func printVersion(cmd *cobra.Command, databaseURL, path string) error {
	version, dirty, err := postgres.MigrationVersion(databaseURL, path)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if dirty {
		fmt.Fprintf(out, "Schema version: %d (dirty)\n", version)
		return nil
	}
	fmt.Fprintf(out, "Schema version: %d\n", version)
	return nil
}
