package cmd

import (
	"fmt"

	"github.com/cozy-creator/classify-server/internal/config"
	"github.com/cozy-creator/classify-server/internal/db"
	"github.com/cozy-creator/classify-server/internal/db/migrations"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun/migrate"
)

var Cmd = &cobra.Command{
	Use:   "db",
	Short: "Utility for database management",
}

func init() {
	migrationCmd := &cobra.Command{
		Use:   "migration",
		Short: "Utility for handling database migrations",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "create migration tables",
		RunE: withMigrator(func(cmd *cobra.Command, migrator *migrate.Migrator, args []string) error {
			return migrator.Init(cmd.Context())
		}),
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "migrate database",
		RunE: withMigrator(func(cmd *cobra.Command, migrator *migrate.Migrator, args []string) error {
			if err := migrator.Init(cmd.Context()); err != nil {
				return err
			}
			if err := migrator.Lock(cmd.Context()); err != nil {
				return err
			}
			defer migrator.Unlock(cmd.Context()) //nolint:errcheck

			group, err := migrator.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			if group.IsZero() {
				fmt.Fprintf(cmd.OutOrStdout(), "there are no new migrations to run (database is up to date)\n")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated to %s\n", group)
			return nil
		}),
	}

	rollbackCmd := &cobra.Command{
		Use:   "rollback",
		Short: "rollback the last migration group",
		RunE: withMigrator(func(cmd *cobra.Command, migrator *migrate.Migrator, args []string) error {
			if err := migrator.Lock(cmd.Context()); err != nil {
				return err
			}
			defer migrator.Unlock(cmd.Context()) //nolint:errcheck

			group, err := migrator.Rollback(cmd.Context())
			if err != nil {
				return err
			}
			if group.IsZero() {
				fmt.Fprintf(cmd.OutOrStdout(), "there are no groups to roll back\n")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s\n", group)
			return nil
		}),
	}

	lockCmd := &cobra.Command{
		Use:   "lock",
		Short: "Lock the database",
		RunE: withMigrator(func(cmd *cobra.Command, migrator *migrate.Migrator, args []string) error {
			if err := migrator.Lock(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "locked\n")
			return nil
		}),
	}

	unlockCmd := &cobra.Command{
		Use:   "unlock",
		Short: "Unlock the database",
		RunE: withMigrator(func(cmd *cobra.Command, migrator *migrate.Migrator, args []string) error {
			if err := migrator.Unlock(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unlocked\n")
			return nil
		}),
	}

	createGoCmd := &cobra.Command{
		Use:   "create-go <name>",
		Short: "Create a Go migration file",
		Args:  cobra.ExactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, migrator *migrate.Migrator, args []string) error {
			file, err := migrator.CreateGoMigration(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created migration file %s in %s\n", file.Name, file.Path)
			return nil
		}),
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the status of the migrations",
		RunE: withMigrator(func(cmd *cobra.Command, migrator *migrate.Migrator, args []string) error {
			status, err := migrator.MigrationsWithStatus(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations: %s\n", status)
			fmt.Fprintf(cmd.OutOrStdout(), "unapplied migrations: %s\n", status.Unapplied())
			fmt.Fprintf(cmd.OutOrStdout(), "last migration group: %s\n", status.LastGroup())
			return nil
		}),
	}

	markAppliedCmd := &cobra.Command{
		Use:   "mark-applied",
		Short: "Mark all migrations as applied without actually running them",
		RunE: withMigrator(func(cmd *cobra.Command, migrator *migrate.Migrator, args []string) error {
			group, err := migrator.Migrate(cmd.Context(), migrate.WithNopMigration())
			if err != nil {
				return err
			}
			if group.IsZero() {
				fmt.Fprintf(cmd.OutOrStdout(), "there are no new migrations to mark as applied\n")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "marked as applied %s\n", group)
			return nil
		}),
	}

	migrationCmd.AddCommand(
		initCmd,
		migrateCmd,
		rollbackCmd,
		lockCmd,
		unlockCmd,
		createGoCmd,
		statusCmd,
		markAppliedCmd,
	)

	Cmd.AddCommand(migrationCmd)
}

type migratorRunE func(cmd *cobra.Command, migrator *migrate.Migrator, args []string) error

func withMigrator(f migratorRunE) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := config.MustGetConfig()
		if !cfg.HistoryEnabled() {
			return fmt.Errorf("db.dsn is not set")
		}

		driver, err := db.NewConnection(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer driver.Close()

		return f(cmd, migrate.NewMigrator(driver.GetDB(), migrations.Migrations), args)
	}
}
