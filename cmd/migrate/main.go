package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/spf13/cobra"

	"github.com/ManuelReschke/PaddleSync/internal/pkg/config"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/database"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/env"
)

func main() {
	var source string

	rootCmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply the webhook pipeline SQL migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&source, "source", "file://migrations", "migration source URL")

	rootCmd.AddCommand(upCmd(&source))
	rootCmd.AddCommand(downCmd(&source))
	rootCmd.AddCommand(gotoCmd(&source))
	rootCmd.AddCommand(statusCmd(&source))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withMigrate opens the migrator for the configured database, runs fn and
// releases it again.
func withMigrate(source string, fn func(m *migrate.Migrate) error) error {
	// Load environment variables from .env
	env.SetupEnvFile()

	// Only the database settings are needed here; webhook secrets may be unset.
	var dbCfg config.Database
	if err := cleanenv.ReadEnv(&dbCfg); err != nil {
		return fmt.Errorf("read database configuration: %w", err)
	}
	log.Printf("Connecting to database: %s@%s:%s/%s", dbCfg.User, dbCfg.Host, dbCfg.Port, dbCfg.Name)

	m, err := migrate.New(source, database.MigrationURL(dbCfg))
	if err != nil {
		return fmt.Errorf("initialize migrations: %w", err)
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			log.Printf("Failed to close migration resources: %v, %v", sourceErr, dbErr)
		}
	}()
	return fn(m)
}

func upCmd(source *string) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrate(*source, func(m *migrate.Migrate) error {
				err := m.Up()
				switch {
				case errors.Is(err, migrate.ErrNoChange):
					log.Println("No change: database is already up to date")
				case err != nil:
					return fmt.Errorf("apply migrations: %w", err)
				default:
					log.Println("Migrations applied")
				}
				return nil
			})
		},
	}
}

func downCmd(source *string) *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrate(*source, func(m *migrate.Migrate) error {
				if err := m.Steps(-1); err != nil {
					return fmt.Errorf("roll back the last migration: %w", err)
				}
				log.Println("Rolled back the last migration")
				return nil
			})
		},
	}
}

func gotoCmd(source *string) *cobra.Command {
	return &cobra.Command{
		Use:   "goto [version]",
		Short: "Migrate up or down to the given version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid version number: %w", err)
			}
			return withMigrate(*source, func(m *migrate.Migrate) error {
				err := m.Migrate(uint(version))
				switch {
				case errors.Is(err, migrate.ErrNoChange):
					log.Printf("No change: database is already at version %d", version)
				case err != nil:
					return fmt.Errorf("migrate to version %d: %w", version, err)
				default:
					log.Printf("Migrated to version %d", version)
				}
				return nil
			})
		},
	}
}

func statusCmd(source *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrate(*source, func(m *migrate.Migrate) error {
				version, dirty, err := m.Version()
				switch {
				case errors.Is(err, migrate.ErrNilVersion):
					log.Println("No migrations have been applied yet")
				case err != nil:
					return fmt.Errorf("read migration version: %w", err)
				default:
					dirtyStatus := ""
					if dirty {
						dirtyStatus = " (dirty)"
					}
					log.Printf("Current migration version: %d%s", version, dirtyStatus)
				}
				return nil
			})
		},
	}
}
