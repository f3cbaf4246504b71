// Command catalogctl runs schema and seed operations against the catalog database.
package main

import (
	"errors"
	"fmt"
	"os"

	"catalog/internal/config"
	"catalog/internal/database"
	"catalog/internal/seed"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "catalogctl",
		Short:        "Schema and seed tooling for the software catalog",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("read .env: %w", err)
			}
			return nil
		},
	}
	root.AddCommand(newMigrateCmd(), newSchemaCmd(), newSeedCmd())
	return root
}

// openDB loads config and connects without touching the schema.
func openDB() (*config.Config, *gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or inspect SQL migrations",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending SQL migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, db, err := openDB()
				if err != nil {
					return err
				}
				defer closeDB(db)
				return database.RunMigrations(cmd.Context(), db)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent SQL migration",
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, db, err := openDB()
				if err != nil {
					return err
				}
				defer closeDB(db)
				return database.RollbackMigration(cmd.Context(), db)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the schema policy and migration state",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, db, err := openDB()
				if err != nil {
					return err
				}
				defer closeDB(db)
				return printStatus(cmd, db, cfg)
			},
		},
	)
	return cmd
}

func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Model-driven schema operations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "auto",
		Short: "Run GORM AutoMigrate for every persisted model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)
			cfg.DBSchemaMode = database.SchemaModeAuto
			return database.ApplySchema(cmd.Context(), db, cfg)
		},
	})
	return cmd
}

func printStatus(cmd *cobra.Command, db *gorm.DB, cfg *config.Config) error {
	status, err := database.GetSchemaStatus(cmd.Context(), db, cfg)
	if err != nil {
		return fmt.Errorf("schema status: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "mode=%s env=%s run_sql=%t run_auto=%t\n",
		status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate)
	for _, m := range status.Migrations {
		state := "pending"
		if m.Applied {
			state = "applied"
		}
		fmt.Fprintf(out, "%-8s %06d %s\n", state, m.Version, m.File)
	}
	return nil
}

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load built-in categories or demo software",
	}

	var (
		count    int
		fakeSeed int64
	)
	demo := &cobra.Command{
		Use:   "demo",
		Short: "Insert generated demo software across existing categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)
			created, err := seed.Demo(cmd.Context(), db, seed.NewFactory(fakeSeed), count)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d demo software records\n", created)
			return nil
		},
	}
	demo.Flags().IntVar(&count, "count", 20, "number of records to generate")
	demo.Flags().Int64Var(&fakeSeed, "seed", 0, "faker seed; 0 picks a random one")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "categories",
			Short: "Upsert the built-in categories",
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, db, err := openDB()
				if err != nil {
					return err
				}
				defer closeDB(db)
				if err := seed.Categories(cmd.Context(), db); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "categories seeded")
				return nil
			},
		},
		demo,
	)
	return cmd
}
