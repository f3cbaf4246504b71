package database

import (
	"context"
	"fmt"
	"log/slog"

	"catalog/internal/database/migrations"
	"catalog/internal/middleware"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

// NewMigrationProvider builds a goose provider over the embedded SQL files.
func NewMigrationProvider(db *gorm.DB, dialect goose.Dialect) (*goose.Provider, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	provider, err := goose.NewProvider(dialect, sqlDB, migrations.FS)
	if err != nil {
		return nil, fmt.Errorf("create migration provider: %w", err)
	}
	return provider, nil
}

// RunMigrations applies every pending SQL migration.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	provider, err := NewMigrationProvider(db, goose.DialectPostgres)
	if err != nil {
		return err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		middleware.Logger.Info("Applied migration",
			slog.Int64("version", r.Source.Version),
			slog.String("file", r.Source.Path),
			slog.Duration("duration", r.Duration),
		)
	}
	return nil
}

// RollbackMigration reverts the most recently applied migration.
func RollbackMigration(ctx context.Context, db *gorm.DB) error {
	provider, err := NewMigrationProvider(db, goose.DialectPostgres)
	if err != nil {
		return err
	}
	result, err := provider.Down(ctx)
	if err != nil {
		return fmt.Errorf("rollback migration: %w", err)
	}
	if result != nil {
		middleware.Logger.Info("Rolled back migration",
			slog.Int64("version", result.Source.Version),
			slog.String("file", result.Source.Path),
		)
	}
	return nil
}
