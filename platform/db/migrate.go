// Package db provides database connection infrastructure.
// This is part of the platform layer and contains no business logic.
package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies all pending schema migrations. The migration SQL is
// portable (TEXT/INTEGER/REAL columns, app-generated ids) so one set of files
// serves both engines.
func Migrate(ctx context.Context, d *DB) error {
	dialect := goose.DialectPostgres
	if d.Engine == EngineSQLite {
		dialect = goose.DialectSQLite3
	}

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations fs: %w", err)
	}

	provider, err := goose.NewProvider(dialect, d.DB.DB, sub)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
