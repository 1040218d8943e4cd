package database

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"watchlist/pkg/database/migrations"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		panic(fmt.Sprintf("goose dialect: %v", err))
	}
}

// Migrate applies all pending migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}
	return nil
}

// MigrationStatus describes one embedded migration.
type MigrationStatus struct {
	Version int64
	Source  string
	Applied bool
}

// Status lists embedded migrations and whether each is applied.
func Status(ctx context.Context, db *sql.DB) ([]MigrationStatus, error) {
	files, err := Collect()
	if err != nil {
		return nil, err
	}

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("read db version: %w", err)
	}

	out := make([]MigrationStatus, 0, len(files))
	for _, f := range files {
		out = append(out, MigrationStatus{
			Version: f.Version,
			Source:  f.Source,
			Applied: f.Version <= current,
		})
	}
	return out, nil
}

// Collect returns the embedded migrations in version order.
func Collect() (goose.Migrations, error) {
	files, err := goose.CollectMigrations(".", 0, math.MaxInt64)
	if err != nil {
		return nil, fmt.Errorf("collect migrations: %w", err)
	}
	return files, nil
}
