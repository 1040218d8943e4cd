package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"watchlist/pkg/config"
	"watchlist/pkg/database"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, db *sql.DB) error {
				if err := database.Migrate(ctx, db); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List embedded migrations and whether each is applied",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, db *sql.DB) error {
				rows, err := database.Status(ctx, db)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Collected %d migrations\n", len(rows))
				for _, r := range rows {
					state := "pending"
					if r.Applied {
						state = "applied"
					}
					fmt.Fprintf(out, " - %05d %-8s %s\n", r.Version, state, r.Source)
				}
				return nil
			})
		},
	})

	return cmd
}

func withDB(ctx context.Context, fn func(context.Context, *sql.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.StoreDriver != "postgres" {
		return errors.New("migrate requires STORE_DRIVER=postgres")
	}

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, db)
}
