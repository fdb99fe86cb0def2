package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pathconvert/pathconvert/internal/config"
	"github.com/pathconvert/pathconvert/internal/db"
	"github.com/pathconvert/pathconvert/internal/db/migrations"
	"github.com/pathconvert/pathconvert/internal/dbpool"
)

func newMigrateCmd(log *logrus.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Inspect or apply database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations and reconcile vector dimensions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, pool, _, err := bootstrap(cmd.Context(), log)
			if err != nil {
				return err
			}

			pool.Close()

			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the applied schema version without migrating",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value(), cfg.DBMaxConns)
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer pool.Close()

			version, pending, err := db.SchemaVersion(ctx, pool, migrations.FS)
			if err != nil {
				return err
			}

			return printJSON(map[string]any{"version": version, "pending": pending})
		},
	})

	return cmd
}
