// Command pathconvert runs the recommendation API, the storefront app proxy
// endpoint and the background job worker in one process. Its shop
// subcommands register shops and record billing state directly in the
// database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pathconvert/pathconvert/internal/config"
	"github.com/pathconvert/pathconvert/internal/crypto"
	"github.com/pathconvert/pathconvert/internal/db"
	"github.com/pathconvert/pathconvert/internal/db/migrations"
	"github.com/pathconvert/pathconvert/internal/dbpool"
	"github.com/pathconvert/pathconvert/internal/store"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	rootCmd := &cobra.Command{
		Use:     "pathconvert",
		Short:   "pathconvert server: collection recommendations for Shopify storefronts",
		Version: config.Version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), log)
		},
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.AddCommand(newShopCmd(log))
	rootCmd.AddCommand(newMigrateCmd(log))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		log.WithError(err).Error("pathconvert exited")
		os.Exit(1)
	}
}

// bootstrap loads configuration, connects to Postgres and brings the schema
// up to date. The caller closes the returned pool.
func bootstrap(ctx context.Context, log *logrus.Logger) (*config.Config, *dbpool.Pool, store.Base, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, store.Base{}, fmt.Errorf("loading config: %w", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, store.Base{}, fmt.Errorf("parsing LOG_LEVEL: %w", err)
	}

	log.SetLevel(level)

	keys, err := crypto.NewDerivedProvider(cfg.EncryptionKey.Value())
	if err != nil {
		return nil, nil, store.Base{}, fmt.Errorf("initialising encryption: %w", err)
	}

	pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value(), cfg.DBMaxConns)
	if err != nil {
		return nil, nil, store.Base{}, fmt.Errorf("connecting to database: %w", err)
	}

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		pool.Close()
		return nil, nil, store.Base{}, fmt.Errorf("running migrations: %w", err)
	}

	if err := db.EnsureVectorDimensions(ctx, pool, log, cfg.EmbeddingDimensions); err != nil {
		pool.Close()
		return nil, nil, store.Base{}, fmt.Errorf("reconciling vector dimensions: %w", err)
	}

	return cfg, pool, store.Base{Pool: pool, Log: log, Crypto: crypto.NewService(keys)}, nil
}
