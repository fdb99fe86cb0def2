package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pathconvert/pathconvert/internal/api"
	"github.com/pathconvert/pathconvert/internal/cache"
	"github.com/pathconvert/pathconvert/internal/catalog"
	"github.com/pathconvert/pathconvert/internal/config"
	"github.com/pathconvert/pathconvert/internal/db"
	"github.com/pathconvert/pathconvert/internal/service"
	"github.com/pathconvert/pathconvert/internal/similarity"
	"github.com/pathconvert/pathconvert/internal/store"
	"github.com/pathconvert/pathconvert/internal/ws"
)

const shutdownTimeout = 15 * time.Second

// recommendationStore joins the two stores the storefront read path needs.
type recommendationStore struct {
	*store.CollectionStore
	*store.EdgeStore
}

// serve runs the HTTP servers and the background loops until ctx is
// cancelled.
func serve(ctx context.Context, log *logrus.Logger) error {
	cfg, pool, base, err := bootstrap(ctx, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	log.WithField("version", config.Version).Info("starting pathconvert")

	shops := store.NewShopStore(base)
	collections := store.NewCollectionStore(base)
	embeddings := store.NewEmbeddingStore(base)
	edges := store.NewEdgeStore(base)
	jobStore := store.NewJobStore(base)

	var recCache service.RecommendationCache

	var readyCache api.Pinger

	if url := cfg.RedisURL.Value(); url != "" {
		rc, err := cache.NewRedisCache(ctx, url, cfg.CacheTTL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rc.Close() //nolint:errcheck // best-effort close on shutdown.

		recCache, readyCache = rc, rc

		log.WithField("ttl", cfg.CacheTTL).Info("recommendation cache enabled")
	}

	embedder := service.NewResilientEmbedder(newEmbedder(cfg), service.ResilientConfig{
		RatePerSec: cfg.EmbedRatePerSec,
		Burst:      cfg.EmbedBurst,
		MaxRetries: uint64(cfg.EmbedMaxRetries), //nolint:gosec // validated to [0, 10].
		Dimensions: cfg.EmbeddingDimensions,
	}, log)

	params := similarity.ThresholdParams{
		Percentile: cfg.ThresholdPercentile,
		Multiplier: cfg.ThresholdMultiplier,
		Min:        cfg.ThresholdMin,
		Max:        cfg.ThresholdMax,
	}

	syncer := service.NewSyncService(catalog.NewClient(cfg.ShopifyAPIVersion, log), shops, collections, log)
	generator := service.NewEmbeddingGenerator(collections, embeddings, embedder, log)
	builder := service.NewGraphBuilder(embeddings, edges, shops, params, cfg.DefaultMaxButtons, log)
	reader := service.NewRecommendationReader(recommendationStore{collections, edges}, shops, recCache, log)
	entitlements := service.NewBillingEntitlements(shops, log)
	queue := service.NewJobQueue(jobStore, entitlements, log)
	admin := service.NewAdminService(collections, shops, log)
	worker := service.NewJobWorker(jobStore, syncer, generator, builder, shops, service.WorkerConfig{
		PollInterval: cfg.JobPollInterval,
		ErrorBackoff: cfg.JobErrorBackoff,
	}, log)

	hub := ws.NewHub(ws.DefaultLimits(), log)
	bridge := db.NewNotifyBridge(log, pool, hub)

	handler := api.NewRouter(ctx, &api.RouterDeps{
		Log:             log,
		DB:              pool,
		Cache:           readyCache,
		Hub:             hub,
		Jobs:            queue,
		Admin:           admin,
		Recommendations: reader,
		Entitlements:    entitlements,
		Shops:           shops,
		KeyLookup:       shops,
		ProxySecret:     cfg.ShopifyAPISecret.Value(),
		CORSOrigins:     cfg.CORSOrigins,
		Version:         config.Version,
		EmbeddingModel:  cfg.EmbeddingModel,
		EmbeddingDims:   cfg.EmbeddingDimensions,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr(),
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		return bridge.Run(gctx)
	})

	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})

	listen(gctx, g, log, "api", srv)
	listen(gctx, g, log, "metrics", metricsSrv)

	err = g.Wait()

	log.Info("pathconvert stopped")

	return err
}

// listen runs srv until ctx is done, then shuts it down gracefully.
func listen(ctx context.Context, g *errgroup.Group, log *logrus.Logger, name string, srv *http.Server) {
	g.Go(func() error {
		log.WithFields(logrus.Fields{"server": name, "addr": srv.Addr}).Info("listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s server: %w", name, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).WithField("server", name).Error("shutdown failed")
		}

		return nil
	})
}

func newEmbedder(cfg *config.Config) service.Embedder {
	if cfg.EmbeddingProvider == "ollama" {
		return service.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbeddingModel, cfg.OllamaAllowRemote)
	}

	return service.NewOpenAIEmbedder(cfg.OpenAIAPIKey.Value(), cfg.OpenAIBaseURL, cfg.EmbeddingModel)
}
