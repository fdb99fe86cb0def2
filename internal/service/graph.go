package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pathconvert/pathconvert/internal/metrics"
	"github.com/pathconvert/pathconvert/internal/models"
	"github.com/pathconvert/pathconvert/internal/similarity"
)

// EligibleStore lists the collections that may take part in the graph.
type EligibleStore interface {
	ListEligible(ctx context.Context, shopID uuid.UUID) ([]models.EligibleCollection, error)
}

// EdgeWriteStore replaces a shop's edges atomically.
type EdgeWriteStore interface {
	ReplaceShopEdges(ctx context.Context, shopID uuid.UUID, edges []models.Edge) (int, error)
}

// SettingsStore reads and writes per-shop settings.
type SettingsStore interface {
	GetSettings(ctx context.Context, shopID uuid.UUID) (models.Settings, error)
	UpdateSettings(ctx context.Context, shopID uuid.UUID, req models.UpdateSettingsRequest) (models.Settings, error)
}

// GraphBuilder recomputes a shop's recommendation graph from its stored
// embeddings.
type GraphBuilder struct {
	eligible   EligibleStore
	edges      EdgeWriteStore
	settings   SettingsStore
	params     similarity.ThresholdParams
	maxButtons int
	log        *logrus.Logger
}

// NewGraphBuilder creates a GraphBuilder. defaultMaxButtons applies when a
// shop's stored limit is unusable.
func NewGraphBuilder(
	eligible EligibleStore, edges EdgeWriteStore, settings SettingsStore,
	params similarity.ThresholdParams, defaultMaxButtons int, log *logrus.Logger,
) *GraphBuilder {
	return &GraphBuilder{
		eligible:   eligible,
		edges:      edges,
		settings:   settings,
		params:     params,
		maxButtons: defaultMaxButtons,
		log:        log,
	}
}

// Build replaces every edge of the shop. With fewer than two eligible
// collections the old edges are still cleared. Nothing is written when
// scoring fails.
func (b *GraphBuilder) Build(ctx context.Context, shopID uuid.UUID) (models.BuildResult, error) {
	start := time.Now()

	items, err := b.eligible.ListEligible(ctx, shopID)
	if err != nil {
		return models.BuildResult{}, fmt.Errorf("listing eligible collections: %w", err)
	}

	limit := b.maxButtons

	settings, err := b.settings.GetSettings(ctx, shopID)
	if err != nil {
		return models.BuildResult{}, fmt.Errorf("loading settings: %w", err)
	}

	if settings.MaxButtons >= models.MinButtons && settings.MaxButtons <= models.MaxButtonLimit {
		limit = settings.MaxButtons
	}

	edges, err := similarity.BuildEdges(items, b.params, limit)
	if err != nil {
		return models.BuildResult{}, fmt.Errorf("scoring collections: %w", err)
	}

	written, err := b.edges.ReplaceShopEdges(ctx, shopID, edges)
	if err != nil {
		return models.BuildResult{}, fmt.Errorf("writing edges: %w", err)
	}

	metrics.EdgesBuilt.Add(float64(written))

	result := models.BuildResult{EdgesCreated: written, CollectionsProcessed: len(items)}

	b.log.WithFields(logrus.Fields{
		"shop_id":     shopID,
		"collections": result.CollectionsProcessed,
		"edges":       result.EdgesCreated,
		"max_buttons": limit,
		"duration":    time.Since(start),
	}).Info("recommendation graph built")

	return result, nil
}
