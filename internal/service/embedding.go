package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pathconvert/pathconvert/internal/metrics"
	"github.com/pathconvert/pathconvert/internal/models"
)

// EmbeddingSourceStore reads the collections that need vectors.
type EmbeddingSourceStore interface {
	GetCollection(ctx context.Context, shopID, id uuid.UUID) (*models.Collection, error)
	ListEmbeddable(ctx context.Context, shopID uuid.UUID) ([]models.Collection, error)
}

// EmbeddingWriteStore persists vectors.
type EmbeddingWriteStore interface {
	UpsertEmbedding(ctx context.Context, shopID uuid.UUID, e models.Embedding) (models.UpsertOutcome, error)
	ListEmbeddingMeta(ctx context.Context, shopID uuid.UUID) (map[uuid.UUID]models.Embedding, error)
}

// EmbeddingGenerator builds embedding text for collections, embeds it and
// stores the vector together with the model that produced it.
type EmbeddingGenerator struct {
	collections EmbeddingSourceStore
	embeddings  EmbeddingWriteStore
	embedder    Embedder
	log         *logrus.Logger
}

// NewEmbeddingGenerator creates an EmbeddingGenerator.
func NewEmbeddingGenerator(collections EmbeddingSourceStore, embeddings EmbeddingWriteStore, embedder Embedder, log *logrus.Logger) *EmbeddingGenerator {
	return &EmbeddingGenerator{
		collections: collections,
		embeddings:  embeddings,
		embedder:    embedder,
		log:         log,
	}
}

// GenerateEmbedding embeds one collection and stores the result.
func (g *EmbeddingGenerator) GenerateEmbedding(ctx context.Context, shopID, collectionID uuid.UUID) ([]float32, error) {
	c, err := g.collections.GetCollection(ctx, shopID, collectionID)
	if err != nil {
		return nil, err
	}

	text := BuildEmbeddingText(*c)

	vec, _, err := g.embedAndStore(ctx, shopID, c.ID, text)
	if err != nil {
		return nil, err
	}

	return vec, nil
}

func (g *EmbeddingGenerator) embedAndStore(ctx context.Context, shopID, collectionID uuid.UUID, text string) ([]float32, models.UpsertOutcome, error) {
	vec, err := g.embedder.Generate(ctx, text)
	if err != nil {
		return nil, "", fmt.Errorf("embedding collection %s: %w", collectionID, err)
	}

	outcome, err := g.embeddings.UpsertEmbedding(ctx, shopID, models.Embedding{
		CollectionID: collectionID,
		Vector:       vec,
		Model:        g.embedder.Model(),
		TextHash:     TextHash(text),
	})
	if err != nil {
		return nil, "", fmt.Errorf("storing embedding for %s: %w", collectionID, err)
	}

	return vec, outcome, nil
}

// GenerateAll embeds every non-sale collection of the shop, one at a time.
// A collection whose stored vector came from the same model and text is
// skipped. Per-collection failures are logged and counted; only failing to
// list the collections aborts the run.
func (g *EmbeddingGenerator) GenerateAll(ctx context.Context, shopID uuid.UUID) (models.EmbeddingResult, error) {
	var result models.EmbeddingResult

	collections, err := g.collections.ListEmbeddable(ctx, shopID)
	if err != nil {
		return result, fmt.Errorf("listing collections to embed: %w", err)
	}

	existing, err := g.embeddings.ListEmbeddingMeta(ctx, shopID)
	if err != nil {
		g.log.WithError(err).WithField("shop_id", shopID).Warn("loading embedding metadata, re-embedding everything")

		existing = nil
	}

	model := g.embedder.Model()

	for i := range collections {
		c := &collections[i]

		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		text := BuildEmbeddingText(*c)
		hash := TextHash(text)

		if prev, ok := existing[c.ID]; ok && prev.Model == model && prev.TextHash == hash {
			result.Skipped++
			metrics.EmbeddingsTotal.WithLabelValues("skipped").Inc()

			continue
		}

		_, outcome, err := g.embedAndStore(ctx, shopID, c.ID, text)
		if err != nil {
			result.Errors++
			metrics.EmbeddingsTotal.WithLabelValues("error").Inc()
			g.log.WithError(err).WithFields(logrus.Fields{
				"shop_id":       shopID,
				"collection_id": c.ID,
				"handle":        c.Handle,
			}).Warn("embedding collection failed")

			continue
		}

		switch outcome {
		case models.OutcomeCreated:
			result.Created++
		default:
			result.Updated++
		}

		metrics.EmbeddingsTotal.WithLabelValues(string(outcome)).Inc()
	}

	g.log.WithFields(logrus.Fields{
		"shop_id": shopID,
		"created": result.Created,
		"updated": result.Updated,
		"skipped": result.Skipped,
		"errors":  result.Errors,
	}).Info("embedding generation finished")

	return result, nil
}
