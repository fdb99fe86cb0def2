package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/pathconvert/pathconvert/internal/models"
)

// EmbeddingStore handles collection vectors.
type EmbeddingStore struct {
	Base
}

// NewEmbeddingStore creates a new EmbeddingStore.
func NewEmbeddingStore(base Base) *EmbeddingStore {
	return &EmbeddingStore{Base: base}
}

// UpsertEmbedding writes the vector and model for a collection of the shop,
// replacing any previous pair.
func (s *EmbeddingStore) UpsertEmbedding(ctx context.Context, shopID uuid.UUID, e models.Embedding) (models.UpsertOutcome, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, shopID)
	if err != nil {
		return "", fmt.Errorf("upserting embedding: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	var inserted bool

	err = tx.QueryRow(ctx,
		`INSERT INTO collection_embeddings (collection_id, vector, model, text_hash)
		 SELECT c.id, $2, $3, $4 FROM collections c
		 WHERE c.id = $1 AND c.shop_id = current_setting('app.shop_id')::uuid
		 ON CONFLICT (collection_id) DO UPDATE
		 SET vector = EXCLUDED.vector, model = EXCLUDED.model,
		     text_hash = EXCLUDED.text_hash, updated_at = now()
		 RETURNING (xmax = 0)`,
		e.CollectionID, pgvector.NewVector(e.Vector), e.Model, e.TextHash,
	).Scan(&inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", models.ErrCollectionNotFound
	}

	if err != nil {
		return "", fmt.Errorf("writing embedding: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("committing embedding: %w", err)
	}

	if inserted {
		return models.OutcomeCreated, nil
	}

	return models.OutcomeUpdated, nil
}

// ListEmbeddingMeta returns model and text hash, without vectors, for every
// embedded collection of the shop.
func (s *EmbeddingStore) ListEmbeddingMeta(ctx context.Context, shopID uuid.UUID) (map[uuid.UUID]models.Embedding, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		`SELECT ce.collection_id, ce.model, ce.text_hash, ce.updated_at
		 FROM collection_embeddings ce
		 JOIN collections c ON c.id = ce.collection_id
		 WHERE c.shop_id = $1`, shopID)
	if err != nil {
		return nil, fmt.Errorf("querying embedding metadata: %w", err)
	}

	defer rows.Close()

	out := make(map[uuid.UUID]models.Embedding)

	for rows.Next() {
		var e models.Embedding
		if err := rows.Scan(&e.CollectionID, &e.Model, &e.TextHash, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning embedding metadata: %w", err)
		}

		out[e.CollectionID] = e
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embedding metadata: %w", err)
	}

	return out, nil
}

// GetEmbedding returns the stored embedding of one collection of the shop.
func (s *EmbeddingStore) GetEmbedding(ctx context.Context, shopID, collectionID uuid.UUID) (*models.Embedding, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var (
		e   models.Embedding
		vec pgvector.Vector
	)

	err := s.Pool.QueryRow(ctx,
		`SELECT ce.collection_id, ce.vector, ce.model, ce.text_hash, ce.updated_at
		 FROM collection_embeddings ce
		 JOIN collections c ON c.id = ce.collection_id
		 WHERE c.shop_id = $1 AND ce.collection_id = $2`, shopID, collectionID,
	).Scan(&e.CollectionID, &vec, &e.Model, &e.TextHash, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrEmbeddingNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting embedding: %w", err)
	}

	e.Vector = vec.Slice()

	return &e, nil
}

// ListEligible returns the shop's enabled, non-sale collections that have an
// embedding, with their vectors, ordered by ID.
func (s *EmbeddingStore) ListEligible(ctx context.Context, shopID uuid.UUID) ([]models.EligibleCollection, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("listing eligible collections: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // read-only tx, rollback is cleanup.

	rows, err := tx.Query(ctx,
		`SELECT c.id, c.handle, c.gender_category, ce.vector
		 FROM collections c
		 JOIN collection_embeddings ce ON ce.collection_id = c.id
		 WHERE c.shop_id = current_setting('app.shop_id')::uuid
		   AND c.is_enabled AND NOT c.is_excluded_sale
		 ORDER BY c.id`)
	if err != nil {
		return nil, fmt.Errorf("querying eligible collections: %w", err)
	}

	defer rows.Close()

	var out []models.EligibleCollection

	for rows.Next() {
		var (
			item models.EligibleCollection
			vec  pgvector.Vector
		)

		if err := rows.Scan(&item.ID, &item.Handle, &item.Category, &vec); err != nil {
			return nil, fmt.Errorf("scanning eligible collection: %w", err)
		}

		item.Vector = vec.Slice()
		out = append(out, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating eligible collections: %w", err)
	}

	return out, nil
}
