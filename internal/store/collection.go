package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pathconvert/pathconvert/internal/models"
)

// CollectionStore handles collection records synced from the catalog.
type CollectionStore struct {
	Base
}

// NewCollectionStore creates a new CollectionStore.
func NewCollectionStore(base Base) *CollectionStore {
	return &CollectionStore{Base: base}
}

const collectionColumns = `id, shop_id, external_id, handle, title, description_text,
	product_sample, gender_category, is_excluded_sale, is_enabled,
	updated_at_source, created_at, updated_at`

func scanCollection(scan func(dest ...any) error) (*models.Collection, error) {
	var c models.Collection

	err := scan(
		&c.ID,
		&c.ShopID,
		&c.ExternalID,
		&c.Handle,
		&c.Title,
		&c.Description,
		&c.ProductSample,
		&c.Category,
		&c.ExcludedSale,
		&c.Enabled,
		&c.UpdatedAtSource,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// UpsertCollection inserts a catalog record or updates the stored one when
// any synced field changed. New sale collections start disabled. A record
// that turns into a sale collection loses its edges.
func (s *CollectionStore) UpsertCollection(ctx context.Context, shopID uuid.UUID, u models.CollectionUpsert) (models.UpsertOutcome, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, shopID)
	if err != nil {
		return "", fmt.Errorf("upserting collection: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	var (
		id       uuid.UUID
		inserted bool
	)

	err = tx.QueryRow(ctx,
		`INSERT INTO collections (shop_id, external_id, handle, title, description_text,
		                          product_sample, gender_category, is_excluded_sale, is_enabled, updated_at_source)
		 VALUES (current_setting('app.shop_id')::uuid, $1, $2, $3, $4, $5, $6, $7, NOT $7, $8)
		 ON CONFLICT (shop_id, external_id) DO UPDATE
		 SET handle = EXCLUDED.handle,
		     title = EXCLUDED.title,
		     description_text = EXCLUDED.description_text,
		     product_sample = EXCLUDED.product_sample,
		     gender_category = EXCLUDED.gender_category,
		     is_excluded_sale = EXCLUDED.is_excluded_sale,
		     updated_at_source = EXCLUDED.updated_at_source,
		     updated_at = now()
		 WHERE (collections.handle, collections.title, collections.description_text,
		        collections.product_sample, collections.gender_category, collections.is_excluded_sale)
		       IS DISTINCT FROM
		       (EXCLUDED.handle, EXCLUDED.title, EXCLUDED.description_text,
		        EXCLUDED.product_sample, EXCLUDED.gender_category, EXCLUDED.is_excluded_sale)
		 RETURNING id, (xmax = 0)`,
		u.ExternalID, u.Handle, u.Title, u.Description, u.ProductSample,
		u.Category, u.ExcludedSale, u.UpdatedAtSource,
	).Scan(&id, &inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.OutcomeSkipped, nil
	}

	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("collection %q: %w", u.Handle, models.ErrDuplicateKey)
		}

		return "", fmt.Errorf("writing collection: %w", err)
	}

	if inserted {
		if err := tx.Commit(ctx); err != nil {
			return "", fmt.Errorf("committing collection: %w", err)
		}

		return models.OutcomeCreated, nil
	}

	if u.ExcludedSale {
		if _, err := deleteEdgesTouching(ctx, tx, []uuid.UUID{id}); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("committing collection: %w", err)
	}

	return models.OutcomeUpdated, nil
}

// DisableMissing disables every enabled collection whose external ID is not
// in present and removes all edges touching them, in one transaction.
func (s *CollectionStore) DisableMissing(ctx context.Context, shopID uuid.UUID, present []string) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, shopID)
	if err != nil {
		return 0, fmt.Errorf("disabling missing collections: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	if present == nil {
		present = []string{}
	}

	rows, err := tx.Query(ctx,
		`UPDATE collections SET is_enabled = false, updated_at = now()
		 WHERE shop_id = current_setting('app.shop_id')::uuid
		   AND is_enabled
		   AND NOT (external_id = ANY($1))
		 RETURNING id`, present)
	if err != nil {
		return 0, fmt.Errorf("disabling collections: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return 0, fmt.Errorf("collecting disabled collections: %w", err)
	}

	if _, err := deleteEdgesTouching(ctx, tx, ids); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing disabled collections: %w", err)
	}

	return len(ids), nil
}

// SetEnabled enables or disables collections by ID and bumps the cache
// version. Disabling removes every edge touching them. Returns the number of
// collections changed.
func (s *CollectionStore) SetEnabled(ctx context.Context, shopID uuid.UUID, ids []uuid.UUID, enabled bool) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, shopID)
	if err != nil {
		return 0, fmt.Errorf("setting collection state: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	rows, err := tx.Query(ctx,
		`UPDATE collections SET is_enabled = $2, updated_at = now()
		 WHERE shop_id = current_setting('app.shop_id')::uuid
		   AND id = ANY($1)
		   AND is_enabled <> $2
		 RETURNING id`, ids, enabled)
	if err != nil {
		return 0, fmt.Errorf("updating collection state: %w", err)
	}

	changed, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return 0, fmt.Errorf("collecting changed collections: %w", err)
	}

	if !enabled {
		if _, err := deleteEdgesTouching(ctx, tx, changed); err != nil {
			return 0, err
		}
	}

	if _, err := bumpCacheVersion(ctx, tx); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing collection state: %w", err)
	}

	return len(changed), nil
}

// GetCollection returns one collection of the shop.
func (s *CollectionStore) GetCollection(ctx context.Context, shopID, id uuid.UUID) (*models.Collection, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	c, err := scanCollection(s.Pool.QueryRow(ctx,
		"SELECT "+collectionColumns+" FROM collections WHERE shop_id = $1 AND id = $2", shopID, id).Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrCollectionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting collection: %w", err)
	}

	return c, nil
}

// GetCollectionByHandle returns one collection of the shop by handle.
func (s *CollectionStore) GetCollectionByHandle(ctx context.Context, shopID uuid.UUID, handle string) (*models.Collection, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	c, err := scanCollection(s.Pool.QueryRow(ctx,
		"SELECT "+collectionColumns+" FROM collections WHERE shop_id = $1 AND handle = $2", shopID, handle).Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrCollectionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting collection by handle: %w", err)
	}

	return c, nil
}

// ListCollections returns every collection of the shop with its outgoing
// edge count, ordered by title.
func (s *CollectionStore) ListCollections(ctx context.Context, shopID uuid.UUID) ([]models.CollectionSummary, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // read-only tx, rollback is cleanup.

	rows, err := tx.Query(ctx,
		`SELECT c.id, c.shop_id, c.external_id, c.handle, c.title, c.description_text,
		        c.product_sample, c.gender_category, c.is_excluded_sale, c.is_enabled,
		        c.updated_at_source, c.created_at, c.updated_at,
		        (SELECT count(*) FROM edges e WHERE e.source_id = c.id),
		        EXISTS (SELECT 1 FROM collection_embeddings ce WHERE ce.collection_id = c.id)
		 FROM collections c
		 WHERE c.shop_id = current_setting('app.shop_id')::uuid
		 ORDER BY c.title, c.id`)
	if err != nil {
		return nil, fmt.Errorf("querying collections: %w", err)
	}

	defer rows.Close()

	var out []models.CollectionSummary

	for rows.Next() {
		var sum models.CollectionSummary

		c := &sum.Collection
		if err := rows.Scan(
			&c.ID, &c.ShopID, &c.ExternalID, &c.Handle, &c.Title, &c.Description,
			&c.ProductSample, &c.Category, &c.ExcludedSale, &c.Enabled,
			&c.UpdatedAtSource, &c.CreatedAt, &c.UpdatedAt,
			&sum.RecommendationCount, &sum.HasEmbedding,
		); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}

		out = append(out, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collections: %w", err)
	}

	return out, nil
}

// ListEmbeddable returns the shop's collections that are not excluded as sale.
func (s *CollectionStore) ListEmbeddable(ctx context.Context, shopID uuid.UUID) ([]models.Collection, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		"SELECT "+collectionColumns+` FROM collections
		 WHERE shop_id = $1 AND NOT is_excluded_sale
		 ORDER BY created_at, id`, shopID)
	if err != nil {
		return nil, fmt.Errorf("querying embeddable collections: %w", err)
	}

	defer rows.Close()

	var out []models.Collection

	for rows.Next() {
		c, err := scanCollection(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}

		out = append(out, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collections: %w", err)
	}

	return out, nil
}
