package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pathconvert/pathconvert/internal/models"
)

// EdgeStore handles the materialized recommendation graph.
type EdgeStore struct {
	Base
}

// NewEdgeStore creates a new EdgeStore.
func NewEdgeStore(base Base) *EdgeStore {
	return &EdgeStore{Base: base}
}

// ReplaceShopEdges deletes every edge whose source belongs to the shop and
// inserts edges, in one transaction. Readers see either the old or the new
// graph, never an empty one in between.
func (s *EdgeStore) ReplaceShopEdges(ctx context.Context, shopID uuid.UUID, edges []models.Edge) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, shopID)
	if err != nil {
		return 0, fmt.Errorf("replacing edges: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	if _, err := tx.Exec(ctx,
		`DELETE FROM edges e USING collections c
		 WHERE e.source_id = c.id AND c.shop_id = current_setting('app.shop_id')::uuid`); err != nil {
		return 0, fmt.Errorf("deleting shop edges: %w", err)
	}

	var written int64

	if len(edges) > 0 {
		written, err = tx.CopyFrom(ctx,
			pgx.Identifier{"edges"},
			[]string{"source_id", "target_id", "score", "rank"},
			pgx.CopyFromSlice(len(edges), func(i int) ([]any, error) {
				e := edges[i]
				return []any{e.SourceID, e.TargetID, e.Score, e.Rank}, nil
			}),
		)
		if err != nil {
			return 0, fmt.Errorf("copying edges: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing edges: %w", err)
	}

	return int(written), nil
}

// ListRecommendations returns the edges leaving sourceID, joined with the
// target's handle and title, ordered by rank.
func (s *EdgeStore) ListRecommendations(ctx context.Context, shopID, sourceID uuid.UUID) ([]models.RecommendationTarget, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		`SELECT t.handle, t.title, e.score, e.rank
		 FROM edges e
		 JOIN collections t ON t.id = e.target_id
		 WHERE e.source_id = $2 AND t.shop_id = $1
		 ORDER BY e.rank`, shopID, sourceID)
	if err != nil {
		return nil, fmt.Errorf("querying recommendations: %w", err)
	}

	defer rows.Close()

	var out []models.RecommendationTarget

	for rows.Next() {
		var r models.RecommendationTarget
		if err := rows.Scan(&r.Handle, &r.Title, &r.Score, &r.Rank); err != nil {
			return nil, fmt.Errorf("scanning recommendation: %w", err)
		}

		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recommendations: %w", err)
	}

	return out, nil
}

// ListShopEdges returns every edge of the shop ordered by source and rank.
func (s *EdgeStore) ListShopEdges(ctx context.Context, shopID uuid.UUID) ([]models.Edge, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		`SELECT e.source_id, e.target_id, e.score, e.rank
		 FROM edges e
		 JOIN collections c ON c.id = e.source_id
		 WHERE c.shop_id = $1
		 ORDER BY e.source_id, e.rank`, shopID)
	if err != nil {
		return nil, fmt.Errorf("querying shop edges: %w", err)
	}

	edges, err := pgx.CollectRows(rows, pgx.RowToStructByPos[models.Edge])
	if err != nil {
		return nil, fmt.Errorf("collecting shop edges: %w", err)
	}

	return edges, nil
}
