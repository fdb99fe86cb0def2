// Package store provides focused, single-concern data access stores
// for the recommendation graph.
//
// Each store owns one domain (shops, collections, embeddings, edges, jobs)
// and embeds shared helpers (Pool, crypto, logger) via the Base struct.
// Stores never import each other; shared logic lives in this file.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/pathconvert/pathconvert/internal/crypto"
	"github.com/pathconvert/pathconvert/internal/dbpool"
	"github.com/pathconvert/pathconvert/internal/models"
)

const defaultQueryTimeout = 30 * time.Second

// jobsChannel must match db.JobsChannel.
const jobsChannel = "pathconvert_jobs"

// Base contains shared dependencies for all stores.
// Embed this in each store struct.
type Base struct {
	Pool   *dbpool.Pool
	Log    *logrus.Logger
	Crypto *crypto.Service
}

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// setShop scopes the transaction to one shop; queries read it back with
// current_setting('app.shop_id').
func setShop(ctx context.Context, tx pgx.Tx, shopID uuid.UUID) error {
	if shopID == uuid.Nil {
		return fmt.Errorf("shop id is required")
	}

	_, err := tx.Exec(ctx, "SELECT set_config('app.shop_id', $1, true)", shopID.String())
	if err != nil {
		return fmt.Errorf("setting shop context: %w", err)
	}

	return nil
}

// beginTx starts a read-write transaction scoped to shopID.
func (b *Base) beginTx(ctx context.Context, shopID uuid.UUID) (pgx.Tx, error) {
	tx, err := b.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	if err := setShop(ctx, tx, shopID); err != nil {
		tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on setup failure.

		return nil, err
	}

	return tx, nil
}

// beginReadTx starts a read-only transaction scoped to shopID.
func (b *Base) beginReadTx(ctx context.Context, shopID uuid.UUID) (pgx.Tx, error) {
	tx, err := b.Pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("beginning read transaction: %w", err)
	}

	if err := setShop(ctx, tx, shopID); err != nil {
		tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on setup failure.

		return nil, err
	}

	return tx, nil
}

// notifyJob publishes a job event inside tx, so listeners only see it on commit.
func notifyJob(ctx context.Context, tx pgx.Tx, j *models.Job) error {
	payload, err := json.Marshal(models.JobEvent{
		JobID:    j.ID,
		ShopID:   j.ShopID,
		Type:     j.Type,
		Status:   j.Status,
		Progress: j.Progress,
		Step:     j.Step,
		Error:    j.Error,
	})
	if err != nil {
		return fmt.Errorf("marshalling job event: %w", err)
	}

	if _, err := tx.Exec(ctx, "SELECT pg_notify($1, $2)", jobsChannel, string(payload)); err != nil {
		return fmt.Errorf("notifying job event: %w", err)
	}

	return nil
}

// HashAPIKey returns the hex sha256 digest stored for an API key.
func HashAPIKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))

	return hex.EncodeToString(sum[:])
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func bumpCacheVersion(ctx context.Context, tx pgx.Tx) (int64, error) {
	var version int64

	err := tx.QueryRow(ctx,
		`UPDATE shops SET cache_version = cache_version + 1, updated_at = now()
		 WHERE id = current_setting('app.shop_id')::uuid
		 RETURNING cache_version`).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, models.ErrShopNotFound
	}

	if err != nil {
		return 0, fmt.Errorf("bumping cache version: %w", err)
	}

	return version, nil
}

// deleteEdgesTouching removes every edge whose source or target is in ids and
// closes the rank gaps left in the surviving sources.
func deleteEdgesTouching(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	rows, err := tx.Query(ctx,
		`DELETE FROM edges WHERE source_id = ANY($1) OR target_id = ANY($1)
		 RETURNING source_id`, ids)
	if err != nil {
		return 0, fmt.Errorf("deleting edges: %w", err)
	}

	sources, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return 0, fmt.Errorf("collecting deleted edges: %w", err)
	}

	if len(sources) == 0 {
		return 0, nil
	}

	if _, err := tx.Exec(ctx,
		`UPDATE edges e SET rank = r.new_rank
		 FROM (SELECT source_id, target_id,
		              row_number() OVER (PARTITION BY source_id ORDER BY rank) AS new_rank
		       FROM edges WHERE source_id = ANY($1)) r
		 WHERE e.source_id = r.source_id AND e.target_id = r.target_id AND e.rank <> r.new_rank`,
		sources); err != nil {
		return 0, fmt.Errorf("compacting edge ranks: %w", err)
	}

	return int64(len(sources)), nil
}
