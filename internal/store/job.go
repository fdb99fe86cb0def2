package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pathconvert/pathconvert/internal/models"
)

// JobStore handles the durable job queue.
type JobStore struct {
	Base
}

// NewJobStore creates a new JobStore.
func NewJobStore(base Base) *JobStore {
	return &JobStore{Base: base}
}

const jobColumns = `id, shop_id, type, status, progress_percent, step,
	COALESCE(error_message, ''), created_at, updated_at, started_at, finished_at`

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job

	err := row.Scan(
		&j.ID, &j.ShopID, &j.Type, &j.Status, &j.Progress, &j.Step,
		&j.Error, &j.CreatedAt, &j.UpdatedAt, &j.StartedAt, &j.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	return &j, nil
}

// CreateJob queues a pending job for the shop.
func (s *JobStore) CreateJob(ctx context.Context, shopID uuid.UUID, jobType models.JobType) (*models.Job, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	j, err := scanJob(tx.QueryRow(ctx,
		`INSERT INTO jobs (shop_id, type) VALUES (current_setting('app.shop_id')::uuid, $1)
		 RETURNING `+jobColumns, jobType))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, models.ErrShopNotFound
		}

		return nil, fmt.Errorf("inserting job: %w", err)
	}

	if err := notifyJob(ctx, tx, j); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing job: %w", err)
	}

	return j, nil
}

// ClaimNext atomically moves the oldest pending job to running and returns
// it. Concurrent workers never claim the same job. Returns
// models.ErrNoPendingJob when the queue is empty.
func (s *JobStore) ClaimNext(ctx context.Context) (*models.Job, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("claiming job: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	j, err := scanJob(tx.QueryRow(ctx,
		`UPDATE jobs SET status = 'running', progress_percent = 0, step = 'Starting',
		                 started_at = now(), updated_at = now()
		 WHERE id = (
		     SELECT id FROM jobs WHERE status = 'pending'
		     ORDER BY created_at, id
		     LIMIT 1
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+jobColumns))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNoPendingJob
	}

	if err != nil {
		return nil, fmt.Errorf("claiming job: %w", err)
	}

	if err := notifyJob(ctx, tx, j); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}

	return j, nil
}

// UpdateProgress records progress and step for a running job. Progress never
// moves backwards.
func (s *JobStore) UpdateProgress(ctx context.Context, jobID uuid.UUID, progress int, step string) error {
	return s.transition(ctx, jobID,
		`UPDATE jobs SET progress_percent = GREATEST(progress_percent, $2), step = $3, updated_at = now()
		 WHERE id = $1 AND status = 'running'
		 RETURNING `+jobColumns, jobID, clampProgress(progress), step)
}

// Complete marks a running job complete at 100%.
func (s *JobStore) Complete(ctx context.Context, jobID uuid.UUID, step string) error {
	return s.transition(ctx, jobID,
		`UPDATE jobs SET status = 'complete', progress_percent = 100, step = $2,
		                 finished_at = now(), updated_at = now()
		 WHERE id = $1 AND status = 'running'
		 RETURNING `+jobColumns, jobID, step)
}

// Fail marks a running job failed and stores the error message. Progress is
// left where the job stopped.
func (s *JobStore) Fail(ctx context.Context, jobID uuid.UUID, message string) error {
	return s.transition(ctx, jobID,
		`UPDATE jobs SET status = 'failed', error_message = $2,
		                 finished_at = now(), updated_at = now()
		 WHERE id = $1 AND status = 'running'
		 RETURNING `+jobColumns, jobID, message)
}

func (s *JobStore) transition(ctx context.Context, jobID uuid.UUID, query string, args ...any) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("updating job: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	j, err := scanJob(tx.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("job %s is not running: %w", jobID, models.ErrJobNotFound)
	}

	if err != nil {
		return fmt.Errorf("updating job: %w", err)
	}

	if err := notifyJob(ctx, tx, j); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing job update: %w", err)
	}

	return nil
}

// GetJob returns one job of the shop.
func (s *JobStore) GetJob(ctx context.Context, shopID, jobID uuid.UUID) (*models.Job, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	j, err := scanJob(s.Pool.QueryRow(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE shop_id = $1 AND id = $2", shopID, jobID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrJobNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting job: %w", err)
	}

	return j, nil
}

// LatestJob returns the shop's most recently created job.
func (s *JobStore) LatestJob(ctx context.Context, shopID uuid.UUID) (*models.Job, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	j, err := scanJob(s.Pool.QueryRow(ctx,
		"SELECT "+jobColumns+` FROM jobs WHERE shop_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT 1`, shopID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrJobNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting latest job: %w", err)
	}

	return j, nil
}

// FailStale fails running jobs that have not been updated within the given
// number of seconds. It returns the number of jobs failed.
func (s *JobStore) FailStale(ctx context.Context, staleSeconds int) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tag, err := s.Pool.Exec(ctx,
		`UPDATE jobs SET status = 'failed', error_message = 'worker stopped before completion',
		                 finished_at = now(), updated_at = now()
		 WHERE status = 'running' AND updated_at < now() - make_interval(secs => $1)`, staleSeconds)
	if err != nil {
		return 0, fmt.Errorf("failing stale jobs: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

func clampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
