package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pathconvert/pathconvert/internal/metrics"
	"github.com/pathconvert/pathconvert/internal/models"
)

// Step labels reported while a job runs.
const (
	stepFetching  = "Fetching collections from Shopify"
	stepEmbedding = "Generating AI embeddings"
	stepBuilding  = "Building recommendation graph"
	stepFinalize  = "Finalizing deployment"
	stepComplete  = "Complete"
)

const (
	staleJobAfter     = time.Hour
	finalWriteTimeout = 10 * time.Second
)

// JobRunStore drives jobs through their lifecycle.
type JobRunStore interface {
	ClaimNext(ctx context.Context) (*models.Job, error)
	UpdateProgress(ctx context.Context, jobID uuid.UUID, progress int, step string) error
	Complete(ctx context.Context, jobID uuid.UUID, step string) error
	Fail(ctx context.Context, jobID uuid.UUID, message string) error
	FailStale(ctx context.Context, staleSeconds int) (int, error)
}

// Syncer mirrors the catalog.
type Syncer interface {
	SyncCollections(ctx context.Context, shopID uuid.UUID) (models.SyncResult, error)
}

// BatchEmbedder embeds every collection of a shop.
type BatchEmbedder interface {
	GenerateAll(ctx context.Context, shopID uuid.UUID) (models.EmbeddingResult, error)
}

// Builder rebuilds a shop's graph.
type Builder interface {
	Build(ctx context.Context, shopID uuid.UUID) (models.BuildResult, error)
}

// Publisher makes a rebuilt graph visible to storefront caches.
type Publisher interface {
	BumpCacheVersion(ctx context.Context, shopID uuid.UUID) (int64, error)
	MarkDeployed(ctx context.Context, shopID uuid.UUID) (int64, error)
}

// WorkerConfig holds the worker's polling intervals.
type WorkerConfig struct {
	PollInterval time.Duration
	ErrorBackoff time.Duration
}

// JobWorker runs queued jobs one at a time.
type JobWorker struct {
	jobs      JobRunStore
	syncer    Syncer
	embedder  BatchEmbedder
	builder   Builder
	publisher Publisher
	cfg       WorkerConfig
	log       *logrus.Logger
}

// NewJobWorker creates a JobWorker.
func NewJobWorker(
	jobs JobRunStore, syncer Syncer, embedder BatchEmbedder, builder Builder,
	publisher Publisher, cfg WorkerConfig, log *logrus.Logger,
) *JobWorker {
	return &JobWorker{
		jobs:      jobs,
		syncer:    syncer,
		embedder:  embedder,
		builder:   builder,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
	}
}

// Run claims and executes jobs until ctx is cancelled. Call in a goroutine.
func (w *JobWorker) Run(ctx context.Context) {
	w.log.WithField("poll_interval", w.cfg.PollInterval).Info("job worker started")

	if n, err := w.jobs.FailStale(ctx, int(staleJobAfter.Seconds())); err != nil {
		w.log.WithError(err).Warn("failing stale jobs")
	} else if n > 0 {
		w.log.WithField("count", n).Warn("failed jobs left running by a previous worker")
	}

	for {
		if ctx.Err() != nil {
			w.log.Info("job worker stopped")
			return
		}

		wait, err := w.tick(ctx)
		if err != nil && ctx.Err() == nil {
			w.log.WithError(err).Error("job worker loop error")
		}

		if wait == 0 {
			continue
		}

		select {
		case <-ctx.Done():
		case <-time.After(wait):
		}
	}
}

// tick claims and runs at most one job and returns how long to wait before
// the next claim.
func (w *JobWorker) tick(ctx context.Context) (time.Duration, error) {
	job, err := w.jobs.ClaimNext(ctx)
	if errors.Is(err, models.ErrNoPendingJob) {
		return w.cfg.PollInterval, nil
	}

	if err != nil {
		return w.cfg.ErrorBackoff, err
	}

	w.process(ctx, job)

	return 0, nil
}

// process runs a claimed job and records its outcome. Failures, including
// panics, mark the job failed; they never stop the worker.
func (w *JobWorker) process(ctx context.Context, job *models.Job) {
	start := time.Now()
	log := w.log.WithFields(logrus.Fields{
		"job_id":  job.ID,
		"shop_id": job.ShopID,
		"type":    job.Type,
	})

	log.Info("job started")

	summary, err := w.runSafely(ctx, job)

	// Final writes must land even when shutdown cancelled the job.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalWriteTimeout)
	defer cancel()

	if err != nil {
		metrics.JobDuration.WithLabelValues(string(job.Type), "failed").Observe(time.Since(start).Seconds())
		log.WithError(err).Error("job failed")

		if ferr := w.jobs.Fail(writeCtx, job.ID, err.Error()); ferr != nil {
			log.WithError(ferr).Error("recording job failure")
		}

		return
	}

	if cerr := w.jobs.Complete(writeCtx, job.ID, summary); cerr != nil {
		log.WithError(cerr).Error("recording job completion")
		return
	}

	metrics.JobDuration.WithLabelValues(string(job.Type), "complete").Observe(time.Since(start).Seconds())
	log.WithField("duration", time.Since(start)).Info("job complete")
}

// runSafely returns the step label the job completes with.
func (w *JobWorker) runSafely(ctx context.Context, job *models.Job) (summary string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()

	task, err := job.Task()
	if err != nil {
		return "", err
	}

	return w.run(ctx, job, task)
}

func (w *JobWorker) progress(ctx context.Context, job *models.Job, pct int, step string) error {
	if err := w.jobs.UpdateProgress(ctx, job.ID, pct, step); err != nil {
		return fmt.Errorf("recording progress: %w", err)
	}

	return nil
}

func (w *JobWorker) run(ctx context.Context, job *models.Job, task models.Task) (string, error) {
	switch t := task.(type) {
	case models.FullPipelineTask:
		return w.runFullPipeline(ctx, job, t.ShopID)
	case models.FetchCollectionsTask:
		return w.runFetch(ctx, job, t.ShopID)
	case models.EmbedCollectionsTask:
		return w.runEmbed(ctx, job, t.ShopID)
	case models.BuildEdgesTask:
		return w.runBuild(ctx, job, t.ShopID)
	default:
		return "", fmt.Errorf("%w: %T", models.ErrInvalidJobType, task)
	}
}

func (w *JobWorker) runFullPipeline(ctx context.Context, job *models.Job, shopID uuid.UUID) (string, error) {
	if err := w.progress(ctx, job, 10, stepFetching); err != nil {
		return "", err
	}

	if _, err := w.syncer.SyncCollections(ctx, shopID); err != nil {
		return "", err
	}

	if err := w.progress(ctx, job, 40, stepEmbedding); err != nil {
		return "", err
	}

	if _, err := w.embedder.GenerateAll(ctx, shopID); err != nil {
		return "", err
	}

	if err := w.progress(ctx, job, 75, stepBuilding); err != nil {
		return "", err
	}

	if _, err := w.builder.Build(ctx, shopID); err != nil {
		return "", err
	}

	if err := w.progress(ctx, job, 95, stepFinalize); err != nil {
		return "", err
	}

	if _, err := w.publisher.MarkDeployed(ctx, shopID); err != nil {
		return "", fmt.Errorf("finalizing deployment: %w", err)
	}

	return stepComplete, nil
}

func (w *JobWorker) runFetch(ctx context.Context, job *models.Job, shopID uuid.UUID) (string, error) {
	if err := w.progress(ctx, job, 10, stepFetching); err != nil {
		return "", err
	}

	res, err := w.syncer.SyncCollections(ctx, shopID)
	if err != nil {
		return "", err
	}

	if res.GraphChanged() {
		if _, err := w.publisher.BumpCacheVersion(ctx, shopID); err != nil {
			return "", fmt.Errorf("bumping cache version: %w", err)
		}
	}

	return fmt.Sprintf("Synced %d collections", res.Synced()), nil
}

func (w *JobWorker) runEmbed(ctx context.Context, job *models.Job, shopID uuid.UUID) (string, error) {
	if err := w.progress(ctx, job, 10, stepEmbedding); err != nil {
		return "", err
	}

	res, err := w.embedder.GenerateAll(ctx, shopID)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Generated %d embeddings", res.Generated()), nil
}

func (w *JobWorker) runBuild(ctx context.Context, job *models.Job, shopID uuid.UUID) (string, error) {
	if err := w.progress(ctx, job, 10, stepBuilding); err != nil {
		return "", err
	}

	res, err := w.builder.Build(ctx, shopID)
	if err != nil {
		return "", err
	}

	if _, err := w.publisher.BumpCacheVersion(ctx, shopID); err != nil {
		return "", fmt.Errorf("bumping cache version: %w", err)
	}

	return fmt.Sprintf("Built %d edges", res.EdgesCreated), nil
}
