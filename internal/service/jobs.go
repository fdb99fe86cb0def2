package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pathconvert/pathconvert/internal/domain"
	"github.com/pathconvert/pathconvert/internal/models"
)

// JobStore persists queued jobs.
type JobStore interface {
	CreateJob(ctx context.Context, shopID uuid.UUID, jobType models.JobType) (*models.Job, error)
	GetJob(ctx context.Context, shopID, jobID uuid.UUID) (*models.Job, error)
	LatestJob(ctx context.Context, shopID uuid.UUID) (*models.Job, error)
}

// Compile-time check: *JobQueue must satisfy domain.JobService.
var _ domain.JobService = (*JobQueue)(nil)

// JobQueue accepts pipeline jobs for entitled shops.
type JobQueue struct {
	store        JobStore
	entitlements EntitlementSource
	log          *logrus.Logger
}

// NewJobQueue creates a JobQueue.
func NewJobQueue(store JobStore, entitlements EntitlementSource, log *logrus.Logger) *JobQueue {
	return &JobQueue{store: store, entitlements: entitlements, log: log}
}

// CreateJob queues a job of the given type. Shops whose billing does not
// allow jobs get models.ErrNotEntitled and no job is recorded.
func (q *JobQueue) CreateJob(ctx context.Context, shopID uuid.UUID, jobType models.JobType) (*models.Job, error) {
	if _, err := models.NewTask(jobType, shopID); err != nil {
		return nil, err
	}

	ent, err := q.entitlements.Entitlement(ctx, shopID)
	if err != nil {
		return nil, err
	}

	if !ent.CanRunJobs {
		q.log.WithFields(logrus.Fields{
			"shop_id": shopID,
			"type":    jobType,
		}).Info("job refused: shop not entitled")

		return nil, models.ErrNotEntitled
	}

	job, err := q.store.CreateJob(ctx, shopID, jobType)
	if err != nil {
		return nil, err
	}

	q.log.WithFields(logrus.Fields{
		"shop_id": shopID,
		"job_id":  job.ID,
		"type":    jobType,
	}).Info("job queued")

	return job, nil
}

// GetJob returns one job of the shop.
func (q *JobQueue) GetJob(ctx context.Context, shopID, jobID uuid.UUID) (*models.Job, error) {
	return q.store.GetJob(ctx, shopID, jobID)
}

// LatestJob returns the shop's most recent job.
func (q *JobQueue) LatestJob(ctx context.Context, shopID uuid.UUID) (*models.Job, error) {
	return q.store.LatestJob(ctx, shopID)
}
