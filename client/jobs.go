package client

import (
	"context"
	"time"
)

// JobService runs and inspects pipeline jobs.
type JobService struct{ c *Client }

// Create queues a job of the given type.
func (s *JobService) Create(ctx context.Context, jobType string) (*Job, error) {
	var job Job
	if err := s.c.post(ctx, "/api/v1/jobs", map[string]string{"type": jobType}, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Get returns a job by ID.
func (s *JobService) Get(ctx context.Context, id string) (*Job, error) {
	var job Job
	if err := s.c.get(ctx, "/api/v1/jobs/"+pathEscape(id), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Latest returns the most recently created job.
func (s *JobService) Latest(ctx context.Context) (*Job, error) {
	var job Job
	if err := s.c.get(ctx, "/api/v1/jobs/latest", nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Wait polls the job every interval until it is complete or failed, calling
// onUpdate with each observed state that differs from the previous one.
func (s *JobService) Wait(ctx context.Context, id string, interval time.Duration, onUpdate func(*Job)) (*Job, error) {
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last Job
	for {
		job, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		if onUpdate != nil && (job.Progress != last.Progress || job.Step != last.Step || job.Status != last.Status) {
			onUpdate(job)
		}
		last = *job

		if job.Done() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}
