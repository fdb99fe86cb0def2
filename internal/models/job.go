package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobType is the closed set of job kinds.
type JobType string

// Job types.
const (
	JobAnalyseDeploy    JobType = "analyse_deploy"
	JobFetchCollections JobType = "fetch_collections"
	JobEmbedCollections JobType = "embed_collections"
	JobBuildEdges       JobType = "build_edges"
)

// JobStatus is a job's position in its lifecycle.
type JobStatus string

// Job statuses. Complete and failed are terminal.
const (
	JobPending  JobStatus = "pending"
	JobRunning  JobStatus = "running"
	JobComplete JobStatus = "complete"
	JobFailed   JobStatus = "failed"
)

// Terminal reports whether no further transition is possible.
func (s JobStatus) Terminal() bool {
	return s == JobComplete || s == JobFailed
}

// Job is a queued unit of pipeline work for one shop.
type Job struct {
	ID         uuid.UUID  `json:"id"`
	ShopID     uuid.UUID  `json:"-"`
	Type       JobType    `json:"type"`
	Status     JobStatus  `json:"status"`
	Progress   int        `json:"progress_percent"`
	Step       string     `json:"step"`
	Error      string     `json:"error_message,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Task returns the typed payload for the job.
func (j *Job) Task() (Task, error) {
	return NewTask(j.Type, j.ShopID)
}

// Task is the typed payload of a job. The concrete type selects the steps
// the worker runs.
type Task interface {
	JobType() JobType
	task()
}

// FullPipelineTask syncs, embeds, rebuilds the graph and publishes it.
type FullPipelineTask struct{ ShopID uuid.UUID }

// FetchCollectionsTask only syncs collections from the catalog.
type FetchCollectionsTask struct{ ShopID uuid.UUID }

// EmbedCollectionsTask only regenerates embeddings.
type EmbedCollectionsTask struct{ ShopID uuid.UUID }

// BuildEdgesTask only rebuilds the graph.
type BuildEdgesTask struct{ ShopID uuid.UUID }

// JobType implements Task.
func (FullPipelineTask) JobType() JobType { return JobAnalyseDeploy }

// JobType implements Task.
func (FetchCollectionsTask) JobType() JobType { return JobFetchCollections }

// JobType implements Task.
func (EmbedCollectionsTask) JobType() JobType { return JobEmbedCollections }

// JobType implements Task.
func (BuildEdgesTask) JobType() JobType { return JobBuildEdges }

func (FullPipelineTask) task()     {}
func (FetchCollectionsTask) task() {}
func (EmbedCollectionsTask) task() {}
func (BuildEdgesTask) task()       {}

// NewTask builds the task for a job type.
func NewTask(t JobType, shopID uuid.UUID) (Task, error) {
	switch t {
	case JobAnalyseDeploy:
		return FullPipelineTask{ShopID: shopID}, nil
	case JobFetchCollections:
		return FetchCollectionsTask{ShopID: shopID}, nil
	case JobEmbedCollections:
		return EmbedCollectionsTask{ShopID: shopID}, nil
	case JobBuildEdges:
		return BuildEdgesTask{ShopID: shopID}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidJobType, t)
	}
}

// CreateJobRequest is the payload for queueing a job.
type CreateJobRequest struct {
	Type JobType `json:"type"`
}

// Validate checks CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	_, err := NewTask(r.Type, uuid.Nil)

	return err
}

// JobEvent is published whenever a job's progress or status changes.
type JobEvent struct {
	JobID    uuid.UUID `json:"job_id"`
	ShopID   uuid.UUID `json:"shop_id"`
	Type     JobType   `json:"type"`
	Status   JobStatus `json:"status"`
	Progress int       `json:"progress_percent"`
	Step     string    `json:"step"`
	Error    string    `json:"error_message,omitempty"`
}
