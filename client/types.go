package client

import "time"

// Job types accepted by Jobs.Create.
const (
	JobAnalyseDeploy    = "analyse_deploy"
	JobFetchCollections = "fetch_collections"
	JobEmbedCollections = "embed_collections"
	JobBuildEdges       = "build_edges"
)

// Job statuses.
const (
	JobPending  = "pending"
	JobRunning  = "running"
	JobComplete = "complete"
	JobFailed   = "failed"
)

// Job is a queued or finished unit of pipeline work.
type Job struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	Progress   int        `json:"progress_percent"`
	Step       string     `json:"step"`
	Error      string     `json:"error_message,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Done reports whether the job reached a terminal status.
func (j *Job) Done() bool {
	return j.Status == JobComplete || j.Status == JobFailed
}

// Collection is a synced storefront collection with its graph summary.
type Collection struct {
	ID                  string     `json:"id"`
	ExternalID          string     `json:"external_id"`
	Handle              string     `json:"handle"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	Category            string     `json:"category"`
	ExcludedSale        bool       `json:"is_excluded_sale"`
	Enabled             bool       `json:"is_enabled"`
	UpdatedAtSource     *time.Time `json:"updated_at_source,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	RecommendationCount int        `json:"recommendation_count"`
	HasEmbedding        bool       `json:"has_embedding"`
}

// Recommendation is one button the storefront would render.
type Recommendation struct {
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// Settings is the shop's display configuration.
type Settings struct {
	MaxButtons int    `json:"max_buttons"`
	Alignment  string `json:"alignment"`
}

// UpdateSettingsRequest changes the fields that are set.
type UpdateSettingsRequest struct {
	MaxButtons *int    `json:"max_buttons,omitempty"`
	Alignment  *string `json:"alignment,omitempty"`
}

// HealthResponse is returned by the liveness endpoint.
type HealthResponse struct {
	Status              string  `json:"status"`
	Version             string  `json:"version"`
	Database            string  `json:"database"`
	EmbeddingModel      string  `json:"embedding_model"`
	EmbeddingDimensions int     `json:"embedding_dimensions"`
	WebSocketClients    int     `json:"websocket_clients"`
	UptimeSeconds       float64 `json:"uptime_seconds"`
}

// ReadyResponse is returned by the readiness endpoint.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
