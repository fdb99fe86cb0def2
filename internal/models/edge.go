package models

import "github.com/google/uuid"

// Edge is a ranked recommendation from one collection to another.
type Edge struct {
	SourceID uuid.UUID `json:"source_id"`
	TargetID uuid.UUID `json:"target_id"`
	Score    float64   `json:"score"`
	Rank     int       `json:"rank"`
}

// Recommendation is an edge resolved for display on the storefront.
type Recommendation struct {
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// RecommendationTarget is an edge joined with the target's display fields.
type RecommendationTarget struct {
	Handle string
	Title  string
	Score  float64
	Rank   int
}

// CollectionURL returns the storefront-relative path for a collection handle.
func CollectionURL(handle string) string {
	return "/collections/" + handle
}

// BuildResult reports the outcome of a graph rebuild.
type BuildResult struct {
	EdgesCreated         int `json:"edges_created"`
	CollectionsProcessed int `json:"collections_processed"`
}
