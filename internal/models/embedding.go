package models

import (
	"time"

	"github.com/google/uuid"
)

// Embedding is the vector stored for one collection, always written together
// with the model that produced it.
type Embedding struct {
	CollectionID uuid.UUID `json:"collection_id"`
	Vector       []float32 `json:"-"`
	Model        string    `json:"model"`
	TextHash     string    `json:"text_hash"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EligibleCollection is a collection that may take part in the graph,
// joined with its embedding.
type EligibleCollection struct {
	ID       uuid.UUID
	Handle   string
	Category Category
	Vector   []float32
}

// EmbeddingResult reports what a batch embedding run did.
type EmbeddingResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// Generated returns the number of vectors written.
func (r EmbeddingResult) Generated() int {
	return r.Created + r.Updated
}
