// Package models defines data types for the recommendation graph.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Field limits for collection content.
const (
	MaxDescriptionLength = 10000
	MaxProductSample     = 10
)

// Collection is one recommendable grouping of products in a shop.
type Collection struct {
	ID              uuid.UUID  `json:"id"`
	ShopID          uuid.UUID  `json:"-"`
	ExternalID      string     `json:"external_id"`
	Handle          string     `json:"handle"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	ProductSample   string     `json:"product_sample,omitempty"`
	Category        Category   `json:"category"`
	ExcludedSale    bool       `json:"is_excluded_sale"`
	Enabled         bool       `json:"is_enabled"`
	UpdatedAtSource *time.Time `json:"updated_at_source,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Eligible reports whether the collection may take part in the graph,
// ignoring whether an embedding exists.
func (c *Collection) Eligible() bool {
	return c.Enabled && !c.ExcludedSale
}

// CollectionSummary is a collection row with its outgoing recommendation count.
type CollectionSummary struct {
	Collection
	RecommendationCount int  `json:"recommendation_count"`
	HasEmbedding        bool `json:"has_embedding"`
}

// CollectionUpsert is the normalized form of a catalog record ready to store.
type CollectionUpsert struct {
	ExternalID      string
	Handle          string
	Title           string
	Description     string
	ProductSample   string
	Category        Category
	ExcludedSale    bool
	UpdatedAtSource *time.Time
}

// Validate checks required fields on CollectionUpsert.
func (u *CollectionUpsert) Validate() error {
	if u.ExternalID == "" {
		return ErrMissingExternalID
	}

	if u.Handle == "" {
		return ErrMissingHandle
	}

	if len(u.Handle) > 255 {
		return ErrFieldTooLong("handle", 255)
	}

	if u.Title == "" {
		return ErrMissingTitle
	}

	if _, err := ParseCategory(string(u.Category)); err != nil {
		return err
	}

	return nil
}

// UpsertOutcome says what an upsert did to the stored row.
type UpsertOutcome string

// Upsert outcomes.
const (
	OutcomeCreated UpsertOutcome = "created"
	OutcomeUpdated UpsertOutcome = "updated"
	OutcomeSkipped UpsertOutcome = "skipped"
)

// SetCollectionsStateRequest enables or disables a set of collections.
type SetCollectionsStateRequest struct {
	IDs     []uuid.UUID `json:"ids"`
	Enabled bool        `json:"enabled"`
}

// Validate checks SetCollectionsStateRequest fields.
func (r *SetCollectionsStateRequest) Validate() error {
	if len(r.IDs) == 0 {
		return ErrMissingIDs
	}

	if len(r.IDs) > 1000 {
		return ErrFieldTooLong("ids", 1000)
	}

	return nil
}

// SyncResult reports what a catalog sync changed.
type SyncResult struct {
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Disabled int `json:"disabled"`
	Errors   int `json:"errors"`
}

// Synced returns the number of collections created or updated.
func (r SyncResult) Synced() int {
	return r.Created + r.Updated
}

// GraphChanged reports whether the sync may have altered what the
// storefront renders: an updated title or sale flag, or a disabled collection.
func (r SyncResult) GraphChanged() bool {
	return r.Updated > 0 || r.Disabled > 0
}
