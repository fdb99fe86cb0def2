// Package domain defines the canonical service interfaces shared across API
// layers (REST handlers, app proxy, client). Consumers should depend on these
// interfaces rather than re-declaring equivalent ones.
package domain

import (
	"context"

	"github.com/google/uuid"

	"github.com/pathconvert/pathconvert/internal/models"
)

// JobService defines job queue operations.
type JobService interface {
	CreateJob(ctx context.Context, shopID uuid.UUID, jobType models.JobType) (*models.Job, error)
	GetJob(ctx context.Context, shopID, jobID uuid.UUID) (*models.Job, error)
	LatestJob(ctx context.Context, shopID uuid.UUID) (*models.Job, error)
}

// AdminService defines collection management and settings operations.
type AdminService interface {
	ListCollections(ctx context.Context, shopID uuid.UUID) ([]models.CollectionSummary, error)
	SetCollectionsState(ctx context.Context, shopID uuid.UUID, req models.SetCollectionsStateRequest) (int, error)
	GetSettings(ctx context.Context, shopID uuid.UUID) (models.Settings, error)
	UpdateSettings(ctx context.Context, shopID uuid.UUID, req models.UpdateSettingsRequest) (models.Settings, error)
}

// RecommendationService defines the storefront read path.
type RecommendationService interface {
	GetRecommendations(ctx context.Context, shopID uuid.UUID, handle string) ([]models.Recommendation, error)
	ForShop(ctx context.Context, shop *models.Shop, handle string) ([]models.Recommendation, error)
}

// EntitlementService defines billing gate lookups.
type EntitlementService interface {
	Entitlement(ctx context.Context, shopID uuid.UUID) (models.Entitlement, error)
}

// ShopDirectory resolves shops for the storefront path.
type ShopDirectory interface {
	GetShopByDomain(ctx context.Context, domain string) (*models.Shop, error)
	GetSettings(ctx context.Context, shopID uuid.UUID) (models.Settings, error)
}
