package api_test

import (
	"context"

	"github.com/google/uuid"

	"github.com/pathconvert/pathconvert/internal/models"
)

// mockJobService implements domain.JobService.
type mockJobService struct {
	createFn func(ctx context.Context, shopID uuid.UUID, jobType models.JobType) (*models.Job, error)
	getFn    func(ctx context.Context, shopID, jobID uuid.UUID) (*models.Job, error)
	latestFn func(ctx context.Context, shopID uuid.UUID) (*models.Job, error)
}

func (m *mockJobService) CreateJob(ctx context.Context, shopID uuid.UUID, jobType models.JobType) (*models.Job, error) {
	return m.createFn(ctx, shopID, jobType)
}

func (m *mockJobService) GetJob(ctx context.Context, shopID, jobID uuid.UUID) (*models.Job, error) {
	return m.getFn(ctx, shopID, jobID)
}

func (m *mockJobService) LatestJob(ctx context.Context, shopID uuid.UUID) (*models.Job, error) {
	return m.latestFn(ctx, shopID)
}

// mockAdminService implements domain.AdminService.
type mockAdminService struct {
	listFn           func(ctx context.Context, shopID uuid.UUID) ([]models.CollectionSummary, error)
	setStateFn       func(ctx context.Context, shopID uuid.UUID, req models.SetCollectionsStateRequest) (int, error)
	getSettingsFn    func(ctx context.Context, shopID uuid.UUID) (models.Settings, error)
	updateSettingsFn func(ctx context.Context, shopID uuid.UUID, req models.UpdateSettingsRequest) (models.Settings, error)
}

func (m *mockAdminService) ListCollections(ctx context.Context, shopID uuid.UUID) ([]models.CollectionSummary, error) {
	return m.listFn(ctx, shopID)
}

func (m *mockAdminService) SetCollectionsState(ctx context.Context, shopID uuid.UUID, req models.SetCollectionsStateRequest) (int, error) {
	return m.setStateFn(ctx, shopID, req)
}

func (m *mockAdminService) GetSettings(ctx context.Context, shopID uuid.UUID) (models.Settings, error) {
	return m.getSettingsFn(ctx, shopID)
}

func (m *mockAdminService) UpdateSettings(ctx context.Context, shopID uuid.UUID, req models.UpdateSettingsRequest) (models.Settings, error) {
	return m.updateSettingsFn(ctx, shopID, req)
}

// mockRecommendations implements domain.RecommendationService.
type mockRecommendations struct {
	getFn     func(ctx context.Context, shopID uuid.UUID, handle string) ([]models.Recommendation, error)
	forShopFn func(ctx context.Context, shop *models.Shop, handle string) ([]models.Recommendation, error)
}

func (m *mockRecommendations) GetRecommendations(ctx context.Context, shopID uuid.UUID, handle string) ([]models.Recommendation, error) {
	return m.getFn(ctx, shopID, handle)
}

func (m *mockRecommendations) ForShop(ctx context.Context, shop *models.Shop, handle string) ([]models.Recommendation, error) {
	return m.forShopFn(ctx, shop, handle)
}

// mockEntitlements implements domain.EntitlementService.
type mockEntitlements struct {
	ent models.Entitlement
	err error
}

func (m *mockEntitlements) Entitlement(context.Context, uuid.UUID) (models.Entitlement, error) {
	return m.ent, m.err
}

// mockShopDirectory implements domain.ShopDirectory.
type mockShopDirectory struct {
	shops    map[string]*models.Shop
	settings models.Settings
	err      error
}

func (m *mockShopDirectory) GetShopByDomain(_ context.Context, domain string) (*models.Shop, error) {
	if m.err != nil {
		return nil, m.err
	}

	s, ok := m.shops[domain]
	if !ok {
		return nil, models.ErrShopNotFound
	}

	return s, nil
}

func (m *mockShopDirectory) GetSettings(context.Context, uuid.UUID) (models.Settings, error) {
	return m.settings, nil
}

// mockKeyLookup implements middleware.ShopKeyLookup.
type mockKeyLookup struct {
	keys map[string]uuid.UUID
}

func (m *mockKeyLookup) GetShopByAPIKey(_ context.Context, apiKey string) (uuid.UUID, error) {
	if id, ok := m.keys[apiKey]; ok {
		return id, nil
	}

	return uuid.Nil, models.ErrShopNotFound
}
