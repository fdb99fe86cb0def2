package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pathconvert/pathconvert/internal/domain"
	"github.com/pathconvert/pathconvert/internal/models"
)

// CollectionAdminStore lists and toggles collections.
type CollectionAdminStore interface {
	ListCollections(ctx context.Context, shopID uuid.UUID) ([]models.CollectionSummary, error)
	SetEnabled(ctx context.Context, shopID uuid.UUID, ids []uuid.UUID, enabled bool) (int, error)
}

var _ domain.AdminService = (*AdminService)(nil)

// AdminService backs the merchant-facing collection and settings screens.
type AdminService struct {
	collections CollectionAdminStore
	settings    SettingsStore
	log         *logrus.Logger
}

// NewAdminService creates an AdminService.
func NewAdminService(collections CollectionAdminStore, settings SettingsStore, log *logrus.Logger) *AdminService {
	return &AdminService{collections: collections, settings: settings, log: log}
}

// ListCollections returns every collection of the shop with its
// recommendation count.
func (s *AdminService) ListCollections(ctx context.Context, shopID uuid.UUID) ([]models.CollectionSummary, error) {
	return s.collections.ListCollections(ctx, shopID)
}

// SetCollectionsState enables or disables collections. Disabling removes
// every edge touching them; either way the shop's cache version moves on.
func (s *AdminService) SetCollectionsState(ctx context.Context, shopID uuid.UUID, req models.SetCollectionsStateRequest) (int, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	n, err := s.collections.SetEnabled(ctx, shopID, req.IDs, req.Enabled)
	if err != nil {
		return 0, err
	}

	s.log.WithFields(logrus.Fields{
		"shop_id": shopID,
		"enabled": req.Enabled,
		"changed": n,
	}).Info("collection state updated")

	return n, nil
}

// GetSettings returns the shop's display settings.
func (s *AdminService) GetSettings(ctx context.Context, shopID uuid.UUID) (models.Settings, error) {
	return s.settings.GetSettings(ctx, shopID)
}

// UpdateSettings validates and applies a settings change.
func (s *AdminService) UpdateSettings(ctx context.Context, shopID uuid.UUID, req models.UpdateSettingsRequest) (models.Settings, error) {
	if err := req.Validate(); err != nil {
		return models.Settings{}, err
	}

	return s.settings.UpdateSettings(ctx, shopID, req)
}
