package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pathconvert/pathconvert/internal/catalog"
	"github.com/pathconvert/pathconvert/internal/metrics"
	"github.com/pathconvert/pathconvert/internal/models"
)

// CatalogSource lists a shop's collections at the source of truth.
type CatalogSource interface {
	FetchCollections(ctx context.Context, shop models.ShopCredentials) ([]catalog.Collection, error)
}

// CredentialStore resolves a shop's catalog credentials.
type CredentialStore interface {
	GetCredentials(ctx context.Context, shopID uuid.UUID) (models.ShopCredentials, error)
}

// CollectionSyncStore writes synced collections.
type CollectionSyncStore interface {
	UpsertCollection(ctx context.Context, shopID uuid.UUID, u models.CollectionUpsert) (models.UpsertOutcome, error)
	DisableMissing(ctx context.Context, shopID uuid.UUID, present []string) (int, error)
}

// SyncService mirrors the catalog's collections into local storage.
type SyncService struct {
	catalog     CatalogSource
	shops       CredentialStore
	collections CollectionSyncStore
	log         *logrus.Logger
}

// NewSyncService creates a SyncService.
func NewSyncService(src CatalogSource, shops CredentialStore, collections CollectionSyncStore, log *logrus.Logger) *SyncService {
	return &SyncService{catalog: src, shops: shops, collections: collections, log: log}
}

// SyncCollections fetches every collection of the shop, stores new and
// changed ones, and disables local collections the catalog no longer has.
// A catalog failure fails the sync; a bad record is skipped and counted.
func (s *SyncService) SyncCollections(ctx context.Context, shopID uuid.UUID) (models.SyncResult, error) {
	var result models.SyncResult

	creds, err := s.shops.GetCredentials(ctx, shopID)
	if err != nil {
		return result, fmt.Errorf("loading shop credentials: %w", err)
	}

	records, err := s.catalog.FetchCollections(ctx, creds)
	if err != nil {
		return result, fmt.Errorf("fetching collections: %w", err)
	}

	present := make([]string, 0, len(records))

	for _, rec := range records {
		u := NormalizeCollection(rec)
		present = append(present, u.ExternalID)

		if err := u.Validate(); err != nil {
			result.Errors++
			s.log.WithError(err).WithFields(logrus.Fields{
				"shop_id":     shopID,
				"external_id": rec.ExternalID,
			}).Warn("skipping invalid catalog record")

			continue
		}

		outcome, err := s.collections.UpsertCollection(ctx, shopID, u)
		if err != nil {
			if !errors.Is(err, models.ErrDuplicateKey) {
				return result, fmt.Errorf("storing collection %s: %w", u.Handle, err)
			}

			result.Errors++
			s.log.WithError(err).WithField("shop_id", shopID).Warn("collection handle collision")

			continue
		}

		switch outcome {
		case models.OutcomeCreated:
			result.Created++
		case models.OutcomeUpdated:
			result.Updated++
		default:
			result.Skipped++
		}

		metrics.CollectionsSynced.WithLabelValues(string(outcome)).Inc()
	}

	disabled, err := s.collections.DisableMissing(ctx, shopID, present)
	if err != nil {
		return result, fmt.Errorf("disabling missing collections: %w", err)
	}

	result.Disabled = disabled

	s.log.WithFields(logrus.Fields{
		"shop_id":  shopID,
		"created":  result.Created,
		"updated":  result.Updated,
		"skipped":  result.Skipped,
		"disabled": result.Disabled,
		"errors":   result.Errors,
	}).Info("collection sync finished")

	return result, nil
}
