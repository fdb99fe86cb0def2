package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/pathconvert/pathconvert/internal/metrics"
	"github.com/pathconvert/pathconvert/internal/domain"
	"github.com/pathconvert/pathconvert/internal/models"
)

// loadTimeout bounds a shared load, which outlives any single caller.
const loadTimeout = 5 * time.Second

// RecommendationStore reads what the storefront shows.
type RecommendationStore interface {
	GetCollectionByHandle(ctx context.Context, shopID uuid.UUID, handle string) (*models.Collection, error)
	ListRecommendations(ctx context.Context, shopID, sourceID uuid.UUID) ([]models.RecommendationTarget, error)
}

// ShopLookup resolves shops.
type ShopLookup interface {
	GetShop(ctx context.Context, shopID uuid.UUID) (*models.Shop, error)
}

// RecommendationCache stores rendered recommendation lists by key.
type RecommendationCache interface {
	Get(ctx context.Context, key string) ([]models.Recommendation, bool, error)
	Set(ctx context.Context, key string, recs []models.Recommendation) error
}

var _ domain.RecommendationService = (*RecommendationReader)(nil)

// RecommendationReader answers "what should this collection link to".
// Results are cached under the shop's cache version, so bumping the version
// invalidates every entry of the shop at once.
type RecommendationReader struct {
	store RecommendationStore
	shops ShopLookup
	cache RecommendationCache
	group singleflight.Group
	log   *logrus.Logger
}

// NewRecommendationReader creates a RecommendationReader. cache may be nil.
func NewRecommendationReader(store RecommendationStore, shops ShopLookup, cache RecommendationCache, log *logrus.Logger) *RecommendationReader {
	return &RecommendationReader{store: store, shops: shops, cache: cache, log: log}
}

// GetRecommendations returns the ranked recommendations for a collection.
// An unknown or disabled collection yields an empty list.
func (r *RecommendationReader) GetRecommendations(ctx context.Context, shopID uuid.UUID, handle string) ([]models.Recommendation, error) {
	shop, err := r.shops.GetShop(ctx, shopID)
	if err != nil {
		return nil, err
	}

	return r.ForShop(ctx, shop, handle)
}

// ForShop is GetRecommendations for a shop the caller already loaded.
func (r *RecommendationReader) ForShop(ctx context.Context, shop *models.Shop, handle string) ([]models.Recommendation, error) {
	key := cacheKey(shop.ID, shop.CacheVersion, handle)

	if r.cache != nil {
		recs, ok, err := r.cache.Get(ctx, key)

		switch {
		case err != nil:
			metrics.RecommendationCache.WithLabelValues("error").Inc()
			r.log.WithError(err).WithField("shop_id", shop.ID).Debug("recommendation cache read failed")
		case ok:
			metrics.RecommendationCache.WithLabelValues("hit").Inc()
			return recs, nil
		default:
			metrics.RecommendationCache.WithLabelValues("miss").Inc()
		}
	}

	ch := r.group.DoChan(key, func() (any, error) {
		// Callers waiting on this key must not inherit the first caller's
		// cancellation.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		recs, err := r.load(loadCtx, shop.ID, handle)
		if err != nil {
			return nil, err
		}

		if r.cache != nil {
			if err := r.cache.Set(loadCtx, key, recs); err != nil {
				r.log.WithError(err).WithField("shop_id", shop.ID).Debug("recommendation cache write failed")
			}
		}

		return recs, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		return res.Val.([]models.Recommendation), nil
	}
}

func (r *RecommendationReader) load(ctx context.Context, shopID uuid.UUID, handle string) ([]models.Recommendation, error) {
	c, err := r.store.GetCollectionByHandle(ctx, shopID, handle)
	if errors.Is(err, models.ErrCollectionNotFound) {
		return []models.Recommendation{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("looking up collection: %w", err)
	}

	if !c.Eligible() {
		return []models.Recommendation{}, nil
	}

	targets, err := r.store.ListRecommendations(ctx, shopID, c.ID)
	if err != nil {
		return nil, fmt.Errorf("listing recommendations: %w", err)
	}

	recs := make([]models.Recommendation, len(targets))
	for i, t := range targets {
		recs[i] = models.Recommendation{
			Title: t.Title,
			URL:   models.CollectionURL(t.Handle),
			Score: t.Score,
			Rank:  t.Rank,
		}
	}

	return recs, nil
}

func cacheKey(shopID uuid.UUID, version int64, handle string) string {
	return fmt.Sprintf("rec:%s:%d:%s", shopID, version, handle)
}
