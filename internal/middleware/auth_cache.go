package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	keyCacheTTL        = 5 * time.Minute
	negativeCacheTTL   = 30 * time.Second
	maxCacheEntries    = 10000
	cacheCleanupPeriod = time.Minute
)

var errCachedUnknownKey = errors.New("unknown api key (cached)")

type cachedShop struct {
	shopID    uuid.UUID
	expiresAt time.Time
}

// CachedShopLookup memoizes API key lookups in memory. Unknown keys are
// remembered briefly so repeated bad keys do not reach the database.
// Raw keys are never stored, only their SHA-256.
type CachedShopLookup struct {
	inner ShopKeyLookup
	mu    sync.RWMutex
	cache map[string]cachedShop
	now   func() time.Time
}

// NewCachedShopLookup wraps inner. ctx bounds the eviction goroutine.
func NewCachedShopLookup(ctx context.Context, inner ShopKeyLookup) *CachedShopLookup {
	c := &CachedShopLookup{
		inner: inner,
		cache: make(map[string]cachedShop),
		now:   time.Now,
	}
	go c.evictLoop(ctx)

	return c
}

func (c *CachedShopLookup) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(cacheCleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			c.evictExpired()
			c.mu.Unlock()
		}
	}
}

// evictExpired must be called with mu held.
func (c *CachedShopLookup) evictExpired() {
	now := c.now()
	for k, v := range c.cache {
		if !now.Before(v.expiresAt) {
			delete(c.cache, k)
		}
	}
}

// GetShopByAPIKey implements ShopKeyLookup.
func (c *CachedShopLookup) GetShopByAPIKey(ctx context.Context, apiKey string) (uuid.UUID, error) {
	sum := sha256.Sum256([]byte(apiKey))
	hk := hex.EncodeToString(sum[:])

	c.mu.RLock()
	entry, ok := c.cache[hk]
	c.mu.RUnlock()

	if ok && c.now().Before(entry.expiresAt) {
		if entry.shopID == uuid.Nil {
			return uuid.Nil, errCachedUnknownKey
		}

		return entry.shopID, nil
	}

	shopID, err := c.inner.GetShopByAPIKey(ctx, apiKey)

	ttl := keyCacheTTL
	if err != nil {
		shopID, ttl = uuid.Nil, negativeCacheTTL
	}

	c.mu.Lock()
	if len(c.cache) >= maxCacheEntries {
		c.evictExpired()

		for k := range c.cache {
			if len(c.cache) < maxCacheEntries {
				break
			}

			delete(c.cache, k)
		}
	}
	c.cache[hk] = cachedShop{shopID: shopID, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()

	if err != nil {
		return uuid.Nil, err
	}

	return shopID, nil
}
