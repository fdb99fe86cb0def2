package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pathconvert/pathconvert/internal/models"
)

// ShopStore handles shops, their settings and billing state.
type ShopStore struct {
	Base
}

// NewShopStore creates a new ShopStore.
func NewShopStore(base Base) *ShopStore {
	return &ShopStore{Base: base}
}

// CreateShop registers a shop with its admin access token and API key.
// The access token is sealed before it is stored.
func (s *ShopStore) CreateShop(ctx context.Context, domain, accessToken, apiKey string) (*models.Shop, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	shopID := uuid.New()

	sealed, err := s.Crypto.Seal(ctx, shopID.String(), []byte(accessToken))
	if err != nil {
		return nil, fmt.Errorf("sealing access token: %w", err)
	}

	tx, err := s.beginTx(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("creating shop: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	var shop models.Shop

	err = tx.QueryRow(ctx,
		`INSERT INTO shops (id, shop_domain, access_token_enc, api_key_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, shop_domain, cache_version, last_analysed_at, created_at`,
		shopID, domain, sealed, HashAPIKey(apiKey),
	).Scan(&shop.ID, &shop.Domain, &shop.CacheVersion, &shop.LastAnalysedAt, &shop.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrDuplicateKey
		}

		return nil, fmt.Errorf("inserting shop: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO settings (shop_id) VALUES ($1)`, shopID); err != nil {
		return nil, fmt.Errorf("inserting default settings: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO billing (shop_id) VALUES ($1)`, shopID); err != nil {
		return nil, fmt.Errorf("inserting billing row: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing shop: %w", err)
	}

	return &shop, nil
}

// GetShopByAPIKey returns the shop ID owning apiKey.
func (s *ShopStore) GetShopByAPIKey(ctx context.Context, apiKey string) (uuid.UUID, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var shopID uuid.UUID

	err := s.Pool.QueryRow(ctx, "SELECT id FROM shops WHERE api_key_hash = $1", HashAPIKey(apiKey)).Scan(&shopID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, models.ErrShopNotFound
	}

	if err != nil {
		return uuid.Nil, fmt.Errorf("looking up shop by API key: %w", err)
	}

	return shopID, nil
}

const shopColumns = `id, shop_domain, cache_version, last_analysed_at, created_at`

func scanShop(row pgx.Row) (*models.Shop, error) {
	var shop models.Shop

	err := row.Scan(&shop.ID, &shop.Domain, &shop.CacheVersion, &shop.LastAnalysedAt, &shop.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrShopNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("scanning shop: %w", err)
	}

	return &shop, nil
}

// GetShop returns a shop by ID.
func (s *ShopStore) GetShop(ctx context.Context, shopID uuid.UUID) (*models.Shop, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	return scanShop(s.Pool.QueryRow(ctx, "SELECT "+shopColumns+" FROM shops WHERE id = $1", shopID))
}

// GetShopByDomain returns a shop by its myshopify domain.
func (s *ShopStore) GetShopByDomain(ctx context.Context, domain string) (*models.Shop, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	return scanShop(s.Pool.QueryRow(ctx, "SELECT "+shopColumns+" FROM shops WHERE shop_domain = $1", domain))
}

// GetCredentials returns the shop's domain and opened access token.
func (s *ShopStore) GetCredentials(ctx context.Context, shopID uuid.UUID) (models.ShopCredentials, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var (
		domain string
		sealed []byte
	)

	err := s.Pool.QueryRow(ctx,
		"SELECT shop_domain, access_token_enc FROM shops WHERE id = $1", shopID,
	).Scan(&domain, &sealed)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ShopCredentials{}, models.ErrShopNotFound
	}

	if err != nil {
		return models.ShopCredentials{}, fmt.Errorf("loading shop credentials: %w", err)
	}

	if len(sealed) == 0 {
		return models.ShopCredentials{}, fmt.Errorf("shop %s has no access token", domain)
	}

	token, err := s.Crypto.Open(ctx, shopID.String(), sealed)
	if err != nil {
		return models.ShopCredentials{}, fmt.Errorf("opening access token: %w", err)
	}

	return models.ShopCredentials{ShopID: shopID, Domain: domain, AccessToken: string(token)}, nil
}

// BumpCacheVersion increments the shop's cache version and returns the new value.
func (s *ShopStore) BumpCacheVersion(ctx context.Context, shopID uuid.UUID) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, shopID)
	if err != nil {
		return 0, fmt.Errorf("bumping cache version: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	version, err := bumpCacheVersion(ctx, tx)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing cache version: %w", err)
	}

	return version, nil
}

// MarkDeployed bumps the cache version and records the analysis time.
func (s *ShopStore) MarkDeployed(ctx context.Context, shopID uuid.UUID) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var version int64

	err := s.Pool.QueryRow(ctx,
		`UPDATE shops SET cache_version = cache_version + 1, last_analysed_at = now(), updated_at = now()
		 WHERE id = $1 RETURNING cache_version`, shopID,
	).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, models.ErrShopNotFound
	}

	if err != nil {
		return 0, fmt.Errorf("marking shop deployed: %w", err)
	}

	return version, nil
}

// GetSettings returns the shop's settings, or the defaults when none are stored.
func (s *ShopStore) GetSettings(ctx context.Context, shopID uuid.UUID) (models.Settings, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	settings := models.DefaultSettings()

	err := s.Pool.QueryRow(ctx,
		"SELECT max_buttons, alignment FROM settings WHERE shop_id = $1", shopID,
	).Scan(&settings.MaxButtons, &settings.Alignment)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DefaultSettings(), nil
	}

	if err != nil {
		return models.Settings{}, fmt.Errorf("loading settings: %w", err)
	}

	return settings, nil
}

// UpdateSettings applies req and bumps the cache version in one transaction.
func (s *ShopStore) UpdateSettings(ctx context.Context, shopID uuid.UUID, req models.UpdateSettingsRequest) (models.Settings, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, shopID)
	if err != nil {
		return models.Settings{}, fmt.Errorf("updating settings: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	current := models.DefaultSettings()

	err = tx.QueryRow(ctx,
		`SELECT max_buttons, alignment FROM settings
		 WHERE shop_id = current_setting('app.shop_id')::uuid FOR UPDATE`,
	).Scan(&current.MaxButtons, &current.Alignment)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return models.Settings{}, fmt.Errorf("loading settings: %w", err)
	}

	next := req.Apply(current)

	if _, err := tx.Exec(ctx,
		`INSERT INTO settings (shop_id, max_buttons, alignment)
		 VALUES (current_setting('app.shop_id')::uuid, $1, $2)
		 ON CONFLICT (shop_id) DO UPDATE
		 SET max_buttons = EXCLUDED.max_buttons, alignment = EXCLUDED.alignment, updated_at = now()`,
		next.MaxButtons, next.Alignment); err != nil {
		return models.Settings{}, fmt.Errorf("writing settings: %w", err)
	}

	if _, err := bumpCacheVersion(ctx, tx); err != nil {
		return models.Settings{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Settings{}, fmt.Errorf("committing settings: %w", err)
	}

	return next, nil
}

// GetBillingStatus returns the shop's subscription status.
func (s *ShopStore) GetBillingStatus(ctx context.Context, shopID uuid.UUID) (string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var status string

	err := s.Pool.QueryRow(ctx, "SELECT status FROM billing WHERE shop_id = $1", shopID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", models.ErrShopNotFound
	}

	if err != nil {
		return "", fmt.Errorf("loading billing status: %w", err)
	}

	return status, nil
}

// SetBillingStatus records the shop's subscription status.
func (s *ShopStore) SetBillingStatus(ctx context.Context, shopID uuid.UUID, status string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.Pool.Exec(ctx,
		`INSERT INTO billing (shop_id, status) VALUES ($1, $2)
		 ON CONFLICT (shop_id) DO UPDATE SET status = EXCLUDED.status, updated_at = now()`,
		shopID, status)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.ErrShopNotFound
		}

		return fmt.Errorf("writing billing status: %w", err)
	}

	return nil
}
