package store_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pathconvert/pathconvert/internal/crypto"
	"github.com/pathconvert/pathconvert/internal/db"
	"github.com/pathconvert/pathconvert/internal/db/migrations"
	"github.com/pathconvert/pathconvert/internal/dbpool"
	"github.com/pathconvert/pathconvert/internal/models"
	"github.com/pathconvert/pathconvert/internal/store"
)

// testHexKey is a valid 64-char hex string (32 bytes) for test encryption.
const testHexKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// testDims matches the vector column width in the schema.
const testDims = 1536

// testEnv holds shared test infrastructure (single pool across all tests).
type testEnv struct {
	pool *dbpool.Pool
	log  *logrus.Logger
}

var sharedEnv *testEnv

func getTestEnv(t *testing.T) *testEnv {
	t.Helper()

	if sharedEnv != nil {
		return sharedEnv
	}

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()

	pool, err := dbpool.NewPool(ctx, dbURL, 5)
	if err != nil {
		t.Fatalf("connecting to test DB: %v", err)
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		t.Fatalf("migrating test DB: %v", err)
	}

	sharedEnv = &testEnv{
		pool: pool,
		log:  log,
	}

	return sharedEnv
}

func newCryptoService(t *testing.T) *crypto.Service {
	t.Helper()

	provider, err := crypto.NewDerivedProvider(testHexKey)
	if err != nil {
		t.Fatalf("creating derived provider: %v", err)
	}

	return crypto.NewService(provider)
}

// setupTestShop creates a Base and a fresh shop, deleted after the test.
func setupTestShop(t *testing.T) (store.Base, *models.Shop) {
	t.Helper()

	env := getTestEnv(t)
	base := store.Base{Pool: env.pool, Log: env.log, Crypto: newCryptoService(t)}

	suffix := uuid.NewString()[:8]

	shop, err := store.NewShopStore(base).CreateShop(context.Background(),
		"test-"+suffix+".myshopify.com", "shpat_"+suffix, "test-key-"+suffix)
	if err != nil {
		t.Fatalf("creating test shop: %v", err)
	}

	t.Cleanup(func() {
		// Cascades to settings, billing, collections, embeddings, edges, jobs.
		env.pool.Exec(context.Background(), "DELETE FROM shops WHERE id = $1", shop.ID) //nolint:errcheck // best-effort cleanup
	})

	return base, shop
}

func createTestCollection(t *testing.T, cs *store.CollectionStore, shopID uuid.UUID, handle string, cat models.Category) *models.Collection {
	t.Helper()

	ctx := context.Background()

	if _, err := cs.UpsertCollection(ctx, shopID, models.CollectionUpsert{
		ExternalID: "ext-" + handle,
		Handle:     handle,
		Title:      "Title " + handle,
		Category:   cat,
	}); err != nil {
		t.Fatalf("UpsertCollection(%s): %v", handle, err)
	}

	c, err := cs.GetCollectionByHandle(ctx, shopID, handle)
	if err != nil {
		t.Fatalf("GetCollectionByHandle(%s): %v", handle, err)
	}

	return c
}

// unitVector returns a testDims-wide vector with a single hot dimension.
func unitVector(hot int) []float32 {
	v := make([]float32, testDims)
	v[hot%testDims] = 1

	return v
}
