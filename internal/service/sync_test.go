package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/google/uuid"

	"github.com/pathconvert/pathconvert/internal/catalog"
	"github.com/pathconvert/pathconvert/internal/models"
)

func TestSyncService_SyncCollections(t *testing.T) {
	src := &mockCatalog{records: []catalog.Collection{
		{ExternalID: "1", Handle: "new", Title: "New"},
		{ExternalID: "2", Handle: "changed", Title: "Changed"},
		{ExternalID: "3", Handle: "same", Title: "Same"},
		{ExternalID: "4", Handle: "dup", Title: "Dup"},
		{ExternalID: "5", Handle: "", Title: "No handle"},
	}}

	var (
		upserted []models.CollectionUpsert
		present  []string
	)

	store := &mockCollectionStore{
		upsertCollection: func(_ context.Context, _ uuid.UUID, u models.CollectionUpsert) (models.UpsertOutcome, error) {
			upserted = append(upserted, u)

			switch u.Handle {
			case "new":
				return models.OutcomeCreated, nil
			case "changed":
				return models.OutcomeUpdated, nil
			case "dup":
				return "", fmt.Errorf("collection %q: %w", u.Handle, models.ErrDuplicateKey)
			default:
				return models.OutcomeSkipped, nil
			}
		},
		disableMissing: func(_ context.Context, _ uuid.UUID, p []string) (int, error) {
			present = p
			return 2, nil
		},
	}

	svc := NewSyncService(src, &mockShopStore{}, store, testLogger())

	got, err := svc.SyncCollections(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("SyncCollections: %v", err)
	}

	want := models.SyncResult{Created: 1, Updated: 1, Skipped: 1, Disabled: 2, Errors: 2}
	if got != want {
		t.Errorf("result = %+v, want %+v", got, want)
	}

	if len(upserted) != 4 {
		t.Errorf("upserts = %d, want 4 (invalid record skipped)", len(upserted))
	}

	if !slices.Equal(present, []string{"1", "2", "3", "4", "5"}) {
		t.Errorf("present = %v", present)
	}
}

func TestSyncService_CatalogFailure(t *testing.T) {
	called := false
	store := &mockCollectionStore{
		disableMissing: func(context.Context, uuid.UUID, []string) (int, error) {
			called = true
			return 0, nil
		},
	}

	svc := NewSyncService(&mockCatalog{err: catalog.ErrUnauthorized}, &mockShopStore{}, store, testLogger())

	_, err := svc.SyncCollections(context.Background(), uuid.New())
	if !errors.Is(err, catalog.ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}

	if called {
		t.Error("collections disabled after a failed fetch")
	}
}

func TestSyncService_StoreFailureAborts(t *testing.T) {
	src := &mockCatalog{records: []catalog.Collection{{ExternalID: "1", Handle: "a", Title: "A"}}}
	store := &mockCollectionStore{
		upsertCollection: func(context.Context, uuid.UUID, models.CollectionUpsert) (models.UpsertOutcome, error) {
			return "", errors.New("db down")
		},
	}

	if _, err := NewSyncService(src, &mockShopStore{}, store, testLogger()).SyncCollections(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error")
	}
}
