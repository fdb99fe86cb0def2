package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/pathconvert/pathconvert/internal/models"
	"github.com/pathconvert/pathconvert/internal/similarity"
)

func eligible(cat models.Category, vec ...float32) models.EligibleCollection {
	return models.EligibleCollection{ID: uuid.New(), Handle: uuid.NewString(), Category: cat, Vector: vec}
}

func TestGraphBuilder_Build(t *testing.T) {
	items := []models.EligibleCollection{
		eligible(models.CategoryUnisex, 1, 0, 0),
		eligible(models.CategoryUnisex, 0.9, 0.1, 0),
		eligible(models.CategoryUnisex, 0.8, 0.2, 0),
		eligible(models.CategoryUnisex, 0.7, 0.3, 0),
	}

	store := &mockGraphStore{eligible: items}
	shops := &mockShopStore{settings: models.Settings{MaxButtons: 2, Alignment: models.AlignLeft}}

	b := NewGraphBuilder(store, store, shops, similarity.DefaultThresholdParams(), 15, testLogger())

	got, err := b.Build(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if got.CollectionsProcessed != 4 {
		t.Errorf("processed = %d, want 4", got.CollectionsProcessed)
	}

	if len(store.replaced) != 1 {
		t.Fatalf("replace calls = %d, want 1", len(store.replaced))
	}

	perSource := map[uuid.UUID]int{}
	for _, e := range store.replaced[0] {
		perSource[e.SourceID]++
	}

	for src, n := range perSource {
		if n > 2 {
			t.Errorf("source %s has %d edges, want at most 2", src, n)
		}
	}

	if got.EdgesCreated != len(store.replaced[0]) {
		t.Errorf("EdgesCreated = %d, want %d", got.EdgesCreated, len(store.replaced[0]))
	}
}

func TestGraphBuilder_TooFewClearsEdges(t *testing.T) {
	store := &mockGraphStore{eligible: []models.EligibleCollection{eligible(models.CategoryMen, 1, 0)}}
	shops := &mockShopStore{settings: models.DefaultSettings()}

	got, err := NewGraphBuilder(store, store, shops, similarity.DefaultThresholdParams(), 15, testLogger()).
		Build(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if got.EdgesCreated != 0 || got.CollectionsProcessed != 1 {
		t.Errorf("result = %+v", got)
	}

	if len(store.replaced) != 1 || len(store.replaced[0]) != 0 {
		t.Errorf("replaced = %v, want one empty replacement", store.replaced)
	}
}

func TestGraphBuilder_MismatchWritesNothing(t *testing.T) {
	store := &mockGraphStore{eligible: []models.EligibleCollection{
		eligible(models.CategoryUnisex, 1, 0),
		eligible(models.CategoryUnisex, 1, 0, 0),
	}}
	shops := &mockShopStore{settings: models.DefaultSettings()}

	_, err := NewGraphBuilder(store, store, shops, similarity.DefaultThresholdParams(), 15, testLogger()).
		Build(context.Background(), uuid.New())
	if !errors.Is(err, models.ErrDimensionMismatch) {
		t.Fatalf("got %v, want ErrDimensionMismatch", err)
	}

	if len(store.replaced) != 0 {
		t.Error("edges written after a scoring failure")
	}
}

func TestGraphBuilder_LowScoresClampedAway(t *testing.T) {
	// Cosines of 0.1, 0.12 and 0.15 all fall under the 0.2 floor.
	a := eligible(models.CategoryUnisex, 1, 0)
	items := []models.EligibleCollection{a}

	for _, c := range []float32{0.1, 0.12, 0.15} {
		items = append(items, eligible(models.CategoryUnisex, c, float32(math.Sqrt(1-float64(c)*float64(c)))))
	}

	store := &mockGraphStore{eligible: items}
	shops := &mockShopStore{settings: models.DefaultSettings()}

	if _, err := NewGraphBuilder(store, store, shops, similarity.DefaultThresholdParams(), 15, testLogger()).
		Build(context.Background(), uuid.New()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, e := range store.replaced[0] {
		if e.SourceID == a.ID {
			t.Errorf("unexpected edge from a: %+v", e)
		}
	}
}
