package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/pathconvert/pathconvert/internal/models"
)

func newTestResilient(inner Embedder, retries uint64, dims int) *ResilientEmbedder {
	return NewResilientEmbedder(inner, ResilientConfig{
		RatePerSec: 1000,
		Burst:      10,
		MaxRetries: retries,
		BaseDelay:  time.Millisecond,
		Dimensions: dims,
	}, testLogger())
}

func TestResilientEmbedder_RetriesThrottling(t *testing.T) {
	inner := &mockEmbedder{model: "m"}
	inner.generate = func(context.Context, string) ([]float32, error) {
		if inner.calls < 3 {
			return nil, &StatusError{StatusCode: http.StatusTooManyRequests, Err: errors.New("slow down")}
		}
		return []float32{1, 2}, nil
	}

	vec, err := newTestResilient(inner, 4, 2).Generate(context.Background(), "x")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(vec) != 2 || inner.callCount() != 3 {
		t.Errorf("vec = %v, calls = %d", vec, inner.callCount())
	}
}

func TestResilientEmbedder_PermanentNotRetried(t *testing.T) {
	inner := &mockEmbedder{model: "m", generate: func(context.Context, string) ([]float32, error) {
		return nil, &StatusError{StatusCode: http.StatusBadRequest, Err: errors.New("bad input")}
	}}

	_, err := newTestResilient(inner, 4, 0).Generate(context.Background(), "x")

	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
		t.Fatalf("got %v, want 400 StatusError", err)
	}

	if inner.callCount() != 1 {
		t.Errorf("calls = %d, want 1", inner.callCount())
	}
}

func TestResilientEmbedder_BreakerOpens(t *testing.T) {
	inner := &mockEmbedder{model: "m", generate: func(context.Context, string) ([]float32, error) {
		return nil, &StatusError{StatusCode: http.StatusServiceUnavailable, Err: errors.New("down")}
	}}

	e := newTestResilient(inner, 0, 0)

	for range cbFailureThreshold {
		if _, err := e.Generate(context.Background(), "x"); errors.Is(err, ErrCircuitOpen) {
			t.Fatal("breaker opened too early")
		}
	}

	before := inner.callCount()

	if _, err := e.Generate(context.Background(), "x"); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen", err)
	}

	if inner.callCount() != before {
		t.Error("open breaker still called the provider")
	}
}

func TestResilientEmbedder_DimensionCheck(t *testing.T) {
	inner := &mockEmbedder{model: "m", generate: func(context.Context, string) ([]float32, error) {
		return []float32{1, 2, 3}, nil
	}}

	if _, err := newTestResilient(inner, 0, 4).Generate(context.Background(), "x"); !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("got %v, want ErrDimensionMismatch", err)
	}
}
