package similarity_test

import (
	"math"
	"testing"

	"github.com/pathconvert/pathconvert/internal/similarity"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		p      float64
		want   float64
	}{
		{name: "empty", values: nil, p: 75, want: 0},
		{name: "single", values: []float64{0.4}, p: 75, want: 0.4},
		{name: "interpolated", values: []float64{0.1, 0.12, 0.15}, p: 75, want: 0.135},
		{name: "exact index", values: []float64{1, 2, 3, 4, 5}, p: 75, want: 4},
		{name: "median even", values: []float64{1, 2, 3, 4}, p: 50, want: 2.5},
		{name: "min", values: []float64{1, 2, 3}, p: 0, want: 1},
		{name: "max", values: []float64{1, 2, 3}, p: 100, want: 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := similarity.Percentile(tc.values, tc.p); math.Abs(got-tc.want) > eps {
				t.Errorf("Percentile = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestThreshold(t *testing.T) {
	p := similarity.DefaultThresholdParams()

	tests := []struct {
		name   string
		scores []float64
		want   float64
	}{
		{name: "clamped to floor", scores: []float64{0.1, 0.12, 0.15}, want: 0.2},
		{name: "inside range", scores: []float64{0.4, 0.5, 0.6, 0.7, 0.8}, want: 0.7 * 0.7},
		{name: "unsorted input", scores: []float64{0.8, 0.4, 0.7, 0.5, 0.6}, want: 0.7 * 0.7},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.Threshold(tc.scores); math.Abs(got-tc.want) > eps {
				t.Errorf("Threshold = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestThreshold_Ceiling(t *testing.T) {
	p := similarity.ThresholdParams{Percentile: 75, Multiplier: 1, Min: 0.2, Max: 0.85}

	if got := p.Threshold([]float64{0.99, 0.99, 0.99, 0.99}); math.Abs(got-0.85) > eps {
		t.Errorf("Threshold = %v, want 0.85", got)
	}
}

func TestThreshold_DoesNotReorderInput(t *testing.T) {
	scores := []float64{0.9, 0.1, 0.5}
	similarity.DefaultThresholdParams().Threshold(scores)

	if scores[0] != 0.9 || scores[1] != 0.1 || scores[2] != 0.5 {
		t.Errorf("input mutated: %v", scores)
	}
}
