package similarity

import (
	"math"
	"slices"
)

// ThresholdParams tunes the per-source adaptive cutoff.
type ThresholdParams struct {
	Percentile float64
	Multiplier float64
	Min        float64
	Max        float64
}

// DefaultThresholdParams returns p75 × 0.7 clamped to [0.2, 0.85].
func DefaultThresholdParams() ThresholdParams {
	return ThresholdParams{Percentile: 75, Multiplier: 0.7, Min: 0.2, Max: 0.85}
}

// Threshold returns the cutoff for one source's candidate scores.
func (p ThresholdParams) Threshold(scores []float64) float64 {
	asc := slices.Clone(scores)
	slices.Sort(asc)

	t := Percentile(asc, p.Percentile) * p.Multiplier

	return math.Max(p.Min, math.Min(p.Max, t))
}

// Percentile returns the p-th percentile of ascending-sorted values, linearly
// interpolating between the two nearest order statistics. Empty input yields 0.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}

	idx := p / 100 * float64(n-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))

	if lo < 0 {
		lo = 0
	}

	if hi > n-1 {
		hi = n - 1
	}

	if lo == hi {
		return sorted[lo]
	}

	frac := idx - float64(lo)

	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
