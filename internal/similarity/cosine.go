// Package similarity holds the pure scoring functions behind the
// recommendation graph.
package similarity

import (
	"fmt"
	"math"

	"github.com/pathconvert/pathconvert/internal/models"
)

// Cosine returns the cosine similarity of a and b. Vectors of different
// length are rejected rather than truncated. A zero vector scores 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", models.ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64

	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
