package similarity

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/pathconvert/pathconvert/internal/models"
)

// Candidate is a scored potential target for one source.
type Candidate struct {
	ID    uuid.UUID
	Score float64
}

// RankCandidates orders candidates by score descending (ties by id), drops
// those under the adaptive threshold and keeps at most limit of them.
func RankCandidates(candidates []Candidate, params ThresholdParams, limit int) []Candidate {
	if len(candidates) == 0 || limit < 1 {
		return nil
	}

	sorted := slices.Clone(candidates)
	slices.SortFunc(sorted, func(a, b Candidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}

		return bytes.Compare(a.ID[:], b.ID[:])
	})

	scores := make([]float64, len(sorted))
	for i, c := range sorted {
		scores[i] = c.Score
	}

	threshold := params.Threshold(scores)

	kept := sorted[:0]
	for _, c := range sorted {
		if c.Score >= threshold {
			kept = append(kept, c)
		}
	}

	if len(kept) > limit {
		kept = kept[:limit]
	}

	return kept
}

// BuildEdges computes the full ranked edge set for a shop's eligible
// collections. It is exact and quadratic in len(items).
func BuildEdges(items []models.EligibleCollection, params ThresholdParams, limit int) ([]models.Edge, error) {
	if len(items) < 2 {
		return nil, nil
	}

	var edges []models.Edge

	for i := range items {
		src := &items[i]

		candidates := make([]Candidate, 0, len(items)-1)

		for j := range items {
			dst := &items[j]
			if i == j || src.ID == dst.ID {
				continue
			}

			if !CanRecommend(src.Category, dst.Category) {
				continue
			}

			score, err := Cosine(src.Vector, dst.Vector)
			if err != nil {
				return nil, fmt.Errorf("scoring %s against %s: %w", src.ID, dst.ID, err)
			}

			candidates = append(candidates, Candidate{ID: dst.ID, Score: score})
		}

		for rank, c := range RankCandidates(candidates, params, limit) {
			edges = append(edges, models.Edge{
				SourceID: src.ID,
				TargetID: c.ID,
				Score:    c.Score,
				Rank:     rank + 1,
			})
		}
	}

	return edges, nil
}
