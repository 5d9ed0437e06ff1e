package qualify

import (
	"context"
	"errors"
	"fmt"

	"github.com/leadforge/leadforge/internal/domain"
)

// selectCandidate picks the next lead to decide on. A single candidate is
// returned without scoring. Trained: exploit (highest predicted
// probability) while negatives outnumber positives, explore (highest BALD)
// otherwise. Untrained: closest to the positive centroid, falling back to
// insertion order before any positive exists. Ties keep the first
// candidate in evaluated order.
func (s *Service) selectCandidate(ctx context.Context, candidates []domain.Lead) (domain.Lead, string, error) {
	if len(candidates) == 1 {
		return candidates[0], "single", nil
	}

	if s.classifier.Trained() {
		counts, err := s.store.CountLabeled(ctx)
		if err != nil {
			return domain.Lead{}, "", fmt.Errorf("count labeled: %w", err)
		}
		if counts.Negative > counts.Positive {
			return argmax(candidates, s.classifier.PredictedProbability), "exploit", nil
		}
		return argmax(candidates, s.classifier.BALDScore), "explore", nil
	}

	centroid, err := s.store.PositiveCentroid(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoCentroid) {
			return candidates[0], "cold-start", nil
		}
		return domain.Lead{}, "", fmt.Errorf("positive centroid: %w", err)
	}

	return argmax(candidates, func(x []float32) float64 {
		return domain.CosineSimilarity(centroid, x)
	}), "centroid", nil
}

func argmax(candidates []domain.Lead, score func([]float32) float64) domain.Lead {
	best := 0
	bestScore := score(candidates[0].Embedding)
	for i := 1; i < len(candidates); i++ {
		if sc := score(candidates[i].Embedding); sc > bestScore {
			best = i
			bestScore = sc
		}
	}
	return candidates[best]
}
