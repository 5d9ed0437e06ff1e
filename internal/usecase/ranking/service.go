// Package ranking orders action candidates with Thompson Sampling: one
// ensemble member ranks when the classifier is trained, a centroid-derived
// Beta draw ranks before that, and insertion order is the last resort.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"
	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/leadforge/leadforge/internal/domain"
)

// Service ranks candidates for the connect and follow-up lanes.
type Service struct {
	classifier Classifier
	store      CentroidSource
	rng        *rand.Rand
	betaSrc    exprand.Source
	logger     *zap.Logger
}

// New creates a ranking service. The seed fixes both the estimator draw and
// the Beta draws, so a fixed seed reproduces the full ranking sequence.
func New(classifier Classifier, store CentroidSource, seed int64, logger *zap.Logger) *Service {
	return &Service{
		classifier: classifier,
		store:      store,
		rng:        rand.New(rand.NewSource(seed)),
		betaSrc:    exprand.NewSource(uint64(seed)),
		logger:     logger,
	}
}

// Rank orders candidates for the next action. Seeds sort first in their
// original relative order, unconditionally. The rest are ranked by one
// uniformly sampled ensemble member when the classifier is trained, by a
// Beta draw shaped from centroid similarity before that, and kept in
// insertion order when neither exists.
func (s *Service) Rank(ctx context.Context, candidates []domain.Lead) ([]domain.Lead, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}

	seeds := make([]domain.Lead, 0, len(candidates))
	rest := make([]domain.Lead, 0, len(candidates))
	for _, l := range candidates {
		if l.IsSeed {
			seeds = append(seeds, l)
		} else {
			rest = append(rest, l)
		}
	}

	ranked, strategy, err := s.rankRest(ctx, rest)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Ranked candidates",
		zap.String("strategy", strategy),
		zap.Int("seeds", len(seeds)),
		zap.Int("candidates", len(rest)),
	)
	return append(seeds, ranked...), nil
}

func (s *Service) rankRest(ctx context.Context, rest []domain.Lead) ([]domain.Lead, string, error) {
	if len(rest) < 2 {
		return rest, "fifo", nil
	}

	if s.classifier.Trained() {
		scorer := s.classifier.SampleEstimator(s.rng)
		ranked := sortByScore(rest, func(l domain.Lead) float64 {
			if !l.Embedded() {
				return 0.5
			}
			return scorer(l.Embedding)
		})
		return ranked, "estimator", nil
	}

	centroid, err := s.store.PositiveCentroid(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoCentroid) {
			return rest, "fifo", nil
		}
		return nil, "", fmt.Errorf("positive centroid: %w", err)
	}

	ranked := sortByScore(rest, func(l domain.Lead) float64 {
		return s.betaSample(domain.CosineSimilarity(centroid, l.Embedding))
	})
	return ranked, "centroid", nil
}

// betaSample draws from Beta(sim*5, (1-sim)*5) with the cosine similarity
// normalized to [0,1] and shapes clamped away from zero.
func (s *Service) betaSample(sim float64) float64 {
	sim = (sim + 1) / 2
	return distuv.Beta{
		Alpha: math.Max(sim*5, 0.01),
		Beta:  math.Max((1-sim)*5, 0.01),
		Src:   s.betaSrc,
	}.Rand()
}

type scoredLead struct {
	lead  domain.Lead
	score float64
}

// sortByScore orders descending; equal scores keep insertion order.
func sortByScore(leads []domain.Lead, score func(domain.Lead) float64) []domain.Lead {
	scored := make([]scoredLead, len(leads))
	for i, l := range leads {
		scored[i] = scoredLead{lead: l, score: score(l)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	out := make([]domain.Lead, len(scored))
	for i, sl := range scored {
		out[i] = sl.lead
	}
	return out
}
