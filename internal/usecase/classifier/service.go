// Package classifier wraps the boosted-tree ensemble with training
// preconditions, retrain cadence, and the uncertainty measures consumed by
// the qualification selector and the connect-lane ranking.
package classifier

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leadforge/leadforge/internal/boost"
	"github.com/leadforge/leadforge/internal/domain"
	"github.com/leadforge/leadforge/internal/metrics"
)

// Params configure training preconditions and the ensemble shape.
type Params struct {
	Estimators         int
	MinTrainingSamples int
	MinClassRatio      float64
	RetrainEvery       int
	Seed               int64
}

// Service is the qualification classifier. A successful Train builds a full
// ensemble off to the side, then swaps it in under the mutex, so a failed or
// precondition-skipped run never disturbs the prior trained state. All
// predict methods read the current snapshot.
type Service struct {
	params Params
	logger *zap.Logger

	mu                sync.RWMutex
	ensemble          *boost.Ensemble
	labelsAtLastTrain int
}

// New creates a classifier service.
func New(params Params, logger *zap.Logger) *Service {
	return &Service{params: params, logger: logger}
}

// Train fits the ensemble on the labeled dataset. Returns false without
// touching the prior state when the dataset is below the minimum sample
// count or the minority class is below the minimum ratio. Samples are
// weighted by inverse class frequency. The cross-validated accuracy is
// logged for diagnostics only and never gates acceptance.
func (s *Service) Train(_ context.Context, ds domain.Dataset) (bool, error) {
	counts := ds.Counts()

	if counts.Total < s.params.MinTrainingSamples {
		s.logger.Debug("Skipping training: not enough labeled samples",
			zap.Int("total", counts.Total),
			zap.Int("min_samples", s.params.MinTrainingSamples),
		)
		metrics.TrainingRunsTotal.WithLabelValues("precondition_unmet").Inc()
		return false, nil
	}

	minority := counts.Positive
	if counts.Negative < minority {
		minority = counts.Negative
	}
	ratio := float64(minority) / float64(counts.Total)
	if ratio < s.params.MinClassRatio {
		s.logger.Debug("Skipping training: class imbalance",
			zap.Int("positive", counts.Positive),
			zap.Int("negative", counts.Negative),
			zap.Float64("minority_ratio", ratio),
			zap.Float64("min_ratio", s.params.MinClassRatio),
		)
		metrics.TrainingRunsTotal.WithLabelValues("precondition_unmet").Inc()
		return false, nil
	}

	start := time.Now()

	y := make([]float64, counts.Total)
	w := make([]float64, counts.Total)
	wPos := float64(counts.Total) / (2 * float64(counts.Positive))
	wNeg := float64(counts.Total) / (2 * float64(counts.Negative))
	for i, label := range ds.Labels {
		if label == domain.LabelPositive {
			y[i] = 1
			w[i] = wPos
		} else {
			w[i] = wNeg
		}
	}

	folds := cvFolds(counts.Total)
	cvAccuracy := crossValidate(ds.Vectors, y, w, folds)

	ensemble := boost.FitEnsemble(boost.EnsembleParams{
		Estimators: s.params.Estimators,
		Seed:       s.params.Seed,
		Booster:    boost.DefaultParams(),
	}, ds.Vectors, y, w)

	s.mu.Lock()
	s.ensemble = ensemble
	s.labelsAtLastTrain = counts.Total
	s.mu.Unlock()

	duration := time.Since(start)
	metrics.TrainingRunsTotal.WithLabelValues("trained").Inc()
	metrics.TrainingDuration.Observe(duration.Seconds())
	metrics.LabeledLeads.WithLabelValues("positive").Set(float64(counts.Positive))
	metrics.LabeledLeads.WithLabelValues("negative").Set(float64(counts.Negative))

	s.logger.Info("Classifier trained",
		zap.Int("samples", counts.Total),
		zap.Int("positive", counts.Positive),
		zap.Int("negative", counts.Negative),
		zap.Int("estimators", s.params.Estimators),
		zap.Int("cv_folds", folds),
		zap.Float64("cv_accuracy", cvAccuracy),
		zap.Duration("duration", duration),
	)

	return true, nil
}

// Trained reports whether an ensemble has been fit.
func (s *Service) Trained() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ensemble != nil
}

// NeedsRetrain reports whether enough labels accumulated since the last
// successful training run.
func (s *Service) NeedsRetrain(totalLabeled int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return totalLabeled-s.labelsAtLastTrain >= s.params.RetrainEvery
}

// PredictDistribution returns per-estimator positive-class probabilities,
// empty when untrained.
func (s *Service) PredictDistribution(x []float32) []float64 {
	s.mu.RLock()
	e := s.ensemble
	s.mu.RUnlock()

	if e == nil {
		return nil
	}
	return e.EstimatorProbas(x)
}

// Predict returns the mean and standard deviation of the per-estimator
// probabilities. Calling it untrained is a programming error and panics
// with domain.ErrUntrained; callers gate on Trained.
func (s *Service) Predict(x []float32) (float64, float64) {
	probas := s.PredictDistribution(x)
	if len(probas) == 0 {
		panic(domain.ErrUntrained)
	}
	return boost.MeanStd(probas)
}

// PredictedProbability returns the mean positive-class probability.
// Panics with domain.ErrUntrained when untrained.
func (s *Service) PredictedProbability(x []float32) float64 {
	mean, _ := s.Predict(x)
	return mean
}

// BALDScore returns the ensemble-disagreement score for x.
// Panics with domain.ErrUntrained when untrained.
func (s *Service) BALDScore(x []float32) float64 {
	probas := s.PredictDistribution(x)
	if len(probas) == 0 {
		panic(domain.ErrUntrained)
	}
	return boost.BALD(probas)
}

// SampleEstimator picks one ensemble member uniformly and returns its
// positive-probability scorer. Panics with domain.ErrUntrained when
// untrained.
func (s *Service) SampleEstimator(rng *rand.Rand) func([]float32) float64 {
	s.mu.RLock()
	e := s.ensemble
	s.mu.RUnlock()

	if e == nil {
		panic(domain.ErrUntrained)
	}
	i := rng.Intn(e.Size())
	return func(x []float32) float64 { return e.EstimatorProba(i, x) }
}

// Explain renders a human-readable scoring summary for operator audit.
func (s *Service) Explain(x []float32) string {
	probas := s.PredictDistribution(x)
	if len(probas) == 0 {
		return "classifier not trained"
	}

	mean, std := boost.MeanStd(probas)
	sorted := append([]float64(nil), probas...)
	sort.Float64s(sorted)

	return fmt.Sprintf(
		"p(qualified): %.3f (std=%.3f)\n"+
			"predictive entropy: %.4f\n"+
			"bald score: %.4f\n"+
			"estimators: %d (min=%.3f q1=%.3f median=%.3f q3=%.3f max=%.3f)",
		mean, std,
		boost.BinaryEntropy(mean),
		boost.BALD(probas),
		len(probas),
		sorted[0],
		quantile(sorted, 0.25),
		quantile(sorted, 0.5),
		quantile(sorted, 0.75),
		sorted[len(sorted)-1],
	)
}

// cvFolds is min(5, max(2, n/10)).
func cvFolds(n int) int {
	k := n / 10
	if k < 2 {
		k = 2
	}
	if k > 5 {
		k = 5
	}
	return k
}

// crossValidate fits one booster per fold on the out-of-fold rows and
// returns accuracy pooled over held-out rows. Folds are assigned round
// robin so both classes land in every fold. Diagnostics only.
func crossValidate(x [][]float32, y, w []float64, folds int) float64 {
	n := len(x)
	var correct, total int

	for fold := 0; fold < folds; fold++ {
		trainX := make([][]float32, 0, n)
		trainY := make([]float64, 0, n)
		trainW := make([]float64, 0, n)
		var holdout []int

		for i := 0; i < n; i++ {
			if i%folds == fold {
				holdout = append(holdout, i)
				continue
			}
			trainX = append(trainX, x[i])
			trainY = append(trainY, y[i])
			trainW = append(trainW, w[i])
		}
		if len(trainX) == 0 || len(holdout) == 0 {
			continue
		}

		b := boost.FitBooster(boost.DefaultParams(), trainX, trainY, trainW)
		for _, i := range holdout {
			predicted := 0.0
			if b.PredictProba(x[i]) >= 0.5 {
				predicted = 1
			}
			if predicted == y[i] {
				correct++
			}
			total++
		}
	}

	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}

// quantile interpolates linearly over a sorted slice.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
