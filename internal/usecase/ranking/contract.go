package ranking

import (
	"context"
	"math/rand"
)

// Classifier is the model surface used for Thompson-sampled ranking.
type Classifier interface {
	Trained() bool
	SampleEstimator(rng *rand.Rand) func([]float32) float64
}

// CentroidSource reads the positive centroid for the pre-classifier
// similarity heuristic.
type CentroidSource interface {
	PositiveCentroid(ctx context.Context) ([]float32, error)
}
