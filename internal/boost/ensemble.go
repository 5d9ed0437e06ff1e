package boost

import (
	"math"
	"math/rand"
)

// EnsembleParams configure a bagging ensemble of boosters.
type EnsembleParams struct {
	Estimators int
	Seed       int64
	Booster    Params
}

// Ensemble is a fixed set of independently trained boosters, each fit on a
// bootstrap resample of the training set. Member disagreement is the
// uncertainty signal consumed by active learning and Thompson-sampled
// ranking. Immutable after FitEnsemble returns.
type Ensemble struct {
	boosters []*Booster
}

// FitEnsemble trains params.Estimators boosters on bootstrap resamples
// drawn from an owned rand.Rand. Resampling consumes the generator in a
// fixed order, so a fixed seed and dataset order reproduce the exact fit.
func FitEnsemble(params EnsembleParams, x [][]float32, y, w []float64) *Ensemble {
	n := len(x)
	rng := rand.New(rand.NewSource(params.Seed))

	e := &Ensemble{boosters: make([]*Booster, 0, params.Estimators)}

	xb := make([][]float32, n)
	yb := make([]float64, n)
	wb := make([]float64, n)

	for m := 0; m < params.Estimators; m++ {
		for i := 0; i < n; i++ {
			j := rng.Intn(n)
			xb[i] = x[j]
			yb[i] = y[j]
			wb[i] = w[j]
		}
		e.boosters = append(e.boosters, FitBooster(params.Booster, xb, yb, wb))
	}

	return e
}

// Size returns the number of estimators.
func (e *Ensemble) Size() int { return len(e.boosters) }

// EstimatorProbas returns each member's positive-class probability for x.
func (e *Ensemble) EstimatorProbas(x []float32) []float64 {
	probas := make([]float64, len(e.boosters))
	for i, b := range e.boosters {
		probas[i] = b.PredictProba(x)
	}
	return probas
}

// EstimatorProba returns member i's positive-class probability for x.
func (e *Ensemble) EstimatorProba(i int, x []float32) float64 {
	return e.boosters[i].PredictProba(x)
}

// MeanStd returns the mean and population standard deviation of probas.
func MeanStd(probas []float64) (float64, float64) {
	if len(probas) == 0 {
		return 0, 0
	}
	var sum float64
	for _, p := range probas {
		sum += p
	}
	mean := sum / float64(len(probas))

	var variance float64
	for _, p := range probas {
		d := p - mean
		variance += d * d
	}
	variance /= float64(len(probas))
	return mean, math.Sqrt(variance)
}

// BinaryEntropy is the Shannon entropy of a Bernoulli(p) in nats, with p
// clamped to [1e-12, 1-1e-12] to keep degenerate probabilities finite.
func BinaryEntropy(p float64) float64 {
	p = clampProba(p)
	return -p*math.Log(p) - (1-p)*math.Log(1-p)
}

// BALD is the disagreement score over per-estimator probabilities: the
// entropy of the mean prediction minus the mean per-estimator entropy.
// Higher means labeling this point is expected to be more informative.
func BALD(probas []float64) float64 {
	if len(probas) == 0 {
		return 0
	}
	var sum, entropySum float64
	for _, p := range probas {
		sum += p
		entropySum += BinaryEntropy(p)
	}
	n := float64(len(probas))
	return BinaryEntropy(sum/n) - entropySum/n
}

func clampProba(p float64) float64 {
	const eps = 1e-12
	if p < eps {
		return eps
	}
	if p > 1-eps {
		return 1 - eps
	}
	return p
}
