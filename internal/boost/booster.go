package boost

import "math"

// Params configure one gradient-boosted classifier.
type Params struct {
	Rounds       int
	MaxDepth     int
	MinLeaf      int
	LearningRate float64
	Lambda       float64
}

// DefaultParams are tuned for small, frequently retrained datasets.
func DefaultParams() Params {
	return Params{
		Rounds:       30,
		MaxDepth:     3,
		MinLeaf:      2,
		LearningRate: 0.1,
		Lambda:       1.0,
	}
}

// Booster is a binary classifier boosted with logistic loss. Immutable
// after FitBooster returns.
type Booster struct {
	params Params
	base   float64
	trees  []*tree
}

// FitBooster trains a booster on x with labels y in {0,1} and per-sample
// weights w. len(x) == len(y) == len(w) and len(x) > 0 are the caller's
// responsibility.
func FitBooster(p Params, x [][]float32, y, w []float64) *Booster {
	n := len(x)

	b := &Booster{params: p, base: baseScore(y, w)}

	f := make([]float64, n)
	for i := range f {
		f[i] = b.base
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	grad := make([]float64, n)
	hess := make([]float64, n)
	tp := treeParams{maxDepth: p.MaxDepth, minLeaf: p.MinLeaf, lambda: p.Lambda}

	for round := 0; round < p.Rounds; round++ {
		for i := 0; i < n; i++ {
			prob := sigmoid(f[i])
			grad[i] = y[i] - prob
			hess[i] = prob * (1 - prob)
		}

		t := fitTree(x, grad, hess, w, idx, tp)
		b.trees = append(b.trees, t)

		for i := 0; i < n; i++ {
			f[i] += p.LearningRate * t.predict(x[i])
		}
	}

	return b
}

// PredictProba returns the positive-class probability for x.
func (b *Booster) PredictProba(x []float32) float64 {
	f := b.base
	for _, t := range b.trees {
		f += b.params.LearningRate * t.predict(x)
	}
	return sigmoid(f)
}

// baseScore is the weighted log-odds prior. Counts are floored so a
// single-class bootstrap sample yields a large but finite score.
func baseScore(y, w []float64) float64 {
	var pos, neg float64
	for i, label := range y {
		if label >= 0.5 {
			pos += w[i]
		} else {
			neg += w[i]
		}
	}
	const floor = 1e-6
	return math.Log(math.Max(pos, floor) / math.Max(neg, floor))
}

func sigmoid(f float64) float64 {
	if f >= 0 {
		return 1 / (1 + math.Exp(-f))
	}
	e := math.Exp(f)
	return e / (1 + e)
}
