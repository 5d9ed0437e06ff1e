// Package boost implements depth-limited gradient-boosted trees and
// bootstrap-resampled ensembles over them. Everything here is pure
// computation: no I/O, no clocks, deterministic for a fixed seed and
// dataset order.
package boost

import "sort"

// node is one regression tree node. Leaves carry the boosting step value.
type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	value     float64
}

func (n *node) isLeaf() bool { return n.left == nil }

type treeParams struct {
	maxDepth int
	minLeaf  int
	lambda   float64
}

// tree is a regression tree fit on per-sample gradient/hessian pairs with
// second-order leaf values (sum g / (sum h + lambda)).
type tree struct {
	root *node
}

func fitTree(x [][]float32, grad, hess, w []float64, idx []int, p treeParams) *tree {
	return &tree{root: buildNode(x, grad, hess, w, idx, 0, p)}
}

func (t *tree) predict(x []float32) float64 {
	n := t.root
	for !n.isLeaf() {
		if float64(x[n.feature]) < n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func buildNode(x [][]float32, grad, hess, w []float64, idx []int, depth int, p treeParams) *node {
	var sumG, sumH float64
	for _, i := range idx {
		sumG += w[i] * grad[i]
		sumH += w[i] * hess[i]
	}
	leaf := &node{value: sumG / (sumH + p.lambda)}

	if depth >= p.maxDepth || len(idx) < 2*p.minLeaf {
		return leaf
	}

	feature, threshold, ok := bestSplit(x, grad, hess, w, idx, sumG, sumH, p)
	if !ok {
		return leaf
	}

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if float64(x[i][feature]) < threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}

	return &node{
		feature:   feature,
		threshold: threshold,
		left:      buildNode(x, grad, hess, w, leftIdx, depth+1, p),
		right:     buildNode(x, grad, hess, w, rightIdx, depth+1, p),
	}
}

type splitSample struct {
	value float64
	g     float64
	h     float64
}

// bestSplit scans every feature and every boundary between distinct sorted
// values. Gain is the second-order objective reduction; strict improvement
// keeps the first (lowest feature, lowest threshold) candidate on ties so
// fits are reproducible.
func bestSplit(
	x [][]float32, grad, hess, w []float64, idx []int,
	sumG, sumH float64, p treeParams,
) (int, float64, bool) {
	if len(x) == 0 {
		return 0, 0, false
	}
	dims := len(x[idx[0]])
	parentScore := sumG * sumG / (sumH + p.lambda)

	bestGain := 1e-12
	bestFeature := -1
	bestThreshold := 0.0

	samples := make([]splitSample, len(idx))
	for f := 0; f < dims; f++ {
		for j, i := range idx {
			samples[j] = splitSample{
				value: float64(x[i][f]),
				g:     w[i] * grad[i],
				h:     w[i] * hess[i],
			}
		}
		sort.Slice(samples, func(a, b int) bool { return samples[a].value < samples[b].value })

		var leftG, leftH float64
		for j := 0; j < len(samples)-1; j++ {
			leftG += samples[j].g
			leftH += samples[j].h

			if samples[j].value == samples[j+1].value {
				continue
			}
			if j+1 < p.minLeaf || len(samples)-j-1 < p.minLeaf {
				continue
			}

			rightG := sumG - leftG
			rightH := sumH - leftH
			gain := leftG*leftG/(leftH+p.lambda) +
				rightG*rightG/(rightH+p.lambda) - parentScore

			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (samples[j].value + samples[j+1].value) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}
