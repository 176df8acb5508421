package cluster

import (
	"fmt"
	"math"
)

// Silhouette computes the mean silhouette coefficient of a labeling:
// (b - a) / max(a, b) per point, where a is the mean distance to the point's
// own cluster and b the mean distance to the nearest other cluster.
// Returns 0 when only one cluster is populated, matching the convention of
// treating a degenerate labeling as uninformative.
func Silhouette(data [][]float64, labels []int) float64 {
	k := 0
	for _, l := range labels {
		if l+1 > k {
			k = l + 1
		}
	}
	sizes := make([]int, k)
	for _, l := range labels {
		sizes[l]++
	}
	populated := 0
	for _, n := range sizes {
		if n > 0 {
			populated++
		}
	}
	if populated < 2 {
		return 0
	}

	var total float64
	counted := 0
	for i, row := range data {
		meanDist := make([]float64, k)
		for j, other := range data {
			if i == j {
				continue
			}
			meanDist[labels[j]] += math.Sqrt(sqDist(row, other))
		}

		own := labels[i]
		if sizes[own] < 2 {
			// Singleton clusters contribute silhouette 0 by convention.
			counted++
			continue
		}
		a := meanDist[own] / float64(sizes[own]-1)

		b := math.Inf(1)
		for c := 0; c < k; c++ {
			if c == own || sizes[c] == 0 {
				continue
			}
			if m := meanDist[c] / float64(sizes[c]); m < b {
				b = m
			}
		}

		if denom := math.Max(a, b); denom > 0 {
			total += (b - a) / denom
		}
		counted++
	}
	if counted == 0 {
		return 0
	}
	return total / float64(counted)
}

// KScore pairs a candidate cluster count with its silhouette score.
type KScore struct {
	K          int
	Silhouette float64
}

// SelectK sweeps cluster counts from kMin to kMax and returns the count with
// the best silhouette score, along with the per-k scores. Each candidate run
// uses the same seed, so the sweep is reproducible.
func SelectK(data [][]float64, kMin, kMax int, seed int64, maxIter int) (int, []KScore, error) {
	if kMin < 2 {
		kMin = 2
	}
	if kMax < kMin {
		return 0, nil, fmt.Errorf("invalid k range [%d, %d]", kMin, kMax)
	}
	if len(data) <= kMin {
		return 0, nil, fmt.Errorf("not enough rows (%d) to sweep k from %d", len(data), kMin)
	}
	if kMax >= len(data) {
		kMax = len(data) - 1
	}

	bestK, bestScore := 0, math.Inf(-1)
	scores := make([]KScore, 0, kMax-kMin+1)
	for k := kMin; k <= kMax; k++ {
		res, err := KMeans(data, k, seed, maxIter)
		if err != nil {
			return 0, nil, fmt.Errorf("k=%d: %w", k, err)
		}
		s := Silhouette(data, res.Labels)
		scores = append(scores, KScore{K: k, Silhouette: s})
		if s > bestScore {
			bestK, bestScore = k, s
		}
	}
	return bestK, scores, nil
}
