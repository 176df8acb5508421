// Package cluster groups grid cells by species composition. It implements
// seeded k-means over presence vectors; no clustering library is pulled in
// because the matrices involved are a few thousand rows at most.
package cluster

import (
	"fmt"
	"math"
	"math/rand"
)

// Result holds the outcome of one k-means run.
type Result struct {
	// Labels[i] is the cluster of data[i], in [0, K).
	Labels []int
	// Centroids are the final cluster means.
	Centroids [][]float64
	// Inertia is the summed squared distance of points to their centroid.
	Inertia float64
	// Iterations actually used before convergence.
	Iterations int
	K          int
}

// KMeans clusters data into k groups using Lloyd's algorithm with
// k-means++ seeding. The same data, k, and seed always produce the same
// labels: the RNG is private to the run, ties in assignment go to the
// lowest cluster index, and iteration order is fixed.
func KMeans(data [][]float64, k int, seed int64, maxIter int) (Result, error) {
	if k <= 0 {
		return Result{}, fmt.Errorf("cluster count must be positive, got %d", k)
	}
	if len(data) < k {
		return Result{}, fmt.Errorf("cannot form %d clusters from %d rows", k, len(data))
	}
	if maxIter <= 0 {
		maxIter = 100
	}
	dim := len(data[0])
	for i, row := range data {
		if len(row) != dim {
			return Result{}, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), dim)
		}
	}

	rng := rand.New(rand.NewSource(seed))
	centroids := seedCentroids(data, k, rng)
	labels := make([]int, len(data))

	res := Result{K: k}
	for iter := 1; iter <= maxIter; iter++ {
		changed := assign(data, centroids, labels)
		res.Iterations = iter
		recompute(data, labels, centroids)
		if !changed && iter > 1 {
			break
		}
	}

	res.Labels = labels
	res.Centroids = centroids
	for i, row := range data {
		res.Inertia += sqDist(row, centroids[labels[i]])
	}
	return res, nil
}

// seedCentroids picks initial centers with k-means++: the first uniformly,
// each next with probability proportional to squared distance from the
// nearest chosen center.
func seedCentroids(data [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := data[rng.Intn(len(data))]
	centroids = append(centroids, append([]float64(nil), first...))

	d2 := make([]float64, len(data))
	for len(centroids) < k {
		var sum float64
		for i, row := range data {
			best := math.Inf(1)
			for _, c := range centroids {
				if d := sqDist(row, c); d < best {
					best = d
				}
			}
			d2[i] = best
			sum += best
		}

		var idx int
		if sum == 0 {
			// All remaining points coincide with a center; any pick works.
			idx = rng.Intn(len(data))
		} else {
			target := rng.Float64() * sum
			for i, d := range d2 {
				target -= d
				if target <= 0 {
					idx = i
					break
				}
			}
		}
		centroids = append(centroids, append([]float64(nil), data[idx]...))
	}
	return centroids
}

// assign labels every point with its nearest centroid, reporting whether any
// label changed.
func assign(data [][]float64, centroids [][]float64, labels []int) bool {
	changed := false
	for i, row := range data {
		best, bestDist := 0, math.Inf(1)
		for j, c := range centroids {
			if d := sqDist(row, c); d < bestDist {
				best, bestDist = j, d
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// recompute replaces each centroid with the mean of its members. A cluster
// that lost all members keeps its previous centroid rather than collapsing
// to the origin.
func recompute(data [][]float64, labels []int, centroids [][]float64) {
	dim := len(centroids[0])
	sums := make([][]float64, len(centroids))
	counts := make([]int, len(centroids))
	for j := range sums {
		sums[j] = make([]float64, dim)
	}
	for i, row := range data {
		j := labels[i]
		counts[j]++
		for d, v := range row {
			sums[j][d] += v
		}
	}
	for j := range centroids {
		if counts[j] == 0 {
			continue
		}
		for d := range centroids[j] {
			centroids[j][d] = sums[j][d] / float64(counts[j])
		}
	}
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}
