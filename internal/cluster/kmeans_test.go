package cluster

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeed = 42

// blobs generates three well-separated groups of presence-like vectors.
func blobs(n int) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(7))
	centers := [][]float64{
		{1, 1, 1, 0, 0, 0, 0, 0, 0},
		{0, 0, 0, 1, 1, 1, 0, 0, 0},
		{0, 0, 0, 0, 0, 0, 1, 1, 1},
	}
	data := make([][]float64, 0, 3*n)
	truth := make([]int, 0, 3*n)
	for g, c := range centers {
		for i := 0; i < n; i++ {
			row := make([]float64, len(c))
			for d, v := range c {
				// Flip a presence bit with 5% probability.
				if rng.Float64() < 0.05 {
					row[d] = 1 - v
				} else {
					row[d] = v
				}
			}
			data = append(data, row)
			truth = append(truth, g)
		}
	}
	return data, truth
}

func TestKMeans_RecoverySeparatedGroups(t *testing.T) {
	data, truth := blobs(30)
	res, err := KMeans(data, 3, testSeed, 100)
	require.NoError(t, err)
	require.Len(t, res.Labels, len(data))

	// Labels are arbitrary; check that each true group maps to one cluster.
	for g := 0; g < 3; g++ {
		counts := make(map[int]int)
		for i, lbl := range res.Labels {
			if truth[i] == g {
				counts[lbl]++
			}
		}
		var majority int
		for _, n := range counts {
			if n > majority {
				majority = n
			}
		}
		assert.GreaterOrEqual(t, majority, 27, "group %d should be mostly intact", g)
	}
}

func TestKMeans_Deterministic(t *testing.T) {
	data, _ := blobs(20)

	first, err := KMeans(data, 3, testSeed, 100)
	require.NoError(t, err)
	second, err := KMeans(data, 3, testSeed, 100)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Labels, second.Labels); diff != "" {
		t.Errorf("labels differ between identical runs (-first +second):\n%s", diff)
	}
	assert.Equal(t, first.Inertia, second.Inertia)
}

func TestKMeans_InputValidation(t *testing.T) {
	data := [][]float64{{1, 0}, {0, 1}}

	_, err := KMeans(data, 0, testSeed, 100)
	require.Error(t, err)

	_, err = KMeans(data, 3, testSeed, 100)
	require.Error(t, err, "more clusters than rows")

	_, err = KMeans([][]float64{{1, 0}, {0, 1, 1}}, 1, testSeed, 100)
	require.Error(t, err, "ragged matrix")
}

func TestKMeans_KEqualsRows(t *testing.T) {
	data := [][]float64{{0, 0}, {5, 5}, {10, 0}}
	res, err := KMeans(data, 3, testSeed, 100)
	require.NoError(t, err)

	seen := make(map[int]bool)
	for _, l := range res.Labels {
		seen[l] = true
	}
	assert.Len(t, seen, 3, "each point gets its own cluster")
	assert.Zero(t, res.Inertia)
}

func TestKMeans_IdenticalPoints(t *testing.T) {
	data := [][]float64{{1, 1}, {1, 1}, {1, 1}, {1, 1}}
	res, err := KMeans(data, 2, testSeed, 100)
	require.NoError(t, err)
	require.Len(t, res.Labels, 4)
	assert.Zero(t, res.Inertia)
}

func TestSilhouette(t *testing.T) {
	t.Run("separated groups score high", func(t *testing.T) {
		data, truth := blobs(15)
		s := Silhouette(data, truth)
		assert.Greater(t, s, 0.5)
	})

	t.Run("single cluster scores zero", func(t *testing.T) {
		data, _ := blobs(10)
		labels := make([]int, len(data))
		assert.Zero(t, Silhouette(data, labels))
	})

	t.Run("random labels score low", func(t *testing.T) {
		data, _ := blobs(15)
		rng := rand.New(rand.NewSource(3))
		labels := make([]int, len(data))
		for i := range labels {
			labels[i] = rng.Intn(3)
		}
		assert.Less(t, Silhouette(data, labels), 0.2)
	})
}

func TestSelectK(t *testing.T) {
	data, _ := blobs(20)

	best, scores, err := SelectK(data, 2, 6, testSeed, 100)
	require.NoError(t, err)
	assert.Equal(t, 3, best, "three planted groups")
	assert.Len(t, scores, 5)

	t.Run("reproducible sweep", func(t *testing.T) {
		again, _, err := SelectK(data, 2, 6, testSeed, 100)
		require.NoError(t, err)
		assert.Equal(t, best, again)
	})

	t.Run("invalid range", func(t *testing.T) {
		_, _, err := SelectK(data, 5, 4, testSeed, 100)
		require.Error(t, err)
	})
}
