// Package analysis derives the per-cell species matrices and richness
// scores that feed clustering and the final site recommendations.
package analysis

import (
	"sort"
)

// CellObservation is one assigned observation reduced to the fields the
// analysis needs.
type CellObservation struct {
	CellID  int
	Species string
}

// Matrix is the cell x species count matrix with deterministic row and
// column order (ascending cell ID, lexicographic species name).
type Matrix struct {
	CellIDs []int
	Species []string
	Counts  [][]float64
}

// BuildMatrix pivots assigned observations into a cell x species matrix.
func BuildMatrix(assignments []CellObservation) *Matrix {
	counts := make(map[int]map[string]int)
	speciesSet := make(map[string]bool)
	for _, a := range assignments {
		if counts[a.CellID] == nil {
			counts[a.CellID] = make(map[string]int)
		}
		counts[a.CellID][a.Species]++
		speciesSet[a.Species] = true
	}

	m := &Matrix{
		CellIDs: make([]int, 0, len(counts)),
		Species: make([]string, 0, len(speciesSet)),
	}
	for id := range counts {
		m.CellIDs = append(m.CellIDs, id)
	}
	sort.Ints(m.CellIDs)
	for sp := range speciesSet {
		m.Species = append(m.Species, sp)
	}
	sort.Strings(m.Species)

	col := make(map[string]int, len(m.Species))
	for i, sp := range m.Species {
		col[sp] = i
	}
	m.Counts = make([][]float64, len(m.CellIDs))
	for i, id := range m.CellIDs {
		row := make([]float64, len(m.Species))
		for sp, n := range counts[id] {
			row[col[sp]] = float64(n)
		}
		m.Counts[i] = row
	}
	return m
}

// Presence returns the 0/1 version of the count matrix, the feature space
// cells are clustered in: composition, not abundance.
func (m *Matrix) Presence() [][]float64 {
	out := make([][]float64, len(m.Counts))
	for i, row := range m.Counts {
		p := make([]float64, len(row))
		for j, v := range row {
			if v > 0 {
				p[j] = 1
			}
		}
		out[i] = p
	}
	return out
}

// richness counts distinct species in a row.
func richness(row []float64) int {
	n := 0
	for _, v := range row {
		if v > 0 {
			n++
		}
	}
	return n
}

// CellScore is the scored outcome for one populated cell.
type CellScore struct {
	CellID  int
	Cluster int
	// SpeciesRichness is the count of distinct taxa observed in the cell.
	SpeciesRichness int
	// WeightedRichness sums per-species counts normalized by that species'
	// maximum over all cells, weighted by priority.
	WeightedRichness float64
	// RichnessScore is WeightedRichness normalized to [0, 1] within the
	// cell's cluster.
	RichnessScore float64
	// Opacity is the map rendering bucket derived from RichnessScore.
	Opacity float64
	// Recommended marks the cell as a top site within its cluster.
	Recommended bool
}

// ScoreCells computes weighted richness per cell, normalizes it within each
// cluster, and marks the topN cells of every cluster as recommended sites.
// labels must align with m.CellIDs. priorityWeight multiplies the
// contribution of the listed species; a weight of 1 disables weighting.
func ScoreCells(m *Matrix, labels []int, prioritySpecies []string, priorityWeight float64, topN int) []CellScore {
	if priorityWeight <= 0 {
		priorityWeight = 1
	}
	weight := make([]float64, len(m.Species))
	priority := make(map[string]bool, len(prioritySpecies))
	for _, sp := range prioritySpecies {
		priority[sp] = true
	}
	for j, sp := range m.Species {
		if priority[sp] {
			weight[j] = priorityWeight
		} else {
			weight[j] = 1
		}
	}

	// Normalize counts by each species' maximum so abundant species cannot
	// drown out the rest.
	maxPerSpecies := make([]float64, len(m.Species))
	for _, row := range m.Counts {
		for j, v := range row {
			if v > maxPerSpecies[j] {
				maxPerSpecies[j] = v
			}
		}
	}

	scores := make([]CellScore, len(m.CellIDs))
	clusterMax := make(map[int]float64)
	for i, row := range m.Counts {
		var weighted float64
		for j, v := range row {
			if maxPerSpecies[j] > 0 {
				weighted += (v / maxPerSpecies[j]) * weight[j]
			}
		}
		scores[i] = CellScore{
			CellID:           m.CellIDs[i],
			Cluster:          labels[i],
			SpeciesRichness:  richness(row),
			WeightedRichness: weighted,
		}
		if weighted > clusterMax[labels[i]] {
			clusterMax[labels[i]] = weighted
		}
	}

	for i := range scores {
		if max := clusterMax[scores[i].Cluster]; max > 0 {
			scores[i].RichnessScore = scores[i].WeightedRichness / max
		}
		scores[i].Opacity = OpacityCategory(scores[i].RichnessScore)
	}

	markRecommended(scores, topN)
	return scores
}

// markRecommended flags the topN cells per cluster by richness score,
// breaking ties by lower cell ID so reruns agree.
func markRecommended(scores []CellScore, topN int) {
	if topN <= 0 {
		return
	}
	byCluster := make(map[int][]int) // cluster -> indices into scores
	for i, s := range scores {
		byCluster[s.Cluster] = append(byCluster[s.Cluster], i)
	}
	for _, idxs := range byCluster {
		sort.Slice(idxs, func(a, b int) bool {
			sa, sb := scores[idxs[a]], scores[idxs[b]]
			if sa.RichnessScore != sb.RichnessScore {
				return sa.RichnessScore > sb.RichnessScore
			}
			return sa.CellID < sb.CellID
		})
		for rank, i := range idxs {
			if rank >= topN {
				break
			}
			scores[i].Recommended = true
		}
	}
}

// OpacityCategory buckets a 0-1 richness score into the four fill opacities
// used by the map: cells with nearly no signal stay faint, rich cells pop.
func OpacityCategory(score float64) float64 {
	switch {
	case score < 0.01:
		return 0.2
	case score < 0.1:
		return 0.4
	case score < 0.66:
		return 0.8
	default:
		return 0.98
	}
}
