package domain

import (
	"sort"
	"strings"
)

// MergeStats reports what the merge step removed.
type MergeStats struct {
	Input      int
	Duplicates int
	Erroneous  int
	Rare       int
	Output     int
}

// Merge unions cleaned observations from all sources into the final analysis
// set. Duplicate IDs (the same sighting exported by both networks, or twice
// by one) collapse to a single record, resolved by source priority; names
// flagged by ErroneousName are dropped; species with rareThreshold or fewer
// total occurrences are dropped last, so duplicate removal cannot resurrect
// a rare species. Output order is deterministic (by ID).
func Merge(observations []Observation, sourcePriority []string, rareThreshold int) ([]Observation, MergeStats) {
	stats := MergeStats{Input: len(observations)}

	rank := make(map[string]int, len(sourcePriority))
	for i, s := range sourcePriority {
		rank[strings.TrimSpace(strings.ToLower(s))] = i
	}

	byID := make(map[string]Observation, len(observations))
	for _, o := range observations {
		existing, ok := byID[o.ID]
		if !ok {
			byID[o.ID] = o
			continue
		}
		stats.Duplicates++
		if sourceRank(rank, o.Source) < sourceRank(rank, existing.Source) {
			byID[o.ID] = o
		}
	}

	deduped := make([]Observation, 0, len(byID))
	for _, o := range byID {
		if ErroneousName(o.ScientificName) {
			stats.Erroneous++
			continue
		}
		deduped = append(deduped, o)
	}

	rare := RareSpecies(deduped, rareThreshold)
	merged := deduped[:0]
	for _, o := range deduped {
		if rare[o.ScientificName] {
			stats.Rare++
			continue
		}
		merged = append(merged, o)
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].ID < merged[j].ID })
	stats.Output = len(merged)
	return merged, stats
}

// sourceRank returns a source's position in the priority list; unknown
// sources rank last.
func sourceRank(rank map[string]int, source string) int {
	if r, ok := rank[source]; ok {
		return r
	}
	return len(rank)
}
