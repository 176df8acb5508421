package analysis

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAssignments() []CellObservation {
	return []CellObservation{
		{CellID: 7, Species: "Campephilus magellanicus"},
		{CellID: 7, Species: "Campephilus magellanicus"},
		{CellID: 7, Species: "Chloephaga hybrida"},
		{CellID: 3, Species: "Chloephaga hybrida"},
		{CellID: 3, Species: "Phrygilus gayi"},
		{CellID: 12, Species: "Phrygilus gayi"},
	}
}

func TestBuildMatrix(t *testing.T) {
	m := BuildMatrix(sampleAssignments())

	assert.Equal(t, []int{3, 7, 12}, m.CellIDs, "cells sorted ascending")
	assert.Equal(t, []string{"Campephilus magellanicus", "Chloephaga hybrida", "Phrygilus gayi"}, m.Species)

	want := [][]float64{
		{0, 1, 1},
		{2, 1, 0},
		{0, 0, 1},
	}
	if diff := cmp.Diff(want, m.Counts); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
}

func TestMatrix_Presence(t *testing.T) {
	m := BuildMatrix(sampleAssignments())
	p := m.Presence()

	want := [][]float64{
		{0, 1, 1},
		{1, 1, 0},
		{0, 0, 1},
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("presence mismatch (-want +got):\n%s", diff)
	}
}

func TestScoreCells(t *testing.T) {
	m := BuildMatrix(sampleAssignments())
	labels := []int{0, 0, 1} // cells 3 and 7 together, cell 12 alone

	scores := ScoreCells(m, labels, nil, 1, 1)
	require.Len(t, scores, 3)
	byID := make(map[int]CellScore)
	for _, s := range scores {
		byID[s.CellID] = s
	}

	t.Run("species richness equals distinct taxa", func(t *testing.T) {
		assert.Equal(t, 2, byID[3].SpeciesRichness)
		assert.Equal(t, 2, byID[7].SpeciesRichness)
		assert.Equal(t, 1, byID[12].SpeciesRichness)
	})

	t.Run("weighted richness normalizes by per-species max", func(t *testing.T) {
		// Cell 7: 2/2 woodpecker + 1/1 goose = 2.0; cell 3: 1/1 + 1/1 = 2.0.
		assert.InDelta(t, 2.0, byID[7].WeightedRichness, 1e-9)
		assert.InDelta(t, 2.0, byID[3].WeightedRichness, 1e-9)
		assert.InDelta(t, 1.0, byID[12].WeightedRichness, 1e-9)
	})

	t.Run("score normalized within cluster", func(t *testing.T) {
		assert.InDelta(t, 1.0, byID[3].RichnessScore, 1e-9)
		assert.InDelta(t, 1.0, byID[7].RichnessScore, 1e-9)
		assert.InDelta(t, 1.0, byID[12].RichnessScore, 1e-9, "sole cell of its cluster is its own max")
	})

	t.Run("tie at top breaks to lower cell id", func(t *testing.T) {
		assert.True(t, byID[3].Recommended)
		assert.False(t, byID[7].Recommended, "topN=1, tie goes to cell 3")
		assert.True(t, byID[12].Recommended)
	})
}

func TestScoreCells_PriorityWeight(t *testing.T) {
	m := BuildMatrix(sampleAssignments())
	labels := []int{0, 0, 0}

	plain := ScoreCells(m, labels, nil, 1, 0)
	weighted := ScoreCells(m, labels, []string{"Campephilus magellanicus"}, 5, 0)

	var plainBy, weightedBy map[int]CellScore
	plainBy, weightedBy = map[int]CellScore{}, map[int]CellScore{}
	for _, s := range plain {
		plainBy[s.CellID] = s
	}
	for _, s := range weighted {
		weightedBy[s.CellID] = s
	}

	assert.Greater(t, weightedBy[7].WeightedRichness, plainBy[7].WeightedRichness,
		"cell holding the priority species gains weight")
	assert.Equal(t, plainBy[12].WeightedRichness, weightedBy[12].WeightedRichness,
		"cell without the priority species is unchanged")
	// With the woodpecker weighted 5x, cell 7 (2/2 * 5 + 1) beats cell 3 (1 + 1).
	assert.InDelta(t, 1.0, weightedBy[7].RichnessScore, 1e-9)
	assert.Less(t, weightedBy[3].RichnessScore, 1.0)
}

func TestScoreCells_FilteringNeverIncreasesRichness(t *testing.T) {
	// Dropping observations (e.g. captive records) can only shrink or keep
	// each cell's species count.
	full := sampleAssignments()
	filtered := full[:3] // keep only cell 7's observations

	mFull := BuildMatrix(full)
	mFiltered := BuildMatrix(filtered)

	fullRichness := map[int]int{}
	for i, id := range mFull.CellIDs {
		fullRichness[id] = richness(mFull.Counts[i])
	}
	for i, id := range mFiltered.CellIDs {
		assert.LessOrEqual(t, richness(mFiltered.Counts[i]), fullRichness[id])
	}
}

func TestOpacityCategory(t *testing.T) {
	tests := []struct {
		score float64
		want  float64
	}{
		{0.0, 0.2},
		{0.009, 0.2},
		{0.01, 0.4},
		{0.099, 0.4},
		{0.1, 0.8},
		{0.65, 0.8},
		{0.66, 0.98},
		{1.0, 0.98},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OpacityCategory(tt.score), "score %v", tt.score)
	}
}
