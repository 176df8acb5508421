package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPriority = []string{"ebird", "inat"}

// makeObs builds an observation with a real generated ID so duplicate
// collapsing behaves as in production.
func makeObs(source, species string, lat, lon float64, day int) Observation {
	date := time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
	return Observation{
		ID:             generateID(species, lat, lon, date),
		Source:         source,
		ScientificName: species,
		Lat:            lat,
		Lon:            lon,
		ObservedOn:     date,
	}
}

// flock returns n distinct observations of one species.
func flock(source, species string, n int) []Observation {
	out := make([]Observation, n)
	for i := range out {
		out[i] = makeObs(source, species, -54.5-float64(i)*0.01, -67.5, 1+i%27)
	}
	return out
}

func TestMerge_CollapsesDuplicatesBySourcePriority(t *testing.T) {
	a := makeObs(SourceINat, "Chloephaga hybrida", -54.8019, -68.3030, 4)
	b := makeObs(SourceEBird, "Chloephaga hybrida", -54.8019, -68.3030, 4)
	require.Equal(t, a.ID, b.ID)

	input := append(flock(SourceEBird, "Chloephaga hybrida", 6), a, b)
	merged, stats := Merge(input, testPriority, 0)

	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 7, stats.Output)
	for _, o := range merged {
		if o.ID == a.ID {
			assert.Equal(t, SourceEBird, o.Source, "ebird copy wins under default priority")
		}
	}
}

func TestMerge_DropsErroneousNames(t *testing.T) {
	input := append(flock(SourceEBird, "Campephilus magellanicus", 3),
		makeObs(SourceEBird, "Larus sp.", -54.1, -67.1, 2),
		makeObs(SourceINat, "Tringa melanoleuca/flavipes", -54.2, -67.2, 3),
	)
	merged, stats := Merge(input, testPriority, 0)

	assert.Equal(t, 2, stats.Erroneous)
	for _, o := range merged {
		assert.False(t, ErroneousName(o.ScientificName))
	}
}

func TestMerge_RemovesRareSpecies(t *testing.T) {
	input := append(flock(SourceEBird, "Campephilus magellanicus", 6),
		flock(SourceINat, "Phrygilus gayi", 5)...)

	merged, stats := Merge(input, testPriority, 5)

	assert.Equal(t, 5, stats.Rare, "species at the threshold is rare")
	assert.Equal(t, 6, stats.Output)
	for _, o := range merged {
		assert.Equal(t, "Campephilus magellanicus", o.ScientificName)
	}
}

func TestMerge_RareCountedAfterDeduplication(t *testing.T) {
	// Six raw records of one sighting collapse to a single observation,
	// which is then rare at threshold 5.
	dup := makeObs(SourceEBird, "Phrygilus gayi", -54.3, -67.3, 9)
	input := []Observation{dup, dup, dup, dup, dup, dup}

	merged, stats := Merge(input, testPriority, 5)
	assert.Empty(t, merged)
	assert.Equal(t, 5, stats.Duplicates)
	assert.Equal(t, 1, stats.Rare)
}

func TestMerge_DeterministicOrder(t *testing.T) {
	input := append(flock(SourceEBird, "Campephilus magellanicus", 10),
		flock(SourceINat, "Chloephaga hybrida", 10)...)

	first, _ := Merge(input, testPriority, 0)
	// Feed the same records in reverse.
	reversed := make([]Observation, len(input))
	for i, o := range input {
		reversed[len(input)-1-i] = o
	}
	second, _ := Merge(reversed, testPriority, 0)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID, fmt.Sprintf("position %d", i))
	}
}

func TestRareSpecies(t *testing.T) {
	obs := append(flock(SourceEBird, "A a", 2), flock(SourceEBird, "B b", 3)...)
	rare := RareSpecies(obs, 2)
	assert.True(t, rare["A a"])
	assert.False(t, rare["B b"])
}
