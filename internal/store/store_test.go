package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ornigrid/ornigrid/internal/analysis"
	"github.com/ornigrid/ornigrid/internal/domain"
	"github.com/ornigrid/ornigrid/internal/spatial"
	"github.com/ornigrid/ornigrid/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testObservation(id, source, species string) domain.Observation {
	return domain.Observation{
		ID:             id,
		Source:         source,
		SourceID:       "src-" + id,
		Observer:       "someone",
		ObservedOn:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Lat:            -54.5,
		Lon:            -68.0,
		AccuracyM:      40,
		CommonName:     "Some Bird",
		ScientificName: species,
		Genus:          "Genus",
		Family:         "Family",
		Order:          "Order",
		IngestedAt:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestObservations_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	inat := []domain.Observation{testObservation("obs-a", "inat", "Chloephaga hybrida")}
	ebird := []domain.Observation{
		testObservation("obs-b", "ebird", "Campephilus magellanicus"),
		testObservation("obs-c", "ebird", "Phrygilus gayi"),
	}
	require.NoError(t, s.ReplaceObservations(ctx, "inat", inat))
	require.NoError(t, s.ReplaceObservations(ctx, "ebird", ebird))

	got, err := s.LoadObservations(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)

	want := append(append([]domain.Observation{}, ebird...), inat...) // ordered by source
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("observations mismatch (-want +got):\n%s", diff)
	}
}

func TestReplaceObservations_OverwritesOnlyItsSource(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceObservations(ctx, "inat",
		[]domain.Observation{testObservation("obs-a", "inat", "Chloephaga hybrida")}))
	require.NoError(t, s.ReplaceObservations(ctx, "ebird",
		[]domain.Observation{testObservation("obs-b", "ebird", "Phrygilus gayi")}))

	// Rerun the inat stage with a different result.
	require.NoError(t, s.ReplaceObservations(ctx, "inat",
		[]domain.Observation{testObservation("obs-z", "inat", "Campephilus magellanicus")}))

	got, err := s.LoadObservations(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "obs-b", got[0].ID, "ebird rows untouched")
	assert.Equal(t, "obs-z", got[1].ID)
}

func TestSameIDAcrossSources(t *testing.T) {
	// The same sighting exported by both networks shares an ID; the
	// observations table keys on (source, id) so both copies survive until
	// merge resolves them.
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceObservations(ctx, "inat",
		[]domain.Observation{testObservation("obs-dup", "inat", "Chloephaga hybrida")}))
	require.NoError(t, s.ReplaceObservations(ctx, "ebird",
		[]domain.Observation{testObservation("obs-dup", "ebird", "Chloephaga hybrida")}))

	got, err := s.LoadObservations(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestMerged_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	merged := []domain.Observation{
		testObservation("obs-a", "ebird", "Campephilus magellanicus"),
		testObservation("obs-b", "inat", "Chloephaga hybrida"),
	}
	require.NoError(t, s.ReplaceMerged(ctx, merged))

	got, err := s.LoadMerged(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(merged, got); diff != "" {
		t.Errorf("merged mismatch (-want +got):\n%s", diff)
	}
}

func TestCellsAssignmentsClustersScores_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cells := []spatial.Cell{
		{ID: 3, West: -68.2, South: -54.6, East: -68.1, North: -54.5},
		{ID: 7, West: -68.1, South: -54.6, East: -68.0, North: -54.5},
	}
	require.NoError(t, s.ReplaceCells(ctx, cells))
	gotCells, err := s.LoadCells(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(cells, gotCells); diff != "" {
		t.Errorf("cells mismatch (-want +got):\n%s", diff)
	}

	assignments := []store.Assignment{
		{CellID: 3, ObservationID: "obs-a", ScientificName: "Chloephaga hybrida"},
		{CellID: 7, ObservationID: "obs-b", ScientificName: "Phrygilus gayi"},
	}
	require.NoError(t, s.ReplaceAssignments(ctx, assignments))
	gotAssignments, err := s.LoadAssignments(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(assignments, gotAssignments); diff != "" {
		t.Errorf("assignments mismatch (-want +got):\n%s", diff)
	}

	clusters := map[int]int{3: 0, 7: 1}
	require.NoError(t, s.ReplaceClusters(ctx, clusters))
	gotClusters, err := s.LoadClusters(ctx)
	require.NoError(t, err)
	assert.Equal(t, clusters, gotClusters)

	scores := []analysis.CellScore{
		{CellID: 3, Cluster: 0, SpeciesRichness: 1, WeightedRichness: 1, RichnessScore: 1, Opacity: 0.98, Recommended: true},
		{CellID: 7, Cluster: 1, SpeciesRichness: 1, WeightedRichness: 0.5, RichnessScore: 0.5, Opacity: 0.8},
	}
	require.NoError(t, s.ReplaceScores(ctx, scores))
	gotScores, err := s.LoadScores(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(scores, gotScores); diff != "" {
		t.Errorf("scores mismatch (-want +got):\n%s", diff)
	}
}

func TestReplaceIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cells := []spatial.Cell{{ID: 1, West: -68.2, South: -54.6, East: -68.1, North: -54.5}}
	require.NoError(t, s.ReplaceCells(ctx, cells))
	require.NoError(t, s.ReplaceCells(ctx, cells))

	got, err := s.LoadCells(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestEmptyTablesLoadEmpty(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	obs, err := s.LoadObservations(ctx)
	require.NoError(t, err)
	assert.Empty(t, obs)

	clusters, err := s.LoadClusters(ctx)
	require.NoError(t, err)
	assert.Empty(t, clusters)
}
