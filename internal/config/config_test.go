package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "./data/external", cfg.InputDir)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, filepath.Join("./data/external", "boundary.geojson"), cfg.BoundaryFile)
	assert.Equal(t, "./data/map.html", cfg.OutputHTML)
	assert.Equal(t, 10.0, cfg.CellKM)
	assert.Equal(t, 2500.0, cfg.MaxAccuracyM)
	assert.Equal(t, 5, cfg.RareThreshold)
	assert.Equal(t, []string{"ebird", "inat"}, cfg.SourcePriority)
	assert.Equal(t, 3, cfg.ClusterCount)
	assert.False(t, cfg.ClusterKAuto)
	assert.Equal(t, int64(42), cfg.ClusterSeed)
	assert.Equal(t, 100, cfg.ClusterMaxIter)
	assert.Empty(t, cfg.PrioritySpecies)
	assert.Equal(t, 1.0, cfg.PriorityWeight)
	assert.Equal(t, 5, cfg.TopCells)
	assert.Equal(t, "", cfg.HTTPAddr, "http server off by default")
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_DerivedPaths(t *testing.T) {
	t.Setenv("INPUT_DIR", "/srv/exports")
	t.Setenv("DATA_DIR", "/srv/out")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/exports/inat_obs.csv", cfg.INatFile())
	assert.Equal(t, "/srv/exports/ebird_obs.txt", cfg.EBirdFile())
	assert.Equal(t, "/srv/out/pipeline.db", cfg.DBPath())
	assert.Equal(t, "/srv/out/grid.geojson", cfg.GridGeoJSON())
	assert.Equal(t, "/srv/exports/boundary.geojson", cfg.BoundaryFile,
		"boundary default follows INPUT_DIR")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CELL_KM", "2.5")
	t.Setenv("SOURCE_PRIORITY", "inat, ebird")
	t.Setenv("PRIORITY_SPECIES", "Campephilus magellanicus, Chloephaga hybrida")
	t.Setenv("PRIORITY_WEIGHT", "4")
	t.Setenv("CLUSTER_K_AUTO", "true")
	t.Setenv("HTTP_ADDR", ":9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2.5, cfg.CellKM)
	assert.Equal(t, []string{"inat", "ebird"}, cfg.SourcePriority)
	assert.Equal(t, []string{"Campephilus magellanicus", "Chloephaga hybrida"}, cfg.PrioritySpecies)
	assert.Equal(t, 4.0, cfg.PriorityWeight)
	assert.True(t, cfg.ClusterKAuto)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"malformed cell size", "CELL_KM", "ten"},
		{"negative cell size", "CELL_KM", "-5"},
		{"zero accuracy", "MAX_ACCURACY_M", "0"},
		{"negative rare threshold", "RARE_THRESHOLD", "-1"},
		{"zero clusters", "CLUSTER_COUNT", "0"},
		{"malformed seed", "CLUSTER_SEED", "abc"},
		{"zero iterations", "CLUSTER_MAX_ITER", "0"},
		{"negative weight", "PRIORITY_WEIGHT", "-2"},
		{"empty source priority", "SOURCE_PRIORITY", " , "},
		{"malformed shutdown timeout", "SHUTDOWN_TIMEOUT", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_KAutoRequiresUsableKMax(t *testing.T) {
	t.Setenv("CLUSTER_K_AUTO", "true")
	t.Setenv("CLUSTER_K_MAX", "1")
	_, err := Load()
	assert.Error(t, err)
}
