// Package config populates pipeline settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all pipeline settings, populated from environment variables.
type Config struct {
	// Paths.
	InputDir     string
	DataDir      string
	BoundaryFile string
	OutputHTML   string

	// Grid.
	CellKM float64

	// Extraction and merge.
	MaxAccuracyM   float64
	RareThreshold  int
	SourcePriority []string

	// Clustering.
	ClusterCount   int
	ClusterKAuto   bool
	ClusterKMax    int
	ClusterSeed    int64
	ClusterMaxIter int

	// Scoring.
	PrioritySpecies []string
	PriorityWeight  float64
	TopCells        int

	// Service.
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// INatFile is the iNaturalist CSV export inside InputDir.
func (c *Config) INatFile() string { return filepath.Join(c.InputDir, "inat_obs.csv") }

// EBirdFile is the eBird Basic Dataset TSV export inside InputDir.
func (c *Config) EBirdFile() string { return filepath.Join(c.InputDir, "ebird_obs.txt") }

// DBPath is the SQLite database holding each stage's output.
func (c *Config) DBPath() string { return filepath.Join(c.DataDir, "pipeline.db") }

// GridGeoJSON is the exported grid file inside DataDir.
func (c *Config) GridGeoJSON() string { return filepath.Join(c.DataDir, "grid.geojson") }

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	inputDir := envOrDefault("INPUT_DIR", "./data/external")

	cellKM, err := parseFloat("CELL_KM", 10)
	if err != nil {
		return nil, err
	}
	maxAccuracy, err := parseFloat("MAX_ACCURACY_M", 2500)
	if err != nil {
		return nil, err
	}
	rareThreshold, err := parseInt("RARE_THRESHOLD", 5)
	if err != nil {
		return nil, err
	}
	clusterCount, err := parseInt("CLUSTER_COUNT", 3)
	if err != nil {
		return nil, err
	}
	clusterKMax, err := parseInt("CLUSTER_K_MAX", 8)
	if err != nil {
		return nil, err
	}
	clusterSeed, err := parseInt("CLUSTER_SEED", 42)
	if err != nil {
		return nil, err
	}
	clusterMaxIter, err := parseInt("CLUSTER_MAX_ITER", 100)
	if err != nil {
		return nil, err
	}
	priorityWeight, err := parseFloat("PRIORITY_WEIGHT", 1)
	if err != nil {
		return nil, err
	}
	topCells, err := parseInt("TOP_CELLS", 5)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		InputDir:     inputDir,
		DataDir:      envOrDefault("DATA_DIR", "./data"),
		BoundaryFile: envOrDefault("BOUNDARY_FILE", filepath.Join(inputDir, "boundary.geojson")),
		OutputHTML:   envOrDefault("OUTPUT_HTML", "./data/map.html"),

		CellKM: cellKM,

		MaxAccuracyM:   maxAccuracy,
		RareThreshold:  rareThreshold,
		SourcePriority: splitList(envOrDefault("SOURCE_PRIORITY", "ebird,inat")),

		ClusterCount:   clusterCount,
		ClusterKAuto:   os.Getenv("CLUSTER_K_AUTO") == "true",
		ClusterKMax:    clusterKMax,
		ClusterSeed:    int64(clusterSeed),
		ClusterMaxIter: clusterMaxIter,

		PrioritySpecies: splitList(os.Getenv("PRIORITY_SPECIES")),
		PriorityWeight:  priorityWeight,
		TopCells:        topCells,

		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.CellKM <= 0 {
		return nil, errors.New("CELL_KM must be positive")
	}
	if cfg.MaxAccuracyM <= 0 {
		return nil, errors.New("MAX_ACCURACY_M must be positive")
	}
	if cfg.RareThreshold < 0 {
		return nil, errors.New("RARE_THRESHOLD must not be negative")
	}
	if cfg.ClusterCount < 1 {
		return nil, errors.New("CLUSTER_COUNT must be at least 1")
	}
	if cfg.ClusterKAuto && cfg.ClusterKMax < 2 {
		return nil, errors.New("CLUSTER_K_MAX must be at least 2 when CLUSTER_K_AUTO is true")
	}
	if cfg.ClusterMaxIter < 1 {
		return nil, errors.New("CLUSTER_MAX_ITER must be at least 1")
	}
	if cfg.PriorityWeight < 0 {
		return nil, errors.New("PRIORITY_WEIGHT must not be negative")
	}
	if cfg.TopCells < 0 {
		return nil, errors.New("TOP_CELLS must not be negative")
	}
	if len(cfg.SourcePriority) == 0 {
		return nil, errors.New("SOURCE_PRIORITY is required")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return f, nil
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

// splitList splits a comma-separated list, trimming whitespace and dropping
// empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
