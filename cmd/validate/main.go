// Command validate performs end-to-end integrity checks over a completed
// pipeline run: the SQLite stage tables, the boundary file, and the exported
// GeoJSON. It verifies cross-table consistency, cell containment, richness
// arithmetic, and score normalization.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -db data/pipeline.db \
//	  -boundary data/external/boundary.geojson \
//	  -cell-km 10 \
//	  -geojson data/grid.geojson
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/ornigrid/ornigrid/internal/analysis"
	"github.com/ornigrid/ornigrid/internal/domain"
	"github.com/ornigrid/ornigrid/internal/spatial"
	"github.com/ornigrid/ornigrid/internal/store"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dbPath := flag.String("db", "", "path to the pipeline SQLite database")
	boundaryPath := flag.String("boundary", "", "path to the boundary GeoJSON")
	cellKM := flag.Float64("cell-km", 10, "cell edge length used by the run")
	geojsonPath := flag.String("geojson", "", "optional path to the exported grid GeoJSON")
	flag.Parse()

	if *dbPath == "" || *boundaryPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dbPath, *boundaryPath, *cellKM, *geojsonPath); code != 0 {
		os.Exit(code)
	}
}

func run(dbPath, boundaryPath string, cellKM float64, geojsonPath string) int {
	ctx := context.Background()

	fmt.Println("=== Observation Pipeline Integrity Validation ===")
	fmt.Println()

	st, err := store.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open database: %v\n", err)
		return 1
	}
	defer st.Close()

	boundary, err := spatial.LoadBoundary(boundaryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load boundary: %v\n", err)
		return 1
	}

	observations, err := st.LoadObservations(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load observations: %v\n", err)
		return 1
	}
	merged, err := st.LoadMerged(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load merged: %v\n", err)
		return 1
	}
	cells, err := st.LoadCells(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load cells: %v\n", err)
		return 1
	}
	assignments, err := st.LoadAssignments(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load assignments: %v\n", err)
		return 1
	}
	clusters, err := st.LoadClusters(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load clusters: %v\n", err)
		return 1
	}
	scores, err := st.LoadScores(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load scores: %v\n", err)
		return 1
	}

	grid, err := spatial.Restore(boundary, cellKM, cells)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: restore grid: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateMergeIntegrity(observations, merged),
		validateGridGeometry(boundary, cells),
		validateContainment(cells, merged, assignments),
		validateCoverage(grid, merged, assignments),
		validateClusters(clusters, assignments),
		validateScores(scores, assignments, clusters),
	}
	if geojsonPath != "" {
		phases = append(phases, validateExport(geojsonPath, cells))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d observations, %d merged, %d cells, %d assignments, %d clustered, %d scored\n",
		len(observations), len(merged), len(cells), len(assignments), len(clusters), len(scores))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i >= 20 {
				fmt.Printf("  ... and %d more\n", len(p.errors)-i)
				break
			}
			fmt.Printf("  %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	fmt.Println("\nAll phases passed.")
	return 0
}

func validateMergeIntegrity(observations, merged []domain.Observation) *phase {
	p := &phase{name: "Merge integrity"}

	known := make(map[string]bool, len(observations))
	for _, o := range observations {
		known[o.ID] = true
	}

	seen := map[string]bool{}
	for _, m := range merged {
		if seen[m.ID] {
			p.errorf("duplicate merged id %s", m.ID)
		}
		seen[m.ID] = true
		if !known[m.ID] {
			p.errorf("merged id %s missing from observations", m.ID)
		}
		if domain.ErroneousName(m.ScientificName) {
			p.errorf("merged id %s kept erroneous name %q", m.ID, m.ScientificName)
		}
		if got := domain.NormalizeScientificName(m.ScientificName); got != m.ScientificName {
			p.errorf("merged id %s name %q not normalized", m.ID, m.ScientificName)
		}
	}
	return p
}

func validateGridGeometry(boundary *spatial.Boundary, cells []spatial.Cell) *phase {
	p := &phase{name: "Grid geometry"}

	seen := map[int]bool{}
	for _, c := range cells {
		if seen[c.ID] {
			p.errorf("duplicate cell id %d", c.ID)
		}
		seen[c.ID] = true
		if c.West >= c.East || c.South >= c.North {
			p.errorf("cell %d has degenerate bounds", c.ID)
		}
		if !boundary.IntersectsRect(c.West, c.South, c.East, c.North) {
			p.errorf("cell %d does not intersect the boundary", c.ID)
		}
	}
	return p
}

func validateContainment(cells []spatial.Cell, merged []domain.Observation, assignments []store.Assignment) *phase {
	p := &phase{name: "Cell containment"}

	cellByID := make(map[int]spatial.Cell, len(cells))
	for _, c := range cells {
		cellByID[c.ID] = c
	}
	obsByID := make(map[string]domain.Observation, len(merged))
	for _, m := range merged {
		obsByID[m.ID] = m
	}

	for _, a := range assignments {
		cell, ok := cellByID[a.CellID]
		if !ok {
			p.errorf("assignment references unknown cell %d", a.CellID)
			continue
		}
		obs, ok := obsByID[a.ObservationID]
		if !ok {
			p.errorf("assignment references unknown observation %s", a.ObservationID)
			continue
		}
		if !cell.Contains(obs.Lat, obs.Lon) {
			p.errorf("observation %s at %.5f,%.5f outside its cell %d",
				obs.ID, obs.Lat, obs.Lon, cell.ID)
		}
		if obs.ScientificName != a.ScientificName {
			p.errorf("assignment for %s has species %q, merged has %q",
				a.ObservationID, a.ScientificName, obs.ScientificName)
		}
	}
	return p
}

func validateCoverage(grid *spatial.Grid, merged []domain.Observation, assignments []store.Assignment) *phase {
	p := &phase{name: "Spatial join coverage"}

	assigned := make(map[string]bool, len(assignments))
	for _, a := range assignments {
		assigned[a.ObservationID] = true
	}

	for _, m := range merged {
		_, inGrid := grid.Locate(m.Lat, m.Lon)
		if inGrid && !assigned[m.ID] {
			p.errorf("observation %s inside the grid but unassigned", m.ID)
		}
		if !inGrid && assigned[m.ID] {
			p.errorf("observation %s outside the grid but assigned", m.ID)
		}
	}
	return p
}

func validateClusters(clusters map[int]int, assignments []store.Assignment) *phase {
	p := &phase{name: "Cluster coverage"}

	populated := map[int]bool{}
	for _, a := range assignments {
		populated[a.CellID] = true
	}

	for id := range populated {
		if _, ok := clusters[id]; !ok {
			p.errorf("populated cell %d has no cluster", id)
		}
	}
	for id, label := range clusters {
		if !populated[id] {
			p.errorf("cluster entry for empty cell %d", id)
		}
		if label < 0 {
			p.errorf("cell %d has negative cluster label %d", id, label)
		}
	}
	return p
}

func validateScores(scores []analysis.CellScore, assignments []store.Assignment, clusters map[int]int) *phase {
	p := &phase{name: "Richness scores"}

	distinct := map[int]map[string]bool{}
	for _, a := range assignments {
		if distinct[a.CellID] == nil {
			distinct[a.CellID] = map[string]bool{}
		}
		distinct[a.CellID][a.ScientificName] = true
	}

	opacities := map[float64]bool{0.2: true, 0.4: true, 0.8: true, 0.98: true}
	clusterMax := map[int]float64{}
	scored := map[int]bool{}

	for _, s := range scores {
		scored[s.CellID] = true
		if want := len(distinct[s.CellID]); s.SpeciesRichness != want {
			p.errorf("cell %d richness %d, expected %d distinct species",
				s.CellID, s.SpeciesRichness, want)
		}
		if label, ok := clusters[s.CellID]; !ok {
			p.errorf("scored cell %d has no cluster", s.CellID)
		} else if label != s.Cluster {
			p.errorf("cell %d scored under cluster %d but clustered as %d",
				s.CellID, s.Cluster, label)
		}
		if s.RichnessScore < 0 || s.RichnessScore > 1 {
			p.errorf("cell %d score %f outside [0,1]", s.CellID, s.RichnessScore)
		}
		if !opacities[s.Opacity] {
			p.errorf("cell %d opacity %f not a display bucket", s.CellID, s.Opacity)
		}
		if s.RichnessScore > clusterMax[s.Cluster] {
			clusterMax[s.Cluster] = s.RichnessScore
		}
	}

	for id := range distinct {
		if !scored[id] {
			p.errorf("populated cell %d has no score", id)
		}
	}
	for cluster, max := range clusterMax {
		if math.Abs(max-1) > 1e-9 {
			p.errorf("cluster %d best score %f, expected 1 after normalization", cluster, max)
		}
	}
	return p
}

func validateExport(path string, cells []spatial.Cell) *phase {
	p := &phase{name: "GeoJSON export"}

	data, err := os.ReadFile(path)
	if err != nil {
		p.errorf("read export: %v", err)
		return p
	}

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties struct {
				CellID int    `json:"cell_id"`
				Color  string `json:"color"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(data, &fc); err != nil {
		p.errorf("parse export: %v", err)
		return p
	}

	if fc.Type != "FeatureCollection" {
		p.errorf("export type %q, expected FeatureCollection", fc.Type)
	}
	if len(fc.Features) != len(cells) {
		p.errorf("export has %d features, grid has %d cells", len(fc.Features), len(cells))
	}
	for _, f := range fc.Features {
		if !strings.HasPrefix(f.Properties.Color, "#") {
			p.errorf("feature %d has malformed color %q", f.Properties.CellID, f.Properties.Color)
		}
	}
	return p
}
