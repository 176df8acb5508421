package mapexport

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/ornigrid/ornigrid/internal/analysis"
	"github.com/ornigrid/ornigrid/internal/spatial"
)

// Set2 qualitative palette, cycled when there are more clusters than colors.
var clusterPalette = []string{
	"#66c2a5", "#fc8d62", "#8da0cb", "#e78ac2",
	"#a6d854", "#ffd92f", "#e5c494", "#b3b3b3",
}

// noDataColor marks cells that fall inside the boundary but hold no
// observations.
const noDataColor = "#4D4D4D"

// ClusterColor returns the fill color for a cluster label. A negative label
// means the cell has no observations.
func ClusterColor(cluster int) string {
	if cluster < 0 {
		return noDataColor
	}
	return clusterPalette[cluster%len(clusterPalette)]
}

// Feature is one grid cell ready for export, with its geometry and the
// display properties the map template and the GeoJSON file share.
type Feature struct {
	CellID           int     `json:"cell_id"`
	West             float64 `json:"west"`
	South            float64 `json:"south"`
	East             float64 `json:"east"`
	North            float64 `json:"north"`
	Cluster          int     `json:"cluster"`
	HasData          bool    `json:"has_data"`
	SpeciesRichness  int     `json:"species_richness"`
	WeightedRichness float64 `json:"weighted_richness"`
	RichnessScore    float64 `json:"richness_score"`
	Opacity          float64 `json:"opacity"`
	Recommended      bool    `json:"recommended"`
	Color            string  `json:"color"`
}

// BuildFeatures joins the grid with the scored cells. Cells without a score
// become no-data features: gray, faint, cluster -1.
func BuildFeatures(cells []spatial.Cell, scores []analysis.CellScore) []Feature {
	byID := make(map[int]analysis.CellScore, len(scores))
	for _, s := range scores {
		byID[s.CellID] = s
	}

	features := make([]Feature, 0, len(cells))
	for _, c := range cells {
		f := Feature{
			CellID:  c.ID,
			West:    c.West,
			South:   c.South,
			East:    c.East,
			North:   c.North,
			Cluster: -1,
			Opacity: 0.2,
			Color:   noDataColor,
		}
		if s, ok := byID[c.ID]; ok {
			f.HasData = true
			f.Cluster = s.Cluster
			f.SpeciesRichness = s.SpeciesRichness
			f.WeightedRichness = s.WeightedRichness
			f.RichnessScore = s.RichnessScore
			f.Opacity = s.Opacity
			f.Recommended = s.Recommended
			f.Color = ClusterColor(s.Cluster)
		}
		features = append(features, f)
	}
	sort.Slice(features, func(i, j int) bool { return features[i].CellID < features[j].CellID })
	return features
}

// Center returns the midpoint of the features' bounding box, for the initial
// map view.
func Center(features []Feature) (lat, lon float64) {
	if len(features) == 0 {
		return 0, 0
	}
	minLat, minLon := math.Inf(1), math.Inf(1)
	maxLat, maxLon := math.Inf(-1), math.Inf(-1)
	for _, f := range features {
		minLat = math.Min(minLat, f.South)
		maxLat = math.Max(maxLat, f.North)
		minLon = math.Min(minLon, f.West)
		maxLon = math.Max(maxLon, f.East)
	}
	return (minLat + maxLat) / 2, (minLon + maxLon) / 2
}

type geoJSONGeometry struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

type geoJSONFeature struct {
	Type       string          `json:"type"`
	Geometry   geoJSONGeometry `json:"geometry"`
	Properties Feature         `json:"properties"`
}

type geoJSONCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

// featureCollection converts the cells to a GeoJSON FeatureCollection with
// closed polygon rings in lon,lat order.
func featureCollection(features []Feature) geoJSONCollection {
	out := geoJSONCollection{Type: "FeatureCollection"}
	for _, f := range features {
		ring := [][2]float64{
			{f.West, f.South},
			{f.East, f.South},
			{f.East, f.North},
			{f.West, f.North},
			{f.West, f.South},
		}
		out.Features = append(out.Features, geoJSONFeature{
			Type:       "Feature",
			Geometry:   geoJSONGeometry{Type: "Polygon", Coordinates: [][][2]float64{ring}},
			Properties: f,
		})
	}
	return out
}

// WriteGeoJSON writes the grid as a GeoJSON file.
func WriteGeoJSON(path string, features []Feature) error {
	data, err := json.MarshalIndent(featureCollection(features), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal geojson: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write geojson: %w", err)
	}
	return nil
}
