// Package spatial implements the grid layer: region boundary handling,
// tessellation of the boundary's bounding box into equal-area cells, and
// point-to-cell location.
package spatial

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/golang/geo/s2"
)

// Boundary is the region-of-interest polygon loaded from GeoJSON. Multiple
// outer rings (a MultiPolygon coastline with islands) are supported; interior
// holes are ignored, matching how the upstream contour files are drawn.
type Boundary struct {
	loops []*s2.Loop

	minLat, minLon, maxLat, maxLon float64
}

type geoJSONFile struct {
	Type     string `json:"type"`
	Features []struct {
		Geometry json.RawMessage `json:"geometry"`
	} `json:"features"`
	Geometry json.RawMessage `json:"geometry"` // when Type == "Feature"
	// Set when the file is a bare geometry object.
	Coordinates json.RawMessage `json:"coordinates"`
}

type geoJSONGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// LoadBoundary reads a GeoJSON file containing a Polygon or MultiPolygon
// (bare geometry, Feature, or FeatureCollection) and returns its boundary.
func LoadBoundary(path string) (*Boundary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read boundary: %w", err)
	}
	return ParseBoundary(data)
}

// ParseBoundary parses GeoJSON bytes into a Boundary.
func ParseBoundary(data []byte) (*Boundary, error) {
	var file geoJSONFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse boundary geojson: %w", err)
	}

	var geom geoJSONGeometry
	switch file.Type {
	case "FeatureCollection":
		if len(file.Features) == 0 {
			return nil, fmt.Errorf("boundary feature collection is empty")
		}
		if err := json.Unmarshal(file.Features[0].Geometry, &geom); err != nil {
			return nil, fmt.Errorf("parse boundary geometry: %w", err)
		}
	case "Feature":
		if err := json.Unmarshal(file.Geometry, &geom); err != nil {
			return nil, fmt.Errorf("parse boundary geometry: %w", err)
		}
	case "Polygon", "MultiPolygon":
		geom = geoJSONGeometry{Type: file.Type, Coordinates: file.Coordinates}
	default:
		return nil, fmt.Errorf("unsupported boundary geojson type %q", file.Type)
	}

	var outers [][][]float64 // one outer ring per polygon
	switch geom.Type {
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(geom.Coordinates, &rings); err != nil {
			return nil, fmt.Errorf("parse polygon coordinates: %w", err)
		}
		if len(rings) == 0 {
			return nil, fmt.Errorf("boundary polygon has no rings")
		}
		outers = append(outers, rings[0])
	case "MultiPolygon":
		var polys [][][][]float64
		if err := json.Unmarshal(geom.Coordinates, &polys); err != nil {
			return nil, fmt.Errorf("parse multipolygon coordinates: %w", err)
		}
		for _, rings := range polys {
			if len(rings) > 0 {
				outers = append(outers, rings[0])
			}
		}
	default:
		return nil, fmt.Errorf("unsupported boundary geometry type %q", geom.Type)
	}

	return newBoundary(outers)
}

func newBoundary(rings [][][]float64) (*Boundary, error) {
	b := &Boundary{minLat: 91, minLon: 181, maxLat: -91, maxLon: -181}
	for _, ring := range rings {
		// GeoJSON rings repeat the first vertex at the end; s2 loops must not.
		if n := len(ring); n > 1 && ring[0][0] == ring[n-1][0] && ring[0][1] == ring[n-1][1] {
			ring = ring[:n-1]
		}
		if len(ring) < 3 {
			return nil, fmt.Errorf("boundary ring has %d vertices, need at least 3", len(ring))
		}

		pts := make([]s2.Point, 0, len(ring))
		for _, coord := range ring {
			if len(coord) < 2 {
				return nil, fmt.Errorf("boundary vertex has %d ordinates", len(coord))
			}
			lon, lat := coord[0], coord[1]
			if lat < b.minLat {
				b.minLat = lat
			}
			if lat > b.maxLat {
				b.maxLat = lat
			}
			if lon < b.minLon {
				b.minLon = lon
			}
			if lon > b.maxLon {
				b.maxLon = lon
			}
			pts = append(pts, s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon)))
		}

		loop := s2.LoopFromPoints(pts)
		// GeoJSON does not guarantee winding order; normalize so the loop
		// interior is the smaller region regardless of how it was digitized.
		loop.Normalize()
		b.loops = append(b.loops, loop)
	}

	if len(b.loops) == 0 {
		return nil, fmt.Errorf("boundary has no usable rings")
	}
	return b, nil
}

// Contains reports whether a point lies inside the boundary.
func (b *Boundary) Contains(lat, lon float64) bool {
	p := s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon))
	for _, loop := range b.loops {
		if loop.ContainsPoint(p) {
			return true
		}
	}
	return false
}

// BBox returns the boundary's bounding box in degrees.
func (b *Boundary) BBox() (minLat, minLon, maxLat, maxLon float64) {
	return b.minLat, b.minLon, b.maxLat, b.maxLon
}

// IntersectsRect reports whether the boundary intersects a lat/lon rectangle.
// It checks the rectangle's corners and center against the boundary interior
// and the boundary's vertices against the rectangle, which is exact enough
// for grid clipping: a cell sliced only by an edge with no vertex inside is
// thinner than any observation's positional accuracy.
func (b *Boundary) IntersectsRect(west, south, east, north float64) bool {
	probes := [][2]float64{
		{south, west}, {south, east}, {north, west}, {north, east},
		{(south + north) / 2, (west + east) / 2},
	}
	for _, p := range probes {
		if b.Contains(p[0], p[1]) {
			return true
		}
	}

	rect := s2.RectFromLatLng(s2.LatLngFromDegrees(south, west))
	rect = rect.AddPoint(s2.LatLngFromDegrees(north, east))
	for _, loop := range b.loops {
		for i := 0; i < loop.NumVertices(); i++ {
			if rect.ContainsLatLng(s2.LatLngFromPoint(loop.Vertex(i))) {
				return true
			}
		}
	}
	return false
}
