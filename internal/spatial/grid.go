package spatial

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"
)

// kmPerDegreeLat is the meridian arc length of one degree of latitude.
const kmPerDegreeLat = 111.32

// Cell is one grid cell: a lat/lon-aligned rectangle. Cells are half-open
// intervals [West, East) x [South, North), so a point on a shared edge
// belongs to exactly one cell (the one to its north/east).
type Cell struct {
	ID    int     `json:"id"`
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// Centroid returns the cell's center point.
func (c Cell) Centroid() (lat, lon float64) {
	return (c.South + c.North) / 2, (c.West + c.East) / 2
}

// Contains reports whether a point lies in the cell's half-open bounds.
func (c Cell) Contains(lat, lon float64) bool {
	return lat >= c.South && lat < c.North && lon >= c.West && lon < c.East
}

// Grid is a regular lattice of cells clipped to a boundary. Cell IDs are
// row-major positions in the unclipped lattice and survive clipping, so a
// cell keeps its ID no matter how the boundary trims its neighbors.
type Grid struct {
	Cells []Cell

	originLat, originLon float64
	latStep, lonStep     float64
	rows, cols           int
	kept                 map[int]int // cell ID -> index into Cells
}

// CellSteps converts a cell edge length in kilometers to lat/lon steps in
// degrees. The longitude step is widened by the cosine of the boundary's
// mid-latitude so cells stay approximately square on the ground.
func CellSteps(b *Boundary, cellKM float64) (latStep, lonStep float64) {
	latStep = cellKM / kmPerDegreeLat
	minLat, _, maxLat, _ := b.BBox()
	midLat := (minLat + maxLat) / 2
	lonStep = latStep / math.Cos(midLat*math.Pi/180)
	return latStep, lonStep
}

// Generate tessellates the boundary's bounding box into cells of the given
// edge length and keeps those intersecting the boundary.
func Generate(b *Boundary, cellKM float64) (*Grid, error) {
	if cellKM <= 0 {
		return nil, fmt.Errorf("cell size must be positive, got %g km", cellKM)
	}

	latStep, lonStep := CellSteps(b, cellKM)
	minLat, minLon, maxLat, maxLon := b.BBox()

	g := &Grid{
		originLat: minLat,
		originLon: minLon,
		latStep:   latStep,
		lonStep:   lonStep,
		kept:      make(map[int]int),
	}

	// Mirror the row/column walk of the lattice: rows from the south edge
	// while the origin is inside the box, columns likewise from the west.
	g.rows = int(math.Floor((maxLat-minLat)/latStep)) + 1
	g.cols = int(math.Floor((maxLon-minLon)/lonStep)) + 1

	for row := 0; row < g.rows; row++ {
		south := minLat + float64(row)*latStep
		for col := 0; col < g.cols; col++ {
			west := minLon + float64(col)*lonStep
			cell := Cell{
				ID:    row*g.cols + col,
				West:  west,
				South: south,
				East:  west + lonStep,
				North: south + latStep,
			}
			if !b.IntersectsRect(cell.West, cell.South, cell.East, cell.North) {
				continue
			}
			g.kept[cell.ID] = len(g.Cells)
			g.Cells = append(g.Cells, cell)
		}
	}

	if len(g.Cells) == 0 {
		return nil, fmt.Errorf("no grid cells intersect the boundary")
	}
	return g, nil
}

// Restore rebuilds a Grid from previously generated cells and the boundary
// it was generated against, so a later stage can locate points without
// regenerating. cellKM must match the generating run.
func Restore(b *Boundary, cellKM float64, cells []Cell) (*Grid, error) {
	if len(cells) == 0 {
		return nil, fmt.Errorf("no cells to restore")
	}
	latStep, lonStep := CellSteps(b, cellKM)
	minLat, minLon, maxLat, maxLon := b.BBox()

	g := &Grid{
		Cells:     cells,
		originLat: minLat,
		originLon: minLon,
		latStep:   latStep,
		lonStep:   lonStep,
		rows:      int(math.Floor((maxLat-minLat)/latStep)) + 1,
		cols:      int(math.Floor((maxLon-minLon)/lonStep)) + 1,
		kept:      make(map[int]int, len(cells)),
	}
	for i, c := range cells {
		g.kept[c.ID] = i
	}
	return g, nil
}

// Locate returns the cell containing a point. Location is index arithmetic
// over the regular lattice, so the half-open edge rule costs nothing and a
// point can never match two cells. The boolean is false for points outside
// the lattice or in a cell trimmed away by the boundary.
func (g *Grid) Locate(lat, lon float64) (Cell, bool) {
	row := int(math.Floor((lat - g.originLat) / g.latStep))
	col := int(math.Floor((lon - g.originLon) / g.lonStep))
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		return Cell{}, false
	}
	idx, ok := g.kept[row*g.cols+col]
	if !ok {
		return Cell{}, false
	}
	return g.Cells[idx], true
}

// Size returns the lattice dimensions before clipping.
func (g *Grid) Size() (rows, cols int) { return g.rows, g.cols }

// EdgeKM measures a cell's actual ground edge lengths using geodesic
// distance, for logging the approximation error of the degree-based steps.
func (c Cell) EdgeKM() (widthKM, heightKM float64) {
	const earthRadiusKM = 6371.01
	sw := s2.LatLngFromDegrees(c.South, c.West)
	se := s2.LatLngFromDegrees(c.South, c.East)
	nw := s2.LatLngFromDegrees(c.North, c.West)
	return sw.Distance(se).Radians() * earthRadiusKM, sw.Distance(nw).Radians() * earthRadiusKM
}
