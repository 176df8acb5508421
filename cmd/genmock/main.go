// Command genmock generates deterministic mock input fixtures: an
// iNaturalist CSV export, an eBird Basic Dataset TSV export, and a boundary
// GeoJSON. It runs every generated row through the actual extraction rules
// so the summary reflects real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock -out-dir data/external -rows 500 -seed 42
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ornigrid/ornigrid/internal/domain"
)

var baseDate = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Beagle Channel area: the boundary rectangle the fixtures fall into
// (with a margin of outliers around it).
const (
	boundaryWest  = -68.60
	boundarySouth = -54.95
	boundaryEast  = -68.00
	boundaryNorth = -54.70
)

// mockSpecies is a small pool of Fuegian birds, plus a couple of entries
// that exercise the erroneous-name and rarity rules.
var mockSpecies = []struct {
	scientific string
	common     string
	genus      string
}{
	{"Chloephaga hybrida", "Kelp Goose", "Chloephaga"},
	{"Campephilus magellanicus", "Magellanic Woodpecker", "Campephilus"},
	{"Phrygilus gayi", "Gray-hooded Sierra Finch", "Phrygilus"},
	{"Theristicus melanopis", "Black-faced Ibis", "Theristicus"},
	{"Larus dominicanus", "Kelp Gull", "Larus"},
	{"Tachyeres pteneres", "Flightless Steamer-Duck", "Tachyeres"},
	{"Larus sp.", "gull sp.", "Larus"},
	{"Enicognathus ferrugineus", "Austral Parakeet", "Enicognathus"},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "", "directory to write the fixture files into")
	rows := flag.Int("rows", 500, "rows per source file")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out-dir")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	// Fixed clock for reproducible IngestedAt timestamps in the summary run.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	rng := rand.New(rand.NewSource(*seed))

	if err := writeBoundary(filepath.Join(*outDir, "boundary.geojson")); err != nil {
		return err
	}
	log.Printf("wrote boundary.geojson")

	inatKept, err := writeINat(filepath.Join(*outDir, "inat_obs.csv"), *rows, rng)
	if err != nil {
		return err
	}
	log.Printf("inat_obs.csv: %d rows, %d pass extraction", *rows, inatKept)

	ebirdKept, err := writeEBird(filepath.Join(*outDir, "ebird_obs.txt"), *rows, rng)
	if err != nil {
		return err
	}
	log.Printf("ebird_obs.txt: %d rows, %d pass extraction", *rows, ebirdKept)

	return nil
}

func writeBoundary(path string) error {
	boundary := fmt.Sprintf(`{
  "type": "FeatureCollection",
  "features": [{
    "type": "Feature",
    "properties": {"name": "mock survey area"},
    "geometry": {
      "type": "Polygon",
      "coordinates": [[
        [%[1]f, %[2]f], [%[3]f, %[2]f], [%[3]f, %[4]f], [%[1]f, %[4]f], [%[1]f, %[2]f]
      ]]
    }
  }]
}
`, boundaryWest, boundarySouth, boundaryEast, boundaryNorth)
	return os.WriteFile(path, []byte(boundary), 0o644)
}

// randomPoint returns coordinates mostly inside the boundary, with roughly
// one row in twenty displaced outside it.
func randomPoint(rng *rand.Rand) (lat, lon float64) {
	lat = boundarySouth + rng.Float64()*(boundaryNorth-boundarySouth)
	lon = boundaryWest + rng.Float64()*(boundaryEast-boundaryWest)
	if rng.Intn(20) == 0 {
		lat += 0.5
	}
	return lat, lon
}

func randomDate(rng *rand.Rand) string {
	return baseDate.AddDate(0, 0, rng.Intn(60)).Format(time.DateOnly)
}

func writeINat(path string, rows int, rng *rand.Rand) (kept int, err error) {
	var b strings.Builder
	b.WriteString("id,observed_on,user_login,quality_grade,captive_cultivated,geoprivacy,positional_accuracy,latitude,longitude,scientific_name,common_name,taxon_genus_name\n")

	for i := 0; i < rows; i++ {
		sp := mockSpecies[rng.Intn(len(mockSpecies))]
		lat, lon := randomPoint(rng)

		grade := "research"
		if rng.Intn(10) == 0 {
			grade = "needs_id"
		}
		captive := "false"
		if rng.Intn(25) == 0 {
			captive = "true"
		}
		geoprivacy := ""
		if rng.Intn(25) == 0 {
			geoprivacy = "obscured"
		}
		accuracy := 5 + rng.Intn(500)
		if rng.Intn(15) == 0 {
			accuracy = 3000 + rng.Intn(5000)
		}

		rec := domain.INatRecord{
			ID:                 fmt.Sprintf("%d", 1000+i),
			ObservedOn:         randomDate(rng),
			UserLogin:          fmt.Sprintf("observer%d", rng.Intn(40)),
			QualityGrade:       grade,
			CaptiveCultivated:  captive,
			Geoprivacy:         geoprivacy,
			PositionalAccuracy: fmt.Sprintf("%d", accuracy),
			Latitude:           fmt.Sprintf("%.5f", lat),
			Longitude:          fmt.Sprintf("%.5f", lon),
			CommonName:         sp.common,
			ScientificName:     sp.scientific,
			TaxonGenusName:     sp.genus,
		}
		if _, err := domain.ParseINatRecord(rec, 2500); err == nil {
			kept++
		}

		fmt.Fprintf(&b, "%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s\n",
			rec.ID, rec.ObservedOn, rec.UserLogin, rec.QualityGrade,
			rec.CaptiveCultivated, rec.Geoprivacy, rec.PositionalAccuracy,
			rec.Latitude, rec.Longitude, rec.ScientificName, rec.CommonName,
			rec.TaxonGenusName)
	}
	return kept, os.WriteFile(path, []byte(b.String()), 0o644)
}

func writeEBird(path string, rows int, rng *rand.Rand) (kept int, err error) {
	var b strings.Builder
	b.WriteString("GLOBAL UNIQUE IDENTIFIER\tCOMMON NAME\tSCIENTIFIC NAME\tCATEGORY\tOBSERVATION DATE\tLATITUDE\tLONGITUDE\tOBSERVER ID\tAPPROVED\n")

	for i := 0; i < rows; i++ {
		sp := mockSpecies[rng.Intn(len(mockSpecies))]
		lat, lon := randomPoint(rng)

		category := "species"
		if strings.Contains(sp.scientific, "sp.") {
			category = "spuh"
		}
		approved := "1"
		if rng.Intn(20) == 0 {
			approved = "0"
		}

		rec := domain.EBirdRecord{
			GlobalUniqueIdentifier: fmt.Sprintf("URN:CornellLabOfOrnithology:EBIRD:OBS%d", 100000+i),
			CommonName:             sp.common,
			ScientificName:         sp.scientific,
			Category:               category,
			ObservationDate:        randomDate(rng),
			Latitude:               fmt.Sprintf("%.5f", lat),
			Longitude:              fmt.Sprintf("%.5f", lon),
			ObserverID:             fmt.Sprintf("obsr%d", rng.Intn(40)),
			Approved:               approved,
		}
		if _, err := domain.ParseEBirdRecord(rec); err == nil {
			kept++
		}

		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.GlobalUniqueIdentifier, rec.CommonName, rec.ScientificName,
			rec.Category, rec.ObservationDate, rec.Latitude, rec.Longitude,
			rec.ObserverID, rec.Approved)
	}
	return kept, os.WriteFile(path, []byte(b.String()), 0o644)
}
