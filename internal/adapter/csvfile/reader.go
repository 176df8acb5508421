// Package csvfile reads the source export files: the iNaturalist CSV and
// the eBird Basic Dataset TSV.
package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ornigrid/ornigrid/internal/domain"
)

// Row carries a raw source record with the 1-based line it came from, so
// skip warnings can point back into the export file.
type Row[T any] struct {
	Line   int
	Record T
}

// header maps column names to their index, failing on any missing required
// column: a missing column is a configuration error, not a row problem.
type header struct {
	index map[string]int
}

func newHeader(cols []string, required []string) (header, error) {
	h := header{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		h.index[c] = i
	}
	var missing []string
	for _, c := range required {
		if _, ok := h.index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return header{}, fmt.Errorf("missing required columns %v", missing)
	}
	return h, nil
}

// get returns the named column of a row, or "" when the column is absent or
// the row is short.
func (h header) get(row []string, col string) string {
	i, ok := h.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

var inatRequired = []string{"observed_on", "latitude", "longitude", "scientific_name", "quality_grade"}

// ReadINat parses an iNaturalist CSV export. Structurally broken rows are
// skipped with a warning; a missing required column or unreadable file is an
// error.
func ReadINat(path string, logger *slog.Logger) ([]Row[domain.INatRecord], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open inat export: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // row-level validation below

	cols, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read inat header: %w", err)
	}
	h, err := newHeader(cols, inatRequired)
	if err != nil {
		return nil, fmt.Errorf("inat export: %w", err)
	}

	var rows []Row[domain.INatRecord]
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("skipping unparseable row", "file", path, "line", line, "error", err)
			continue
		}
		rows = append(rows, Row[domain.INatRecord]{
			Line: line,
			Record: domain.INatRecord{
				ID:                 h.get(record, "id"),
				ObservedOn:         h.get(record, "observed_on"),
				UserLogin:          h.get(record, "user_login"),
				QualityGrade:       h.get(record, "quality_grade"),
				CaptiveCultivated:  h.get(record, "captive_cultivated"),
				Geoprivacy:         h.get(record, "geoprivacy"),
				PositionalAccuracy: h.get(record, "positional_accuracy"),
				Latitude:           h.get(record, "latitude"),
				Longitude:          h.get(record, "longitude"),
				CommonName:         h.get(record, "common_name"),
				ScientificName:     h.get(record, "scientific_name"),
				TaxonGenusName:     h.get(record, "taxon_genus_name"),
				TaxonFamilyName:    h.get(record, "taxon_family_name"),
				TaxonOrderName:     h.get(record, "taxon_order_name"),
			},
		})
	}
	return rows, nil
}

var ebirdRequired = []string{
	"SCIENTIFIC NAME", "OBSERVATION DATE", "LATITUDE", "LONGITUDE", "CATEGORY", "APPROVED",
}

// ReadEBird parses an eBird Basic Dataset TSV export.
func ReadEBird(path string, logger *slog.Logger) ([]Row[domain.EBirdRecord], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ebird export: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = '\t'
	// EBD fields are unquoted and may contain stray double quotes.
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	cols, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read ebird header: %w", err)
	}
	h, err := newHeader(cols, ebirdRequired)
	if err != nil {
		return nil, fmt.Errorf("ebird export: %w", err)
	}

	var rows []Row[domain.EBirdRecord]
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("skipping unparseable row", "file", path, "line", line, "error", err)
			continue
		}
		rows = append(rows, Row[domain.EBirdRecord]{
			Line: line,
			Record: domain.EBirdRecord{
				GlobalUniqueIdentifier: h.get(record, "GLOBAL UNIQUE IDENTIFIER"),
				CommonName:             h.get(record, "COMMON NAME"),
				ScientificName:         h.get(record, "SCIENTIFIC NAME"),
				Category:               h.get(record, "CATEGORY"),
				ObservationDate:        h.get(record, "OBSERVATION DATE"),
				Latitude:               h.get(record, "LATITUDE"),
				Longitude:              h.get(record, "LONGITUDE"),
				ObserverID:             h.get(record, "OBSERVER ID"),
				Approved:               h.get(record, "APPROVED"),
			},
		})
	}
	return rows, nil
}
