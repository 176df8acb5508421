package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// INatRecord is one row of the iNaturalist CSV export, all fields unparsed.
type INatRecord struct {
	ID                 string
	ObservedOn         string
	UserLogin          string
	QualityGrade       string
	CaptiveCultivated  string
	Geoprivacy         string
	PositionalAccuracy string
	Latitude           string
	Longitude          string
	CommonName         string
	ScientificName     string
	TaxonGenusName     string
	TaxonFamilyName    string
	TaxonOrderName     string
}

// ParseINatRecord converts a raw iNaturalist row into a cleaned Observation,
// applying the quality rules described in the package documentation.
// Records rejected by a rule return a FilteredError; rows that cannot be
// parsed return an ordinary error.
func ParseINatRecord(rec INatRecord, maxAccuracyM float64) (Observation, error) {
	if grade := strings.ToLower(strings.TrimSpace(rec.QualityGrade)); grade != "research" {
		return Observation{}, filtered("not_research_grade")
	}
	if strings.EqualFold(strings.TrimSpace(rec.CaptiveCultivated), "true") {
		return Observation{}, filtered("captive")
	}
	switch strings.ToLower(strings.TrimSpace(rec.Geoprivacy)) {
	case "", "open":
	default:
		// Obscured/private coordinates are displaced by iNaturalist and
		// cannot be trusted for cell assignment.
		return Observation{}, filtered("geoprivacy")
	}

	name := NormalizeScientificName(rec.ScientificName)
	if name == "" {
		return Observation{}, fmt.Errorf("missing scientific_name")
	}

	lat, errLat := strconv.ParseFloat(strings.TrimSpace(rec.Latitude), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(rec.Longitude), 64)
	if errLat != nil || errLon != nil {
		return Observation{}, fmt.Errorf("invalid coordinates %q,%q", rec.Latitude, rec.Longitude)
	}
	if !validCoordinates(lat, lon) {
		return Observation{}, fmt.Errorf("coordinates out of range %f,%f", lat, lon)
	}

	observedOn, err := time.Parse(time.DateOnly, strings.TrimSpace(rec.ObservedOn))
	if err != nil {
		return Observation{}, fmt.Errorf("invalid observed_on %q: %w", rec.ObservedOn, err)
	}

	accuracy := parseAccuracy(rec.PositionalAccuracy)
	if accuracy <= 0 {
		// No reported accuracy: the fix could be anywhere, reject like an
		// over-limit one.
		return Observation{}, filtered("no_accuracy")
	}
	if accuracy >= maxAccuracyM {
		return Observation{}, filtered("low_accuracy")
	}

	return Observation{
		ID:             generateID(name, lat, lon, observedOn),
		Source:         SourceINat,
		SourceID:       strings.TrimSpace(rec.ID),
		Observer:       strings.TrimSpace(rec.UserLogin),
		ObservedOn:     observedOn,
		Lat:            lat,
		Lon:            lon,
		AccuracyM:      accuracy,
		CommonName:     strings.TrimSpace(rec.CommonName),
		ScientificName: name,
		Genus:          strings.TrimSpace(rec.TaxonGenusName),
		Family:         strings.TrimSpace(rec.TaxonFamilyName),
		Order:          strings.TrimSpace(rec.TaxonOrderName),
		IngestedAt:     clock.Now(),
	}, nil
}

// parseAccuracy parses the positional_accuracy column, returning 0 for empty
// or unparseable values.
func parseAccuracy(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
