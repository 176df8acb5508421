package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EBirdRecord is one row of the eBird Basic Dataset TSV, all fields unparsed.
type EBirdRecord struct {
	GlobalUniqueIdentifier string
	CommonName             string
	ScientificName         string
	Category               string
	ObservationDate        string
	Latitude               string
	Longitude              string
	ObserverID             string
	Approved               string
}

// ParseEBirdRecord converts a raw eBird row into a cleaned Observation.
// Unapproved records and categories that do not identify an actual taxon
// return a FilteredError; rows that cannot be parsed return an ordinary error.
func ParseEBirdRecord(rec EBirdRecord) (Observation, error) {
	if strings.TrimSpace(rec.Approved) != "1" {
		return Observation{}, filtered("not_approved")
	}
	switch strings.ToLower(strings.TrimSpace(rec.Category)) {
	case "species", "issf", "form":
		// issf/form are below-species taxa; name normalization folds them
		// into their parent species.
	default:
		return Observation{}, filtered("not_species")
	}

	name := NormalizeScientificName(rec.ScientificName)
	if name == "" {
		return Observation{}, fmt.Errorf("missing SCIENTIFIC NAME")
	}

	lat, errLat := strconv.ParseFloat(strings.TrimSpace(rec.Latitude), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(rec.Longitude), 64)
	if errLat != nil || errLon != nil {
		return Observation{}, fmt.Errorf("invalid coordinates %q,%q", rec.Latitude, rec.Longitude)
	}
	if !validCoordinates(lat, lon) {
		return Observation{}, fmt.Errorf("coordinates out of range %f,%f", lat, lon)
	}

	observedOn, err := time.Parse(time.DateOnly, strings.TrimSpace(rec.ObservationDate))
	if err != nil {
		return Observation{}, fmt.Errorf("invalid OBSERVATION DATE %q: %w", rec.ObservationDate, err)
	}

	return Observation{
		ID:             generateID(name, lat, lon, observedOn),
		Source:         SourceEBird,
		SourceID:       strings.TrimSpace(rec.GlobalUniqueIdentifier),
		Observer:       strings.TrimSpace(rec.ObserverID),
		ObservedOn:     observedOn,
		Lat:            lat,
		Lon:            lon,
		CommonName:     strings.TrimSpace(rec.CommonName),
		ScientificName: name,
		Genus:          genusOf(name),
		IngestedAt:     clock.Now(),
	}, nil
}

// genusOf returns the first word of a normalized binomial name.
func genusOf(name string) string {
	if i := strings.IndexByte(name, ' '); i > 0 {
		return name[:i]
	}
	return name
}
