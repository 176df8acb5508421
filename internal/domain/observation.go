package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Source identifies the citizen-science network an observation came from.
const (
	SourceINat  = "inat"
	SourceEBird = "ebird"
)

// Observation is the common cleaned record shared by all sources.
type Observation struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	SourceID string `json:"source_id"`
	Observer string `json:"observer,omitempty"`

	ObservedOn time.Time `json:"observed_on"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	// AccuracyM is the reported GPS accuracy radius in meters; 0 means
	// unreported (eBird records never carry one).
	AccuracyM float64 `json:"accuracy_m,omitempty"`

	CommonName     string `json:"common_name,omitempty"`
	ScientificName string `json:"scientific_name"`
	Genus          string `json:"genus,omitempty"`
	Family         string `json:"family,omitempty"`
	Order          string `json:"order,omitempty"`

	IngestedAt time.Time `json:"ingested_at"`
}

// generateID produces a deterministic ID from the fields that identify a
// sighting independent of which network exported it. Coordinates are rounded
// to four decimals (~11 m) so float formatting noise cannot split IDs.
func generateID(scientificName string, lat, lon float64, observedOn time.Time) string {
	input := fmt.Sprintf("%s|%.4f|%.4f|%s", scientificName, lat, lon, observedOn.Format(time.DateOnly))
	hash := sha256.Sum256([]byte(input))
	return "obs-" + hex.EncodeToString(hash[:8])
}

// validCoordinates reports whether a lat/lon pair is a plausible WGS-84
// position. (0, 0) is rejected: it is the classic null-island artifact of a
// missing fix.
func validCoordinates(lat, lon float64) bool {
	if lat == 0 && lon == 0 {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
