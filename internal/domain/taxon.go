package domain

import (
	"regexp"
	"strings"
)

// unresolvedNameRe matches the markers eBird and iNaturalist use for
// identifications not resolved to species: "Larus sp.", "Anas spp.".
var unresolvedNameRe = regexp.MustCompile(`(?i)\b(?:sp\.|spp\.)`)

// NormalizeScientificName truncates a scientific name to genus and species,
// collapsing subspecies and variety epithets. Single-word names (genus-level
// identifications) pass through unchanged; ErroneousName rejects them later
// when they carry an sp. marker.
func NormalizeScientificName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	if len(fields) == 1 {
		return fields[0]
	}
	return fields[0] + " " + fields[1]
}

// ErroneousName reports whether a scientific name denotes an unresolved or
// ambiguous identification: slash taxa ("Greater/Lesser Yellowlegs"),
// escaped exports, or genus-level sp./spp. placeholders.
func ErroneousName(name string) bool {
	if strings.ContainsAny(name, `/\`) {
		return true
	}
	return unresolvedNameRe.MatchString(name)
}

// RareSpecies returns the set of scientific names whose total occurrence
// count across all observations is at or below threshold.
func RareSpecies(observations []Observation, threshold int) map[string]bool {
	counts := make(map[string]int)
	for _, o := range observations {
		counts[o.ScientificName]++
	}
	rare := make(map[string]bool)
	for name, n := range counts {
		if n <= threshold {
			rare[name] = true
		}
	}
	return rare
}
