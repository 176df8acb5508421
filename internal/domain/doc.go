// Package domain models citizen-science bird observation records from
// iNaturalist and eBird exports.
//
// # Data Sources
//
// iNaturalist observations come from the standard CSV export
// (https://www.inaturalist.org/observations/export). Relevant columns:
//
//	id                   numeric observation ID
//	observed_on          date in YYYY-MM-DD
//	user_login           observer account name
//	quality_grade        "research", "needs_id", or "casual"
//	captive_cultivated   "true" for captive/cultivated organisms
//	geoprivacy           "", "open", "obscured", or "private"
//	positional_accuracy  GPS accuracy radius in meters (may be empty)
//	latitude, longitude  WGS-84 decimal degrees
//	scientific_name      may include subspecies epithets
//	common_name, taxon_genus_name, taxon_family_name, taxon_order_name
//
// eBird observations come from the eBird Basic Dataset (EBD), a
// tab-separated export with uppercase column names:
//
//	GLOBAL UNIQUE IDENTIFIER   e.g. "URN:CornellLabOfOrnithology:EBIRD:OBS123"
//	COMMON NAME, SCIENTIFIC NAME
//	CATEGORY                   "species", "issf", "form", "spuh", "slash", ...
//	OBSERVATION DATE           YYYY-MM-DD
//	LATITUDE, LONGITUDE        WGS-84 decimal degrees
//	OBSERVER ID                e.g. "obsr313215"
//	APPROVED                   "1" once the record passed review
//
// # Quality Filtering
//
// Only records usable for spatial analysis survive ETL:
//
//	iNaturalist: quality_grade must be "research", captive_cultivated must
//	not be "true", geoprivacy must not be "obscured" or "private" (obscured
//	coordinates are displaced up to ~22 km and would land in the wrong grid
//	cell), and positional_accuracy must be below the configured cutoff.
//	eBird: APPROVED must be "1" and CATEGORY must identify an actual taxon
//	("species", "issf", "form"). "spuh" (genus-level, e.g. "Larus sp.") and
//	"slash" (e.g. "Greater/Lesser Yellowlegs") records are unidentifiable
//	to species and are rejected.
//
// # Name Normalization
//
// Scientific names are truncated to genus and species ("Pygoscelis papua
// ellsworthi" -> "Pygoscelis papua") so that subspecies records of the same
// species count as one taxon. Names containing "/" or "\" or a "sp."/"spp."
// marker denote unresolved identifications and are dropped during merge.
//
// # ID Generation
//
// Observation IDs are deterministic SHA-256 hashes of the normalized
// species name, coordinates rounded to four decimals (~11 m), and the
// observation date. The same sighting exported by both networks therefore
// collapses to a single ID, and re-running ETL on unchanged input produces
// identical rows. See [generateID].
package domain
