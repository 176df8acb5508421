package store

// Each pipeline stage owns exactly one of these tables: it replaces its own
// table in full and reads only its predecessors'. Rerunning a stage is
// therefore idempotent and never corrupts downstream tables (they are simply
// stale until their stage reruns).
const schema = `
CREATE TABLE IF NOT EXISTS observations (
	id              TEXT NOT NULL,
	source          TEXT NOT NULL,
	source_id       TEXT NOT NULL DEFAULT '',
	observer        TEXT NOT NULL DEFAULT '',
	observed_on     TEXT NOT NULL,
	lat             REAL NOT NULL,
	lon             REAL NOT NULL,
	accuracy_m      REAL NOT NULL DEFAULT 0,
	common_name     TEXT NOT NULL DEFAULT '',
	scientific_name TEXT NOT NULL,
	genus           TEXT NOT NULL DEFAULT '',
	family          TEXT NOT NULL DEFAULT '',
	order_name      TEXT NOT NULL DEFAULT '',
	ingested_at     TEXT NOT NULL,
	PRIMARY KEY (source, id)
);

CREATE TABLE IF NOT EXISTS merged_observations (
	id              TEXT PRIMARY KEY,
	source          TEXT NOT NULL,
	source_id       TEXT NOT NULL DEFAULT '',
	observer        TEXT NOT NULL DEFAULT '',
	observed_on     TEXT NOT NULL,
	lat             REAL NOT NULL,
	lon             REAL NOT NULL,
	accuracy_m      REAL NOT NULL DEFAULT 0,
	common_name     TEXT NOT NULL DEFAULT '',
	scientific_name TEXT NOT NULL,
	genus           TEXT NOT NULL DEFAULT '',
	family          TEXT NOT NULL DEFAULT '',
	order_name      TEXT NOT NULL DEFAULT '',
	ingested_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS grid_cells (
	id     INTEGER PRIMARY KEY,
	west   REAL NOT NULL,
	south  REAL NOT NULL,
	east   REAL NOT NULL,
	north  REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS cell_observations (
	cell_id         INTEGER NOT NULL,
	observation_id  TEXT NOT NULL,
	scientific_name TEXT NOT NULL,
	PRIMARY KEY (cell_id, observation_id)
);

CREATE TABLE IF NOT EXISTS cell_clusters (
	cell_id INTEGER PRIMARY KEY,
	cluster INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS cell_scores (
	cell_id           INTEGER PRIMARY KEY,
	cluster           INTEGER NOT NULL,
	species_richness  INTEGER NOT NULL,
	weighted_richness REAL NOT NULL,
	richness_score    REAL NOT NULL,
	opacity           REAL NOT NULL,
	recommended       INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_observations_species ON observations (scientific_name);
CREATE INDEX IF NOT EXISTS idx_cell_observations_cell ON cell_observations (cell_id);
`
