// Package store persists the pipeline's intermediate tables in a single
// SQLite file, the on-disk handoff between batch stages.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ornigrid/ornigrid/internal/analysis"
	"github.com/ornigrid/ornigrid/internal/domain"
	"github.com/ornigrid/ornigrid/internal/spatial"
)

// Store wraps the SQLite database holding all intermediate tables.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the pipeline database at path and
// ensures the schema exists. The returned Store must be closed by the caller.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single-writer batch workload; WAL still helps the validate command
	// read while a stage is writing.
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// replaceInTx deletes rows matched by deleteStmt and runs insert for each
// element, all in one transaction.
func (s *Store) replaceInTx(ctx context.Context, deleteStmt string, deleteArgs []any, insert func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, deleteStmt, deleteArgs...); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	if err := insert(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceObservations overwrites one source's cleaned observations.
func (s *Store) ReplaceObservations(ctx context.Context, source string, observations []domain.Observation) error {
	return s.replaceInTx(ctx, `DELETE FROM observations WHERE source = ?`, []any{source}, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO observations
				(id, source, source_id, observer, observed_on, lat, lon, accuracy_m,
				 common_name, scientific_name, genus, family, order_name, ingested_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, o := range observations {
			if _, err := stmt.ExecContext(ctx,
				o.ID, o.Source, o.SourceID, o.Observer,
				o.ObservedOn.Format(time.DateOnly), o.Lat, o.Lon, o.AccuracyM,
				o.CommonName, o.ScientificName, o.Genus, o.Family, o.Order,
				o.IngestedAt.UTC().Format(time.RFC3339),
			); err != nil {
				return fmt.Errorf("insert observation %s: %w", o.ID, err)
			}
		}
		return nil
	})
}

// LoadObservations returns all cleaned observations across sources, ordered
// by (source, id) for deterministic downstream processing.
func (s *Store) LoadObservations(ctx context.Context) ([]domain.Observation, error) {
	return s.queryObservations(ctx, `
		SELECT id, source, source_id, observer, observed_on, lat, lon, accuracy_m,
		       common_name, scientific_name, genus, family, order_name, ingested_at
		FROM observations ORDER BY source, id`)
}

// ReplaceMerged overwrites the merged analysis set.
func (s *Store) ReplaceMerged(ctx context.Context, observations []domain.Observation) error {
	return s.replaceInTx(ctx, `DELETE FROM merged_observations`, nil, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO merged_observations
				(id, source, source_id, observer, observed_on, lat, lon, accuracy_m,
				 common_name, scientific_name, genus, family, order_name, ingested_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, o := range observations {
			if _, err := stmt.ExecContext(ctx,
				o.ID, o.Source, o.SourceID, o.Observer,
				o.ObservedOn.Format(time.DateOnly), o.Lat, o.Lon, o.AccuracyM,
				o.CommonName, o.ScientificName, o.Genus, o.Family, o.Order,
				o.IngestedAt.UTC().Format(time.RFC3339),
			); err != nil {
				return fmt.Errorf("insert merged observation %s: %w", o.ID, err)
			}
		}
		return nil
	})
}

// LoadMerged returns the merged analysis set ordered by ID.
func (s *Store) LoadMerged(ctx context.Context) ([]domain.Observation, error) {
	return s.queryObservations(ctx, `
		SELECT id, source, source_id, observer, observed_on, lat, lon, accuracy_m,
		       common_name, scientific_name, genus, family, order_name, ingested_at
		FROM merged_observations ORDER BY id`)
}

func (s *Store) queryObservations(ctx context.Context, query string) ([]domain.Observation, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var out []domain.Observation
	for rows.Next() {
		var o domain.Observation
		var observedOn, ingestedAt string
		if err := rows.Scan(&o.ID, &o.Source, &o.SourceID, &o.Observer,
			&observedOn, &o.Lat, &o.Lon, &o.AccuracyM,
			&o.CommonName, &o.ScientificName, &o.Genus, &o.Family, &o.Order,
			&ingestedAt); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		if o.ObservedOn, err = time.Parse(time.DateOnly, observedOn); err != nil {
			return nil, fmt.Errorf("observation %s: bad observed_on %q: %w", o.ID, observedOn, err)
		}
		if o.IngestedAt, err = time.Parse(time.RFC3339, ingestedAt); err != nil {
			return nil, fmt.Errorf("observation %s: bad ingested_at %q: %w", o.ID, ingestedAt, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ReplaceCells overwrites the generated grid.
func (s *Store) ReplaceCells(ctx context.Context, cells []spatial.Cell) error {
	return s.replaceInTx(ctx, `DELETE FROM grid_cells`, nil, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO grid_cells (id, west, south, east, north) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, c := range cells {
			if _, err := stmt.ExecContext(ctx, c.ID, c.West, c.South, c.East, c.North); err != nil {
				return fmt.Errorf("insert cell %d: %w", c.ID, err)
			}
		}
		return nil
	})
}

// LoadCells returns the grid cells in lattice order.
func (s *Store) LoadCells(ctx context.Context) ([]spatial.Cell, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, west, south, east, north FROM grid_cells ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query cells: %w", err)
	}
	defer rows.Close()

	var out []spatial.Cell
	for rows.Next() {
		var c spatial.Cell
		if err := rows.Scan(&c.ID, &c.West, &c.South, &c.East, &c.North); err != nil {
			return nil, fmt.Errorf("scan cell: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Assignment is one observation-to-cell association.
type Assignment struct {
	CellID         int
	ObservationID  string
	ScientificName string
}

// ReplaceAssignments overwrites the cell-observation index.
func (s *Store) ReplaceAssignments(ctx context.Context, assignments []Assignment) error {
	return s.replaceInTx(ctx, `DELETE FROM cell_observations`, nil, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO cell_observations (cell_id, observation_id, scientific_name) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, a := range assignments {
			if _, err := stmt.ExecContext(ctx, a.CellID, a.ObservationID, a.ScientificName); err != nil {
				return fmt.Errorf("insert assignment %d/%s: %w", a.CellID, a.ObservationID, err)
			}
		}
		return nil
	})
}

// LoadAssignments returns the cell-observation index ordered by cell then
// observation.
func (s *Store) LoadAssignments(ctx context.Context) ([]Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cell_id, observation_id, scientific_name
		FROM cell_observations ORDER BY cell_id, observation_id`)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.CellID, &a.ObservationID, &a.ScientificName); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ReplaceClusters overwrites the cell-cluster labeling.
func (s *Store) ReplaceClusters(ctx context.Context, clusters map[int]int) error {
	return s.replaceInTx(ctx, `DELETE FROM cell_clusters`, nil, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO cell_clusters (cell_id, cluster) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for cellID, cluster := range clusters {
			if _, err := stmt.ExecContext(ctx, cellID, cluster); err != nil {
				return fmt.Errorf("insert cluster for cell %d: %w", cellID, err)
			}
		}
		return nil
	})
}

// LoadClusters returns the cell-to-cluster labeling.
func (s *Store) LoadClusters(ctx context.Context) (map[int]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT cell_id, cluster FROM cell_clusters`)
	if err != nil {
		return nil, fmt.Errorf("query clusters: %w", err)
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var cellID, cluster int
		if err := rows.Scan(&cellID, &cluster); err != nil {
			return nil, fmt.Errorf("scan cluster: %w", err)
		}
		out[cellID] = cluster
	}
	return out, rows.Err()
}

// ReplaceScores overwrites the per-cell scores.
func (s *Store) ReplaceScores(ctx context.Context, scores []analysis.CellScore) error {
	return s.replaceInTx(ctx, `DELETE FROM cell_scores`, nil, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO cell_scores
				(cell_id, cluster, species_richness, weighted_richness, richness_score, opacity, recommended)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, sc := range scores {
			recommended := 0
			if sc.Recommended {
				recommended = 1
			}
			if _, err := stmt.ExecContext(ctx, sc.CellID, sc.Cluster, sc.SpeciesRichness,
				sc.WeightedRichness, sc.RichnessScore, sc.Opacity, recommended); err != nil {
				return fmt.Errorf("insert score for cell %d: %w", sc.CellID, err)
			}
		}
		return nil
	})
}

// LoadScores returns the per-cell scores ordered by cell ID.
func (s *Store) LoadScores(ctx context.Context) ([]analysis.CellScore, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cell_id, cluster, species_richness, weighted_richness, richness_score, opacity, recommended
		FROM cell_scores ORDER BY cell_id`)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var out []analysis.CellScore
	for rows.Next() {
		var sc analysis.CellScore
		var recommended int
		if err := rows.Scan(&sc.CellID, &sc.Cluster, &sc.SpeciesRichness,
			&sc.WeightedRichness, &sc.RichnessScore, &sc.Opacity, &recommended); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		sc.Recommended = recommended != 0
		out = append(out, sc)
	}
	return out, rows.Err()
}
