package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ornigrid/ornigrid/internal/adapter/csvfile"
	"github.com/ornigrid/ornigrid/internal/analysis"
	"github.com/ornigrid/ornigrid/internal/cluster"
	"github.com/ornigrid/ornigrid/internal/config"
	"github.com/ornigrid/ornigrid/internal/domain"
	"github.com/ornigrid/ornigrid/internal/mapexport"
	"github.com/ornigrid/ornigrid/internal/observability"
	"github.com/ornigrid/ornigrid/internal/spatial"
	"github.com/ornigrid/ornigrid/internal/store"
)

// stageFunc adapts a named function to the Stage interface.
type stageFunc struct {
	name string
	run  func(ctx context.Context) error
}

func (s stageFunc) Name() string                  { return s.name }
func (s stageFunc) Run(ctx context.Context) error { return s.run(ctx) }

type stages struct {
	cfg     *config.Config
	store   *store.Store
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Stages builds the full pipeline in execution order.
func Stages(cfg *config.Config, st *store.Store, logger *slog.Logger, metrics *observability.Metrics) []Stage {
	s := &stages{cfg: cfg, store: st, logger: logger, metrics: metrics}
	return []Stage{
		stageFunc{"etl_inat", s.extractINat},
		stageFunc{"etl_ebird", s.extractEBird},
		stageFunc{"merge", s.merge},
		stageFunc{"grid", s.grid},
		stageFunc{"associate", s.associate},
		stageFunc{"cluster", s.cluster},
		stageFunc{"score", s.score},
		stageFunc{"export", s.export},
	}
}

func (s *stages) extractINat(ctx context.Context) error {
	rows, err := csvfile.ReadINat(s.cfg.INatFile(), s.logger)
	if err != nil {
		return err
	}

	observations := make([]domain.Observation, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		s.metrics.RowsRead.WithLabelValues(domain.SourceINat).Inc()
		obs, err := domain.ParseINatRecord(row.Record, s.cfg.MaxAccuracyM)
		if err != nil {
			s.skipRow(domain.SourceINat, s.cfg.INatFile(), row.Line, err)
			continue
		}
		if seen[obs.ID] {
			s.metrics.RowsSkipped.WithLabelValues(domain.SourceINat, "duplicate").Inc()
			continue
		}
		seen[obs.ID] = true
		s.metrics.RowsKept.WithLabelValues(domain.SourceINat).Inc()
		observations = append(observations, obs)
	}

	if err := s.store.ReplaceObservations(ctx, domain.SourceINat, observations); err != nil {
		return err
	}
	s.logger.Info("inat extraction finished", "read", len(rows), "kept", len(observations))
	return nil
}

func (s *stages) extractEBird(ctx context.Context) error {
	rows, err := csvfile.ReadEBird(s.cfg.EBirdFile(), s.logger)
	if err != nil {
		return err
	}

	observations := make([]domain.Observation, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		s.metrics.RowsRead.WithLabelValues(domain.SourceEBird).Inc()
		obs, err := domain.ParseEBirdRecord(row.Record)
		if err != nil {
			s.skipRow(domain.SourceEBird, s.cfg.EBirdFile(), row.Line, err)
			continue
		}
		if seen[obs.ID] {
			s.metrics.RowsSkipped.WithLabelValues(domain.SourceEBird, "duplicate").Inc()
			continue
		}
		seen[obs.ID] = true
		s.metrics.RowsKept.WithLabelValues(domain.SourceEBird).Inc()
		observations = append(observations, obs)
	}

	if err := s.store.ReplaceObservations(ctx, domain.SourceEBird, observations); err != nil {
		return err
	}
	s.logger.Info("ebird extraction finished", "read", len(rows), "kept", len(observations))
	return nil
}

// skipRow records one dropped source row. Quality filters are expected and
// logged at debug; malformed rows deserve a warning.
func (s *stages) skipRow(source, file string, line int, err error) {
	if reason := domain.FilterReason(err); reason != "" {
		s.metrics.RowsSkipped.WithLabelValues(source, reason).Inc()
		s.logger.Debug("row filtered", "source", source, "line", line, "reason", reason)
		return
	}
	s.metrics.RowsSkipped.WithLabelValues(source, "malformed").Inc()
	s.logger.Warn("skipping malformed row", "source", source, "file", file, "line", line, "error", err)
}

func (s *stages) merge(ctx context.Context) error {
	observations, err := s.store.LoadObservations(ctx)
	if err != nil {
		return err
	}

	merged, stats := domain.Merge(observations, s.cfg.SourcePriority, s.cfg.RareThreshold)
	s.metrics.DuplicatesDropped.Add(float64(stats.Duplicates))
	s.metrics.ErroneousDropped.Add(float64(stats.Erroneous))
	s.metrics.RareDropped.Add(float64(stats.Rare))

	if len(merged) == 0 {
		return fmt.Errorf("no observations survived filtering (input %d)", stats.Input)
	}

	if err := s.store.ReplaceMerged(ctx, merged); err != nil {
		return err
	}
	s.logger.Info("merge finished",
		"input", stats.Input,
		"duplicates", stats.Duplicates,
		"erroneous", stats.Erroneous,
		"rare", stats.Rare,
		"output", stats.Output)
	return nil
}

func (s *stages) grid(ctx context.Context) error {
	boundary, err := spatial.LoadBoundary(s.cfg.BoundaryFile)
	if err != nil {
		return err
	}

	grid, err := spatial.Generate(boundary, s.cfg.CellKM)
	if err != nil {
		return err
	}

	if err := s.store.ReplaceCells(ctx, grid.Cells); err != nil {
		return err
	}
	s.metrics.GridCells.Set(float64(len(grid.Cells)))

	rows, cols := grid.Size()
	s.logger.Info("grid generated",
		"cell_km", s.cfg.CellKM,
		"rows", rows,
		"cols", cols,
		"kept_cells", len(grid.Cells))
	return nil
}

func (s *stages) associate(ctx context.Context) error {
	boundary, err := spatial.LoadBoundary(s.cfg.BoundaryFile)
	if err != nil {
		return err
	}
	cells, err := s.store.LoadCells(ctx)
	if err != nil {
		return err
	}
	grid, err := spatial.Restore(boundary, s.cfg.CellKM, cells)
	if err != nil {
		return err
	}

	merged, err := s.store.LoadMerged(ctx)
	if err != nil {
		return err
	}

	var assignments []store.Assignment
	outside := 0
	for _, obs := range merged {
		cell, ok := grid.Locate(obs.Lat, obs.Lon)
		if !ok {
			outside++
			s.metrics.OutsideGrid.Inc()
			continue
		}
		s.metrics.CellAssignments.Inc()
		assignments = append(assignments, store.Assignment{
			CellID:         cell.ID,
			ObservationID:  obs.ID,
			ScientificName: obs.ScientificName,
		})
	}

	if err := s.store.ReplaceAssignments(ctx, assignments); err != nil {
		return err
	}
	s.logger.Info("spatial join finished",
		"observations", len(merged),
		"assigned", len(assignments),
		"outside_grid", outside)
	return nil
}

func (s *stages) cluster(ctx context.Context) error {
	matrix, err := s.loadMatrix(ctx)
	if err != nil {
		return err
	}
	data := matrix.Presence()
	if len(data) == 0 {
		return fmt.Errorf("no cells with observations, nothing to cluster")
	}

	k := s.cfg.ClusterCount
	if s.cfg.ClusterKAuto {
		chosen, scores, err := cluster.SelectK(data, 2, s.cfg.ClusterKMax, s.cfg.ClusterSeed, s.cfg.ClusterMaxIter)
		if err != nil {
			return err
		}
		k = chosen
		for _, ks := range scores {
			s.logger.Debug("silhouette", "k", ks.K, "score", ks.Silhouette)
		}
		s.logger.Info("selected cluster count", "k", k)
	}
	if k > len(data) {
		return fmt.Errorf("cluster count %d exceeds the %d cells with observations", k, len(data))
	}

	result, err := cluster.KMeans(data, k, s.cfg.ClusterSeed, s.cfg.ClusterMaxIter)
	if err != nil {
		return err
	}

	clusters := make(map[int]int, len(matrix.CellIDs))
	for i, id := range matrix.CellIDs {
		clusters[id] = result.Labels[i]
	}
	if err := s.store.ReplaceClusters(ctx, clusters); err != nil {
		return err
	}
	s.logger.Info("clustering finished",
		"cells", len(data),
		"k", result.K,
		"iterations", result.Iterations,
		"inertia", result.Inertia)
	return nil
}

func (s *stages) score(ctx context.Context) error {
	matrix, err := s.loadMatrix(ctx)
	if err != nil {
		return err
	}
	clusters, err := s.store.LoadClusters(ctx)
	if err != nil {
		return err
	}

	labels := make([]int, len(matrix.CellIDs))
	for i, id := range matrix.CellIDs {
		label, ok := clusters[id]
		if !ok {
			return fmt.Errorf("cell %d has observations but no cluster, rerun the cluster stage", id)
		}
		labels[i] = label
	}

	scores := analysis.ScoreCells(matrix, labels, s.cfg.PrioritySpecies, s.cfg.PriorityWeight, s.cfg.TopCells)
	if err := s.store.ReplaceScores(ctx, scores); err != nil {
		return err
	}

	recommended := 0
	for _, sc := range scores {
		if sc.Recommended {
			recommended++
		}
	}
	s.logger.Info("scoring finished", "cells", len(scores), "recommended", recommended)
	return nil
}

func (s *stages) export(ctx context.Context) error {
	cells, err := s.store.LoadCells(ctx)
	if err != nil {
		return err
	}
	scores, err := s.store.LoadScores(ctx)
	if err != nil {
		return err
	}

	features := mapexport.BuildFeatures(cells, scores)

	if err := os.MkdirAll(filepath.Dir(s.cfg.OutputHTML), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := mapexport.WriteGeoJSON(s.cfg.GridGeoJSON(), features); err != nil {
		return err
	}
	if err := mapexport.WriteMap(s.cfg.OutputHTML, "Bird observation grid", features); err != nil {
		return err
	}

	s.logger.Info("export finished",
		"cells", len(features),
		"geojson", s.cfg.GridGeoJSON(),
		"map", s.cfg.OutputHTML)
	return nil
}

func (s *stages) loadMatrix(ctx context.Context) (*analysis.Matrix, error) {
	assignments, err := s.store.LoadAssignments(ctx)
	if err != nil {
		return nil, err
	}
	cellObs := make([]analysis.CellObservation, len(assignments))
	for i, a := range assignments {
		cellObs[i] = analysis.CellObservation{CellID: a.CellID, Species: a.ScientificName}
	}
	return analysis.BuildMatrix(cellObs), nil
}
