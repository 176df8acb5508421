package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// observation pipeline.
type Metrics struct {
	PipelineRunning prometheus.Gauge

	// Extraction metrics.
	RowsRead    *prometheus.CounterVec // labels: source={inat,ebird}
	RowsKept    *prometheus.CounterVec // labels: source={inat,ebird}
	RowsSkipped *prometheus.CounterVec // labels: source={inat,ebird}, reason

	// Merge metrics.
	DuplicatesDropped prometheus.Counter
	ErroneousDropped  prometheus.Counter
	RareDropped       prometheus.Counter

	// Spatial metrics.
	GridCells       prometheus.Gauge
	CellAssignments prometheus.Counter
	OutsideGrid     prometheus.Counter

	// Stage metrics.
	StageDuration *prometheus.HistogramVec // labels: stage
	StageErrors   *prometheus.CounterVec   // labels: stage
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PipelineRunning,
		m.RowsRead,
		m.RowsKept,
		m.RowsSkipped,
		m.DuplicatesDropped,
		m.ErroneousDropped,
		m.RareDropped,
		m.GridCells,
		m.CellAssignments,
		m.OutsideGrid,
		m.StageDuration,
		m.StageErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ornigrid",
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in progress, 0 otherwise.",
		}),
		RowsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ornigrid",
			Name:      "rows_read_total",
			Help:      "Rows read from the source export files.",
		}, []string{"source"}),
		RowsKept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ornigrid",
			Name:      "rows_kept_total",
			Help:      "Rows that survived quality filtering.",
		}, []string{"source"}),
		RowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ornigrid",
			Name:      "rows_skipped_total",
			Help:      "Rows dropped during extraction, by filter reason.",
		}, []string{"source", "reason"}),
		DuplicatesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ornigrid",
			Name:      "merge_duplicates_dropped_total",
			Help:      "Cross-source duplicate observations resolved during merge.",
		}),
		ErroneousDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ornigrid",
			Name:      "merge_erroneous_dropped_total",
			Help:      "Observations dropped for unresolvable scientific names.",
		}),
		RareDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ornigrid",
			Name:      "merge_rare_dropped_total",
			Help:      "Observations dropped because their species fell under the rarity threshold.",
		}),
		GridCells: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ornigrid",
			Name:      "grid_cells",
			Help:      "Grid cells kept after clipping to the boundary.",
		}),
		CellAssignments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ornigrid",
			Name:      "cell_assignments_total",
			Help:      "Observations assigned to a grid cell.",
		}),
		OutsideGrid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ornigrid",
			Name:      "observations_outside_grid_total",
			Help:      "Merged observations that fell outside every kept cell.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ornigrid",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"stage"}),
		StageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ornigrid",
			Name:      "stage_errors_total",
			Help:      "Pipeline stage failures.",
		}, []string{"stage"}),
	}
}
