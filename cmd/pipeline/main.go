// Command pipeline runs the bird observation pipeline: it extracts the
// iNaturalist and eBird exports, merges them, tessellates the boundary into
// an equal-area grid, joins observations to cells, clusters cells by species
// composition, scores each cell, and writes the interactive map.
//
// With HTTP_ADDR unset the pipeline runs once and exits. With HTTP_ADDR set
// it keeps serving the generated map plus health and metrics endpoints until
// interrupted.
//
// Usage:
//
//	pipeline [-stages etl_inat,etl_ebird,merge,...]
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	httpadapter "github.com/ornigrid/ornigrid/internal/adapter/http"
	"github.com/ornigrid/ornigrid/internal/config"
	"github.com/ornigrid/ornigrid/internal/observability"
	"github.com/ornigrid/ornigrid/internal/pipeline"
	"github.com/ornigrid/ornigrid/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("pipeline failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	stagesFlag := flag.String("stages", "", "comma-separated subset of stages to run (default: all)")
	flag.Parse()

	// Local development convenience; a missing .env file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}
	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return err
	}
	defer st.Close()

	runner := pipeline.NewRunner(pipeline.Stages(cfg, st, logger, metrics), logger, metrics)

	var names []string
	if *stagesFlag != "" {
		for _, n := range strings.Split(*stagesFlag, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.HTTPAddr == "" {
		return runner.RunStages(ctx, names)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, runner, httpadapter.Artifacts{
		MapHTML:     cfg.OutputHTML,
		GridGeoJSON: cfg.GridGeoJSON(),
	}, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if err := runner.RunStages(ctx, names); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("pipeline run failed", "error", err)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
