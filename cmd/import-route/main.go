package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tcdata/railnet/internal/bootstrap"
	"github.com/tcdata/railnet/internal/dataset"
	"github.com/tcdata/railnet/internal/importer"
	"github.com/tcdata/railnet/internal/paths"
	"github.com/tcdata/railnet/internal/stations"
	"github.com/tcdata/railnet/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	rawDir := flag.String("raw", "data", "Directory with the raw source files")
	name := flag.String("name", "", "Name of the new path")
	modeName := flag.String("mode", "add", "How to treat stops already in Station.json: add, update or upsert")
	stationsOnly := flag.Bool("stations-only", false, "Only add the stops to Station.json")
	flag.Parse()

	mode, err := dataset.ParseAddMode(*modeName)
	if err != nil {
		log.Fatalf("Invalid mode: %v", err)
	}
	if flag.NArg() != 1 {
		fmt.Println("Usage: import-route [-raw=data] [-name=NAME] [-mode=add|update|upsert] [-stations-only] ROUTE.csv")
		flag.PrintDefaults()
		os.Exit(1)
	}

	ctx := context.Background()
	res, err := bootstrap.Open(ctx, *configPath)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer res.Close()
	logger := res.Logger

	repo := res.Store()
	var runID uuid.UUID
	if repo != nil {
		runID, err = repo.StartRun(ctx, "import_route")
		if err != nil {
			logger.Fatal("failed to create run log", zap.Error(err))
		}
		logger = logger.With(zap.String("run_id", runID.String()))
	}

	message, err := run(logger, res.Config.Data.Dir, runOptions{
		rawDir:       *rawDir,
		routeFile:    flag.Arg(0),
		name:         *name,
		mode:         mode,
		stationsOnly: *stationsOnly,
	})
	if repo != nil {
		status := store.RunSuccess
		if err != nil {
			status, message = store.RunFailed, err.Error()
		}
		if ferr := repo.FinishRun(ctx, runID, status, message); ferr != nil {
			logger.Warn("failed to update run log", zap.Error(ferr))
		}
	}
	if err != nil {
		logger.Fatal("import failed", zap.Error(err))
	}
	logger.Info("import completed", zap.String("result", message))
}

type runOptions struct {
	rawDir       string
	routeFile    string
	name         string
	mode         dataset.AddMode
	stationsOnly bool
}

func run(logger *zap.Logger, dataDir string, opts runOptions) (string, error) {
	start := time.Now()
	im := importer.New(logger)

	logger.Info("Step 1/4: Reading source files", zap.String("dir", opts.rawDir), zap.String("route", opts.routeFile))
	raw, err := im.LoadDir(opts.rawDir)
	if err != nil {
		return "", err
	}
	f, err := os.Open(opts.routeFile)
	if err != nil {
		return "", err
	}
	waypoints, err := im.RouteWaypoints(f)
	f.Close()
	if err != nil {
		return "", fmt.Errorf("failed to import %s: %w", opts.routeFile, err)
	}

	logger.Info("Step 2/4: Merging station lists", zap.Int("sources", len(raw.Sources)))
	merged, err := stations.NewPipeline(logger).Run(raw.Sources, raw.Platforms)
	if err != nil {
		return "", err
	}

	logger.Info("Step 3/4: Building path", zap.Int("waypoints", len(waypoints)), zap.Int("routes", len(raw.Tracks)))
	route, err := paths.NewBuilder(merged, raw.Tracks, logger).FromRoute(waypoints)
	if err != nil {
		return "", err
	}

	logger.Info("Step 4/4: Writing documents", zap.String("dir", dataDir))
	stationPath := filepath.Join(dataDir, dataset.StationFile)
	stationDoc, err := dataset.ReadDocument(stationPath)
	if err != nil {
		return "", err
	}
	result, err := dataset.AddStations(stationDoc, route.Stops, opts.mode)
	if err != nil {
		return "", err
	}
	if err := dataset.WriteDocument(stationPath, stationDoc); err != nil {
		return "", err
	}
	message := fmt.Sprintf("added %d, updated %d, skipped %d stops", result.Added, result.Updated, result.Skipped)

	if !opts.stationsOnly {
		pathFile := filepath.Join(dataDir, dataset.PathFile)
		pathDoc, err := dataset.ReadDocument(pathFile)
		if err != nil {
			return "", err
		}
		added, err := dataset.AddPath(pathDoc, route.Record(opts.name))
		if err != nil {
			return "", err
		}
		if added {
			if err := dataset.WriteDocument(pathFile, pathDoc); err != nil {
				return "", err
			}
			message += fmt.Sprintf(", added path with %d segments", len(route.Segments))
		} else {
			logger.Warn("path already exists, not added")
			message += ", path already exists"
		}
	}

	return fmt.Sprintf("%s in %s", message, time.Since(start).Round(time.Millisecond)), nil
}
