package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tcdata/railnet/internal/bootstrap"
	"github.com/tcdata/railnet/internal/codes"
	"github.com/tcdata/railnet/internal/dataset"
	"github.com/tcdata/railnet/internal/importer"
	"github.com/tcdata/railnet/internal/models"
	"github.com/tcdata/railnet/internal/stations"
	"github.com/tcdata/railnet/internal/store"
)

type gtfsFlags []string

func (g *gtfsFlags) String() string     { return strings.Join(*g, ",") }
func (g *gtfsFlags) Set(v string) error { *g = append(*g, v); return nil }

func main() {
	configPath := flag.String("config", "", "Path to config file")
	rawDir := flag.String("raw", "data", "Directory with the raw source files")
	modeName := flag.String("mode", "add", "How to treat stations already in Station.json: add, update or upsert")
	caseSensitive := flag.Bool("case-sensitive", false, "Keep the case of station codes")
	saveDB := flag.Bool("save-db", false, "Store the merged station list in the database")
	var feeds gtfsFlags
	flag.Var(&feeds, "gtfs", "Additional GTFS feed as ISO:path.zip (repeatable)")
	flag.Parse()

	mode, err := dataset.ParseAddMode(*modeName)
	if err != nil {
		log.Fatalf("Invalid mode: %v", err)
	}
	if flag.NArg() == 0 && !*saveDB {
		fmt.Println("Usage: import-stations [-mode=add|update|upsert] [-raw=data] [-gtfs=CH:feed.zip] [-save-db] CODE...")
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
	if *saveDB && repo == nil {
		logger.Fatal("-save-db requires database.enabled")
	}

	var runID uuid.UUID
	if repo != nil {
		runID, err = repo.StartRun(ctx, "import_stations")
		if err != nil {
			logger.Fatal("failed to create run log", zap.Error(err))
		}
		logger = logger.With(zap.String("run_id", runID.String()))
	}

	message, err := run(ctx, logger, res, runOptions{
		rawDir:        *rawDir,
		mode:          mode,
		caseSensitive: *caseSensitive,
		saveDB:        *saveDB,
		feeds:         feeds,
		tokens:        flag.Args(),
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
	rawDir        string
	mode          dataset.AddMode
	caseSensitive bool
	saveDB        bool
	feeds         []string
	tokens        []string
}

func run(ctx context.Context, logger *zap.Logger, res *bootstrap.Resources, opts runOptions) (string, error) {
	start := time.Now()

	logger.Info("Step 1/4: Reading source files", zap.String("dir", opts.rawDir))
	var feeds []importer.GTFSFeed
	for _, f := range opts.feeds {
		iso, path, ok := strings.Cut(f, ":")
		country, known := codes.CountryByISO(strings.ToUpper(iso))
		if !ok || !known {
			return "", fmt.Errorf("invalid GTFS feed %q, expected ISO:path", f)
		}
		feeds = append(feeds, importer.GTFSFeed{Path: path, Country: country})
	}
	raw, err := importer.New(logger).LoadDir(opts.rawDir, feeds...)
	if err != nil {
		return "", err
	}

	logger.Info("Step 2/4: Merging station lists", zap.Int("sources", len(raw.Sources)))
	merged, err := stations.NewPipeline(logger).Run(raw.Sources, raw.Platforms)
	if err != nil {
		return "", err
	}

	if opts.saveDB {
		logger.Info("Step 3/4: Saving stations to database", zap.Int("stations", len(merged)))
		if err := res.Store().SaveStations(ctx, merged); err != nil {
			return "", err
		}
	} else {
		logger.Info("Step 3/4: Skipping database (use -save-db to enable)")
	}

	if len(opts.tokens) == 0 {
		return fmt.Sprintf("saved %d stations in %s", len(merged), time.Since(start).Round(time.Millisecond)), nil
	}

	logger.Info("Step 4/4: Adding stations to Station.json", zap.String("mode", opts.mode.String()))
	selected, err := selectStations(logger, merged, opts.tokens, opts.caseSensitive)
	if err != nil {
		return "", err
	}

	path := filepath.Join(res.Config.Data.Dir, dataset.StationFile)
	doc, err := dataset.ReadDocument(path)
	if err != nil {
		return "", err
	}
	result, err := dataset.AddStations(doc, selected, opts.mode)
	if err != nil {
		return "", err
	}
	if err := dataset.WriteDocument(path, doc); err != nil {
		return "", err
	}

	return fmt.Sprintf("added %d, updated %d, skipped %d stations in %s",
		result.Added, result.Updated, result.Skipped, time.Since(start).Round(time.Millisecond)), nil
}

// selectStations resolves the requested codes against the merged list
func selectStations(logger *zap.Logger, merged []*models.Station, tokens []string, caseSensitive bool) ([]*models.Station, error) {
	sets, err := codes.ParseInput(tokens, caseSensitive, logger)
	if err != nil {
		return nil, err
	}

	index := stations.Index(merged)
	var selected []*models.Station
	var unknown []string
	for _, set := range sets {
		var found *models.Station
		for _, code := range set {
			if s, ok := index[code]; ok {
				found = s
				break
			}
		}
		if found == nil {
			unknown = append(unknown, set.String())
			continue
		}

		if (found.PlatformCount() == 0 || found.PlatformLength() == 0) && found.Group() != models.GroupJunction {
			fields := []zap.Field{zap.String("station", found.FirstCode())}
			if found.Location != nil {
				fields = append(fields, zap.String("osm", fmt.Sprintf(
					"https://openstreetmap.org/#map=17/%f/%f&layers=T", found.Location.Latitude, found.Location.Longitude)))
			}
			logger.Warn("no platform data known", fields...)
		}
		selected = append(selected, found)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown stations: %s", strings.Join(unknown, ", "))
	}
	return selected, nil
}
