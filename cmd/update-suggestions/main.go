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
	"github.com/tcdata/railnet/internal/routing"
	"github.com/tcdata/railnet/internal/store"
	"github.com/tcdata/railnet/internal/tasks"
)

const lockName = "update-suggestions"

func main() {
	configPath := flag.String("config", "", "Path to config file")
	force := flag.Bool("force", false, "Recompute suggestions that already exist")
	autoService := flag.Bool("auto-service", false, "Use the preset of each task's service level")
	yes := flag.Bool("yes", false, "Do not ask for confirmation")
	flag.Parse()

	// set on failure; runs after the deferred cleanup below
	var exitCode int
	defer func() {
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	}()

	ctx := context.Background()
	res, err := bootstrap.Open(ctx, *configPath)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer res.Close()
	logger := res.Logger
	cfg := res.Config

	logger.Info("Step 1/3: Loading dataset", zap.String("source", cfg.Data.Source))
	_, network, err := res.Network(ctx)
	if err != nil {
		logger.Fatal("failed to load network", zap.Error(err))
	}
	presets, err := res.Presets()
	if err != nil {
		logger.Fatal("failed to load presets", zap.Error(err))
	}
	doc, err := res.Tasks()
	if err != nil {
		logger.Fatal("failed to load tasks", zap.Error(err))
	}
	if doc == nil {
		logger.Fatal("no task document found", zap.String("file", dataset.TaskFile), zap.String("dir", cfg.Data.Dir))
	}
	logger.Info("tasks loaded", zap.Int("tasks", len(doc.Data)))

	if *force && !*yes {
		fmt.Println()
		fmt.Println("This will REPLACE every existing path suggestion!")
		fmt.Print("Continue? (yes/no): ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			logger.Info("update cancelled")
			os.Exit(0)
		}
	}

	suggestionCache := res.SuggestionCache()
	acquired, err := suggestionCache.AcquireLock(ctx, lockName, 30*time.Minute)
	if err != nil {
		logger.Warn("failed to acquire lock, continuing without it", zap.Error(err))
	} else if !acquired {
		logger.Fatal("another update is running")
	}
	defer func() {
		if acquired {
			if err := suggestionCache.ReleaseLock(ctx, lockName); err != nil {
				logger.Warn("failed to release lock", zap.Error(err))
			}
		}
	}()

	repo := res.Store()
	var runID uuid.UUID
	if repo != nil {
		runID, err = repo.StartRun(ctx, "update_suggestions")
		if err != nil {
			logger.Fatal("failed to create run log", zap.Error(err))
		}
		logger = logger.With(zap.String("run_id", runID.String()))
	}

	message, err := run(ctx, logger, res, network, doc, tasks.Options{
		Force:       *force,
		AutoService: *autoService || cfg.Suggestion.AutoService,
		Config:      cfg.Suggestion.Routing(),
		Presets:     presets,
		Workers:     cfg.Data.Workers,
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
		logger.Error("update failed", zap.Error(err))
		exitCode = 1
		return
	}
	logger.Info("update completed", zap.String("result", message))
}

func run(ctx context.Context, logger *zap.Logger, res *bootstrap.Resources, network *routing.Network, doc *dataset.Document, opts tasks.Options) (string, error) {
	logger.Info("Step 2/3: Computing path suggestions",
		zap.Bool("force", opts.Force),
		zap.Bool("auto_service", opts.AutoService),
		zap.Int("workers", opts.Workers),
	)
	start := time.Now()
	service := routing.NewService(routing.NewRouter(logger), res.SuggestionCache(), logger)
	result, err := tasks.NewUpdater(service, logger).Update(ctx, network, doc, opts)
	if err != nil {
		return "", err
	}

	path := filepath.Join(res.Config.Data.Dir, dataset.TaskFile)
	logger.Info("Step 3/3: Writing tasks", zap.String("file", path))
	if err := dataset.WriteDocument(path, doc); err != nil {
		return "", err
	}

	return fmt.Sprintf("%d tasks: %d suggested, %d removed, %d kept, %d failed in %s",
		result.Tasks, result.Suggested, result.Removed, result.Kept, result.Failed,
		time.Since(start).Round(time.Millisecond)), nil
}
