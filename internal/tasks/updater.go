// Package tasks regenerates the path suggestions of task documents.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tcdata/railnet/internal/dataset"
	"github.com/tcdata/railnet/internal/models"
	"github.com/tcdata/railnet/internal/routing"
)

// Task record members
const (
	fieldStations       = "stations"
	fieldService        = "service"
	fieldPathSuggestion = "pathSuggestion"
	fieldObjects        = "objects"
)

// Options controls a regeneration run
type Options struct {
	// Force recomputes suggestions that already exist
	Force bool
	// AutoService picks the preset of the task's service level
	AutoService bool
	Config      routing.Config
	Presets     routing.Presets
	Workers     int
}

// Result counts what a run did
type Result struct {
	Tasks     int
	Suggested int
	Removed   int
	Kept      int
	Failed    int
}

type counters struct {
	tasks, suggested, removed, kept, failed atomic.Int64
}

func (c *counters) result() Result {
	return Result{
		Tasks:     int(c.tasks.Load()),
		Suggested: int(c.suggested.Load()),
		Removed:   int(c.removed.Load()),
		Kept:      int(c.kept.Load()),
		Failed:    int(c.failed.Load()),
	}
}

// Updater writes path suggestions into task records
type Updater struct {
	service *routing.Service
	logger  *zap.Logger
}

// NewUpdater creates an updater backed by a suggestion service
func NewUpdater(service *routing.Service, logger *zap.Logger) *Updater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Updater{service: service, logger: logger}
}

// Update regenerates the suggestions of all tasks in doc, nested objects
// included. Top-level tasks are processed concurrently; each worker only
// touches its own task. Tasks whose waypoints cannot be joined are logged
// and left without a new suggestion.
func (u *Updater) Update(ctx context.Context, network *routing.Network, doc *dataset.Document, opts Options) (Result, error) {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	var c counters
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range doc.Data {
		i := i
		task := &doc.Data[i]
		g.Go(func() error {
			if err := u.updateTask(ctx, network, task, opts, &c); err != nil {
				return fmt.Errorf("task %d: %w", i, err)
			}
			return nil
		})
	}

	err := g.Wait()
	result := c.result()
	u.logger.Info("updated path suggestions",
		zap.Int("tasks", result.Tasks),
		zap.Int("suggested", result.Suggested),
		zap.Int("removed", result.Removed),
		zap.Int("kept", result.Kept),
		zap.Int("failed", result.Failed),
	)
	return result, err
}

func (u *Updater) updateTask(ctx context.Context, network *routing.Network, task *models.RawObject, opts Options, c *counters) error {
	var stations []string
	hasStations, err := task.Decode(fieldStations, &stations)
	if err != nil {
		return err
	}

	if hasStations {
		c.tasks.Add(1)
		if opts.Force || !task.Has(fieldPathSuggestion) {
			if err := u.suggest(ctx, network, task, stations, opts, c); err != nil {
				return err
			}
		} else {
			c.kept.Add(1)
		}

		var current []string
		found, err := task.Decode(fieldPathSuggestion, &current)
		if err != nil {
			return err
		}
		if found && (len(current) == 0 || slices.Equal(current, stations)) {
			task.Delete(fieldPathSuggestion)
			c.removed.Add(1)
		}
	}

	var objects []models.RawObject
	found, err := task.Decode(fieldObjects, &objects)
	if err != nil || !found {
		return err
	}
	for i := range objects {
		if err := u.updateTask(ctx, network, &objects[i], opts, c); err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
	}
	return task.Set(fieldObjects, objects)
}

func (u *Updater) suggest(ctx context.Context, network *routing.Network, task *models.RawObject, stations []string, opts Options, c *counters) error {
	cfg := u.configFor(task, stations, opts)

	suggestion, err := u.service.PathSuggestion(ctx, network, stations, cfg)
	var noPath *routing.NoPathError
	var unknown *routing.UnknownStationError
	switch {
	case errors.As(err, &noPath):
		u.logger.Warn("could not find a path suggestion",
			zap.Strings("stations", stations),
			zap.String("from", noPath.From),
			zap.String("to", noPath.To),
		)
		c.failed.Add(1)
		return nil
	case errors.As(err, &unknown):
		u.logger.Warn("task uses an unknown station",
			zap.Strings("stations", stations),
			zap.String("code", unknown.Code),
		)
		c.failed.Add(1)
		return nil
	case err != nil:
		return err
	}

	if len(suggestion) > 0 {
		if err := task.Set(fieldPathSuggestion, suggestion); err != nil {
			return err
		}
		c.suggested.Add(1)
	}
	return nil
}

func (u *Updater) configFor(task *models.RawObject, stations []string, opts Options) routing.Config {
	if !opts.AutoService {
		return opts.Config
	}

	var service int
	found, err := task.Decode(fieldService, &service)
	if err != nil || !found {
		u.logger.Warn("task has no service level", zap.Strings("stations", stations))
		return opts.Config
	}
	u.logger.Debug("using service preset", zap.Int("service", service))
	return opts.Presets.ForService(service, opts.Config)
}
